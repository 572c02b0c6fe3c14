package observability

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/scholarpress/quire/internal/config"
	"github.com/scholarpress/quire/model"
)

type loggerKey struct{}

// NewLogger builds the process-wide JSON logger. An unknown level name in the
// config is downgraded to info rather than rejected, so a typo in deployment
// config never blocks startup.
//
// Level conventions:
//   - error: Infrastructure failures (store down, unhandled panics), 5xx responses
//   - warn:  Client errors (4xx), degraded operation (circuit breaker open, AI suggester down)
//   - info:  Request start/end, wizard transitions, submission and payment outcomes
//   - debug: Cache operations, backend request/response details, retry decisions
func NewLogger(cfg config.ObservabilityConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Encoding:         "json",
		EncoderConfig:    jsonEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	return zapCfg.Build()
}

func jsonEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// LoggerFrom returns the logger stored in the context, or the provided
// fallback if none is found.
func LoggerFrom(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*zap.Logger); ok && l != nil {
		return l
	}
	return fallback
}

// RequestLogger returns the context's logger enriched with the identity and
// correlation fields of the current request, when one is in flight.
func RequestLogger(ctx context.Context, fallback *zap.Logger) *zap.Logger {
	logger := LoggerFrom(ctx, fallback)

	rctx := model.RequestContextFrom(ctx)
	if rctx == nil {
		return logger
	}

	fields := make([]zap.Field, 0, 4)
	fields = append(fields,
		zap.String("tenant_id", rctx.TenantID),
		zap.String("subject_id", rctx.SubjectID),
		zap.String("correlation_id", rctx.CorrelationID),
	)
	if rctx.TraceID != "" {
		fields = append(fields, zap.String("trace_id", rctx.TraceID))
	}
	return logger.With(fields...)
}

// redactedFields are field names whose values never reach the logs,
// regardless of what the caller asks for. Card and credential fields make
// up most of the list.
var redactedFields = map[string]bool{
	"password":      true,
	"secret":        true,
	"token":         true,
	"access_token":  true,
	"refresh_token": true,
	"api_key":       true,
	"authorization": true,
	"card_number":   true,
	"exp_month":     true,
	"exp_year":      true,
	"sms_code":      true,
}

// RedactBody returns a copy of body with sensitive values replaced by
// "[REDACTED]". Matching is case-insensitive and recurses into nested
// objects. Extra field names merge with the built-in list. Intended for
// debug-level logging of request and response bodies.
func RedactBody(body map[string]any, extra []string) map[string]any {
	if body == nil {
		return nil
	}

	out := make(map[string]any, len(body))
	for k, v := range body {
		switch {
		case isSensitiveField(k, extra):
			out[k] = "[REDACTED]"
		default:
			if nested, ok := v.(map[string]any); ok {
				out[k] = RedactBody(nested, extra)
			} else {
				out[k] = v
			}
		}
	}
	return out
}

func isSensitiveField(name string, extra []string) bool {
	lower := strings.ToLower(name)
	if redactedFields[lower] {
		return true
	}
	for _, f := range extra {
		if strings.EqualFold(name, f) {
			return true
		}
	}
	return false
}
