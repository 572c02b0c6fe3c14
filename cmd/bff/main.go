// Package main is the entry point for the Quire BFF server.
// It wires all dependencies together and starts the HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/scholarpress/quire/internal/backend"
	"github.com/scholarpress/quire/internal/capability"
	"github.com/scholarpress/quire/internal/config"
	"github.com/scholarpress/quire/internal/observability"
	"github.com/scholarpress/quire/internal/transport"
	"github.com/scholarpress/quire/internal/views"
	"github.com/scholarpress/quire/internal/wizard"
	"github.com/scholarpress/quire/model"
)

// Build-time variables set via ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.commit=abc1234"
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}

	observability.Version = version
	observability.Commit = commit

	logger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	tracingShutdown, err := observability.InitTracing(ctx, cfg.Observability.Tracing, "quire-bff", version)
	if err != nil {
		logger.Error("tracing initialization failed", zap.Error(err))
		return 1
	}

	metrics := observability.InitMetrics(prometheus.DefaultRegisterer)

	// Capability resolver.
	evaluator, err := capability.NewStaticPolicyEvaluator(cfg.Capability.StaticPolicyFile)
	if err != nil {
		logger.Error("capability policy load failed", zap.Error(err))
		return 1
	}
	capResolver := capability.NewResolver(evaluator, cfg.Capability.Cache.TTL)

	// Wizard session store and confirm deduplication guard.
	store, storeCloser, err := buildSessionStore(ctx, cfg.Wizard.Store, logger)
	if err != nil {
		logger.Error("session store initialization failed", zap.Error(err))
		return 1
	}
	guard, guardCloser, err := buildInflightGuard(cfg.Wizard.InflightGuard, logger)
	if err != nil {
		logger.Error("inflight guard initialization failed", zap.Error(err))
		return 1
	}

	// Backend clients. A 401 from any backend means the caller's session is
	// stale, so cached capabilities are dropped alongside the error.
	onUnauthorized := func(rctx *model.RequestContext) {
		capResolver.Invalidate(rctx.SubjectID, rctx.TenantID)
	}
	platformClient := backend.NewClient("platform", cfg.Services["platform"], logger, onUnauthorized)
	paymentsClient := backend.NewClient("payments", cfg.Services["payments"], logger, onUnauthorized)
	aiClient := backend.NewClient("ai", cfg.Services["ai"], logger, onUnauthorized)

	journals := backend.NewJournalService(platformClient)
	submissions := backend.NewSubmissionService(platformClient)
	payments := backend.NewPaymentService(paymentsClient)
	suggester := backend.NewAIService(aiClient)

	// Wizard engine.
	engine := wizard.NewEngine(store, guard, wizard.Clients{
		Journals:    journals,
		Submissions: submissions,
		Payments:    payments,
		Suggester:   suggester,
	}, logger)
	if cfg.Wizard.SessionTTL > 0 {
		engine.SetSessionTTL(cfg.Wizard.SessionTTL)
	}

	// Role-scoped views.
	provider := views.NewProvider(views.Sources{
		Articles:     submissions,
		Journals:     journals,
		Translations: backend.NewTranslationService(platformClient),
		Users:        backend.NewUserService(platformClient),
		Transactions: backend.NewTransactionService(paymentsClient),
	}, cfg.Views, logger)

	readiness := observability.ReadinessChecks{}
	if hc, ok := store.(observability.HealthChecker); ok {
		readiness.SessionStore = hc
	}
	if hc, ok := guard.(observability.HealthChecker); ok {
		readiness.InflightGuard = hc
	}

	jwks := transport.NewJWKSClient(cfg.Identity.JWKSURL, cfg.Identity.JWKSCacheTTL, logger)

	router := transport.NewRouter(transport.Dependencies{
		Config:             cfg,
		Logger:             logger,
		Metrics:            metrics,
		Authenticate:       transport.JWTAuthenticator(cfg.Identity, jwks),
		CapabilityResolver: capResolver,
		Engine:             engine,
		Views:              provider,
		Payments:           payments,
		Readiness:          readiness,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Background expiry sweeper closes abandoned sessions.
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	sweepInterval := cfg.Wizard.ExpirySweepInterval
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	go engine.RunExpirySweeper(bgCtx, sweepInterval)

	logger.Info("server started",
		zap.Int("port", cfg.Server.Port),
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("media_base_url", cfg.Media.BaseURL),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown initiated")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		return 1
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 30 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	bgCancel()

	if storeCloser != nil {
		storeCloser()
	}
	if guardCloser != nil {
		guardCloser()
	}

	if err := tracingShutdown(shutdownCtx); err != nil {
		logger.Error("tracing shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
	return 0
}

// buildSessionStore creates the wizard session store based on config.
func buildSessionStore(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (wizard.SessionStore, func(), error) {
	switch cfg.Driver {
	case "memory":
		logger.Info("using in-memory session store")
		return wizard.NewMemorySessionStore(), nil, nil
	case "postgres", "":
		dsn := os.Getenv(cfg.DSNEnv)
		if dsn == "" && cfg.DSNEnv != "" {
			return nil, nil, fmt.Errorf("session store: %s environment variable not set", cfg.DSNEnv)
		}
		if dsn == "" {
			logger.Warn("session store DSN not configured, using in-memory store")
			return wizard.NewMemorySessionStore(), nil, nil
		}

		poolCfg, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("session store: parse DSN: %w", err)
		}
		if cfg.MaxOpenConns > 0 {
			poolCfg.MaxConns = int32(cfg.MaxOpenConns)
		}
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

		pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("session store: connect: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("session store: ping: %w", err)
		}

		return wizard.NewPgSessionStore(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported session store driver: %q", cfg.Driver)
	}
}

// buildInflightGuard creates the confirm deduplication guard based on config.
func buildInflightGuard(cfg config.InflightGuardConfig, logger *zap.Logger) (wizard.InflightGuard, func(), error) {
	switch cfg.Driver {
	case "memory", "":
		logger.Info("using in-memory inflight guard")
		return wizard.NewMemoryInflightGuard(), nil, nil
	case "redis":
		addr := os.Getenv(cfg.AddrEnv)
		if addr == "" {
			return nil, nil, fmt.Errorf("inflight guard: %s environment variable not set", cfg.AddrEnv)
		}
		client := redis.NewClient(&redis.Options{Addr: addr, DB: cfg.DB})
		return wizard.NewRedisInflightGuard(client), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported inflight guard driver: %q", cfg.Driver)
	}
}
