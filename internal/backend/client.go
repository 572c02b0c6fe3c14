// Package backend is the typed client layer for the platform's external
// collaborators. All responses cross the normalization boundary in
// normalize.go before any other package sees them, so downstream code only
// ever works with the canonical model types.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/scholarpress/quire/internal/config"
	"github.com/scholarpress/quire/model"
)

// maxResponseBytes caps how much of a collaborator response is read.
const maxResponseBytes = 10 << 20

// UnauthorizedHook is called whenever a collaborator rejects the bearer
// token. The transport layer uses it to invalidate cached credentials.
type UnauthorizedHook func(rctx *model.RequestContext)

// Client is a shared HTTP client for one backend service, with retry,
// circuit breaking, and standard header injection.
type Client struct {
	name           string
	baseURL        string
	httpClient     *http.Client
	breaker        *CircuitBreaker
	retry          config.RetryConfig
	logger         *zap.Logger
	onUnauthorized UnauthorizedHook
}

// NewClient creates a client for one configured service.
func NewClient(name string, cfg config.ServiceConfig, logger *zap.Logger, onUnauthorized UnauthorizedHook) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		breaker:        NewCircuitBreaker(cfg.CircuitBreaker),
		retry:          cfg.Retry,
		logger:         logger.With(zap.String("service", name)),
		onUnauthorized: onUnauthorized,
	}
}

// Breaker exposes the client's circuit breaker for metrics.
func (c *Client) Breaker() *CircuitBreaker { return c.breaker }

// Response is a raw collaborator response before normalization.
type Response struct {
	StatusCode int
	Body       []byte
}

// Decode unmarshals the response body into out.
func (r *Response) Decode(out any) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, out)
}

// Do executes a JSON request against the service. Non-2xx responses come
// back as ErrorEnvelope errors; a 401 additionally fires the unauthorized
// hook and maps to SESSION_EXPIRED.
func (c *Client) Do(ctx context.Context, rctx *model.RequestContext, method, path string, query url.Values, body any) (*Response, error) {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("backend: marshal body: %w", err)
		}
	}

	contentType := ""
	if bodyBytes != nil {
		contentType = "application/json"
	}
	return c.execute(ctx, rctx, method, c.requestURL(path, query), contentType, bodyBytes)
}

// MultipartField is one part of a multipart request.
type MultipartField struct {
	Name  string
	Value string
	File  *model.FileHandle
}

// DoMultipart executes a multipart/form-data request, used for submission
// creates that carry the main file.
func (c *Client) DoMultipart(ctx context.Context, rctx *model.RequestContext, method, path string, fields []MultipartField) (*Response, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range fields {
		if f.File != nil {
			part, err := w.CreateFormFile(f.Name, f.File.Name)
			if err != nil {
				return nil, fmt.Errorf("backend: multipart file %q: %w", f.Name, err)
			}
			if _, err := part.Write(f.File.Content); err != nil {
				return nil, fmt.Errorf("backend: multipart file %q: %w", f.Name, err)
			}
			continue
		}
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, fmt.Errorf("backend: multipart field %q: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("backend: close multipart writer: %w", err)
	}

	return c.execute(ctx, rctx, method, c.requestURL(path, nil), w.FormDataContentType(), buf.Bytes())
}

func (c *Client) requestURL(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// execute wraps executeOnce with retry and exponential backoff.
func (c *Client) execute(ctx context.Context, rctx *model.RequestContext, method, reqURL, contentType string, bodyBytes []byte) (*Response, error) {
	maxAttempts := c.retry.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	canRetry := isIdempotentMethod(method) || !c.retry.IdempotentOnly

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, model.NewBackendTimeoutError()
			case <-time.After(c.backoff(attempt)):
			}
		}

		resp, err := c.executeOnce(ctx, rctx, method, reqURL, contentType, bodyBytes)
		if err != nil {
			lastErr = err
			if !canRetry || !isRetryableError(err) {
				return nil, err
			}
			c.logger.Debug("retrying after error",
				zap.Int("attempt", attempt+1),
				zap.Int("max", maxAttempts),
				zap.Error(err),
			)
			continue
		}

		if isRetryableStatus(resp.StatusCode) && canRetry && attempt < maxAttempts-1 {
			c.logger.Debug("retrying after status",
				zap.Int("attempt", attempt+1),
				zap.Int("max", maxAttempts),
				zap.Int("status", resp.StatusCode),
			)
			lastErr = c.statusError(rctx, resp)
			continue
		}

		if resp.StatusCode >= 400 {
			return nil, c.statusError(rctx, resp)
		}
		return resp, nil
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, model.NewBackendUnavailableError()
}

// executeOnce performs a single HTTP request under the circuit breaker.
func (c *Client) executeOnce(ctx context.Context, rctx *model.RequestContext, method, reqURL, contentType string, bodyBytes []byte) (*Response, error) {
	if err := c.breaker.Allow(); err != nil {
		return nil, model.NewBackendUnavailableError()
	}

	var body io.Reader
	if bodyBytes != nil {
		body = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("backend: build request: %w", err)
	}
	req.Header = c.requestHeaders(rctx, contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.breaker.RecordFailure()
		if ctx.Err() != nil || isTimeoutError(err) {
			return nil, model.NewBackendTimeoutError()
		}
		if isConnectionError(err) {
			return nil, model.NewBackendUnavailableError()
		}
		return nil, fmt.Errorf("backend: %s %s: %w", method, reqURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		c.breaker.RecordFailure()
		return nil, fmt.Errorf("backend: read response: %w", err)
	}

	// 4xx responses are not infrastructure failures.
	if resp.StatusCode >= 500 {
		c.breaker.RecordFailure()
	} else if resp.StatusCode < 400 {
		c.breaker.RecordSuccess()
	}

	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}

func (c *Client) requestHeaders(rctx *model.RequestContext, contentType string) http.Header {
	h := make(http.Header)
	h.Set("Accept", "application/json")
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	if rctx != nil {
		if rctx.Token != "" {
			h.Set("Authorization", "Bearer "+sanitizeHeader(rctx.Token))
		}
		h.Set("X-Tenant-Id", sanitizeHeader(rctx.TenantID))
		h.Set("X-Correlation-Id", sanitizeHeader(rctx.CorrelationID))
		h.Set("X-Request-Subject", sanitizeHeader(rctx.SubjectID))
	}
	return h
}

// statusError maps a non-2xx response to the error taxonomy. Structured
// {detail} bodies are surfaced verbatim as domain rejections.
func (c *Client) statusError(rctx *model.RequestContext, resp *Response) error {
	if resp.StatusCode == http.StatusUnauthorized {
		if c.onUnauthorized != nil {
			c.onUnauthorized(rctx)
		}
		return model.NewSessionExpiredError()
	}

	detail := extractDetail(resp.Body)

	switch {
	case resp.StatusCode == http.StatusForbidden:
		if detail == "" {
			detail = "access denied"
		}
		return model.NewForbiddenError(detail)
	case resp.StatusCode == http.StatusNotFound:
		if detail == "" {
			detail = "resource not found"
		}
		return model.NewNotFoundError(detail)
	case resp.StatusCode == http.StatusGatewayTimeout:
		return model.NewBackendTimeoutError()
	case resp.StatusCode >= 500:
		return model.NewBackendUnavailableError()
	default:
		if detail == "" {
			detail = fmt.Sprintf("the %s service rejected the request (status %d)", c.name, resp.StatusCode)
		}
		return model.NewBadRequestError(detail)
	}
}

// extractDetail pulls a human-readable message from a structured error body.
func extractDetail(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var parsed struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	switch {
	case parsed.Detail != "":
		return parsed.Detail
	case parsed.Message != "":
		return parsed.Message
	default:
		return parsed.Error
	}
}

// sanitizeHeader strips newlines and carriage returns to prevent header
// injection.
func sanitizeHeader(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	return s
}

func (c *Client) backoff(attempt int) time.Duration {
	initial := c.retry.BackoffInitial
	if initial <= 0 {
		initial = 100 * time.Millisecond
	}
	multiplier := c.retry.BackoffMultiplier
	if multiplier <= 0 {
		multiplier = 2
	}
	max := c.retry.BackoffMax
	if max <= 0 {
		max = 2 * time.Second
	}

	delay := initial
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * multiplier)
		if delay > max {
			return max
		}
	}
	return delay
}

func isIdempotentMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPut, http.MethodDelete,
		http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

func isRetryableStatus(code int) bool {
	switch code {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var env *model.ErrorEnvelope
	if errors.As(err, &env) {
		// Domain rejections are terminal; infrastructure failures are not.
		return env.Code == model.ErrBackendUnavailable || env.Code == model.ErrBackendTimeout
	}
	return true
}

func isConnectionError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func isTimeoutError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
