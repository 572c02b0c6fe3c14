// Package integration provides a reusable test harness for end-to-end
// integration testing of the Quire BFF server. It starts a full HTTP server
// with mock backend services, in-memory stores, and a test JWT issuer.
package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
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

// TestHarness encapsulates a fully wired BFF instance with mock backends
// for integration testing.
type TestHarness struct {
	t      *testing.T
	server *httptest.Server
	issuer *tokenIssuer

	// Internal components exposed for advanced test scenarios.
	SessionStore  *wizard.MemorySessionStore
	InflightGuard *wizard.MemoryInflightGuard
	Engine        *wizard.Engine
	Views         *views.Provider
	CapResolver   model.CapabilityResolver

	Platform *MockBackend
	Payments *MockBackend
	AI       *MockBackend

	cfg *config.Config
}

// HarnessOption configures the test harness.
type HarnessOption func(*harnessConfig)

type harnessConfig struct {
	policyFile     string
	handlerTimeout time.Duration
	sessionTTL     time.Duration
	serviceTimeout time.Duration
	retryAttempts  int
}

// WithPolicyFile sets the static policy YAML file for capability resolution.
// When unset the built-in role policy applies.
func WithPolicyFile(path string) HarnessOption {
	return func(c *harnessConfig) {
		c.policyFile = path
	}
}

// WithHandlerTimeout sets the per-request handler timeout.
func WithHandlerTimeout(d time.Duration) HarnessOption {
	return func(c *harnessConfig) {
		c.handlerTimeout = d
	}
}

// WithSessionTTL overrides how long an untouched wizard session stays alive.
func WithSessionTTL(d time.Duration) HarnessOption {
	return func(c *harnessConfig) {
		c.sessionTTL = d
	}
}

// WithServiceTimeout sets the per-call timeout for backend requests.
func WithServiceTimeout(d time.Duration) HarnessOption {
	return func(c *harnessConfig) {
		c.serviceTimeout = d
	}
}

// WithRetries sets the maximum backend attempt count.
func WithRetries(attempts int) HarnessOption {
	return func(c *harnessConfig) {
		c.retryAttempts = attempts
	}
}

// NewTestHarness creates and starts a full BFF test instance. The server is
// automatically cleaned up when the test completes.
func NewTestHarness(t *testing.T, opts ...HarnessOption) *TestHarness {
	t.Helper()

	hc := &harnessConfig{
		handlerTimeout: 10 * time.Second,
		serviceTimeout: 5 * time.Second,
		retryAttempts:  1,
	}
	for _, opt := range opts {
		opt(hc)
	}

	h := &TestHarness{t: t}

	// Mock backends.
	h.Platform = newMockBackend(t, "platform", platformRoutes())
	h.Payments = newMockBackend(t, "payments", paymentsRoutes())
	h.AI = newMockBackend(t, "ai", aiRoutes())

	// Capability resolver.
	evaluator, err := capability.NewStaticPolicyEvaluator(hc.policyFile)
	if err != nil {
		t.Fatalf("load policy file: %v", err)
	}
	h.CapResolver = capability.NewResolver(evaluator, 0) // no caching in tests

	// JWT issuer.
	h.issuer = newTokenIssuer(t)

	logger := zap.NewNop()

	serviceConfig := func(mb *MockBackend) config.ServiceConfig {
		return config.ServiceConfig{
			BaseURL: mb.URL(),
			Timeout: hc.serviceTimeout,
			Retry: config.RetryConfig{
				MaxAttempts:    hc.retryAttempts,
				BackoffInitial: 10 * time.Millisecond,
				IdempotentOnly: true,
			},
		}
	}

	h.cfg = &config.Config{
		Server: config.ServerConfig{
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			HandlerTimeout: hc.handlerTimeout,
			CORS: config.CORSConfig{
				AllowedOrigins: []string{"http://localhost:3000"},
				AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
				AllowedHeaders: []string{"Authorization", "Content-Type", "X-Correlation-Id"},
				MaxAge:         86400,
			},
		},
		Identity: config.IdentityConfig{
			Issuer:     h.issuer.Issuer(),
			Audience:   h.issuer.Audience(),
			JWKSURL:    h.issuer.JWKSURL(),
			Algorithms: []string{"RS256"},
			ClaimPaths: map[string]string{
				"subject_id": "sub",
				"tenant_id":  "tenant_id",
				"email":      "email",
				"roles":      "roles",
			},
		},
		Services: map[string]config.ServiceConfig{
			"platform": serviceConfig(h.Platform),
			"payments": serviceConfig(h.Payments),
			"ai":       serviceConfig(h.AI),
		},
		Views: config.ViewsConfig{
			Cache: config.CacheConfig{TTL: time.Minute, MaxEntries: 100},
		},
	}

	platformClient := backend.NewClient("platform", h.cfg.Services["platform"], logger, nil)
	paymentsClient := backend.NewClient("payments", h.cfg.Services["payments"], logger, nil)
	aiClient := backend.NewClient("ai", h.cfg.Services["ai"], logger, nil)

	journals := backend.NewJournalService(platformClient)
	submissions := backend.NewSubmissionService(platformClient)
	payments := backend.NewPaymentService(paymentsClient)

	h.SessionStore = wizard.NewMemorySessionStore()
	h.InflightGuard = wizard.NewMemoryInflightGuard()
	h.Engine = wizard.NewEngine(h.SessionStore, h.InflightGuard, wizard.Clients{
		Journals:    journals,
		Submissions: submissions,
		Payments:    payments,
		Suggester:   backend.NewAIService(aiClient),
	}, logger)
	if hc.sessionTTL != 0 {
		h.Engine.SetSessionTTL(hc.sessionTTL)
	}

	h.Views = views.NewProvider(views.Sources{
		Articles:     submissions,
		Journals:     journals,
		Translations: backend.NewTranslationService(platformClient),
		Users:        backend.NewUserService(platformClient),
		Transactions: backend.NewTransactionService(paymentsClient),
	}, h.cfg.Views, logger)

	jwks := transport.NewJWKSClient(h.issuer.JWKSURL(), 1*time.Hour, logger)

	router := transport.NewRouter(transport.Dependencies{
		Config:             h.cfg,
		Logger:             logger,
		Metrics:            observability.InitMetrics(prometheus.NewRegistry()),
		Authenticate:       transport.JWTAuthenticator(h.cfg.Identity, jwks),
		CapabilityResolver: h.CapResolver,
		Engine:             h.Engine,
		Views:              h.Views,
		Payments:           payments,
		Readiness: observability.ReadinessChecks{
			SessionStore: h.SessionStore,
		},
	})

	h.server = httptest.NewServer(router)
	t.Cleanup(h.server.Close)

	return h
}

// BaseURL returns the test server's base URL.
func (h *TestHarness) BaseURL() string {
	return h.server.URL
}

// GenerateToken creates a valid JWT token with the given claims.
func (h *TestHarness) GenerateToken(claims TestClaims) string {
	return h.issuer.GenerateToken(claims)
}

// GenerateExpiredToken creates a JWT that has already expired.
func (h *TestHarness) GenerateExpiredToken(claims TestClaims) string {
	return h.issuer.GenerateExpiredToken(claims)
}

// --- HTTP client helpers ---

// GET performs an authenticated GET request.
func (h *TestHarness) GET(path, token string) *http.Response {
	h.t.Helper()
	return h.doRequest("GET", path, nil, token, nil)
}

// POST performs an authenticated POST request with a JSON body.
func (h *TestHarness) POST(path string, body any, token string) *http.Response {
	h.t.Helper()
	return h.doRequest("POST", path, body, token, nil)
}

// POSTWithHeaders performs an authenticated POST request with additional headers.
func (h *TestHarness) POSTWithHeaders(path string, body any, token string, headers map[string]string) *http.Response {
	h.t.Helper()
	return h.doRequest("POST", path, body, token, headers)
}

// POSTFile performs an authenticated multipart POST carrying a single file part.
func (h *TestHarness) POSTFile(path, fieldName, fileName string, content []byte, token string) *http.Response {
	h.t.Helper()

	var buf strings.Builder
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(fieldName, fileName)
	if err != nil {
		h.t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		h.t.Fatalf("write form file: %v", err)
	}
	mw.Close()

	req, err := http.NewRequestWithContext(context.Background(), "POST", h.server.URL+path, strings.NewReader(buf.String()))
	if err != nil {
		h.t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := (&http.Client{Timeout: 15 * time.Second}).Do(req)
	if err != nil {
		h.t.Fatalf("POST %s failed: %v", path, err)
	}
	return resp
}

func (h *TestHarness) doRequest(method, path string, body any, token string, headers map[string]string) *http.Response {
	h.t.Helper()

	url := h.server.URL + path

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("marshal request body: %v", err)
		}
		bodyReader = strings.NewReader(string(data))
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, bodyReader)
	if err != nil {
		h.t.Fatalf("create request: %v", err)
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	client := &http.Client{
		Timeout: 15 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		h.t.Fatalf("%s %s failed: %v", method, path, err)
	}
	return resp
}

// ParseJSON reads the response body and unmarshals it into the target.
func (h *TestHarness) ParseJSON(resp *http.Response, target any) {
	h.t.Helper()
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		h.t.Fatalf("read response body: %v", err)
	}
	if err := json.Unmarshal(data, target); err != nil {
		h.t.Fatalf("unmarshal response body: %v\nbody: %s", err, string(data))
	}
}

// ReadBody reads and returns the response body as bytes.
func (h *TestHarness) ReadBody(resp *http.Response) []byte {
	h.t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		h.t.Fatalf("read response body: %v", err)
	}
	return data
}

// AssertStatus checks that the response has the expected status code.
func (h *TestHarness) AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Errorf("status = %d, want %d\nbody: %s", resp.StatusCode, expected, string(body))
	}
}

// AssertJSON checks that the response has the expected status and parses the body.
func (h *TestHarness) AssertJSON(t *testing.T, resp *http.Response, expected int, target any) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		t.Fatalf("status = %d, want %d\nbody: %s", resp.StatusCode, expected, string(body))
	}
	h.ParseJSON(resp, target)
}

// --- Default test claims ---

// AuthorClaims returns TestClaims for an author user.
func AuthorClaims() TestClaims {
	return TestClaims{
		SubjectID: "user-author",
		TenantID:  "pressa",
		Email:     "author@pressa.example.com",
		Roles:     []string{"author"},
	}
}

// ReviewerClaims returns TestClaims for a reviewer user.
func ReviewerClaims() TestClaims {
	return TestClaims{
		SubjectID: "user-reviewer",
		TenantID:  "pressa",
		Email:     "reviewer@pressa.example.com",
		Roles:     []string{"reviewer"},
	}
}

// JournalAdminClaims returns TestClaims for a journal_admin user.
func JournalAdminClaims() TestClaims {
	return TestClaims{
		SubjectID: "user-admin",
		TenantID:  "pressa",
		Email:     "admin@pressa.example.com",
		Roles:     []string{"journal_admin"},
	}
}

// AccountantClaims returns TestClaims for an accountant user.
func AccountantClaims() TestClaims {
	return TestClaims{
		SubjectID: "user-accountant",
		TenantID:  "pressa",
		Email:     "accountant@pressa.example.com",
		Roles:     []string{"accountant"},
	}
}

// --- Fixtures ---

// JournalFixture returns a map representing a typical journal for mock responses.
func JournalFixture(id, title string, fee int64, paymentModel string) map[string]any {
	return map[string]any{
		"id":              id,
		"title":           title,
		"admin_id":        "user-admin",
		"pricing_type":    "fixed",
		"publication_fee": float64(fee),
		"payment_model":   paymentModel,
	}
}

// ArticleFixture returns a map representing a typical article for mock responses.
func ArticleFixture(id, authorID, status string) map[string]any {
	return map[string]any{
		"id":         id,
		"journal_id": "j-1",
		"author_id":  authorID,
		"title":      "Test Article",
		"status":     status,
		"fast_track": false,
		"page_count": float64(10),
		"created_at": "2026-01-15T10:30:00Z",
	}
}

// TransactionFixture returns a map representing a gateway transaction record.
func TransactionFixture(id string, amount int64, status string) map[string]any {
	return map[string]any{
		"id":           id,
		"amount":       float64(amount),
		"service_type": "article",
		"status":       status,
		"created_at":   "2026-01-15T10:30:00Z",
	}
}

// GatewayOK returns a gateway success envelope merged with the given fields.
func GatewayOK(fields map[string]any) map[string]any {
	out := map[string]any{"error_code": 0, "error_note": ""}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// GatewayError returns a gateway rejection envelope with the given note.
func GatewayError(code int, note string) map[string]any {
	return map[string]any{"error_code": code, "error_note": note}
}

// ListFixture returns a {"data": [...]} list wrapper as the platform emits.
func ListFixture(items ...map[string]any) map[string]any {
	rows := make([]any, len(items))
	for i, item := range items {
		rows[i] = item
	}
	return map[string]any{"data": rows, "total_count": float64(len(items))}
}

// FormatJSON converts a value to indented JSON for test output.
func FormatJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
