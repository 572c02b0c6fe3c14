package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Histogram bucket definitions.
var (
	httpDurationBuckets    = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	backendDurationBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	bodySizeBuckets        = []float64{100, 1024, 10240, 102400, 1048576}
)

// Metrics holds all Prometheus metric instruments for the BFF.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestSizeBytes  *prometheus.HistogramVec
	HTTPResponseSizeBytes *prometheus.HistogramVec

	// Wizard metrics
	WizardStartsTotal      *prometheus.CounterVec
	WizardAdvancesTotal    *prometheus.CounterVec
	WizardCompletionsTotal *prometheus.CounterVec
	WizardActiveSessions   prometheus.Gauge
	WizardExpiriesTotal    prometheus.Counter

	// Payment metrics
	PaymentAttemptsTotal *prometheus.CounterVec
	PaymentDeclinesTotal prometheus.Counter
	SubmissionsTotal     *prometheus.CounterVec
	PartialFailuresTotal prometheus.Counter

	// Backend metrics
	BackendRequestsTotal       *prometheus.CounterVec
	BackendRequestDuration     *prometheus.HistogramVec
	BackendCircuitBreakerState *prometheus.GaugeVec
	BackendRetriesTotal        *prometheus.CounterVec

	// Cache metrics
	CapabilityCacheHitsTotal   prometheus.Counter
	CapabilityCacheMissesTotal prometheus.Counter
	ViewCacheHitsTotal         *prometheus.CounterVec
	ViewCacheMissesTotal       *prometheus.CounterVec
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		// HTTP
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quire_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quire_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),
		HTTPRequestSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quire_http_request_size_bytes",
			Help:    "HTTP request body size in bytes.",
			Buckets: bodySizeBuckets,
		}, []string{"method", "path_pattern"}),
		HTTPResponseSizeBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quire_http_response_size_bytes",
			Help:    "HTTP response body size in bytes.",
			Buckets: bodySizeBuckets,
		}, []string{"method", "path_pattern"}),

		// Wizard
		WizardStartsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quire_wizard_starts_total",
			Help: "Total number of wizard sessions started.",
		}, []string{"tenant_id"}),
		WizardAdvancesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quire_wizard_advances_total",
			Help: "Total number of wizard step transitions.",
		}, []string{"step", "direction"}),
		WizardCompletionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quire_wizard_completions_total",
			Help: "Total number of wizard sessions reaching a final status.",
		}, []string{"final_status"}),
		WizardActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "quire_wizard_active_sessions",
			Help: "Number of active wizard sessions.",
		}),
		WizardExpiriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quire_wizard_expiries_total",
			Help: "Total number of wizard sessions expired by the sweeper.",
		}),

		// Payments and submissions
		PaymentAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quire_payment_attempts_total",
			Help: "Total number of card charge attempts.",
		}, []string{"outcome"}),
		PaymentDeclinesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quire_payment_declines_total",
			Help: "Total number of gateway declines.",
		}),
		SubmissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quire_submissions_total",
			Help: "Total number of submission creations.",
		}, []string{"submission_type", "outcome"}),
		PartialFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quire_partial_failures_total",
			Help: "Total number of paid-but-unsubmitted outcomes.",
		}),

		// Backend
		BackendRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quire_backend_requests_total",
			Help: "Total number of backend service requests.",
		}, []string{"service", "status"}),
		BackendRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quire_backend_request_duration_seconds",
			Help:    "Backend request duration in seconds.",
			Buckets: backendDurationBuckets,
		}, []string{"service"}),
		BackendCircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "quire_backend_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open).",
		}, []string{"service"}),
		BackendRetriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quire_backend_retries_total",
			Help: "Total number of backend request retries.",
		}, []string{"service"}),

		// Cache
		CapabilityCacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quire_capability_cache_hits_total",
			Help: "Total capability cache hits.",
		}),
		CapabilityCacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "quire_capability_cache_misses_total",
			Help: "Total capability cache misses.",
		}),
		ViewCacheHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quire_view_cache_hits_total",
			Help: "Total view collection cache hits.",
		}, []string{"collection"}),
		ViewCacheMissesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "quire_view_cache_misses_total",
			Help: "Total view collection cache misses.",
		}, []string{"collection"}),
	}

	reg.MustRegister(
		// HTTP
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSizeBytes,
		m.HTTPResponseSizeBytes,
		// Wizard
		m.WizardStartsTotal,
		m.WizardAdvancesTotal,
		m.WizardCompletionsTotal,
		m.WizardActiveSessions,
		m.WizardExpiriesTotal,
		// Payments and submissions
		m.PaymentAttemptsTotal,
		m.PaymentDeclinesTotal,
		m.SubmissionsTotal,
		m.PartialFailuresTotal,
		// Backend
		m.BackendRequestsTotal,
		m.BackendRequestDuration,
		m.BackendCircuitBreakerState,
		m.BackendRetriesTotal,
		// Cache
		m.CapabilityCacheHitsTotal,
		m.CapabilityCacheMissesTotal,
		m.ViewCacheHitsTotal,
		m.ViewCacheMissesTotal,
	)

	return m
}

// --- Recording helpers ---

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, pathPattern string, status int, duration time.Duration, reqSize, respSize int) {
	statusStr := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(method, pathPattern, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, pathPattern).Observe(duration.Seconds())
	m.HTTPRequestSizeBytes.WithLabelValues(method, pathPattern).Observe(float64(reqSize))
	m.HTTPResponseSizeBytes.WithLabelValues(method, pathPattern).Observe(float64(respSize))
}

// RecordWizardStart records a wizard session start.
func (m *Metrics) RecordWizardStart(tenantID string) {
	m.WizardStartsTotal.WithLabelValues(tenantID).Inc()
	m.WizardActiveSessions.Inc()
}

// RecordWizardAdvance records a step transition. Direction is "forward" or
// "back".
func (m *Metrics) RecordWizardAdvance(step, direction string) {
	m.WizardAdvancesTotal.WithLabelValues(step, direction).Inc()
}

// RecordWizardCompletion records a session reaching a final status.
func (m *Metrics) RecordWizardCompletion(finalStatus string) {
	m.WizardCompletionsTotal.WithLabelValues(finalStatus).Inc()
	m.WizardActiveSessions.Dec()
}

// RecordWizardExpiry records a session expired by the sweeper.
func (m *Metrics) RecordWizardExpiry() {
	m.WizardExpiriesTotal.Inc()
	m.WizardActiveSessions.Dec()
}

// RecordPaymentAttempt records a card charge attempt. Outcome is "success"
// or "declined".
func (m *Metrics) RecordPaymentAttempt(outcome string) {
	m.PaymentAttemptsTotal.WithLabelValues(outcome).Inc()
	if outcome == "declined" {
		m.PaymentDeclinesTotal.Inc()
	}
}

// RecordSubmission records a submission creation attempt.
func (m *Metrics) RecordSubmission(submissionType, outcome string) {
	m.SubmissionsTotal.WithLabelValues(submissionType, outcome).Inc()
}

// RecordPartialFailure records a paid-but-unsubmitted outcome.
func (m *Metrics) RecordPartialFailure() {
	m.PartialFailuresTotal.Inc()
}

// RecordBackendRequest records a backend service request.
func (m *Metrics) RecordBackendRequest(service string, status int, duration time.Duration) {
	m.BackendRequestsTotal.WithLabelValues(service, strconv.Itoa(status)).Inc()
	m.BackendRequestDuration.WithLabelValues(service).Observe(duration.Seconds())
}

// SetBackendCircuitBreakerState sets the circuit breaker state for a service.
// State: 0=closed, 1=half-open, 2=open.
func (m *Metrics) SetBackendCircuitBreakerState(service string, state float64) {
	m.BackendCircuitBreakerState.WithLabelValues(service).Set(state)
}

// RecordBackendRetry records a backend request retry.
func (m *Metrics) RecordBackendRetry(service string) {
	m.BackendRetriesTotal.WithLabelValues(service).Inc()
}

// RecordCapabilityCacheHit records a capability cache hit.
func (m *Metrics) RecordCapabilityCacheHit() {
	m.CapabilityCacheHitsTotal.Inc()
}

// RecordCapabilityCacheMiss records a capability cache miss.
func (m *Metrics) RecordCapabilityCacheMiss() {
	m.CapabilityCacheMissesTotal.Inc()
}

// RecordViewCacheHit records a view collection cache hit.
func (m *Metrics) RecordViewCacheHit(collection string) {
	m.ViewCacheHitsTotal.WithLabelValues(collection).Inc()
}

// RecordViewCacheMiss records a view collection cache miss.
func (m *Metrics) RecordViewCacheMiss(collection string) {
	m.ViewCacheMissesTotal.WithLabelValues(collection).Inc()
}

// --- HTTP Middleware ---

// MetricsMiddleware returns HTTP middleware that records request metrics using
// chi's route pattern (not the actual URL path) to avoid label cardinality
// explosion.
func (m *Metrics) MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &metricsResponseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		duration := time.Since(start)
		pathPattern := routePattern(r)
		reqSize := 0
		if r.ContentLength > 0 {
			reqSize = int(r.ContentLength)
		}

		m.RecordHTTPRequest(r.Method, pathPattern, sw.status, duration, reqSize, sw.bytes)
	})
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// routePattern extracts chi's route pattern from the request context.
// Falls back to the raw URL path if no pattern is found.
func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return r.URL.Path
	}
	pattern := strings.Join(rctx.RoutePatterns, "")
	// chi route patterns have trailing /*, remove it.
	pattern = strings.TrimSuffix(pattern, "/*")
	if pattern == "" {
		return r.URL.Path
	}
	return pattern
}

// metricsResponseWriter wraps http.ResponseWriter to capture status and bytes.
type metricsResponseWriter struct {
	http.ResponseWriter
	status  int
	bytes   int
	written bool
}

func (w *metricsResponseWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *metricsResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}
