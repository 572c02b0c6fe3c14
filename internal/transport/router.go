package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/scholarpress/quire/internal/backend"
	"github.com/scholarpress/quire/internal/config"
	"github.com/scholarpress/quire/internal/observability"
	"github.com/scholarpress/quire/internal/views"
	"github.com/scholarpress/quire/internal/wizard"
	"github.com/scholarpress/quire/model"
)

// Dependencies holds all injected dependencies for the HTTP transport layer.
type Dependencies struct {
	Config             *config.Config
	Logger             *zap.Logger
	Metrics            *observability.Metrics
	Authenticate       func(http.Handler) http.Handler
	CapabilityResolver model.CapabilityResolver
	Engine             *wizard.Engine
	Views              *views.Provider
	Payments           *backend.PaymentService
	Readiness          observability.ReadinessChecks
}

// NewRouter creates a chi.Router with the full middleware pipeline and all
// route registrations. Health, readiness, and metrics endpoints bypass the
// authentication middleware.
func NewRouter(deps Dependencies) chi.Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Global middleware: applied to all routes including health.
	r.Use(Recovery(logger))
	r.Use(CORS(deps.Config.Server.CORS))
	r.Use(RequestID)
	r.Use(SecurityHeaders)

	// Public routes bypass authentication.
	r.Get("/ui/health", observability.HandleHealth())
	r.Get("/ui/ready", observability.HandleReady(deps.Readiness))
	if deps.Config.Observability.Metrics.Enabled {
		path := deps.Config.Observability.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, observability.Handler())
	}

	auth := deps.Authenticate
	if auth == nil {
		auth = func(next http.Handler) http.Handler { return next }
	}

	wh := &wizardHandler{engine: deps.Engine, views: deps.Views, metrics: deps.Metrics}
	vh := &viewsHandler{provider: deps.Views}
	ph := &paymentHandler{payments: deps.Payments}

	// Authenticated routes carry the full middleware chain.
	r.Group(func(r chi.Router) {
		r.Use(auth)
		r.Use(observability.TracingMiddleware)
		r.Use(BuildRequestContext(deps.Config.Identity))
		r.Use(ResolveCapabilities(deps.CapabilityResolver, logger))
		r.Use(HandlerTimeout(deps.Config.Server.HandlerTimeout))
		r.Use(RequestLogging(logger))
		if deps.Metrics != nil {
			r.Use(deps.Metrics.MetricsMiddleware)
		}

		r.Route("/ui/wizard", func(r chi.Router) {
			r.Use(requireCapability(capWizardExecute))

			r.Post("/start", wh.start)
			r.Route("/{sessionID}", func(r chi.Router) {
				r.Get("/", wh.describe)
				r.Get("/quote", wh.quote)
				r.Post("/draft", wh.updateDraft)
				r.Post("/coauthors", wh.mutateCoAuthors)
				r.Post("/advance", wh.advance)
				r.Post("/retreat", wh.retreat)
				r.Post("/suggest", wh.suggest)
				r.Post("/confirm", wh.confirm)
				r.Post("/cancel", wh.cancel)

				r.Group(func(r chi.Router) {
					r.Use(requireCapability(capCardExecute))
					r.Post("/card", wh.submitCard)
					r.Post("/card/code", wh.submitCode)
					r.Post("/card/back", wh.cardBack)
					r.Post("/card/cancel", wh.cardCancel)
				})
			})
		})

		r.Post("/ui/book-quote", handleBookQuote)

		r.Route("/ui/views", func(r chi.Router) {
			r.With(requireCapability(capManagedView)).Get("/admin", vh.admin)
			r.With(requireCapability(capQueueView)).Get("/reviewer", vh.reviewer)
			r.With(requireCapability(capOwnView)).Get("/author", vh.author)
			r.With(requireCapability(capFinanceView)).Get("/finance", vh.finance)
		})

		r.Route("/ui/payments/{transactionID}", func(r chi.Router) {
			r.Use(requireCapability(capCardExecute))
			r.Get("/status", ph.status)
			r.Get("/checkout-url", ph.checkoutURL)
		})
	})

	return r
}
