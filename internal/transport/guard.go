package transport

import "net/http"

// Capability names checked by the route guards.
const (
	capWizardExecute = "submissions:wizard:execute"
	capCardExecute   = "payments:card:execute"
	capOwnView       = "submissions:own:view"
	capManagedView   = "journals:managed:view"
	capQueueView     = "reviews:queue:view"
	capFinanceView   = "finance:reports:view"
)

// requireCapability returns middleware that rejects the request with 403
// unless the resolved capability set grants the named capability.
func requireCapability(capability string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caps := CapabilitiesFrom(r.Context())
			if !caps.Has(capability) {
				WriteForbidden(w, "You do not have permission to perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
