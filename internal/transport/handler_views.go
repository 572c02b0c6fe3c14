package transport

import (
	"net/http"

	"github.com/scholarpress/quire/internal/views"
	"github.com/scholarpress/quire/model"
)

// viewsHandler serves the role-scoped dashboard endpoints. Each endpoint is
// a pure read; the provider handles caching and backend fan-out.
type viewsHandler struct {
	provider *views.Provider
}

func (h *viewsHandler) admin(w http.ResponseWriter, r *http.Request) {
	rctx := model.RequestContextFrom(r.Context())
	dashboard, err := h.provider.Admin(r.Context(), rctx)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, dashboard)
}

func (h *viewsHandler) reviewer(w http.ResponseWriter, r *http.Request) {
	rctx := model.RequestContextFrom(r.Context())
	queue, err := h.provider.Reviewer(r.Context(), rctx)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"queue": queue})
}

func (h *viewsHandler) author(w http.ResponseWriter, r *http.Request) {
	rctx := model.RequestContextFrom(r.Context())
	dashboard, err := h.provider.Author(r.Context(), rctx)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, dashboard)
}

func (h *viewsHandler) finance(w http.ResponseWriter, r *http.Request) {
	rctx := model.RequestContextFrom(r.Context())
	dashboard, err := h.provider.Finance(r.Context(), rctx)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, dashboard)
}
