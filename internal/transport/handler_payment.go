package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/scholarpress/quire/internal/backend"
	"github.com/scholarpress/quire/model"
)

// paymentHandler exposes the redirect checkout path: fetching the hosted
// payment page URL for a transaction and polling its outcome afterwards.
type paymentHandler struct {
	payments *backend.PaymentService
}

func (h *paymentHandler) checkoutURL(w http.ResponseWriter, r *http.Request) {
	rctx := model.RequestContextFrom(r.Context())
	transactionID := chi.URLParam(r, "transactionID")

	returnURL := r.URL.Query().Get("return_url")
	if returnURL == "" {
		WriteError(w, model.NewValidationError([]model.FieldError{{
			Field: "return_url", Code: "required", Message: "return_url query parameter is required",
		}}))
		return
	}

	paymentURL, err := h.payments.GetPaymentURL(r.Context(), rctx, transactionID, returnURL)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"transaction_id": transactionID,
		"payment_url":    paymentURL,
	})
}

func (h *paymentHandler) status(w http.ResponseWriter, r *http.Request) {
	rctx := model.RequestContextFrom(r.Context())
	transactionID := chi.URLParam(r, "transactionID")

	status, err := h.payments.CheckStatus(r.Context(), rctx, transactionID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"transaction_id": transactionID,
		"status":         status,
	})
}
