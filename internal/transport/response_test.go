package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/scholarpress/quire/model"
)

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, http.StatusCreated, map[string]string{"id": "s-1"})

	if w.Code != 201 {
		t.Errorf("status = %d, want 201", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", got)
	}
	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["id"] != "s-1" {
		t.Errorf("id = %q, want s-1", body["id"])
	}
}

func TestWriteError_statusMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"bad request", model.NewBadRequestError("bad"), 400, model.ErrBadRequest},
		{"unauthorized", model.NewUnauthorizedError("no"), 401, model.ErrUnauthorized},
		{"session expired", model.NewSessionExpiredError(), 401, model.ErrSessionExpired},
		{"payment declined", model.NewPaymentDeclinedError("Card is blocked"), 402, model.ErrPaymentDeclined},
		{"forbidden", model.NewForbiddenError("no"), 403, model.ErrForbidden},
		{"not found", model.NewNotFoundError("gone"), 404, model.ErrNotFound},
		{"wizard not found", model.NewWizardNotFoundError("gone"), 404, model.ErrWizardNotFound},
		{"conflict", model.NewConflictError("busy"), 409, model.ErrConflict},
		{"wizard not active", model.NewWizardNotActiveError("done"), 409, model.ErrWizardNotActive},
		{"validation", model.NewValidationError(nil), 422, model.ErrValidationError},
		{"invalid transition", model.NewInvalidTransitionError("no"), 422, model.ErrInvalidTransition},
		{"backend unavailable", model.NewBackendUnavailableError(), 502, model.ErrBackendUnavailable},
		{"submission after payment", model.NewSubmissionAfterPaymentError("tx-1"), 502, model.ErrSubmissionAfterPayment},
		{"backend timeout", model.NewBackendTimeoutError(), 504, model.ErrBackendTimeout},
		{"plain error", errors.New("boom"), 500, model.ErrInternalError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteError(w, tc.err)

			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
			var body struct {
				Error *model.ErrorEnvelope `json:"error"`
			}
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error == nil || body.Error.Code != tc.code {
				t.Errorf("error code = %v, want %s", body.Error, tc.code)
			}
		})
	}
}

func TestWriteValidationError_details(t *testing.T) {
	w := httptest.NewRecorder()
	WriteValidationError(w, []model.FieldError{
		{Field: "pages", Code: "min", Message: "pages must be at least 1"},
	})

	if w.Code != 422 {
		t.Errorf("status = %d, want 422", w.Code)
	}
	var body struct {
		Error *model.ErrorEnvelope `json:"error"`
	}
	json.NewDecoder(w.Body).Decode(&body)
	if len(body.Error.Details) != 1 || body.Error.Details[0].Field != "pages" {
		t.Errorf("details = %+v", body.Error.Details)
	}
}
