package transport

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/scholarpress/quire/internal/observability"
	"github.com/scholarpress/quire/internal/views"
	"github.com/scholarpress/quire/internal/wizard"
	"github.com/scholarpress/quire/model"
)

// maxUploadBytes caps the size of a manuscript upload.
const maxUploadBytes = 25 << 20

// wizardHandler serves the submission wizard endpoints. Every state change
// goes through the engine; the handler only decodes the request, checks the
// caller's capability, and shapes the response.
type wizardHandler struct {
	engine  *wizard.Engine
	views   *views.Provider
	metrics *observability.Metrics
}

func (h *wizardHandler) start(w http.ResponseWriter, r *http.Request) {
	rctx := model.RequestContextFrom(r.Context())
	session, err := h.engine.Start(r.Context(), rctx)
	if err != nil {
		WriteError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordWizardStart(rctx.TenantID)
	}
	WriteJSON(w, http.StatusCreated, session)
}

func (h *wizardHandler) describe(w http.ResponseWriter, r *http.Request) {
	rctx := model.RequestContextFrom(r.Context())
	descriptor, err := h.engine.Describe(r.Context(), rctx, chi.URLParam(r, "sessionID"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, descriptor)
}

func (h *wizardHandler) quote(w http.ResponseWriter, r *http.Request) {
	rctx := model.RequestContextFrom(r.Context())
	q, err := h.engine.Quote(r.Context(), rctx, chi.URLParam(r, "sessionID"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, q)
}

// updateDraft accepts a JSON patch, or multipart/form-data when the request
// carries the manuscript file. Multipart fields other than the file are
// ignored; the frontend sends field edits as separate JSON patches.
func (h *wizardHandler) updateDraft(w http.ResponseWriter, r *http.Request) {
	rctx := model.RequestContextFrom(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	var patch wizard.DraftPatch
	contentType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if contentType == "multipart/form-data" {
		file, err := readUpload(r)
		if err != nil {
			WriteError(w, err)
			return
		}
		patch.MainFile = file
	} else {
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			WriteError(w, model.NewBadRequestError("Malformed request body"))
			return
		}
	}

	session, err := h.engine.UpdateDraft(r.Context(), rctx, sessionID, patch)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, session)
}

// coAuthorRequest is the single-endpoint mutation request for the co-author
// list. Index is required for update and remove.
type coAuthorRequest struct {
	Action string          `json:"action"`
	Index  *int            `json:"index,omitempty"`
	Author *model.CoAuthor `json:"author,omitempty"`
}

func (h *wizardHandler) mutateCoAuthors(w http.ResponseWriter, r *http.Request) {
	rctx := model.RequestContextFrom(r.Context())
	sessionID := chi.URLParam(r, "sessionID")

	var req coAuthorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, model.NewBadRequestError("Malformed request body"))
		return
	}

	var (
		session model.WizardSession
		err     error
	)
	switch strings.ToLower(req.Action) {
	case "add":
		if req.Author == nil {
			WriteError(w, model.NewBadRequestError("author is required for add"))
			return
		}
		session, err = h.engine.AddCoAuthor(r.Context(), rctx, sessionID, *req.Author)
	case "update":
		if req.Author == nil || req.Index == nil {
			WriteError(w, model.NewBadRequestError("author and index are required for update"))
			return
		}
		session, err = h.engine.UpdateCoAuthor(r.Context(), rctx, sessionID, *req.Index, *req.Author)
	case "remove":
		if req.Index == nil {
			WriteError(w, model.NewBadRequestError("index is required for remove"))
			return
		}
		session, err = h.engine.RemoveCoAuthor(r.Context(), rctx, sessionID, *req.Index)
	default:
		WriteError(w, model.NewBadRequestError("action must be add, update, or remove"))
		return
	}
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, session)
}

func (h *wizardHandler) advance(w http.ResponseWriter, r *http.Request) {
	rctx := model.RequestContextFrom(r.Context())
	session, err := h.engine.Advance(r.Context(), rctx, chi.URLParam(r, "sessionID"))
	if err != nil {
		WriteError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordWizardAdvance(session.Step.String(), "forward")
	}
	WriteJSON(w, http.StatusOK, session)
}

func (h *wizardHandler) retreat(w http.ResponseWriter, r *http.Request) {
	rctx := model.RequestContextFrom(r.Context())
	session, err := h.engine.Retreat(r.Context(), rctx, chi.URLParam(r, "sessionID"))
	if err != nil {
		WriteError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordWizardAdvance(session.Step.String(), "back")
	}
	WriteJSON(w, http.StatusOK, session)
}

func (h *wizardHandler) suggest(w http.ResponseWriter, r *http.Request) {
	rctx := model.RequestContextFrom(r.Context())
	abstract, keywords, err := h.engine.SuggestMetadata(r.Context(), rctx, chi.URLParam(r, "sessionID"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"abstract": abstract,
		"keywords": keywords,
	})
}

func (h *wizardHandler) confirm(w http.ResponseWriter, r *http.Request) {
	rctx := model.RequestContextFrom(r.Context())
	outcome, err := h.engine.ConfirmAndSubmit(r.Context(), rctx, chi.URLParam(r, "sessionID"))
	if err != nil {
		h.recordConfirmError(err)
		WriteError(w, err)
		return
	}
	h.recordOutcome(rctx, outcome)
	WriteJSON(w, http.StatusOK, outcome)
}

func (h *wizardHandler) submitCard(w http.ResponseWriter, r *http.Request) {
	rctx := model.RequestContextFrom(r.Context())

	var card wizard.CardDetails
	if err := json.NewDecoder(r.Body).Decode(&card); err != nil {
		WriteError(w, model.NewBadRequestError("Malformed request body"))
		return
	}

	session, err := h.engine.SubmitCard(r.Context(), rctx, chi.URLParam(r, "sessionID"), card)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, session)
}

func (h *wizardHandler) submitCode(w http.ResponseWriter, r *http.Request) {
	rctx := model.RequestContextFrom(r.Context())

	var req struct {
		SMSCode string `json:"sms_code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, model.NewBadRequestError("Malformed request body"))
		return
	}

	outcome, err := h.engine.SubmitCode(r.Context(), rctx, chi.URLParam(r, "sessionID"), req.SMSCode)
	if err != nil {
		h.recordConfirmError(err)
		WriteError(w, err)
		return
	}
	h.recordOutcome(rctx, outcome)
	WriteJSON(w, http.StatusOK, outcome)
}

func (h *wizardHandler) cardBack(w http.ResponseWriter, r *http.Request) {
	rctx := model.RequestContextFrom(r.Context())
	session, err := h.engine.CardBack(r.Context(), rctx, chi.URLParam(r, "sessionID"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, session)
}

func (h *wizardHandler) cardCancel(w http.ResponseWriter, r *http.Request) {
	rctx := model.RequestContextFrom(r.Context())
	session, err := h.engine.CancelCard(r.Context(), rctx, chi.URLParam(r, "sessionID"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, session)
}

func (h *wizardHandler) cancel(w http.ResponseWriter, r *http.Request) {
	rctx := model.RequestContextFrom(r.Context())

	var req struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	if err := h.engine.Cancel(r.Context(), rctx, chi.URLParam(r, "sessionID"), req.Reason); err != nil {
		WriteError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordWizardCompletion(model.SessionStatusCancelled)
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": model.SessionStatusCancelled})
}

// recordOutcome updates completion and payment metrics after a successful
// confirmation call and drops the caller's cached view data so the new
// submission shows up immediately.
func (h *wizardHandler) recordOutcome(rctx *model.RequestContext, outcome wizard.ConfirmOutcome) {
	if outcome.Submitted {
		if h.metrics != nil {
			h.metrics.RecordWizardCompletion(model.SessionStatusSubmitted)
			h.metrics.RecordSubmission(string(outcome.Session.Draft.SubmissionType), "success")
			if outcome.Session.PaidTransactionID != "" {
				h.metrics.RecordPaymentAttempt("success")
			}
		}
		if h.views != nil {
			h.views.Invalidate(rctx.TenantID)
		}
	}
}

func (h *wizardHandler) recordConfirmError(err error) {
	if h.metrics == nil {
		return
	}
	ee, ok := err.(*model.ErrorEnvelope)
	if !ok {
		return
	}
	switch ee.Code {
	case model.ErrPaymentDeclined:
		h.metrics.RecordPaymentAttempt("declined")
	case model.ErrSubmissionAfterPayment:
		h.metrics.RecordPaymentAttempt("success")
		h.metrics.RecordPartialFailure()
	}
}

// readUpload extracts the manuscript from a multipart request. The part may
// be named "main_file" or "file".
func readUpload(r *http.Request) (*model.FileHandle, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, model.NewBadRequestError("Malformed multipart request")
	}

	file, header, err := r.FormFile("main_file")
	if err != nil {
		file, header, err = r.FormFile("file")
	}
	if err != nil {
		return nil, model.NewBadRequestError("A file part named main_file is required")
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return nil, model.NewBadRequestError("Could not read uploaded file")
	}
	if len(content) > maxUploadBytes {
		return nil, model.NewValidationError([]model.FieldError{{
			Field:   "main_file",
			Code:    "too_large",
			Message: "uploaded file exceeds the 25 MB limit",
		}})
	}

	return &model.FileHandle{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        int64(len(content)),
		Content:     content,
	}, nil
}
