// Package wizard implements the article submission wizard: an explicit
// five-step state machine with per-step advance guards, a draft accumulated
// across steps, and a confirmation that orchestrates the payment and
// submission collaborators.
package wizard

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/scholarpress/quire/internal/pricing"
	"github.com/scholarpress/quire/model"
)

const (
	defaultSessionTTL = 24 * time.Hour
	defaultConfirmTTL = 2 * time.Minute
)

// Engine manages the lifecycle of wizard sessions.
type Engine struct {
	store      SessionStore
	guard      InflightGuard
	clients    Clients
	logger     *zap.Logger
	sessionTTL time.Duration
	confirmTTL time.Duration
}

// NewEngine creates a new wizard engine.
func NewEngine(store SessionStore, guard InflightGuard, clients Clients, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:      store,
		guard:      guard,
		clients:    clients,
		logger:     logger,
		sessionTTL: defaultSessionTTL,
		confirmTTL: defaultConfirmTTL,
	}
}

// SetSessionTTL overrides how long an untouched session stays alive.
func (e *Engine) SetSessionTTL(ttl time.Duration) {
	if ttl != 0 {
		e.sessionTTL = ttl
	}
}

// Start creates a new wizard session at the first step with an empty draft.
func (e *Engine) Start(ctx context.Context, rctx *model.RequestContext) (model.WizardSession, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(e.sessionTTL)

	session := model.WizardSession{
		ID:        uuid.New().String(),
		TenantID:  rctx.TenantID,
		SubjectID: rctx.SubjectID,
		Step:      model.FirstStep,
		Status:    model.SessionStatusActive,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: &expiresAt,
	}

	if err := e.store.Create(ctx, session); err != nil {
		return model.WizardSession{}, err
	}

	if err := e.appendEvent(ctx, session.ID, model.FirstStep, "step_entered", rctx.SubjectID, ""); err != nil {
		return model.WizardSession{}, err
	}

	e.logger.Info("wizard session started",
		zap.String("session_id", session.ID),
		zap.String("subject_id", rctx.SubjectID),
	)
	return session, nil
}

// load fetches a session, verifying ownership and that it is still active.
func (e *Engine) load(ctx context.Context, rctx *model.RequestContext, sessionID string) (model.WizardSession, error) {
	session, err := e.store.Get(ctx, rctx.TenantID, sessionID)
	if err != nil {
		return model.WizardSession{}, err
	}
	if session.SubjectID != rctx.SubjectID && !rctx.HasRole(model.RoleSuperAdmin) {
		return model.WizardSession{}, model.NewWizardNotFoundError(
			fmt.Sprintf("wizard session %q not found", sessionID),
		)
	}
	if session.Status != model.SessionStatusActive {
		return model.WizardSession{}, model.NewWizardNotActiveError(
			fmt.Sprintf("wizard session %q is %s, not active", sessionID, session.Status),
		)
	}
	return session, nil
}

// DraftPatch is a partial draft update. Each field belongs to exactly one
// wizard step; patching a field from any other step is rejected so step
// handlers can only mutate their own slice of the draft.
type DraftPatch struct {
	JournalID      *string               `json:"journal_id,omitempty"`
	SubmissionType *model.SubmissionType `json:"submission_type,omitempty"`
	FastTrack      *bool                 `json:"fast_track,omitempty"`
	Title          *string               `json:"title,omitempty"`
	PageCount      *int                  `json:"page_count,omitempty"`
	Abstract       *string               `json:"abstract,omitempty"`
	Keywords       []string              `json:"keywords,omitempty"`
	MainFile       *model.FileHandle     `json:"-"`
}

// fieldViolations reports patch fields not owned by the current step.
func (p DraftPatch) fieldViolations(current model.WizardStep) []model.FieldError {
	var details []model.FieldError
	deny := func(field string, owner model.WizardStep) {
		details = append(details, model.FieldError{
			Field:   field,
			Code:    "wrong_step",
			Message: fmt.Sprintf("%s can only be set on step %s", field, owner),
		})
	}

	if p.JournalID != nil && current != model.StepSelectJournal {
		deny("journal_id", model.StepSelectJournal)
	}
	if (p.SubmissionType != nil || p.FastTrack != nil) && current != model.StepSelectServiceType {
		deny("submission_type", model.StepSelectServiceType)
	}
	contentFields := p.Title != nil || p.PageCount != nil || p.Abstract != nil ||
		p.Keywords != nil || p.MainFile != nil
	if contentFields && current != model.StepUploadAndDescribe {
		deny("content", model.StepUploadAndDescribe)
	}
	return details
}

// UpdateDraft applies a partial draft update on the current step.
func (e *Engine) UpdateDraft(ctx context.Context, rctx *model.RequestContext, sessionID string, patch DraftPatch) (model.WizardSession, error) {
	session, err := e.load(ctx, rctx, sessionID)
	if err != nil {
		return model.WizardSession{}, err
	}

	if details := patch.fieldViolations(session.Step); len(details) > 0 {
		return model.WizardSession{}, model.NewValidationError(details)
	}

	if patch.JournalID != nil {
		session.Draft.JournalID = *patch.JournalID
	}
	if patch.SubmissionType != nil {
		st := *patch.SubmissionType
		if st != model.SubmissionWrite && st != model.SubmissionPublish {
			return model.WizardSession{}, model.NewValidationError([]model.FieldError{{
				Field:   "submission_type",
				Code:    "invalid",
				Message: fmt.Sprintf("unknown submission type %q", st),
			}})
		}
		session.Draft.SubmissionType = st
	}
	if patch.FastTrack != nil {
		if session.Draft.AddOns == nil {
			session.Draft.AddOns = model.AddOnSet{}
		} else {
			session.Draft.AddOns = session.Draft.AddOns.Clone()
		}
		session.Draft.AddOns[model.AddOnFastTrack] = *patch.FastTrack
	}
	if patch.Title != nil {
		session.Draft.Title = *patch.Title
	}
	if patch.PageCount != nil {
		if *patch.PageCount < 0 {
			return model.WizardSession{}, model.NewValidationError([]model.FieldError{{
				Field:   "page_count",
				Code:    "invalid",
				Message: "page count cannot be negative",
			}})
		}
		session.Draft.PageCount = *patch.PageCount
	}
	if patch.Abstract != nil {
		session.Draft.Abstract = *patch.Abstract
	}
	if patch.Keywords != nil {
		session.Draft.Keywords = patch.Keywords
	}
	if patch.MainFile != nil {
		session.Draft.MainFile = patch.MainFile
		// A declared page count wins; otherwise estimate one from the
		// upload size so a per-page quote never silently prices at zero.
		if session.Draft.PageCount == 0 {
			session.Draft.PageCount = estimatePageCount(patch.MainFile.Size)
		}
	}

	if err := e.store.Update(ctx, session); err != nil {
		return model.WizardSession{}, err
	}
	return e.store.Get(ctx, rctx.TenantID, sessionID)
}

// estimatedBytesPerPage approximates one typeset manuscript page in an
// uploaded PDF or DOCX.
const estimatedBytesPerPage = 50 * 1024

// estimatePageCount derives a page count from the upload size. Any non-empty
// file counts as at least one page.
func estimatePageCount(size int64) int {
	if size <= 0 {
		return 0
	}
	return int((size + estimatedBytesPerPage - 1) / estimatedBytesPerPage)
}

// AddCoAuthor appends a co-author entry. Only valid on the co-author step.
func (e *Engine) AddCoAuthor(ctx context.Context, rctx *model.RequestContext, sessionID string, author model.CoAuthor) (model.WizardSession, error) {
	return e.mutateCoAuthors(ctx, rctx, sessionID, func(list []model.CoAuthor) ([]model.CoAuthor, error) {
		if author.FirstName == "" && author.LastName == "" && author.Email == "" {
			return nil, model.NewValidationError([]model.FieldError{{
				Field: "co_author", Code: "empty", Message: "co-author entry is empty",
			}})
		}
		return append(list, author), nil
	})
}

// UpdateCoAuthor replaces the co-author at the given index.
func (e *Engine) UpdateCoAuthor(ctx context.Context, rctx *model.RequestContext, sessionID string, index int, author model.CoAuthor) (model.WizardSession, error) {
	return e.mutateCoAuthors(ctx, rctx, sessionID, func(list []model.CoAuthor) ([]model.CoAuthor, error) {
		if index < 0 || index >= len(list) {
			return nil, model.NewNotFoundError(fmt.Sprintf("co-author index %d out of range", index))
		}
		list[index] = author
		return list, nil
	})
}

// RemoveCoAuthor deletes the co-author at the given index.
func (e *Engine) RemoveCoAuthor(ctx context.Context, rctx *model.RequestContext, sessionID string, index int) (model.WizardSession, error) {
	return e.mutateCoAuthors(ctx, rctx, sessionID, func(list []model.CoAuthor) ([]model.CoAuthor, error) {
		if index < 0 || index >= len(list) {
			return nil, model.NewNotFoundError(fmt.Sprintf("co-author index %d out of range", index))
		}
		return append(list[:index], list[index+1:]...), nil
	})
}

func (e *Engine) mutateCoAuthors(ctx context.Context, rctx *model.RequestContext, sessionID string, mutate func([]model.CoAuthor) ([]model.CoAuthor, error)) (model.WizardSession, error) {
	session, err := e.load(ctx, rctx, sessionID)
	if err != nil {
		return model.WizardSession{}, err
	}
	if session.Step != model.StepCoAuthors {
		return model.WizardSession{}, model.NewValidationError([]model.FieldError{{
			Field:   "co_authors",
			Code:    "wrong_step",
			Message: fmt.Sprintf("co-authors can only be edited on step %s", model.StepCoAuthors),
		}})
	}

	// Work on a copy so a failed update leaves the stored draft untouched.
	list := make([]model.CoAuthor, len(session.Draft.CoAuthors))
	copy(list, session.Draft.CoAuthors)

	list, err = mutate(list)
	if err != nil {
		return model.WizardSession{}, err
	}
	session.Draft.CoAuthors = list

	if err := e.store.Update(ctx, session); err != nil {
		return model.WizardSession{}, err
	}
	return e.store.Get(ctx, rctx.TenantID, sessionID)
}

// advanceGuard checks the current step's guard. Only the first two steps
// gate navigation; later steps are soft requirements re-validated at final
// submit.
func advanceGuard(session model.WizardSession) *model.ErrorEnvelope {
	switch session.Step {
	case model.StepSelectJournal:
		if session.Draft.JournalID == "" {
			return model.NewInvalidTransitionError("select a journal before continuing")
		}
	case model.StepSelectServiceType:
		if session.Draft.SubmissionType == "" {
			return model.NewInvalidTransitionError("select a service type before continuing")
		}
	}
	return nil
}

// Advance moves to the next step if the current step's guard is satisfied.
// The position is clamped at the last step.
func (e *Engine) Advance(ctx context.Context, rctx *model.RequestContext, sessionID string) (model.WizardSession, error) {
	session, err := e.load(ctx, rctx, sessionID)
	if err != nil {
		return model.WizardSession{}, err
	}

	if guardErr := advanceGuard(session); guardErr != nil {
		return model.WizardSession{}, guardErr
	}

	if session.Step >= model.LastStep {
		return session, nil
	}

	completed := session.Step
	session.Step++
	if err := e.store.Update(ctx, session); err != nil {
		return model.WizardSession{}, err
	}

	_ = e.appendEvent(ctx, session.ID, completed, "step_completed", rctx.SubjectID, "")
	_ = e.appendEvent(ctx, session.ID, session.Step, "step_entered", rctx.SubjectID, "")

	return e.store.Get(ctx, rctx.TenantID, sessionID)
}

// Retreat moves to the previous step, clamped at the first. Data entered on
// later steps is preserved.
func (e *Engine) Retreat(ctx context.Context, rctx *model.RequestContext, sessionID string) (model.WizardSession, error) {
	session, err := e.load(ctx, rctx, sessionID)
	if err != nil {
		return model.WizardSession{}, err
	}

	if session.Step <= model.FirstStep {
		return session, nil
	}

	session.Step--
	if err := e.store.Update(ctx, session); err != nil {
		return model.WizardSession{}, err
	}

	_ = e.appendEvent(ctx, session.ID, session.Step, "step_back", rctx.SubjectID, "")

	return e.store.Get(ctx, rctx.TenantID, sessionID)
}

// Quote computes the current draft's price. Requires journal and service
// type to be chosen.
func (e *Engine) Quote(ctx context.Context, rctx *model.RequestContext, sessionID string) (model.PricingQuote, error) {
	session, err := e.load(ctx, rctx, sessionID)
	if err != nil {
		return model.PricingQuote{}, err
	}
	return e.quoteDraft(ctx, rctx, session.Draft)
}

func (e *Engine) quoteDraft(ctx context.Context, rctx *model.RequestContext, draft model.SubmissionDraft) (model.PricingQuote, error) {
	if draft.SubmissionType == "" {
		return model.PricingQuote{}, model.NewValidationError([]model.FieldError{{
			Field: "submission_type", Code: "required", Message: "select a service type first",
		}})
	}

	var journal model.Journal
	if draft.SubmissionType == model.SubmissionPublish {
		if draft.JournalID == "" {
			return model.PricingQuote{}, model.NewValidationError([]model.FieldError{{
				Field: "journal_id", Code: "required", Message: "select a journal first",
			}})
		}
		j, err := e.clients.Journals.Journal(ctx, rctx, draft.JournalID)
		if err != nil {
			return model.PricingQuote{}, err
		}
		journal = j
	}
	return pricing.ArticleQuote(draft.SubmissionType, journal, draft.PageCount, draft.AddOns), nil
}

// SuggestMetadata asks the AI collaborator for an abstract and keywords
// based on the uploaded file. Best-effort: a failure surfaces as an error
// for inline display but never changes wizard state.
func (e *Engine) SuggestMetadata(ctx context.Context, rctx *model.RequestContext, sessionID string) (string, []string, error) {
	session, err := e.load(ctx, rctx, sessionID)
	if err != nil {
		return "", nil, err
	}
	if session.Step != model.StepUploadAndDescribe {
		return "", nil, model.NewInvalidTransitionError("suggestions are only available on the content step")
	}
	if session.Draft.MainFile == nil {
		return "", nil, model.NewValidationError([]model.FieldError{{
			Field: "main_file", Code: "required", Message: "upload the main file first",
		}})
	}
	if e.clients.Suggester == nil {
		return "", nil, model.NewBackendUnavailableError()
	}

	abstract, keywords, err := e.clients.Suggester.GenerateAbstractAndKeywords(ctx, rctx, session.Draft.MainFile.Content)
	if err != nil {
		e.logger.Warn("abstract suggestion failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return "", nil, err
	}
	return abstract, keywords, nil
}

// Describe returns the full wizard descriptor for the frontend.
func (e *Engine) Describe(ctx context.Context, rctx *model.RequestContext, sessionID string) (model.WizardDescriptor, error) {
	session, err := e.store.Get(ctx, rctx.TenantID, sessionID)
	if err != nil {
		return model.WizardDescriptor{}, err
	}
	if session.SubjectID != rctx.SubjectID && !rctx.HasRole(model.RoleSuperAdmin) {
		return model.WizardDescriptor{}, model.NewWizardNotFoundError(
			fmt.Sprintf("wizard session %q not found", sessionID),
		)
	}

	steps := make([]model.StepSummary, 0, int(model.LastStep))
	for s := model.FirstStep; s <= model.LastStep; s++ {
		status := model.StepStatusFuture
		switch {
		case s < session.Step:
			status = model.StepStatusCompleted
		case s == session.Step:
			status = model.StepStatusInProgress
		}
		steps = append(steps, model.StepSummary{Step: s, Name: s.String(), Status: status})
	}

	// Quote is best-effort here: an unpriceable draft just omits it.
	var quote *model.PricingQuote
	if q, err := e.quoteDraft(ctx, rctx, session.Draft); err == nil {
		quote = &q
	}

	events, _ := e.store.GetEvents(ctx, rctx.TenantID, sessionID)
	history := make([]model.HistoryEntry, 0, len(events))
	for _, evt := range events {
		history = append(history, model.HistoryEntry{
			Step:      evt.Step.String(),
			Event:     evt.Event,
			Actor:     evt.ActorID,
			Timestamp: evt.Timestamp.Format(time.RFC3339),
			Comment:   evt.Comment,
		})
	}

	return model.WizardDescriptor{
		ID:      session.ID,
		Status:  session.Status,
		Step:    session.Step,
		Steps:   steps,
		Draft:   session.Draft,
		Card:    session.Card,
		Quote:   quote,
		History: history,
	}, nil
}

// Cancel cancels an active wizard session and discards the draft.
func (e *Engine) Cancel(ctx context.Context, rctx *model.RequestContext, sessionID, reason string) error {
	session, err := e.load(ctx, rctx, sessionID)
	if err != nil {
		return err
	}

	session.Status = model.SessionStatusCancelled
	session.Card = model.CardState{}

	if err := e.store.Update(ctx, session); err != nil {
		return err
	}
	_ = e.appendEvent(ctx, session.ID, session.Step, "cancelled", rctx.SubjectID, reason)
	return nil
}

// ProcessExpiry marks active sessions past their expiration time as
// expired. Errors on individual sessions are logged and skipped so one bad
// row never stalls the sweep.
func (e *Engine) ProcessExpiry(ctx context.Context) error {
	now := time.Now().UTC()
	expired, err := e.store.FindExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("find expired sessions: %w", err)
	}

	for _, session := range expired {
		session.Status = model.SessionStatusExpired
		if err := e.store.Update(ctx, session); err != nil {
			e.logger.Warn("expire wizard session",
				zap.String("session_id", session.ID),
				zap.Error(err),
			)
			continue
		}
		_ = e.appendEvent(ctx, session.ID, session.Step, "expired", "system", "")
	}
	return nil
}

// RunExpirySweeper runs ProcessExpiry on the given interval until the
// context is cancelled.
func (e *Engine) RunExpirySweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.ProcessExpiry(ctx); err != nil {
				e.logger.Error("expiry sweep failed", zap.Error(err))
			}
		}
	}
}

// appendEvent is a convenience helper for creating and persisting events.
func (e *Engine) appendEvent(ctx context.Context, sessionID string, step model.WizardStep, event, actorID, comment string) error {
	return e.store.AppendEvent(ctx, model.WizardEvent{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Step:      step,
		Event:     event,
		ActorID:   actorID,
		Comment:   comment,
		Timestamp: time.Now().UTC(),
	})
}
