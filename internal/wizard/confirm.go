package wizard

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/scholarpress/quire/internal/pricing"
	"github.com/scholarpress/quire/model"
)

// ConfirmOutcome is the result of a confirmation attempt. Either the
// submission was created (Submitted), or a pre-payment is due and the card
// sub-flow has been opened (PaymentDue).
type ConfirmOutcome struct {
	Submitted  bool                `json:"submitted"`
	PaymentDue bool                `json:"payment_due"`
	Article    model.Article       `json:"article,omitempty"`
	Session    model.WizardSession `json:"session"`
}

// ConfirmAndSubmit finalizes a wizard session from the review step.
//
// Post-payment journals and the writing service with a completed charge go
// straight to the submission collaborator. Pre-payment journals first create
// a transaction and open the card sub-flow; the submission call happens only
// after the charge succeeds. All sub-calls are strictly sequential, and a
// failure at any point leaves the session state unchanged so the attempt is
// retryable.
func (e *Engine) ConfirmAndSubmit(ctx context.Context, rctx *model.RequestContext, sessionID string) (ConfirmOutcome, error) {
	session, err := e.load(ctx, rctx, sessionID)
	if err != nil {
		return ConfirmOutcome{}, err
	}
	if session.Step != model.StepReviewAndConfirm {
		return ConfirmOutcome{}, model.NewInvalidTransitionError(
			"confirmation is only possible from the review step",
		)
	}

	// One confirmation at a time per session.
	if err := e.guard.Acquire(ctx, sessionID, e.confirmTTL); err != nil {
		return ConfirmOutcome{}, err
	}
	defer func() { _ = e.guard.Release(ctx, sessionID) }()

	if details := validateDraftForSubmit(session.Draft); len(details) > 0 {
		return ConfirmOutcome{}, model.NewValidationError(details)
	}

	// A charge recorded by an earlier attempt means only the submission
	// call is outstanding.
	if session.PaidTransactionID != "" {
		return e.submit(ctx, rctx, session)
	}

	var journal model.Journal
	if session.Draft.SubmissionType == model.SubmissionPublish {
		journal, err = e.clients.Journals.Journal(ctx, rctx, session.Draft.JournalID)
		if err != nil {
			return ConfirmOutcome{}, err
		}
	}

	total := pricing.ArticleTotal(session.Draft.SubmissionType, journal, session.Draft.PageCount, session.Draft.AddOns)

	// Post-payment journals skip the card sub-flow entirely; a zero total
	// has nothing to charge.
	if total == 0 || (session.Draft.SubmissionType == model.SubmissionPublish && journal.PaymentModel == model.PaymentPost) {
		return e.submit(ctx, rctx, session)
	}

	serviceType := model.ServiceArticle
	if session.Draft.SubmissionType == model.SubmissionWrite {
		serviceType = model.ServiceWriting
	}

	tx, err := e.clients.Payments.CreateTransaction(ctx, rctx, total, serviceType,
		fmt.Sprintf("Submission: %s", session.Draft.Title),
	)
	if err != nil {
		return ConfirmOutcome{}, err
	}

	session.Card = model.CardState{
		Stage:         model.CardStageEnterCard,
		TransactionID: tx.ID,
		Amount:        total,
	}
	if err := e.store.Update(ctx, session); err != nil {
		return ConfirmOutcome{}, err
	}
	_ = e.appendEvent(ctx, session.ID, session.Step, "payment_required", rctx.SubjectID, "")

	session, err = e.store.Get(ctx, rctx.TenantID, sessionID)
	if err != nil {
		return ConfirmOutcome{}, err
	}
	return ConfirmOutcome{PaymentDue: true, Session: session}, nil
}

// submit creates the submission record and closes the session. A failure
// after a recorded charge is the distinct partial-success error; the session
// keeps PaidTransactionID so a retried confirmation skips payment.
func (e *Engine) submit(ctx context.Context, rctx *model.RequestContext, session model.WizardSession) (ConfirmOutcome, error) {
	req := CreateSubmissionRequest{
		JournalID:      session.Draft.JournalID,
		SubmissionType: session.Draft.SubmissionType,
		Title:          session.Draft.Title,
		PageCount:      session.Draft.PageCount,
		FastTrack:      session.Draft.AddOns[model.AddOnFastTrack],
		Abstract:       session.Draft.Abstract,
		Keywords:       session.Draft.Keywords,
		CoAuthors:      session.Draft.CoAuthors,
		MainFile:       session.Draft.MainFile,
		TransactionID:  session.PaidTransactionID,
	}

	article, err := e.clients.Submissions.CreateSubmission(ctx, rctx, req)
	if err != nil {
		if session.PaidTransactionID != "" {
			e.logger.Error("submission create failed after completed payment",
				zap.String("session_id", session.ID),
				zap.String("transaction_id", session.PaidTransactionID),
				zap.Error(err),
			)
			return ConfirmOutcome{}, model.NewSubmissionAfterPaymentError(session.PaidTransactionID)
		}
		return ConfirmOutcome{}, err
	}

	session.Status = model.SessionStatusSubmitted
	session.Card = model.CardState{}
	if err := e.store.Update(ctx, session); err != nil {
		return ConfirmOutcome{}, err
	}
	_ = e.appendEvent(ctx, session.ID, session.Step, "submitted", rctx.SubjectID, article.ID)

	e.logger.Info("submission created",
		zap.String("session_id", session.ID),
		zap.String("article_id", article.ID),
	)

	session, err = e.store.Get(ctx, rctx.TenantID, session.ID)
	if err != nil {
		return ConfirmOutcome{}, err
	}
	return ConfirmOutcome{Submitted: true, Article: article, Session: session}, nil
}

// validateDraftForSubmit re-checks the soft requirements deferred from the
// navigation guards.
func validateDraftForSubmit(draft model.SubmissionDraft) []model.FieldError {
	var details []model.FieldError
	if draft.SubmissionType == "" {
		details = append(details, model.FieldError{
			Field: "submission_type", Code: "required", Message: "service type is required",
		})
	}
	if draft.SubmissionType == model.SubmissionPublish && draft.JournalID == "" {
		details = append(details, model.FieldError{
			Field: "journal_id", Code: "required", Message: "journal is required",
		})
	}
	if draft.Title == "" {
		details = append(details, model.FieldError{
			Field: "title", Code: "required", Message: "title is required",
		})
	}
	if draft.SubmissionType == model.SubmissionPublish && draft.MainFile == nil {
		details = append(details, model.FieldError{
			Field: "main_file", Code: "required", Message: "main file is required",
		})
	}
	return details
}

// SubmitCard handles the first card sub-flow stage: exchange card details
// for a gateway token. Failure leaves the stage unchanged for retry.
func (e *Engine) SubmitCard(ctx context.Context, rctx *model.RequestContext, sessionID string, card CardDetails) (model.WizardSession, error) {
	session, err := e.load(ctx, rctx, sessionID)
	if err != nil {
		return model.WizardSession{}, err
	}
	if session.Card.Stage != model.CardStageEnterCard {
		return model.WizardSession{}, model.NewInvalidTransitionError(
			fmt.Sprintf("card details are not expected in stage %q", session.Card.Stage),
		)
	}

	token, err := e.clients.Payments.RequestCardToken(ctx, rctx, session.Card.TransactionID, card)
	if err != nil {
		return model.WizardSession{}, err
	}

	session.Card.Stage = model.CardStageEnterCode
	session.Card.Token = token
	session.Card.TokenVerified = false
	if err := e.store.Update(ctx, session); err != nil {
		return model.WizardSession{}, err
	}
	_ = e.appendEvent(ctx, session.ID, session.Step, "card_token_requested", rctx.SubjectID, "")

	return e.store.Get(ctx, rctx.TenantID, sessionID)
}

// SubmitCode handles the SMS-code stage: verify the token, then charge. A
// declined charge returns to the code stage with the verified token kept, so
// the user never re-enters card details on retry.
func (e *Engine) SubmitCode(ctx context.Context, rctx *model.RequestContext, sessionID, smsCode string) (ConfirmOutcome, error) {
	session, err := e.load(ctx, rctx, sessionID)
	if err != nil {
		return ConfirmOutcome{}, err
	}
	if session.Card.Stage != model.CardStageEnterCode {
		return ConfirmOutcome{}, model.NewInvalidTransitionError(
			fmt.Sprintf("an SMS code is not expected in stage %q", session.Card.Stage),
		)
	}

	if !session.Card.TokenVerified {
		if err := e.clients.Payments.VerifyCardToken(ctx, rctx, session.Card.Token, smsCode); err != nil {
			return ConfirmOutcome{}, err
		}
		session.Card.TokenVerified = true
	}

	// Persist the verification and the in-flight stage before charging.
	session.Card.Stage = model.CardStageProcessing
	if err := e.store.Update(ctx, session); err != nil {
		return ConfirmOutcome{}, err
	}
	session, err = e.store.Get(ctx, rctx.TenantID, sessionID)
	if err != nil {
		return ConfirmOutcome{}, err
	}

	if err := e.clients.Payments.PayWithCardToken(ctx, rctx, session.Card.TransactionID, session.Card.Token); err != nil {
		// Back to the code stage, token preserved.
		session.Card.Stage = model.CardStageEnterCode
		if updErr := e.store.Update(ctx, session); updErr != nil {
			return ConfirmOutcome{}, updErr
		}
		_ = e.appendEvent(ctx, session.ID, session.Step, "payment_failed", rctx.SubjectID, "")
		return ConfirmOutcome{}, err
	}

	// Record the completed charge before attempting the submission call so
	// a retried confirmation never pays twice.
	session.PaidTransactionID = session.Card.TransactionID
	session.Card = model.CardState{}
	if err := e.store.Update(ctx, session); err != nil {
		return ConfirmOutcome{}, err
	}
	_ = e.appendEvent(ctx, session.ID, session.Step, "payment_completed", rctx.SubjectID, session.PaidTransactionID)

	session, err = e.store.Get(ctx, rctx.TenantID, sessionID)
	if err != nil {
		return ConfirmOutcome{}, err
	}
	return e.submit(ctx, rctx, session)
}

// CardBack returns from the SMS-code stage to card entry, discarding the
// token so nothing leaks into the next attempt.
func (e *Engine) CardBack(ctx context.Context, rctx *model.RequestContext, sessionID string) (model.WizardSession, error) {
	session, err := e.load(ctx, rctx, sessionID)
	if err != nil {
		return model.WizardSession{}, err
	}
	if session.Card.Stage != model.CardStageEnterCode {
		return model.WizardSession{}, model.NewInvalidTransitionError(
			fmt.Sprintf("cannot go back to card entry from stage %q", session.Card.Stage),
		)
	}

	session.Card.Stage = model.CardStageEnterCard
	session.Card.Token = ""
	session.Card.TokenVerified = false
	if err := e.store.Update(ctx, session); err != nil {
		return model.WizardSession{}, err
	}

	return e.store.Get(ctx, rctx.TenantID, sessionID)
}

// CancelCard closes the card sub-flow and resets all of its fields. The
// session returns to the review step; an already-created transaction is left
// to the backend to reconcile.
func (e *Engine) CancelCard(ctx context.Context, rctx *model.RequestContext, sessionID string) (model.WizardSession, error) {
	session, err := e.load(ctx, rctx, sessionID)
	if err != nil {
		return model.WizardSession{}, err
	}
	if session.Card.Stage == model.CardStageNone {
		return session, nil
	}

	session.Card = model.CardState{}
	if err := e.store.Update(ctx, session); err != nil {
		return model.WizardSession{}, err
	}
	_ = e.appendEvent(ctx, session.ID, session.Step, "payment_cancelled", rctx.SubjectID, "")

	return e.store.Get(ctx, rctx.TenantID, sessionID)
}
