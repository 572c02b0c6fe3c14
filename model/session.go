package model

import "time"

// WizardStep is an explicit, exhaustively-switchable step in the article
// submission flow. Positions are bounded to [StepSelectJournal,
// StepReviewAndConfirm]; there is no terminal step. A successful submission
// exits the wizard entirely.
type WizardStep int

const (
	StepSelectJournal WizardStep = iota + 1
	StepSelectServiceType
	StepUploadAndDescribe
	StepCoAuthors
	StepReviewAndConfirm
)

// FirstStep and LastStep bound wizard navigation.
const (
	FirstStep = StepSelectJournal
	LastStep  = StepReviewAndConfirm
)

func (s WizardStep) String() string {
	switch s {
	case StepSelectJournal:
		return "select_journal"
	case StepSelectServiceType:
		return "select_service_type"
	case StepUploadAndDescribe:
		return "upload_and_describe"
	case StepCoAuthors:
		return "co_authors"
	case StepReviewAndConfirm:
		return "review_and_confirm"
	default:
		return "unknown"
	}
}

// Valid reports whether the step is within the wizard's bounds.
func (s WizardStep) Valid() bool {
	return s >= FirstStep && s <= LastStep
}

// Wizard session status constants.
const (
	SessionStatusActive    = "active"
	SessionStatusSubmitted = "submitted"
	SessionStatusCancelled = "cancelled"
	SessionStatusExpired   = "expired"
)

// CardStage is the state of the nested card-payment sub-flow.
type CardStage string

const (
	// CardStageNone means no card flow is open.
	CardStageNone CardStage = ""
	// CardStageEnterCard collects the card number and expiry.
	CardStageEnterCard CardStage = "enter_card"
	// CardStageEnterCode collects the SMS confirmation code.
	CardStageEnterCode CardStage = "enter_code"
	// CardStageProcessing is set while the charge call is in flight.
	CardStageProcessing CardStage = "processing"
)

// CardState is the card sub-flow's local state. Cancelling the sub-flow
// resets the whole struct so nothing leaks into a subsequent attempt. The
// verified token survives a failed charge so the user need not re-enter
// card details on retry.
type CardState struct {
	Stage         CardStage `json:"stage"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Amount        int64     `json:"amount,omitempty"`
	Token         string    `json:"token,omitempty"`
	TokenVerified bool      `json:"token_verified,omitempty"`
}

// WizardSession is a running submission wizard. The session is the sole
// owner of the step position; step handlers mutate only their slice of the
// draft. Version implements optimistic locking in the store.
type WizardSession struct {
	ID        string          `json:"id"`
	TenantID  string          `json:"tenant_id"`
	SubjectID string          `json:"subject_id"`
	Step      WizardStep      `json:"step"`
	Status    string          `json:"status"`
	Draft     SubmissionDraft `json:"draft"`
	Card      CardState       `json:"card"`

	// PaidTransactionID is set once a pre-payment charge has completed, so
	// a retried confirmation never pays twice.
	PaidTransactionID string `json:"paid_transaction_id,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Version   int        `json:"version"`
}

// WizardEvent records an entry in a session's audit trail.
type WizardEvent struct {
	ID        string     `json:"id"`
	SessionID string     `json:"session_id"`
	Step      WizardStep `json:"step"`
	Event     string     `json:"event"`
	ActorID   string     `json:"actor_id"`
	Comment   string     `json:"comment,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// StepSummary is one entry in the wizard descriptor's step list.
type StepSummary struct {
	Step   WizardStep `json:"step"`
	Name   string     `json:"name"`
	Status string     `json:"status"`
}

// Wizard step display status constants.
const (
	StepStatusCompleted  = "completed"
	StepStatusInProgress = "in_progress"
	StepStatusFuture     = "future"
)

// WizardDescriptor is the full wizard state returned to the frontend:
// position, per-step status, the current draft, an optional quote, and the
// audit history.
type WizardDescriptor struct {
	ID      string          `json:"id"`
	Status  string          `json:"status"`
	Step    WizardStep      `json:"step"`
	Steps   []StepSummary   `json:"steps"`
	Draft   SubmissionDraft `json:"draft"`
	Card    CardState       `json:"card"`
	Quote   *PricingQuote   `json:"quote,omitempty"`
	History []HistoryEntry  `json:"history"`
}

// HistoryEntry is one rendered audit-trail row.
type HistoryEntry struct {
	Step      string `json:"step"`
	Event     string `json:"event"`
	Actor     string `json:"actor"`
	Timestamp string `json:"timestamp"`
	Comment   string `json:"comment,omitempty"`
}
