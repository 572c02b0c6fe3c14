package wizard

import (
	"context"

	"github.com/scholarpress/quire/model"
)

// JournalDirectory resolves journal records for pricing and payment-model
// decisions.
type JournalDirectory interface {
	Journal(ctx context.Context, rctx *model.RequestContext, journalID string) (model.Journal, error)
}

// CreateSubmissionRequest is the payload handed to the submission
// collaborator on final confirmation.
type CreateSubmissionRequest struct {
	JournalID      string
	SubmissionType model.SubmissionType
	Title          string
	PageCount      int
	FastTrack      bool
	Abstract       string
	Keywords       []string
	CoAuthors      []model.CoAuthor
	MainFile       *model.FileHandle

	// TransactionID links the submission to a completed pre-payment charge,
	// empty for post-payment journals.
	TransactionID string
}

// SubmissionClient creates submission records on the platform backend.
type SubmissionClient interface {
	CreateSubmission(ctx context.Context, rctx *model.RequestContext, req CreateSubmissionRequest) (model.Article, error)
}

// CardDetails are the card fields collected by the payment sub-flow. They
// pass through to the gateway and are never persisted.
type CardDetails struct {
	Number   string `json:"card_number"`
	ExpMonth string `json:"exp_month"`
	ExpYear  string `json:"exp_year"`
}

// PaymentClient drives the payment collaborator: transaction creation plus
// the three-step card-token flow. Gateway rejections come back as
// PAYMENT_DECLINED errors carrying the gateway's note verbatim.
type PaymentClient interface {
	CreateTransaction(ctx context.Context, rctx *model.RequestContext, amount int64, serviceType model.ServiceType, description string) (model.Transaction, error)
	RequestCardToken(ctx context.Context, rctx *model.RequestContext, transactionID string, card CardDetails) (string, error)
	VerifyCardToken(ctx context.Context, rctx *model.RequestContext, token, smsCode string) error
	PayWithCardToken(ctx context.Context, rctx *model.RequestContext, transactionID, token string) error
}

// AbstractSuggester is the best-effort AI collaborator for abstract and
// keyword suggestions. Failures never block the wizard.
type AbstractSuggester interface {
	GenerateAbstractAndKeywords(ctx context.Context, rctx *model.RequestContext, fileContent []byte) (abstract string, keywords []string, err error)
}

// Clients bundles the engine's external collaborators.
type Clients struct {
	Journals    JournalDirectory
	Submissions SubmissionClient
	Payments    PaymentClient
	Suggester   AbstractSuggester
}
