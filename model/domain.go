package model

import "time"

// Roles recognized by the platform. The backend owns role assignment; the
// BFF only maps roles to capabilities and view projections.
type Role string

const (
	RoleAuthor       Role = "author"
	RoleReviewer     Role = "reviewer"
	RoleJournalAdmin Role = "journal_admin"
	RoleAccountant   Role = "accountant"
	RoleSuperAdmin   Role = "super_admin"
)

// PricingType selects how a journal charges for publication.
type PricingType string

const (
	// PricingFixed charges one flat publication fee regardless of length.
	PricingFixed PricingType = "fixed"
	// PricingPerPage charges proportionally to page count.
	PricingPerPage PricingType = "per_page"
)

// PaymentModel determines whether payment happens before or after acceptance.
type PaymentModel string

const (
	PaymentPre  PaymentModel = "pre"
	PaymentPost PaymentModel = "post"
)

// Journal is the canonical journal record produced by the normalization
// boundary. Monetary fields are whole currency units.
type Journal struct {
	ID             string       `json:"id"`
	Title          string       `json:"title"`
	AdminID        string       `json:"admin_id"`
	PricingType    PricingType  `json:"pricing_type"`
	PublicationFee int64        `json:"publication_fee"`
	PricePerPage   int64        `json:"price_per_page"`
	PaymentModel   PaymentModel `json:"payment_model"`
}

// ArticleStatus is the backend-owned lifecycle status of an article.
type ArticleStatus string

const (
	StatusNew            ArticleStatus = "new"
	StatusWithEditor     ArticleStatus = "with_editor"
	StatusInReview       ArticleStatus = "in_review"
	StatusReadyToPublish ArticleStatus = "ready_to_publish"
	StatusPublished      ArticleStatus = "published"
	StatusRejected       ArticleStatus = "rejected"
)

// Article is the canonical article record.
type Article struct {
	ID          string        `json:"id"`
	JournalID   string        `json:"journal_id"`
	AuthorID    string        `json:"author_id"`
	Title       string        `json:"title"`
	Status      ArticleStatus `json:"status"`
	FastTrack   bool          `json:"fast_track"`
	PageCount   int           `json:"page_count"`
	SubmittedAt time.Time     `json:"submitted_at"`
}

// TransactionStatus is the settlement state of a payment transaction.
type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxFailed    TransactionStatus = "failed"
)

// ServiceType classifies what a transaction paid for.
type ServiceType string

const (
	ServiceArticle     ServiceType = "article"
	ServiceWriting     ServiceType = "writing"
	ServiceBook        ServiceType = "book"
	ServiceTranslation ServiceType = "translation"
)

// Transaction is the canonical payment transaction record.
type Transaction struct {
	ID          string            `json:"id"`
	Amount      int64             `json:"amount"`
	ServiceType ServiceType       `json:"service_type"`
	Status      TransactionStatus `json:"status"`
	Description string            `json:"description"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Translation is the canonical translation-job record.
type Translation struct {
	ID           string `json:"id"`
	ArticleID    string `json:"article_id"`
	TranslatorID string `json:"translator_id"`
	Status       string `json:"status"`
}

// User is the canonical user record. Only the fields the views need.
type User struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Roles     []Role `json:"roles"`
}
