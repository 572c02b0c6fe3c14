package model

// SubmissionType is the top-level service chosen in the wizard.
type SubmissionType string

const (
	// SubmissionWrite commissions the platform to write the article; the
	// fee is a fixed constant independent of journal or length.
	SubmissionWrite SubmissionType = "write"
	// SubmissionPublish submits a finished article for publication; the
	// fee follows the journal's pricing model.
	SubmissionPublish SubmissionType = "publish"
)

// AddOn identifies a paid extra service on a submission.
type AddOn string

const (
	// AddOnFastTrack is expedited review for a fixed surcharge.
	AddOnFastTrack AddOn = "fast_track"
)

// AddOnSet is the set of add-ons toggled on a draft.
type AddOnSet map[AddOn]bool

// Clone returns a copy so step components can mutate their own slice of the
// draft without aliasing.
func (s AddOnSet) Clone() AddOnSet {
	if s == nil {
		return nil
	}
	out := make(AddOnSet, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// CoAuthor is one entry in the draft's co-author list. Entries are purely
// additive and independently editable.
type CoAuthor struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Affiliation string `json:"affiliation"`
}

// FileHandle is the opaque binary handle for the draft's main file. The
// content is held in the session until the final multipart upload.
type FileHandle struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Content     []byte `json:"content,omitempty"`
}

// SubmissionDraft is the in-progress submission accumulated across wizard
// steps. It has no identity of its own; it lives inside a WizardSession and
// is discarded on cancellation or successful submission.
type SubmissionDraft struct {
	JournalID      string          `json:"journal_id,omitempty"`
	SubmissionType SubmissionType  `json:"submission_type,omitempty"`
	Title          string          `json:"title,omitempty"`
	PageCount      int             `json:"page_count,omitempty"`
	AddOns         AddOnSet        `json:"add_ons,omitempty"`
	MainFile       *FileHandle     `json:"main_file,omitempty"`
	CoAuthors      []CoAuthor      `json:"co_authors,omitempty"`
	Abstract       string          `json:"abstract,omitempty"`
	Keywords       []string        `json:"keywords,omitempty"`
}

// PricingQuote is the derived cost of an article submission. It is
// recomputed on every relevant input change and never stored.
type PricingQuote struct {
	Base      int64 `json:"base"`
	FastTrack int64 `json:"fast_track"`
	Total     int64 `json:"total"`
}

// PaperQuality selects a per-page print price tier for book jobs.
type PaperQuality string

const (
	PaperEco      PaperQuality = "eco"
	PaperStandard PaperQuality = "standard"
)

// CoverType selects a per-book cover price tier.
type CoverType string

const (
	CoverSoft CoverType = "soft"
	CoverHard CoverType = "hard"
)

// BookOption is a flat optional fee on a book print job.
type BookOption string

const (
	BookOptionISBN   BookOption = "isbn"
	BookOptionDesign BookOption = "design"
)

// BookJobConfig describes a book print job. Total cost is only defined when
// pages and copies are both positive and copies falls into a price bracket.
type BookJobConfig struct {
	Pages        int                 `json:"pages"`
	Copies       int                 `json:"copies"`
	PaperQuality PaperQuality        `json:"paper_quality"`
	CoverType    CoverType           `json:"cover_type"`
	Options      map[BookOption]bool `json:"options,omitempty"`
}

// BookCostBreakdown itemizes a book quote for receipt display. Every field
// is inspectable individually as well as through Total.
type BookCostBreakdown struct {
	Printing int64 `json:"printing"`
	Cover    int64 `json:"cover"`
	Binding  int64 `json:"binding"`
	ISBN     int64 `json:"isbn"`
	Design   int64 `json:"design"`
	Total    int64 `json:"total"`
}
