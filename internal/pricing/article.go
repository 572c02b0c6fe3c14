// Package pricing computes submission and book-printing costs. Everything
// here is a pure function over fixed configuration tables: no I/O, no side
// effects, and no failure modes. Malformed numeric inputs degrade to zero
// so a bad journal record can never halt the wizard.
package pricing

import "github.com/scholarpress/quire/model"

// Fees in whole currency units.
const (
	// WriteServiceFee is the flat cost of the article-writing service,
	// independent of journal and page count.
	WriteServiceFee int64 = 500000

	// FastTrackFee is the fixed surcharge for expedited review.
	FastTrackFee int64 = 50000
)

// addOnFees maps each add-on to its fixed surcharge.
var addOnFees = map[model.AddOn]int64{
	model.AddOnFastTrack: FastTrackFee,
}

// ArticleTotal returns the total cost of an article submission in whole
// currency units. The result is never negative.
func ArticleTotal(
	submissionType model.SubmissionType,
	journal model.Journal,
	pageCount int,
	addOns model.AddOnSet,
) int64 {
	var base int64
	switch submissionType {
	case model.SubmissionWrite:
		base = WriteServiceFee
	case model.SubmissionPublish:
		base = publishBase(journal, pageCount)
	}

	total := base
	for addOn, enabled := range addOns {
		if !enabled {
			continue
		}
		total += addOnFees[addOn]
	}

	if total < 0 {
		return 0
	}
	return total
}

// ArticleQuote returns the itemized quote for the same inputs.
func ArticleQuote(
	submissionType model.SubmissionType,
	journal model.Journal,
	pageCount int,
	addOns model.AddOnSet,
) model.PricingQuote {
	var base int64
	switch submissionType {
	case model.SubmissionWrite:
		base = WriteServiceFee
	case model.SubmissionPublish:
		base = publishBase(journal, pageCount)
	}

	var fastTrack int64
	if addOns[model.AddOnFastTrack] {
		fastTrack = FastTrackFee
	}

	return model.PricingQuote{
		Base:      base,
		FastTrack: fastTrack,
		Total:     base + fastTrack,
	}
}

// publishBase computes the journal-dependent base fee. Absent or negative
// fee fields are treated as zero rather than propagated.
func publishBase(journal model.Journal, pageCount int) int64 {
	switch journal.PricingType {
	case model.PricingFixed:
		if journal.PublicationFee < 0 {
			return 0
		}
		return journal.PublicationFee
	case model.PricingPerPage:
		if journal.PricePerPage <= 0 || pageCount <= 0 {
			return 0
		}
		return journal.PricePerPage * int64(pageCount)
	default:
		return 0
	}
}
