package pricing

import "github.com/scholarpress/quire/model"

// Fixed book-service fees in whole currency units.
const (
	ISBNFee   int64 = 300000
	DesignFee int64 = 500000
)

// copyTier is a print-run volume bracket. Per-unit rates drop as the
// run grows; runs above the last bracket use the last bracket's rates.
type copyTier struct {
	minCopies int
	maxCopies int
}

var copyTiers = []copyTier{
	{1, 10},
	{11, 100},
	{101, 300},
	{301, 1000},
}

// pricePerPage[tier][quality] in currency units per page per copy.
var pricePerPage = []map[model.PaperQuality]int64{
	{model.PaperEco: 200, model.PaperStandard: 300},
	{model.PaperEco: 150, model.PaperStandard: 250},
	{model.PaperEco: 120, model.PaperStandard: 200},
	{model.PaperEco: 100, model.PaperStandard: 160},
}

// coverPrice[tier][cover] in currency units per copy.
var coverPrice = []map[model.CoverType]int64{
	{model.CoverSoft: 7000, model.CoverHard: 20000},
	{model.CoverSoft: 6000, model.CoverHard: 17000},
	{model.CoverSoft: 5000, model.CoverHard: 15000},
	{model.CoverSoft: 4000, model.CoverHard: 12000},
}

// bindingPrice[tier] in currency units per copy.
var bindingPrice = []int64{3000, 2500, 2000, 1500}

// tierIndex maps a copy count to its bracket. Counts beyond the last
// bracket saturate; counts below one are the caller's zero-guard problem
// and map to the first bracket.
func tierIndex(copies int) int {
	for i, t := range copyTiers {
		if copies >= t.minCopies && copies <= t.maxCopies {
			return i
		}
	}
	return len(copyTiers) - 1
}

// BookTotal itemizes the cost of a book print job. A non-positive page or
// copy count means there is nothing to print, so the whole breakdown is
// zero, flat option fees included.
func BookTotal(cfg model.BookJobConfig) model.BookCostBreakdown {
	var b model.BookCostBreakdown
	if cfg.Pages <= 0 || cfg.Copies <= 0 {
		return b
	}

	if cfg.Options[model.BookOptionISBN] {
		b.ISBN = ISBNFee
	}
	if cfg.Options[model.BookOptionDesign] {
		b.Design = DesignFee
	}

	tier := tierIndex(cfg.Copies)
	pages := int64(cfg.Pages)
	copies := int64(cfg.Copies)

	b.Printing = pricePerPage[tier][cfg.PaperQuality] * pages * copies
	b.Cover = coverPrice[tier][cfg.CoverType] * copies
	b.Binding = bindingPrice[tier] * copies

	b.Total = b.Printing + b.Cover + b.Binding + b.ISBN + b.Design
	return b
}
