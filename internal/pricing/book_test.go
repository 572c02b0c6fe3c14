package pricing

import (
	"testing"

	"github.com/scholarpress/quire/model"
)

func bookCfg(pages, copies int) model.BookJobConfig {
	return model.BookJobConfig{
		Pages:        pages,
		Copies:       copies,
		PaperQuality: model.PaperStandard,
		CoverType:    model.CoverSoft,
	}
}

func TestBookTotal_smallRun(t *testing.T) {
	b := BookTotal(bookCfg(100, 10))
	// Tier 1: 300/page, 7000 soft cover, 3000 binding.
	if b.Printing != 300*100*10 {
		t.Fatalf("printing = %d", b.Printing)
	}
	if b.Cover != 7000*10 {
		t.Fatalf("cover = %d", b.Cover)
	}
	if b.Binding != 3000*10 {
		t.Fatalf("binding = %d", b.Binding)
	}
	if b.Total != b.Printing+b.Cover+b.Binding {
		t.Fatalf("total = %d, items sum to %d", b.Total, b.Printing+b.Cover+b.Binding)
	}
}

func TestBookTotal_perUnitRateDropsByTier(t *testing.T) {
	// 10, 11, 101 and 301 copies land in successive brackets.
	counts := []int{10, 11, 101, 301}
	prevUnit := int64(1 << 40)
	for _, copies := range counts {
		b := BookTotal(bookCfg(100, copies))
		unit := b.Total / int64(copies)
		if unit >= prevUnit {
			t.Fatalf("%d copies: per-unit %d did not drop below %d", copies, unit, prevUnit)
		}
		prevUnit = unit
	}
}

func TestBookTotal_bracketSaturation(t *testing.T) {
	// Above the last bracket everything scales linearly at the last
	// bracket's rates: 5000 copies costs exactly 5x 1000 copies.
	at1000 := BookTotal(bookCfg(200, 1000))
	at5000 := BookTotal(bookCfg(200, 5000))
	if at5000.Total != 5*at1000.Total {
		t.Fatalf("5000 copies = %d, want %d", at5000.Total, 5*at1000.Total)
	}
}

func TestBookTotal_optionFeesAreFlat(t *testing.T) {
	cfg := bookCfg(100, 500)
	cfg.Options = map[model.BookOption]bool{
		model.BookOptionISBN:   true,
		model.BookOptionDesign: true,
	}
	with := BookTotal(cfg)
	without := BookTotal(bookCfg(100, 500))
	if with.ISBN != ISBNFee || with.Design != DesignFee {
		t.Fatalf("fees = %d / %d", with.ISBN, with.Design)
	}
	if with.Total-without.Total != ISBNFee+DesignFee {
		t.Fatalf("option delta = %d", with.Total-without.Total)
	}
}

func TestBookTotal_zeroGuards(t *testing.T) {
	withOptions := bookCfg(0, 50)
	withOptions.Options = map[model.BookOption]bool{
		model.BookOptionISBN:   true,
		model.BookOptionDesign: true,
	}

	for _, cfg := range []model.BookJobConfig{
		bookCfg(0, 100),
		bookCfg(100, 0),
		bookCfg(-5, -5),
		// Option fees must not leak through on an unprintable job.
		withOptions,
	} {
		b := BookTotal(cfg)
		if b != (model.BookCostBreakdown{}) {
			t.Fatalf("pages=%d copies=%d: breakdown = %+v, want all zero", cfg.Pages, cfg.Copies, b)
		}
	}
}

func TestBookTotal_hardCoverCostsMore(t *testing.T) {
	soft := bookCfg(100, 50)
	hard := bookCfg(100, 50)
	hard.CoverType = model.CoverHard
	if BookTotal(hard).Total <= BookTotal(soft).Total {
		t.Fatal("hard cover should cost more than soft")
	}
}

func TestBookTotal_ecoPaperCostsLess(t *testing.T) {
	std := bookCfg(100, 50)
	eco := bookCfg(100, 50)
	eco.PaperQuality = model.PaperEco
	if BookTotal(eco).Total >= BookTotal(std).Total {
		t.Fatal("eco paper should cost less than standard")
	}
}
