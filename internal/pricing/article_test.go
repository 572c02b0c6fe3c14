package pricing

import (
	"testing"

	"github.com/scholarpress/quire/model"
)

func fixedJournal(fee int64) model.Journal {
	return model.Journal{ID: "j-fixed", PricingType: model.PricingFixed, PublicationFee: fee}
}

func perPageJournal(rate int64) model.Journal {
	return model.Journal{ID: "j-pp", PricingType: model.PricingPerPage, PricePerPage: rate}
}

func TestArticleTotal_fixedJournal(t *testing.T) {
	got := ArticleTotal(model.SubmissionPublish, fixedJournal(200000), 12, nil)
	if got != 200000 {
		t.Fatalf("total = %d, want 200000", got)
	}
}

func TestArticleTotal_fixedJournalFastTrack(t *testing.T) {
	addOns := model.AddOnSet{model.AddOnFastTrack: true}
	got := ArticleTotal(model.SubmissionPublish, fixedJournal(200000), 12, addOns)
	if got != 250000 {
		t.Fatalf("total = %d, want 250000", got)
	}
}

func TestArticleTotal_perPageJournal(t *testing.T) {
	got := ArticleTotal(model.SubmissionPublish, perPageJournal(15000), 12, nil)
	if got != 180000 {
		t.Fatalf("total = %d, want 180000", got)
	}
}

func TestArticleTotal_writeService(t *testing.T) {
	// The writing service ignores the journal's fee structure entirely.
	for _, j := range []model.Journal{fixedJournal(999999), perPageJournal(15000)} {
		if got := ArticleTotal(model.SubmissionWrite, j, 40, nil); got != WriteServiceFee {
			t.Fatalf("journal %s: total = %d, want %d", j.ID, got, WriteServiceFee)
		}
	}
}

func TestArticleTotal_addOnIsAdditive(t *testing.T) {
	cases := []struct {
		name    string
		st      model.SubmissionType
		journal model.Journal
		pages   int
	}{
		{"fixed", model.SubmissionPublish, fixedJournal(200000), 10},
		{"per_page", model.SubmissionPublish, perPageJournal(15000), 10},
		{"write", model.SubmissionWrite, fixedJournal(0), 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plain := ArticleTotal(tc.st, tc.journal, tc.pages, nil)
			fast := ArticleTotal(tc.st, tc.journal, tc.pages, model.AddOnSet{model.AddOnFastTrack: true})
			if fast-plain != FastTrackFee {
				t.Fatalf("surcharge = %d, want %d", fast-plain, FastTrackFee)
			}
		})
	}
}

func TestArticleTotal_perPageMonotonicInPages(t *testing.T) {
	j := perPageJournal(15000)
	prev := int64(0)
	for pages := 1; pages <= 50; pages++ {
		got := ArticleTotal(model.SubmissionPublish, j, pages, nil)
		if got < prev {
			t.Fatalf("total decreased at %d pages: %d < %d", pages, got, prev)
		}
		prev = got
	}
}

func TestArticleTotal_zeroGuards(t *testing.T) {
	cases := []struct {
		name    string
		journal model.Journal
		pages   int
	}{
		{"negative fixed fee", fixedJournal(-500), 10},
		{"zero per-page rate", perPageJournal(0), 10},
		{"negative pages", perPageJournal(15000), -3},
		{"zero pages", perPageJournal(15000), 0},
		{"unknown pricing type", model.Journal{PricingType: "bulk"}, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ArticleTotal(model.SubmissionPublish, tc.journal, tc.pages, nil); got != 0 {
				t.Fatalf("total = %d, want 0", got)
			}
		})
	}
}

func TestArticleQuote_itemization(t *testing.T) {
	q := ArticleQuote(model.SubmissionPublish, fixedJournal(200000), 0, model.AddOnSet{model.AddOnFastTrack: true})
	if q.Base != 200000 || q.FastTrack != FastTrackFee || q.Total != 250000 {
		t.Fatalf("quote = %+v", q)
	}
	if q.Total != q.Base+q.FastTrack {
		t.Fatalf("total %d does not match items %d + %d", q.Total, q.Base, q.FastTrack)
	}
}
