package integration

import (
	"net/http"
	"testing"

	"github.com/scholarpress/quire/internal/views"
)

func TestViews_AuthorDashboard(t *testing.T) {
	h := NewTestHarness(t)
	token := h.GenerateToken(AuthorClaims())

	h.Platform.OnOperation("listArticles").RespondWith(200, ListFixture(
		ArticleFixture("art-1", "user-author", "in_review"),
	))

	var dash views.AuthorDashboard
	h.AssertJSON(t, h.GET("/ui/views/author", token), http.StatusOK, &dash)
	if dash.Count != 1 || len(dash.Articles) != 1 {
		t.Fatalf("dashboard = %+v, want one article", dash)
	}
	if dash.Articles[0].ID != "art-1" {
		t.Errorf("article ID = %q, want art-1", dash.Articles[0].ID)
	}

	// Ownership scoping happens backend-side through the author filter.
	req := h.Platform.LastRequest("listArticles")
	if req == nil {
		t.Fatal("listArticles was not called")
	}
	if got := req.QueryParams["author_id"]; got != "user-author" {
		t.Errorf("author_id filter = %q, want user-author", got)
	}
}

func TestViews_ReviewerQueueRanksFastTrackFirst(t *testing.T) {
	h := NewTestHarness(t)
	token := h.GenerateToken(ReviewerClaims())

	regular := ArticleFixture("art-1", "a-1", "in_review")
	fast := ArticleFixture("art-2", "a-2", "with_editor")
	fast["fast_track"] = true
	done := ArticleFixture("art-3", "a-3", "published")

	h.Platform.OnOperation("listArticles").RespondWith(200, ListFixture(regular, fast, done))

	var out struct {
		Queue []struct {
			ID        string `json:"id"`
			FastTrack bool   `json:"fast_track"`
		} `json:"queue"`
	}
	h.AssertJSON(t, h.GET("/ui/views/reviewer", token), http.StatusOK, &out)

	if len(out.Queue) != 2 {
		t.Fatalf("len(queue) = %d, want 2 (published excluded)", len(out.Queue))
	}
	if out.Queue[0].ID != "art-2" || !out.Queue[0].FastTrack {
		t.Errorf("queue head = %+v, want the fast-track item", out.Queue[0])
	}
}

func TestViews_AdminDashboardScopedToManagedJournals(t *testing.T) {
	h := NewTestHarness(t)
	token := h.GenerateToken(JournalAdminClaims())

	mine := JournalFixture("j-1", "Acta Botanica", 200000, "pre_payment")
	other := JournalFixture("j-2", "Annals of Chemistry", 150000, "pre_payment")
	other["admin_id"] = "someone-else"

	h.Platform.OnOperation("listJournals").RespondWith(200, ListFixture(mine, other))
	h.Platform.OnOperation("listArticles").RespondWith(200, ListFixture(
		ArticleFixture("art-1", "a-1", "new"),
	))

	var dash views.AdminDashboard
	h.AssertJSON(t, h.GET("/ui/views/admin", token), http.StatusOK, &dash)

	if len(dash.Journals) != 1 || dash.Journals[0].ID != "j-1" {
		t.Fatalf("journals = %+v, want only the managed journal", dash.Journals)
	}
	if len(dash.Tabs) != len(views.TabOrder) {
		t.Fatalf("len(tabs) = %d, want %d", len(dash.Tabs), len(views.TabOrder))
	}
	if dash.Tabs[0].Name != views.TabNew || dash.Tabs[0].Count != 1 {
		t.Errorf("first tab = %+v, want New with one article", dash.Tabs[0])
	}
}

func TestViews_FinanceDashboardCountsCompletedRevenue(t *testing.T) {
	h := NewTestHarness(t)
	token := h.GenerateToken(AccountantClaims())

	h.Platform.OnOperation("listArticles").RespondWith(200, ListFixture(
		ArticleFixture("art-1", "a-1", "published"),
	))
	h.Platform.OnOperation("listTranslations").RespondWith(200, ListFixture())
	h.Platform.OnOperation("listUsers").RespondWith(200, ListFixture(
		map[string]any{"id": "u-1", "email": "one@example.com"},
		map[string]any{"id": "u-2", "email": "two@example.com"},
	))
	h.Payments.OnOperation("listTransactions").RespondWith(200, ListFixture(
		TransactionFixture("tx-1", 200000, "completed"),
		TransactionFixture("tx-2", 99000, "pending"),
	))

	var dash views.FinanceDashboard
	h.AssertJSON(t, h.GET("/ui/views/finance", token), http.StatusOK, &dash)

	if dash.ArticleCount != 1 || dash.UserCount != 2 {
		t.Errorf("counts = %+v", dash)
	}
	if dash.Revenue.Total != 200000 {
		t.Errorf("revenue total = %d, want 200000 (pending excluded)", dash.Revenue.Total)
	}
	if dash.Revenue.TransactionCount != 2 || dash.Revenue.CompletedCount != 1 {
		t.Errorf("revenue counts = %+v", dash.Revenue)
	}
}

func TestViews_MalformedListDegradesToEmpty(t *testing.T) {
	h := NewTestHarness(t)
	token := h.GenerateToken(AuthorClaims())

	// An unexpected wrapper yields an empty dashboard, not an error.
	h.Platform.OnOperation("listArticles").RespondWith(200, map[string]any{
		"unexpected": "shape",
	})

	var dash views.AuthorDashboard
	h.AssertJSON(t, h.GET("/ui/views/author", token), http.StatusOK, &dash)
	if dash.Count != 0 {
		t.Errorf("count = %d, want 0", dash.Count)
	}
}
