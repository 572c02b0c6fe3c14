package integration

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/scholarpress/quire/internal/wizard"
	"github.com/scholarpress/quire/model"
)

// errorBody is the wire shape of an error response.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details []struct {
			Field string `json:"field"`
			Code  string `json:"code"`
		} `json:"details"`
	} `json:"error"`
}

// startWizard opens a new session and returns its ID.
func startWizard(t *testing.T, h *TestHarness, token string) string {
	t.Helper()
	var session model.WizardSession
	h.AssertJSON(t, h.POST("/ui/wizard/start", nil, token), http.StatusCreated, &session)
	if session.ID == "" {
		t.Fatal("session ID is empty")
	}
	if session.Status != model.SessionStatusActive {
		t.Fatalf("session status = %q, want active", session.Status)
	}
	return session.ID
}

// driveToReview walks a publish draft from step one to the review step.
func driveToReview(t *testing.T, h *TestHarness, token, sessionID string) {
	t.Helper()
	base := "/ui/wizard/" + sessionID

	h.AssertStatus(t, h.POST(base+"/draft", map[string]any{"journal_id": "j-1"}, token), http.StatusOK)
	h.AssertStatus(t, h.POST(base+"/advance", nil, token), http.StatusOK)
	h.AssertStatus(t, h.POST(base+"/draft", map[string]any{"submission_type": "publish"}, token), http.StatusOK)
	h.AssertStatus(t, h.POST(base+"/advance", nil, token), http.StatusOK)
	h.AssertStatus(t, h.POST(base+"/draft", map[string]any{"title": "On Seed Dormancy", "page_count": 12}, token), http.StatusOK)
	h.AssertStatus(t, h.POSTFile(base+"/draft", "main_file", "paper.pdf", []byte("%PDF-1.4 body"), token), http.StatusOK)
	h.AssertStatus(t, h.POST(base+"/advance", nil, token), http.StatusOK)
	h.AssertStatus(t, h.POST(base+"/advance", nil, token), http.StatusOK)
}

func TestWizardLifecycle_PrePaymentCardFlow(t *testing.T) {
	h := NewTestHarness(t)
	token := h.GenerateToken(AuthorClaims())

	h.Platform.OnOperation("getJournal").
		RespondWith(200, JournalFixture("j-1", "Acta Botanica", 200000, "pre_payment"))
	h.Payments.OnOperation("createTransaction").
		RespondWith(200, GatewayOK(map[string]any{"transaction": TransactionFixture("tx-1", 200000, "pending")}))
	h.Payments.OnOperation("cardToken").
		RespondWith(200, GatewayOK(map[string]any{"token": "tok-1"}))
	h.Payments.OnOperation("cardVerify").RespondWith(200, GatewayOK(nil))
	h.Payments.OnOperation("cardPay").RespondWith(200, GatewayOK(nil))
	h.Platform.OnOperation("createArticle").
		RespondWith(201, ArticleFixture("art-1", "user-author", "new"))

	sessionID := startWizard(t, h, token)
	base := "/ui/wizard/" + sessionID
	driveToReview(t, h, token, sessionID)

	var quote model.PricingQuote
	h.AssertJSON(t, h.GET(base+"/quote", token), http.StatusOK, &quote)
	if quote.Base != 200000 || quote.Total != 200000 {
		t.Errorf("quote = %+v, want base and total 200000", quote)
	}

	var outcome wizard.ConfirmOutcome
	h.AssertJSON(t, h.POST(base+"/confirm", nil, token), http.StatusOK, &outcome)
	if !outcome.PaymentDue || outcome.Submitted {
		t.Fatalf("confirm outcome = %+v, want payment due", outcome)
	}
	if outcome.Session.Card.Stage != model.CardStageEnterCard {
		t.Fatalf("card stage = %q, want enter_card", outcome.Session.Card.Stage)
	}

	created := h.Payments.LastRequest("createTransaction")
	if created == nil {
		t.Fatal("createTransaction was not called")
	}
	if amount, _ := created.Body["amount"].(float64); int64(amount) != 200000 {
		t.Errorf("transaction amount = %v, want 200000", created.Body["amount"])
	}

	var session model.WizardSession
	h.AssertJSON(t, h.POST(base+"/card", map[string]any{
		"card_number": "8600123412341234",
		"exp_month":   "12",
		"exp_year":    "30",
	}, token), http.StatusOK, &session)
	if session.Card.Stage != model.CardStageEnterCode {
		t.Fatalf("card stage = %q, want enter_code", session.Card.Stage)
	}

	h.AssertJSON(t, h.POST(base+"/card/code", map[string]any{"sms_code": "123456"}, token), http.StatusOK, &outcome)
	if !outcome.Submitted {
		t.Fatalf("outcome = %+v, want submitted", outcome)
	}
	if outcome.Article.ID != "art-1" {
		t.Errorf("article ID = %q, want art-1", outcome.Article.ID)
	}
	if outcome.Session.Status != model.SessionStatusSubmitted {
		t.Errorf("session status = %q, want submitted", outcome.Session.Status)
	}

	h.Payments.AssertCalled(t, "cardPay", 1)

	// The submission create carries the settled transaction reference.
	submitted := h.Platform.LastRequest("createArticle")
	if submitted == nil {
		t.Fatal("createArticle was not called")
	}
	if !strings.Contains(string(submitted.RawBody), "tx-1") {
		t.Error("createArticle request does not reference the paid transaction")
	}
}

func TestWizardLifecycle_PostPaymentSkipsCharge(t *testing.T) {
	h := NewTestHarness(t)
	token := h.GenerateToken(AuthorClaims())

	h.Platform.OnOperation("getJournal").
		RespondWith(200, JournalFixture("j-1", "Acta Botanica", 150000, "post_payment"))
	h.Platform.OnOperation("createArticle").
		RespondWith(201, ArticleFixture("art-2", "user-author", "new"))

	sessionID := startWizard(t, h, token)
	driveToReview(t, h, token, sessionID)

	var outcome wizard.ConfirmOutcome
	h.AssertJSON(t, h.POST("/ui/wizard/"+sessionID+"/confirm", nil, token), http.StatusOK, &outcome)
	if !outcome.Submitted || outcome.PaymentDue {
		t.Fatalf("outcome = %+v, want direct submission", outcome)
	}

	h.Payments.AssertNotCalled(t, "createTransaction")
	h.Payments.AssertNotCalled(t, "cardPay")
}

func TestWizardLifecycle_AdvanceGuardBlocksEmptyJournal(t *testing.T) {
	h := NewTestHarness(t)
	token := h.GenerateToken(AuthorClaims())

	sessionID := startWizard(t, h, token)

	resp := h.POST("/ui/wizard/"+sessionID+"/advance", nil, token)
	var body errorBody
	h.AssertJSON(t, resp, http.StatusUnprocessableEntity, &body)
	if body.Error.Code != "INVALID_TRANSITION" {
		t.Errorf("error code = %q, want INVALID_TRANSITION", body.Error.Code)
	}
}

func TestWizardLifecycle_CancelClosesSession(t *testing.T) {
	h := NewTestHarness(t)
	token := h.GenerateToken(AuthorClaims())

	sessionID := startWizard(t, h, token)
	base := "/ui/wizard/" + sessionID

	h.AssertStatus(t, h.POST(base+"/cancel", map[string]any{"reason": "changed my mind"}, token), http.StatusOK)

	resp := h.POST(base+"/advance", nil, token)
	var body errorBody
	h.AssertJSON(t, resp, http.StatusConflict, &body)
	if body.Error.Code != "WIZARD_NOT_ACTIVE" {
		t.Errorf("error code = %q, want WIZARD_NOT_ACTIVE", body.Error.Code)
	}
}

func TestWizardLifecycle_UnknownSessionIs404(t *testing.T) {
	h := NewTestHarness(t)
	token := h.GenerateToken(AuthorClaims())

	resp := h.GET("/ui/wizard/no-such-session", token)
	var body errorBody
	h.AssertJSON(t, resp, http.StatusNotFound, &body)
	if body.Error.Code != "WIZARD_NOT_FOUND" {
		t.Errorf("error code = %q, want WIZARD_NOT_FOUND", body.Error.Code)
	}
}

func TestWizardLifecycle_DescribeReportsProgress(t *testing.T) {
	h := NewTestHarness(t)
	token := h.GenerateToken(AuthorClaims())

	h.Platform.OnOperation("getJournal").
		RespondWith(200, JournalFixture("j-1", "Acta Botanica", 200000, "pre_payment"))

	sessionID := startWizard(t, h, token)
	base := "/ui/wizard/" + sessionID

	h.AssertStatus(t, h.POST(base+"/draft", map[string]any{"journal_id": "j-1"}, token), http.StatusOK)
	h.AssertStatus(t, h.POST(base+"/advance", nil, token), http.StatusOK)

	var descriptor model.WizardDescriptor
	h.AssertJSON(t, h.GET(base, token), http.StatusOK, &descriptor)
	if len(descriptor.Steps) != 5 {
		t.Fatalf("len(steps) = %d, want 5", len(descriptor.Steps))
	}
	if descriptor.Steps[0].Status != "completed" {
		t.Errorf("step 1 status = %q, want completed", descriptor.Steps[0].Status)
	}
	if descriptor.Steps[1].Status != "in_progress" {
		t.Errorf("step 2 status = %q, want in_progress", descriptor.Steps[1].Status)
	}
	if len(descriptor.History) == 0 {
		t.Error("descriptor history is empty")
	}
}

func TestBookQuoteIsComputedLocally(t *testing.T) {
	h := NewTestHarness(t)
	token := h.GenerateToken(AuthorClaims())

	var quote struct {
		Printing int64 `json:"printing"`
		Cover    int64 `json:"cover"`
		Binding  int64 `json:"binding"`
		ISBN     int64 `json:"isbn"`
		Total    int64 `json:"total"`
	}
	h.AssertJSON(t, h.POST("/ui/book-quote", map[string]any{
		"pages":         100,
		"copies":        50,
		"paper_quality": "eco",
		"cover_type":    "soft",
		"options":       map[string]bool{"isbn": true},
	}, token), http.StatusOK, &quote)

	if quote.Printing != 750000 {
		t.Errorf("printing = %d, want 750000", quote.Printing)
	}
	if quote.ISBN != 300000 {
		t.Errorf("isbn = %d, want 300000", quote.ISBN)
	}

	// Pricing never leaves the process.
	h.Platform.AssertNotCalled(t, "listJournals")
	h.Payments.AssertNotCalled(t, "createTransaction")
}

func TestWizardLifecycle_SuggestFillsMetadata(t *testing.T) {
	h := NewTestHarness(t)
	token := h.GenerateToken(AuthorClaims())

	h.Platform.OnOperation("getJournal").
		RespondWith(200, JournalFixture("j-1", "Acta Botanica", 200000, "pre_payment"))
	h.AI.OnOperation("suggestAbstract").RespondWith(200, map[string]any{
		"abstract": "A study of seed dormancy.",
		"keywords": []string{"seeds", "dormancy"},
	})

	sessionID := startWizard(t, h, token)
	base := fmt.Sprintf("/ui/wizard/%s", sessionID)

	h.AssertStatus(t, h.POST(base+"/draft", map[string]any{"journal_id": "j-1"}, token), http.StatusOK)
	h.AssertStatus(t, h.POST(base+"/advance", nil, token), http.StatusOK)
	h.AssertStatus(t, h.POST(base+"/draft", map[string]any{"submission_type": "publish"}, token), http.StatusOK)
	h.AssertStatus(t, h.POST(base+"/advance", nil, token), http.StatusOK)
	h.AssertStatus(t, h.POSTFile(base+"/draft", "main_file", "paper.pdf", []byte("%PDF-1.4 body"), token), http.StatusOK)

	var out struct {
		Abstract string   `json:"abstract"`
		Keywords []string `json:"keywords"`
	}
	h.AssertJSON(t, h.POST(base+"/suggest", nil, token), http.StatusOK, &out)
	if out.Abstract != "A study of seed dormancy." {
		t.Errorf("abstract = %q", out.Abstract)
	}
	if len(out.Keywords) != 2 {
		t.Errorf("keywords = %v, want 2 entries", out.Keywords)
	}
}
