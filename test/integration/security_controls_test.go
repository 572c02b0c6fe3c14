package integration

import (
	"net/http"
	"testing"
)

func TestSecurity_MissingTokenIsRejected(t *testing.T) {
	h := NewTestHarness(t)

	resp := h.POST("/ui/wizard/start", nil, "")
	var body errorBody
	h.AssertJSON(t, resp, http.StatusUnauthorized, &body)
	if body.Error.Code != "UNAUTHORIZED" {
		t.Errorf("error code = %q, want UNAUTHORIZED", body.Error.Code)
	}
}

func TestSecurity_ExpiredTokenIsRejected(t *testing.T) {
	h := NewTestHarness(t)
	token := h.GenerateExpiredToken(AuthorClaims())

	resp := h.POST("/ui/wizard/start", nil, token)
	var body errorBody
	h.AssertJSON(t, resp, http.StatusUnauthorized, &body)
	if body.Error.Message != "Token expired" {
		t.Errorf("message = %q, want token expiry message", body.Error.Message)
	}
}

func TestSecurity_GarbageTokenIsRejected(t *testing.T) {
	h := NewTestHarness(t)

	resp := h.POST("/ui/wizard/start", nil, "not.a.jwt")
	h.AssertStatus(t, resp, http.StatusUnauthorized)
	resp.Body.Close()
}

func TestSecurity_CapabilityGuards(t *testing.T) {
	h := NewTestHarness(t)

	cases := []struct {
		name   string
		method string
		path   string
		claims TestClaims
		want   int
	}{
		{"reviewer cannot start wizard", "POST", "/ui/wizard/start", ReviewerClaims(), http.StatusForbidden},
		{"author cannot view admin dashboard", "GET", "/ui/views/admin", AuthorClaims(), http.StatusForbidden},
		{"author cannot view finance dashboard", "GET", "/ui/views/finance", AuthorClaims(), http.StatusForbidden},
		{"reviewer cannot view author dashboard", "GET", "/ui/views/author", ReviewerClaims(), http.StatusForbidden},
		{"accountant cannot view reviewer queue", "GET", "/ui/views/reviewer", AccountantClaims(), http.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			token := h.GenerateToken(tc.claims)
			var resp *http.Response
			if tc.method == "GET" {
				resp = h.GET(tc.path, token)
			} else {
				resp = h.POST(tc.path, nil, token)
			}
			var body errorBody
			h.AssertJSON(t, resp, tc.want, &body)
			if body.Error.Code != "FORBIDDEN" {
				t.Errorf("error code = %q, want FORBIDDEN", body.Error.Code)
			}
		})
	}
}

func TestSecurity_SessionsAreScopedToSubject(t *testing.T) {
	h := NewTestHarness(t)

	owner := h.GenerateToken(AuthorClaims())
	sessionID := startWizard(t, h, owner)

	other := h.GenerateToken(TestClaims{
		SubjectID: "user-other",
		TenantID:  "pressa",
		Email:     "other@pressa.example.com",
		Roles:     []string{"author"},
	})

	resp := h.GET("/ui/wizard/"+sessionID, other)
	var body errorBody
	h.AssertJSON(t, resp, http.StatusNotFound, &body)
	if body.Error.Code != "WIZARD_NOT_FOUND" {
		t.Errorf("error code = %q, want WIZARD_NOT_FOUND", body.Error.Code)
	}
}

func TestSecurity_SessionsAreScopedToTenant(t *testing.T) {
	h := NewTestHarness(t)

	owner := h.GenerateToken(AuthorClaims())
	sessionID := startWizard(t, h, owner)

	otherTenant := h.GenerateToken(TestClaims{
		SubjectID: "user-author",
		TenantID:  "rival-press",
		Email:     "author@rival.example.com",
		Roles:     []string{"author"},
	})

	h.AssertStatus(t, h.GET("/ui/wizard/"+sessionID, otherTenant), http.StatusNotFound)
}

func TestSecurity_ResponseHeaders(t *testing.T) {
	h := NewTestHarness(t)
	token := h.GenerateToken(AuthorClaims())

	resp := h.POST("/ui/wizard/start", nil, token)
	defer resp.Body.Close()

	headers := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
	}
	for name, want := range headers {
		if got := resp.Header.Get(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if resp.Header.Get("X-Correlation-Id") == "" {
		t.Error("X-Correlation-Id header is missing")
	}
}

func TestSecurity_CORSPreflight(t *testing.T) {
	h := NewTestHarness(t)

	req, err := http.NewRequest("OPTIONS", h.BaseURL()+"/ui/wizard/start", nil)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight request: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}

	// Disallowed origins get no CORS grant.
	req2, _ := http.NewRequest("OPTIONS", h.BaseURL()+"/ui/wizard/start", nil)
	req2.Header.Set("Origin", "https://evil.example.com")
	req2.Header.Set("Access-Control-Request-Method", "POST")
	resp2, err := http.DefaultClient.Do(req2)
	if err != nil {
		t.Fatalf("preflight request: %v", err)
	}
	defer resp2.Body.Close()
	if got := resp2.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed origin got Access-Control-Allow-Origin = %q", got)
	}
}

func TestSecurity_HealthEndpointsArePublic(t *testing.T) {
	h := NewTestHarness(t)

	for _, path := range []string{"/ui/health", "/ui/ready"} {
		resp := h.GET(path, "")
		h.AssertStatus(t, resp, http.StatusOK)
		resp.Body.Close()
	}
}
