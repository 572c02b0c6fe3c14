package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/scholarpress/quire/internal/config"
	"github.com/scholarpress/quire/internal/wizard"
	"github.com/scholarpress/quire/model"
)

func paymentService(t *testing.T, handler http.HandlerFunc) (*PaymentService, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewPaymentService(testClient(t, srv.URL, config.RetryConfig{}, nil)), srv
}

func TestPaymentService_createTransaction(t *testing.T) {
	var gotBody map[string]any
	svc, _ := paymentService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"error_code":0,"transaction":{"id":"t-1","amount":250000,"service_type":"article","status":"pending"}}`))
	})

	tx, err := svc.CreateTransaction(context.Background(), testRctx(), 250000, model.ServiceArticle, "Submission: On Things")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.ID != "t-1" || tx.Amount != 250000 || tx.Status != model.TxPending {
		t.Errorf("tx = %+v", tx)
	}
	if gotBody["amount"] != float64(250000) || gotBody["service_type"] != "article" {
		t.Errorf("request body = %v", gotBody)
	}
}

func TestPaymentService_createTransactionInlineRecord(t *testing.T) {
	svc, _ := paymentService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error_code":0,"id":"t-2","amount":500000,"service_type":"writing","status":"pending"}`))
	})

	tx, err := svc.CreateTransaction(context.Background(), testRctx(), 500000, model.ServiceWriting, "Writing service")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tx.ID != "t-2" || tx.ServiceType != model.ServiceWriting {
		t.Errorf("tx = %+v", tx)
	}
}

func TestPaymentService_gatewayRejectionSurfacesNoteVerbatim(t *testing.T) {
	svc, _ := paymentService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error_code":-31050,"error_note":"Card is blocked by the issuing bank"}`))
	})

	err := svc.PayWithCardToken(context.Background(), testRctx(), "t-1", "tok-1")
	var env *model.ErrorEnvelope
	if !errors.As(err, &env) {
		t.Fatalf("err = %v", err)
	}
	if env.Code != model.ErrPaymentDeclined {
		t.Errorf("Code = %q", env.Code)
	}
	if env.Message != "Card is blocked by the issuing bank" {
		t.Errorf("Message = %q, gateway note must pass through unchanged", env.Message)
	}
}

func TestPaymentService_cardTokenFlow(t *testing.T) {
	var paths []string
	svc, _ := paymentService(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/api/cards/token":
			w.Write([]byte(`{"error_code":0,"token":"tok-9"}`))
		default:
			w.Write([]byte(`{"error_code":0}`))
		}
	})

	rctx := testRctx()
	token, err := svc.RequestCardToken(context.Background(), rctx, "t-1", wizard.CardDetails{Number: "8600000000000000", ExpMonth: "12", ExpYear: "28"})
	if err != nil {
		t.Fatalf("request token: %v", err)
	}
	if token != "tok-9" {
		t.Errorf("token = %q", token)
	}
	if err := svc.VerifyCardToken(context.Background(), rctx, token, "123456"); err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := svc.PayWithCardToken(context.Background(), rctx, "t-1", token); err != nil {
		t.Fatalf("pay: %v", err)
	}

	want := []string{"/api/cards/token", "/api/cards/verify", "/api/cards/pay"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v", paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestPaymentService_checkStatus(t *testing.T) {
	tests := []struct {
		name string
		body string
		want model.TransactionStatus
	}{
		{"completed", `{"error_code":0,"status":"completed"}`, model.TxCompleted},
		{"failed", `{"error_code":0,"status":"failed"}`, model.TxFailed},
		{"unknown degrades to pending", `{"error_code":0,"status":"weird"}`, model.TxPending},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := paymentService(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})
			got, err := svc.CheckStatus(context.Background(), testRctx(), "t-1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("status = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPaymentService_getPaymentURL(t *testing.T) {
	svc, _ := paymentService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("return_url") != "https://app.example.org/done" {
			t.Errorf("return_url = %q", r.URL.Query().Get("return_url"))
		}
		w.Write([]byte(`{"error_code":0,"payment_url":"https://gateway.example.org/pay/t-1"}`))
	})

	u, err := svc.GetPaymentURL(context.Background(), testRctx(), "t-1", "https://app.example.org/done")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u != "https://gateway.example.org/pay/t-1" {
		t.Errorf("url = %q", u)
	}
}
