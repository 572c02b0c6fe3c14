package backend

import (
	"context"
	"net/http"
	"net/url"

	"github.com/scholarpress/quire/internal/wizard"
	"github.com/scholarpress/quire/model"
)

// gatewayEnvelope is the payment gateway's uniform response wrapper. A zero
// error_code means success; any other value is a domain rejection whose note
// is shown to the user verbatim.
type gatewayEnvelope struct {
	ErrorCode int    `json:"error_code"`
	ErrorNote string `json:"error_note"`
}

func (e gatewayEnvelope) err() error {
	if e.ErrorCode == 0 {
		return nil
	}
	return model.NewPaymentDeclinedError(e.ErrorNote)
}

// PaymentService drives the payment gateway: transaction management plus the
// card-token flow.
type PaymentService struct {
	client *Client
}

func NewPaymentService(client *Client) *PaymentService {
	return &PaymentService{client: client}
}

// CreateTransaction opens a pending transaction for the given amount.
func (s *PaymentService) CreateTransaction(ctx context.Context, rctx *model.RequestContext, amount int64, serviceType model.ServiceType, description string) (model.Transaction, error) {
	body := map[string]any{
		"amount":       amount,
		"service_type": serviceType,
		"description":  description,
	}
	resp, err := s.client.Do(ctx, rctx, http.MethodPost, "/api/transactions", nil, body)
	if err != nil {
		return model.Transaction{}, err
	}

	var envelope struct {
		gatewayEnvelope
		Transaction map[string]any `json:"transaction"`
	}
	if err := resp.Decode(&envelope); err != nil {
		return model.Transaction{}, model.NewBackendUnavailableError()
	}
	if err := envelope.err(); err != nil {
		return model.Transaction{}, err
	}

	// Some gateway endpoints nest the record, others inline it.
	if envelope.Transaction != nil {
		return TransactionFromMap(envelope.Transaction), nil
	}
	var m map[string]any
	if err := resp.Decode(&m); err != nil {
		return model.Transaction{}, model.NewBackendUnavailableError()
	}
	return TransactionFromMap(m), nil
}

// GetPaymentURL returns the hosted checkout URL for a transaction.
func (s *PaymentService) GetPaymentURL(ctx context.Context, rctx *model.RequestContext, transactionID, returnURL string) (string, error) {
	q := url.Values{}
	q.Set("return_url", returnURL)
	resp, err := s.client.Do(ctx, rctx, http.MethodGet, "/api/transactions/"+url.PathEscape(transactionID)+"/payment-url", q, nil)
	if err != nil {
		return "", err
	}
	var envelope struct {
		gatewayEnvelope
		PaymentURL string `json:"payment_url"`
	}
	if err := resp.Decode(&envelope); err != nil {
		return "", model.NewBackendUnavailableError()
	}
	if err := envelope.err(); err != nil {
		return "", err
	}
	return envelope.PaymentURL, nil
}

// CheckStatus returns the settlement state of a transaction.
func (s *PaymentService) CheckStatus(ctx context.Context, rctx *model.RequestContext, transactionID string) (model.TransactionStatus, error) {
	resp, err := s.client.Do(ctx, rctx, http.MethodGet, "/api/transactions/"+url.PathEscape(transactionID)+"/status", nil, nil)
	if err != nil {
		return "", err
	}
	var envelope struct {
		gatewayEnvelope
		Status string `json:"status"`
	}
	if err := resp.Decode(&envelope); err != nil {
		return "", model.NewBackendUnavailableError()
	}
	if err := envelope.err(); err != nil {
		return "", err
	}
	switch model.TransactionStatus(envelope.Status) {
	case model.TxPending, model.TxCompleted, model.TxFailed:
		return model.TransactionStatus(envelope.Status), nil
	}
	return model.TxPending, nil
}

// RequestCardToken registers card details with the gateway and returns the
// token the rest of the card flow operates on. The card fields pass through
// and are never logged or stored.
func (s *PaymentService) RequestCardToken(ctx context.Context, rctx *model.RequestContext, transactionID string, card wizard.CardDetails) (string, error) {
	body := map[string]any{
		"transaction_id": transactionID,
		"card_number":    card.Number,
		"exp_month":      card.ExpMonth,
		"exp_year":       card.ExpYear,
	}
	resp, err := s.client.Do(ctx, rctx, http.MethodPost, "/api/cards/token", nil, body)
	if err != nil {
		return "", err
	}
	var envelope struct {
		gatewayEnvelope
		Token string `json:"token"`
	}
	if err := resp.Decode(&envelope); err != nil {
		return "", model.NewBackendUnavailableError()
	}
	if err := envelope.err(); err != nil {
		return "", err
	}
	return envelope.Token, nil
}

// VerifyCardToken confirms the SMS code sent to the cardholder.
func (s *PaymentService) VerifyCardToken(ctx context.Context, rctx *model.RequestContext, token, smsCode string) error {
	body := map[string]any{
		"token":    token,
		"sms_code": smsCode,
	}
	resp, err := s.client.Do(ctx, rctx, http.MethodPost, "/api/cards/verify", nil, body)
	if err != nil {
		return err
	}
	var envelope gatewayEnvelope
	if err := resp.Decode(&envelope); err != nil {
		return model.NewBackendUnavailableError()
	}
	return envelope.err()
}

// PayWithCardToken charges a verified token against a transaction.
func (s *PaymentService) PayWithCardToken(ctx context.Context, rctx *model.RequestContext, transactionID, token string) error {
	body := map[string]any{
		"transaction_id": transactionID,
		"token":          token,
	}
	resp, err := s.client.Do(ctx, rctx, http.MethodPost, "/api/cards/pay", nil, body)
	if err != nil {
		return err
	}
	var envelope gatewayEnvelope
	if err := resp.Decode(&envelope); err != nil {
		return model.NewBackendUnavailableError()
	}
	return envelope.err()
}
