package backend

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/scholarpress/quire/model"
)

// ListFilters are the common query filters for platform list endpoints.
// Zero values are omitted from the query string.
type ListFilters struct {
	Status    string
	JournalID string
	AuthorID  string
	Limit     int
	Offset    int
}

func (f ListFilters) values() url.Values {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.JournalID != "" {
		q.Set("journal_id", f.JournalID)
	}
	if f.AuthorID != "" {
		q.Set("author_id", f.AuthorID)
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	if f.Offset > 0 {
		q.Set("offset", strconv.Itoa(f.Offset))
	}
	return q
}

// JournalService reads journal records from the platform backend.
type JournalService struct {
	client *Client
}

func NewJournalService(client *Client) *JournalService {
	return &JournalService{client: client}
}

// Journal fetches a single journal by id.
func (s *JournalService) Journal(ctx context.Context, rctx *model.RequestContext, journalID string) (model.Journal, error) {
	resp, err := s.client.Do(ctx, rctx, http.MethodGet, "/api/journals/"+url.PathEscape(journalID), nil, nil)
	if err != nil {
		return model.Journal{}, err
	}
	var m map[string]any
	if err := resp.Decode(&m); err != nil {
		return model.Journal{}, model.NewBackendUnavailableError()
	}
	return JournalFromMap(m), nil
}

// List fetches all journals visible to the caller.
func (s *JournalService) List(ctx context.Context, rctx *model.RequestContext, filters ListFilters) ([]model.Journal, error) {
	resp, err := s.client.Do(ctx, rctx, http.MethodGet, "/api/journals", filters.values(), nil)
	if err != nil {
		return nil, err
	}
	items, err := ListItems(resp.Body)
	if err != nil {
		return nil, model.NewBackendUnavailableError()
	}
	journals := make([]model.Journal, 0, len(items))
	for _, m := range items {
		journals = append(journals, JournalFromMap(m))
	}
	return journals, nil
}

// TranslationService reads translation jobs from the platform backend.
type TranslationService struct {
	client *Client
}

func NewTranslationService(client *Client) *TranslationService {
	return &TranslationService{client: client}
}

func (s *TranslationService) List(ctx context.Context, rctx *model.RequestContext, filters ListFilters) ([]model.Translation, error) {
	resp, err := s.client.Do(ctx, rctx, http.MethodGet, "/api/translations", filters.values(), nil)
	if err != nil {
		return nil, err
	}
	items, err := ListItems(resp.Body)
	if err != nil {
		return nil, model.NewBackendUnavailableError()
	}
	jobs := make([]model.Translation, 0, len(items))
	for _, m := range items {
		jobs = append(jobs, TranslationFromMap(m))
	}
	return jobs, nil
}

// TransactionService reads settled and pending transactions for the
// finance views. Writes go through PaymentService.
type TransactionService struct {
	client *Client
}

func NewTransactionService(client *Client) *TransactionService {
	return &TransactionService{client: client}
}

func (s *TransactionService) List(ctx context.Context, rctx *model.RequestContext, filters ListFilters) ([]model.Transaction, error) {
	resp, err := s.client.Do(ctx, rctx, http.MethodGet, "/api/transactions", filters.values(), nil)
	if err != nil {
		return nil, err
	}
	items, err := ListItems(resp.Body)
	if err != nil {
		return nil, model.NewBackendUnavailableError()
	}
	transactions := make([]model.Transaction, 0, len(items))
	for _, m := range items {
		transactions = append(transactions, TransactionFromMap(m))
	}
	return transactions, nil
}

// UserService reads user records from the platform backend.
type UserService struct {
	client *Client
}

func NewUserService(client *Client) *UserService {
	return &UserService{client: client}
}

func (s *UserService) List(ctx context.Context, rctx *model.RequestContext, filters ListFilters) ([]model.User, error) {
	resp, err := s.client.Do(ctx, rctx, http.MethodGet, "/api/users", filters.values(), nil)
	if err != nil {
		return nil, err
	}
	items, err := ListItems(resp.Body)
	if err != nil {
		return nil, model.NewBackendUnavailableError()
	}
	users := make([]model.User, 0, len(items))
	for _, m := range items {
		users = append(users, UserFromMap(m))
	}
	return users, nil
}
