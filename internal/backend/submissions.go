package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/scholarpress/quire/internal/wizard"
	"github.com/scholarpress/quire/model"
)

// SubmissionService creates and reads article submissions on the platform
// backend. Creates carry the main file as multipart when one is attached,
// plain JSON otherwise.
type SubmissionService struct {
	client *Client
}

func NewSubmissionService(client *Client) *SubmissionService {
	return &SubmissionService{client: client}
}

// CreateSubmission creates the article record from a confirmed wizard draft.
func (s *SubmissionService) CreateSubmission(ctx context.Context, rctx *model.RequestContext, req wizard.CreateSubmissionRequest) (model.Article, error) {
	var resp *Response
	var err error
	if req.MainFile != nil {
		resp, err = s.client.DoMultipart(ctx, rctx, http.MethodPost, "/api/articles", s.multipartFields(req))
	} else {
		resp, err = s.client.Do(ctx, rctx, http.MethodPost, "/api/articles", nil, s.jsonBody(req))
	}
	if err != nil {
		return model.Article{}, err
	}
	var m map[string]any
	if err := resp.Decode(&m); err != nil {
		return model.Article{}, model.NewBackendUnavailableError()
	}
	return ArticleFromMap(m), nil
}

func (s *SubmissionService) jsonBody(req wizard.CreateSubmissionRequest) map[string]any {
	body := map[string]any{
		"submission_type": req.SubmissionType,
		"title":           req.Title,
		"page_count":      req.PageCount,
		"fast_track":      req.FastTrack,
		"abstract":        req.Abstract,
		"keywords":        req.Keywords,
		"co_authors":      req.CoAuthors,
	}
	if req.JournalID != "" {
		body["journal_id"] = req.JournalID
	}
	if req.TransactionID != "" {
		body["transaction_id"] = req.TransactionID
	}
	return body
}

func (s *SubmissionService) multipartFields(req wizard.CreateSubmissionRequest) []MultipartField {
	fields := []MultipartField{
		{Name: "submission_type", Value: string(req.SubmissionType)},
		{Name: "title", Value: req.Title},
		{Name: "page_count", Value: strconv.Itoa(req.PageCount)},
		{Name: "fast_track", Value: strconv.FormatBool(req.FastTrack)},
		{Name: "abstract", Value: req.Abstract},
	}
	if req.JournalID != "" {
		fields = append(fields, MultipartField{Name: "journal_id", Value: req.JournalID})
	}
	if req.TransactionID != "" {
		fields = append(fields, MultipartField{Name: "transaction_id", Value: req.TransactionID})
	}
	for _, kw := range req.Keywords {
		fields = append(fields, MultipartField{Name: "keywords", Value: kw})
	}
	if len(req.CoAuthors) > 0 {
		// Structured parts go over the wire as a JSON form field.
		if encoded, err := json.Marshal(req.CoAuthors); err == nil {
			fields = append(fields, MultipartField{Name: "co_authors", Value: string(encoded)})
		}
	}
	fields = append(fields, MultipartField{Name: "file", File: req.MainFile})
	return fields
}

// Get fetches a single article by id.
func (s *SubmissionService) Get(ctx context.Context, rctx *model.RequestContext, articleID string) (model.Article, error) {
	resp, err := s.client.Do(ctx, rctx, http.MethodGet, "/api/articles/"+url.PathEscape(articleID), nil, nil)
	if err != nil {
		return model.Article{}, err
	}
	var m map[string]any
	if err := resp.Decode(&m); err != nil {
		return model.Article{}, model.NewBackendUnavailableError()
	}
	return ArticleFromMap(m), nil
}

// Update applies a partial draft update to an existing article.
func (s *SubmissionService) Update(ctx context.Context, rctx *model.RequestContext, articleID string, patch map[string]any) (model.Article, error) {
	resp, err := s.client.Do(ctx, rctx, http.MethodPut, "/api/articles/"+url.PathEscape(articleID), nil, patch)
	if err != nil {
		return model.Article{}, err
	}
	var m map[string]any
	if err := resp.Decode(&m); err != nil {
		return model.Article{}, model.NewBackendUnavailableError()
	}
	return ArticleFromMap(m), nil
}

// UpdateStatus moves an article through the backend-owned lifecycle.
func (s *SubmissionService) UpdateStatus(ctx context.Context, rctx *model.RequestContext, articleID string, status model.ArticleStatus, reason string) error {
	body := map[string]any{"status": status}
	if reason != "" {
		body["reason"] = reason
	}
	_, err := s.client.Do(ctx, rctx, http.MethodPut, "/api/articles/"+url.PathEscape(articleID)+"/status", nil, body)
	return err
}

// List fetches articles matching the given filters.
func (s *SubmissionService) List(ctx context.Context, rctx *model.RequestContext, filters ListFilters) ([]model.Article, error) {
	resp, err := s.client.Do(ctx, rctx, http.MethodGet, "/api/articles", filters.values(), nil)
	if err != nil {
		return nil, err
	}
	items, err := ListItems(resp.Body)
	if err != nil {
		return nil, model.NewBackendUnavailableError()
	}
	articles := make([]model.Article, 0, len(items))
	for _, m := range items {
		articles = append(articles, ArticleFromMap(m))
	}
	return articles, nil
}
