package backend

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/scholarpress/quire/model"
)

// ListItems decodes a collaborator list response. The backends are not
// consistent about envelopes, so a bare array, a {"data": [...]} wrapper,
// and a {"results": [...]} wrapper are all accepted and yield the same
// items. Anything else decodes to an empty list rather than failing the
// whole view.
func ListItems(body []byte) ([]map[string]any, error) {
	if len(body) == 0 {
		return nil, nil
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}

	switch v := raw.(type) {
	case []any:
		return itemMaps(v), nil
	case map[string]any:
		if inner, ok := v["data"].([]any); ok {
			return itemMaps(inner), nil
		}
		if inner, ok := v["results"].([]any); ok {
			return itemMaps(inner), nil
		}
	}
	return nil, nil
}

func itemMaps(items []any) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

// stringField returns the first alias present in m, coerced to string.
// Numeric ids are formatted without a fractional part; nested objects
// contribute their own "id" field.
func stringField(m map[string]any, aliases ...string) string {
	for _, key := range aliases {
		v, ok := m[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if t != "" {
				return t
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		case map[string]any:
			if id := stringField(t, "id", "_id"); id != "" {
				return id
			}
		}
	}
	return ""
}

// int64Field coerces the first present alias to int64, degrading to 0 on
// anything unparseable. Monetary fields ride through here, so a malformed
// fee never poisons a whole listing.
func int64Field(m map[string]any, aliases ...string) int64 {
	for _, key := range aliases {
		v, ok := m[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case float64:
			return int64(t)
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
				return n
			}
			if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
				return int64(f)
			}
		}
	}
	return 0
}

func intField(m map[string]any, aliases ...string) int {
	return int(int64Field(m, aliases...))
}

func boolField(m map[string]any, aliases ...string) bool {
	for _, key := range aliases {
		v, ok := m[key]
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case bool:
			return t
		case string:
			return t == "true" || t == "1"
		case float64:
			return t != 0
		}
	}
	return false
}

func timeField(m map[string]any, aliases ...string) time.Time {
	for _, key := range aliases {
		s, ok := m[key].(string)
		if !ok || s == "" {
			continue
		}
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// JournalFromMap normalizes one raw journal record. The admin reference in
// particular arrives under several spellings depending on which backend
// endpoint produced the record.
func JournalFromMap(m map[string]any) model.Journal {
	return model.Journal{
		ID:             stringField(m, "id", "_id", "journal_id"),
		Title:          stringField(m, "title", "name"),
		AdminID:        stringField(m, "admin_id", "adminId", "admin", "manager_id"),
		PricingType:    pricingTypeFrom(stringField(m, "pricing_type", "pricingType")),
		PublicationFee: int64Field(m, "publication_fee", "publicationFee", "fee"),
		PricePerPage:   int64Field(m, "price_per_page", "pricePerPage"),
		PaymentModel:   paymentModelFrom(stringField(m, "payment_model", "paymentModel")),
	}
}

func pricingTypeFrom(s string) model.PricingType {
	switch strings.ToLower(s) {
	case "fixed":
		return model.PricingFixed
	case "per_page", "perpage", "per-page":
		return model.PricingPerPage
	}
	return model.PricingType(s)
}

func paymentModelFrom(s string) model.PaymentModel {
	switch strings.ToLower(s) {
	case "pre", "prepaid", "pre_payment":
		return model.PaymentPre
	case "post", "postpaid", "post_payment":
		return model.PaymentPost
	}
	return model.PaymentModel(s)
}

// ArticleFromMap normalizes one raw article record.
func ArticleFromMap(m map[string]any) model.Article {
	return model.Article{
		ID:          stringField(m, "id", "_id", "article_id"),
		JournalID:   stringField(m, "journal_id", "journalId", "journal"),
		AuthorID:    stringField(m, "author_id", "authorId", "author", "user_id"),
		Title:       stringField(m, "title", "name"),
		Status:      model.ArticleStatus(strings.ToLower(stringField(m, "status", "state"))),
		FastTrack:   boolField(m, "fast_track", "fastTrack", "is_fast_track"),
		PageCount:   intField(m, "page_count", "pageCount", "pages"),
		SubmittedAt: timeField(m, "submitted_at", "submittedAt", "created_at", "createdAt"),
	}
}

// TransactionFromMap normalizes one raw transaction record.
func TransactionFromMap(m map[string]any) model.Transaction {
	return model.Transaction{
		ID:          stringField(m, "id", "_id", "transaction_id"),
		Amount:      int64Field(m, "amount", "total", "sum"),
		ServiceType: model.ServiceType(strings.ToLower(stringField(m, "service_type", "serviceType", "service"))),
		Status:      model.TransactionStatus(strings.ToLower(stringField(m, "status", "state"))),
		Description: stringField(m, "description", "comment"),
		CreatedAt:   timeField(m, "created_at", "createdAt", "date"),
	}
}

// TranslationFromMap normalizes one raw translation-job record.
func TranslationFromMap(m map[string]any) model.Translation {
	return model.Translation{
		ID:           stringField(m, "id", "_id"),
		ArticleID:    stringField(m, "article_id", "articleId", "article"),
		TranslatorID: stringField(m, "translator_id", "translatorId", "translator"),
		Status:       strings.ToLower(stringField(m, "status", "state")),
	}
}

// UserFromMap normalizes one raw user record.
func UserFromMap(m map[string]any) model.User {
	u := model.User{
		ID:        stringField(m, "id", "_id", "user_id"),
		Email:     stringField(m, "email"),
		FirstName: stringField(m, "first_name", "firstName"),
		LastName:  stringField(m, "last_name", "lastName"),
	}
	if rawRoles, ok := m["roles"].([]any); ok {
		for _, r := range rawRoles {
			if s, ok := r.(string); ok {
				u.Roles = append(u.Roles, model.Role(s))
			}
		}
	}
	return u
}
