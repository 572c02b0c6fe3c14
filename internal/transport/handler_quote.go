package transport

import (
	"encoding/json"
	"net/http"

	"github.com/scholarpress/quire/internal/pricing"
	"github.com/scholarpress/quire/model"
)

// handleBookQuote prices a book print job. The calculation is pure, so the
// endpoint has no backend dependencies and no side effects.
func handleBookQuote(w http.ResponseWriter, r *http.Request) {
	var cfg model.BookJobConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		WriteError(w, model.NewBadRequestError("Malformed request body"))
		return
	}

	if details := validateBookConfig(cfg); len(details) > 0 {
		WriteValidationError(w, details)
		return
	}

	WriteJSON(w, http.StatusOK, pricing.BookTotal(cfg))
}

func validateBookConfig(cfg model.BookJobConfig) []model.FieldError {
	var details []model.FieldError
	if cfg.Pages < 1 {
		details = append(details, model.FieldError{
			Field: "pages", Code: "min", Message: "pages must be at least 1",
		})
	}
	if cfg.Copies < 1 {
		details = append(details, model.FieldError{
			Field: "copies", Code: "min", Message: "copies must be at least 1",
		})
	}
	switch cfg.PaperQuality {
	case model.PaperEco, model.PaperStandard:
	default:
		details = append(details, model.FieldError{
			Field: "paper_quality", Code: "enum", Message: "paper_quality must be eco or standard",
		})
	}
	switch cfg.CoverType {
	case model.CoverSoft, model.CoverHard:
	default:
		details = append(details, model.FieldError{
			Field: "cover_type", Code: "enum", Message: "cover_type must be soft or hard",
		})
	}
	return details
}
