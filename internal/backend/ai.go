package backend

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/scholarpress/quire/model"
)

// AIService asks the text-generation collaborator for abstract and keyword
// suggestions. The caller treats failures as best effort.
type AIService struct {
	client *Client
}

func NewAIService(client *Client) *AIService {
	return &AIService{client: client}
}

// GenerateAbstractAndKeywords submits the manuscript content and returns the
// suggested abstract and keyword list.
func (s *AIService) GenerateAbstractAndKeywords(ctx context.Context, rctx *model.RequestContext, fileContent []byte) (string, []string, error) {
	body := map[string]any{
		"content": base64.StdEncoding.EncodeToString(fileContent),
	}
	resp, err := s.client.Do(ctx, rctx, http.MethodPost, "/api/suggestions/abstract", nil, body)
	if err != nil {
		return "", nil, err
	}
	var out struct {
		Abstract string   `json:"abstract"`
		Keywords []string `json:"keywords"`
	}
	if err := resp.Decode(&out); err != nil {
		return "", nil, model.NewBackendUnavailableError()
	}
	return out.Abstract, out.Keywords, nil
}
