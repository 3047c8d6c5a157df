package embedding

import (
	"context"

	"github.com/go-resty/resty/v2"
)

const (
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1"
	geminiModel   = "text-embedding-004"
)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Model    string        `json:"model"`
	Content  geminiContent `json:"content"`
	TaskType string        `json:"task_type,omitempty"`
}

type GeminiProvider struct {
	client *resty.Client
}

func NewGeminiProvider(apiKey string) EmbeddingProvider {
	return newGeminiProvider(geminiBaseURL, apiKey)
}

func newGeminiProvider(baseURL, apiKey string) *GeminiProvider {
	return &GeminiProvider{client: NewClient(baseURL).SetHeader("x-goog-api-key", apiKey)}
}

// Generate passes taskType through so documents and queries land in matching spaces.
func (p *GeminiProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	var out EmbeddingResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(geminiRequest{
			Model:    geminiModel,
			Content:  geminiContent{Parts: []geminiPart{{Text: text}}},
			TaskType: taskType,
		}).
		SetResult(&out).
		ForceContentType("application/json").
		SetPathParam("model", geminiModel).
		Post("/models/{model}:embedContent")
	if err := CheckResponse("gemini", resp, err); err != nil {
		return nil, err
	}
	return &out, nil
}
