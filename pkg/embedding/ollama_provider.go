package embedding

import (
	"context"

	"github.com/go-resty/resty/v2"
)

const (
	defaultOllamaURL   = "http://localhost:11434"
	defaultOllamaModel = "nomic-embed-text"
)

// OllamaProvider embeds through a local Ollama server. taskType is ignored.
type OllamaProvider struct {
	model  string
	client *resty.Client
}

func NewOllamaProvider(baseURL string, model string) EmbeddingProvider {
	if baseURL == "" {
		baseURL = defaultOllamaURL
	}
	if model == "" {
		model = defaultOllamaModel
	}
	return &OllamaProvider{model: model, client: NewClient(baseURL)}
}

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

func (p *OllamaProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	var out ollamaEmbedResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(ollamaEmbedRequest{Model: p.model, Prompt: text}).
		SetResult(&out).
		ForceContentType("application/json").
		Post("/api/embeddings")
	if err := CheckResponse("ollama", resp, err); err != nil {
		return nil, err
	}
	return newResponse(normalizeVector(out.Embedding)), nil
}
