package jina

import (
	"context"
	"errors"
	"fmt"

	"mnp-assistant-be/pkg/embedding"

	"github.com/go-resty/resty/v2"
)

const (
	defaultBaseURL = "https://api.jina.ai/v1"
	// jina-embeddings-v3 is multilingual and returns 768 dims, matching the column.
	defaultModel = "jina-embeddings-v3"
)

type Provider struct {
	model  string
	client *resty.Client
}

func NewProvider(apiKey string) *Provider {
	return newProvider(defaultBaseURL, apiKey)
}

func newProvider(baseURL, apiKey string) *Provider {
	return &Provider{
		model:  defaultModel,
		client: embedding.NewClient(baseURL).SetAuthToken(apiKey),
	}
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *Provider) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	var out embedResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(embedRequest{Model: p.model, Input: []string{text}}).
		SetResult(&out).
		ForceContentType("application/json").
		Post("/embeddings")
	if err := embedding.CheckResponse("jina", resp, err); err != nil {
		return nil, err
	}

	switch {
	case out.Error != nil:
		return nil, fmt.Errorf("jina: %s", out.Error.Message)
	case len(out.Data) == 0:
		return nil, errors.New("jina: empty embeddings")
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: out.Data[0].Embedding},
	}, nil
}
