package embedding

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/go-resty/resty/v2"
)

// Dimensions is the vector size stored in knowledge_items.embedding.
const Dimensions = 768

// Task types. Only Gemini distinguishes them.
const (
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

const requestTimeout = 30 * time.Second

type EmbeddingProvider interface {
	Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error)
}

type EmbeddingResponseEmbedding struct {
	Values []float32 `json:"values"`
}

type EmbeddingResponse struct {
	Embedding EmbeddingResponseEmbedding `json:"embedding"`
}

func newResponse(values []float32) *EmbeddingResponse {
	return &EmbeddingResponse{Embedding: EmbeddingResponseEmbedding{Values: values}}
}

type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s embedding error: status %d, body: %s", e.Provider, e.StatusCode, e.Body)
}

// NewClient returns a JSON client rooted at baseURL with the embedding timeout.
func NewClient(baseURL string) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout).
		SetHeader("Content-Type", "application/json")
}

// CheckResponse mirrors llm.CheckResponse for embedding backends.
func CheckResponse(provider string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s embedding request: %w", provider, err)
	}
	if resp.IsError() {
		return &StatusError{Provider: provider, StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}

// normalizeVector scales vec to unit length; cosine distance in pgvector expects it.
func normalizeVector(vec []float64) []float32 {
	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	out := make([]float32, len(vec))
	magnitude := math.Sqrt(sum)
	for i, v := range vec {
		if magnitude == 0 {
			out[i] = float32(v)
			continue
		}
		out[i] = float32(v / magnitude)
	}
	return out
}
