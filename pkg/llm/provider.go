package llm

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a chat transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string
}

type Option func(*Options)

func WithTemperature(temp float64) Option {
	return func(o *Options) { o.Temperature = temp }
}

func WithMaxTokens(maxTokens int) Option {
	return func(o *Options) { o.MaxTokens = maxTokens }
}

// WithModel overrides the provider's configured model for one call.
func WithModel(model string) Option {
	return func(o *Options) { o.Model = model }
}

// ApplyOptions folds opts over defaults.
func ApplyOptions(defaults Options, opts []Option) Options {
	for _, opt := range opts {
		opt(&defaults)
	}
	return defaults
}

type LLMProvider interface {
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)
}

// StatusError carries a non-2xx answer from an HTTP backend.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s error: status %d, body: %s", e.Provider, e.StatusCode, e.Body)
}

// CheckResponse turns a failed resty call into a wrapped transport error or a StatusError.
func CheckResponse(provider string, resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("%s request: %w", provider, err)
	}
	if resp.IsError() {
		return &StatusError{Provider: provider, StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}
