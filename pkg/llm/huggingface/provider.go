package huggingface

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mnp-assistant-be/pkg/llm"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL   = "https://router.huggingface.co/v1"
	defaultMaxTokens = 500
	requestTimeout   = 120 * time.Second
)

// Provider speaks the OpenAI-compatible /chat/completions dialect. The HF router is the default host.
type Provider struct {
	model  string
	client *resty.Client
}

var _ llm.LLMProvider = (*Provider)(nil)

func NewProvider(apiKey, baseURL, model string) *Provider {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(requestTimeout).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &Provider{model: model, client: client}
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Message llm.Message `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	o := llm.ApplyOptions(llm.Options{Model: p.model, MaxTokens: defaultMaxTokens}, opts)

	var out completionResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(completionRequest{
			Model:       o.Model,
			Messages:    history,
			MaxTokens:   o.MaxTokens,
			Temperature: o.Temperature,
		}).
		SetResult(&out).
		ForceContentType("application/json").
		Post("/chat/completions")
	if err := llm.CheckResponse("huggingface", resp, err); err != nil {
		return "", err
	}

	switch {
	case out.Error != nil:
		return "", fmt.Errorf("huggingface: %s", out.Error.Message)
	case len(out.Choices) == 0:
		return "", errors.New("huggingface: empty choices")
	}
	return out.Choices[0].Message.Content, nil
}

func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}
