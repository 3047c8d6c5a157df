package ollama

import (
	"context"
	"time"

	"mnp-assistant-be/pkg/llm"

	"github.com/go-resty/resty/v2"
)

const (
	defaultTemperature = 0.3
	requestTimeout     = 120 * time.Second
)

// Provider calls a local Ollama server's /api/chat endpoint without streaming.
type Provider struct {
	model  string
	client *resty.Client
}

var _ llm.LLMProvider = (*Provider)(nil)

func NewProvider(baseURL, model string) *Provider {
	return &Provider{
		model: model,
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(requestTimeout).
			SetHeader("Content-Type", "application/json"),
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []llm.Message `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  sampling      `json:"options"`
}

type sampling struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatResponse struct {
	Message llm.Message `json:"message"`
	Done    bool        `json:"done"`
}

func (p *Provider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	o := llm.ApplyOptions(llm.Options{Model: p.model, Temperature: defaultTemperature}, opts)

	var out chatResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model:    o.Model,
			Messages: history,
			Options:  sampling{Temperature: o.Temperature, NumPredict: o.MaxTokens},
		}).
		SetResult(&out).
		ForceContentType("application/json").
		Post("/api/chat")
	if err := llm.CheckResponse("ollama", resp, err); err != nil {
		return "", err
	}
	return out.Message.Content, nil
}

func (p *Provider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, opts...)
}
