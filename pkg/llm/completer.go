package llm

import (
	"context"
)

// CompletionOptions mirrors the knobs the conversation layer sets per turn.
type CompletionOptions struct {
	MaxTokens   int
	Temperature float64
}

// Completer adapts an LLMProvider to a system-context + prompt call. Attempt deadlines
// belong to the provider (see RetryConfig.AttemptTimeout).
type Completer struct {
	provider LLMProvider
}

func NewCompleter(provider LLMProvider) *Completer {
	return &Completer{provider: provider}
}

func (c *Completer) Complete(ctx context.Context, systemContext, userPrompt string, opts CompletionOptions) (string, error) {
	history := make([]Message, 0, 2)
	if systemContext != "" {
		history = append(history, Message{Role: RoleSystem, Content: systemContext})
	}
	history = append(history, Message{Role: RoleUser, Content: userPrompt})

	options := []Option{WithTemperature(opts.Temperature)}
	if opts.MaxTokens > 0 {
		options = append(options, WithMaxTokens(opts.MaxTokens))
	}
	return c.provider.Chat(ctx, history, options...)
}
