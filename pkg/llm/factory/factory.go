package factory

import (
	"fmt"

	"mnp-assistant-be/pkg/llm"
	"mnp-assistant-be/pkg/llm/huggingface"
	"mnp-assistant-be/pkg/llm/ollama"
)

const defaultOllamaURL = "http://localhost:11434"

// NewLLMProvider picks a chat backend by name. apiKey is ignored by ollama.
func NewLLMProvider(providerType, modelName, baseURL, apiKey string) (llm.LLMProvider, error) {
	switch providerType {
	case "ollama":
		if baseURL == "" {
			baseURL = defaultOllamaURL
		}
		return ollama.NewProvider(baseURL, modelName), nil
	case "huggingface", "openai-compatible":
		return huggingface.NewProvider(apiKey, baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}
