package bootstrap

import (
	"log"

	"mnp-assistant-be/internal/config"
	"mnp-assistant-be/internal/repository/implementation"
	"mnp-assistant-be/pkg/embedding"
	"mnp-assistant-be/pkg/embedding/jina"
	"mnp-assistant-be/pkg/knowledge"
	"mnp-assistant-be/pkg/metrics"
	"mnp-assistant-be/pkg/workflow"

	"gorm.io/gorm"
)

// NewEmbeddingProvider picks the embedding backend named by EMBEDDING_PROVIDER.
func NewEmbeddingProvider(cfg *config.Config) embedding.EmbeddingProvider {
	switch cfg.Ai.EmbeddingProvider {
	case "ollama":
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
		return embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel)
	case "jina":
		log.Printf("[INFO] Using Embedding Provider: JINA AI")
		return jina.NewProvider(cfg.Keys.Jina)
	default:
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
		return embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
	}
}

func NewRetriever(db *gorm.DB, cfg *config.Config, embedder embedding.EmbeddingProvider, log knowledge.Logger, m *metrics.Metrics) *knowledge.Retriever {
	retrieverCfg := knowledge.DefaultConfig()
	retrieverCfg.SimilarityFloor = cfg.Retrieval.SimilarityFloor
	retrieverCfg.VectorWeight = cfg.Retrieval.VectorWeight
	retrieverCfg.LexicalWeight = cfg.Retrieval.LexicalWeight
	retrieverCfg.MaxResults = cfg.Retrieval.MaxResults
	retrieverCfg.SearchTimeout = cfg.Retrieval.SearchTimeout
	retrieverCfg.EmbeddingTimeout = cfg.Ai.EmbeddingTimeout

	return knowledge.NewRetriever(implementation.NewKnowledgeItemRepository(db), embedder, retrieverCfg, log, m)
}

// LoadWorkflows reads definitions from dir, or the embedded set when dir is empty, and
// validates every one of them.
func LoadWorkflows(dir string) (*workflow.Registry, error) {
	var (
		registry *workflow.Registry
		err      error
	)
	if dir != "" {
		registry, err = workflow.LoadDir(dir)
	} else {
		registry, err = workflow.LoadBuiltin()
	}
	if err != nil {
		return nil, err
	}
	if err := registry.Validate(); err != nil {
		return nil, err
	}
	return registry, nil
}
