package contract

import (
	"context"

	"mnp-assistant-be/internal/entity"
	"mnp-assistant-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredKnowledgeItem wraps a KnowledgeItem with the score of one search method
type ScoredKnowledgeItem struct {
	Item  *entity.KnowledgeItem
	Score float64 // 0.0 to 1.0
}

// KnowledgeFilter narrows the searchable population. Inactive items are always excluded.
type KnowledgeFilter struct {
	Carrier     string // items tagged with another carrier are excluded; generic items always pass
	Categories  []string
	MinPriority *int
}

type KnowledgeItemRepository interface {
	Create(ctx context.Context, item *entity.KnowledgeItem) error
	Update(ctx context.Context, item *entity.KnowledgeItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.KnowledgeItem, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.KnowledgeItem, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// UpdateEmbedding writes back a freshly generated vector without bumping the version.
	UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error
	FindMissingEmbeddings(ctx context.Context, limit int) ([]*entity.KnowledgeItem, error)

	// SearchSimilarWithScore returns items with cosine similarity >= threshold, best first
	SearchSimilarWithScore(ctx context.Context, embedding []float32, filter KnowledgeFilter, threshold float64, limit int) ([]*ScoredKnowledgeItem, error)
	// SearchLexical returns full-text / keyword candidates scored by normalised text rank
	SearchLexical(ctx context.Context, query string, keywords []string, filter KnowledgeFilter, limit int) ([]*ScoredKnowledgeItem, error)
}
