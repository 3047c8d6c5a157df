package implementation

import (
	"context"

	"mnp-assistant-be/internal/entity"
	"mnp-assistant-be/internal/mapper"
	"mnp-assistant-be/internal/model"
	"mnp-assistant-be/internal/repository/contract"
	"mnp-assistant-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// knowledgeColumns leaves out search_vector, which only the database reads.
const knowledgeColumns = "id, category, subcategory, question, answer, keywords, carrier, priority, embedding, is_active, version, created_at, updated_at"

type KnowledgeItemRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.KnowledgeItemMapper
}

func NewKnowledgeItemRepository(db *gorm.DB) contract.KnowledgeItemRepository {
	return &KnowledgeItemRepositoryImpl{
		db:     db,
		mapper: mapper.NewKnowledgeItemMapper(),
	}
}

func applyKnowledgeFilter(db *gorm.DB, filter contract.KnowledgeFilter) *gorm.DB {
	db = db.Where("is_active = ?", true)
	if filter.Carrier != "" {
		db = db.Where("(carrier IS NULL OR carrier = '' OR carrier = ?)", filter.Carrier)
	}
	if len(filter.Categories) > 0 {
		db = db.Where("category IN ?", filter.Categories)
	}
	if filter.MinPriority != nil {
		db = db.Where("priority >= ?", *filter.MinPriority)
	}
	return db
}

func (r *KnowledgeItemRepositoryImpl) Create(ctx context.Context, item *entity.KnowledgeItem) error {
	m := r.mapper.ToModel(item)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*item = *r.mapper.ToEntity(m)
	return nil
}

func (r *KnowledgeItemRepositoryImpl) Update(ctx context.Context, item *entity.KnowledgeItem) error {
	m := r.mapper.ToModel(item)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*item = *r.mapper.ToEntity(m)
	return nil
}

func (r *KnowledgeItemRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.KnowledgeItem{}, id).Error
}

func (r *KnowledgeItemRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.KnowledgeItem, error) {
	return first(scoped(ctx, r.db.Select(knowledgeColumns), specs), r.mapper.ToEntity)
}

func (r *KnowledgeItemRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.KnowledgeItem, error) {
	return all(scoped(ctx, r.db.Select(knowledgeColumns), specs), r.mapper.ToEntity)
}

func (r *KnowledgeItemRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return count(scoped(ctx, r.db.Model(&model.KnowledgeItem{}), specs))
}

func (r *KnowledgeItemRepositoryImpl) UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	return r.db.WithContext(ctx).
		Model(&model.KnowledgeItem{}).
		Where("id = ?", id).
		UpdateColumn("embedding", pgvector.NewVector(embedding)).Error
}

func (r *KnowledgeItemRepositoryImpl) FindMissingEmbeddings(ctx context.Context, limit int) ([]*entity.KnowledgeItem, error) {
	return all(r.db.WithContext(ctx).
		Select(knowledgeColumns).
		Where("is_active = ? AND embedding IS NULL", true).
		Order("created_at ASC").
		Limit(limit), r.mapper.ToEntity)
}

func (r *KnowledgeItemRepositoryImpl) SearchSimilarWithScore(ctx context.Context, embedding []float32, filter contract.KnowledgeFilter, threshold float64, limit int) ([]*contract.ScoredKnowledgeItem, error) {
	queryVector := pgvector.NewVector(embedding)

	var rows []*model.ScoredKnowledgeItem
	query := r.db.WithContext(ctx).
		Model(&model.KnowledgeItem{}).
		Select(knowledgeColumns+", 1 - (embedding <=> ?) AS score", queryVector).
		Where("embedding IS NOT NULL").
		Where("1 - (embedding <=> ?) >= ?", queryVector, threshold)
	err := applyKnowledgeFilter(query, filter).
		Order("score DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.toScored(rows), nil
}

// SearchLexical ranks with ts_rank_cd normalisation 32 (rank/(rank+1)), so scores stay inside [0,1).
// Keyword and substring matches are candidates too because the simple text config does not segment Japanese.
func (r *KnowledgeItemRepositoryImpl) SearchLexical(ctx context.Context, query string, keywords []string, filter contract.KnowledgeFilter, limit int) ([]*contract.ScoredKnowledgeItem, error) {
	var rows []*model.ScoredKnowledgeItem
	db := r.db.WithContext(ctx).
		Model(&model.KnowledgeItem{}).
		Select(knowledgeColumns+", ts_rank_cd(search_vector, plainto_tsquery('simple', ?), 32) AS score", query)

	if len(keywords) > 0 {
		patterns := make([]string, len(keywords))
		for i, kw := range keywords {
			patterns[i] = "%" + kw + "%"
		}
		db = db.Where(
			"search_vector @@ plainto_tsquery('simple', ?) OR jsonb_exists_any(keywords, ARRAY[?]::text[]) OR question ILIKE ANY (ARRAY[?]::text[])",
			query, keywords, patterns,
		)
	} else {
		db = db.Where("search_vector @@ plainto_tsquery('simple', ?)", query)
	}

	err := applyKnowledgeFilter(db, filter).
		Order("score DESC").
		Order("priority DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return r.toScored(rows), nil
}

func (r *KnowledgeItemRepositoryImpl) toScored(rows []*model.ScoredKnowledgeItem) []*contract.ScoredKnowledgeItem {
	results := make([]*contract.ScoredKnowledgeItem, len(rows))
	for i, row := range rows {
		results[i] = &contract.ScoredKnowledgeItem{
			Item:  r.mapper.ToEntity(&row.KnowledgeItem),
			Score: row.Score,
		}
	}
	return results
}
