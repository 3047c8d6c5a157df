package mapper

import (
	"encoding/json"
	"time"

	"mnp-assistant-be/internal/entity"
	"mnp-assistant-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type KnowledgeItemMapper struct{}

func NewKnowledgeItemMapper() *KnowledgeItemMapper {
	return &KnowledgeItemMapper{}
}

func (m *KnowledgeItemMapper) ToEntity(k *model.KnowledgeItem) *entity.KnowledgeItem {
	if k == nil {
		return nil
	}

	var updatedAt *time.Time
	if !k.UpdatedAt.IsZero() {
		t := k.UpdatedAt
		updatedAt = &t
	}

	var keywords []string
	if len(k.Keywords) > 0 {
		_ = json.Unmarshal(k.Keywords, &keywords)
	}

	var embedding []float32
	if k.Embedding != nil {
		embedding = k.Embedding.Slice()
	}

	return &entity.KnowledgeItem{
		Id:          k.Id,
		Category:    k.Category,
		Subcategory: k.Subcategory,
		Question:    k.Question,
		Answer:      k.Answer,
		Keywords:    keywords,
		Carrier:     k.Carrier,
		Priority:    k.Priority,
		Embedding:   embedding,
		IsActive:    k.IsActive,
		Version:     k.Version,
		CreatedAt:   k.CreatedAt,
		UpdatedAt:   updatedAt,
	}
}

func (m *KnowledgeItemMapper) ToModel(k *entity.KnowledgeItem) *model.KnowledgeItem {
	if k == nil {
		return nil
	}

	var updatedAt time.Time
	if k.UpdatedAt != nil {
		updatedAt = *k.UpdatedAt
	}

	keywords := k.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	raw, _ := json.Marshal(keywords)

	var embedding *pgvector.Vector
	if len(k.Embedding) > 0 {
		v := pgvector.NewVector(k.Embedding)
		embedding = &v
	}

	return &model.KnowledgeItem{
		Id:          k.Id,
		Category:    k.Category,
		Subcategory: k.Subcategory,
		Question:    k.Question,
		Answer:      k.Answer,
		Keywords:    datatypes.JSON(raw),
		Carrier:     k.Carrier,
		Priority:    k.Priority,
		Embedding:   embedding,
		IsActive:    k.IsActive,
		Version:     k.Version,
		CreatedAt:   k.CreatedAt,
		UpdatedAt:   updatedAt,
	}
}
