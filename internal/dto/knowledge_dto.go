package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateKnowledgeItemRequest struct {
	Category    string   `json:"category" validate:"required,max=100"`
	Subcategory *string  `json:"subcategory" validate:"omitempty,max=100"`
	Question    string   `json:"question" validate:"required,max=1000"`
	Answer      string   `json:"answer" validate:"required,max=10000"`
	Keywords    []string `json:"keywords" validate:"max=50,dive,max=100"`
	Carrier     *string  `json:"carrier" validate:"omitempty,max=50"`
	Priority    int      `json:"priority" validate:"min=0,max=100"`
}

type UpdateKnowledgeItemRequest struct {
	Category    *string  `json:"category" validate:"omitempty,max=100"`
	Subcategory *string  `json:"subcategory" validate:"omitempty,max=100"`
	Question    *string  `json:"question" validate:"omitempty,max=1000"`
	Answer      *string  `json:"answer" validate:"omitempty,max=10000"`
	Keywords    []string `json:"keywords" validate:"omitempty,max=50,dive,max=100"`
	Carrier     *string  `json:"carrier" validate:"omitempty,max=50"`
	Priority    *int     `json:"priority" validate:"omitempty,min=0,max=100"`
	IsActive    *bool    `json:"is_active"`
}

type KnowledgeItemResponse struct {
	Id           uuid.UUID  `json:"id"`
	Category     string     `json:"category"`
	Subcategory  *string    `json:"subcategory,omitempty"`
	Question     string     `json:"question"`
	Answer       string     `json:"answer"`
	Keywords     []string   `json:"keywords"`
	Carrier      *string    `json:"carrier,omitempty"`
	Priority     int        `json:"priority"`
	IsActive     bool       `json:"is_active"`
	Version      int        `json:"version"`
	HasEmbedding bool       `json:"has_embedding"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

type ListKnowledgeQuery struct {
	Category        string `query:"category" validate:"max=100"`
	Carrier         string `query:"carrier" validate:"max=50"`
	Query           string `query:"q" validate:"max=200"`
	IncludeInactive bool   `query:"include_inactive"`
	Limit           int    `query:"limit" validate:"min=0,max=100"`
	Offset          int    `query:"offset" validate:"min=0"`
}

type SearchKnowledgeQuery struct {
	Query       string `query:"q" validate:"required,max=1000"`
	Carrier     string `query:"carrier" validate:"max=50"`
	CurrentStep string `query:"step" validate:"max=100"`
}

type KnowledgeSearchResult struct {
	Item           KnowledgeItemResponse `json:"item"`
	Score          float64               `json:"score"`
	FusedScore     float64               `json:"fused_score"`
	Method         string                `json:"method"`
	CarrierMatched bool                  `json:"carrier_matched"`
	StepRelevant   bool                  `json:"step_relevant"`
}

type SearchKnowledgeResponse struct {
	Results          []KnowledgeSearchResult `json:"results"`
	ContextRelevance float64                 `json:"context_relevance"`
}

type BackfillResponse struct {
	Enqueued int `json:"enqueued"`
}

// PublishEmbedKnowledgeMessage is the payload of an embedding job.
type PublishEmbedKnowledgeMessage struct {
	KnowledgeItemId uuid.UUID `json:"knowledge_item_id"`
	Version         int       `json:"version"`
}
