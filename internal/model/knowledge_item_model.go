package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// KnowledgeItem also carries a generated search_vector tsvector column, created by cmd/migrate.
type KnowledgeItem struct {
	Id          uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Category    string           `gorm:"type:varchar(64);not null;index"`
	Subcategory *string          `gorm:"type:varchar(64)"`
	Question    string           `gorm:"type:text;not null"`
	Answer      string           `gorm:"type:text;not null"`
	Keywords    datatypes.JSON   `gorm:"type:jsonb;not null"`
	Carrier     *string          `gorm:"type:varchar(32);index"`
	Priority    int              `gorm:"not null"`
	Embedding   *pgvector.Vector `gorm:"type:vector(768)"` // nil until the embedding job has run
	IsActive    bool             `gorm:"not null;index"`
	Version     int              `gorm:"not null"`
	CreatedAt   time.Time        `gorm:"autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"autoUpdateTime"`
}

func (KnowledgeItem) TableName() string {
	return "knowledge_items"
}

// ScoredKnowledgeItem is the scan target of the search queries.
type ScoredKnowledgeItem struct {
	KnowledgeItem
	Score float64
}
