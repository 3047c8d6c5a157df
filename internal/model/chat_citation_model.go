package model

import (
	"time"

	"github.com/google/uuid"
)

// ChatCitation links a model reply to a knowledge item that grounded it
type ChatCitation struct {
	Id              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ChatMessageId   uuid.UUID `gorm:"type:uuid;index;not null"`
	KnowledgeItemId uuid.UUID `gorm:"type:uuid;index;not null"`
	Score           float64
	CreatedAt       time.Time `gorm:"autoCreateTime"`

	// Relationships
	ChatMessage   ChatMessage   `gorm:"foreignKey:ChatMessageId;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	KnowledgeItem KnowledgeItem `gorm:"foreignKey:KnowledgeItemId;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (ChatCitation) TableName() string {
	return "chat_citations"
}
