package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatCitation links a model reply to the knowledge items that grounded it.
type ChatCitation struct {
	Id              uuid.UUID
	ChatMessageId   uuid.UUID
	KnowledgeItemId uuid.UUID
	Score           float64
	CreatedAt       time.Time

	KnowledgeItem *KnowledgeItem
}
