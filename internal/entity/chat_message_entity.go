package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	ChatMessageRoleUser  = "user"
	ChatMessageRoleModel = "model"
)

// ChatMessage is one persisted turn. Mode is the route the turn took; Confidence is set on model replies only.
type ChatMessage struct {
	Id            uuid.UUID
	ChatSessionId uuid.UUID
	Role          string
	Chat          string
	Mode          string
	Confidence    *float64
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}
