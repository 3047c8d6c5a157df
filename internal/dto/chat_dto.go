package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	Carrier       string `json:"carrier" validate:"max=50"`
	TargetCarrier string `json:"target_carrier" validate:"max=50"`
}

type CreateSessionResponse struct {
	Id       uuid.UUID              `json:"id"`
	Greeting *SendChatResponseChat  `json:"greeting"`
	Workflow *WorkflowStateResponse `json:"workflow,omitempty"`
}

type GetAllSessionsResponse struct {
	Id            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	Carrier       string     `json:"carrier,omitempty"`
	TargetCarrier string     `json:"target_carrier,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
}

type GetChatHistoryResponse struct {
	Id         uuid.UUID     `json:"id"`
	Role       string        `json:"role"`
	Chat       string        `json:"chat"`
	Mode       string        `json:"mode,omitempty"`
	Confidence *float64      `json:"confidence,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	Citations  []CitationDTO `json:"citations,omitempty"`
}

type CitationDTO struct {
	KnowledgeItemId uuid.UUID `json:"knowledge_item_id"`
	Question        string    `json:"question"`
	Category        string    `json:"category"`
	Score           float64   `json:"score"`
}

type SendChatRequest struct {
	ChatSessionId  uuid.UUID `json:"chat_session_id" validate:"required"`
	Chat           string    `json:"chat" validate:"required_without=SelectedOption,max=2000"`
	SelectedOption string    `json:"selected_option,omitempty" validate:"max=100"`
}

type ActionDTO struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	Value string `json:"value,omitempty"`
}

type SendChatResponseChat struct {
	Id        uuid.UUID     `json:"id"`
	Chat      string        `json:"chat"`
	Role      string        `json:"role"`
	CreatedAt time.Time     `json:"created_at"`
	Citations []CitationDTO `json:"citations,omitempty"`
}

type SendChatResponse struct {
	ChatSessionId    uuid.UUID              `json:"chat_session_id"`
	Sent             *SendChatResponseChat  `json:"sent"`
	Reply            *SendChatResponseChat  `json:"reply"`
	Mode             string                 `json:"mode"` // "workflow" | "knowledge" | "fallback"
	Actions          []ActionDTO            `json:"actions,omitempty"`
	Workflow         *WorkflowStateResponse `json:"workflow,omitempty"`
	ContextRelevance float64                `json:"context_relevance"`
	Confidence       *float64               `json:"confidence,omitempty"`
	Escalation       *TicketResponse        `json:"escalation,omitempty"`
}

type DeleteSessionRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id" validate:"required"`
}
