package dto

import (
	"time"

	"github.com/google/uuid"
)

type InitiateEscalationRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id" validate:"required"`
	Reason        string    `json:"reason" validate:"max=500"`
	Priority      string    `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

type UpdateTicketStatusRequest struct {
	Status  string  `json:"status" validate:"required,oneof=pending assigned in_progress waiting_customer resolved cancelled"`
	AgentId *string `json:"agent_id" validate:"omitempty,max=100"`
}

type ResolveTicketRequest struct {
	Resolution string  `json:"resolution" validate:"required,max=2000"`
	Feedback   *string `json:"feedback" validate:"omitempty,max=2000"`
	Rating     *int    `json:"rating" validate:"omitempty,min=1,max=5"`
}

type CancelTicketRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type ListTicketsQuery struct {
	Status    string `query:"status" validate:"omitempty,oneof=pending assigned in_progress waiting_customer resolved cancelled"`
	Priority  string `query:"priority" validate:"omitempty,oneof=low medium high urgent"`
	AgentId   string `query:"agent_id" validate:"max=100"`
	SessionId string `query:"session_id" validate:"omitempty,uuid"`
	Limit     int    `query:"limit" validate:"min=0,max=100"`
	Offset    int    `query:"offset" validate:"min=0"`
}

type TicketStatsQuery struct {
	PeriodHours int `query:"period_hours" validate:"min=0,max=8760"`
}

type TicketResponse struct {
	Id                   uuid.UUID  `json:"id"`
	ChatSessionId        uuid.UUID  `json:"chat_session_id"`
	Reason               string     `json:"reason"`
	Trigger              string     `json:"trigger"`
	Priority             string     `json:"priority"`
	Status               string     `json:"status"`
	AssignedAgentId      *string    `json:"assigned_agent_id,omitempty"`
	EstimatedWaitMinutes int        `json:"estimated_wait_minutes"`
	QueuePosition        int        `json:"queue_position"`
	Resolution           *string    `json:"resolution,omitempty"`
	Feedback             *string    `json:"feedback,omitempty"`
	Rating               *int       `json:"rating,omitempty"`
	AssignedAt           *time.Time `json:"assigned_at,omitempty"`
	ResolvedAt           *time.Time `json:"resolved_at,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

type TicketStatsResponse struct {
	Since                 time.Time      `json:"since"`
	Total                 int            `json:"total"`
	ByStatus              map[string]int `json:"by_status"`
	ByPriority            map[string]int `json:"by_priority"`
	AverageWaitMinutes    float64        `json:"average_wait_minutes"`
	AverageResolveMinutes float64        `json:"average_resolve_minutes"`
	QueueLength           int            `json:"queue_length"`
}
