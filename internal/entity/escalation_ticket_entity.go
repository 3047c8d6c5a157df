package entity

import (
	"time"

	"github.com/google/uuid"
)

type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
	TicketPriorityUrgent TicketPriority = "urgent"
)

func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

type TicketStatus string

const (
	TicketStatusPending         TicketStatus = "pending"
	TicketStatusAssigned        TicketStatus = "assigned"
	TicketStatusInProgress      TicketStatus = "in_progress"
	TicketStatusWaitingCustomer TicketStatus = "waiting_customer"
	TicketStatusResolved        TicketStatus = "resolved"
	TicketStatusCancelled       TicketStatus = "cancelled"
)

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusPending, TicketStatusAssigned, TicketStatusInProgress,
		TicketStatusWaitingCustomer, TicketStatusResolved, TicketStatusCancelled:
		return true
	}
	return false
}

func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusCancelled
}

// QueuedStatuses are the statuses counted as "in the queue" for position and wait estimates.
var QueuedStatuses = []TicketStatus{TicketStatusPending, TicketStatusAssigned}

// ActiveStatuses are every non-terminal status.
var ActiveStatuses = []TicketStatus{
	TicketStatusPending,
	TicketStatusAssigned,
	TicketStatusInProgress,
	TicketStatusWaitingCustomer,
}

type EscalationTicket struct {
	Id                   uuid.UUID
	SessionId            uuid.UUID
	Reason               string
	Trigger              string
	Priority             TicketPriority
	Status               TicketStatus
	AssignedAgentId      *string
	EstimatedWaitMinutes int
	QueuePosition        int
	Resolution           *string
	Feedback             *string
	Rating               *int
	AssignedAt           *time.Time
	ResolvedAt           *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
