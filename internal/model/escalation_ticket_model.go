package model

import (
	"time"

	"github.com/google/uuid"
)

type EscalationTicket struct {
	Id                   uuid.UUID `gorm:"type:uuid;primaryKey"`
	SessionId            uuid.UUID `gorm:"type:uuid;not null;index"`
	Reason               string    `gorm:"type:text;not null"`
	Trigger              string    `gorm:"type:varchar(32);not null"`
	Priority             string    `gorm:"type:varchar(16);not null;index"`
	Status               string    `gorm:"type:varchar(32);not null;index"`
	AssignedAgentId      *string   `gorm:"type:varchar(64);index"`
	EstimatedWaitMinutes int       `gorm:"not null"`
	QueuePosition        int       `gorm:"not null"`
	Resolution           *string   `gorm:"type:text"`
	Feedback             *string   `gorm:"type:text"`
	Rating               *int
	AssignedAt           *time.Time
	ResolvedAt           *time.Time
	CreatedAt            time.Time `gorm:"index"`
	UpdatedAt            time.Time
}

func (EscalationTicket) TableName() string {
	return "escalation_tickets"
}

// TicketGroupCount is the scan target of the GROUP BY queries behind ticket stats.
type TicketGroupCount struct {
	GroupKey string
	Total    int
}
