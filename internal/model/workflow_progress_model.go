package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type WorkflowProgress struct {
	Id                  uuid.UUID      `gorm:"type:uuid;primaryKey"`
	SessionId           uuid.UUID      `gorm:"type:uuid;not null;index"`
	WorkflowId          string         `gorm:"type:varchar(64);not null"`
	CurrentStep         string         `gorm:"type:varchar(64)"`
	CompletedSteps      datatypes.JSON `gorm:"type:jsonb;not null"`
	CollectedData       datatypes.JSON `gorm:"type:jsonb;not null"`
	Progress            int            `gorm:"not null"`
	IsCompleted         bool           `gorm:"not null"`
	IsActive            bool           `gorm:"not null;index"`
	EstimatedCompletion *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (WorkflowProgress) TableName() string {
	return "workflow_progress"
}
