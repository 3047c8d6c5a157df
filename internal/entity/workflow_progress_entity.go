package entity

import (
	"time"

	"github.com/google/uuid"
)

// WorkflowProgress is the per-session position inside a guided workflow.
// CompletedSteps never contains CurrentStep.
type WorkflowProgress struct {
	Id                  uuid.UUID
	SessionId           uuid.UUID
	WorkflowId          string
	CurrentStep         string
	CompletedSteps      []string
	CollectedData       map[string]interface{}
	Progress            int // 0-100
	IsCompleted         bool
	IsActive            bool
	EstimatedCompletion *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (p *WorkflowProgress) HasCompleted(stepId string) bool {
	for _, s := range p.CompletedSteps {
		if s == stepId {
			return true
		}
	}
	return false
}

// Clone returns a deep-enough copy so a failed mutation never leaks into the stored record.
func (p *WorkflowProgress) Clone() *WorkflowProgress {
	if p == nil {
		return nil
	}
	c := *p
	c.CompletedSteps = append([]string(nil), p.CompletedSteps...)
	c.CollectedData = make(map[string]interface{}, len(p.CollectedData))
	for k, v := range p.CollectedData {
		c.CollectedData[k] = v
	}
	if p.EstimatedCompletion != nil {
		t := *p.EstimatedCompletion
		c.EstimatedCompletion = &t
	}
	return &c
}
