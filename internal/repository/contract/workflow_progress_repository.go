package contract

import (
	"context"

	"mnp-assistant-be/internal/entity"

	"github.com/google/uuid"
)

// WorkflowProgressRepository keeps at most one active record per session.
type WorkflowProgressRepository interface {
	// FindActive returns nil, nil when the session has no active workflow.
	FindActive(ctx context.Context, sessionId uuid.UUID) (*entity.WorkflowProgress, error)
	Save(ctx context.Context, progress *entity.WorkflowProgress) error
	Deactivate(ctx context.Context, sessionId uuid.UUID) error
	FindBySession(ctx context.Context, sessionId uuid.UUID) ([]*entity.WorkflowProgress, error)
}
