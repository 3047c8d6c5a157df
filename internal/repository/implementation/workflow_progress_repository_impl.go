package implementation

import (
	"context"

	"mnp-assistant-be/internal/entity"
	"mnp-assistant-be/internal/mapper"
	"mnp-assistant-be/internal/model"
	"mnp-assistant-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WorkflowProgressRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.WorkflowProgressMapper
}

func NewWorkflowProgressRepository(db *gorm.DB) contract.WorkflowProgressRepository {
	return &WorkflowProgressRepositoryImpl{
		db:     db,
		mapper: mapper.NewWorkflowProgressMapper(),
	}
}

func (r *WorkflowProgressRepositoryImpl) FindActive(ctx context.Context, sessionId uuid.UUID) (*entity.WorkflowProgress, error) {
	return first(r.db.WithContext(ctx).
		Where("session_id = ? AND is_active = ?", sessionId, true).
		Order("updated_at DESC"), r.mapper.ToEntity)
}

// Save inserts or overwrites the record with the progress id.
func (r *WorkflowProgressRepositoryImpl) Save(ctx context.Context, progress *entity.WorkflowProgress) error {
	m, err := r.mapper.ToModel(progress)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *WorkflowProgressRepositoryImpl) Deactivate(ctx context.Context, sessionId uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.WorkflowProgress{}).
		Where("session_id = ? AND is_active = ?", sessionId, true).
		Update("is_active", false).Error
}

func (r *WorkflowProgressRepositoryImpl) FindBySession(ctx context.Context, sessionId uuid.UUID) ([]*entity.WorkflowProgress, error) {
	return all(r.db.WithContext(ctx).
		Where("session_id = ?", sessionId).
		Order("created_at DESC"), r.mapper.ToEntity)
}
