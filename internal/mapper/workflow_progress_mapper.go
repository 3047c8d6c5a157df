package mapper

import (
	"encoding/json"

	"mnp-assistant-be/internal/entity"
	"mnp-assistant-be/internal/model"

	"gorm.io/datatypes"
)

type WorkflowProgressMapper struct{}

func NewWorkflowProgressMapper() *WorkflowProgressMapper {
	return &WorkflowProgressMapper{}
}

func (m *WorkflowProgressMapper) ToEntity(p *model.WorkflowProgress) *entity.WorkflowProgress {
	if p == nil {
		return nil
	}

	completed := []string{}
	if len(p.CompletedSteps) > 0 {
		_ = json.Unmarshal(p.CompletedSteps, &completed)
	}
	data := map[string]interface{}{}
	if len(p.CollectedData) > 0 {
		_ = json.Unmarshal(p.CollectedData, &data)
	}

	return &entity.WorkflowProgress{
		Id:                  p.Id,
		SessionId:           p.SessionId,
		WorkflowId:          p.WorkflowId,
		CurrentStep:         p.CurrentStep,
		CompletedSteps:      completed,
		CollectedData:       data,
		Progress:            p.Progress,
		IsCompleted:         p.IsCompleted,
		IsActive:            p.IsActive,
		EstimatedCompletion: p.EstimatedCompletion,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}

// ToModel fails only when the collected answers hold a value JSON cannot encode.
func (m *WorkflowProgressMapper) ToModel(p *entity.WorkflowProgress) (*model.WorkflowProgress, error) {
	if p == nil {
		return nil, nil
	}

	completed := p.CompletedSteps
	if completed == nil {
		completed = []string{}
	}
	completedRaw, err := json.Marshal(completed)
	if err != nil {
		return nil, err
	}

	data := p.CollectedData
	if data == nil {
		data = map[string]interface{}{}
	}
	dataRaw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &model.WorkflowProgress{
		Id:                  p.Id,
		SessionId:           p.SessionId,
		WorkflowId:          p.WorkflowId,
		CurrentStep:         p.CurrentStep,
		CompletedSteps:      datatypes.JSON(completedRaw),
		CollectedData:       datatypes.JSON(dataRaw),
		Progress:            p.Progress,
		IsCompleted:         p.IsCompleted,
		IsActive:            p.IsActive,
		EstimatedCompletion: p.EstimatedCompletion,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}, nil
}
