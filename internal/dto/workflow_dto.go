package dto

import (
	"time"

	"github.com/google/uuid"
)

type StartWorkflowRequest struct {
	ChatSessionId uuid.UUID              `json:"chat_session_id" validate:"required"`
	WorkflowId    string                 `json:"workflow_id" validate:"required,max=100"`
	InitialData   map[string]interface{} `json:"initial_data,omitempty"`
}

type AdvanceWorkflowRequest struct {
	ChatSessionId  uuid.UUID `json:"chat_session_id" validate:"required"`
	CurrentStepId  string    `json:"current_step_id" validate:"max=100"`
	UserInput      string    `json:"user_input" validate:"max=2000"`
	SelectedOption string    `json:"selected_option" validate:"max=100"`
}

type SkipWorkflowRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id" validate:"required"`
	Reason        string    `json:"reason" validate:"max=500"`
}

type ResetWorkflowRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id" validate:"required"`
	WorkflowId    string    `json:"workflow_id" validate:"max=100"`
}

type StepOptionDTO struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type StepDTO struct {
	Id       string          `json:"id"`
	Type     string          `json:"type"`
	Title    string          `json:"title"`
	Content  string          `json:"content"`
	Options  []StepOptionDTO `json:"options,omitempty"`
	Required bool            `json:"required"`
}

type WorkflowStateResponse struct {
	WorkflowId          string                 `json:"workflow_id"`
	Step                *StepDTO               `json:"step,omitempty"`
	Progress            int                    `json:"progress"`
	Completed           bool                   `json:"completed"`
	CompletedSteps      []string               `json:"completed_steps"`
	CollectedData       map[string]interface{} `json:"collected_data,omitempty"`
	EstimatedCompletion *time.Time             `json:"estimated_completion,omitempty"`
	AutoSkipped         []string               `json:"auto_skipped,omitempty"`
}
