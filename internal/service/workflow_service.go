package service

import (
	"context"

	"mnp-assistant-be/internal/dto"
	"mnp-assistant-be/internal/repository/unitofwork"
	"mnp-assistant-be/pkg/apperror"
	"mnp-assistant-be/pkg/workflow"

	"github.com/google/uuid"
)

type IWorkflowService interface {
	Start(ctx context.Context, userId uuid.UUID, request *dto.StartWorkflowRequest) (*dto.WorkflowStateResponse, error)
	Advance(ctx context.Context, userId uuid.UUID, request *dto.AdvanceWorkflowRequest) (*dto.WorkflowStateResponse, error)
	Skip(ctx context.Context, userId uuid.UUID, request *dto.SkipWorkflowRequest) (*dto.WorkflowStateResponse, error)
	Reset(ctx context.Context, userId uuid.UUID, request *dto.ResetWorkflowRequest) (*dto.WorkflowStateResponse, error)
	Current(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.WorkflowStateResponse, error)
}

// WorkflowRunner is the engine surface the HTTP layer needs.
type WorkflowRunner interface {
	Start(ctx context.Context, sessionID uuid.UUID, workflowID string, initialData map[string]interface{}) (*workflow.State, error)
	Advance(ctx context.Context, in workflow.AdvanceInput) (*workflow.State, error)
	Skip(ctx context.Context, sessionID uuid.UUID, reason string) (*workflow.State, error)
	Current(ctx context.Context, sessionID uuid.UUID) (*workflow.State, error)
	Reset(ctx context.Context, sessionID uuid.UUID, workflowID string) (*workflow.State, error)
}

type workflowService struct {
	uowFactory unitofwork.RepositoryFactory
	engine     WorkflowRunner
}

func NewWorkflowService(uowFactory unitofwork.RepositoryFactory, engine WorkflowRunner) IWorkflowService {
	return &workflowService{uowFactory: uowFactory, engine: engine}
}

// Start seeds the answers bag with the session's carriers; explicit initial data wins.
func (ws *workflowService) Start(ctx context.Context, userId uuid.UUID, request *dto.StartWorkflowRequest) (*dto.WorkflowStateResponse, error) {
	chatSession, err := findOwnedSession(ctx, ws.uowFactory.NewUnitOfWork(ctx), userId, request.ChatSessionId)
	if err != nil {
		return nil, err
	}

	data := make(map[string]interface{}, len(request.InitialData)+2)
	if chatSession.Carrier != "" {
		data[workflow.DataFromCarrier] = chatSession.Carrier
	}
	if chatSession.TargetCarrier != "" {
		data[workflow.DataToCarrier] = chatSession.TargetCarrier
	}
	for k, v := range request.InitialData {
		data[k] = v
	}

	state, err := ws.engine.Start(ctx, chatSession.Id, request.WorkflowId, data)
	if err != nil {
		return nil, err
	}
	return toWorkflowStateResponse(state), nil
}

func (ws *workflowService) Advance(ctx context.Context, userId uuid.UUID, request *dto.AdvanceWorkflowRequest) (*dto.WorkflowStateResponse, error) {
	if _, err := findOwnedSession(ctx, ws.uowFactory.NewUnitOfWork(ctx), userId, request.ChatSessionId); err != nil {
		return nil, err
	}

	state, err := ws.engine.Advance(ctx, workflow.AdvanceInput{
		SessionID:      request.ChatSessionId,
		CurrentStepID:  request.CurrentStepId,
		UserInput:      request.UserInput,
		SelectedOption: request.SelectedOption,
	})
	if err != nil {
		return nil, err
	}
	return toWorkflowStateResponse(state), nil
}

func (ws *workflowService) Skip(ctx context.Context, userId uuid.UUID, request *dto.SkipWorkflowRequest) (*dto.WorkflowStateResponse, error) {
	if _, err := findOwnedSession(ctx, ws.uowFactory.NewUnitOfWork(ctx), userId, request.ChatSessionId); err != nil {
		return nil, err
	}

	state, err := ws.engine.Skip(ctx, request.ChatSessionId, request.Reason)
	if err != nil {
		return nil, err
	}
	return toWorkflowStateResponse(state), nil
}

func (ws *workflowService) Reset(ctx context.Context, userId uuid.UUID, request *dto.ResetWorkflowRequest) (*dto.WorkflowStateResponse, error) {
	if _, err := findOwnedSession(ctx, ws.uowFactory.NewUnitOfWork(ctx), userId, request.ChatSessionId); err != nil {
		return nil, err
	}

	state, err := ws.engine.Reset(ctx, request.ChatSessionId, request.WorkflowId)
	if err != nil {
		return nil, err
	}
	return toWorkflowStateResponse(state), nil
}

func (ws *workflowService) Current(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.WorkflowStateResponse, error) {
	if _, err := findOwnedSession(ctx, ws.uowFactory.NewUnitOfWork(ctx), userId, sessionId); err != nil {
		return nil, err
	}

	state, err := ws.engine.Current(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, apperror.NotFound("no active workflow for session %s", sessionId)
	}
	return toWorkflowStateResponse(state), nil
}

func toWorkflowStateResponse(state *workflow.State) *dto.WorkflowStateResponse {
	if state == nil {
		return nil
	}
	completed := state.CompletedSteps
	if completed == nil {
		completed = []string{}
	}
	res := &dto.WorkflowStateResponse{
		WorkflowId:          state.WorkflowID,
		Progress:            state.Progress,
		Completed:           state.Completed,
		CompletedSteps:      completed,
		CollectedData:       state.CollectedData,
		EstimatedCompletion: state.EstimatedCompletion,
		AutoSkipped:         state.AutoSkipped,
	}
	if state.Step != nil {
		step := &dto.StepDTO{
			Id:       state.Step.ID,
			Type:     string(state.Step.Type),
			Title:    state.Step.Title,
			Content:  state.Step.Content,
			Required: state.Step.Validation != nil && state.Step.Validation.Required,
		}
		for _, opt := range state.Step.Options {
			step.Options = append(step.Options, dto.StepOptionDTO{Value: opt.Value, Label: opt.Label})
		}
		res.Step = step
	}
	return res
}
