package service

import (
	"context"
	"testing"
	"time"

	"mnp-assistant-be/internal/dto"
	"mnp-assistant-be/internal/entity"
	"mnp-assistant-be/internal/pkg/logger"
	"mnp-assistant-be/pkg/apperror"
	"mnp-assistant-be/pkg/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkflowServiceForTest(t *testing.T) (IWorkflowService, *fakeStore) {
	t.Helper()
	registry, err := workflow.LoadBuiltin()
	require.NoError(t, err)
	engine := workflow.NewEngine(registry, workflow.NewMemoryStore(), nil, logger.NopLogger{})
	store := newFakeStore()
	return NewWorkflowService(store, engine), store
}

func seedSession(store *fakeStore, userID uuid.UUID, carrier, target string) uuid.UUID {
	id := uuid.New()
	store.sessions[id] = &entity.ChatSession{Id: id, UserId: userID, Carrier: carrier, TargetCarrier: target, CreatedAt: time.Now()}
	return id
}

func TestWorkflowServiceStartSeedsCarriers(t *testing.T) {
	svc, store := newWorkflowServiceForTest(t)
	userID := uuid.New()
	sessionID := seedSession(store, userID, "docomo", "au")

	state, err := svc.Start(context.Background(), userID, &dto.StartWorkflowRequest{
		ChatSessionId: sessionID,
		WorkflowId:    "carrier_switch",
		InitialData:   map[string]interface{}{"plan": "5g"},
	})
	require.NoError(t, err)

	require.NotNil(t, state.Step)
	assert.Equal(t, "welcome", state.Step.Id)
	assert.Equal(t, "docomo", state.CollectedData[workflow.DataFromCarrier])
	assert.Equal(t, "au", state.CollectedData[workflow.DataToCarrier])
	assert.Equal(t, "5g", state.CollectedData["plan"])
	assert.NotNil(t, state.CompletedSteps)
}

func TestWorkflowServiceAdvanceAndCurrent(t *testing.T) {
	svc, store := newWorkflowServiceForTest(t)
	userID := uuid.New()
	sessionID := seedSession(store, userID, "", "")
	ctx := context.Background()

	_, err := svc.Start(ctx, userID, &dto.StartWorkflowRequest{ChatSessionId: sessionID, WorkflowId: "carrier_switch"})
	require.NoError(t, err)

	next, err := svc.Advance(ctx, userID, &dto.AdvanceWorkflowRequest{ChatSessionId: sessionID, CurrentStepId: "welcome"})
	require.NoError(t, err)
	require.NotNil(t, next.Step)
	assert.Equal(t, "check_contract", next.Step.Id)
	assert.Len(t, next.Step.Options, 3)
	assert.Contains(t, next.CompletedSteps, "welcome")

	current, err := svc.Current(ctx, userID, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "check_contract", current.Step.Id)
}

func TestWorkflowServiceCurrentWithoutWorkflow(t *testing.T) {
	svc, store := newWorkflowServiceForTest(t)
	userID := uuid.New()
	sessionID := seedSession(store, userID, "", "")

	_, err := svc.Current(context.Background(), userID, sessionID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestWorkflowServiceChecksOwnership(t *testing.T) {
	svc, store := newWorkflowServiceForTest(t)
	sessionID := seedSession(store, uuid.New(), "", "")

	_, err := svc.Start(context.Background(), uuid.New(), &dto.StartWorkflowRequest{ChatSessionId: sessionID, WorkflowId: "carrier_switch"})
	assert.True(t, apperror.IsNotFound(err))
}

func TestWorkflowServiceUnknownWorkflow(t *testing.T) {
	svc, store := newWorkflowServiceForTest(t)
	userID := uuid.New()
	sessionID := seedSession(store, userID, "", "")

	_, err := svc.Start(context.Background(), userID, &dto.StartWorkflowRequest{ChatSessionId: sessionID, WorkflowId: "nope"})
	assert.True(t, apperror.IsNotFound(err))
}
