package service

import (
	"context"
	"testing"
	"time"

	"mnp-assistant-be/internal/dto"
	"mnp-assistant-be/internal/entity"
	"mnp-assistant-be/pkg/apperror"
	"mnp-assistant-be/pkg/escalation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockTicketDesk struct {
	mock.Mock
}

func (m *mockTicketDesk) Initiate(ctx context.Context, req escalation.InitiateRequest) (*entity.EscalationTicket, error) {
	args := m.Called(ctx, req)
	t, _ := args.Get(0).(*entity.EscalationTicket)
	return t, args.Error(1)
}

func (m *mockTicketDesk) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.TicketStatus, agentID *string) (*entity.EscalationTicket, error) {
	args := m.Called(ctx, id, status, agentID)
	t, _ := args.Get(0).(*entity.EscalationTicket)
	return t, args.Error(1)
}

func (m *mockTicketDesk) Resolve(ctx context.Context, id uuid.UUID, req escalation.ResolveRequest) (*entity.EscalationTicket, error) {
	args := m.Called(ctx, id, req)
	t, _ := args.Get(0).(*entity.EscalationTicket)
	return t, args.Error(1)
}

func (m *mockTicketDesk) Cancel(ctx context.Context, id uuid.UUID, reason string) (*entity.EscalationTicket, error) {
	args := m.Called(ctx, id, reason)
	t, _ := args.Get(0).(*entity.EscalationTicket)
	return t, args.Error(1)
}

func (m *mockTicketDesk) GetStatus(ctx context.Context, id uuid.UUID) (*entity.EscalationTicket, error) {
	args := m.Called(ctx, id)
	t, _ := args.Get(0).(*entity.EscalationTicket)
	return t, args.Error(1)
}

func (m *mockTicketDesk) List(ctx context.Context, filter escalation.TicketFilter) ([]*entity.EscalationTicket, error) {
	args := m.Called(ctx, filter)
	t, _ := args.Get(0).([]*entity.EscalationTicket)
	return t, args.Error(1)
}

func (m *mockTicketDesk) Stats(ctx context.Context, period time.Duration) (*escalation.Stats, error) {
	args := m.Called(ctx, period)
	s, _ := args.Get(0).(*escalation.Stats)
	return s, args.Error(1)
}

func TestEscalationInitiateDefaults(t *testing.T) {
	store := newFakeStore()
	desk := &mockTicketDesk{}
	svc := NewEscalationService(store, desk)
	userID := uuid.New()
	sessionID := seedSession(store, userID, "", "")

	ticket := &entity.EscalationTicket{Id: uuid.New(), SessionId: sessionID, Priority: entity.TicketPriorityMedium, Status: entity.TicketStatusPending, QueuePosition: 1, EstimatedWaitMinutes: 20}
	desk.On("Initiate", mock.Anything, escalation.InitiateRequest{
		SessionID: sessionID,
		Reason:    defaultUserReason,
		Trigger:   escalation.TriggerUserRequest,
		Priority:  entity.TicketPriorityMedium,
	}).Return(ticket, nil).Once()

	res, err := svc.Initiate(context.Background(), userID, &dto.InitiateEscalationRequest{ChatSessionId: sessionID})
	require.NoError(t, err)
	assert.Equal(t, "pending", res.Status)
	assert.Equal(t, 1, res.QueuePosition)
	desk.AssertExpectations(t)
}

func TestEscalationInitiateConflictPassesThrough(t *testing.T) {
	store := newFakeStore()
	desk := &mockTicketDesk{}
	svc := NewEscalationService(store, desk)
	userID := uuid.New()
	sessionID := seedSession(store, userID, "", "")

	desk.On("Initiate", mock.Anything, mock.Anything).Return(nil, apperror.Conflict("session %s already has an active ticket", sessionID))

	_, err := svc.Initiate(context.Background(), userID, &dto.InitiateEscalationRequest{ChatSessionId: sessionID, Priority: "high"})
	assert.True(t, apperror.IsConflict(err))
}

func TestEscalationGetTicketVisibility(t *testing.T) {
	store := newFakeStore()
	desk := &mockTicketDesk{}
	svc := NewEscalationService(store, desk)
	owner := uuid.New()
	sessionID := seedSession(store, owner, "", "")
	ticket := &entity.EscalationTicket{Id: uuid.New(), SessionId: sessionID, Status: entity.TicketStatusPending}
	desk.On("GetStatus", mock.Anything, ticket.Id).Return(ticket, nil)

	res, err := svc.GetTicket(context.Background(), owner, false, ticket.Id)
	require.NoError(t, err)
	assert.Equal(t, ticket.Id, res.Id)

	_, err = svc.GetTicket(context.Background(), uuid.New(), false, ticket.Id)
	assert.True(t, apperror.IsNotFound(err))

	res, err = svc.GetTicket(context.Background(), uuid.New(), true, ticket.Id)
	require.NoError(t, err)
	assert.Equal(t, sessionID, res.ChatSessionId)
}

func TestEscalationListBuildsFilter(t *testing.T) {
	desk := &mockTicketDesk{}
	svc := NewEscalationService(newFakeStore(), desk)
	sessionID := uuid.New()

	desk.On("List", mock.Anything, mock.MatchedBy(func(f escalation.TicketFilter) bool {
		return f.Status != nil && *f.Status == entity.TicketStatusPending &&
			f.Priority != nil && *f.Priority == entity.TicketPriorityUrgent &&
			f.SessionID != nil && *f.SessionID == sessionID &&
			f.AssignedAgentID == nil && f.Limit == 10
	})).Return([]*entity.EscalationTicket{{Id: uuid.New(), SessionId: sessionID}}, nil)

	res, err := svc.List(context.Background(), &dto.ListTicketsQuery{Status: "pending", Priority: "urgent", SessionId: sessionID.String(), Limit: 10})
	require.NoError(t, err)
	assert.Len(t, res, 1)
	desk.AssertExpectations(t)
}

func TestEscalationStatsConvertsKeys(t *testing.T) {
	desk := &mockTicketDesk{}
	svc := NewEscalationService(newFakeStore(), desk)

	desk.On("Stats", mock.Anything, 48*time.Hour).Return(&escalation.Stats{
		Total:              3,
		ByStatus:           map[entity.TicketStatus]int{entity.TicketStatusPending: 2, entity.TicketStatusResolved: 1},
		ByPriority:         map[entity.TicketPriority]int{entity.TicketPriorityHigh: 3},
		AverageWaitMinutes: 12.5,
		QueueLength:        2,
	}, nil)

	res, err := svc.Stats(context.Background(), &dto.TicketStatsQuery{PeriodHours: 48})
	require.NoError(t, err)
	assert.Equal(t, 2, res.ByStatus["pending"])
	assert.Equal(t, 3, res.ByPriority["high"])
	assert.Equal(t, 12.5, res.AverageWaitMinutes)
}
