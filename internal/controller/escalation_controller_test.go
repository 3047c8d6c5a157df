package controller

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mnp-assistant-be/internal/dto"
	"mnp-assistant-be/internal/pkg/logger"
	"mnp-assistant-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "controller-secret"

type mockEscalationService struct {
	mock.Mock
}

func (m *mockEscalationService) Initiate(ctx context.Context, userId uuid.UUID, request *dto.InitiateEscalationRequest) (*dto.TicketResponse, error) {
	args := m.Called(ctx, userId, request)
	res, _ := args.Get(0).(*dto.TicketResponse)
	return res, args.Error(1)
}

func (m *mockEscalationService) GetTicket(ctx context.Context, userId uuid.UUID, isAgent bool, ticketId uuid.UUID) (*dto.TicketResponse, error) {
	args := m.Called(ctx, userId, isAgent, ticketId)
	res, _ := args.Get(0).(*dto.TicketResponse)
	return res, args.Error(1)
}

func (m *mockEscalationService) UpdateStatus(ctx context.Context, ticketId uuid.UUID, request *dto.UpdateTicketStatusRequest) (*dto.TicketResponse, error) {
	args := m.Called(ctx, ticketId, request)
	res, _ := args.Get(0).(*dto.TicketResponse)
	return res, args.Error(1)
}

func (m *mockEscalationService) Resolve(ctx context.Context, ticketId uuid.UUID, request *dto.ResolveTicketRequest) (*dto.TicketResponse, error) {
	args := m.Called(ctx, ticketId, request)
	res, _ := args.Get(0).(*dto.TicketResponse)
	return res, args.Error(1)
}

func (m *mockEscalationService) Cancel(ctx context.Context, userId uuid.UUID, isAgent bool, ticketId uuid.UUID, request *dto.CancelTicketRequest) (*dto.TicketResponse, error) {
	args := m.Called(ctx, userId, isAgent, ticketId, request)
	res, _ := args.Get(0).(*dto.TicketResponse)
	return res, args.Error(1)
}

func (m *mockEscalationService) List(ctx context.Context, query *dto.ListTicketsQuery) ([]*dto.TicketResponse, error) {
	args := m.Called(ctx, query)
	res, _ := args.Get(0).([]*dto.TicketResponse)
	return res, args.Error(1)
}

func (m *mockEscalationService) Stats(ctx context.Context, query *dto.TicketStatsQuery) (*dto.TicketStatsResponse, error) {
	args := m.Called(ctx, query)
	res, _ := args.Get(0).(*dto.TicketStatsResponse)
	return res, args.Error(1)
}

func bearer(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID.String(),
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + tok
}

func newEscalationApp(svc *mockEscalationService) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: serverutils.ErrorHandler(logger.NopLogger{})})
	NewEscalationController(svc).RegisterRoutes(app.Group("/api"), serverutils.JwtMiddleware(testSecret))
	return app
}

func TestEscalationInitiateAsCustomer(t *testing.T) {
	svc := new(mockEscalationService)
	app := newEscalationApp(svc)
	userID, sessionID := uuid.New(), uuid.New()

	svc.On("Initiate", mock.Anything, userID, mock.MatchedBy(func(r *dto.InitiateEscalationRequest) bool {
		return r.ChatSessionId == sessionID && r.Priority == "high"
	})).Return(&dto.TicketResponse{Id: uuid.New(), Status: "pending"}, nil)

	req := httptest.NewRequest("POST", "/api/escalation/v1", strings.NewReader(`{"chat_session_id":"`+sessionID.String()+`","priority":"high"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, userID, "user"))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
	svc.AssertExpectations(t)
}

func TestEscalationRejectsBadPriority(t *testing.T) {
	app := newEscalationApp(new(mockEscalationService))

	req := httptest.NewRequest("POST", "/api/escalation/v1", strings.NewReader(`{"chat_session_id":"`+uuid.NewString()+`","priority":"asap"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, uuid.New(), "user"))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestEscalationAgentRoutes(t *testing.T) {
	svc := new(mockEscalationService)
	app := newEscalationApp(svc)
	ticketID := uuid.New()

	svc.On("UpdateStatus", mock.Anything, ticketID, mock.Anything).
		Return(&dto.TicketResponse{Id: ticketID, Status: "assigned"}, nil)
	svc.On("List", mock.Anything, mock.MatchedBy(func(q *dto.ListTicketsQuery) bool {
		return q.Status == "pending" && q.Limit == 10
	})).Return([]*dto.TicketResponse{}, nil)

	put := func(auth string) int {
		req := httptest.NewRequest("PUT", "/api/escalation/v1/"+ticketID.String()+"/status", strings.NewReader(`{"status":"assigned","agent_id":"agent-7"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", auth)
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}
	assert.Equal(t, fiber.StatusForbidden, put(bearer(t, uuid.New(), "user")))
	assert.Equal(t, fiber.StatusOK, put(bearer(t, uuid.New(), "agent")))

	req := httptest.NewRequest("GET", "/api/escalation/v1?status=pending&limit=10", nil)
	req.Header.Set("Authorization", bearer(t, uuid.New(), "admin"))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	svc.AssertExpectations(t)
}

func TestEscalationShowPassesAgentFlag(t *testing.T) {
	svc := new(mockEscalationService)
	app := newEscalationApp(svc)
	userID, ticketID := uuid.New(), uuid.New()

	svc.On("GetTicket", mock.Anything, userID, false, ticketID).Return(&dto.TicketResponse{Id: ticketID}, nil)

	req := httptest.NewRequest("GET", "/api/escalation/v1/"+ticketID.String(), nil)
	req.Header.Set("Authorization", bearer(t, userID, "user"))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest("GET", "/api/escalation/v1/not-a-uuid", nil)
	req.Header.Set("Authorization", bearer(t, userID, "user"))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	svc.AssertExpectations(t)
}
