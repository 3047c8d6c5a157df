package handler

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"mnp-assistant-be/internal/dto"
	"mnp-assistant-be/internal/pkg/logger"
	"mnp-assistant-be/internal/pkg/serverutils"
	"mnp-assistant-be/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "ws-secret"

type ownedSessions struct {
	owner   uuid.UUID
	session uuid.UUID
}

func (o ownedSessions) CreateSession(ctx context.Context, userId uuid.UUID, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	return nil, nil
}
func (o ownedSessions) GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error) {
	return nil, nil
}
func (o ownedSessions) GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error) {
	return nil, nil
}
func (o ownedSessions) SendChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	return nil, nil
}
func (o ownedSessions) DeleteSession(ctx context.Context, userId uuid.UUID, request *dto.DeleteSessionRequest) error {
	return nil
}
func (o ownedSessions) VerifySession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error {
	if userId != o.owner || sessionId != o.session {
		return apperror.NotFound("chat session %s", sessionId)
	}
	return nil
}

func TestServeWsHandshakeChecks(t *testing.T) {
	owner, session := uuid.New(), uuid.New()
	h := NewRealtimeHandler(ownedSessions{owner: owner, session: session}, nil, testSecret, logger.NopLogger{})

	app := fiber.New(fiber.Config{ErrorHandler: serverutils.ErrorHandler(logger.NopLogger{})})
	h.RegisterRoutes(app)

	token := func(userID uuid.UUID) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": userID.String(),
			"exp":     time.Now().Add(time.Hour).Unix(),
		}).SignedString([]byte(testSecret))
		require.NoError(t, err)
		return s
	}

	tests := []struct {
		name   string
		query  string
		status int
	}{
		{"missing token", "?session_id=" + session.String(), fiber.StatusUnauthorized},
		{"bad token", "?token=garbage&session_id=" + session.String(), fiber.StatusUnauthorized},
		{"bad session id", "?token=" + token(owner) + "&session_id=nope", fiber.StatusBadRequest},
		{"foreign session", "?token=" + token(uuid.New()) + "&session_id=" + session.String(), fiber.StatusNotFound},
		{"not an upgrade", "?token=" + token(owner) + "&session_id=" + session.String(), fiber.StatusUpgradeRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := app.Test(httptest.NewRequest("GET", "/ws"+tt.query, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
