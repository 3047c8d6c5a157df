package handler

import (
	"mnp-assistant-be/internal/pkg/logger"
	"mnp-assistant-be/internal/pkg/serverutils"
	"mnp-assistant-be/internal/service"
	internalWS "mnp-assistant-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const realtimeLogModule = "RealtimeHandler"

type RealtimeHandler struct {
	chatService service.IChatService
	hub         *internalWS.Hub
	jwtSecret   string
	logger      logger.ILogger
}

func NewRealtimeHandler(chatService service.IChatService, hub *internalWS.Hub, jwtSecret string, log logger.ILogger) *RealtimeHandler {
	return &RealtimeHandler{
		chatService: chatService,
		hub:         hub,
		jwtSecret:   jwtSecret,
		logger:      log,
	}
}

// ServeWs authenticates the handshake, checks the caller owns the session and then
// attaches the socket to the hub. Browsers pass the token as a query parameter.
func (h *RealtimeHandler) ServeWs(c *fiber.Ctx) error {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}
	if tokenStr == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse("Missing token", nil))
	}

	userID, _, err := serverutils.ParseToken(h.jwtSecret, tokenStr)
	if err != nil {
		h.logger.Warn(realtimeLogModule, "Invalid token in websocket handshake", map[string]interface{}{"error": err})
		return c.Status(fiber.StatusUnauthorized).JSON(serverutils.ErrorResponse("Invalid token", nil))
	}

	sessionID, err := uuid.Parse(c.Query("session_id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(serverutils.ErrorResponse("Invalid session_id", nil))
	}
	if err := h.chatService.VerifySession(c.UserContext(), userID, sessionID); err != nil {
		return err
	}

	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info(realtimeLogModule, "Socket opened", map[string]interface{}{
			"session_id": sessionID.String(),
			"user_id":    userID.String(),
		})
		internalWS.ServeWs(h.hub, conn, sessionID)
		h.logger.Info(realtimeLogModule, "Socket closed", map[string]interface{}{"session_id": sessionID.String()})
	})(c)
}

func (h *RealtimeHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws", h.ServeWs)
}
