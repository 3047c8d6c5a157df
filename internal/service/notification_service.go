package service

import (
	"context"
	"fmt"

	"mnp-assistant-be/internal/pkg/logger"
	"mnp-assistant-be/pkg/events"
	pktNats "mnp-assistant-be/pkg/nats"

	"github.com/google/uuid"
)

const (
	notificationLogModule = "NotificationService"
	notificationDurable   = "realtime-relay"
)

// EventSubscriber is satisfied by the NATS subscriber.
type EventSubscriber interface {
	Subscribe(ctx context.Context, subject, durableName string, handler pktNats.EventHandler) error
}

// NotificationService relays bus events that carry a session id to that session's sockets.
type NotificationService struct {
	subscriber EventSubscriber
	pusher     RealtimePusher
	logger     logger.ILogger
}

func NewNotificationService(sub EventSubscriber, pusher RealtimePusher, log logger.ILogger) *NotificationService {
	return &NotificationService{
		subscriber: sub,
		pusher:     pusher,
		logger:     log,
	}
}

// Start registers the durable consumer. Delivery continues until ctx is done.
func (s *NotificationService) Start(ctx context.Context) error {
	if err := s.subscriber.Subscribe(ctx, events.Subject(">"), notificationDurable, s.HandleEvent); err != nil {
		return fmt.Errorf("start notification relay: %w", err)
	}
	s.logger.Info(notificationLogModule, "Notification relay started", map[string]interface{}{"subject": events.Subject(">")})
	return nil
}

// HandleEvent pushes one event. Events without a usable session id are acknowledged and dropped.
func (s *NotificationService) HandleEvent(ctx context.Context, event events.Event) error {
	payload := event.Payload()
	raw, _ := payload["session_id"].(string)
	sessionID, err := uuid.Parse(raw)
	if err != nil {
		s.logger.Warn(notificationLogModule, "Event without session id ignored", map[string]interface{}{
			"type": event.EventType(),
		})
		return nil
	}

	s.pusher.Push(ctx, sessionID, event.EventType(), payload)
	return nil
}
