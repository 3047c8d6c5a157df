package service

import (
	"context"
	"time"

	"mnp-assistant-be/internal/entity"
	"mnp-assistant-be/internal/pkg/logger"
	"mnp-assistant-be/internal/pkg/mailer"
	"mnp-assistant-be/pkg/events"

	"github.com/google/uuid"
)

const notifierLogModule = "EventNotifier"

// RealtimePusher delivers a message to every socket open on a chat session.
type RealtimePusher interface {
	Push(ctx context.Context, sessionID uuid.UUID, eventType string, data interface{})
}

var priorityRank = map[entity.TicketPriority]int{
	entity.TicketPriorityLow:    0,
	entity.TicketPriorityMedium: 1,
	entity.TicketPriorityHigh:   2,
	entity.TicketPriorityUrgent: 3,
}

// EventNotifier turns ticket and workflow changes into bus events, socket pushes and
// support-desk mail. It implements escalation.Notifier and workflow.CompletionNotifier.
//
// When the bus is up the realtime push happens in NotificationService, which consumes
// the same events; without a bus the notifier pushes directly.
type EventNotifier struct {
	publisher events.Publisher
	pusher    RealtimePusher
	mailer    mailer.IEmailService
	alertMin  entity.TicketPriority
	logger    logger.ILogger
	timeout   time.Duration
}

func NewEventNotifier(publisher events.Publisher, pusher RealtimePusher, mail mailer.IEmailService, alertMin entity.TicketPriority, log logger.ILogger) *EventNotifier {
	if !alertMin.Valid() {
		alertMin = entity.TicketPriorityHigh
	}
	return &EventNotifier{
		publisher: publisher,
		pusher:    pusher,
		mailer:    mail,
		alertMin:  alertMin,
		logger:    log,
		timeout:   5 * time.Second,
	}
}

func (n *EventNotifier) TicketCreated(ctx context.Context, ticket *entity.EscalationTicket) {
	n.emit(ctx, ticket.SessionId, events.New(events.EscalationCreated, ticketPayload(ticket)))

	if n.mailer != nil && priorityRank[ticket.Priority] >= priorityRank[n.alertMin] {
		t := *ticket
		go func() {
			if err := n.mailer.SendEscalationAlert(&t); err != nil {
				n.logger.Error(notifierLogModule, "Failed to send escalation alert", map[string]interface{}{
					"ticket_id": t.Id.String(),
					"error":     err,
				})
			}
		}()
	}
}

func (n *EventNotifier) TicketStatusChanged(ctx context.Context, ticket *entity.EscalationTicket, from entity.TicketStatus) {
	payload := ticketPayload(ticket)
	payload["from_status"] = string(from)
	n.emit(ctx, ticket.SessionId, events.New(events.TicketStatusChanged, payload))
}

func (n *EventNotifier) WorkflowCompleted(ctx context.Context, progress *entity.WorkflowProgress) {
	n.emit(ctx, progress.SessionId, events.New(events.WorkflowCompleted, map[string]interface{}{
		"session_id":  progress.SessionId.String(),
		"workflow_id": progress.WorkflowId,
		"progress":    progress.Progress,
	}))
}

func (n *EventNotifier) emit(ctx context.Context, sessionID uuid.UUID, evt events.BaseEvent) {
	if n.publisher != nil {
		pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
		err := n.publisher.Publish(pubCtx, evt)
		cancel()
		if err == nil {
			return
		}
		n.logger.Warn(notifierLogModule, "Failed to publish event, pushing directly", map[string]interface{}{
			"type":       evt.Type,
			"session_id": sessionID.String(),
			"error":      err,
		})
	}
	if n.pusher != nil {
		n.pusher.Push(ctx, sessionID, evt.Type, evt.Data)
	}
}

func ticketPayload(t *entity.EscalationTicket) map[string]interface{} {
	payload := map[string]interface{}{
		"ticket_id":              t.Id.String(),
		"session_id":             t.SessionId.String(),
		"status":                 string(t.Status),
		"priority":               string(t.Priority),
		"trigger":                t.Trigger,
		"reason":                 t.Reason,
		"queue_position":         t.QueuePosition,
		"estimated_wait_minutes": t.EstimatedWaitMinutes,
	}
	if t.AssignedAgentId != nil {
		payload["assigned_agent_id"] = *t.AssignedAgentId
	}
	return payload
}
