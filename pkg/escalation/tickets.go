package escalation

import (
	"context"
	"strings"
	"time"

	"mnp-assistant-be/internal/entity"
	"mnp-assistant-be/pkg/apperror"

	"github.com/google/uuid"
)

type TicketFilter struct {
	Status          *entity.TicketStatus
	Priority        *entity.TicketPriority
	AssignedAgentID *string
	SessionID       *uuid.UUID
	Limit           int
	Offset          int
}

// TicketAggregate holds the grouped counts a store computes for Stats.
type TicketAggregate struct {
	ByStatus      map[entity.TicketStatus]int
	ByPriority    map[entity.TicketPriority]int
	AvgWait       time.Duration
	AvgResolution time.Duration
}

// TicketStore is the persistence port for tickets.
type TicketStore interface {
	// WithQueueLock runs fn with the queue locked; the store handed to fn shares that lock's transaction.
	WithQueueLock(ctx context.Context, fn func(tx TicketStore) error) error
	Create(ctx context.Context, ticket *entity.EscalationTicket) error
	Update(ctx context.Context, ticket *entity.EscalationTicket) error
	// FindByID and FindActiveBySession return nil, nil when nothing matches.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.EscalationTicket, error)
	FindActiveBySession(ctx context.Context, sessionID uuid.UUID) (*entity.EscalationTicket, error)
	CountByStatus(ctx context.Context, statuses []entity.TicketStatus) (int64, error)
	List(ctx context.Context, filter TicketFilter) ([]*entity.EscalationTicket, error)
	Aggregate(ctx context.Context, since time.Time) (*TicketAggregate, error)
}

// Notifier hears about ticket changes after they are stored.
type Notifier interface {
	TicketCreated(ctx context.Context, ticket *entity.EscalationTicket)
	TicketStatusChanged(ctx context.Context, ticket *entity.EscalationTicket, from entity.TicketStatus)
}

var baseWaitMinutes = map[entity.TicketPriority]int{
	entity.TicketPriorityUrgent: 5,
	entity.TicketPriorityHigh:   10,
	entity.TicketPriorityMedium: 20,
	entity.TicketPriorityLow:    30,
}

// EstimateWait is the base wait for the priority plus five minutes per two queued tickets.
func EstimateWait(priority entity.TicketPriority, queueLength int) int {
	base, ok := baseWaitMinutes[priority]
	if !ok {
		base = 20
	}
	return base + (queueLength/2)*5
}

// transitions lists the legal next statuses. Terminal statuses have none.
var transitions = map[entity.TicketStatus][]entity.TicketStatus{
	entity.TicketStatusPending:         {entity.TicketStatusAssigned, entity.TicketStatusInProgress, entity.TicketStatusCancelled},
	entity.TicketStatusAssigned:        {entity.TicketStatusInProgress, entity.TicketStatusPending, entity.TicketStatusCancelled},
	entity.TicketStatusInProgress:      {entity.TicketStatusWaitingCustomer, entity.TicketStatusResolved, entity.TicketStatusCancelled},
	entity.TicketStatusWaitingCustomer: {entity.TicketStatusInProgress, entity.TicketStatusResolved, entity.TicketStatusCancelled},
}

func CanTransition(from, to entity.TicketStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type InitiateRequest struct {
	SessionID uuid.UUID
	Reason    string
	Trigger   string
	Priority  entity.TicketPriority
}

type ResolveRequest struct {
	Resolution string
	Feedback   *string
	Rating     *int
}

type Stats struct {
	Since                 time.Time
	Total                 int
	ByStatus              map[entity.TicketStatus]int
	ByPriority            map[entity.TicketPriority]int
	AverageWaitMinutes    float64
	AverageResolveMinutes float64
	QueueLength           int
}

// Initiate creates a pending ticket. A session with an active ticket gets a Conflict.
func (a *Arbiter) Initiate(ctx context.Context, req InitiateRequest) (*entity.EscalationTicket, error) {
	if req.SessionID == uuid.Nil {
		return nil, apperror.Validation("session id is required", map[string]string{"sessionId": "required"})
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		return nil, apperror.Validation("reason is required", map[string]string{"reason": "required"})
	}
	if req.Priority == "" {
		req.Priority = entity.TicketPriorityMedium
	}
	if !req.Priority.Valid() {
		return nil, apperror.Validation("invalid priority", map[string]string{"priority": "must be low, medium, high or urgent"})
	}
	if req.Trigger == "" {
		req.Trigger = TriggerUserRequest
	}

	a.queueMu.Lock()
	defer a.queueMu.Unlock()

	var ticket *entity.EscalationTicket
	err := a.store.WithQueueLock(ctx, func(tx TicketStore) error {
		active, err := tx.FindActiveBySession(ctx, req.SessionID)
		if err != nil {
			return apperror.Upstream("find active ticket", err)
		}
		if active != nil {
			return apperror.Conflict("session %s already has active ticket %s", req.SessionID, active.Id)
		}

		queued, err := tx.CountByStatus(ctx, entity.QueuedStatuses)
		if err != nil {
			return apperror.Upstream("count queued tickets", err)
		}

		now := a.now()
		ticket = &entity.EscalationTicket{
			Id:                   uuid.New(),
			SessionId:            req.SessionID,
			Reason:               req.Reason,
			Trigger:              req.Trigger,
			Priority:             req.Priority,
			Status:               entity.TicketStatusPending,
			QueuePosition:        int(queued) + 1,
			EstimatedWaitMinutes: EstimateWait(req.Priority, int(queued)),
			CreatedAt:            now,
			UpdatedAt:            now,
		}
		if err := tx.Create(ctx, ticket); err != nil {
			return apperror.Upstream("create ticket", err)
		}
		return nil
	})
	if err != nil {
		if !apperror.IsConflict(err) {
			a.logger.Error(logModule, "Failed to initiate escalation", map[string]interface{}{
				"session_id": req.SessionID.String(),
				"error":      err,
			})
		}
		return nil, err
	}

	a.metrics.ObserveEscalation(ticket.Trigger, string(ticket.Priority))
	a.logger.Info(logModule, "Escalation ticket created", map[string]interface{}{
		"ticket_id":      ticket.Id.String(),
		"session_id":     ticket.SessionId.String(),
		"priority":       ticket.Priority,
		"trigger":        ticket.Trigger,
		"queue_position": ticket.QueuePosition,
		"wait_minutes":   ticket.EstimatedWaitMinutes,
	})
	for _, n := range a.notifiers {
		n.TicketCreated(ctx, ticket)
	}
	return ticket, nil
}

// UpdateStatus moves a ticket along a legal edge. agentID is recorded when given.
func (a *Arbiter) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.TicketStatus, agentID *string) (*entity.EscalationTicket, error) {
	if !status.Valid() {
		return nil, apperror.Validation("invalid status", map[string]string{"status": "unknown status"})
	}
	return a.change(ctx, id, status, func(t *entity.EscalationTicket) {
		if agentID != nil && *agentID != "" {
			t.AssignedAgentId = agentID
		}
	})
}

// Resolve closes a ticket and records the outcome. Rating must be 1-5 when given.
func (a *Arbiter) Resolve(ctx context.Context, id uuid.UUID, req ResolveRequest) (*entity.EscalationTicket, error) {
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 5) {
		return nil, apperror.Validation("rating must be between 1 and 5", map[string]string{"rating": "range"})
	}
	return a.change(ctx, id, entity.TicketStatusResolved, func(t *entity.EscalationTicket) {
		if r := strings.TrimSpace(req.Resolution); r != "" {
			t.Resolution = &r
		}
		t.Feedback = req.Feedback
		t.Rating = req.Rating
	})
}

func (a *Arbiter) Cancel(ctx context.Context, id uuid.UUID, reason string) (*entity.EscalationTicket, error) {
	return a.change(ctx, id, entity.TicketStatusCancelled, func(t *entity.EscalationTicket) {
		if r := strings.TrimSpace(reason); r != "" {
			t.Resolution = &r
		}
	})
}

func (a *Arbiter) change(ctx context.Context, id uuid.UUID, to entity.TicketStatus, mutate func(*entity.EscalationTicket)) (*entity.EscalationTicket, error) {
	var (
		ticket *entity.EscalationTicket
		from   entity.TicketStatus
	)
	err := a.store.WithQueueLock(ctx, func(tx TicketStore) error {
		current, err := tx.FindByID(ctx, id)
		if err != nil {
			return apperror.Upstream("find ticket", err)
		}
		if current == nil {
			return apperror.NotFound("ticket %s not found", id)
		}
		from = current.Status
		if from.IsTerminal() {
			return apperror.Conflict("ticket %s is already %s", id, from)
		}
		if !CanTransition(from, to) {
			return apperror.Conflict("ticket %s cannot move from %s to %s", id, from, to)
		}

		now := a.now()
		current.Status = to
		current.UpdatedAt = now
		if to == entity.TicketStatusAssigned || to == entity.TicketStatusInProgress {
			if current.AssignedAt == nil {
				current.AssignedAt = &now
			}
		}
		if to.IsTerminal() {
			current.ResolvedAt = &now
		}
		if mutate != nil {
			mutate(current)
		}

		if err := tx.Update(ctx, current); err != nil {
			return apperror.Upstream("update ticket", err)
		}
		ticket = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	a.logger.Info(logModule, "Ticket status changed", map[string]interface{}{
		"ticket_id": ticket.Id.String(),
		"from":      from,
		"to":        to,
	})
	for _, n := range a.notifiers {
		n.TicketStatusChanged(ctx, ticket, from)
	}
	return ticket, nil
}

func (a *Arbiter) GetStatus(ctx context.Context, id uuid.UUID) (*entity.EscalationTicket, error) {
	t, err := a.store.FindByID(ctx, id)
	if err != nil {
		return nil, apperror.Upstream("find ticket", err)
	}
	if t == nil {
		return nil, apperror.NotFound("ticket %s not found", id)
	}
	return t, nil
}

// ActiveForSession returns nil, nil when the session has no open ticket.
func (a *Arbiter) ActiveForSession(ctx context.Context, sessionID uuid.UUID) (*entity.EscalationTicket, error) {
	t, err := a.store.FindActiveBySession(ctx, sessionID)
	if err != nil {
		return nil, apperror.Upstream("find active ticket", err)
	}
	return t, nil
}

func (a *Arbiter) List(ctx context.Context, filter TicketFilter) ([]*entity.EscalationTicket, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, apperror.Validation("invalid status filter", map[string]string{"status": "unknown status"})
	}
	if filter.Priority != nil && !filter.Priority.Valid() {
		return nil, apperror.Validation("invalid priority filter", map[string]string{"priority": "unknown priority"})
	}
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 50
	}
	tickets, err := a.store.List(ctx, filter)
	if err != nil {
		return nil, apperror.Upstream("list tickets", err)
	}
	return tickets, nil
}

// Stats summarises tickets created within period before now.
func (a *Arbiter) Stats(ctx context.Context, period time.Duration) (*Stats, error) {
	if period <= 0 {
		period = 24 * time.Hour
	}
	since := a.now().Add(-period)

	agg, err := a.store.Aggregate(ctx, since)
	if err != nil {
		return nil, apperror.Upstream("aggregate tickets", err)
	}
	queued, err := a.store.CountByStatus(ctx, entity.QueuedStatuses)
	if err != nil {
		return nil, apperror.Upstream("count queued tickets", err)
	}

	stats := &Stats{
		Since:                 since,
		ByStatus:              agg.ByStatus,
		ByPriority:            agg.ByPriority,
		AverageWaitMinutes:    agg.AvgWait.Minutes(),
		AverageResolveMinutes: agg.AvgResolution.Minutes(),
		QueueLength:           int(queued),
	}
	for _, n := range agg.ByStatus {
		stats.Total += n
	}
	return stats, nil
}
