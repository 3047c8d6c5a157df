package service

import (
	"context"
	"strings"
	"time"

	"mnp-assistant-be/internal/dto"
	"mnp-assistant-be/internal/entity"
	"mnp-assistant-be/internal/repository/unitofwork"
	"mnp-assistant-be/pkg/apperror"
	"mnp-assistant-be/pkg/escalation"

	"github.com/google/uuid"
)

const defaultUserReason = "customer asked for a human agent"

type IEscalationService interface {
	Initiate(ctx context.Context, userId uuid.UUID, request *dto.InitiateEscalationRequest) (*dto.TicketResponse, error)
	GetTicket(ctx context.Context, userId uuid.UUID, isAgent bool, ticketId uuid.UUID) (*dto.TicketResponse, error)
	UpdateStatus(ctx context.Context, ticketId uuid.UUID, request *dto.UpdateTicketStatusRequest) (*dto.TicketResponse, error)
	Resolve(ctx context.Context, ticketId uuid.UUID, request *dto.ResolveTicketRequest) (*dto.TicketResponse, error)
	Cancel(ctx context.Context, userId uuid.UUID, isAgent bool, ticketId uuid.UUID, request *dto.CancelTicketRequest) (*dto.TicketResponse, error)
	List(ctx context.Context, query *dto.ListTicketsQuery) ([]*dto.TicketResponse, error)
	Stats(ctx context.Context, query *dto.TicketStatsQuery) (*dto.TicketStatsResponse, error)
}

// TicketDesk is the arbiter surface used by the HTTP layer.
type TicketDesk interface {
	Initiate(ctx context.Context, req escalation.InitiateRequest) (*entity.EscalationTicket, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status entity.TicketStatus, agentID *string) (*entity.EscalationTicket, error)
	Resolve(ctx context.Context, id uuid.UUID, req escalation.ResolveRequest) (*entity.EscalationTicket, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string) (*entity.EscalationTicket, error)
	GetStatus(ctx context.Context, id uuid.UUID) (*entity.EscalationTicket, error)
	List(ctx context.Context, filter escalation.TicketFilter) ([]*entity.EscalationTicket, error)
	Stats(ctx context.Context, period time.Duration) (*escalation.Stats, error)
}

type escalationService struct {
	uowFactory unitofwork.RepositoryFactory
	desk       TicketDesk
}

func NewEscalationService(uowFactory unitofwork.RepositoryFactory, desk TicketDesk) IEscalationService {
	return &escalationService{uowFactory: uowFactory, desk: desk}
}

func (es *escalationService) Initiate(ctx context.Context, userId uuid.UUID, request *dto.InitiateEscalationRequest) (*dto.TicketResponse, error) {
	if _, err := findOwnedSession(ctx, es.uowFactory.NewUnitOfWork(ctx), userId, request.ChatSessionId); err != nil {
		return nil, err
	}

	priority := entity.TicketPriority(request.Priority)
	if priority == "" {
		priority = entity.TicketPriorityMedium
	}
	reason := strings.TrimSpace(request.Reason)
	if reason == "" {
		reason = defaultUserReason
	}

	ticket, err := es.desk.Initiate(ctx, escalation.InitiateRequest{
		SessionID: request.ChatSessionId,
		Reason:    reason,
		Trigger:   escalation.TriggerUserRequest,
		Priority:  priority,
	})
	if err != nil {
		return nil, err
	}
	return toTicketResponse(ticket), nil
}

// GetTicket lets agents read any ticket and customers only tickets of their own sessions.
func (es *escalationService) GetTicket(ctx context.Context, userId uuid.UUID, isAgent bool, ticketId uuid.UUID) (*dto.TicketResponse, error) {
	ticket, err := es.visibleTicket(ctx, userId, isAgent, ticketId)
	if err != nil {
		return nil, err
	}
	return toTicketResponse(ticket), nil
}

func (es *escalationService) visibleTicket(ctx context.Context, userId uuid.UUID, isAgent bool, ticketId uuid.UUID) (*entity.EscalationTicket, error) {
	ticket, err := es.desk.GetStatus(ctx, ticketId)
	if err != nil {
		return nil, err
	}
	if isAgent {
		return ticket, nil
	}
	if _, err := findOwnedSession(ctx, es.uowFactory.NewUnitOfWork(ctx), userId, ticket.SessionId); err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NotFound("ticket %s not found", ticketId)
		}
		return nil, err
	}
	return ticket, nil
}

func (es *escalationService) UpdateStatus(ctx context.Context, ticketId uuid.UUID, request *dto.UpdateTicketStatusRequest) (*dto.TicketResponse, error) {
	ticket, err := es.desk.UpdateStatus(ctx, ticketId, entity.TicketStatus(request.Status), request.AgentId)
	if err != nil {
		return nil, err
	}
	return toTicketResponse(ticket), nil
}

func (es *escalationService) Resolve(ctx context.Context, ticketId uuid.UUID, request *dto.ResolveTicketRequest) (*dto.TicketResponse, error) {
	ticket, err := es.desk.Resolve(ctx, ticketId, escalation.ResolveRequest{
		Resolution: request.Resolution,
		Feedback:   request.Feedback,
		Rating:     request.Rating,
	})
	if err != nil {
		return nil, err
	}
	return toTicketResponse(ticket), nil
}

func (es *escalationService) Cancel(ctx context.Context, userId uuid.UUID, isAgent bool, ticketId uuid.UUID, request *dto.CancelTicketRequest) (*dto.TicketResponse, error) {
	if _, err := es.visibleTicket(ctx, userId, isAgent, ticketId); err != nil {
		return nil, err
	}
	ticket, err := es.desk.Cancel(ctx, ticketId, request.Reason)
	if err != nil {
		return nil, err
	}
	return toTicketResponse(ticket), nil
}

func (es *escalationService) List(ctx context.Context, query *dto.ListTicketsQuery) ([]*dto.TicketResponse, error) {
	filter := escalation.TicketFilter{Limit: query.Limit, Offset: query.Offset}
	if query.Status != "" {
		status := entity.TicketStatus(query.Status)
		filter.Status = &status
	}
	if query.Priority != "" {
		priority := entity.TicketPriority(query.Priority)
		filter.Priority = &priority
	}
	if query.AgentId != "" {
		agent := query.AgentId
		filter.AssignedAgentID = &agent
	}
	if query.SessionId != "" {
		sessionId, err := uuid.Parse(query.SessionId)
		if err != nil {
			return nil, apperror.Validation("invalid session_id", map[string]string{"session_id": "uuid"})
		}
		filter.SessionID = &sessionId
	}

	tickets, err := es.desk.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	response := make([]*dto.TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		response = append(response, toTicketResponse(t))
	}
	return response, nil
}

func (es *escalationService) Stats(ctx context.Context, query *dto.TicketStatsQuery) (*dto.TicketStatsResponse, error) {
	stats, err := es.desk.Stats(ctx, time.Duration(query.PeriodHours)*time.Hour)
	if err != nil {
		return nil, err
	}

	byStatus := make(map[string]int, len(stats.ByStatus))
	for k, v := range stats.ByStatus {
		byStatus[string(k)] = v
	}
	byPriority := make(map[string]int, len(stats.ByPriority))
	for k, v := range stats.ByPriority {
		byPriority[string(k)] = v
	}

	return &dto.TicketStatsResponse{
		Since:                 stats.Since,
		Total:                 stats.Total,
		ByStatus:              byStatus,
		ByPriority:            byPriority,
		AverageWaitMinutes:    stats.AverageWaitMinutes,
		AverageResolveMinutes: stats.AverageResolveMinutes,
		QueueLength:           stats.QueueLength,
	}, nil
}

func toTicketResponse(t *entity.EscalationTicket) *dto.TicketResponse {
	return &dto.TicketResponse{
		Id:                   t.Id,
		ChatSessionId:        t.SessionId,
		Reason:               t.Reason,
		Trigger:              t.Trigger,
		Priority:             string(t.Priority),
		Status:               string(t.Status),
		AssignedAgentId:      t.AssignedAgentId,
		EstimatedWaitMinutes: t.EstimatedWaitMinutes,
		QueuePosition:        t.QueuePosition,
		Resolution:           t.Resolution,
		Feedback:             t.Feedback,
		Rating:               t.Rating,
		AssignedAt:           t.AssignedAt,
		ResolvedAt:           t.ResolvedAt,
		CreatedAt:            t.CreatedAt,
		UpdatedAt:            t.UpdatedAt,
	}
}
