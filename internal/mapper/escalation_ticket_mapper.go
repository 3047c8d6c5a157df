package mapper

import (
	"mnp-assistant-be/internal/entity"
	"mnp-assistant-be/internal/model"
)

type EscalationTicketMapper struct{}

func NewEscalationTicketMapper() *EscalationTicketMapper {
	return &EscalationTicketMapper{}
}

func (m *EscalationTicketMapper) ToEntity(t *model.EscalationTicket) *entity.EscalationTicket {
	if t == nil {
		return nil
	}
	return &entity.EscalationTicket{
		Id:                   t.Id,
		SessionId:            t.SessionId,
		Reason:               t.Reason,
		Trigger:              t.Trigger,
		Priority:             entity.TicketPriority(t.Priority),
		Status:               entity.TicketStatus(t.Status),
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

func (m *EscalationTicketMapper) ToModel(t *entity.EscalationTicket) *model.EscalationTicket {
	if t == nil {
		return nil
	}
	return &model.EscalationTicket{
		Id:                   t.Id,
		SessionId:            t.SessionId,
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
