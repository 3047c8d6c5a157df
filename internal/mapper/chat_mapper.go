package mapper

import (
	"time"

	"mnp-assistant-be/internal/entity"
	"mnp-assistant-be/internal/model"

	"github.com/google/uuid"
)

// ChatMapper converts sessions, messages and citations. Soft-delete state stays in the model.
type ChatMapper struct {
	knowledge *KnowledgeItemMapper
}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{knowledge: NewKnowledgeItemMapper()}
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func valueTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func (m *ChatMapper) ChatSessionToEntity(s *model.ChatSession) *entity.ChatSession {
	if s == nil {
		return nil
	}
	return &entity.ChatSession{
		Id:            s.Id,
		UserId:        s.UserId,
		Title:         s.Title,
		Carrier:       s.Carrier,
		TargetCarrier: s.TargetCarrier,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     optionalTime(s.UpdatedAt),
	}
}

func (m *ChatMapper) ChatSessionToModel(s *entity.ChatSession) *model.ChatSession {
	if s == nil {
		return nil
	}
	return &model.ChatSession{
		Id:            s.Id,
		UserId:        s.UserId,
		Title:         s.Title,
		Carrier:       s.Carrier,
		TargetCarrier: s.TargetCarrier,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     valueTime(s.UpdatedAt),
	}
}

func (m *ChatMapper) ChatMessageToEntity(msg *model.ChatMessage) *entity.ChatMessage {
	if msg == nil {
		return nil
	}
	return &entity.ChatMessage{
		Id:            msg.Id,
		ChatSessionId: msg.ChatSessionId,
		Role:          msg.Role,
		Chat:          msg.Chat,
		Mode:          msg.Mode,
		Confidence:    msg.Confidence,
		CreatedAt:     msg.CreatedAt,
		UpdatedAt:     optionalTime(msg.UpdatedAt),
	}
}

func (m *ChatMapper) ChatMessageToModel(msg *entity.ChatMessage) *model.ChatMessage {
	if msg == nil {
		return nil
	}
	return &model.ChatMessage{
		Id:            msg.Id,
		ChatSessionId: msg.ChatSessionId,
		Role:          msg.Role,
		Chat:          msg.Chat,
		Mode:          msg.Mode,
		Confidence:    msg.Confidence,
		CreatedAt:     msg.CreatedAt,
		UpdatedAt:     valueTime(msg.UpdatedAt),
	}
}

// ChatCitationToEntity attaches the cited item only when it was preloaded.
func (m *ChatMapper) ChatCitationToEntity(c *model.ChatCitation) *entity.ChatCitation {
	if c == nil {
		return nil
	}
	out := &entity.ChatCitation{
		Id:              c.Id,
		ChatMessageId:   c.ChatMessageId,
		KnowledgeItemId: c.KnowledgeItemId,
		Score:           c.Score,
		CreatedAt:       c.CreatedAt,
	}
	if c.KnowledgeItem.Id != uuid.Nil {
		out.KnowledgeItem = m.knowledge.ToEntity(&c.KnowledgeItem)
	}
	return out
}

func (m *ChatMapper) ChatCitationToModel(c *entity.ChatCitation) *model.ChatCitation {
	if c == nil {
		return nil
	}
	return &model.ChatCitation{
		Id:              c.Id,
		ChatMessageId:   c.ChatMessageId,
		KnowledgeItemId: c.KnowledgeItemId,
		Score:           c.Score,
		CreatedAt:       c.CreatedAt,
	}
}
