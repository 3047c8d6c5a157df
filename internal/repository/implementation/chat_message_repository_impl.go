package implementation

import (
	"context"

	"mnp-assistant-be/internal/entity"
	"mnp-assistant-be/internal/mapper"
	"mnp-assistant-be/internal/model"
	"mnp-assistant-be/internal/repository/contract"
	"mnp-assistant-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatMessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatMessageRepository(db *gorm.DB) contract.ChatMessageRepository {
	return &ChatMessageRepositoryImpl{db: db, mapper: mapper.NewChatMapper()}
}

func (r *ChatMessageRepositoryImpl) Create(ctx context.Context, message *entity.ChatMessage) error {
	m := r.mapper.ChatMessageToModel(message)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*message = *r.mapper.ChatMessageToEntity(m)
	return nil
}

func (r *ChatMessageRepositoryImpl) DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("chat_session_id = ?", sessionId).Delete(&model.ChatMessage{}).Error
}

func (r *ChatMessageRepositoryImpl) CreateCitations(ctx context.Context, citations []*entity.ChatCitation) error {
	if len(citations) == 0 {
		return nil
	}
	models := make([]*model.ChatCitation, len(citations))
	for i, c := range citations {
		models[i] = r.mapper.ChatCitationToModel(c)
	}
	return r.db.WithContext(ctx).Omit("ChatMessage", "KnowledgeItem").Create(models).Error
}

func (r *ChatMessageRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMessage, error) {
	return first(scoped(ctx, r.db, specs), r.mapper.ChatMessageToEntity)
}

func (r *ChatMessageRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	return all(scoped(ctx, r.db, specs), r.mapper.ChatMessageToEntity)
}

func (r *ChatMessageRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return count(scoped(ctx, r.db.Model(&model.ChatMessage{}), specs))
}

// FindCitationsByMessageIds preloads each cited item, best score first.
func (r *ChatMessageRepositoryImpl) FindCitationsByMessageIds(ctx context.Context, messageIds []uuid.UUID) ([]*entity.ChatCitation, error) {
	if len(messageIds) == 0 {
		return []*entity.ChatCitation{}, nil
	}

	return all(r.db.WithContext(ctx).
		Preload("KnowledgeItem", func(db *gorm.DB) *gorm.DB {
			return db.Select(knowledgeColumns)
		}).
		Where("chat_message_id IN ?", messageIds).
		Order("score DESC"), r.mapper.ChatCitationToEntity)
}
