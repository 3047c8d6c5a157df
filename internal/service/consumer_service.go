package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mnp-assistant-be/internal/dto"
	"mnp-assistant-be/internal/entity"
	"mnp-assistant-be/internal/pkg/logger"
	"mnp-assistant-be/internal/repository/specification"
	"mnp-assistant-be/internal/repository/unitofwork"
	"mnp-assistant-be/pkg/embedding"

	"github.com/ThreeDotsLabs/watermill/message"
)

const consumerLogModule = "EmbeddingConsumer"

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber        message.Subscriber
	topicName         string
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	timeout           time.Duration
	logger            logger.ILogger
}

// NewConsumerService builds the worker that writes knowledge embeddings back to the store.
func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	timeout time.Duration,
	log logger.ILogger,
) IConsumerService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &consumerService{
		subscriber:        subscriber,
		topicName:         topicName,
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		timeout:           timeout,
		logger:            log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.process(ctx, msg)
			msg.Ack()
		}
	}()

	return nil
}

// process embeds one item. Failed jobs are not redelivered: the vector stays empty and the
// next backfill run queues the item again.
func (cs *consumerService) process(ctx context.Context, msg *message.Message) {
	var payload dto.PublishEmbedKnowledgeMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error(consumerLogModule, "Failed to unmarshal embedding job", map[string]interface{}{"error": err})
		return
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	item, err := uow.KnowledgeItemRepository().FindOne(ctx, specification.ByID{ID: payload.KnowledgeItemId})
	if err != nil {
		cs.logger.Error(consumerLogModule, "Failed to load knowledge item", map[string]interface{}{
			"knowledge_item_id": payload.KnowledgeItemId.String(),
			"error":             err,
		})
		return
	}
	if item == nil || !item.IsActive {
		return
	}
	if item.Version != payload.Version {
		cs.logger.Info(consumerLogModule, "Skipping stale embedding job", map[string]interface{}{
			"knowledge_item_id": item.Id.String(),
			"job_version":       payload.Version,
			"item_version":      item.Version,
		})
		return
	}

	embedCtx, cancel := context.WithTimeout(ctx, cs.timeout)
	defer cancel()
	res, err := cs.embeddingProvider.Generate(embedCtx, EmbeddingDocument(item), embedding.TaskRetrievalDocument)
	if err != nil {
		cs.logger.Warn(consumerLogModule, "Embedding provider failed", map[string]interface{}{
			"knowledge_item_id": item.Id.String(),
			"error":             err,
		})
		return
	}
	if n := len(res.Embedding.Values); n != embedding.Dimensions {
		cs.logger.Error(consumerLogModule, "Embedding has wrong dimensionality", map[string]interface{}{
			"knowledge_item_id": item.Id.String(),
			"dimensions":        n,
		})
		return
	}

	if err := uow.KnowledgeItemRepository().UpdateEmbedding(ctx, item.Id, res.Embedding.Values); err != nil {
		cs.logger.Error(consumerLogModule, "Failed to store embedding", map[string]interface{}{
			"knowledge_item_id": item.Id.String(),
			"error":             err,
		})
		return
	}

	cs.logger.Info(consumerLogModule, "Knowledge item embedded", map[string]interface{}{
		"knowledge_item_id": item.Id.String(),
		"version":           item.Version,
	})
}

// EmbeddingDocument is the text embedded for an item: category, question and answer.
func EmbeddingDocument(item *entity.KnowledgeItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Category: %s\n", item.Category)
	if item.Subcategory != nil && *item.Subcategory != "" {
		fmt.Fprintf(&b, "Subcategory: %s\n", *item.Subcategory)
	}
	fmt.Fprintf(&b, "Question: %s\nAnswer: %s", item.Question, item.Answer)
	return b.String()
}
