package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"mnp-assistant-be/internal/dto"
	"mnp-assistant-be/internal/entity"
	"mnp-assistant-be/internal/pkg/logger"
	"mnp-assistant-be/internal/repository/specification"
	"mnp-assistant-be/internal/repository/unitofwork"
	"mnp-assistant-be/pkg/apperror"
	"mnp-assistant-be/pkg/knowledge"

	"github.com/google/uuid"
)

const (
	knowledgeLogModule = "KnowledgeService"
	backfillBatchSize  = 100
	defaultListLimit   = 20
)

type IKnowledgeService interface {
	Create(ctx context.Context, request *dto.CreateKnowledgeItemRequest) (*dto.KnowledgeItemResponse, error)
	Update(ctx context.Context, id uuid.UUID, request *dto.UpdateKnowledgeItemRequest) (*dto.KnowledgeItemResponse, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*dto.KnowledgeItemResponse, error)
	List(ctx context.Context, query *dto.ListKnowledgeQuery) ([]*dto.KnowledgeItemResponse, error)
	Search(ctx context.Context, query *dto.SearchKnowledgeQuery) (*dto.SearchKnowledgeResponse, error)
	Backfill(ctx context.Context) (int, error)
}

// KnowledgeSearcher is the retriever surface used for the admin search endpoint.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, sc knowledge.SearchContext) knowledge.SearchResponse
}

type knowledgeService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	retriever        KnowledgeSearcher
	logger           logger.ILogger
	now              func() time.Time
}

func NewKnowledgeService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	retriever KnowledgeSearcher,
	log logger.ILogger,
) IKnowledgeService {
	return &knowledgeService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
		retriever:        retriever,
		logger:           log,
		now:              time.Now,
	}
}

func (ks *knowledgeService) Create(ctx context.Context, request *dto.CreateKnowledgeItemRequest) (*dto.KnowledgeItemResponse, error) {
	uow := ks.uowFactory.NewUnitOfWork(ctx)

	item := entity.KnowledgeItem{
		Id:          uuid.New(),
		Category:    strings.TrimSpace(request.Category),
		Subcategory: request.Subcategory,
		Question:    strings.TrimSpace(request.Question),
		Answer:      strings.TrimSpace(request.Answer),
		Keywords:    normalizeKeywords(request.Keywords),
		Carrier:     emptyToNil(request.Carrier),
		Priority:    request.Priority,
		IsActive:    true,
		Version:     1,
		CreatedAt:   ks.now(),
	}

	if err := uow.KnowledgeItemRepository().Create(ctx, &item); err != nil {
		return nil, err
	}

	ks.enqueueEmbedding(ctx, &item)
	return toKnowledgeItemResponse(&item), nil
}

// Update bumps the version. A change to the question or answer clears the stored vector
// and queues a new embedding job.
func (ks *knowledgeService) Update(ctx context.Context, id uuid.UUID, request *dto.UpdateKnowledgeItemRequest) (*dto.KnowledgeItemResponse, error) {
	uow := ks.uowFactory.NewUnitOfWork(ctx)

	item, err := uow.KnowledgeItemRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperror.NotFound("knowledge item %s", id)
	}

	textChanged := false
	if request.Category != nil {
		item.Category = strings.TrimSpace(*request.Category)
	}
	if request.Subcategory != nil {
		item.Subcategory = emptyToNil(request.Subcategory)
	}
	if request.Question != nil && strings.TrimSpace(*request.Question) != item.Question {
		item.Question = strings.TrimSpace(*request.Question)
		textChanged = true
	}
	if request.Answer != nil && strings.TrimSpace(*request.Answer) != item.Answer {
		item.Answer = strings.TrimSpace(*request.Answer)
		textChanged = true
	}
	if request.Keywords != nil {
		item.Keywords = normalizeKeywords(request.Keywords)
	}
	if request.Carrier != nil {
		item.Carrier = emptyToNil(request.Carrier)
	}
	if request.Priority != nil {
		item.Priority = *request.Priority
	}
	if request.IsActive != nil {
		item.IsActive = *request.IsActive
	}
	if item.Question == "" || item.Answer == "" {
		return nil, apperror.Validation("question and answer must not be empty", map[string]string{"question": "required", "answer": "required"})
	}

	now := ks.now()
	item.Version++
	item.UpdatedAt = &now
	if textChanged {
		item.Embedding = nil
	}

	if err := uow.KnowledgeItemRepository().Update(ctx, item); err != nil {
		return nil, err
	}

	if textChanged || len(item.Embedding) == 0 {
		ks.enqueueEmbedding(ctx, item)
	}
	return toKnowledgeItemResponse(item), nil
}

func (ks *knowledgeService) Deactivate(ctx context.Context, id uuid.UUID) error {
	inactive := false
	_, err := ks.Update(ctx, id, &dto.UpdateKnowledgeItemRequest{IsActive: &inactive})
	return err
}

func (ks *knowledgeService) Get(ctx context.Context, id uuid.UUID) (*dto.KnowledgeItemResponse, error) {
	uow := ks.uowFactory.NewUnitOfWork(ctx)
	item, err := uow.KnowledgeItemRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperror.NotFound("knowledge item %s", id)
	}
	return toKnowledgeItemResponse(item), nil
}

// List pages through items by priority. Carrier filtering keeps generic items.
func (ks *knowledgeService) List(ctx context.Context, query *dto.ListKnowledgeQuery) ([]*dto.KnowledgeItemResponse, error) {
	specs := []specification.Specification{}
	if !query.IncludeInactive {
		specs = append(specs, specification.ActiveKnowledge{})
	}
	if query.Category != "" {
		specs = append(specs, specification.ByCategory{Category: query.Category})
	}
	if query.Carrier != "" {
		specs = append(specs, specification.ForCarrier{Carrier: query.Carrier})
	}
	if q := strings.TrimSpace(query.Query); q != "" {
		specs = append(specs, specification.QuestionContains{Query: q})
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	specs = append(specs,
		specification.OrderBy{Field: "priority", Desc: true},
		specification.Pagination{Limit: limit, Offset: query.Offset},
	)

	uow := ks.uowFactory.NewUnitOfWork(ctx)
	items, err := uow.KnowledgeItemRepository().FindAll(ctx, specs...)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.KnowledgeItemResponse, 0, len(items))
	for _, item := range items {
		res = append(res, toKnowledgeItemResponse(item))
	}
	return res, nil
}

func (ks *knowledgeService) Search(ctx context.Context, query *dto.SearchKnowledgeQuery) (*dto.SearchKnowledgeResponse, error) {
	res := ks.retriever.Search(ctx, query.Query, knowledge.SearchContext{
		Carrier:     query.Carrier,
		CurrentStep: query.CurrentStep,
	})

	results := make([]dto.KnowledgeSearchResult, 0, len(res.Items))
	for _, r := range res.Items {
		results = append(results, dto.KnowledgeSearchResult{
			Item:           *toKnowledgeItemResponse(r.Item),
			Score:          r.Score,
			FusedScore:     r.FusedScore,
			Method:         string(r.Method),
			CarrierMatched: r.CarrierMatched,
			StepRelevant:   r.StepRelevant,
		})
	}
	return &dto.SearchKnowledgeResponse{Results: results, ContextRelevance: res.ContextRelevance}, nil
}

// Backfill queues embedding jobs for active items that have no vector yet.
func (ks *knowledgeService) Backfill(ctx context.Context) (int, error) {
	uow := ks.uowFactory.NewUnitOfWork(ctx)
	items, err := uow.KnowledgeItemRepository().FindMissingEmbeddings(ctx, backfillBatchSize)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, item := range items {
		if ks.enqueueEmbedding(ctx, item) {
			enqueued++
		}
	}
	if enqueued > 0 {
		ks.logger.Info(knowledgeLogModule, "Embedding backfill queued", map[string]interface{}{"count": enqueued})
	}
	return enqueued, nil
}

// enqueueEmbedding never fails the caller; the backfill picks up anything that was not queued.
func (ks *knowledgeService) enqueueEmbedding(ctx context.Context, item *entity.KnowledgeItem) bool {
	payload, err := json.Marshal(dto.PublishEmbedKnowledgeMessage{
		KnowledgeItemId: item.Id,
		Version:         item.Version,
	})
	if err == nil {
		err = ks.publisherService.Publish(ctx, payload)
	}
	if err != nil {
		ks.logger.Warn(knowledgeLogModule, "Failed to queue embedding job", map[string]interface{}{
			"knowledge_item_id": item.Id.String(),
			"error":             err,
		})
		return false
	}
	return true
}

func normalizeKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

func emptyToNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func toKnowledgeItemResponse(item *entity.KnowledgeItem) *dto.KnowledgeItemResponse {
	keywords := item.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	return &dto.KnowledgeItemResponse{
		Id:           item.Id,
		Category:     item.Category,
		Subcategory:  item.Subcategory,
		Question:     item.Question,
		Answer:       item.Answer,
		Keywords:     keywords,
		Carrier:      item.Carrier,
		Priority:     item.Priority,
		IsActive:     item.IsActive,
		Version:      item.Version,
		HasEmbedding: len(item.Embedding) > 0,
		CreatedAt:    item.CreatedAt,
		UpdatedAt:    item.UpdatedAt,
	}
}
