package service

import (
	"context"
	"sort"
	"sync"

	"mnp-assistant-be/internal/entity"
	"mnp-assistant-be/internal/repository/contract"
	"mnp-assistant-be/internal/repository/specification"
	"mnp-assistant-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// fakeStore backs an in-memory unit of work. Specifications are interpreted by type.
type fakeStore struct {
	mu        sync.Mutex
	sessions  map[uuid.UUID]*entity.ChatSession
	messages  []*entity.ChatMessage
	citations []*entity.ChatCitation
	items     map[uuid.UUID]*entity.KnowledgeItem
	commits   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[uuid.UUID]*entity.ChatSession),
		items:    make(map[uuid.UUID]*entity.KnowledgeItem),
	}
}

func (s *fakeStore) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUoW{store: s}
}

type fakeUoW struct {
	store *fakeStore
}

func (u *fakeUoW) Begin(ctx context.Context) error { return nil }
func (u *fakeUoW) Commit() error {
	u.store.mu.Lock()
	u.store.commits++
	u.store.mu.Unlock()
	return nil
}
func (u *fakeUoW) Rollback() error { return nil }

func (u *fakeUoW) KnowledgeItemRepository() contract.KnowledgeItemRepository {
	return &fakeKnowledgeRepo{store: u.store}
}
func (u *fakeUoW) WorkflowProgressRepository() contract.WorkflowProgressRepository { return nil }
func (u *fakeUoW) EscalationTicketRepository() contract.EscalationTicketRepository { return nil }
func (u *fakeUoW) ChatSessionRepository() contract.ChatSessionRepository {
	return &fakeSessionRepo{store: u.store}
}
func (u *fakeUoW) ChatMessageRepository() contract.ChatMessageRepository {
	return &fakeMessageRepo{store: u.store}
}

type specFilter struct {
	category  string
	active    bool
	id        *uuid.UUID
	userID    *uuid.UUID
	sessionID *uuid.UUID
	desc      bool
	limit     int
}

func readSpecs(specs []specification.Specification) specFilter {
	var f specFilter
	for _, spec := range specs {
		switch s := spec.(type) {
		case specification.ByID:
			id := s.ID
			f.id = &id
		case specification.UserOwnedBy:
			id := s.UserID
			f.userID = &id
		case specification.ByChatSessionID:
			id := s.ChatSessionID
			f.sessionID = &id
		case specification.OrderBy:
			f.desc = s.Desc
		case specification.Pagination:
			f.limit = s.Limit
		case specification.ByCategory:
			f.category = s.Category
		case specification.ActiveKnowledge:
			f.active = true
		}
	}
	return f
}

type fakeSessionRepo struct{ store *fakeStore }

func (r *fakeSessionRepo) Create(ctx context.Context, session *entity.ChatSession) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c := *session
	r.store.sessions[session.Id] = &c
	return nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, session *entity.ChatSession) error {
	return r.Create(ctx, session)
}

func (r *fakeSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.sessions, id)
	return nil
}

func (r *fakeSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	all, _ := r.FindAll(ctx, specs...)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (r *fakeSessionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	f := readSpecs(specs)
	var out []*entity.ChatSession
	for _, s := range r.store.sessions {
		if f.id != nil && s.Id != *f.id {
			continue
		}
		if f.userID != nil && s.UserId != *f.userID {
			continue
		}
		c := *s
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeSessionRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

type fakeMessageRepo struct{ store *fakeStore }

func (r *fakeMessageRepo) Create(ctx context.Context, message *entity.ChatMessage) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c := *message
	r.store.messages = append(r.store.messages, &c)
	return nil
}

func (r *fakeMessageRepo) DeleteByChatSessionId(ctx context.Context, sessionId uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	kept := r.store.messages[:0]
	for _, m := range r.store.messages {
		if m.ChatSessionId != sessionId {
			kept = append(kept, m)
		}
	}
	r.store.messages = kept
	return nil
}

func (r *fakeMessageRepo) CreateCitations(ctx context.Context, citations []*entity.ChatCitation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.citations = append(r.store.citations, citations...)
	return nil
}

func (r *fakeMessageRepo) FindCitationsByMessageIds(ctx context.Context, messageIds []uuid.UUID) ([]*entity.ChatCitation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	wanted := make(map[uuid.UUID]bool, len(messageIds))
	for _, id := range messageIds {
		wanted[id] = true
	}
	var out []*entity.ChatCitation
	for _, c := range r.store.citations {
		if wanted[c.ChatMessageId] {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeMessageRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMessage, error) {
	all, _ := r.FindAll(ctx, specs...)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (r *fakeMessageRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	f := readSpecs(specs)
	var out []*entity.ChatMessage
	for _, m := range r.store.messages {
		if f.sessionID != nil && m.ChatSessionId != *f.sessionID {
			continue
		}
		c := *m
		out = append(out, &c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if f.desc {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if f.limit > 0 && len(out) > f.limit {
		out = out[:f.limit]
	}
	return out, nil
}

func (r *fakeMessageRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

type fakeKnowledgeRepo struct{ store *fakeStore }

func (r *fakeKnowledgeRepo) Create(ctx context.Context, item *entity.KnowledgeItem) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	c := *item
	r.store.items[item.Id] = &c
	return nil
}

func (r *fakeKnowledgeRepo) Update(ctx context.Context, item *entity.KnowledgeItem) error {
	return r.Create(ctx, item)
}

func (r *fakeKnowledgeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.items, id)
	return nil
}

func (r *fakeKnowledgeRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.KnowledgeItem, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	f := readSpecs(specs)
	if f.id == nil {
		return nil, nil
	}
	item, ok := r.store.items[*f.id]
	if !ok {
		return nil, nil
	}
	c := *item
	return &c, nil
}

func (r *fakeKnowledgeRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.KnowledgeItem, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	f := readSpecs(specs)
	var out []*entity.KnowledgeItem
	for _, item := range r.store.items {
		if f.active && !item.IsActive {
			continue
		}
		if f.category != "" && item.Category != f.category {
			continue
		}
		c := *item
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	if f.limit > 0 && len(out) > f.limit {
		out = out[:f.limit]
	}
	return out, nil
}

func (r *fakeKnowledgeRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

func (r *fakeKnowledgeRepo) UpdateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if item, ok := r.store.items[id]; ok {
		item.Embedding = embedding
	}
	return nil
}

func (r *fakeKnowledgeRepo) FindMissingEmbeddings(ctx context.Context, limit int) ([]*entity.KnowledgeItem, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*entity.KnowledgeItem
	for _, item := range r.store.items {
		if item.IsActive && len(item.Embedding) == 0 {
			c := *item
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *fakeKnowledgeRepo) SearchSimilarWithScore(ctx context.Context, embedding []float32, filter contract.KnowledgeFilter, threshold float64, limit int) ([]*contract.ScoredKnowledgeItem, error) {
	return nil, nil
}

func (r *fakeKnowledgeRepo) SearchLexical(ctx context.Context, query string, keywords []string, filter contract.KnowledgeFilter, limit int) ([]*contract.ScoredKnowledgeItem, error) {
	return nil, nil
}
