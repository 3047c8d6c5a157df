package escalation

import (
	"context"
	"sync"
	"time"

	"mnp-assistant-be/internal/entity"

	"github.com/google/uuid"
)

// memoryStore mimics the gorm store, including a queue lock that is held for the whole callback.
type memoryStore struct {
	queue   sync.Mutex
	mu      sync.RWMutex
	tickets map[uuid.UUID]*entity.EscalationTicket
	order   []uuid.UUID

	createErr error
	// slowCount widens the read-then-insert window so races would show up
	slowCount time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{tickets: make(map[uuid.UUID]*entity.EscalationTicket)}
}

func (m *memoryStore) WithQueueLock(ctx context.Context, fn func(tx TicketStore) error) error {
	m.queue.Lock()
	defer m.queue.Unlock()
	return fn(m)
}

func (m *memoryStore) Create(ctx context.Context, t *entity.EscalationTicket) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *t
	m.tickets[t.Id] = &c
	m.order = append(m.order, t.Id)
	return nil
}

func (m *memoryStore) Update(ctx context.Context, t *entity.EscalationTicket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *t
	m.tickets[t.Id] = &c
	return nil
}

func (m *memoryStore) FindByID(ctx context.Context, id uuid.UUID) (*entity.EscalationTicket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tickets[id]
	if !ok {
		return nil, nil
	}
	c := *t
	return &c, nil
}

func (m *memoryStore) FindActiveBySession(ctx context.Context, sessionID uuid.UUID) (*entity.EscalationTicket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.order {
		t := m.tickets[id]
		if t.SessionId == sessionID && !t.Status.IsTerminal() {
			c := *t
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) CountByStatus(ctx context.Context, statuses []entity.TicketStatus) (int64, error) {
	if m.slowCount > 0 {
		time.Sleep(m.slowCount)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, t := range m.tickets {
		for _, s := range statuses {
			if t.Status == s {
				n++
				break
			}
		}
	}
	return n, nil
}

func (m *memoryStore) List(ctx context.Context, f TicketFilter) ([]*entity.EscalationTicket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*entity.EscalationTicket
	for _, id := range m.order {
		t := m.tickets[id]
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		if f.Priority != nil && t.Priority != *f.Priority {
			continue
		}
		if f.AssignedAgentID != nil && (t.AssignedAgentId == nil || *t.AssignedAgentId != *f.AssignedAgentID) {
			continue
		}
		c := *t
		out = append(out, &c)
	}
	return out, nil
}

func (m *memoryStore) Aggregate(ctx context.Context, since time.Time) (*TicketAggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	agg := &TicketAggregate{
		ByStatus:   make(map[entity.TicketStatus]int),
		ByPriority: make(map[entity.TicketPriority]int),
	}
	var wait, resolve time.Duration
	var waited, resolved int
	for _, t := range m.tickets {
		if t.CreatedAt.Before(since) {
			continue
		}
		agg.ByStatus[t.Status]++
		agg.ByPriority[t.Priority]++
		if t.AssignedAt != nil {
			wait += t.AssignedAt.Sub(t.CreatedAt)
			waited++
		}
		if t.ResolvedAt != nil && t.Status == entity.TicketStatusResolved {
			resolve += t.ResolvedAt.Sub(t.CreatedAt)
			resolved++
		}
	}
	if waited > 0 {
		agg.AvgWait = wait / time.Duration(waited)
	}
	if resolved > 0 {
		agg.AvgResolution = resolve / time.Duration(resolved)
	}
	return agg, nil
}
