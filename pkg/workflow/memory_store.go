package workflow

import (
	"context"
	"sync"

	"mnp-assistant-be/internal/entity"

	"github.com/google/uuid"
)

// MemoryStore keeps progress records in process. Used by the CLI walker and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*entity.WorkflowProgress
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[uuid.UUID]*entity.WorkflowProgress)}
}

func (m *MemoryStore) FindActive(ctx context.Context, sessionID uuid.UUID) (*entity.WorkflowProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[sessionID]
	if !ok || !rec.IsActive {
		return nil, nil
	}
	return rec.Clone(), nil
}

func (m *MemoryStore) Save(ctx context.Context, progress *entity.WorkflowProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[progress.SessionId] = progress.Clone()
	return nil
}

func (m *MemoryStore) Deactivate(ctx context.Context, sessionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[sessionID]; ok {
		rec.IsActive = false
	}
	return nil
}
