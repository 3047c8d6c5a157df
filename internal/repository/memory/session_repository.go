package memory

import (
	"sync"
	"time"

	"mnp-assistant-be/internal/entity"
	"mnp-assistant-be/pkg/escalation"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// SessionState is the hot part of a conversation: the session row plus the recent turns.
type SessionState struct {
	Session   *entity.ChatSession
	History   []escalation.Turn
	StartedAt time.Time
}

type SessionRepository struct {
	cache      *cache.Cache
	maxHistory int
	mu         sync.Mutex
}

// NewSessionRepository keeps states for ttl after their last write and at most maxHistory turns each.
func NewSessionRepository(ttl time.Duration, maxHistory int) *SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	if maxHistory <= 0 {
		maxHistory = 20
	}
	return &SessionRepository{
		cache:      cache.New(ttl, 10*time.Minute),
		maxHistory: maxHistory,
	}
}

func (r *SessionRepository) Save(state *SessionState) {
	r.cache.Set(state.Session.Id.String(), state, cache.DefaultExpiration)
}

// Get returns a copy so callers can read the history without holding the lock.
func (r *SessionRepository) Get(sessionID uuid.UUID) (*SessionState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	x, found := r.cache.Get(sessionID.String())
	if !found {
		return nil, false
	}
	state := x.(*SessionState)
	return &SessionState{
		Session:   state.Session,
		History:   append([]escalation.Turn(nil), state.History...),
		StartedAt: state.StartedAt,
	}, true
}

// AppendTurns adds turns to a cached state, trimming the oldest beyond the window.
// It reports false when the session is not cached.
func (r *SessionRepository) AppendTurns(sessionID uuid.UUID, turns ...escalation.Turn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	x, found := r.cache.Get(sessionID.String())
	if !found {
		return false
	}
	state := x.(*SessionState)
	history := append(state.History, turns...)
	if over := len(history) - r.maxHistory; over > 0 {
		history = append([]escalation.Turn(nil), history[over:]...)
	}
	state.History = history
	r.cache.Set(sessionID.String(), state, cache.DefaultExpiration)
	return true
}

func (r *SessionRepository) Delete(sessionID uuid.UUID) {
	r.cache.Delete(sessionID.String())
}
