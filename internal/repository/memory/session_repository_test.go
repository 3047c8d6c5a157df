package memory

import (
	"testing"
	"time"

	"mnp-assistant-be/internal/entity"
	"mnp-assistant-be/pkg/escalation"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepositoryWindow(t *testing.T) {
	repo := NewSessionRepository(time.Minute, 3)
	id := uuid.New()

	assert.False(t, repo.AppendTurns(id, escalation.Turn{Role: escalation.RoleUser, Content: "x"}))

	repo.Save(&SessionState{Session: &entity.ChatSession{Id: id}, StartedAt: time.Now()})
	for _, content := range []string{"a", "b", "c", "d"} {
		require.True(t, repo.AppendTurns(id, escalation.Turn{Role: escalation.RoleUser, Content: content}))
	}

	state, ok := repo.Get(id)
	require.True(t, ok)
	require.Len(t, state.History, 3)
	assert.Equal(t, "b", state.History[0].Content)
	assert.Equal(t, "d", state.History[2].Content)

	state.History[0].Content = "mutated"
	again, _ := repo.Get(id)
	assert.Equal(t, "b", again.History[0].Content)

	repo.Delete(id)
	_, ok = repo.Get(id)
	assert.False(t, ok)
}
