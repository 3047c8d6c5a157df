package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"mnp-assistant-be/internal/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attach(t *testing.T, h *Hub, sessionID uuid.UUID) *client {
	t.Helper()
	before := h.ClientCount(sessionID)
	c := &client{hub: h, session: sessionID, send: make(chan []byte, 4)}
	h.register <- c
	require.Eventually(t, func() bool { return h.ClientCount(sessionID) == before+1 }, time.Second, 5*time.Millisecond)
	return c
}

func receive(t *testing.T, c *client) map[string]interface{} {
	t.Helper()
	select {
	case raw := <-c.send:
		var msg map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
		return nil
	}
}

func assertSilent(t *testing.T, c *client) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("unexpected message %s", raw)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHubPushLocal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub(nil, logger.NopLogger{})
	require.NoError(t, h.Start(ctx))

	session := uuid.New()
	other := uuid.New()
	a := attach(t, h, session)
	b := attach(t, h, session)
	stranger := attach(t, h, other)

	h.Push(ctx, session, "ticket_status_changed", map[string]interface{}{"status": "assigned"})

	for _, c := range []*client{a, b} {
		msg := receive(t, c)
		assert.Equal(t, "ticket_status_changed", msg["type"])
		assert.Equal(t, "assigned", msg["data"].(map[string]interface{})["status"])
	}
	assertSilent(t, stranger)
}

func TestHubUnregisterClosesSend(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub(nil, logger.NopLogger{})
	require.NoError(t, h.Start(ctx))

	session := uuid.New()
	c := attach(t, h, session)
	h.unregister <- c

	require.Eventually(t, func() bool { return h.ClientCount(session) == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-c.send
	assert.False(t, open)
}

func TestHubStopsAcceptingAfterShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub(nil, logger.NopLogger{})
	require.NoError(t, h.Start(ctx))

	session := uuid.New()
	slow := &client{hub: h, session: session, send: make(chan []byte)}
	require.True(t, h.attach(slow))

	cancel()
	select {
	case <-h.done:
	case <-time.After(time.Second):
		t.Fatal("hub did not stop")
	}

	// a slow client found after shutdown must not strand the detaching goroutine
	h.Push(context.Background(), session, "escalation_created", nil)

	detached := make(chan struct{})
	go func() {
		h.detach(slow)
		close(detached)
	}()
	select {
	case <-detached:
	case <-time.After(time.Second):
		t.Fatal("detach blocked after shutdown")
	}
	assert.False(t, h.attach(&client{hub: h, session: session, send: make(chan []byte, 1)}))
}

func TestHubRelaysAcrossInstances(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	newHub := func() *Hub {
		rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { rdb.Close() })
		h := NewHub(rdb, logger.NopLogger{})
		require.NoError(t, h.Start(ctx))
		return h
	}
	first := newHub()
	second := newHub()

	session := uuid.New()
	local := attach(t, first, session)
	remote := attach(t, second, session)

	first.Push(ctx, session, "escalation_created", map[string]interface{}{"queue_position": 1})

	assert.Equal(t, "escalation_created", receive(t, local)["type"])
	assert.Equal(t, "escalation_created", receive(t, remote)["type"])
	// the origin instance ignores its own relay
	assertSilent(t, local)
}
