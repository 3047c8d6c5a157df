package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"mnp-assistant-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	logModule      = "Hub"
	clusterChannel = "cluster_events"
)

// Hub fans realtime messages out to every socket open on a chat session. With redis
// configured, pushes are relayed to the other instances too.
type Hub struct {
	// instance id, used to ignore our own relayed messages
	id string

	// session id -> open tabs
	clients map[uuid.UUID]map[*client]struct{}

	register   chan *client
	unregister chan *client
	// closed when run exits; sends on register/unregister give up after that
	done chan struct{}

	mu sync.RWMutex

	rdb    *redis.Client
	logger logger.ILogger
}

type clusterMessage struct {
	Origin          string          `json:"origin"`
	TargetSessionID string          `json:"target_session_id"`
	Message         json.RawMessage `json:"message"`
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		id:         uuid.NewString(),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		clients:    make(map[uuid.UUID]map[*client]struct{}),
		rdb:        rdb,
		logger:     log,
	}
}

// Start subscribes to the cluster channel (when redis is configured) and runs the
// registration loop until ctx is done.
func (h *Hub) Start(ctx context.Context) error {
	if h.rdb != nil {
		pubsub := h.rdb.Subscribe(ctx, clusterChannel)
		if _, err := pubsub.Receive(ctx); err != nil {
			pubsub.Close()
			return err
		}
		go h.relayFromRedis(ctx, pubsub)
	}
	go h.run(ctx)
	return nil
}

func (h *Hub) run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			return

		case cl := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[cl.session]
			if !ok {
				set = make(map[*client]struct{})
				h.clients[cl.session] = set
			}
			set[cl] = struct{}{}
			h.mu.Unlock()
			h.logger.Info(logModule, "Client registered", map[string]interface{}{"session_id": cl.session})

		case cl := <-h.unregister:
			h.mu.Lock()
			if set, ok := h.clients[cl.session]; ok {
				if _, present := set[cl]; present {
					delete(set, cl)
					close(cl.send)
				}
				if len(set) == 0 {
					delete(h.clients, cl.session)
					h.logger.Info(logModule, "Session has no more clients", map[string]interface{}{"session_id": cl.session})
				}
			}
			h.mu.Unlock()
		}
	}
}

// attach registers c and reports false once the hub has stopped.
func (h *Hub) attach(c *client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) detach(c *client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Push sends {type, data} to the session's sockets here and on every other instance.
func (h *Hub) Push(ctx context.Context, sessionID uuid.UUID, eventType string, data interface{}) {
	msg, err := json.Marshal(map[string]interface{}{
		"type": eventType,
		"data": data,
	})
	if err != nil {
		h.logger.Error(logModule, "Failed to encode push", map[string]interface{}{"type": eventType, "error": err})
		return
	}

	h.deliverLocal(sessionID, msg)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterMessage{
			Origin:          h.id,
			TargetSessionID: sessionID.String(),
			Message:         msg,
		})
		if err := h.rdb.Publish(ctx, clusterChannel, payload).Err(); err != nil {
			h.logger.Warn(logModule, "Failed to relay push", map[string]interface{}{
				"session_id": sessionID,
				"error":      err,
			})
		}
	}
}

// ClientCount reports how many sockets this instance holds for the session.
func (h *Hub) ClientCount(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

func (h *Hub) deliverLocal(sessionID uuid.UUID, msg []byte) {
	h.mu.RLock()
	var slow []*client
	for cl := range h.clients[sessionID] {
		select {
		case cl.send <- msg:
		default:
			slow = append(slow, cl)
		}
	}
	h.mu.RUnlock()

	// Unregistering needs the write lock held by run, so it happens outside ours.
	for _, cl := range slow {
		h.logger.Warn(logModule, "Client send buffer full, dropping client", map[string]interface{}{"session_id": sessionID})
		go h.detach(cl)
	}
}

func (h *Hub) relayFromRedis(ctx context.Context, pubsub *redis.PubSub) {
	defer pubsub.Close()
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload clusterMessage
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn(logModule, "Cluster message parse error", map[string]interface{}{"error": err})
				continue
			}
			if payload.Origin == h.id {
				continue
			}
			sessionID, err := uuid.Parse(payload.TargetSessionID)
			if err != nil {
				continue
			}
			h.deliverLocal(sessionID, payload.Message)
		}
	}
}
