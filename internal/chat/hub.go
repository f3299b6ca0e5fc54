// Package chat fans planning-thread messages out to websocket subscribers.
package chat

import (
	"encoding/json"
	"sync"

	"github.com/iwvelando/fpna/internal/store"
	"go.uber.org/zap"
)

// EventMessage is the type of the event sent for every new message.
const EventMessage = "message"

// Event is the payload delivered to subscribers.
type Event struct {
	Type    string        `json:"type"`
	Message store.Message `json:"message"`
}

// Conn is a subscriber connection.
type Conn interface {
	Send(payload []byte) error
	Close() error
}

// Hub holds the subscribers of each thread.
type Hub struct {
	mu      sync.Mutex
	threads map[string]map[Conn]struct{}
	logger  *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{threads: make(map[string]map[Conn]struct{}), logger: logger}
}

// Join subscribes c to thread.
func (h *Hub) Join(thread string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.threads[thread]
	if !ok {
		conns = make(map[Conn]struct{})
		h.threads[thread] = conns
	}
	conns[c] = struct{}{}
}

// Leave unsubscribes c from thread. It does not close c.
func (h *Hub) Leave(thread string, c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(thread, c)
}

func (h *Hub) leaveLocked(thread string, c Conn) {
	conns, ok := h.threads[thread]
	if !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.threads, thread)
	}
}

// Size returns the number of subscribers of thread.
func (h *Hub) Size(thread string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.threads[thread])
}

// Broadcast sends m to every subscriber of its thread and returns the number
// of deliveries. Connections that fail are dropped and closed.
func (h *Hub) Broadcast(m store.Message) int {
	payload, err := json.Marshal(Event{Type: EventMessage, Message: m})
	if err != nil {
		h.logger.Error("failed to encode chat event",
			zap.String("op", "chat.Broadcast"),
			zap.Error(err),
		)
		return 0
	}

	h.mu.Lock()
	conns := make([]Conn, 0, len(h.threads[m.ThreadID]))
	for c := range h.threads[m.ThreadID] {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	delivered := 0
	var dead []Conn
	for _, c := range conns {
		if err := c.Send(payload); err != nil {
			dead = append(dead, c)
			continue
		}
		delivered++
	}
	if len(dead) == 0 {
		return delivered
	}

	h.mu.Lock()
	for _, c := range dead {
		h.leaveLocked(m.ThreadID, c)
	}
	h.mu.Unlock()
	for _, c := range dead {
		_ = c.Close()
	}
	h.logger.Debug("dropped dead chat connections",
		zap.String("op", "chat.Broadcast"),
		zap.String("thread", m.ThreadID),
		zap.Int("dropped", len(dead)),
	)
	return delivered
}

// Close closes every subscriber and empties the hub.
func (h *Hub) Close() {
	h.mu.Lock()
	var all []Conn
	for _, conns := range h.threads {
		for c := range conns {
			all = append(all, c)
		}
	}
	h.threads = make(map[string]map[Conn]struct{})
	h.mu.Unlock()

	for _, c := range all {
		_ = c.Close()
	}
}
