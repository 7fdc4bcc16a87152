package notify

import (
	"sync"
	"time"
)

// Hub tracks the one live connection per session and fans machine events
// into each connection's outbound queue. Each queue is drained by a single
// writer goroutine, so events published for a session are delivered in the
// order they were enqueued.
type Hub struct {
	mu        sync.Mutex
	clients   map[string]*client
	heartbeat time.Duration
	sendBuf   int
}

// NewHub creates a Hub. heartbeat is the keep-alive interval for every
// connection.
func NewHub(heartbeat time.Duration) *Hub {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	return &Hub{
		clients:   make(map[string]*client),
		heartbeat: heartbeat,
		sendBuf:   64,
	}
}

// Publish enqueues env for the session's connection. With no connection
// registered the event is dropped; the client resynchronizes from durable
// state on reconnect, which is why every mutation is persisted before it is
// published. A consumer too slow to drain its queue is disconnected rather
// than delivered out of order.
func (h *Hub) Publish(sessionID string, env Envelope) {
	h.mu.Lock()
	c := h.clients[sessionID]
	h.mu.Unlock()

	if c == nil {
		return
	}

	select {
	case c.send <- env:
	default:
		c.close()
	}
}

// Connected reports whether a connection is registered for the session.
func (h *Hub) Connected(sessionID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clients[sessionID] != nil
}

// register installs c as the session's connection, replacing and closing
// any previous one (reconnect support).
func (h *Hub) register(c *client) {
	h.mu.Lock()
	prev := h.clients[c.sessionID]
	h.clients[c.sessionID] = c
	h.mu.Unlock()

	if prev != nil {
		prev.close()
	}
}

// unregister removes c if it is still the session's current connection.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if h.clients[c.sessionID] == c {
		delete(h.clients, c.sessionID)
	}
	h.mu.Unlock()
}
