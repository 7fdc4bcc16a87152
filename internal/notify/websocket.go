package notify

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/session"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Maximum inbound message size.
	maxMessageSize = 16 * 1024
	// Read deadline as a multiple of the heartbeat interval; a peer silent
	// for longer is treated as half-open.
	readWaitFactor = 4
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Authentication and origin policy live outside the core.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// FeedbackHandler is invoked for each inbound feedback message.
type FeedbackHandler func(ctx context.Context, sessionID string, stage session.Stage, text string) error

// client is one websocket connection bound to a session.
type client struct {
	hub       *Hub
	sessionID string
	conn      *websocket.Conn
	send      chan Envelope
	done      chan struct{}
	closeOnce sync.Once
}

// ServeWS upgrades the request to a websocket connection for the session,
// sends the connected handshake, and starts the read/write pumps. The
// handshake carries currentStage so a reconnecting client can resync.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string, currentStage session.Stage, onFeedback FeedbackHandler) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{
		hub:       h,
		sessionID: sessionID,
		conn:      conn,
		send:      make(chan Envelope, h.sendBuf),
		done:      make(chan struct{}),
	}

	// The handshake is enqueued before the client is visible to Publish,
	// so it is always delivered first.
	c.send <- Connected(currentStage)
	h.register(c)

	go c.writePump(h.heartbeat)
	go c.readPump(onFeedback)
	return nil
}

// writePump drains the outbound queue and emits heartbeats on a fixed
// interval independent of other traffic. It is the connection's only
// writer. An unrecoverable error event closes the connection after the
// event is flushed.
func (c *client) writePump(heartbeat time.Duration) {
	ticker := time.NewTicker(heartbeat)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case env := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(env); err != nil {
				return
			}
			if env.Type == TypeError && !env.Recoverable {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, env.Code),
					time.Now().Add(writeWait))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(Heartbeat()); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// readPump consumes inbound envelopes. Ping refreshes the read deadline;
// feedback is handed to the handler, with failures reported back on the
// channel rather than closing it.
func (c *client) readPump(onFeedback FeedbackHandler) {
	defer func() {
		c.hub.unregister(c)
		c.close()
	}()

	readWait := readWaitFactor * c.hub.heartbeat
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(readWait))

	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(readWait))

		switch env.Type {
		case TypePing:
			// Deadline refresh is the whole point.
		case TypeFeedback:
			if onFeedback == nil {
				continue
			}
			if err := onFeedback(context.Background(), c.sessionID, env.Stage, env.Text); err != nil {
				code, recoverable := session.ErrorCode(err)
				c.hub.Publish(c.sessionID, Error(code, err.Error(), recoverable))
			}
		}
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}
