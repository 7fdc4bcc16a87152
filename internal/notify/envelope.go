// Package notify implements the per-session real-time push channel: one
// websocket connection per session, ordered delivery of machine events, and
// a fixed-interval heartbeat to expose half-open connections.
package notify

import (
	"time"

	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/session"
)

// MessageType enumerates the wire message kinds.
type MessageType string

// Server-to-client kinds.
const (
	TypeConnected     MessageType = "connected"
	TypeStageComplete MessageType = "stage_complete"
	TypeError         MessageType = "error"
	TypeHeartbeat     MessageType = "heartbeat"
)

// Client-to-server kinds.
const (
	TypeFeedback MessageType = "feedback"
	TypePing     MessageType = "ping"
)

// Envelope is the wire format for every channel message in both directions.
// Unused fields are omitted per message kind.
type Envelope struct {
	Type        MessageType          `json:"type"`
	Timestamp   time.Time            `json:"timestamp"`
	Stage       session.Stage        `json:"stage,omitempty"`
	Output      *session.StageOutput `json:"output,omitempty"`
	Code        string               `json:"code,omitempty"`
	Message     string               `json:"message,omitempty"`
	Recoverable bool                 `json:"recoverable,omitempty"`
	Text        string               `json:"text,omitempty"`
}

// Connected builds the handshake ack carrying the session's current stage.
func Connected(stage session.Stage) Envelope {
	return Envelope{Type: TypeConnected, Timestamp: time.Now().UTC(), Stage: stage}
}

// StageComplete builds a completion event for stage with its output payload.
func StageComplete(out *session.StageOutput) Envelope {
	return Envelope{Type: TypeStageComplete, Timestamp: time.Now().UTC(), Stage: out.Stage, Output: out}
}

// Error builds an error event. If recoverable is false the connection is
// closed after the event is sent.
func Error(code, message string, recoverable bool) Envelope {
	return Envelope{
		Type:        TypeError,
		Timestamp:   time.Now().UTC(),
		Code:        code,
		Message:     message,
		Recoverable: recoverable,
	}
}

// Heartbeat builds a keep-alive event.
func Heartbeat() Envelope {
	return Envelope{Type: TypeHeartbeat, Timestamp: time.Now().UTC()}
}
