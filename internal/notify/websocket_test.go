package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/session"
)

func dial(t *testing.T, hub *Hub, sessionID string, stage session.Stage, onFeedback FeedbackHandler) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r, sessionID, stage, onFeedback)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return env
}

func TestHandshakeCarriesCurrentStage(t *testing.T) {
	hub := NewHub(time.Minute)
	conn := dial(t, hub, "s1", session.StageStoryboard, nil)

	env := readEnvelope(t, conn)
	if env.Type != TypeConnected {
		t.Fatalf("first envelope = %s, want connected", env.Type)
	}
	if env.Stage != session.StageStoryboard {
		t.Errorf("stage = %s, want storyboard", env.Stage)
	}
	if env.Timestamp.IsZero() {
		t.Error("envelope missing timestamp")
	}
}

func TestPublishOrderPreserved(t *testing.T) {
	hub := NewHub(time.Minute)
	conn := dial(t, hub, "s1", session.StageStory, nil)

	readEnvelope(t, conn) // connected

	for i := 0; i < 10; i++ {
		hub.Publish("s1", Error(fmt.Sprintf("e%d", i), "sequencing probe", true))
	}

	for i := 0; i < 10; i++ {
		env := readEnvelope(t, conn)
		if env.Type == TypeHeartbeat {
			i--
			continue
		}
		if want := fmt.Sprintf("e%d", i); env.Code != want {
			t.Fatalf("envelope %d has code %q, want %q", i, env.Code, want)
		}
	}
}

func TestHeartbeatEmitted(t *testing.T) {
	hub := NewHub(50 * time.Millisecond)
	conn := dial(t, hub, "s1", session.StageStory, nil)

	readEnvelope(t, conn) // connected

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		env := readEnvelope(t, conn)
		if env.Type == TypeHeartbeat {
			return
		}
	}
	t.Fatal("no heartbeat within deadline")
}

func TestUnrecoverableErrorClosesConnection(t *testing.T) {
	hub := NewHub(time.Minute)
	conn := dial(t, hub, "s1", session.StageStory, nil)

	readEnvelope(t, conn) // connected

	hub.Publish("s1", Error("storage_unavailable", "store write failed", false))

	env := readEnvelope(t, conn)
	if env.Type != TypeError || env.Recoverable {
		t.Fatalf("got %+v, want unrecoverable error", env)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var next Envelope
	if err := conn.ReadJSON(&next); err == nil {
		t.Errorf("connection still open after unrecoverable error, read %+v", next)
	}
}

func TestInboundFeedbackRoutedToHandler(t *testing.T) {
	got := make(chan string, 1)
	handler := func(_ context.Context, sessionID string, stage session.Stage, text string) error {
		got <- sessionID + "/" + string(stage) + "/" + text
		return nil
	}

	hub := NewHub(time.Minute)
	conn := dial(t, hub, "s1", session.StageReferenceImage, handler)
	readEnvelope(t, conn) // connected

	err := conn.WriteJSON(Envelope{
		Type:      TypeFeedback,
		Timestamp: time.Now(),
		Stage:     session.StageReferenceImage,
		Text:      "make the lighting warmer",
	})
	if err != nil {
		t.Fatalf("write failed: %v", err)
	}

	select {
	case v := <-got:
		if v != "s1/reference_image/make the lighting warmer" {
			t.Errorf("handler got %q", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handler never invoked")
	}
}

func TestFeedbackHandlerErrorReportedOnChannel(t *testing.T) {
	handler := func(_ context.Context, _ string, _ session.Stage, _ string) error {
		return fmt.Errorf("%w: stage drifted", session.ErrStageMismatch)
	}

	hub := NewHub(time.Minute)
	conn := dial(t, hub, "s1", session.StageStory, handler)
	readEnvelope(t, conn) // connected

	if err := conn.WriteJSON(Envelope{Type: TypeFeedback, Stage: session.StageStory, Text: "x"}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	env := readEnvelope(t, conn)
	if env.Type != TypeError {
		t.Fatalf("envelope = %s, want error", env.Type)
	}
	if env.Code != "stage_mismatch" || !env.Recoverable {
		t.Errorf("got code %q recoverable %v", env.Code, env.Recoverable)
	}
}

func TestReconnectReplacesConnection(t *testing.T) {
	hub := NewHub(time.Minute)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r, "s1", session.StageStory, nil)
	}))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	first, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("first dial: %v", err)
	}
	defer first.Close()
	readEnvelope(t, first)

	second, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("second dial: %v", err)
	}
	defer second.Close()
	readEnvelope(t, second)

	hub.Publish("s1", Error("probe", "after reconnect", true))

	env := readEnvelope(t, second)
	if env.Code != "probe" {
		t.Errorf("second connection got %+v", env)
	}

	// The replaced connection is closed by the hub.
	_ = first.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var env Envelope
		if err := first.ReadJSON(&env); err != nil {
			break
		}
		if env.Code == "probe" {
			t.Fatal("replaced connection received the event")
		}
	}
}

func TestPublishWithoutConnectionIsDropped(t *testing.T) {
	hub := NewHub(time.Minute)
	// Must not panic or block.
	hub.Publish("nobody", Heartbeat())
	if hub.Connected("nobody") {
		t.Error("phantom connection registered")
	}
}
