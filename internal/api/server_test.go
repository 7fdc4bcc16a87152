package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/generate"
	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/interpret"
	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/machine"
	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/notify"
	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/session"
	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/store"
)

// blockingGen parks every generation until the test finishes.
type blockingGen struct {
	done chan struct{}
}

func (g *blockingGen) Generate(ctx context.Context, in generate.Input) (*session.StageOutput, error) {
	select {
	case <-g.done:
	case <-ctx.Done():
	}
	return nil, context.Canceled
}

type echoReasoner struct{}

func (echoReasoner) Interpret(_ context.Context, _ []session.ConversationTurn, feedback string) (*interpret.Modification, error) {
	return &interpret.Modification{Instruction: feedback}, nil
}

type testEnv struct {
	srv     *httptest.Server
	store   store.Store
	machine *machine.Machine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gen := &blockingGen{done: make(chan struct{})}
	t.Cleanup(func() { close(gen.done) })

	st := store.NewMemoryStore()
	hub := notify.NewHub(time.Minute)
	m := machine.New(st, gen, interpret.New(echoReasoner{}), hub, nil, machine.Options{})

	srv := httptest.NewServer(NewServer(m, hub).Handler())
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, store: st, machine: m}
}

func (e *testEnv) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(e.srv.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func (e *testEnv) createSession(t *testing.T) string {
	t.Helper()
	resp := e.post(t, "/v1/sessions", createRequest{
		OwnerID:            "owner-1",
		Prompt:             "Eco water bottle ad",
		TargetDurationSecs: 30,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want 201", resp.StatusCode)
	}
	desc := decode[sessionDescriptor](t, resp)
	if desc.SessionID == "" {
		t.Fatal("descriptor missing session id")
	}
	return desc.SessionID
}

func TestCreateSession(t *testing.T) {
	e := newTestEnv(t)

	resp := e.post(t, "/v1/sessions", createRequest{
		OwnerID:            "owner-1",
		Prompt:             "Eco water bottle ad",
		TargetDurationSecs: 30,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	desc := decode[sessionDescriptor](t, resp)
	if desc.Stage != session.StageStory {
		t.Errorf("stage = %s, want story", desc.Stage)
	}
}

func TestCreateSessionValidation(t *testing.T) {
	e := newTestEnv(t)

	resp := e.post(t, "/v1/sessions", createRequest{OwnerID: "o", Prompt: "", TargetDurationSecs: 30})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	body := decode[errorResponse](t, resp)
	if body.Code != "validation_error" {
		t.Errorf("code = %q", body.Code)
	}
}

func TestMalformedJSON(t *testing.T) {
	e := newTestEnv(t)

	resp, err := http.Post(e.srv.URL+"/v1/sessions", "application/json", strings.NewReader("{nope"))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestStatusEndpoint(t *testing.T) {
	e := newTestEnv(t)
	id := e.createSession(t)

	resp := e.get(t, "/v1/sessions/"+id+"/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	st := decode[statusResponse](t, resp)
	if st.Stage != session.StageStory || st.HasOutput {
		t.Errorf("status = %+v, want story without output", st)
	}
}

func TestGetFullSession(t *testing.T) {
	e := newTestEnv(t)
	id := e.createSession(t)

	resp := e.get(t, "/v1/sessions/"+id)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	sess := decode[session.Session](t, resp)
	if sess.ID != id {
		t.Errorf("id = %q, want %q", sess.ID, id)
	}
	if len(sess.ConversationHistory) == 0 {
		t.Error("full session missing conversation history")
	}
}

func TestGetUnknownSession(t *testing.T) {
	e := newTestEnv(t)

	resp := e.get(t, "/v1/sessions/ghost/status")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestApproveBeforeOutputResendsStatus(t *testing.T) {
	e := newTestEnv(t)
	id := e.createSession(t)

	resp := e.post(t, "/v1/sessions/"+id+"/approve", approveRequest{Stage: "story"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	body := decode[errorResponse](t, resp)
	if body.Code != "no_output" {
		t.Errorf("code = %q, want no_output", body.Code)
	}
	if body.Status == nil || body.Status.Stage != session.StageStory {
		t.Error("conflict response must resend current status")
	}
}

func TestApproveAdvancesStage(t *testing.T) {
	e := newTestEnv(t)
	id := e.createSession(t)

	out := &session.StageOutput{
		Stage:   session.StageStory,
		Payload: session.StagePayload{Kind: session.PayloadNarrative, Narrative: "journey"},
	}
	if err := e.machine.HandleStageComplete(context.Background(), id, session.StageStory, 0, out); err != nil {
		t.Fatalf("HandleStageComplete: %v", err)
	}

	resp := e.post(t, "/v1/sessions/"+id+"/approve", approveRequest{Stage: "story"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	body := decode[approveResponse](t, resp)
	if body.NextStage != session.StageReferenceImage {
		t.Errorf("next_stage = %s, want reference_image", body.NextStage)
	}
}

func TestApproveUnknownStage(t *testing.T) {
	e := newTestEnv(t)
	id := e.createSession(t)

	resp := e.post(t, "/v1/sessions/"+id+"/approve", approveRequest{Stage: "montage"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRegenerateAccepted(t *testing.T) {
	e := newTestEnv(t)
	id := e.createSession(t)

	resp := e.post(t, "/v1/sessions/"+id+"/regenerate", regenerateRequest{
		Stage:    "story",
		Feedback: "make it darker",
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("status = %d, want 202", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRegenerateStageMismatch(t *testing.T) {
	e := newTestEnv(t)
	id := e.createSession(t)

	resp := e.post(t, "/v1/sessions/"+id+"/regenerate", regenerateRequest{
		Stage:    "video",
		Feedback: "more drama",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}
	body := decode[errorResponse](t, resp)
	if body.Code != "stage_mismatch" {
		t.Errorf("code = %q", body.Code)
	}
}

func TestWebsocketHandshake(t *testing.T) {
	e := newTestEnv(t)
	id := e.createSession(t)

	url := "ws" + strings.TrimPrefix(e.srv.URL, "http") + "/v1/sessions/" + id + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var env notify.Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	if env.Type != notify.TypeConnected || env.Stage != session.StageStory {
		t.Errorf("handshake = %+v", env)
	}
}
