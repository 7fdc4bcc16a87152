package generate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/session"
)

func TestHTTPClientGenerate(t *testing.T) {
	var gotInput Input
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/generate" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotInput); err != nil {
			t.Errorf("decode input: %v", err)
		}
		_ = json.NewEncoder(w).Encode(session.StageOutput{
			Payload:    session.StagePayload{Kind: session.PayloadNarrative, Narrative: "a journey"},
			DurationMs: 900,
			CostUSD:    0.4,
		})
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL, nil)
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}

	out, err := c.Generate(context.Background(), Input{
		SessionID: "s1",
		Stage:     session.StageStory,
		Prompt:    "Eco water bottle ad",
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if out.Payload.Narrative != "a journey" {
		t.Errorf("narrative = %q", out.Payload.Narrative)
	}
	// Stage backfilled from the request when the service omits it.
	if out.Stage != session.StageStory {
		t.Errorf("stage = %s, want story", out.Stage)
	}
	if gotInput.Prompt != "Eco water bottle ad" {
		t.Errorf("service saw prompt %q", gotInput.Prompt)
	}
}

func TestHTTPClientGenerateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL, nil)
	if err != nil {
		t.Fatalf("NewHTTPClient failed: %v", err)
	}

	if _, err := c.Generate(context.Background(), Input{Stage: session.StageStory}); err == nil {
		t.Error("expected error on 500 response")
	}
}

func TestNewHTTPClientRequiresURL(t *testing.T) {
	if _, err := NewHTTPClient("", nil); err == nil {
		t.Error("expected error for empty base URL")
	}
}
