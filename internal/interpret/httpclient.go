package interpret

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/session"
)

// HTTPReasoner is a Reasoner backed by an external reasoning service
// speaking JSON over HTTP.
type HTTPReasoner struct {
	baseURL string
	client  *http.Client
}

// NewHTTPReasoner creates a client for the reasoning service at baseURL.
func NewHTTPReasoner(baseURL string, client *http.Client) (*HTTPReasoner, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("reasoner base URL is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPReasoner{baseURL: baseURL, client: client}, nil
}

type interpretRequest struct {
	Conversation []session.ConversationTurn `json:"conversation"`
	Feedback     string                     `json:"feedback"`
}

// Interpret implements Reasoner.
func (r *HTTPReasoner) Interpret(ctx context.Context, suffix []session.ConversationTurn, feedback string) (*Modification, error) {
	body, err := json.Marshal(interpretRequest{Conversation: suffix, Feedback: feedback})
	if err != nil {
		return nil, fmt.Errorf("encoding interpret request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/interpret", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling reasoning service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reasoning service returned %s", resp.Status)
	}

	var mod Modification
	if err := json.NewDecoder(resp.Body).Decode(&mod); err != nil {
		return nil, fmt.Errorf("decoding modification: %w", err)
	}
	return &mod, nil
}

// Compile-time check that HTTPReasoner implements Reasoner
var _ Reasoner = (*HTTPReasoner)(nil)
