package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/atharva-sardar02/ad-mint-ai-sub012/internal/session"
)

// HTTPClient is a Generator backed by an external generation service
// speaking JSON over HTTP. The service owns model selection and media
// synthesis; this client only ships the input context and decodes the
// artifact descriptor.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for the generation service at baseURL.
func NewHTTPClient(baseURL string, client *http.Client) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("generator base URL is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPClient{baseURL: baseURL, client: client}, nil
}

// Generate implements Generator.
func (c *HTTPClient) Generate(ctx context.Context, in Input) (*session.StageOutput, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encoding generation input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling generation service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generation service returned %s", resp.Status)
	}

	var out session.StageOutput
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding generation output: %w", err)
	}
	if out.Stage == "" {
		out.Stage = in.Stage
	}
	return &out, nil
}

// Compile-time check that HTTPClient implements Generator
var _ Generator = (*HTTPClient)(nil)
