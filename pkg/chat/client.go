package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/latchfield/parley/pkg/llm"
)

// Streamer opens one event stream per submission. Implemented by RelayClient
// for production and by fakes in tests.
type Streamer interface {
	OpenStream(ctx context.Context, req llm.ChatRequest) (*llm.EventStream, error)
}

// RelayClient opens SSE streams against a running relay server.
type RelayClient struct {
	target     string
	httpClient *http.Client
}

// NewRelayClient creates a client for the relay at target (scheme + host +
// port).
func NewRelayClient(target string) *RelayClient {
	return &RelayClient{
		target: target,
		httpClient: &http.Client{
			// LLM responses can be slow
			Timeout: 5 * time.Minute,
		},
	}
}

// OpenStream submits the conversation and returns the relay's event stream.
// A non-2xx response (invalid input, upstream failure before streaming) is
// returned as an error carrying the relay's message.
func (c *RelayClient) OpenStream(ctx context.Context, req llm.ChatRequest) (*llm.EventStream, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling chat request: %w", err)
	}

	url := strings.TrimSuffix(c.target, "/") + "/api/chat"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending chat request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("relay returned status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	return llm.NewEventStream(resp.Body), nil
}
