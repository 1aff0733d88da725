// Package upstream implements the streaming client for the upstream
// text-generation provider. Given a conversation it opens a streaming
// chat request and exposes the incremental token sequence.
package upstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/latchfield/parley/pkg/llm"
	"github.com/latchfield/parley/pkg/llm/provider"
	"github.com/latchfield/parley/pkg/sse"
)

// Error is a failed upstream request: a non-2xx response received before
// the stream opened.
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, e.Body)
}

// Config holds the upstream connection settings.
type Config struct {
	// BaseURL of the provider API (e.g., "https://api.openai.com" or a
	// local OpenAI-compatible server).
	BaseURL string

	// APIKey is sent as a bearer token when non-empty.
	APIKey string

	// Model name passed through to the provider.
	Model string
}

// Client opens streaming chat requests against one provider.
type Client struct {
	config     Config
	prov       provider.Provider
	httpClient *http.Client
}

// NewClient creates a Client for the given provider.
func NewClient(config Config, prov provider.Provider) *Client {
	return &Client{
		config: config,
		prov:   prov,
		httpClient: &http.Client{
			// LLM responses can be slow
			Timeout: 5 * time.Minute,
		},
	}
}

// Stream opens a streaming request for the conversation. The returned
// TokenStream yields token deltas in arrival order; the caller must Close it.
func (c *Client) Stream(ctx context.Context, req llm.ChatRequest) (*TokenStream, error) {
	body, err := c.prov.BuildRequest(c.config.Model, req)
	if err != nil {
		return nil, fmt.Errorf("building upstream request: %w", err)
	}

	url := strings.TrimSuffix(c.config.BaseURL, "/") + c.prov.Endpoint()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating upstream request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending upstream request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, &Error{Status: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	return &TokenStream{
		stream: sse.NewStream(resp.Body),
		prov:   c.prov,
	}, nil
}

// TokenStream is the incremental token event sequence of one request.
type TokenStream struct {
	stream *sse.Stream
	prov   provider.Provider
	done   bool
}

// Next returns the next non-empty token delta. io.EOF marks normal end of
// generation (provider finish marker or stream terminator); any other error
// is a transport failure. Chunks that fail to parse are skipped so a
// truncated tail cannot poison an otherwise healthy stream.
func (t *TokenStream) Next() (string, error) {
	if t.done {
		return "", io.EOF
	}
	for {
		payload, err := t.stream.Next()
		if err != nil {
			t.done = true
			return "", err
		}

		chunk, err := t.prov.ParseChunk([]byte(payload))
		if err != nil {
			continue
		}
		if chunk.Delta != "" {
			if chunk.Done {
				t.done = true
			}
			return chunk.Delta, nil
		}
		if chunk.Done {
			t.done = true
			return "", io.EOF
		}
	}
}

// Close aborts the stream and releases the connection.
func (t *TokenStream) Close() error {
	return t.stream.Close()
}
