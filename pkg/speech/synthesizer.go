// Package speech handles the audio side of the voice chat client: requesting
// synthesized speech for finalized assistant text and coordinating exclusive
// playback against recording and sending actions.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SynthesisError is a failed synthesis request: any non-2xx response from
// the speech-synthesis endpoint is a hard error.
type SynthesisError struct {
	Status int
	Body   string
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis returned status %d: %s", e.Status, e.Body)
}

// Client requests synthesized audio from a speech-synthesis endpoint with
// the contract: POST {"text": ...} -> binary audio payload.
type Client struct {
	target     string
	httpClient *http.Client
}

// NewClient creates a synthesis client for the given endpoint URL.
func NewClient(target string) *Client {
	return &Client{
		target: target,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Synthesize returns the audio payload for the given text. The text is sent
// as-is; callers strip markup first via SpeakableText.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return nil, fmt.Errorf("marshaling synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending synthesis request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, &SynthesisError{
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(respBody)),
		}
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading synthesis response: %w", err)
	}
	return audio, nil
}
