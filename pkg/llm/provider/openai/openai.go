// Package openai implements the provider interface for OpenAI-compatible
// chat-completions APIs (OpenAI itself, and the many local servers that
// speak the same streaming format).
package openai

import (
	"encoding/json"
	"fmt"

	"github.com/latchfield/parley/pkg/llm"
	"github.com/latchfield/parley/pkg/llm/provider"
)

func init() {
	provider.Register("openai", func() provider.Provider { return New() })
}

type Provider struct{}

func New() *Provider { return &Provider{} }

func (p *Provider) Name() string { return "openai" }

func (p *Provider) Endpoint() string { return "/v1/chat/completions" }

// request is the OpenAI-native chat-completions request body.
type request struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chunk is a single streaming chunk in the OpenAI SSE format. The token
// delta lives at choices[0].delta.content; finish_reason is set on the
// final content chunk.
type chunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

func (p *Provider) BuildRequest(model string, req llm.ChatRequest) ([]byte, error) {
	messages := make([]message, 0, len(req.Messages)+1)
	messages = append(messages, message{Role: llm.RoleSystem, Content: req.System()})
	for _, turn := range req.Messages {
		messages = append(messages, message{Role: turn.Role, Content: turn.Content})
	}

	body, err := json.Marshal(request{
		Model:    model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling chat request: %w", err)
	}
	return body, nil
}

func (p *Provider) ParseChunk(payload []byte) (provider.Chunk, error) {
	var c chunk
	if err := json.Unmarshal(payload, &c); err != nil {
		return provider.Chunk{}, fmt.Errorf("parsing stream chunk: %w", err)
	}
	if len(c.Choices) == 0 {
		// Keep-alive or usage-only chunk.
		return provider.Chunk{}, nil
	}
	choice := c.Choices[0]
	return provider.Chunk{
		Delta: choice.Delta.Content,
		Done:  choice.FinishReason != nil && *choice.FinishReason != "",
	}, nil
}
