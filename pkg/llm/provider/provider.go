// Package provider defines the interface for upstream text-generation
// provider wire formats. Each provider implementation knows how to build its
// specific streaming request and how to parse its streaming chunks into
// incremental token deltas.
package provider

import (
	"errors"
	"fmt"

	"github.com/latchfield/parley/pkg/llm"
)

// ErrUnknownProvider is returned by New for an unrecognized provider type.
var ErrUnknownProvider = errors.New("unknown provider type")

// Chunk is one parsed streaming chunk from the upstream provider.
type Chunk struct {
	// Delta is the incremental text carried by the chunk. May be empty for
	// chunks that only carry metadata (role preludes, finish markers).
	Delta string

	// Done reports that the provider marked generation complete.
	Done bool
}

// Provider converts between the internal conversation model and a specific
// upstream provider's streaming wire format.
type Provider interface {
	// Name returns the canonical provider name (e.g., "openai").
	Name() string

	// Endpoint returns the URL path of the streaming chat endpoint,
	// appended to the configured upstream base URL.
	Endpoint() string

	// BuildRequest encodes a streaming request body for the given
	// conversation. The request's effective system prompt is injected the
	// way the provider expects.
	BuildRequest(model string, req llm.ChatRequest) ([]byte, error)

	// ParseChunk parses a single SSE data payload into a Chunk.
	// Returns an error if the payload cannot be parsed.
	ParseChunk(payload []byte) (Chunk, error)
}

// Factory for registered providers.
type Factory func() Provider

var registry = map[string]Factory{}

// Register makes a provider constructor available to New. Called from
// provider implementation init functions.
func Register(name string, f Factory) {
	registry[name] = f
}

// New creates a provider by type name.
func New(providerType string) (Provider, error) {
	f, ok := registry[providerType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, providerType)
	}
	return f(), nil
}

// Supported returns the names of all registered providers.
func Supported() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
