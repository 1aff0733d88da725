package relay

import (
	"context"
)

// Synthesizer produces binary audio for finalized text. Optional; when nil
// the /api/tts route is not mounted.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Config is the relay server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// Synth is an optional speech-synthesis backend for the /api/tts route.
	Synth Synthesizer
}
