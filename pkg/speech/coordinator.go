package speech

import (
	"context"
	"fmt"
	"sync"
)

// Synthesizer produces binary audio for finalized text.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Coordinator owns speech playback for one client session. Exactly one
// playback may be active: starting a new one, or any recording or sending
// action (via Interrupt), first stops and fully releases the active playback
// so no two audio resources are ever held at once.
type Coordinator struct {
	synth  Synthesizer
	player Player

	mu     sync.Mutex
	active Playback
}

// NewCoordinator wires a synthesizer to a player.
func NewCoordinator(synth Synthesizer, player Player) *Coordinator {
	return &Coordinator{synth: synth, player: player}
}

// Speak synthesizes the text (markup stripped) and starts exclusive
// playback. The returned error covers synthesis and playback start;
// completion errors are delivered on the playback's Done channel and are a
// local error state only, never a reason to abort the conversation flow.
func (c *Coordinator) Speak(ctx context.Context, text string) (Playback, error) {
	speakable := SpeakableText(text)
	if speakable == "" {
		return nil, nil
	}

	audio, err := c.synth.Synthesize(ctx, speakable)
	if err != nil {
		return nil, fmt.Errorf("requesting speech: %w", err)
	}

	// The stop-then-start handoff runs under the lock so overlapping Speak
	// calls cannot both end up holding a live playback.
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked()

	pb, err := c.player.Play(ctx, audio)
	if err != nil {
		return nil, fmt.Errorf("starting playback: %w", err)
	}
	c.active = pb
	return pb, nil
}

// Interrupt stops and releases the active playback, if any. Called before
// starting a new recording and before sending a new message.
func (c *Coordinator) Interrupt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.releaseLocked()
}

// releaseLocked stops the active playback. Caller holds mu.
func (c *Coordinator) releaseLocked() {
	if c.active != nil {
		c.active.Stop()
		c.active = nil
	}
}

// Speaking reports whether a playback is currently held.
func (c *Coordinator) Speaking() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active != nil
}
