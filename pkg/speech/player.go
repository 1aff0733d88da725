package speech

import (
	"context"
	"io"
)

// Playback is one active audio playback. Stop releases every resource the
// playback holds; Done reports completion or failure exactly once.
type Playback interface {
	// Done is closed-over when playback finishes. A nil receive means the
	// audio played to the end; a non-nil one is a playback failure.
	Done() <-chan error

	// Stop halts playback and releases its resources. Safe to call more
	// than once and after completion.
	Stop()
}

// Player starts playback of a synthesized audio payload. The browser runtime
// adapts its audio element to this interface; tests and the terminal client
// use WriterPlayer.
type Player interface {
	Play(ctx context.Context, audio []byte) (Playback, error)
}

// WriterPlayer "plays" audio by copying it to a writer (a file, a pipe to an
// external player process, or io.Discard). Playback completes as soon as the
// copy does.
type WriterPlayer struct {
	W io.Writer
}

func (p *WriterPlayer) Play(_ context.Context, audio []byte) (Playback, error) {
	done := make(chan error, 1)
	_, err := p.W.Write(audio)
	done <- err
	close(done)
	return &writerPlayback{done: done}, nil
}

type writerPlayback struct {
	done chan error
}

func (p *writerPlayback) Done() <-chan error { return p.done }
func (p *writerPlayback) Stop()              {}
