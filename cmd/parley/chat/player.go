package chatcmder

import (
	"context"
	"os"

	"github.com/latchfield/parley/pkg/speech"
)

// filePlayer "plays" synthesized audio by writing it to a file, replacing
// the previous reply. An external audio player can watch the path.
type filePlayer struct {
	path string
}

func (p *filePlayer) Play(_ context.Context, audio []byte) (speech.Playback, error) {
	done := make(chan error, 1)
	done <- os.WriteFile(p.path, audio, 0o644)
	close(done)
	return &filePlayback{done: done}, nil
}

type filePlayback struct {
	done chan error
}

func (p *filePlayback) Done() <-chan error { return p.done }
func (p *filePlayback) Stop()              {}
