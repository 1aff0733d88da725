package chatcmder

import (
	"fmt"
	"io"
	"sync"

	"github.com/latchfield/parley/pkg/cliui"
	"github.com/latchfield/parley/pkg/llm"
)

// consoleSink renders controller effects to the terminal. It also tracks
// turn completion so the input loop can block until the current reply
// finishes or fails.
type consoleSink struct {
	out io.Writer
	err io.Writer

	mu   sync.Mutex
	done chan struct{}
}

func newConsoleSink(out, errOut io.Writer) *consoleSink {
	return &consoleSink{out: out, err: errOut}
}

// wait blocks until the turn started by the last Submit reaches a terminal
// state. Must be called exactly once per successful Submit.
func (s *consoleSink) wait() {
	s.mu.Lock()
	if s.done == nil {
		s.done = make(chan struct{})
	}
	done := s.done
	s.mu.Unlock()

	<-done

	s.mu.Lock()
	s.done = nil
	s.mu.Unlock()
}

func (s *consoleSink) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		s.done = make(chan struct{})
	}
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

func (s *consoleSink) OnStreamStart() {
	fmt.Fprint(s.out, assistantPrompt)
}

func (s *consoleSink) OnDelta(delta string) {
	fmt.Fprint(s.out, delta)
}

func (s *consoleSink) OnAssistantTurn(_ llm.Turn) {
	fmt.Fprint(s.out, "\n\n")
	s.finish()
}

func (s *consoleSink) OnError(message string) {
	fmt.Fprintf(s.err, "\n  %s %s\n\n", cliui.FailMark, message)
	s.finish()
}

func (s *consoleSink) OnSpeechError(err error) {
	fmt.Fprintf(s.err, "  %s speech: %v\n", cliui.FailMark, err)
}
