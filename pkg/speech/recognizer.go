package speech

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// Events is the fixed capability set of a speech recognizer. Any runtime
// adapts its native recognition primitives (browser speech recognition,
// an ASR service, a test script) to these four callbacks. Nil callbacks
// are skipped.
type Events struct {
	OnStart  func()
	OnResult func(text string)
	OnError  func(err error)
	OnEnd    func()
}

// Recognizer is an abstract source of recognized utterances.
type Recognizer interface {
	// Start begins one recognition session, delivering callbacks until the
	// session ends or ctx is cancelled.
	Start(ctx context.Context, ev Events) error

	// Stop ends the session early. OnEnd still fires.
	Stop()
}

// LineRecognizer adapts a line-oriented reader (stdin in the terminal
// client) to the Recognizer interface: each non-empty line is one
// recognition result.
type LineRecognizer struct {
	r      io.Reader
	cancel context.CancelFunc
}

// NewLineRecognizer wraps a reader.
func NewLineRecognizer(r io.Reader) *LineRecognizer {
	return &LineRecognizer{r: r}
}

func (l *LineRecognizer) Start(ctx context.Context, ev Events) error {
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	defer cancel()

	if ev.OnStart != nil {
		ev.OnStart()
	}
	defer func() {
		if ev.OnEnd != nil {
			ev.OnEnd()
		}
	}()

	scanner := bufio.NewScanner(l.r)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if ev.OnResult != nil {
			ev.OnResult(text)
		}
		// A result callback may have stopped the session; bail before
		// blocking on the next read.
		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}

	if err := scanner.Err(); err != nil {
		if ev.OnError != nil {
			ev.OnError(err)
		}
		return err
	}
	return nil
}

func (l *LineRecognizer) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
}
