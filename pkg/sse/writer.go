package sse

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
)

// Writer emits SSE events to an underlying writer, one "data:" line plus a
// blank separator per event, flushing after every event so tokens reach the
// client as they arrive rather than coalescing in a buffer.
type Writer struct {
	w  io.Writer
	mu sync.Mutex
}

// NewWriter wraps w. When w implements http.Flusher each event is flushed
// through to the transport; an io.Pipe writer needs no flushing because
// writes block until the reader consumes them.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteEvent JSON-encodes v and writes it as a single SSE event.
func (sw *Writer) WriteEvent(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return sw.writeFrame(string(b))
}

// WriteDone writes the stream terminator event.
func (sw *Writer) WriteDone() error {
	return sw.writeFrame(DoneSentinel)
}

func (sw *Writer) writeFrame(payload string) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if _, err := fmt.Fprintf(sw.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	if f, ok := sw.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
