package llm

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/latchfield/parley/pkg/sse"
)

// DecodeEvent parses one SSE data payload into a StreamEvent.
func DecodeEvent(payload []byte) (StreamEvent, error) {
	var ev StreamEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return StreamEvent{}, fmt.Errorf("decoding stream event: %w", err)
	}
	switch ev.Type {
	case EventText, EventDone, EventError:
		return ev, nil
	default:
		return StreamEvent{}, fmt.Errorf("decoding stream event: unknown type %q", ev.Type)
	}
}

// EventDecoder turns raw relay response bytes into an ordered sequence of
// typed StreamEvents, tolerant of arbitrary chunk boundaries.
//
// Payloads that fail to parse are swallowed rather than surfaced: a stream
// cut mid-event leaves a truncated JSON fragment in the buffer, and reporting
// it would turn every abrupt disconnect into a protocol error. Each parse
// failure is isolated to its own line, so decoding resumes cleanly on the
// next one; Malformed counts the drops for callers that want to log them.
type EventDecoder struct {
	frames    *sse.Decoder
	terminal  bool
	malformed int
}

// NewEventDecoder returns a decoder at the start of a stream.
func NewEventDecoder() *EventDecoder {
	return &EventDecoder{frames: sse.NewDecoder()}
}

// Feed consumes the next chunk of response bytes and returns the events it
// completed. After a terminal event ("done" or "error") no further events are
// produced, even if complete lines remain in the buffer.
func (d *EventDecoder) Feed(p []byte) []StreamEvent {
	if d.terminal {
		return nil
	}

	var events []StreamEvent
	for _, payload := range d.frames.Feed(p) {
		ev, err := DecodeEvent([]byte(payload))
		if err != nil {
			d.malformed++
			continue
		}
		events = append(events, ev)
		if ev.Terminal() {
			d.terminal = true
			break
		}
	}
	if !d.terminal && d.frames.Done() {
		events = append(events, DoneEvent())
		d.terminal = true
	}
	return events
}

// Terminal reports whether a terminal event has been produced.
func (d *EventDecoder) Terminal() bool { return d.terminal }

// Malformed returns the number of payloads dropped as unparseable.
func (d *EventDecoder) Malformed() int { return d.malformed }

// EventStream drives an EventDecoder over an HTTP response body: a lazy,
// finite, non-restartable sequence of typed events.
type EventStream struct {
	body    io.ReadCloser
	dec     *EventDecoder
	buf     []byte
	pending []StreamEvent
	err     error
}

// NewEventStream wraps a relay response body.
func NewEventStream(body io.ReadCloser) *EventStream {
	return &EventStream{
		body: body,
		dec:  NewEventDecoder(),
		buf:  make([]byte, 4096),
	}
}

// Next returns the next event. io.EOF follows the terminal event or the end
// of the body; a read failure is returned as the transport error.
func (s *EventStream) Next() (StreamEvent, error) {
	for {
		if len(s.pending) > 0 {
			ev := s.pending[0]
			s.pending = s.pending[1:]
			return ev, nil
		}
		if s.err != nil {
			return StreamEvent{}, s.err
		}
		if s.dec.Terminal() {
			s.err = io.EOF
			return StreamEvent{}, io.EOF
		}

		n, err := s.body.Read(s.buf)
		if n > 0 {
			s.pending = s.dec.Feed(s.buf[:n])
		}
		if err != nil {
			s.err = err
			if len(s.pending) > 0 {
				continue
			}
			return StreamEvent{}, err
		}
	}
}

// Malformed returns the number of payloads dropped as unparseable.
func (s *EventStream) Malformed() int { return s.dec.Malformed() }

// Close releases the underlying body, aborting any open read.
func (s *EventStream) Close() error {
	return s.body.Close()
}
