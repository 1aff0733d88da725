package llm

// Stream event types carried on the relay's SSE channel.
const (
	EventText  = "text"
	EventDone  = "done"
	EventError = "error"
)

// StreamEvent is the tagged union re-emitted by the relay for each upstream
// token. Type "text" carries Content, "error" carries Message. "done" and
// "error" are both terminal; "done" is always the last event of a successful
// stream.
type StreamEvent struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Message string `json:"message,omitempty"`
}

// TextEvent builds a text delta event.
func TextEvent(delta string) StreamEvent {
	return StreamEvent{Type: EventText, Content: delta}
}

// ErrorEvent builds a terminal error event.
func ErrorEvent(message string) StreamEvent {
	return StreamEvent{Type: EventError, Message: message}
}

// DoneEvent builds the terminal success event. On the wire the relay emits
// the literal "data: [DONE]" terminator instead of a JSON payload; the decoder
// normalizes the terminator back into this event.
func DoneEvent() StreamEvent {
	return StreamEvent{Type: EventDone}
}

// Terminal reports whether no further events may follow this one.
func (e StreamEvent) Terminal() bool {
	return e.Type == EventDone || e.Type == EventError
}
