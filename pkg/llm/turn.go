// Package llm defines the conversation data model shared by the relay server
// and the client runtime, plus the streaming client for the upstream
// text-generation provider.
package llm

import "encoding/json"

// Turn roles. Role alternation is not enforced anywhere in this package;
// the caller controls ordering and the persisted order is the call order.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Turn is a single message in a conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// History is an ordered sequence of turns. Append-only except for a full clear.
type History []Turn

// Append returns the history with one more turn appended. Callers keep the
// returned value since the backing array may have been reallocated.
func (h History) Append(role, content string) History {
	return append(h, Turn{Role: role, Content: content})
}

// MarshalJSON encodes a nil history as an empty array rather than null so the
// persisted blob always round-trips to a valid messages payload.
func (h History) MarshalJSON() ([]byte, error) {
	if h == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Turn(h))
}
