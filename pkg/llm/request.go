package llm

// DefaultSystemPrompt is used when a request carries no system message.
// Replies are spoken aloud, so the prompt asks for plain spoken-style prose
// with numbers spelled out.
const DefaultSystemPrompt = "You are a helpful voice assistant. Reply in short, " +
	"conversational spoken-style sentences. Do not use markdown, code fences, " +
	"lists, or any other markup. Spell out numbers as words."

// ChatRequest is the relay's input contract: an ordered conversation and an
// optional system message. An empty SystemMessage means DefaultSystemPrompt.
type ChatRequest struct {
	Messages      []Turn `json:"messages"`
	SystemMessage string `json:"systemMessage,omitempty"`
}

// System returns the effective system prompt for the request.
func (r *ChatRequest) System() string {
	if r.SystemMessage != "" {
		return r.SystemMessage
	}
	return DefaultSystemPrompt
}
