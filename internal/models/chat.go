package models

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage represents a single message in a conversation.
type ChatMessage struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// ChatClientFrame is what the widget sends over the websocket.
type ChatClientFrame struct {
	Type    string `json:"type"` // "open" | "message"
	Content string `json:"content,omitempty"`
}

// ChatSessionView is the visible state of a chat session.
type ChatSessionView struct {
	State        string        `json:"state"`
	Transcript   []ChatMessage `json:"transcript"`
	InputEnabled bool          `json:"input_enabled"`
	Pending      bool          `json:"pending"`
	Error        string        `json:"error,omitempty"`
}

// TranscriptUpdate carries the replaced trailing message while streaming.
type TranscriptUpdate struct {
	Index   int         `json:"index"`
	Message ChatMessage `json:"message"`
}
