// Package types defines the shared data model for the studio client.
//
//nolint:revive // types is a common Go package naming convention
package types

// Role is the author of a chat message.
type Role string

// Chat roles accepted by the backend.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	}
	return false
}

// ChatMessage is a single transcript entry.
type ChatMessage struct {
	Role    Role   `json:"role" msgpack:"role"`
	Content string `json:"content" msgpack:"content"`
}

// ConversationState is the rendered chat transcript plus the turn settings.
// Message order is the transcript order. While Streaming is true the last
// message is the one receiving content deltas.
type ConversationState struct {
	// SessionID identifies the conversation across invocations.
	SessionID string `json:"session_id" msgpack:"session_id"`
	// Messages is the ordered transcript.
	Messages []ChatMessage `json:"messages" msgpack:"messages"`
	// Streaming is true while an assistant reply is being received.
	Streaming bool `json:"streaming" msgpack:"streaming"`
	// Model is the model identifier sent with each turn.
	Model string `json:"model" msgpack:"model"`
	// SystemPrompt is sent with each turn when non-empty.
	SystemPrompt string `json:"system_prompt" msgpack:"system_prompt"`
}

// DefaultModel is the model identifier used by a fresh conversation.
const DefaultModel = "gpt"

// NewConversation returns an empty conversation with default settings.
func NewConversation(sessionID string) ConversationState {
	return ConversationState{
		SessionID: sessionID,
		Model:     DefaultModel,
	}
}

// Clone returns a copy whose message slice does not alias s.
func (s ConversationState) Clone() ConversationState {
	out := s
	if s.Messages != nil {
		out.Messages = make([]ChatMessage, len(s.Messages))
		copy(out.Messages, s.Messages)
	}
	return out
}

// Last returns the last message and true, or false when the transcript is empty.
func (s ConversationState) Last() (ChatMessage, bool) {
	if len(s.Messages) == 0 {
		return ChatMessage{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}
