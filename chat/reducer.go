// Package chat holds the conversation reducers and the session that drives
// a chat turn over the stream driver.
//
// Reducers are pure: they take a ConversationState and return a new one
// without aliasing the input's message slice.
package chat

import (
	"strings"

	"github.com/pithecene-io/studio/backend"
	"github.com/pithecene-io/studio/types"
)

// Submit appends the user message and an empty assistant placeholder, in
// that order, and marks the conversation as streaming.
// Empty or whitespace-only content is rejected and s is returned unchanged.
func Submit(s types.ConversationState, content string) (types.ConversationState, bool) {
	if strings.TrimSpace(content) == "" {
		return s, false
	}
	out := s.Clone()
	out.Messages = append(out.Messages,
		types.ChatMessage{Role: types.RoleUser, Content: content},
		types.ChatMessage{Role: types.RoleAssistant},
	)
	out.Streaming = true
	return out, true
}

// AppendDelta concatenates delta onto the last message.
// It is a no-op once streaming has finished.
func AppendDelta(s types.ConversationState, delta string) types.ConversationState {
	if !s.Streaming || len(s.Messages) == 0 || delta == "" {
		return s
	}
	out := s.Clone()
	out.Messages[len(out.Messages)-1].Content += delta
	return out
}

// Finish ends the turn. Idempotent.
func Finish(s types.ConversationState) types.ConversationState {
	s.Streaming = false
	return s
}

// Reset clears the transcript. Model and system prompt are kept.
func Reset(s types.ConversationState) types.ConversationState {
	s.Messages = nil
	s.Streaming = false
	return s
}

// SetModel sets the model sent with subsequent turns.
func SetModel(s types.ConversationState, model string) types.ConversationState {
	s.Model = model
	return s
}

// SetSystemPrompt sets the system prompt sent with subsequent turns.
func SetSystemPrompt(s types.ConversationState, prompt string) types.ConversationState {
	s.SystemPrompt = prompt
	return s
}

// Request builds the chat stream body for a new turn: the history of s
// (taken before Submit) followed by the new user message.
func Request(s types.ConversationState, content string) backend.ChatRequest {
	messages := make([]types.ChatMessage, 0, len(s.Messages)+1)
	messages = append(messages, s.Messages...)
	messages = append(messages, types.ChatMessage{Role: types.RoleUser, Content: content})
	return backend.ChatRequest{
		Messages:     messages,
		Model:        s.Model,
		SystemPrompt: s.SystemPrompt,
	}
}
