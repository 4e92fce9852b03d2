package types

import "testing"

func TestConversationState_CloneDoesNotAlias(t *testing.T) {
	s := NewConversation("sess-1")
	s.Messages = []ChatMessage{{Role: RoleUser, Content: "hi"}}

	c := s.Clone()
	c.Messages[0].Content = "changed"

	if s.Messages[0].Content != "hi" {
		t.Errorf("original mutated through clone: %q", s.Messages[0].Content)
	}
	if c.Model != DefaultModel {
		t.Errorf("Model = %q, want %q", c.Model, DefaultModel)
	}
}

func TestConversationState_Last(t *testing.T) {
	var s ConversationState
	if _, ok := s.Last(); ok {
		t.Fatal("Last on empty transcript returned ok")
	}

	s.Messages = []ChatMessage{
		{Role: RoleUser, Content: "a"},
		{Role: RoleAssistant, Content: "b"},
	}
	last, ok := s.Last()
	if !ok || last.Content != "b" {
		t.Errorf("Last = %+v, %v", last, ok)
	}
}

func TestRole_Valid(t *testing.T) {
	tests := []struct {
		role Role
		want bool
	}{
		{RoleSystem, true},
		{RoleUser, true},
		{RoleAssistant, true},
		{"tool", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := tt.role.Valid(); got != tt.want {
			t.Errorf("Role(%q).Valid() = %v, want %v", tt.role, got, tt.want)
		}
	}
}

func TestRunState_CloneDoesNotAlias(t *testing.T) {
	s := RunState{Logs: []RunLogEntry{"a"}, Artifacts: []string{"out.csv"}, RunID: "r1"}
	c := s.Clone()
	c.Logs[0] = "x"
	c.Artifacts[0] = "y"

	if s.Logs[0] != "a" || s.Artifacts[0] != "out.csv" {
		t.Errorf("original mutated through clone: %+v", s)
	}
}
