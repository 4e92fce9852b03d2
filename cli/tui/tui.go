package tui

import (
	"slices"

	"github.com/charmbracelet/bubbles/key"
)

// View names accepted by --tui.
const (
	ViewChat    = "chat"
	ViewRun     = "run"
	ViewHistory = "history"
)

// IsTUISupported returns true if the view supports TUI mode.
func IsTUISupported(view string) bool {
	return slices.Contains(SupportedTUIViews(), view)
}

// SupportedTUIViews returns the views that support TUI mode.
func SupportedTUIViews() []string {
	return []string{ViewChat, ViewRun, ViewHistory}
}

// keyMap defines key bindings shared by the views.
type keyMap struct {
	Quit      key.Binding
	Send      key.Binding
	Reset     key.Binding
	Stop      key.Binding
	Artifacts key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "esc"),
		key.WithHelp("esc", "quit"),
	),
	Send: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "send"),
	),
	Reset: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("ctrl+r", "reset"),
	),
	Stop: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "stop"),
	),
	Artifacts: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "artifacts"),
	),
}

// stateMsg carries a store update into the program.
type stateMsg[S any] struct {
	state S
}
