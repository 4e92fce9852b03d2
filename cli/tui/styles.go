// Package tui provides Bubble Tea views for the studio CLI.
//
// Views are opt-in (--tui). The chat and run views drive the same
// session and controller the line-mode commands use and repaint from their
// store subscriptions; the history view is read-only.
package tui

import "github.com/charmbracelet/lipgloss"

var (
	primaryColor   = lipgloss.Color("#7C3AED")
	successColor   = lipgloss.Color("#10B981")
	warningColor   = lipgloss.Color("#F59E0B")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	highlightColor = lipgloss.Color("#3B82F6")
	textColor      = lipgloss.Color("#FFFFFF")
)

func fg(c lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(c)
}

// Shared text styles.
var (
	TitleStyle = fg(primaryColor).Bold(true)
	LabelStyle = fg(mutedColor).Width(14)
	ValueStyle = fg(textColor)
	HelpStyle  = fg(mutedColor)
	ErrorStyle = fg(errorColor)
)

// Transcript speaker prefixes.
var (
	UserStyle      = fg(highlightColor).Bold(true)
	AssistantStyle = fg(primaryColor).Bold(true)
)

// BoxStyle frames the history records.
var BoxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(mutedColor).
	Padding(0, 1)

// StatBoxStyle frames one counter of the stats panel.
var StatBoxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(highlightColor).
	Padding(0, 2).
	Width(18).
	Align(lipgloss.Center)

// Stats panel text.
var (
	StatLabelStyle = fg(mutedColor).Align(lipgloss.Center)
	StatValueStyle = fg(textColor).Bold(true).Align(lipgloss.Center)
)

// OutcomeStyle colors a stream outcome or console status: clean endings
// green, in-flight amber, failures red.
func OutcomeStyle(outcome string) lipgloss.Style {
	switch outcome {
	case "sentinel", "eof", "done", "idle":
		return fg(successColor)
	case "running", "streaming":
		return fg(warningColor)
	case "error", "failed", "stopped":
		return ErrorStyle
	default:
		return ValueStyle
	}
}
