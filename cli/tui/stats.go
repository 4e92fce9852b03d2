package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/studio/metrics"
)

// RenderStats renders a metrics snapshot as rows of stat boxes.
func RenderStats(s metrics.Snapshot) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Stream Statistics"))
	if s.Feature != "" {
		b.WriteString(" " + HelpStyle.Render(s.Feature))
	}
	b.WriteString("\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		renderStatBox("Started", s.StreamsStarted, highlightColor),
		renderStatBox("Sentinel", s.StreamsSentinel, successColor),
		renderStatBox("EOF", s.StreamsEOF, warningColor),
		renderStatBox("Failed", s.StreamsFailed, errorColor),
	))
	b.WriteString("\n")
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		renderStatBox("Payloads", s.PayloadsDelivered, highlightColor),
		renderStatBox("Transport", s.TransportErrors, errorColor),
		renderStatBox("Read", s.ReadErrors, errorColor),
		renderStatBox("Canceled", s.CanceledErrors, mutedColor),
	))

	if s.StorageBackend != "" || s.Adapter != "" {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render("Archive:"),
			ValueStyle.Render(fmt.Sprintf("%s (%d ok, %d failed)", orNone(s.StorageBackend), s.ArchiveWriteSuccess, s.ArchiveWriteFailure))))
		b.WriteString(fmt.Sprintf("%s %s", LabelStyle.Render("Adapter:"),
			ValueStyle.Render(fmt.Sprintf("%s (%d ok, %d failed)", orNone(s.Adapter), s.PublishSuccess, s.PublishFailure))))
	}
	return b.String()
}

func renderStatBox(label string, value int64, color lipgloss.Color) string {
	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)
	return StatBoxStyle.BorderForeground(color).Render(lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr))
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
