package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/studio/archive"
	"github.com/pithecene-io/studio/cli/render"
)

// HistoryModel is a read-only, scrollable view of archived records.
type HistoryModel struct {
	records  []map[string]any
	viewport viewport.Model
	quitting bool
}

// NewHistoryModel creates a history model.
func NewHistoryModel(records []map[string]any) HistoryModel {
	vp := viewport.New(80, 20)
	vp.SetContent(RenderHistory(records, 80))
	return HistoryModel{records: records, viewport: vp}
}

// Init implements tea.Model.
func (m HistoryModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m HistoryModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-2, 1)
		m.viewport.SetContent(RenderHistory(m.records, msg.Width))
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) || msg.String() == "q" {
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m HistoryModel) View() string {
	if m.quitting {
		return ""
	}
	help := HelpStyle.Render("↑/↓ scroll • q quit")
	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), help)
}

// RenderHistory renders archived records, one box per record.
func RenderHistory(records []map[string]any, width int) string {
	if len(records) == 0 {
		return HelpStyle.Render("No archived records.")
	}
	boxes := make([]string, 0, len(records))
	for _, r := range records {
		boxes = append(boxes, renderRecord(r, width))
	}
	return strings.Join(boxes, "\n")
}

func renderRecord(r map[string]any, width int) string {
	var b strings.Builder
	kind := fmt.Sprint(r["kind"])
	outcome := fmt.Sprint(r["outcome"])

	b.WriteString(TitleStyle.Render(kind) + " " + ValueStyle.Render(fmt.Sprint(r["stream_id"])) +
		" " + OutcomeStyle(outcome).Render(outcome) + " " + HelpStyle.Render(fmt.Sprint(r["ts"])))
	b.WriteString("\n")

	switch kind {
	case archive.KindTurn:
		b.WriteString(UserStyle.Render("you") + "\n" + fmt.Sprint(r["user"]) + "\n")
		b.WriteString(AssistantStyle.Render("assistant") + "\n")
		b.WriteString(render.Markdown(fmt.Sprint(r["assistant"]), max(width-4, 20)))
	case archive.KindRun:
		if logs, ok := r["logs"].([]any); ok {
			for _, line := range logs {
				b.WriteString(render.StyleLogLine(fmt.Sprint(line)) + "\n")
			}
		}
	}
	if errText, ok := r["error"].(string); ok && errText != "" {
		b.WriteString(ErrorStyle.Render(errText) + "\n")
	}
	return BoxStyle.Width(max(width-2, 20)).Render(strings.TrimRight(b.String(), "\n"))
}

// RunHistoryTUI shows records until the user quits.
func RunHistoryTUI(records []map[string]any) error {
	p := tea.NewProgram(NewHistoryModel(records), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
