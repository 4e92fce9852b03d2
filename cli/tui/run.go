package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/studio/cli/render"
	"github.com/pithecene-io/studio/runlog"
	"github.com/pithecene-io/studio/store"
	"github.com/pithecene-io/studio/stream"
	"github.com/pithecene-io/studio/types"
)

// RunController is the part of runlog.Controller the run view drives.
type RunController interface {
	Run(ctx context.Context, req runlog.RunRequest) (stream.Result, error)
	Stop(ctx context.Context) error
	FetchArtifacts(ctx context.Context) ([]string, error)
	State() *store.Store[types.RunState]
}

var _ RunController = (*runlog.Controller)(nil)

type (
	runDoneMsg struct {
		res stream.Result
		err error
	}
	stopDoneMsg      struct{ err error }
	artifactsDoneMsg struct{ err error }
)

// RunModel is a Bubble Tea model for the run console.
type RunModel struct {
	ctx  context.Context
	ctrl RunController
	req  runlog.RunRequest

	state    types.RunState
	viewport viewport.Model
	spinner  spinner.Model
	status   string
	lastErr  error
	quitting bool
}

// NewRunModel creates a run model that starts req on Init.
func NewRunModel(ctx context.Context, ctrl RunController, req runlog.RunRequest) RunModel {
	return RunModel{
		ctx:      ctx,
		ctrl:     ctrl,
		req:      req,
		state:    ctrl.State().Get(),
		viewport: viewport.New(80, 20),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		status:   "starting",
	}
}

// Init implements tea.Model.
func (m RunModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, func() tea.Msg {
		res, err := m.ctrl.Run(m.ctx, m.req)
		return runDoneMsg{res: res, err: err}
	})
}

// Update implements tea.Model.
func (m RunModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-4, 1)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit), msg.String() == "q":
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Stop):
			return m, func() tea.Msg { return stopDoneMsg{err: m.ctrl.Stop(m.ctx)} }
		case key.Matches(msg, keys.Artifacts):
			return m, func() tea.Msg {
				_, err := m.ctrl.FetchArtifacts(m.ctx)
				return artifactsDoneMsg{err: err}
			}
		}

	case stateMsg[types.RunState]:
		m.state = msg.state
		if m.state.Running {
			m.status = "running"
		}
		m.refresh()
		return m, nil

	case runDoneMsg:
		switch {
		case msg.err != nil:
			m.status, m.lastErr = "failed", msg.err
		case msg.res.Err != nil:
			m.status, m.lastErr = "error", msg.res.Err
		default:
			m.status = "done"
		}
		return m, nil

	case stopDoneMsg:
		m.lastErr = msg.err
		if msg.err == nil {
			m.status = "stopped"
		}
		return m, nil

	case artifactsDoneMsg:
		m.lastErr = msg.err
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *RunModel) refresh() {
	lines := make([]string, len(m.state.Logs))
	for i, entry := range m.state.Logs {
		lines[i] = render.StyleLogLine(entry)
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	m.viewport.GotoBottom()
}

// View implements tea.Model.
func (m RunModel) View() string {
	if m.quitting {
		return ""
	}

	header := TitleStyle.Render("studio run")
	if m.state.RunID != "" {
		header += " " + HelpStyle.Render(m.state.RunID)
	}
	if m.state.Running {
		header += " " + m.spinner.View()
	}
	header += " " + OutcomeStyle(m.status).Render(m.status)
	if m.lastErr != nil {
		header += " " + ErrorStyle.Render(m.lastErr.Error())
	}

	footer := HelpStyle.Render("s stop • a artifacts • q quit")
	if len(m.state.Artifacts) > 0 {
		footer = LabelStyle.Render("artifacts:") + " " +
			ValueStyle.Render(strings.Join(m.state.Artifacts, ", ")) + "\n" + footer
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, m.viewport.View(), footer)
}

// RunRunTUI starts req and shows its console until the user quits.
func RunRunTUI(ctx context.Context, ctrl RunController, req runlog.RunRequest) error {
	p := tea.NewProgram(NewRunModel(ctx, ctrl, req), tea.WithAltScreen(), tea.WithContext(ctx))
	cancel := ctrl.State().Subscribe(func(s types.RunState) {
		p.Send(stateMsg[types.RunState]{state: s})
	})
	defer cancel()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
