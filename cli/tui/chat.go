package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/studio/chat"
	"github.com/pithecene-io/studio/cli/render"
	"github.com/pithecene-io/studio/store"
	"github.com/pithecene-io/studio/stream"
	"github.com/pithecene-io/studio/types"
)

// ChatSender is the part of chat.Session the chat view drives.
type ChatSender interface {
	Send(ctx context.Context, content string) (stream.Result, error)
	Reset()
	State() *store.Store[types.ConversationState]
}

var _ ChatSender = (*chat.Session)(nil)

// turnDoneMsg reports the end of a Send.
type turnDoneMsg struct {
	res stream.Result
	err error
}

// inputHeight is the textarea height in lines.
const inputHeight = 3

// ChatModel is a Bubble Tea model for the chat transcript.
type ChatModel struct {
	ctx    context.Context
	sender ChatSender

	state    types.ConversationState
	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	status   string
	lastErr  error
	width    int
	height   int
	quitting bool
}

// NewChatModel creates a chat model over sender.
func NewChatModel(ctx context.Context, sender ChatSender) ChatModel {
	input := textarea.New()
	input.Placeholder = "Message"
	input.ShowLineNumbers = false
	input.SetHeight(inputHeight)
	input.Focus()

	return ChatModel{
		ctx:      ctx,
		sender:   sender,
		state:    sender.State().Get(),
		input:    input,
		viewport: viewport.New(80, 20),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

// Init implements tea.Model.
func (m ChatModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick)
}

// Update implements tea.Model.
func (m ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.SetWidth(msg.Width)
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-inputHeight-3, 1)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, keys.Reset):
			if m.state.Streaming {
				return m, nil
			}
			// Store updates must not run on the event loop.
			return m, func() tea.Msg {
				m.sender.Reset()
				return nil
			}
		case key.Matches(msg, keys.Send):
			content := m.input.Value()
			if m.state.Streaming || strings.TrimSpace(content) == "" {
				return m, nil
			}
			m.input.Reset()
			m.lastErr = nil
			return m, m.send(content)
		}

	case stateMsg[types.ConversationState]:
		m.state = msg.state
		m.refresh()
		return m, nil

	case turnDoneMsg:
		m.lastErr = msg.err
		if msg.err == nil {
			m.status = msg.res.Outcome.String()
			m.lastErr = msg.res.Err
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var inputCmd, viewCmd tea.Cmd
	m.input, inputCmd = m.input.Update(msg)
	m.viewport, viewCmd = m.viewport.Update(msg)
	return m, tea.Batch(inputCmd, viewCmd)
}

func (m ChatModel) send(content string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.sender.Send(m.ctx, content)
		return turnDoneMsg{res: res, err: err}
	}
}

func (m *ChatModel) refresh() {
	m.viewport.SetContent(renderTranscript(m.state, m.viewport.Width))
	m.viewport.GotoBottom()
}

// View implements tea.Model.
func (m ChatModel) View() string {
	if m.quitting {
		return ""
	}

	header := TitleStyle.Render("studio chat") + " " + HelpStyle.Render(m.state.Model)
	if m.state.Streaming {
		header += " " + m.spinner.View()
	} else if m.status != "" {
		header += " " + OutcomeStyle(m.status).Render(m.status)
	}
	if m.lastErr != nil {
		header += " " + ErrorStyle.Render(m.lastErr.Error())
	}

	help := HelpStyle.Render("enter send • ctrl+r reset • esc quit")
	return lipgloss.JoinVertical(lipgloss.Left, header, m.viewport.View(), m.input.View(), help)
}

// renderTranscript renders the conversation. The message still receiving
// deltas is shown raw; finished assistant messages are rendered as markdown.
func renderTranscript(s types.ConversationState, width int) string {
	if len(s.Messages) == 0 {
		return HelpStyle.Render("No messages yet.")
	}
	var b strings.Builder
	for i, msg := range s.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		switch msg.Role {
		case types.RoleUser:
			b.WriteString(UserStyle.Render("you"))
			b.WriteString("\n")
			b.WriteString(msg.Content)
			b.WriteString("\n")
		case types.RoleAssistant:
			b.WriteString(AssistantStyle.Render("assistant"))
			b.WriteString("\n")
			live := s.Streaming && i == len(s.Messages)-1
			if live || msg.Content == "" {
				b.WriteString(msg.Content)
				b.WriteString("\n")
			} else {
				b.WriteString(render.Markdown(msg.Content, width))
			}
		default:
			b.WriteString(fmt.Sprintf("[%s] %s\n", msg.Role, msg.Content))
		}
	}
	return b.String()
}

// RunChatTUI runs the chat view until the user quits. Store updates are
// forwarded into the program while it runs.
func RunChatTUI(ctx context.Context, sender ChatSender) error {
	p := tea.NewProgram(NewChatModel(ctx, sender), tea.WithAltScreen(), tea.WithContext(ctx))
	cancel := sender.State().Subscribe(func(s types.ConversationState) {
		p.Send(stateMsg[types.ConversationState]{state: s})
	})
	defer cancel()

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
