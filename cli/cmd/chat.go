package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/peterh/liner"
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/studio/adapter"
	"github.com/pithecene-io/studio/chat"
	"github.com/pithecene-io/studio/cli/render"
	"github.com/pithecene-io/studio/cli/tui"
	"github.com/pithecene-io/studio/iox"
	"github.com/pithecene-io/studio/session"
	"github.com/pithecene-io/studio/store"
	"github.com/pithecene-io/studio/stream"
	"github.com/pithecene-io/studio/types"
)

// historyFile is the REPL input history, kept next to the session snapshot.
const historyFile = "chat_history"

// ChatCommand returns the chat command.
func ChatCommand() *cli.Command {
	return &cli.Command{
		Name:      "chat",
		Usage:     "Chat with a model (one-shot with a message, REPL without)",
		ArgsUsage: "[message]",
		Flags: append(StreamFlags(),
			&cli.StringFlag{
				Name:  "model",
				Usage: "Model identifier for this and later turns",
			},
			&cli.StringFlag{
				Name:  "system-prompt",
				Usage: "System prompt for this and later turns",
			},
			&cli.BoolFlag{
				Name:  "reset",
				Usage: "Clear the transcript before sending",
			},
		),
		Action: chatAction,
	}
}

func chatAction(c *cli.Context) error {
	e, err := loadStreamEnv(c, adapter.FeatureChat)
	if err != nil {
		return err
	}
	defer e.close(c)

	path, err := e.sessionPath(c)
	if err != nil {
		return err
	}
	snap, err := session.Load(path)
	if err != nil {
		return err
	}

	sess, err := chat.NewSession(chat.SessionConfig{
		Client:   e.client,
		Driver:   e.driver(),
		State:    store.New(snap.Conversation),
		Recorder: e.recorder,
		Notifier: e.notifier,
		Logger:   e.logger,
	})
	if err != nil {
		return err
	}
	applyChatSettings(c, e.cfg.Chat.Model, e.cfg.Chat.SystemPrompt, sess)

	ctx, cancel := withSignals(c.Context)
	defer cancel()

	var actionErr error
	message := strings.Join(c.Args().Slice(), " ")
	switch {
	case c.Bool("tui"):
		actionErr = tui.RunChatTUI(ctx, sess)
	case message != "":
		r, err := render.NewRenderer(c)
		if err != nil {
			return err
		}
		actionErr = sendOnce(ctx, sess, message, r.Out())
	default:
		actionErr = runREPL(ctx, sess, filepath.Join(filepath.Dir(path), historyFile), os.Stdout)
	}

	snap.Conversation = sess.State().Get()
	if err := session.Save(path, snap); err != nil {
		e.logger.Warn("session save failed", map[string]any{"error": err.Error()})
	}
	return actionErr
}

// applyChatSettings layers config then flags over the restored settings.
func applyChatSettings(c *cli.Context, model, prompt string, sess *chat.Session) {
	if c.Bool("reset") {
		sess.Reset()
	}
	if model != "" && sess.State().Get().Model == types.DefaultModel {
		sess.SetModel(model)
	}
	if prompt != "" && sess.State().Get().SystemPrompt == "" {
		sess.SetSystemPrompt(prompt)
	}
	if c.IsSet("model") {
		sess.SetModel(c.String("model"))
	}
	if c.IsSet("system-prompt") {
		sess.SetSystemPrompt(c.String("system-prompt"))
	}
}

// sendOnce sends one turn, printing the reply as it streams.
func sendOnce(ctx context.Context, sess *chat.Session, message string, out io.Writer) error {
	res, err := streamTurn(ctx, sess, message, out)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	return streamExit(res)
}

// streamTurn sends a turn and echoes assistant deltas to out while it streams.
func streamTurn(ctx context.Context, sess *chat.Session, message string, out io.Writer) (stream.Result, error) {
	p := &deltaPrinter{out: out, from: len(sess.State().Get().Messages) + 1}
	cancel := sess.State().Subscribe(p.update)
	res, err := sess.Send(ctx, message)
	cancel()
	if err != nil {
		return res, err
	}
	if p.printed > 0 {
		fmt.Fprintln(out)
	}
	if !res.Clean() {
		fmt.Fprintf(os.Stderr, "[%s] %v\n", res.Outcome, res.Err)
	}
	return res, nil
}

// deltaPrinter writes the unseen suffix of the assistant message at index from.
type deltaPrinter struct {
	out     io.Writer
	from    int
	mu      sync.Mutex
	printed int
}

func (p *deltaPrinter) update(s types.ConversationState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(s.Messages) <= p.from {
		return
	}
	msg := s.Messages[p.from]
	if msg.Role != types.RoleAssistant || len(msg.Content) <= p.printed {
		return
	}
	fmt.Fprint(p.out, msg.Content[p.printed:])
	p.printed = len(msg.Content)
}

// runREPL reads messages until EOF, Ctrl+C or /quit.
func runREPL(ctx context.Context, sess *chat.Session, histPath string, out io.Writer) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	if f, err := os.Open(histPath); err == nil {
		_, _ = line.ReadHistory(f)
		_ = f.Close()
	}
	defer saveHistory(line, histPath)

	fmt.Fprintf(out, "session %s, model %s (/help for commands)\n",
		sess.State().Get().SessionID, sess.State().Get().Model)

	for {
		if ctx.Err() != nil {
			return nil
		}
		input, err := line.Prompt("you> ")
		if err != nil {
			// ErrPromptAborted (Ctrl+C) and io.EOF (Ctrl+D) both end the REPL.
			fmt.Fprintln(out)
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if strings.HasPrefix(input, "/") {
			if !replCommand(sess, input, out) {
				return nil
			}
			continue
		}

		if _, err := streamTurn(ctx, sess, input, out); err != nil {
			if errors.Is(err, chat.ErrStreaming) || errors.Is(err, chat.ErrEmptyMessage) {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			return err
		}
	}
}

// replCommand handles a slash command. It returns false to end the REPL.
func replCommand(sess *chat.Session, input string, out io.Writer) bool {
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/quit", "/exit":
		return false
	case "/reset":
		sess.Reset()
		fmt.Fprintln(out, "transcript cleared")
	case "/model":
		if arg == "" {
			fmt.Fprintln(out, sess.State().Get().Model)
			break
		}
		sess.SetModel(arg)
	case "/system":
		sess.SetSystemPrompt(arg)
	case "/history":
		for _, m := range sess.State().Get().Messages {
			fmt.Fprintf(out, "%s: %s\n", m.Role, m.Content)
		}
	default:
		fmt.Fprintln(out, "commands: /reset /model [name] /system [prompt] /history /quit")
	}
	return true
}

func saveHistory(line *liner.State, path string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return
	}
	defer iox.DiscardClose(f)
	_, _ = line.WriteHistory(f)
}
