package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/studio/adapter"
	"github.com/pithecene-io/studio/cli/render"
	"github.com/pithecene-io/studio/cli/tui"
	"github.com/pithecene-io/studio/runlog"
	"github.com/pithecene-io/studio/session"
	"github.com/pithecene-io/studio/store"
	"github.com/pithecene-io/studio/types"
)

// stopTimeout bounds the stop request issued on interrupt.
const stopTimeout = 10 * time.Second

// RunCommand returns the run command.
// The first interrupt asks the backend to stop the run and keeps draining
// the log stream; a second one aborts.
func RunCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Run a workspace script and stream its logs",
		ArgsUsage: "<script-id>",
		Flags: append(StreamFlags(),
			&cli.StringFlag{
				Name:  "content-file",
				Usage: "Save this file as the script content before running",
			},
			&cli.BoolFlag{
				Name:  "no-artifacts",
				Usage: "Skip the artifact listing after the run",
			},
		),
		Action: runAction,
	}
}

func runAction(c *cli.Context) error {
	scriptID, err := scriptIDArg(c)
	if err != nil {
		return err
	}
	req := runlog.RunRequest{ScriptID: scriptID}
	if path := c.String("content-file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read content file: %w", err)
		}
		content := string(data)
		req.Content = &content
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	e, err := loadStreamEnv(c, adapter.FeatureRun)
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

	ctrl, err := runlog.NewController(runlog.ControllerConfig{
		Client:   e.client,
		Driver:   e.driver(),
		State:    store.New(snap.RunState()),
		Recorder: e.recorder,
		Notifier: e.notifier,
		Logger:   e.logger,
	})
	if err != nil {
		return err
	}

	defer func() {
		s := ctrl.State().Get()
		snap.RunID = s.RunID
		snap.Artifacts = s.Artifacts
		if err := session.Save(path, snap); err != nil {
			e.logger.Warn("session save failed", map[string]any{"error": err.Error()})
		}
	}()

	ctx, cancel := context.WithCancel(c.Context)
	defer cancel()

	if c.Bool("tui") {
		return tui.RunRunTUI(ctx, ctrl, req)
	}

	stopOnInterrupt(ctx, cancel, ctrl, os.Stderr)

	p := &logPrinter{r: r}
	unsubscribe := ctrl.State().Subscribe(p.update)
	res, err := ctrl.Run(ctx, req)
	unsubscribe()
	if err != nil {
		return err
	}

	if !c.Bool("no-artifacts") && res.Err == nil {
		names, err := ctrl.FetchArtifacts(ctx)
		if err != nil {
			e.logger.Warn("artifact listing failed", map[string]any{"error": err.Error()})
		} else if len(names) > 0 {
			r.Text("artifacts:")
			for _, n := range names {
				r.Text("  " + n)
			}
		}
	}
	return streamExit(res)
}

// stopOnInterrupt issues a stop on the first SIGINT/SIGTERM and cancels ctx
// on the second.
func stopOnInterrupt(ctx context.Context, cancel context.CancelFunc, ctrl *runlog.Controller, w io.Writer) {
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
		case <-ctx.Done():
			return
		}
		fmt.Fprintln(w, "stopping run (interrupt again to abort)")
		stopCtx, stopCancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
		if err := ctrl.Stop(stopCtx); err != nil {
			fmt.Fprintln(w, err)
		}
		stopCancel()

		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()
}

// logPrinter writes log entries as they are appended to the console.
type logPrinter struct {
	r       *render.Renderer
	mu      sync.Mutex
	runID   string
	printed int
}

func (p *logPrinter) update(s types.RunState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if s.RunID != p.runID {
		p.runID = s.RunID
		p.printed = 0
	}
	for _, entry := range s.Logs[min(p.printed, len(s.Logs)):] {
		p.r.Text(p.r.LogLine(entry))
	}
	p.printed = max(p.printed, len(s.Logs))
}

// StopCommand returns the stop command.
func StopCommand() *cli.Command {
	return &cli.Command{
		Name:   "stop",
		Usage:  "Stop the session's current run",
		Flags:  OutputFlags(),
		Action: stopAction,
	}
}

func stopAction(c *cli.Context) error {
	if c.Bool("tui") {
		return errTUIUnsupported("stop")
	}
	return withRunController(c, func(ctx context.Context, ctrl *runlog.Controller, r *render.Renderer) error {
		runID := ctrl.State().Get().RunID
		if runID == "" {
			return errNoRun
		}
		if err := ctrl.Stop(ctx); err != nil {
			return err
		}
		r.Text("stop requested for run " + runID)
		return nil
	})
}

// ArtifactsCommand returns the artifacts command.
func ArtifactsCommand() *cli.Command {
	return &cli.Command{
		Name:   "artifacts",
		Usage:  "List the artifacts of the session's current run",
		Flags:  OutputFlags(),
		Action: artifactsAction,
	}
}

func artifactsAction(c *cli.Context) error {
	if c.Bool("tui") {
		return errTUIUnsupported("artifacts")
	}
	return withRunController(c, func(ctx context.Context, ctrl *runlog.Controller, r *render.Renderer) error {
		if ctrl.State().Get().RunID == "" {
			return errNoRun
		}
		names, err := ctrl.FetchArtifacts(ctx)
		if err != nil {
			return err
		}
		if names == nil {
			names = []string{}
		}
		return r.Render(names)
	})
}

// withRunController restores the session's run console, calls fn and saves
// the console back.
func withRunController(c *cli.Context, fn func(context.Context, *runlog.Controller, *render.Renderer) error) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	e, err := loadEnv(c, "run")
	if err != nil {
		return err
	}
	path, err := e.sessionPath(c)
	if err != nil {
		return err
	}
	snap, err := session.Load(path)
	if err != nil {
		return err
	}
	ctrl, err := runlog.NewController(runlog.ControllerConfig{
		Client: e.client,
		State:  store.New(snap.RunState()),
		Logger: e.logger,
	})
	if err != nil {
		return err
	}

	fnErr := fn(c.Context, ctrl, r)

	s := ctrl.State().Get()
	snap.RunID = s.RunID
	snap.Artifacts = s.Artifacts
	if err := session.Save(path, snap); err != nil {
		return err
	}
	return fnErr
}

// scriptIDArg parses the first positional argument as a script id.
func scriptIDArg(c *cli.Context) (int64, error) {
	if c.NArg() < 1 {
		return 0, cli.Exit("missing <script-id> argument", 1)
	}
	id, err := strconv.ParseInt(c.Args().First(), 10, 64)
	if err != nil || id <= 0 {
		return 0, cli.Exit(fmt.Sprintf("invalid script id %q", c.Args().First()), 1)
	}
	return id, nil
}
