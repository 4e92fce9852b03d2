package runlog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pithecene-io/studio/adapter"
	"github.com/pithecene-io/studio/archive"
	"github.com/pithecene-io/studio/backend"
	"github.com/pithecene-io/studio/log"
	"github.com/pithecene-io/studio/store"
	"github.com/pithecene-io/studio/stream"
	"github.com/pithecene-io/studio/types"
)

// RunRequest identifies the script to run.
type RunRequest struct {
	ScriptID int64
	// Content, when set, is saved to the script before the run starts.
	Content *string
}

// ControllerConfig configures a Controller.
type ControllerConfig struct {
	// Client is the backend client (required).
	Client *backend.Client
	// Driver drives the log stream. Defaults to a driver over Client's HTTP client.
	Driver *stream.Driver
	// State is the observable run console. Defaults to an empty state.
	State *store.Store[types.RunState]
	// Recorder archives completed runs (optional).
	Recorder archive.Recorder
	// Notifier publishes completion events (optional).
	Notifier *adapter.Notifier
	// Logger (optional).
	Logger *log.Logger
}

// Controller starts, streams and stops script runs.
//
// Starting a run while another is streaming is allowed; the older stream
// keeps draining but can no longer write into the console.
type Controller struct {
	client   *backend.Client
	driver   *stream.Driver
	state    *store.Store[types.RunState]
	recorder archive.Recorder
	notifier *adapter.Notifier
	logger   *log.Logger
	now      func() time.Time
}

// NewController creates a controller.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Client == nil {
		return nil, errors.New("runlog: backend client is required")
	}
	driver := cfg.Driver
	if driver == nil {
		driver = stream.NewDriver(
			stream.WithHTTPClient(cfg.Client.HTTPClient()),
			stream.WithLogger(cfg.Logger),
		)
	}
	state := cfg.State
	if state == nil {
		state = store.New(types.RunState{})
	}
	return &Controller{
		client:   cfg.Client,
		driver:   driver,
		state:    state,
		recorder: cfg.Recorder,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
		now:      time.Now,
	}, nil
}

// State returns the observable run console.
func (c *Controller) State() *store.Store[types.RunState] {
	return c.state
}

// Run saves pending edits, starts a run and streams its log into the
// state until the stream ends.
//
// Errors before the stream opens are returned and leave the state
// unchanged. How the stream ended is reported by the Result.
func (c *Controller) Run(ctx context.Context, req RunRequest) (stream.Result, error) {
	if req.Content != nil {
		_, err := c.client.UpdateScript(ctx, req.ScriptID, types.ScriptUpdate{Content: req.Content})
		if err != nil {
			return stream.Result{}, fmt.Errorf("runlog: save script %d: %w", req.ScriptID, err)
		}
	}

	runID, err := c.client.StartRun(ctx, req.ScriptID)
	if err != nil {
		return stream.Result{}, fmt.Errorf("runlog: start run: %w", err)
	}
	httpReq, err := c.client.RunStreamRequest(ctx, runID)
	if err != nil {
		return stream.Result{}, fmt.Errorf("runlog: build request: %w", err)
	}

	c.state.Update(func(s types.RunState) types.RunState {
		return Start(s, runID)
	})

	logger := c.logger.With("stream_id", runID)
	logger.Info("run started", map[string]any{"script_id": req.ScriptID})

	// Kept for the archive; the console may be taken over by a newer run.
	var (
		mu      sync.Mutex
		entries []types.RunLogEntry
	)
	res := c.driver.Drive(ctx, httpReq, stream.SinkFuncs{
		Payload: func(raw string) {
			mu.Lock()
			entries = append(entries, Classify(raw))
			mu.Unlock()
			c.state.Update(func(s types.RunState) types.RunState {
				return Append(s, runID, raw)
			})
		},
		Error: func(err error) {
			logger.Warn("run stream failed", map[string]any{"error": err.Error()})
		},
		Done: func(stream.Result) {
			c.state.Update(func(s types.RunState) types.RunState {
				return Finish(s, runID)
			})
		},
	})

	logger.Info("run finished", map[string]any{
		"outcome": res.Outcome.String(),
		"lines":   res.Payloads,
	})
	mu.Lock()
	logs := entries
	mu.Unlock()
	c.complete(ctx, req.ScriptID, runID, logs, res)
	return res, nil
}

// Stop requests server-side cancellation of the current run and marks it
// stopped locally, even when the request fails. The log stream is left to
// end on its own. Without a run id Stop does nothing.
func (c *Controller) Stop(ctx context.Context) error {
	runID := c.state.Get().RunID
	if runID == "" {
		return nil
	}

	status, err := c.client.StopRun(ctx, runID)
	c.state.Update(Stop)
	if err != nil {
		return fmt.Errorf("runlog: stop run %s: %w", runID, err)
	}
	if status == backend.StopStatusNotFound {
		c.logger.Debug("run already ended", map[string]any{"stream_id": runID})
	}
	return nil
}

// FetchArtifacts replaces the artifact list with the server's list for the
// current run. On failure the list is left unchanged and the error is
// returned. Without a run id it returns nil, nil.
func (c *Controller) FetchArtifacts(ctx context.Context) ([]string, error) {
	runID := c.state.Get().RunID
	if runID == "" {
		return nil, nil
	}

	names, err := c.client.ListArtifacts(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("runlog: %w", err)
	}
	c.state.Update(func(s types.RunState) types.RunState {
		if s.RunID != runID {
			return s
		}
		return SetArtifacts(s, names)
	})
	return names, nil
}

// complete archives the run and publishes its completion event.
func (c *Controller) complete(ctx context.Context, scriptID int64, runID string, logs []types.RunLogEntry, res stream.Result) {
	if c.recorder != nil {
		rec := archive.RunRecord{
			RunID:       runID,
			ScriptID:    scriptID,
			Logs:        logs,
			Outcome:     res.Outcome.String(),
			Payloads:    res.Payloads,
			DurationMs:  res.Duration.Milliseconds(),
			CompletedAt: c.now(),
		}
		if res.Err != nil {
			rec.Error = res.Err.Error()
		}
		if s := c.state.Get(); s.RunID == runID {
			rec.Artifacts = s.Artifacts
		}
		if err := c.recorder.RecordRun(context.WithoutCancel(ctx), rec); err != nil {
			c.logger.Warn("run archive failed", map[string]any{
				"stream_id": runID,
				"error":     err.Error(),
			})
		}
	}
	c.notifier.Notify(ctx, adapter.FeatureRun, runID, res)
}
