package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zapcore"

	"github.com/pithecene-io/studio/adapter"
	"github.com/pithecene-io/studio/adapter/redis"
	"github.com/pithecene-io/studio/adapter/webhook"
	"github.com/pithecene-io/studio/archive"
	"github.com/pithecene-io/studio/backend"
	"github.com/pithecene-io/studio/cli/config"
	"github.com/pithecene-io/studio/cli/render"
	"github.com/pithecene-io/studio/cli/tui"
	"github.com/pithecene-io/studio/log"
	"github.com/pithecene-io/studio/metrics"
	"github.com/pithecene-io/studio/session"
	"github.com/pithecene-io/studio/stream"
)

// env is the wiring shared by commands. Flags override config values.
type env struct {
	cfg       *config.Config
	logger    *log.Logger
	client    *backend.Client
	collector *metrics.Collector
	recorder  archive.Recorder
	notifier  *adapter.Notifier
}

// loadEnv builds the base wiring: config, logger and backend client.
func loadEnv(c *cli.Context, component string) (*env, error) {
	cfg, err := config.Discover(c.String("config"))
	if err != nil {
		return nil, err
	}

	levelName := cfg.Log.Level
	if c.IsSet("log-level") {
		levelName = c.String("log-level")
	}
	level := zapcore.WarnLevel
	if levelName != "" {
		level, err = log.ParseLevel(levelName)
		if err != nil {
			return nil, err
		}
	}
	logger := log.NewLogger(component, level)

	baseURL := cfg.Backend.URL
	if c.IsSet("backend-url") {
		baseURL = c.String("backend-url")
	}
	client, err := backend.NewClient(backend.Config{
		BaseURL:   baseURL,
		Headers:   cfg.Backend.Headers,
		RateLimit: cfg.Backend.RateLimit,
	})
	if err != nil {
		return nil, err
	}

	return &env{cfg: cfg, logger: logger, client: client}, nil
}

// loadStreamEnv extends loadEnv with metrics, archive and adapter wiring
// for the streaming commands.
func loadStreamEnv(c *cli.Context, feature adapter.Feature) (*env, error) {
	e, err := loadEnv(c, string(feature))
	if err != nil {
		return nil, err
	}

	archiveCfg := e.archiveConfig(c)
	adapterType := e.cfg.Adapter.Type
	if c.IsSet("adapter") {
		adapterType = c.String("adapter")
	}
	e.collector = metrics.NewCollector(string(feature), archiveCfg.Backend, adapterType)

	if archiveCfg.Enabled() {
		rec, err := archive.OpenRecorder(c.Context, archiveCfg, e.collector)
		if err != nil {
			return nil, fmt.Errorf("failed to open archive: %w", err)
		}
		e.recorder = rec
	}

	a, err := e.buildAdapter(c, adapterType)
	if err != nil {
		return nil, err
	}
	if a != nil {
		e.notifier = adapter.NewNotifier(a, e.logger, e.collector, 0)
	}
	return e, nil
}

func (e *env) archiveConfig(c *cli.Context) archive.Config {
	ac := e.cfg.Archive
	cfg := archive.Config{
		Dataset:      ac.Dataset,
		Backend:      ac.Backend,
		Path:         ac.Path,
		Region:       ac.Region,
		Endpoint:     ac.Endpoint,
		UsePathStyle: ac.S3PathStyle,
	}
	if c.IsSet("archive-backend") {
		cfg.Backend = c.String("archive-backend")
	}
	if c.IsSet("archive-path") {
		cfg.Path = c.String("archive-path")
	}
	return cfg
}

func (e *env) buildAdapter(c *cli.Context, adapterType string) (adapter.Adapter, error) {
	ac := e.cfg.Adapter
	url := ac.URL
	if c.IsSet("adapter-url") {
		url = c.String("adapter-url")
	}
	retries := redis.DefaultRetries
	if ac.Retries != nil {
		retries = *ac.Retries
	}

	switch adapterType {
	case "":
		return nil, nil
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     url,
			Headers: ac.Headers,
			Secret:  ac.Secret,
			Timeout: ac.Timeout.Duration,
			Retries: retries,
		})
	case "redis":
		return redis.New(redis.Config{
			URL:     url,
			Channel: ac.Channel,
			Stream:  ac.Stream,
			Timeout: ac.Timeout.Duration,
			Retries: retries,
		})
	default:
		return nil, fmt.Errorf("unknown adapter %q (must be webhook or redis)", adapterType)
	}
}

// driver returns a stream driver wired to the env's client, logger and metrics.
func (e *env) driver() *stream.Driver {
	return stream.NewDriver(
		stream.WithHTTPClient(e.client.HTTPClient()),
		stream.WithLogger(e.logger),
		stream.WithCollector(e.collector),
	)
}

// sessionPath resolves the snapshot path: flag, then config, then default.
func (e *env) sessionPath(c *cli.Context) (string, error) {
	if c.IsSet("session") {
		return c.String("session"), nil
	}
	if e.cfg.Session.Path != "" {
		return e.cfg.Session.Path, nil
	}
	return session.DefaultPath()
}

// close flushes metrics and releases the archive and adapter.
func (e *env) close(c *cli.Context) {
	if c.Bool("stats") && e.collector != nil {
		printStats(e.collector.Snapshot())
	}
	if e.recorder != nil {
		if err := e.recorder.Close(); err != nil {
			e.logger.Warn("archive close failed", map[string]any{"error": err.Error()})
		}
	}
	if err := e.notifier.Close(); err != nil {
		e.logger.Warn("adapter close failed", map[string]any{"error": err.Error()})
	}
	_ = e.logger.Sync()
}

// printStats writes a metrics snapshot to stderr: boxes on a terminal,
// JSON otherwise.
func printStats(s metrics.Snapshot) {
	if render.IsTerminal(os.Stderr) {
		fmt.Fprintln(os.Stderr, tui.RenderStats(s))
		return
	}
	r := render.NewRendererWithWriter(render.FormatJSON, false, os.Stderr)
	_ = r.Render(s)
}

// streamExit maps a stream result to the command's exit status.
func streamExit(res stream.Result) error {
	if res.Clean() {
		return nil
	}
	if stream.IsCanceledError(res.Err) {
		return cli.Exit("", exitCanceled)
	}
	return cli.Exit(fmt.Sprintf("stream failed: %v", res.Err), exitStreamFailed)
}

// Exit codes.
const (
	exitStreamFailed = 1
	exitCanceled     = 130
)

// errTUIUnsupported is returned when --tui is set on a command without a view.
func errTUIUnsupported(command string) error {
	return cli.Exit(fmt.Sprintf("--tui is not supported for %s", command), 1)
}

var errNoRun = errors.New("no run in this session; start one with `studio run`")

// withSignals returns a context canceled on SIGINT/SIGTERM.
func withSignals(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
