// Package cmd provides CLI commands for the studio binary.
package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/studio/backend"
)

// Global flags, set on the app and visible to every command.
var (
	// ConfigFlag points at a studio.yaml file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "Path to studio.yaml (default: ./studio.yaml if present)",
		EnvVars: []string{"STUDIO_CONFIG"},
	}

	// BackendURLFlag overrides backend.url.
	BackendURLFlag = &cli.StringFlag{
		Name:    "backend-url",
		Usage:   "Studio backend base URL (default: " + backend.DefaultBaseURL + ")",
		EnvVars: []string{"STUDIO_BACKEND_URL"},
	}

	// LogLevelFlag overrides log.level.
	LogLevelFlag = &cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level: debug, info, warn, error",
		EnvVars: []string{"STUDIO_LOG_LEVEL"},
	}

	// SessionFlag overrides session.path.
	SessionFlag = &cli.StringFlag{
		Name:    "session",
		Usage:   "Path to the session snapshot",
		EnvVars: []string{"STUDIO_SESSION"},
	}
)

// GlobalFlags returns the app-level flags.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{ConfigFlag, BackendURLFlag, LogLevelFlag, SessionFlag}
}

// Shared output flags.
var (
	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// TUIFlag enables Bubble Tea interactive mode.
	TUIFlag = &cli.BoolFlag{
		Name:  "tui",
		Usage: "Enable interactive TUI mode (chat, run, history only)",
	}

	// StatsFlag prints stream metrics when the command finishes.
	StatsFlag = &cli.BoolFlag{
		Name:  "stats",
		Usage: "Print stream metrics to stderr on exit",
	}
)

// OutputFlags returns the shared flags for commands that render results.
// Includes --tui so that unsupported commands can provide explicit error
// messages instead of generic "flag not defined" errors.
func OutputFlags() []cli.Flag {
	return []cli.Flag{
		FormatFlag,
		NoColorFlag,
		TUIFlag,
	}
}

// ArchiveFlags returns the archive overrides.
func ArchiveFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "archive-backend", Usage: "Archive backend: fs, s3, memory"},
		&cli.StringFlag{Name: "archive-path", Usage: "Archive path (fs: directory, s3: bucket/prefix)"},
	}
}

// StreamFlags returns the flags of the streaming commands (chat, run):
// output, metrics, and archive/adapter overrides.
func StreamFlags() []cli.Flag {
	flags := append(OutputFlags(), StatsFlag)
	flags = append(flags, ArchiveFlags()...)
	return append(flags,
		&cli.StringFlag{Name: "adapter", Usage: "Completion event adapter: webhook, redis"},
		&cli.StringFlag{Name: "adapter-url", Usage: "Adapter endpoint (webhook URL or redis URL)"},
	)
}
