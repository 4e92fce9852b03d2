// Package main provides the studio CLI entrypoint.
//
// Usage:
//
//	studio [global options] <command> [subcommand] [options]
//
// Exit codes for the streaming commands (chat, run):
//   - 0: stream ended cleanly (sentinel or EOF)
//   - 1: stream failed or the request was rejected
//   - 130: aborted by interrupt
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/studio/cli/cmd"
	"github.com/pithecene-io/studio/types"
)

// Commit is set via ldflags at build time.
var commit = "unknown"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		// ExitErrHandler already exited for cli.ExitCoder errors.
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:           "studio",
		Usage:          "MultiMind Studio client: chat, script runs and workspace tools",
		Version:        fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		Flags:          cmd.GlobalFlags(),
		ExitErrHandler: exitErrHandler,
		Commands: []*cli.Command{
			cmd.ChatCommand(),
			cmd.RunCommand(),
			cmd.StopCommand(),
			cmd.ArtifactsCommand(),
			cmd.ScriptsCommand(),
			cmd.SettingsCommand(),
			cmd.RagCommand(),
			cmd.ModelsCommand(),
			cmd.HistoryCommand(),
			cmd.VersionCommand(commit),
		},
	}
}

// exitErrHandler preserves exit codes from cli.Exit().
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}

	var exitCoder cli.ExitCoder
	if !errors.As(err, &exitCoder) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	code := exitCoder.ExitCode()
	// cli.Exit("", N) carries no message of its own.
	if msg := exitCoder.Error(); msg != "" && msg != fmt.Sprintf("exit status %d", code) {
		fmt.Fprintln(os.Stderr, msg)
	}
	os.Exit(code)
}
