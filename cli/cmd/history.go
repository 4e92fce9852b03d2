package cmd

import (
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/studio/archive"
	"github.com/pithecene-io/studio/cli/render"
	"github.com/pithecene-io/studio/cli/tui"
)

// historyWidth is the wrap width of the plain-terminal history listing.
const historyWidth = 100

// HistoryCommand returns the history command.
func HistoryCommand() *cli.Command {
	flags := append(OutputFlags(), ArchiveFlags()...)
	flags = append(flags,
		&cli.StringFlag{Name: "stream-id", Usage: "Filter by session or run ID"},
		&cli.StringFlag{Name: "day", Usage: "Filter by day (YYYY-MM-DD, UTC)"},
		&cli.IntFlag{Name: "limit", Usage: "Maximum records to show", Value: 20},
	)
	return &cli.Command{
		Name:  "history",
		Usage: "Browse archived chat turns and runs",
		Subcommands: []*cli.Command{
			{
				Name:   "chat",
				Usage:  "Archived chat turns, newest first",
				Flags:  flags,
				Action: historyAction(archive.KindTurn),
			},
			{
				Name:   "run",
				Usage:  "Archived script runs, newest first",
				Flags:  flags,
				Action: historyAction(archive.KindRun),
			},
		},
	}
}

func historyAction(kind string) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := render.NewRenderer(c)
		if err != nil {
			return err
		}
		e, err := loadEnv(c, "history")
		if err != nil {
			return err
		}

		cfg := e.archiveConfig(c)
		if !cfg.Enabled() {
			return cli.Exit("archive is not configured (set archive.backend or --archive-backend)", 1)
		}
		ds, err := archive.Open(c.Context, cfg)
		if err != nil {
			return err
		}

		records, err := archive.History(c.Context, ds, archive.Query{
			Kind:     kind,
			StreamID: c.String("stream-id"),
			Day:      c.String("day"),
			Limit:    c.Int("limit"),
		})
		if errors.Is(err, archive.ErrNoRecords) {
			records, err = []map[string]any{}, nil
		}
		if err != nil {
			return err
		}

		switch {
		case c.Bool("tui"):
			return tui.RunHistoryTUI(records)
		case c.String("format") == "" && r.Color():
			r.Text(tui.RenderHistory(records, historyWidth))
			return nil
		default:
			return r.Render(records)
		}
	}
}
