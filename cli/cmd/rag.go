package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/studio/backend"
	"github.com/pithecene-io/studio/cli/render"
	"github.com/pithecene-io/studio/iox"
	"github.com/pithecene-io/studio/types"
)

var collectionFlag = &cli.StringFlag{
	Name:    "collection",
	Aliases: []string{"c"},
	Usage:   "Collection ID",
	Value:   backend.DefaultCollection,
}

// RagCommand returns the rag command.
func RagCommand() *cli.Command {
	return &cli.Command{
		Name:  "rag",
		Usage: "Upload documents, rebuild indexes and query collections",
		Subcommands: []*cli.Command{
			{
				Name:      "upload",
				Usage:     "Upload a document into a collection",
				ArgsUsage: "<file>",
				Flags:     append(OutputFlags(), collectionFlag),
				Action:    ragUploadAction,
			},
			{
				Name:   "index",
				Usage:  "Rebuild a collection's index",
				Flags:  append(OutputFlags(), collectionFlag),
				Action: ragIndexAction,
			},
			{
				Name:      "query",
				Usage:     "Query a collection",
				ArgsUsage: "<question>",
				Flags: append(OutputFlags(), collectionFlag,
					&cli.IntFlag{Name: "top-k", Usage: "Number of contexts to retrieve", Value: backend.DefaultTopK},
				),
				Action: ragQueryAction,
			},
		},
	}
}

func ragUploadAction(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.Exit("missing <file> argument", 1)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	e, err := loadEnv(c, "rag")
	if err != nil {
		return err
	}

	path := c.Args().First()
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer iox.DiscardClose(f)

	res, err := e.client.UploadFile(c.Context, c.String("collection"), filepath.Base(path), f)
	if err != nil {
		return err
	}
	return r.Render(res)
}

func ragIndexAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	e, err := loadEnv(c, "rag")
	if err != nil {
		return err
	}
	res, err := e.client.RebuildIndex(c.Context, c.String("collection"))
	if err != nil {
		return err
	}
	return r.Render(res)
}

func ragQueryAction(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return cli.Exit("missing <question> argument", 1)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	e, err := loadEnv(c, "rag")
	if err != nil {
		return err
	}

	res, err := e.client.Query(c.Context, types.RagQuery{
		Query:        question,
		CollectionID: c.String("collection"),
		TopK:         c.Int("top-k"),
	})
	if err != nil {
		return err
	}
	if c.String("format") != "" || !r.Color() {
		return r.Render(res)
	}
	r.Text(r.Markdown(res.Answer, 80))
	for i, ctx := range res.Contexts {
		r.Text(fmt.Sprintf("[%d] %s", i+1, ctx))
	}
	return nil
}
