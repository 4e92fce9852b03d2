package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/studio/cli/render"
	"github.com/pithecene-io/studio/types"
)

// ScriptsCommand returns the scripts command.
func ScriptsCommand() *cli.Command {
	return &cli.Command{
		Name:  "scripts",
		Usage: "Manage workspace scripts",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List scripts",
				Flags:  OutputFlags(),
				Action: scriptsListAction,
			},
			{
				Name:      "show",
				Usage:     "Show a script and its content",
				ArgsUsage: "<script-id>",
				Flags:     OutputFlags(),
				Action:    scriptsShowAction,
			},
			{
				Name:  "create",
				Usage: "Create a script",
				Flags: append(OutputFlags(),
					&cli.StringFlag{Name: "name", Usage: "Script name", Required: true},
					&cli.StringFlag{Name: "language", Usage: "Script language", Value: "python"},
					&cli.StringFlag{Name: "path", Usage: "Workspace path (default: name)"},
					&cli.StringSliceFlag{Name: "tag", Usage: "Tag (repeatable)"},
					&cli.StringFlag{Name: "content-file", Usage: "Read content from file"},
				),
				Action: scriptsCreateAction,
			},
			{
				Name:      "update",
				Usage:     "Update script fields; unset flags are left unchanged",
				ArgsUsage: "<script-id>",
				Flags: append(OutputFlags(),
					&cli.StringFlag{Name: "name", Usage: "Script name"},
					&cli.StringFlag{Name: "language", Usage: "Script language"},
					&cli.StringFlag{Name: "path", Usage: "Workspace path"},
					&cli.StringSliceFlag{Name: "tag", Usage: "Tag (repeatable, replaces all tags)"},
					&cli.StringFlag{Name: "content-file", Usage: "Read content from file"},
				),
				Action: scriptsUpdateAction,
			},
			{
				Name:      "delete",
				Usage:     "Delete a script",
				ArgsUsage: "<script-id>",
				Flags:     OutputFlags(),
				Action:    scriptsDeleteAction,
			},
		},
	}
}

// scriptRow is the table view of a script.
type scriptRow struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Language  string   `json:"language"`
	Path      string   `json:"path"`
	Tags      []string `json:"tags"`
	UpdatedAt string   `json:"updated_at"`
}

func scriptsListAction(c *cli.Context) error {
	if c.Bool("tui") {
		return errTUIUnsupported("scripts")
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	e, err := loadEnv(c, "scripts")
	if err != nil {
		return err
	}

	scripts, err := e.client.ListScripts(c.Context)
	if err != nil {
		return err
	}
	rows := make([]scriptRow, 0, len(scripts))
	for _, s := range scripts {
		rows = append(rows, scriptRow{
			ID:        s.ID,
			Name:      s.Name,
			Language:  s.Language,
			Path:      s.Path,
			Tags:      s.Tags,
			UpdatedAt: s.UpdatedAt,
		})
	}
	return r.Render(rows)
}

func scriptsShowAction(c *cli.Context) error {
	if c.Bool("tui") {
		return errTUIUnsupported("scripts")
	}
	id, err := scriptIDArg(c)
	if err != nil {
		return err
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	e, err := loadEnv(c, "scripts")
	if err != nil {
		return err
	}

	script, err := e.client.GetScript(c.Context, id)
	if err != nil {
		return err
	}
	if c.String("format") != "" || !r.Color() {
		return r.Render(script)
	}

	r.Text(fmt.Sprintf("%s (%s) %s", script.Name, script.Language, script.Path))
	if script.Content != nil {
		r.Text(r.Highlight(*script.Content, script.Language))
	}
	return nil
}

func scriptsCreateAction(c *cli.Context) error {
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	e, err := loadEnv(c, "scripts")
	if err != nil {
		return err
	}

	in := types.ScriptCreate{
		Name:     c.String("name"),
		Language: c.String("language"),
		Path:     c.String("path"),
		Tags:     c.StringSlice("tag"),
	}
	if in.Path == "" {
		in.Path = in.Name
	}
	if in.Tags == nil {
		in.Tags = []string{}
	}
	if f := c.String("content-file"); f != "" {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("failed to read content file: %w", err)
		}
		in.Content = string(data)
	}

	script, err := e.client.CreateScript(c.Context, in)
	if err != nil {
		return err
	}
	return r.Render(script)
}

func scriptsUpdateAction(c *cli.Context) error {
	id, err := scriptIDArg(c)
	if err != nil {
		return err
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	e, err := loadEnv(c, "scripts")
	if err != nil {
		return err
	}

	var in types.ScriptUpdate
	for name, field := range map[string]**string{
		"name":     &in.Name,
		"language": &in.Language,
		"path":     &in.Path,
	} {
		if c.IsSet(name) {
			v := c.String(name)
			*field = &v
		}
	}
	if c.IsSet("tag") {
		in.Tags = c.StringSlice("tag")
	}
	if f := c.String("content-file"); f != "" {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("failed to read content file: %w", err)
		}
		content := string(data)
		in.Content = &content
	}

	script, err := e.client.UpdateScript(c.Context, id, in)
	if err != nil {
		return err
	}
	return r.Render(script)
}

func scriptsDeleteAction(c *cli.Context) error {
	id, err := scriptIDArg(c)
	if err != nil {
		return err
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	e, err := loadEnv(c, "scripts")
	if err != nil {
		return err
	}
	if err := e.client.DeleteScript(c.Context, id); err != nil {
		return err
	}
	r.Text(fmt.Sprintf("deleted script %d", id))
	return nil
}
