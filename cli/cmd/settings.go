package cmd

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/pithecene-io/studio/cli/render"
)

// SettingsCommand returns the settings command.
func SettingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Read or update backend settings",
		Subcommands: []*cli.Command{
			{
				Name:   "get",
				Usage:  "Show all settings",
				Flags:  OutputFlags(),
				Action: settingsGetAction,
			},
			{
				Name:      "set",
				Usage:     "Merge key=value pairs into the settings",
				ArgsUsage: "<key=value>...",
				Flags:     OutputFlags(),
				Action:    settingsSetAction,
			},
		},
	}
}

func settingsGetAction(c *cli.Context) error {
	if c.Bool("tui") {
		return errTUIUnsupported("settings")
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	e, err := loadEnv(c, "settings")
	if err != nil {
		return err
	}
	settings, err := e.client.GetSettings(c.Context)
	if err != nil {
		return err
	}
	return r.Render(settings)
}

func settingsSetAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("missing <key=value> argument", 1)
	}
	updates, err := parseAssignments(c.Args().Slice())
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	e, err := loadEnv(c, "settings")
	if err != nil {
		return err
	}

	settings, err := e.client.GetSettings(c.Context)
	if err != nil {
		return err
	}
	if settings == nil {
		settings = map[string]any{}
	}
	for k, v := range updates {
		settings[k] = v
	}
	if err := e.client.SaveSettings(c.Context, settings); err != nil {
		return err
	}
	return r.Render(settings)
}

// parseAssignments parses key=value pairs. Values are decoded as YAML
// scalars, so true, 3 and 0.5 keep their types; anything else is a string.
func parseAssignments(args []string) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q (want key=value)", arg)
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil || v == nil {
			v = raw
		}
		out[key] = v
	}
	return out, nil
}
