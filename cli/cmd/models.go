package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/pithecene-io/studio/cli/render"
	"github.com/pithecene-io/studio/types"
)

// ModelsResponse is the response for the models command.
type ModelsResponse struct {
	Router types.RouterInfo `json:"router"`
	Models []types.Model    `json:"models"`
}

// ModelsCommand returns the models command.
func ModelsCommand() *cli.Command {
	return &cli.Command{
		Name:   "models",
		Usage:  "List available models and the routing strategy",
		Flags:  OutputFlags(),
		Action: modelsAction,
	}
}

func modelsAction(c *cli.Context) error {
	if c.Bool("tui") {
		return errTUIUnsupported("models")
	}
	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}
	e, err := loadEnv(c, "models")
	if err != nil {
		return err
	}

	models, err := e.client.ListModels(c.Context)
	if err != nil {
		return err
	}
	router, err := e.client.RouterInfo(c.Context)
	if err != nil {
		return err
	}
	if c.String("format") == "" && r.Color() {
		r.Text("strategy: " + router.Strategy + ", default: " + router.DefaultModel)
		return r.Render(models)
	}
	return r.Render(ModelsResponse{Router: router, Models: models})
}
