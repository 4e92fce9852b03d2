package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/pithecene-io/studio/types"
)

// Stop statuses reported by POST /api/scripts/stop.
const (
	StopStatusStopped  = "stopped"
	StopStatusNotFound = "not_found"
)

func scriptPath(id int64) string {
	return "/api/scripts/" + strconv.FormatInt(id, 10)
}

func runPath(runID string) string {
	return "/api/scripts/runs/" + url.PathEscape(runID)
}

// ListScripts returns every workspace script, without content.
func (c *Client) ListScripts(ctx context.Context) ([]types.Script, error) {
	var out struct {
		Scripts []types.Script `json:"scripts"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/scripts", nil, &out); err != nil {
		return nil, err
	}
	return out.Scripts, nil
}

// GetScript returns a script including its content.
func (c *Client) GetScript(ctx context.Context, id int64) (types.Script, error) {
	var out struct {
		Script types.Script `json:"script"`
	}
	err := c.call(ctx, http.MethodGet, scriptPath(id), nil, &out)
	return out.Script, err
}

// CreateScript creates a script. Language defaults to "py".
func (c *Client) CreateScript(ctx context.Context, in types.ScriptCreate) (types.Script, error) {
	if in.Language == "" {
		in.Language = "py"
	}
	if in.Tags == nil {
		in.Tags = []string{}
	}
	var out struct {
		Script types.Script `json:"script"`
	}
	err := c.call(ctx, http.MethodPost, "/api/scripts", in, &out)
	return out.Script, err
}

// UpdateScript applies a partial update.
func (c *Client) UpdateScript(ctx context.Context, id int64, in types.ScriptUpdate) (types.Script, error) {
	var out struct {
		Script types.Script `json:"script"`
	}
	err := c.call(ctx, http.MethodPut, scriptPath(id), in, &out)
	return out.Script, err
}

// DeleteScript deletes a script.
func (c *Client) DeleteScript(ctx context.Context, id int64) error {
	return c.call(ctx, http.MethodDelete, scriptPath(id), nil, nil)
}

// StartRun requests a new run of a script and returns the server-assigned run id.
func (c *Client) StartRun(ctx context.Context, scriptID int64) (string, error) {
	in := map[string]int64{"script_id": scriptID}
	var out struct {
		RunID string `json:"run_id"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/scripts/run", in, &out); err != nil {
		return "", err
	}
	if out.RunID == "" {
		return "", errors.New("start run: response carried no run_id")
	}
	return out.RunID, nil
}

// RunStreamRequest builds the run log streaming request.
// The response is an SSE stream of JSON log payloads or raw text.
func (c *Client) RunStreamRequest(ctx context.Context, runID string) (*http.Request, error) {
	if runID == "" {
		return nil, errors.New("run stream: run id is required")
	}
	return c.newRequest(ctx, http.MethodGet, runPath(runID)+"/stream", nil)
}

// StopRun requests server-side cancellation of a run.
// Returns StopStatusStopped or StopStatusNotFound; a run that already
// finished reports not_found, which is not an error.
func (c *Client) StopRun(ctx context.Context, runID string) (string, error) {
	if runID == "" {
		return "", errors.New("stop run: run id is required")
	}
	in := map[string]string{"run_id": runID}
	var out struct {
		Status string `json:"status"`
	}
	if err := c.call(ctx, http.MethodPost, "/api/scripts/stop", in, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

// ListArtifacts returns the artifact names produced by a run.
func (c *Client) ListArtifacts(ctx context.Context, runID string) ([]string, error) {
	if runID == "" {
		return nil, errors.New("list artifacts: run id is required")
	}
	var out struct {
		Artifacts []string `json:"artifacts"`
	}
	if err := c.call(ctx, http.MethodGet, runPath(runID)+"/artifacts", nil, &out); err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	if out.Artifacts == nil {
		out.Artifacts = []string{}
	}
	return out.Artifacts, nil
}
