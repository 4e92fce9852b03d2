package backend

import (
	"context"
	"net/http"
)

// GetSettings returns the persisted backend settings.
func (c *Client) GetSettings(ctx context.Context) (map[string]any, error) {
	var out struct {
		Settings map[string]any `json:"settings"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/settings", nil, &out); err != nil {
		return nil, err
	}
	if out.Settings == nil {
		out.Settings = map[string]any{}
	}
	return out.Settings, nil
}

// SaveSettings merges data into the persisted backend settings.
func (c *Client) SaveSettings(ctx context.Context, data map[string]any) error {
	in := map[string]any{"data": data}
	return c.call(ctx, http.MethodPost, "/api/settings", in, nil)
}
