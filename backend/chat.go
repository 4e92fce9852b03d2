package backend

import (
	"context"
	"net/http"

	"github.com/pithecene-io/studio/types"
)

// ChatRequest is the body of POST /api/chat/stream.
type ChatRequest struct {
	Messages     []types.ChatMessage `json:"messages"`
	Model        string              `json:"model"`
	SystemPrompt string              `json:"system_prompt,omitempty"`
}

// ChatStreamRequest builds the streaming chat completion request.
// The response is an SSE stream of raw text deltas.
func (c *Client) ChatStreamRequest(ctx context.Context, body ChatRequest) (*http.Request, error) {
	if body.Messages == nil {
		body.Messages = []types.ChatMessage{}
	}
	return c.newJSONRequest(ctx, http.MethodPost, "/api/chat/stream", body)
}

// ListModels returns the backend model catalogue.
func (c *Client) ListModels(ctx context.Context) ([]types.Model, error) {
	var out struct {
		Models []types.Model `json:"models"`
	}
	if err := c.call(ctx, http.MethodGet, "/api/chat/models", nil, &out); err != nil {
		return nil, err
	}
	return out.Models, nil
}

// RouterInfo returns the backend routing strategy.
func (c *Client) RouterInfo(ctx context.Context) (types.RouterInfo, error) {
	var out types.RouterInfo
	err := c.call(ctx, http.MethodGet, "/api/chat/router", nil, &out)
	return out, err
}
