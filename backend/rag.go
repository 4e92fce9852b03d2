package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/pithecene-io/studio/types"
)

// DefaultCollection is the collection used when none is given.
const DefaultCollection = "default"

// DefaultTopK is the number of contexts retrieved by default.
const DefaultTopK = 3

// UploadResult is the response of a document upload.
type UploadResult struct {
	Status string `json:"status"`
	Path   string `json:"path"`
}

// IndexResult is the response of an index rebuild.
type IndexResult struct {
	Status  string `json:"status"`
	Indexed int    `json:"indexed"`
}

// UploadFile uploads a document into a collection. Indexing is queued by
// the backend.
func (c *Client) UploadFile(ctx context.Context, collectionID, filename string, r io.Reader) (UploadResult, error) {
	if collectionID == "" {
		collectionID = DefaultCollection
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return UploadResult{}, fmt.Errorf("upload: create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return UploadResult{}, fmt.Errorf("upload: read %s: %w", filename, err)
	}
	if err := mw.WriteField("collection_id", collectionID); err != nil {
		return UploadResult{}, fmt.Errorf("upload: write field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return UploadResult{}, fmt.Errorf("upload: close form: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/rag/upload", &buf)
	if err != nil {
		return UploadResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	var out UploadResult
	err = c.do(req, &out)
	return out, err
}

// RebuildIndex re-indexes every uploaded document into a collection.
func (c *Client) RebuildIndex(ctx context.Context, collectionID string) (IndexResult, error) {
	if collectionID == "" {
		collectionID = DefaultCollection
	}
	in := map[string]string{"collection_id": collectionID}
	var out IndexResult
	err := c.call(ctx, http.MethodPost, "/api/rag/index", in, &out)
	return out, err
}

// Query retrieves the contexts most relevant to a query.
func (c *Client) Query(ctx context.Context, q types.RagQuery) (types.RagQueryResponse, error) {
	if q.CollectionID == "" {
		q.CollectionID = DefaultCollection
	}
	if q.TopK <= 0 {
		q.TopK = DefaultTopK
	}
	var out types.RagQueryResponse
	err := c.call(ctx, http.MethodPost, "/api/rag/query", q, &out)
	return out, err
}
