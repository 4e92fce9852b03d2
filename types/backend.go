package types

// Script is a workspace script as returned by the backend.
type Script struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Language string   `json:"language"`
	Path     string   `json:"path"`
	Tags     []string `json:"tags"`
	Content  *string  `json:"content,omitempty"`

	// Timestamps are passed through as sent; the backend emits them
	// without a zone offset.
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// ScriptCreate is the body of a script creation request.
type ScriptCreate struct {
	Name     string   `json:"name"`
	Language string   `json:"language"`
	Path     string   `json:"path"`
	Tags     []string `json:"tags"`
	Content  string   `json:"content"`
}

// ScriptUpdate is the body of a script update request. Nil fields are left
// unchanged by the backend.
type ScriptUpdate struct {
	Name     *string  `json:"name,omitempty"`
	Language *string  `json:"language,omitempty"`
	Path     *string  `json:"path,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Content  *string  `json:"content,omitempty"`
}

// RagQuery is a retrieval query against an indexed collection.
type RagQuery struct {
	Query        string `json:"query"`
	CollectionID string `json:"collection_id"`
	TopK         int    `json:"top_k"`
}

// RagQueryResponse carries the retrieved contexts and the selected answer.
type RagQueryResponse struct {
	Contexts []string `json:"contexts"`
	Answer   string   `json:"answer"`
}

// Model is an entry of the backend model catalogue.
type Model struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// RouterInfo describes the backend model routing strategy.
type RouterInfo struct {
	Strategy     string `json:"strategy"`
	DefaultModel string `json:"default_model"`
}
