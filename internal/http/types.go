package http

// Response is the envelope of every API response. Exactly one of Data and
// Error is set.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// StoreRequest is the request body for POST /qdrant/store.
type StoreRequest struct {
	ID      string         `json:"id"`
	Vector  []float32      `json:"vector"`
	Payload map[string]any `json:"payload"`
}

// SearchRequest is the request body for POST /qdrant/search. A missing
// limit uses the server default.
type SearchRequest struct {
	Vector []float32      `json:"vector"`
	Limit  *int           `json:"limit,omitempty"`
	Filter map[string]any `json:"filter,omitempty"`
}

// RecordData is returned by store and delete.
type RecordData struct {
	ID       string `json:"id"`
	QdrantID string `json:"qdrantId"`
	Message  string `json:"message"`
}

// SearchData is returned by search.
type SearchData struct {
	Results []SearchResult `json:"results"`
}

// SearchResult is one ranked match.
type SearchResult struct {
	ID    string  `json:"id"`
	Score float32 `json:"score"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}
