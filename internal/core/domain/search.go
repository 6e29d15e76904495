package domain

// Filter restricts points by exact payload matches. All conditions must hold.
type Filter map[string]any

// Matches reports whether the flat payload satisfies every condition.
func (f Filter) Matches(fields map[string]any) bool {
	for k, want := range f {
		got, ok := fields[k]
		if !ok || !equalValue(got, want) {
			return false
		}
	}
	return true
}

// equalValue compares payload values loosely, since JSON decoding turns ints into float64.
func equalValue(a, b any) bool {
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
		return false
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// SearchParams configures a single vector store search.
type SearchParams struct {
	// Limit is the maximum number of hits.
	Limit int

	// ScoreThreshold drops hits scoring below it.
	ScoreThreshold float64

	// Filter optionally restricts candidate points.
	Filter Filter
}

// Hit is a raw vector store match before mapping to a SearchResult.
type Hit struct {
	ID      string
	Score   float64
	Payload Payload
}

// SearchRequest is a retrieval query against one collection.
type SearchRequest struct {
	// Query is the natural-language query text.
	Query string `json:"query"`

	// TopK is the number of results wanted.
	TopK int `json:"top_k"`

	// Collection is the target collection; empty means the default.
	Collection string `json:"collection,omitempty"`

	// Threshold overrides the configured minimum score when set.
	Threshold *float64 `json:"threshold,omitempty"`

	// Filter restricts results by payload field equality.
	Filter Filter `json:"filters,omitempty"`
}

// SearchResult represents a single ranked search hit.
type SearchResult struct {
	ID         string         `json:"id"`
	Score      float64        `json:"score"`
	Rank       int            `json:"rank"`
	Content    string         `json:"content"`
	Title      string         `json:"title"`
	Metadata   map[string]any `json:"metadata"`
	Collection string         `json:"collection"`

	// DocumentID links the hit back to its source document.
	DocumentID string `json:"document_id"`
}

// CacheStats reports result cache occupancy.
type CacheStats struct {
	Enabled bool `json:"enabled"`
	Size    int  `json:"size"`
	MaxSize int  `json:"max_size"`
}
