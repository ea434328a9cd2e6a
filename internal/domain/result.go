package domain

// Payload is the metadata stored alongside a vector. The known fields are
// typed; Extra keeps forward compatibility for anything else a caller
// attaches. Chunk text itself is carried separately and never duplicated
// inside the payload map returned to callers.
type Payload struct {
	URL        string            `json:"url,omitempty"`
	Title      string            `json:"title,omitempty"`
	ChunkIndex int               `json:"chunk_index"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Source returns the display source for this payload: URL when present,
// else title, else empty (the caller substitutes its unknown marker).
func (p Payload) Source() string {
	if p.URL != "" {
		return p.URL
	}
	return p.Title
}

// RetrievalResult is a single similarity match. Ephemeral, never persisted.
type RetrievalResult struct {
	Text     string  `json:"text"`
	Score    float64 `json:"score"`
	Metadata Payload `json:"metadata"`
}
