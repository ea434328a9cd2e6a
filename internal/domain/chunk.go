package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// Chunk is a bounded window of a document's normalized text, the atomic
// retrieval unit.
type Chunk struct {
	Text  string
	Index int
	URL   string
	Title string
}

// ChunkID derives a content-addressed identifier from chunk text.
// Identical text always collapses to the same id, which is what makes
// re-ingestion of unchanged content idempotent. Hash collisions are
// treated as negligible, not handled.
func ChunkID(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
