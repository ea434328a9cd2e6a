package text

import (
	"fmt"
	"strings"

	"github.com/porsa-ai/porsa/internal/domain"
)

// Chunk splits text into overlapping windows of size words advancing by
// size-overlap. Consecutive chunks share exactly overlap words. Empty input
// yields nil; input shorter than size yields a single chunk. A non-positive
// stride is a configuration error, not a loop.
func Chunk(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size %d: %w", size, domain.ErrInvalidChunking)
	}
	if overlap < 0 || size-overlap < 1 {
		return nil, fmt.Errorf("chunk size %d overlap %d: %w", size, overlap, domain.ErrInvalidChunking)
	}

	words := Tokenize(text)
	if len(words) == 0 {
		return nil, nil
	}

	stride := size - overlap
	var chunks []string
	for start := 0; start < len(words); start += stride {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks, nil
}
