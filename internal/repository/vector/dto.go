package vector

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"strconv"

	"github.com/porsa-ai/porsa/internal/db"
	"github.com/porsa-ai/porsa/internal/domain"
)

// buildHashFields converts a point into a flat map[string]string for HSET.
func buildHashFields(p *domain.Point) map[string]string {
	m := map[string]string{
		"text":        p.Text,
		"vector":      vectorToBytes(p.Vector),
		"url":         p.Payload.URL,
		"title":       p.Payload.Title,
		"chunk_index": strconv.Itoa(p.Payload.ChunkIndex),
	}
	if len(p.Payload.Extra) > 0 {
		if data, err := json.Marshal(p.Payload.Extra); err == nil {
			m["extra"] = string(data)
		}
	}
	return m
}

// parseEntry converts a search hit back into a retrieval result.
func parseEntry(entry db.SearchEntry) domain.RetrievalResult {
	payload := domain.Payload{
		URL:   entry.Fields["url"],
		Title: entry.Fields["title"],
	}
	if v := entry.Fields["chunk_index"]; v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			payload.ChunkIndex = n
		}
	}
	if raw := entry.Fields["extra"]; raw != "" {
		var extra map[string]string
		if err := json.Unmarshal([]byte(raw), &extra); err == nil {
			payload.Extra = extra
		}
	}

	return domain.RetrievalResult{
		Text:     entry.Fields["text"],
		Score:    entry.Score,
		Metadata: payload,
	}
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
