package text

import (
	"strings"
	"unicode"
)

const zwnj = '‌'

// Tokenize splits text into words: whitespace separation with surrounding
// punctuation trimmed. ZWNJ inside a word is part of the word (Persian
// compound forms); at the edges it is noise and stripped.
func Tokenize(s string) []string {
	fields := strings.Fields(s)
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		w := strings.TrimFunc(f, isWordEdgeNoise)
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

func isWordEdgeNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSymbol(r) || r == zwnj
}
