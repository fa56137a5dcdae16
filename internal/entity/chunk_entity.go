package entity

import (
	"path"
	"strings"
)

// Chunk is an immutable slice of ingested course text with its precomputed embedding.
type Chunk struct {
	Id        string
	Text      string
	Embedding []float64
	Source    string
	Category  string
	Metadata  map[string]interface{}
}

// SourceRef is a citation for a retrieved chunk.
type SourceRef struct {
	Source   string  `json:"source"`
	Category string  `json:"category,omitempty"`
	Score    float64 `json:"score"`
}

// NormalizeSource reduces a source path or URL to its lower-cased basename so
// chunks from the same document collapse to one citation.
func NormalizeSource(source string) string {
	s := strings.TrimSpace(source)
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\\", "/")
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, "/")
	if s == "" {
		return ""
	}
	return strings.ToLower(path.Base(s))
}
