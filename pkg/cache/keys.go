package cache

import (
	"strings"

	"ai-tutor-be/internal/entity"
)

const (
	PrefixRetrieval    = "rag:"
	PrefixState        = "state:"
	PrefixHistory      = "history:"
	PrefixFirstContact = "first:"
)

func StateKey(email string) string {
	return PrefixState + entity.NormalizeEmail(email)
}

func HistoryKey(email string) string {
	return PrefixHistory + entity.NormalizeEmail(email)
}

func FirstContactKey(email string) string {
	return PrefixFirstContact + entity.NormalizeEmail(email)
}

// RetrievalKey is built from the normalized category and the first n runes of
// the normalized query, so near-identical questions share one entry.
func RetrievalKey(category, query string, n int) string {
	cat := strings.ToLower(strings.TrimSpace(category))
	if cat == "" {
		cat = "*"
	}
	q := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	if r := []rune(q); n > 0 && len(r) > n {
		q = string(r[:n])
	}
	return PrefixRetrieval + cat + ":" + q
}

// InvalidateUser drops every per-user entry. Retrieval entries are shared and stay.
func (s *Store) InvalidateUser(email string) {
	s.Delete(StateKey(email))
	s.Delete(HistoryKey(email))
	s.Delete(FirstContactKey(email))
}
