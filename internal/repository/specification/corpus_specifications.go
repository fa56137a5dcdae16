package specification

import (
	"strings"

	"gorm.io/gorm"
)

// ByCategory filters chunks by category. An empty category applies no filter.
type ByCategory struct {
	Category string
}

func (s ByCategory) Apply(db *gorm.DB) *gorm.DB {
	c := strings.TrimSpace(s.Category)
	if c == "" {
		return db
	}
	return db.Where("LOWER(category) = ?", strings.ToLower(c))
}

// WithEmbedding excludes chunks that were ingested without a vector.
type WithEmbedding struct{}

func (s WithEmbedding) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("embedding IS NOT NULL")
}
