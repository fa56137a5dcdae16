package specification

import (
	"strings"

	"gorm.io/gorm"
)

// ByUserEmail filters by the case-insensitive user identity.
type ByUserEmail struct {
	Email string
}

func (s ByUserEmail) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_email = ?", strings.ToLower(strings.TrimSpace(s.Email)))
}
