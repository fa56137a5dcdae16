package model

import (
	"time"

	"gorm.io/datatypes"
)

type UserState struct {
	Email           string                      `gorm:"type:varchar(320);primaryKey"`
	Topic           string                      `gorm:"type:varchar(64)"`
	Phase           string                      `gorm:"type:varchar(16);not null;default:'IDLE'"`
	DiagnosedTopics datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	UpdatedAt       time.Time                   `gorm:"autoUpdateTime"`
}

func (UserState) TableName() string {
	return "user_states"
}
