package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"
)

type ChatMessage struct {
	Id        uuid.UUID
	UserEmail string
	Role      string
	Content   string
	CreatedAt time.Time
}
