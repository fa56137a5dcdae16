package contract

import (
	"context"

	"ai-tutor-be/internal/entity"

	"github.com/google/uuid"
)

type ChatMessageRepository interface {
	Create(ctx context.Context, message *entity.ChatMessage) error
	// FindRecent returns at most limit newest messages for the user, oldest first.
	FindRecent(ctx context.Context, userEmail string, limit int) ([]entity.ChatMessage, error)
	Count(ctx context.Context, userEmail string) (int64, error)
	// FindOldestIDs returns the ids of the n oldest messages for the user.
	FindOldestIDs(ctx context.Context, userEmail string, n int) ([]uuid.UUID, error)
	DeleteBatch(ctx context.Context, ids []uuid.UUID) error
	DeleteAllByUser(ctx context.Context, userEmail string) error
}
