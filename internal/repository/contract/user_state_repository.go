package contract

import (
	"context"

	"ai-tutor-be/internal/entity"
)

type UserStateRepository interface {
	// Get returns nil, nil when the user has no stored state.
	Get(ctx context.Context, email string) (*entity.UserState, error)
	// Save writes the state. With merge, diagnosed topics already stored are kept.
	Save(ctx context.Context, state *entity.UserState, merge bool) error
	Delete(ctx context.Context, email string) error
}
