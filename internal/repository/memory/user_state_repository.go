package memory

import (
	"context"
	"sync"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/repository/contract"
)

type UserStateRepository struct {
	mu     sync.RWMutex
	states map[string]entity.UserState
}

var _ contract.UserStateRepository = (*UserStateRepository)(nil)

func NewUserStateRepository() *UserStateRepository {
	return &UserStateRepository{states: make(map[string]entity.UserState)}
}

func (r *UserStateRepository) Get(ctx context.Context, email string) (*entity.UserState, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.states[entity.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	out := s.Clone()
	return &out, nil
}

func (r *UserStateRepository) Save(ctx context.Context, state *entity.UserState, merge bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	email := entity.NormalizeEmail(state.Email)
	next := state.Clone()
	next.Email = email

	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.states[email]; ok && merge {
		for t := range prev.DiagnosedTopics {
			next.MarkDiagnosed(t)
		}
	}
	r.states[email] = next
	return nil
}

func (r *UserStateRepository) Delete(ctx context.Context, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, entity.NormalizeEmail(email))
	return nil
}
