package session

import (
	"context"
	"time"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/internal/repository/contract"
	"ai-tutor-be/pkg/cache"
	"ai-tutor-be/pkg/rag/history"

	"golang.org/x/sync/errgroup"
)

// Snapshot is everything a turn reads before deciding what to do.
type Snapshot struct {
	FirstContact bool
	State        entity.UserState
	History      []entity.ChatMessage
}

// Manager loads and persists per-user state through the cache.
type Manager struct {
	states   contract.UserStateRepository
	memory   *history.Memory
	cache    *cache.Store
	stateTTL time.Duration
	logger   logger.ILogger
}

func NewManager(states contract.UserStateRepository, memory *history.Memory, store *cache.Store, stateTTL time.Duration, log logger.ILogger) *Manager {
	return &Manager{
		states:   states,
		memory:   memory,
		cache:    store,
		stateTTL: stateTTL,
		logger:   log,
	}
}

// Load issues the first-contact, state and history reads concurrently.
// A failed history or first-contact read degrades to an empty value; a failed
// state read is returned, since deciding a turn from a guessed state would
// overwrite the user's progress.
func (m *Manager) Load(ctx context.Context, email string) (Snapshot, error) {
	var snap Snapshot
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		first, err := m.memory.IsFirstContact(gctx, email)
		if err != nil {
			m.logger.Warn("SESSION", "First-contact read failed, assuming returning user", map[string]interface{}{
				"user":  email,
				"error": err.Error(),
			})
			return nil
		}
		snap.FirstContact = first
		return nil
	})

	g.Go(func() error {
		state, err := m.LoadState(gctx, email)
		if err != nil {
			return err
		}
		snap.State = state
		return nil
	})

	g.Go(func() error {
		msgs, err := m.memory.ReadRecent(gctx, email, 0)
		if err != nil {
			m.logger.Warn("SESSION", "History read failed, continuing without history", map[string]interface{}{
				"user":  email,
				"error": err.Error(),
			})
			return nil
		}
		snap.History = msgs
		return nil
	})

	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// LoadState returns the stored state, or defaults for a user never seen.
func (m *Manager) LoadState(ctx context.Context, email string) (entity.UserState, error) {
	return cache.GetOrLoadState(ctx, m.cache, email, m.stateTTL, func(ctx context.Context) (entity.UserState, error) {
		stored, err := m.states.Get(ctx, entity.NormalizeEmail(email))
		if err != nil {
			return entity.UserState{}, err
		}
		if stored == nil {
			return entity.NewUserState(email), nil
		}
		return *stored, nil
	})
}

// SaveState persists with merge so diagnosed topics written by a concurrent
// turn are kept, then mirrors the state into the cache.
func (m *Manager) SaveState(ctx context.Context, state entity.UserState) error {
	if err := m.states.Save(ctx, &state, true); err != nil {
		return err
	}
	m.cache.Set(cache.StateKey(state.Email), state.Clone(), m.stateTTL)
	return nil
}

// Reset returns the user to default state.
func (m *Manager) Reset(ctx context.Context, email string) error {
	if err := m.states.Delete(ctx, entity.NormalizeEmail(email)); err != nil {
		return err
	}
	m.cache.Delete(cache.StateKey(email))
	return nil
}
