package cache

import (
	"context"
	"fmt"
	"time"

	"ai-tutor-be/internal/entity"
)

// GetOrLoad is the cache-aside flow: a live hit is returned as is, otherwise
// load runs once per key across concurrent callers and its result is stored.
// A cached value of the wrong type counts as a miss and is dropped.
func GetOrLoad[T any](ctx context.Context, s *Store, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if v, ok := s.Get(key); ok {
		if typed, ok := v.(T); ok {
			if remaining, ok := s.Remaining(key); ok {
				s.logger.Debug("CACHE", "Cache hit", map[string]interface{}{
					"key":       key,
					"remaining": remaining.String(),
				})
			}
			return typed, nil
		}
		s.logger.Warn("CACHE", "Dropping malformed cache entry", map[string]interface{}{
			"key":  key,
			"type": fmt.Sprintf("%T", v),
		})
		s.Delete(key)
	}

	v, err, _ := s.loads.Do(key, func() (interface{}, error) {
		val, err := load(ctx)
		if err != nil {
			return nil, err
		}
		s.Set(key, val, ttl)
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// GetOrLoadState returns a private copy of the user's state.
func GetOrLoadState(ctx context.Context, s *Store, email string, ttl time.Duration, load func(context.Context) (entity.UserState, error)) (entity.UserState, error) {
	state, err := GetOrLoad(ctx, s, StateKey(email), ttl, load)
	if err != nil {
		return entity.UserState{}, err
	}
	return state.Clone(), nil
}

// GetOrLoadHistory returns a private copy of the cached message window, oldest first.
func GetOrLoadHistory(ctx context.Context, s *Store, email string, ttl time.Duration, load func(context.Context) ([]entity.ChatMessage, error)) ([]entity.ChatMessage, error) {
	msgs, err := GetOrLoad(ctx, s, HistoryKey(email), ttl, load)
	if err != nil {
		return nil, err
	}
	out := make([]entity.ChatMessage, len(msgs))
	copy(out, msgs)
	return out, nil
}

// GetOrLoadFirstContact reports whether the user has never sent a message.
func GetOrLoadFirstContact(ctx context.Context, s *Store, email string, ttl time.Duration, load func(context.Context) (bool, error)) (bool, error) {
	return GetOrLoad(ctx, s, FirstContactKey(email), ttl, load)
}
