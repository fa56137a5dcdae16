package history

import (
	"context"
	"time"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/pkg/logger"
	"ai-tutor-be/internal/repository/contract"
	"ai-tutor-be/pkg/background"
	"ai-tutor-be/pkg/cache"
)

type Config struct {
	// Window is how many recent messages are loaded and kept in cache.
	Window int
	// Limit is the hard message-count cap applied on read.
	Limit          int
	TokenBudget    int
	RetentionCap   int
	PruneBatchSize int
	CacheTTL       time.Duration
	FirstTTL       time.Duration
}

func DefaultConfig() Config {
	return Config{
		Window:         50,
		Limit:          20,
		TokenBudget:    3000,
		RetentionCap:   200,
		PruneBatchSize: 500,
		CacheTTL:       15 * time.Minute,
		FirstTTL:       time.Hour,
	}
}

// Memory is the per-user conversation log. Every write it performs is
// reflected in the cached window before Append returns.
type Memory struct {
	repo   contract.ChatMessageRepository
	cache  *cache.Store
	runner *background.Runner
	cfg    Config
	logger logger.ILogger
}

func NewMemory(repo contract.ChatMessageRepository, store *cache.Store, runner *background.Runner, cfg Config, log logger.ILogger) *Memory {
	return &Memory{repo: repo, cache: store, runner: runner, cfg: cfg, logger: log}
}

func (m *Memory) Append(ctx context.Context, email, role, content string) (entity.ChatMessage, error) {
	msg := entity.ChatMessage{
		UserEmail: entity.NormalizeEmail(email),
		Role:      role,
		Content:   content,
	}
	if err := m.repo.Create(ctx, &msg); err != nil {
		return msg, err
	}

	key := cache.HistoryKey(email)
	updated := m.cache.UpdateInPlace(key, func(cur any) (any, bool) {
		list, ok := cur.([]entity.ChatMessage)
		if !ok {
			return nil, false
		}
		next := make([]entity.ChatMessage, 0, len(list)+1)
		next = append(next, list...)
		next = append(next, msg)
		if keep := m.cachedWindow(); len(next) > keep {
			next = next[len(next)-keep:]
		}
		return next, true
	})
	if !updated {
		// Nothing live to extend, or a malformed entry that must not survive.
		m.cache.Delete(key)
	}
	m.cache.Set(cache.FirstContactKey(email), false, m.cfg.FirstTTL)

	m.schedulePrune(msg.UserEmail)
	return msg, nil
}

// ReadRecent returns the newest messages, oldest first, within both the count
// limit and the token budget. limit <= 0 uses the configured limit.
func (m *Memory) ReadRecent(ctx context.Context, email string, limit int) ([]entity.ChatMessage, error) {
	if limit <= 0 {
		limit = m.cfg.Limit
	}
	msgs, err := cache.GetOrLoadHistory(ctx, m.cache, email, m.cfg.CacheTTL, func(ctx context.Context) ([]entity.ChatMessage, error) {
		return m.repo.FindRecent(ctx, entity.NormalizeEmail(email), m.cachedWindow())
	})
	if err != nil {
		return nil, err
	}
	return TrimToBudget(msgs, limit, m.cfg.TokenBudget), nil
}

// IsFirstContact reports whether the user has no stored messages.
func (m *Memory) IsFirstContact(ctx context.Context, email string) (bool, error) {
	return cache.GetOrLoadFirstContact(ctx, m.cache, email, m.cfg.FirstTTL, func(ctx context.Context) (bool, error) {
		n, err := m.repo.Count(ctx, entity.NormalizeEmail(email))
		if err != nil {
			return false, err
		}
		return n == 0, nil
	})
}

// Wipe deletes the user's log and drops the cached window and flag.
func (m *Memory) Wipe(ctx context.Context, email string) error {
	if err := m.repo.DeleteAllByUser(ctx, entity.NormalizeEmail(email)); err != nil {
		return err
	}
	m.cache.Delete(cache.HistoryKey(email))
	m.cache.Delete(cache.FirstContactKey(email))
	return nil
}

func (m *Memory) cachedWindow() int {
	if m.cfg.RetentionCap > 0 && m.cfg.RetentionCap < m.cfg.Window {
		return m.cfg.RetentionCap
	}
	return m.cfg.Window
}

func (m *Memory) schedulePrune(email string) {
	if m.cfg.RetentionCap <= 0 {
		return
	}
	m.runner.Go("history.prune", func(ctx context.Context) error {
		_, err := m.Prune(ctx, email)
		return err
	})
}

// Prune deletes the oldest messages beyond the retention cap in batches of at
// most PruneBatchSize and returns how many were removed.
func (m *Memory) Prune(ctx context.Context, email string) (int, error) {
	count, err := m.repo.Count(ctx, email)
	if err != nil {
		return 0, err
	}
	excess := int(count) - m.cfg.RetentionCap
	batch := m.cfg.PruneBatchSize
	if batch <= 0 {
		batch = 500
	}

	removed := 0
	for excess > 0 {
		n := excess
		if n > batch {
			n = batch
		}
		ids, err := m.repo.FindOldestIDs(ctx, email, n)
		if err != nil {
			return removed, err
		}
		if len(ids) == 0 {
			break
		}
		if err := m.repo.DeleteBatch(ctx, ids); err != nil {
			return removed, err
		}
		removed += len(ids)
		excess -= len(ids)
	}

	if removed > 0 {
		m.logger.Info("HISTORY", "Pruned old messages", map[string]interface{}{
			"user":    email,
			"removed": removed,
		})
	}
	return removed, nil
}
