package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/repository/contract"

	"github.com/google/uuid"
)

type ChatMessageRepository struct {
	mu       sync.RWMutex
	messages map[string][]entity.ChatMessage
	now      func() time.Time
}

var _ contract.ChatMessageRepository = (*ChatMessageRepository)(nil)

func NewChatMessageRepository() *ChatMessageRepository {
	return &ChatMessageRepository{
		messages: make(map[string][]entity.ChatMessage),
		now:      time.Now,
	}
}

func (r *ChatMessageRepository) Create(ctx context.Context, message *entity.ChatMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if message.Id == uuid.Nil {
		message.Id = uuid.New()
	}
	message.UserEmail = entity.NormalizeEmail(message.UserEmail)

	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.messages[message.UserEmail]
	if message.CreatedAt.IsZero() {
		message.CreatedAt = r.now()
	}
	// Keep CreatedAt strictly increasing per user so ordering is total.
	if n := len(list); n > 0 && !message.CreatedAt.After(list[n-1].CreatedAt) {
		message.CreatedAt = list[n-1].CreatedAt.Add(time.Microsecond)
	}
	r.messages[message.UserEmail] = append(list, *message)
	return nil
}

func (r *ChatMessageRepository) FindRecent(ctx context.Context, userEmail string, limit int) ([]entity.ChatMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.messages[entity.NormalizeEmail(userEmail)]
	start := 0
	if limit > 0 && len(list) > limit {
		start = len(list) - limit
	}
	out := make([]entity.ChatMessage, len(list)-start)
	copy(out, list[start:])
	return out, nil
}

func (r *ChatMessageRepository) Count(ctx context.Context, userEmail string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.messages[entity.NormalizeEmail(userEmail)])), nil
}

func (r *ChatMessageRepository) FindOldestIDs(ctx context.Context, userEmail string, n int) ([]uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.messages[entity.NormalizeEmail(userEmail)]
	if n > len(list) {
		n = len(list)
	}
	ids := make([]uuid.UUID, 0, n)
	for _, m := range list[:n] {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

func (r *ChatMessageRepository) DeleteBatch(ctx context.Context, ids []uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	drop := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for email, list := range r.messages {
		kept := list[:0:0]
		for _, m := range list {
			if _, ok := drop[m.Id]; !ok {
				kept = append(kept, m)
			}
		}
		r.messages[email] = kept
	}
	return nil
}

func (r *ChatMessageRepository) DeleteAllByUser(ctx context.Context, userEmail string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.messages, entity.NormalizeEmail(userEmail))
	return nil
}

// Seed inserts messages as-is, sorted by CreatedAt. Test helper.
func (r *ChatMessageRepository) Seed(userEmail string, messages ...entity.ChatMessage) {
	email := entity.NormalizeEmail(userEmail)
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range messages {
		if m.Id == uuid.Nil {
			m.Id = uuid.New()
		}
		m.UserEmail = email
		r.messages[email] = append(r.messages[email], m)
	}
	sort.SliceStable(r.messages[email], func(i, j int) bool {
		return r.messages[email][i].CreatedAt.Before(r.messages[email][j].CreatedAt)
	})
}
