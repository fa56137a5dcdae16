package memory

import (
	"context"
	"strings"
	"sync"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/repository/contract"
)

// ChunkRepository is an in-process corpus for development and tests.
type ChunkRepository struct {
	mu     sync.RWMutex
	chunks []entity.Chunk
	err    error
}

var _ contract.ChunkRepository = (*ChunkRepository)(nil)

func NewChunkRepository(chunks ...entity.Chunk) *ChunkRepository {
	r := &ChunkRepository{}
	r.Upsert(chunks...)
	return r
}

// Upsert replaces chunks with the same id and appends new ones.
func (r *ChunkRepository) Upsert(chunks ...entity.Chunk) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range chunks {
		replaced := false
		for i := range r.chunks {
			if r.chunks[i].Id == c.Id {
				r.chunks[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			r.chunks = append(r.chunks, c)
		}
	}
}

// FailWith makes every subsequent Query return err. Pass nil to recover.
func (r *ChunkRepository) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *ChunkRepository) Query(ctx context.Context, category string, limit int) ([]entity.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.err != nil {
		return nil, r.err
	}

	category = strings.ToLower(strings.TrimSpace(category))
	out := make([]entity.Chunk, 0, len(r.chunks))
	for _, c := range r.chunks {
		if category != "" && strings.ToLower(c.Category) != category {
			continue
		}
		out = append(out, c)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
