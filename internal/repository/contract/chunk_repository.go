package contract

import (
	"context"

	"ai-tutor-be/internal/entity"
)

// ChunkRepository is the read-only vector store over the course corpus.
type ChunkRepository interface {
	// Query returns up to limit chunks with their embeddings. An empty category
	// means no filter. Failures wrap errx.ErrStoreUnavailable.
	Query(ctx context.Context, category string, limit int) ([]entity.Chunk, error)
}
