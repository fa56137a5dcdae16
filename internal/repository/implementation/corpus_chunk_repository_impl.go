package implementation

import (
	"context"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/mapper"
	"ai-tutor-be/internal/model"
	"ai-tutor-be/internal/pkg/errx"
	"ai-tutor-be/internal/repository/contract"
	"ai-tutor-be/internal/repository/specification"

	"gorm.io/gorm"
)

type CorpusChunkRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.CorpusChunkMapper
}

func NewCorpusChunkRepository(db *gorm.DB) contract.ChunkRepository {
	return &CorpusChunkRepositoryImpl{
		db:     db,
		mapper: mapper.NewCorpusChunkMapper(),
	}
}

func (r *CorpusChunkRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

// Query loads candidates for full-scan scoring. Ordering by id keeps the
// candidate window stable across calls when the corpus exceeds the cap.
func (r *CorpusChunkRepositoryImpl) Query(ctx context.Context, category string, limit int) ([]entity.Chunk, error) {
	var models []*model.CorpusChunk
	query := r.applySpecifications(r.db.WithContext(ctx),
		specification.WithEmbedding{},
		specification.ByCategory{Category: category},
		specification.OrderBy{Field: "id"},
		specification.Limit{N: limit},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, errx.WrapStore("query corpus chunks", err)
	}
	return r.mapper.ToEntities(models), nil
}

// CreateBulk is used by ingestion tooling and integration tests.
func (r *CorpusChunkRepositoryImpl) CreateBulk(ctx context.Context, chunks []entity.Chunk) error {
	models := make([]*model.CorpusChunk, len(chunks))
	for i := range chunks {
		models[i] = r.mapper.ToModel(&chunks[i])
	}
	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return errx.WrapStore("create corpus chunks", err)
	}
	return nil
}
