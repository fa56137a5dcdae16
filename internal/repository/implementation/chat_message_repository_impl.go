package implementation

import (
	"context"
	"time"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/mapper"
	"ai-tutor-be/internal/model"
	"ai-tutor-be/internal/pkg/errx"
	"ai-tutor-be/internal/repository/contract"
	"ai-tutor-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatMessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ChatMapper
}

func NewChatMessageRepository(db *gorm.DB) contract.ChatMessageRepository {
	return &ChatMessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewChatMapper(),
	}
}

func (r *ChatMessageRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ChatMessageRepositoryImpl) Create(ctx context.Context, message *entity.ChatMessage) error {
	if message.Id == uuid.Nil {
		message.Id = uuid.New()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	message.UserEmail = entity.NormalizeEmail(message.UserEmail)

	m := r.mapper.ToModel(message)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return errx.WrapStore("create chat message", err)
	}
	*message = *r.mapper.ToEntity(m)
	return nil
}

func (r *ChatMessageRepositoryImpl) FindRecent(ctx context.Context, userEmail string, limit int) ([]entity.ChatMessage, error) {
	var models []*model.ChatMessage
	query := r.applySpecifications(r.db.WithContext(ctx),
		specification.ByUserEmail{Email: userEmail},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Limit{N: limit},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, errx.WrapStore("find recent chat messages", err)
	}

	// Newest-first from the query, callers want chronological order.
	for i, j := 0, len(models)-1; i < j; i, j = i+1, j-1 {
		models[i], models[j] = models[j], models[i]
	}
	return r.mapper.ToEntities(models), nil
}

func (r *ChatMessageRepositoryImpl) Count(ctx context.Context, userEmail string) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specification.ByUserEmail{Email: userEmail})
	if err := query.Model(&model.ChatMessage{}).Count(&count).Error; err != nil {
		return 0, errx.WrapStore("count chat messages", err)
	}
	return count, nil
}

func (r *ChatMessageRepositoryImpl) FindOldestIDs(ctx context.Context, userEmail string, n int) ([]uuid.UUID, error) {
	if n <= 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.ChatMessage{}),
		specification.ByUserEmail{Email: userEmail},
		specification.OrderBy{Field: "created_at"},
		specification.Limit{N: n},
	)
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, errx.WrapStore("find oldest chat messages", err)
	}
	return ids, nil
}

func (r *ChatMessageRepositoryImpl) DeleteBatch(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	query := r.applySpecifications(r.db.WithContext(ctx), specification.ByIDs{IDs: ids})
	if err := query.Delete(&model.ChatMessage{}).Error; err != nil {
		return errx.WrapStore("delete chat messages", err)
	}
	return nil
}

func (r *ChatMessageRepositoryImpl) DeleteAllByUser(ctx context.Context, userEmail string) error {
	query := r.applySpecifications(r.db.WithContext(ctx), specification.ByUserEmail{Email: userEmail})
	if err := query.Delete(&model.ChatMessage{}).Error; err != nil {
		return errx.WrapStore("delete user chat messages", err)
	}
	return nil
}
