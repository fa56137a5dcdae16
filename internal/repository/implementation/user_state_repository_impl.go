package implementation

import (
	"context"
	"errors"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/mapper"
	"ai-tutor-be/internal/model"
	"ai-tutor-be/internal/pkg/errx"
	"ai-tutor-be/internal/repository/contract"
	"ai-tutor-be/internal/repository/specification"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserStateRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.UserStateMapper
}

func NewUserStateRepository(db *gorm.DB) contract.UserStateRepository {
	return &UserStateRepositoryImpl{
		db:     db,
		mapper: mapper.NewUserStateMapper(),
	}
}

func (r *UserStateRepositoryImpl) Get(ctx context.Context, email string) (*entity.UserState, error) {
	var m model.UserState
	query := specification.Filter("email", entity.NormalizeEmail(email)).Apply(r.db.WithContext(ctx))
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errx.WrapStore("get user state", err)
	}
	return r.mapper.ToEntity(&m), nil
}

// Save upserts the row. With merge the stored diagnosed set is folded in
// inside the same transaction so it never shrinks.
func (r *UserStateRepositoryImpl) Save(ctx context.Context, state *entity.UserState, merge bool) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		next := state.Clone()
		if merge {
			var existing model.UserState
			err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("email = ?", entity.NormalizeEmail(state.Email)).
				First(&existing).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if err == nil {
				for t := range r.mapper.ToEntity(&existing).DiagnosedTopics {
					next.MarkDiagnosed(t)
				}
			}
		}

		m := r.mapper.ToModel(&next)
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "email"}},
			DoUpdates: clause.AssignmentColumns([]string{"topic", "phase", "diagnosed_topics", "updated_at"}),
		}).Create(m).Error
	})
	if err != nil {
		return errx.WrapStore("save user state", err)
	}
	return nil
}

func (r *UserStateRepositoryImpl) Delete(ctx context.Context, email string) error {
	query := specification.Filter("email", entity.NormalizeEmail(email)).Apply(r.db.WithContext(ctx))
	if err := query.Delete(&model.UserState{}).Error; err != nil {
		return errx.WrapStore("delete user state", err)
	}
	return nil
}
