package redisstore

import (
	"context"
	"fmt"
	"time"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/pkg/errx"
	"ai-tutor-be/internal/repository/contract"

	"github.com/redis/go-redis/v9"
)

// UserStateRepository keeps each user's state in a hash plus a set of diagnosed
// topic slugs, so a merge save is a plain SADD.
type UserStateRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
}

var _ contract.UserStateRepository = (*UserStateRepository)(nil)

// NewUserStateRepository stores state without expiry when ttl is zero.
func NewUserStateRepository(rdb redis.Cmdable, ttl time.Duration) *UserStateRepository {
	return &UserStateRepository{rdb: rdb, ttl: ttl}
}

func (r *UserStateRepository) stateKey(email string) string {
	return fmt.Sprintf("user_state:%s", entity.NormalizeEmail(email))
}

func (r *UserStateRepository) diagnosedKey(email string) string {
	return fmt.Sprintf("user_state:%s:diagnosed", entity.NormalizeEmail(email))
}

func (r *UserStateRepository) Get(ctx context.Context, email string) (*entity.UserState, error) {
	var (
		fieldsCmd    *redis.MapStringStringCmd
		diagnosedCmd *redis.StringSliceCmd
	)
	_, err := r.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		fieldsCmd = p.HGetAll(ctx, r.stateKey(email))
		diagnosedCmd = p.SMembers(ctx, r.diagnosedKey(email))
		return nil
	})
	if err != nil && err != redis.Nil {
		return nil, errx.WrapRedis(err)
	}

	fields := fieldsCmd.Val()
	if len(fields) == 0 {
		return nil, nil
	}

	state := entity.NewUserState(email)
	state.Topic, _ = entity.ParseTopicID(fields["topic"])
	state.Phase = entity.ParsePhase(fields["phase"])
	if ts, err := time.Parse(time.RFC3339Nano, fields["updated_at"]); err == nil {
		state.UpdatedAt = ts
	}
	for _, slug := range diagnosedCmd.Val() {
		if id, ok := entity.ParseTopicID(slug); ok {
			state.MarkDiagnosed(id)
		}
	}
	if !state.Valid() {
		state.Phase = entity.PhaseIdle
	}
	return &state, nil
}

func (r *UserStateRepository) Save(ctx context.Context, state *entity.UserState, merge bool) error {
	stateKey := r.stateKey(state.Email)
	diagnosedKey := r.diagnosedKey(state.Email)

	topic := ""
	if state.HasTopic() {
		topic = state.Topic.String()
	}
	updatedAt := state.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	diagnosed := state.DiagnosedList()
	members := make([]interface{}, 0, len(diagnosed))
	for _, t := range diagnosed {
		members = append(members, t.String())
	}

	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if !merge {
			p.Del(ctx, diagnosedKey)
		}
		p.HSet(ctx, stateKey,
			"topic", topic,
			"phase", string(state.Phase),
			"updated_at", updatedAt.UTC().Format(time.RFC3339Nano),
		)
		if len(members) > 0 {
			p.SAdd(ctx, diagnosedKey, members...)
		}
		if r.ttl > 0 {
			p.Expire(ctx, stateKey, r.ttl)
			p.Expire(ctx, diagnosedKey, r.ttl)
		}
		return nil
	})
	if err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *UserStateRepository) Delete(ctx context.Context, email string) error {
	if err := r.rdb.Del(ctx, r.stateKey(email), r.diagnosedKey(email)).Err(); err != nil {
		return errx.WrapRedis(err)
	}
	return nil
}
