package integration

import (
	"context"
	"os"
	"testing"
	"time"

	"ai-tutor-be/internal/entity"
	"ai-tutor-be/internal/repository/redisstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisUserStateRepository(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("Skipping integration test: REDIS_URL not set")
	}

	ctx := context.Background()
	rdb, err := redisstore.NewClient(ctx, redisstore.Config{URL: url, DialTimeout: 2 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	repo := redisstore.NewUserStateRepository(rdb, time.Minute)
	email := testEmail()
	t.Cleanup(func() { _ = repo.Delete(ctx, email) })

	st := entity.NewUserState(email)
	st.Topic = entity.TopicVariance
	st.Phase = entity.PhaseTeach
	st.MarkDiagnosed(entity.TopicVariance)
	require.NoError(t, repo.Save(ctx, &st, false))

	next := st.Clone()
	next.DiagnosedTopics = map[entity.TopicID]struct{}{}
	next.MarkDiagnosed(entity.TopicMode)
	require.NoError(t, repo.Save(ctx, &next, true))

	got, err := repo.Get(ctx, email)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entity.PhaseTeach, got.Phase)
	assert.True(t, got.IsDiagnosed(entity.TopicVariance))
	assert.True(t, got.IsDiagnosed(entity.TopicMode))

	require.NoError(t, repo.Delete(ctx, email))
	got, err = repo.Get(ctx, email)
	require.NoError(t, err)
	assert.Nil(t, got)
}
