package config

import (
	"testing"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	var cfg Config
	require.NoError(t, envconfig.Process("", &cfg))

	assert.Equal(t, "3000", cfg.App.Port)
	assert.Equal(t, 4, cfg.Retrieval.TopK)
	assert.Equal(t, 700*time.Millisecond, cfg.Retrieval.Deadline)
	assert.InDelta(t, 0.1, cfg.Retrieval.Threshold, 1e-9)
	assert.Equal(t, 500, cfg.Memory.PruneBatchSize)
	assert.Equal(t, 30*time.Minute, cfg.Cache.StateTTL)
	assert.True(t, cfg.Retrieval.Enabled)
}

func TestOverrides(t *testing.T) {
	t.Setenv("RETRIEVAL_DEADLINE", "250ms")
	t.Setenv("RETRIEVAL_TOP_K", "7")
	t.Setenv("STATE_BACKEND", "redis")
	t.Setenv("GO_ENV", "production")

	var cfg Config
	require.NoError(t, envconfig.Process("", &cfg))

	assert.Equal(t, 250*time.Millisecond, cfg.Retrieval.Deadline)
	assert.Equal(t, 7, cfg.Retrieval.TopK)
	assert.Equal(t, "redis", cfg.State.Backend)
	assert.True(t, cfg.App.IsProduction())
}
