package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DatabaseDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 100*time.Millisecond, cfg.Database.SlowQueryLimit)
}

func TestLoad_SlowQueryLimitFromEnv(t *testing.T) {
	t.Setenv("DB_SLOW_QUERY_LIMIT", "250ms")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.Database.SlowQueryLimit)
}
