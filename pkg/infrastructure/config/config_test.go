package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.StoreDriver)
	assert.Equal(t, CostFIFO, cfg.CostMethod)
	assert.Equal(t, 5, cfg.TxMaxRetries)
	assert.Equal(t, 64, cfg.ExplosionMaxDepth)
	assert.Empty(t, cfg.RedisURL)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("STORE_DRIVER", "POSTGRES")
	t.Setenv("COST_METHOD", "weighted_average")
	t.Setenv("TX_MAX_RETRIES", "9")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, CostWeightedAverage, cfg.CostMethod)
	assert.Equal(t, 9, cfg.TxMaxRetries)
	assert.Equal(t, "redis://localhost:6379/1", cfg.RedisURL)
}

func TestLoad_RejectsUnknownValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"STORE_DRIVER", "sqlite"},
		{"COST_METHOD", "lifo"},
		{"EXPLOSION_MAX_DEPTH", "0"},
		{"TX_MAX_RETRIES", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
