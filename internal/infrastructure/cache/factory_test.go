package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sellerops/console/internal/infrastructure/config"
)

func TestCheckpointStoreFactory(t *testing.T) {
	t.Run("no redis configured", func(t *testing.T) {
		store, err := NewCheckpointStoreFactory(config.RedisConfig{}).CreateStore()
		require.NoError(t, err)
		assert.IsType(t, &InMemoryCheckpointStore{}, store)
	})

	t.Run("unreachable redis falls back", func(t *testing.T) {
		f := NewCheckpointStoreFactory(config.RedisConfig{Host: "127.0.0.1", Port: 1}, WithLogger(zap.NewNop()))
		store, err := f.CreateStore()
		require.NoError(t, err)
		assert.IsType(t, &InMemoryCheckpointStore{}, store)
	})

	t.Run("fallback disabled", func(t *testing.T) {
		f := NewCheckpointStoreFactory(config.RedisConfig{Host: "127.0.0.1", Port: 1}, WithInMemoryFallback(false))
		_, err := f.CreateStore()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "redis required")
	})
}
