package cache

import (
	"fmt"

	"github.com/sellerops/console/internal/application/ordersync"
	"github.com/sellerops/console/internal/infrastructure/config"
	"go.uber.org/zap"
)

// CheckpointStoreFactory creates checkpoint stores based on configuration
type CheckpointStoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// CheckpointStoreFactoryOption is a functional option for configuring the factory
type CheckpointStoreFactoryOption func(*CheckpointStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) CheckpointStoreFactoryOption {
	return func(f *CheckpointStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether to fall back to in-memory store when Redis is unavailable
// Default is true (allow fallback)
func WithInMemoryFallback(allow bool) CheckpointStoreFactoryOption {
	return func(f *CheckpointStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewCheckpointStoreFactory creates a new factory
func NewCheckpointStoreFactory(cfg config.RedisConfig, opts ...CheckpointStoreFactoryOption) *CheckpointStoreFactory {
	f := &CheckpointStoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore uses Redis when it is configured and reachable. Without a
// configured host the in-memory store is used silently; an unreachable
// server falls back with a warning unless fallback is disabled.
func (f *CheckpointStoreFactory) CreateStore() (ordersync.CheckpointStore, error) {
	if !f.redisConfig.Enabled() {
		f.logger.Info("Redis not configured, using in-memory checkpoint store")
		return NewInMemoryCheckpointStore(), nil
	}

	store, err := NewRedisCheckpointStore(RedisConfig{
		Host:     f.redisConfig.Host,
		Port:     f.redisConfig.Port,
		Password: f.redisConfig.Password,
		DB:       f.redisConfig.DB,
	})
	if err == nil {
		f.logger.Info("using Redis checkpoint store")
		return store, nil
	}
	if !f.allowInMemoryFallback {
		return nil, fmt.Errorf("redis required for sync checkpoints but unavailable: %w", err)
	}
	f.logger.Warn("Redis unavailable, falling back to in-memory checkpoint store. "+
		"Several instances may pull the same source concurrently.",
		zap.Error(err),
	)
	return NewInMemoryCheckpointStore(), nil
}
