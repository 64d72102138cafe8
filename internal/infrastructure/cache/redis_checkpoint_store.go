// Package cache keeps sync checkpoints and source locks, in Redis when one
// is configured and in process memory otherwise.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sellerops/console/internal/application/ordersync"
)

const defaultKeyPrefix = "sellerops:sync:"

// unlockScript deletes the lock only if it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisCheckpointStore implements ordersync.CheckpointStore using Redis.
// Several server instances sharing one Redis never pull the same source at
// the same time.
type RedisCheckpointStore struct {
	client    *redis.Client
	keyPrefix string
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewRedisCheckpointStore connects to Redis and checks the connection.
func NewRedisCheckpointStore(cfg RedisConfig) (*RedisCheckpointStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisCheckpointStoreWithClient(client, ""), nil
}

// NewRedisCheckpointStoreWithClient creates a store with an existing Redis client
func NewRedisCheckpointStoreWithClient(client *redis.Client, keyPrefix string) *RedisCheckpointStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisCheckpointStore{client: client, keyPrefix: keyPrefix}
}

func (s *RedisCheckpointStore) checkpointKey(source string) string {
	return s.keyPrefix + "checkpoint:" + source
}

func (s *RedisCheckpointStore) lockKey(source string) string {
	return s.keyPrefix + "lock:" + source
}

// Save stores cp as JSON under its source.
func (s *RedisCheckpointStore) Save(ctx context.Context, cp *ordersync.Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.checkpointKey(cp.Source), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Load returns the checkpoint of source, or nil if none was saved.
func (s *RedisCheckpointStore) Load(ctx context.Context, source string) (*ordersync.Checkpoint, error) {
	data, err := s.client.Get(ctx, s.checkpointKey(source)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	var cp ordersync.Checkpoint
	return &cp, json.Unmarshal(data, &cp)
}

// TryLock takes the source lock with SET NX and a TTL. release removes it
// only while it still holds this caller's token.
func (s *RedisCheckpointStore) TryLock(ctx context.Context, source string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	key := s.lockKey(source)
	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to take sync lock: %w", err)
	}
	if !ok {
		return func() {}, false, nil
	}
	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = unlockScript.Run(ctx, s.client, []string{key}, token).Err()
	}
	return release, true, nil
}

// Ping checks the Redis connection
func (s *RedisCheckpointStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (s *RedisCheckpointStore) Close() error {
	return s.client.Close()
}

// Ensure RedisCheckpointStore implements ordersync.CheckpointStore
var _ ordersync.CheckpointStore = (*RedisCheckpointStore)(nil)
