package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sellerops/console/internal/application/ordersync"
)

// InMemoryCheckpointStore implements ordersync.CheckpointStore in process
// memory. Suitable for single-instance deployments and testing.
type InMemoryCheckpointStore struct {
	mu          sync.Mutex
	checkpoints map[string]ordersync.Checkpoint
	locks       map[string]time.Time
	now         func() time.Time
}

// NewInMemoryCheckpointStore creates a new in-memory checkpoint store
func NewInMemoryCheckpointStore() *InMemoryCheckpointStore {
	return &InMemoryCheckpointStore{
		checkpoints: make(map[string]ordersync.Checkpoint),
		locks:       make(map[string]time.Time),
		now:         time.Now,
	}
}

// Save stores a copy of cp.
func (s *InMemoryCheckpointStore) Save(ctx context.Context, cp *ordersync.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[cp.Source] = *cp
	return nil
}

// Load returns a copy of the checkpoint of source, or nil.
func (s *InMemoryCheckpointStore) Load(ctx context.Context, source string) (*ordersync.Checkpoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp, ok := s.checkpoints[source]
	if !ok {
		return nil, nil
	}
	return &cp, nil
}

// TryLock claims source until ttl elapses or release is called.
func (s *InMemoryCheckpointStore) TryLock(ctx context.Context, source string, ttl time.Duration) (func(), bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expires, held := s.locks[source]; held && now.Before(expires) {
		return func() {}, false, nil
	}
	expires := now.Add(ttl)
	s.locks[source] = expires

	var once sync.Once
	release := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.locks[source].Equal(expires) {
				delete(s.locks, source)
			}
		})
	}
	return release, true, nil
}

// Ensure InMemoryCheckpointStore implements ordersync.CheckpointStore
var _ ordersync.CheckpointStore = (*InMemoryCheckpointStore)(nil)
