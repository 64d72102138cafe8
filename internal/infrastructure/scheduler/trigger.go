package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sellerops/console/internal/domain/marketplace"
	"go.uber.org/zap"
)

// TriggerConfig holds the periodic schedule
type TriggerConfig struct {
	// SyncInterval is how often every sync source is pulled
	SyncInterval time.Duration
	// PushInterval is how often stock is pushed to every marketplace
	PushInterval time.Duration
	// SyncSources are pulled, in order, on every sync tick
	SyncSources []marketplace.Marketplace
	// PushTargets receive stock pushes
	PushTargets []marketplace.Marketplace
	// MaxRetries is the retry budget of each submitted job
	MaxRetries int
}

// Trigger submits sync and stock push jobs on their intervals
type Trigger struct {
	config    TriggerConfig
	scheduler *Scheduler
	logger    *zap.Logger

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewTrigger creates a new trigger
func NewTrigger(config TriggerConfig, scheduler *Scheduler, logger *zap.Logger) *Trigger {
	return &Trigger{config: config, scheduler: scheduler, logger: logger}
}

// Start starts the tick loops. Both fire once immediately.
func (t *Trigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	if t.config.SyncInterval > 0 && len(t.config.SyncSources) > 0 {
		t.wg.Add(1)
		go t.runLoop(ctx, t.config.SyncInterval, JobKindSync, t.config.SyncSources)
	}
	if t.config.PushInterval > 0 && len(t.config.PushTargets) > 0 {
		t.wg.Add(1)
		go t.runLoop(ctx, t.config.PushInterval, JobKindStockPush, t.config.PushTargets)
	}

	t.logger.Info("Scheduler trigger started",
		zap.Duration("sync_interval", t.config.SyncInterval),
		zap.Duration("push_interval", t.config.PushInterval),
		zap.Int("sync_sources", len(t.config.SyncSources)),
		zap.Int("push_targets", len(t.config.PushTargets)),
	)
	return nil
}

// Stop stops the tick loops
func (t *Trigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		t.logger.Info("Scheduler trigger stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Trigger) runLoop(ctx context.Context, interval time.Duration, kind JobKind, targets []marketplace.Marketplace) {
	defer t.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	t.submitAll(kind, targets)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.submitAll(kind, targets)
		}
	}
}

// submitAll queues one job per target. Targets whose previous job is still
// pending, running or waiting for a retry are left alone.
func (t *Trigger) submitAll(kind JobKind, targets []marketplace.Marketplace) {
	for _, m := range targets {
		err := t.scheduler.Submit(NewJob(kind, m, t.config.MaxRetries))
		switch {
		case err == nil:
		case errors.Is(err, ErrJobInFlight):
			t.logger.Debug("Previous job still in flight",
				zap.String("kind", string(kind)),
				zap.String("marketplace", string(m)),
			)
		default:
			t.logger.Warn("Failed to submit job",
				zap.String("kind", string(kind)),
				zap.String("marketplace", string(m)),
				zap.Error(err),
			)
		}
	}
}
