package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sellerops/console/internal/application/ordersync"
	"github.com/sellerops/console/internal/application/reservation"
	"github.com/sellerops/console/internal/domain/marketplace"
	"go.uber.org/zap"
)

// Executor runs one job. A nil error with job.Status left running means
// success; the scheduler records it.
type Executor interface {
	Execute(ctx context.Context, job *Job) error
}

// Puller pulls one source.
type Puller interface {
	Pull(ctx context.Context, src marketplace.OrderSource, window marketplace.Window) (*ordersync.PullReport, error)
}

// StockPusher pushes availability to one marketplace.
type StockPusher interface {
	PushStock(ctx context.Context, pusher marketplace.StockPusher) (*reservation.PushResult, error)
}

// Adapters resolves marketplace adapters.
type Adapters interface {
	Source(m marketplace.Marketplace) (marketplace.OrderSource, error)
	Pusher(m marketplace.Marketplace) (marketplace.StockPusher, error)
}

// MarketplaceExecutor runs sync and stock push jobs. Sync jobs run one
// source at a time within the process; the checkpoint store lock extends
// that across processes.
type MarketplaceExecutor struct {
	adapters    Adapters
	puller      Puller
	pusher      StockPusher
	checkpoints ordersync.CheckpointStore
	lockTTL     time.Duration
	logger      *zap.Logger

	syncMu sync.Mutex
	now    func() time.Time
}

// NewMarketplaceExecutor creates a new executor. lockTTL bounds how long a
// crashed process can hold a source.
func NewMarketplaceExecutor(
	adapters Adapters,
	puller Puller,
	pusher StockPusher,
	checkpoints ordersync.CheckpointStore,
	lockTTL time.Duration,
	logger *zap.Logger,
) *MarketplaceExecutor {
	return &MarketplaceExecutor{
		adapters:    adapters,
		puller:      puller,
		pusher:      pusher,
		checkpoints: checkpoints,
		lockTTL:     lockTTL,
		logger:      logger,
		now:         time.Now,
	}
}

// Execute dispatches on job.Kind.
func (e *MarketplaceExecutor) Execute(ctx context.Context, job *Job) error {
	switch job.Kind {
	case JobKindSync:
		return e.sync(ctx, job)
	case JobKindStockPush:
		return e.push(ctx, job)
	}
	return fmt.Errorf("%w: %s", ErrUnknownJobKind, job.Kind)
}

func (e *MarketplaceExecutor) sync(ctx context.Context, job *Job) error {
	source := string(job.Marketplace)
	src, err := e.adapters.Source(job.Marketplace)
	if err != nil {
		return err
	}

	e.syncMu.Lock()
	defer e.syncMu.Unlock()

	release, ok, err := e.checkpoints.TryLock(ctx, source, e.lockTTL)
	if err != nil {
		return err
	}
	if !ok {
		job.Skip("source locked by another instance")
		return nil
	}
	defer release()

	report, pullErr := e.puller.Pull(ctx, src, marketplace.Window{})

	prev, err := e.checkpoints.Load(ctx, source)
	if err != nil {
		e.logger.Warn("Failed to load sync checkpoint", zap.String("source", source), zap.Error(err))
	}
	cp := ordersync.NewCheckpoint(prev, source, report, pullErr, e.now())
	if err := e.checkpoints.Save(ctx, cp); err != nil {
		e.logger.Warn("Failed to save sync checkpoint", zap.String("source", source), zap.Error(err))
	}

	if pullErr != nil {
		return pullErr
	}
	job.Complete(report.Partial(), fmt.Sprintf("inserted=%d migrated=%d updated=%d failed=%d",
		report.Inserted, report.Migrated, report.Updated, report.Failed))
	return nil
}

func (e *MarketplaceExecutor) push(ctx context.Context, job *Job) error {
	pusher, err := e.adapters.Pusher(job.Marketplace)
	if err != nil {
		return err
	}
	result, err := e.pusher.PushStock(ctx, pusher)
	if err != nil {
		return err
	}
	job.Complete(result.FailedCount > 0, fmt.Sprintf("success=%d failed=%d", result.SuccessCount, result.FailedCount))
	return nil
}

// Ensure MarketplaceExecutor implements Executor
var _ Executor = (*MarketplaceExecutor)(nil)
