package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// BusinessMetrics holds the counters the console reports about orders,
// inventory and marketplace traffic.
type BusinessMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	ordersSynced        *Counter
	orderTransitions    *Counter
	invariantViolations *Counter
	stockPushItems      *Counter
	pageFetchDuration   *Histogram
}

// BusinessMetricsConfig holds configuration for business metrics.
type BusinessMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewBusinessMetrics creates a new BusinessMetrics instance.
func NewBusinessMetrics(cfg BusinessMetricsConfig) (*BusinessMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	bm := &BusinessMetrics{
		meter:  cfg.Meter,
		logger: logger,
	}

	var err error
	bm.ordersSynced, err = NewCounter(cfg.Meter,
		"orders_synced_total",
		"Marketplace orders processed by sync, by outcome",
		"{orders}")
	if err != nil {
		return nil, err
	}

	bm.orderTransitions, err = NewCounter(cfg.Meter,
		"order_transitions_total",
		"Committed order status transitions",
		"{transitions}")
	if err != nil {
		return nil, err
	}

	bm.invariantViolations, err = NewCounter(cfg.Meter,
		"inventory_invariant_violations_total",
		"Transactions aborted because central stock did not match the shelf sum",
		"{violations}")
	if err != nil {
		return nil, err
	}

	bm.stockPushItems, err = NewCounter(cfg.Meter,
		"stock_push_items_total",
		"Stock items pushed to marketplaces, by outcome",
		"{items}")
	if err != nil {
		return nil, err
	}

	bm.pageFetchDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "marketplace_page_fetch_duration_seconds",
		Description: "Duration of one marketplace order page fetch, retries included",
		Unit:        "s",
		Boundaries:  LatencyBuckets,
	})
	if err != nil {
		return nil, err
	}

	return bm, nil
}

// SyncOutcome labels what sync did with one remote order.
type SyncOutcome string

const (
	SyncOutcomeInserted   SyncOutcome = "inserted"
	SyncOutcomeMigrated   SyncOutcome = "migrated"
	SyncOutcomeUpdated    SyncOutcome = "updated"
	SyncOutcomeUnchanged  SyncOutcome = "unchanged"
	SyncOutcomeSkipped    SyncOutcome = "skipped"
	SyncOutcomeDeduped    SyncOutcome = "deduped"
	SyncOutcomeArchived   SyncOutcome = "archived"
	SyncOutcomeFailed     SyncOutcome = "failed"
	SyncOutcomeBackground SyncOutcome = "background"
)

// RecordSyncOrders adds n orders of source with the given outcome.
func (bm *BusinessMetrics) RecordSyncOrders(ctx context.Context, source string, outcome SyncOutcome, n int) {
	if n <= 0 {
		return
	}
	bm.ordersSynced.Add(ctx, int64(n),
		AttrSource.String(source),
		AttrOutcome.String(string(outcome)),
	)
}

// RecordTransition counts one committed transition.
func (bm *BusinessMetrics) RecordTransition(ctx context.Context, from, to string) {
	bm.orderTransitions.Inc(ctx,
		AttrFromStatus.String(from),
		AttrToStatus.String(to),
	)
}

// RecordInvariantViolation counts one aborted inventory transaction.
func (bm *BusinessMetrics) RecordInvariantViolation(ctx context.Context) {
	bm.invariantViolations.Inc(ctx)
}

// RecordStockPush counts pushed items of one batch.
func (bm *BusinessMetrics) RecordStockPush(ctx context.Context, marketplace string, ok, failed int) {
	if ok > 0 {
		bm.stockPushItems.Add(ctx, int64(ok),
			AttrMarketplace.String(marketplace),
			AttrOutcome.String("ok"),
		)
	}
	if failed > 0 {
		bm.stockPushItems.Add(ctx, int64(failed),
			AttrMarketplace.String(marketplace),
			AttrOutcome.String("failed"),
		)
	}
}

// RecordPageFetch records the duration of one page fetch.
func (bm *BusinessMetrics) RecordPageFetch(ctx context.Context, source string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	bm.pageFetchDuration.RecordDuration(ctx, d,
		AttrSource.String(source),
		AttrOutcome.String(outcome),
	)
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewBusinessMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}

// Attribute keys used by the business counters.
var (
	AttrSource      = attribute.Key("source")
	AttrMarketplace = attribute.Key("marketplace")
	AttrOutcome     = attribute.Key("outcome")
	AttrFromStatus  = attribute.Key("from")
	AttrToStatus    = attribute.Key("to")
)
