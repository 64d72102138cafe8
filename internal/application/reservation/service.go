// Package reservation derives reserved and available quantities from open
// orders and central stock, and pushes availability to marketplaces.
package reservation

import (
	"context"
	"sort"

	"github.com/sellerops/console/internal/application/tx"
	"github.com/sellerops/console/internal/domain/barcode"
	"github.com/sellerops/console/internal/domain/marketplace"
	"github.com/sellerops/console/internal/domain/order"
	"github.com/sellerops/console/internal/infrastructure/logger"
	"github.com/sellerops/console/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// DefaultBatchSize bounds one stock push request.
const DefaultBatchSize = 100

// Snapshot is the stock position of one barcode.
type Snapshot struct {
	Barcode   string `json:"barcode"`
	Central   int    `json:"central"`
	Reserved  int    `json:"reserved"`
	Available int    `json:"available"`
}

// ItemOutcome is the push verdict for one barcode.
type ItemOutcome struct {
	Barcode      string `json:"barcode"`
	AvailableQty int    `json:"availableQty"`
	OK           bool   `json:"ok"`
	Error        string `json:"error,omitempty"`
}

// PushResult aggregates one stock push.
type PushResult struct {
	Marketplace  string        `json:"marketplace"`
	Items        []ItemOutcome `json:"items"`
	SuccessCount int           `json:"success_count"`
	FailedCount  int           `json:"failed_count"`
}

// Service answers reservation queries.
type Service struct {
	scope           tx.Scope
	batchSize       int
	logger          *zap.Logger
	businessMetrics *telemetry.BusinessMetrics
}

// NewService creates a new reservation Service.
func NewService(scope tx.Scope, batchSize int, log *zap.Logger) *Service {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{scope: scope, batchSize: batchSize, logger: log}
}

// SetBusinessMetrics sets the business metrics collector
func (s *Service) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// Reserved sums the open-order quantities of code.
func (s *Service) Reserved(ctx context.Context, code string) (int, error) {
	snap, err := s.Snapshot(ctx, code)
	if err != nil {
		return 0, err
	}
	return snap.Reserved, nil
}

// Available is central stock minus reserved, never below zero.
func (s *Service) Available(ctx context.Context, code string) (int, error) {
	snap, err := s.Snapshot(ctx, code)
	if err != nil {
		return 0, err
	}
	return snap.Available, nil
}

// Snapshot reads central, reserved and available of code in one transaction.
func (s *Service) Snapshot(ctx context.Context, code string) (*Snapshot, error) {
	if _, err := barcode.Require(code); err != nil {
		return nil, err
	}
	var snap *Snapshot
	err := s.scope.Execute(ctx, func(repos tx.Repositories) error {
		resolver, err := barcode.NewResolver(ctx, repos.Aliases())
		if err != nil {
			return err
		}
		b := resolver.Resolve(code)
		snaps, err := s.snapshotsIn(ctx, repos, resolver, []string{b})
		if err != nil {
			return err
		}
		snap = &snaps[0]
		return nil
	})
	return snap, err
}

// PushPayload lists the availability of every product listed on m, one
// entry per canonical barcode, sorted by barcode.
func (s *Service) PushPayload(ctx context.Context, m marketplace.Marketplace) ([]marketplace.StockItem, error) {
	var items []marketplace.StockItem
	err := s.scope.Execute(ctx, func(repos tx.Repositories) error {
		products, err := repos.Products().ListByMarketplace(ctx, string(m))
		if err != nil {
			return err
		}
		resolver, err := barcode.NewResolver(ctx, repos.Aliases())
		if err != nil {
			return err
		}
		codes := make([]string, 0, len(products))
		for _, p := range products {
			codes = append(codes, resolver.Resolve(p.Barcode))
		}
		snaps, err := s.snapshotsIn(ctx, repos, resolver, codes)
		if err != nil {
			return err
		}
		items = make([]marketplace.StockItem, 0, len(snaps))
		for _, snap := range snaps {
			items = append(items, marketplace.StockItem{Barcode: snap.Barcode, AvailableQty: snap.Available})
		}
		return nil
	})
	return items, err
}

// PushStock posts the payload for pusher's marketplace in batches. A failed
// batch marks each of its items failed; the next tick retries them.
func (s *Service) PushStock(ctx context.Context, pusher marketplace.StockPusher) (*PushResult, error) {
	m := pusher.Marketplace()
	ctx, span := telemetry.StartServiceSpan(ctx, "reservation", "push_stock",
		telemetry.WithAttribute(telemetry.SpanAttrMarketplace, string(m)))
	defer span.End()
	log := logger.Enrich(ctx, s.logger)

	items, err := s.PushPayload(ctx, m)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &PushResult{Marketplace: string(m), Items: make([]ItemOutcome, 0, len(items))}
	for start := 0; start < len(items); start += s.batchSize {
		batch := items[start:min(start+s.batchSize, len(items))]
		verdicts, err := pusher.PushStock(ctx, batch)
		if err != nil && ctx.Err() != nil {
			telemetry.RecordError(span, err)
			return result, ctx.Err()
		}
		failures := make(map[string]error, len(verdicts))
		for _, v := range verdicts {
			if v.Err != nil {
				failures[barcode.Normalize(v.Barcode)] = v.Err
			}
		}
		for _, item := range batch {
			outcome := ItemOutcome{Barcode: item.Barcode, AvailableQty: item.AvailableQty, OK: true}
			itemErr := err
			if itemErr == nil {
				itemErr = failures[item.Barcode]
			}
			if itemErr != nil {
				outcome.OK = false
				outcome.Error = itemErr.Error()
				result.FailedCount++
				log.Warn("Stock push failed for barcode",
					zap.String("marketplace", string(m)),
					zap.String("barcode", item.Barcode),
					zap.Int("available", item.AvailableQty),
					zap.Error(itemErr))
			} else {
				result.SuccessCount++
			}
			result.Items = append(result.Items, outcome)
		}
	}

	if s.businessMetrics != nil {
		s.businessMetrics.RecordStockPush(ctx, string(m), result.SuccessCount, result.FailedCount)
	}
	log.Info("Stock push completed",
		zap.String("marketplace", string(m)),
		zap.Int("items", len(result.Items)),
		zap.Int("success_count", result.SuccessCount),
		zap.Int("failed_count", result.FailedCount))
	return result, nil
}

// snapshotsIn computes snapshots for canonical codes, deduplicated and
// sorted, from one pass over the open orders.
func (s *Service) snapshotsIn(ctx context.Context, repos tx.Repositories, resolver barcode.Resolver, codes []string) ([]Snapshot, error) {
	wanted := make(map[string]bool, len(codes))
	unique := make([]string, 0, len(codes))
	for _, c := range codes {
		if c == "" || wanted[c] {
			continue
		}
		wanted[c] = true
		unique = append(unique, c)
	}
	sort.Strings(unique)

	reserved, err := s.reservedIn(ctx, repos, resolver, wanted)
	if err != nil {
		return nil, err
	}
	centrals, err := repos.Stock().FindCentrals(ctx, unique)
	if err != nil {
		return nil, err
	}
	out := make([]Snapshot, 0, len(unique))
	for _, b := range unique {
		snap := Snapshot{Barcode: b, Central: centrals[b], Reserved: reserved[b]}
		snap.Available = max(0, snap.Central-snap.Reserved)
		out = append(out, snap)
	}
	return out, nil
}

func (s *Service) reservedIn(ctx context.Context, repos tx.Repositories, resolver barcode.Resolver, wanted map[string]bool) (map[string]int, error) {
	raws, err := repos.Orders().ListDetails(ctx, order.OpenStatuses)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, len(wanted))
	for _, raw := range raws {
		details, err := order.ParseDetails(raw)
		if err != nil {
			logger.Enrich(ctx, s.logger).Warn("Skipping unreadable order details", zap.Error(err))
			continue
		}
		for _, l := range details.StockLines(resolver.Resolve) {
			if wanted[l.Barcode] {
				out[l.Barcode] += l.Qty
			}
		}
	}
	return out, nil
}
