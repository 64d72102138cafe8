// Package order drives orders through the status tables and couples the
// Picking and cancellation boundaries to the inventory engine.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	appinventory "github.com/sellerops/console/internal/application/inventory"
	"github.com/sellerops/console/internal/application/tx"
	"github.com/sellerops/console/internal/domain/barcode"
	"github.com/sellerops/console/internal/domain/inventory"
	"github.com/sellerops/console/internal/domain/order"
	"github.com/sellerops/console/internal/domain/shared"
	"github.com/sellerops/console/internal/infrastructure/logger"
	"github.com/sellerops/console/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Config carries the configurable transition policy.
type Config struct {
	Rules        order.Rules
	CancelPolicy order.CancelPolicy
	Verification order.VerificationMode
}

// StateMachine performs row migrations between status tables.
type StateMachine struct {
	scope           tx.Scope
	engine          *appinventory.Engine
	publisher       order.EventPublisher
	cfg             Config
	logger          *zap.Logger
	businessMetrics *telemetry.BusinessMetrics
	now             func() time.Time
}

// NewStateMachine creates a new StateMachine. A nil publisher drops events.
func NewStateMachine(scope tx.Scope, engine *appinventory.Engine, publisher order.EventPublisher, cfg Config, log *zap.Logger) *StateMachine {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Verification == "" {
		cfg.Verification = order.VerifyPerPair
	}
	return &StateMachine{
		scope:     scope,
		engine:    engine,
		publisher: publisher,
		cfg:       cfg,
		logger:    log,
		now:       time.Now,
	}
}

// SetBusinessMetrics sets the business metrics collector
func (m *StateMachine) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	m.businessMetrics = bm
}

// Transition moves one order and publishes the transition after commit.
func (m *StateMachine) Transition(ctx context.Context, req order.TransitionRequest) (*order.Order, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "order", "transition",
		telemetry.WithAttribute(telemetry.SpanAttrOrderNumber, req.OrderNumber),
		telemetry.WithAttribute(telemetry.SpanAttrToStatus, req.To.String()))
	defer span.End()

	var (
		moved *order.Order
		from  order.Status
	)
	err := m.scope.Execute(ctx, func(repos tx.Repositories) error {
		var err error
		moved, from, err = m.TransitionIn(ctx, repos, req)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		logger.Enrich(ctx, m.logger).Warn("Order transition rejected",
			zap.String("order_number", req.OrderNumber),
			zap.String("to", req.To.String()),
			zap.String("origin", string(req.Origin)),
			zap.Error(err))
		return nil, err
	}
	m.Committed(ctx, moved, from, req)
	return moved, nil
}

// Committed records a migration that has been committed: metrics, the
// transition log line and the outbound event. Publish failures are logged
// and never undo the migration.
func (m *StateMachine) Committed(ctx context.Context, o *order.Order, from order.Status, req order.TransitionRequest) {
	if m.businessMetrics != nil {
		m.businessMetrics.RecordTransition(ctx, from.String(), o.Status.String())
	}
	logger.Enrich(ctx, m.logger).Info("Order transitioned",
		zap.String("order_number", o.OrderNumber),
		zap.String("from", from.String()),
		zap.String("to", o.Status.String()),
		zap.String("origin", string(req.Origin)),
		zap.Bool("stock_consumed", o.StockConsumed))

	if m.publisher == nil {
		return
	}
	details, _ := o.Details()
	event := order.TransitionEvent{
		EventID:     uuid.NewString(),
		OrderNumber: o.OrderNumber,
		Marketplace: o.Marketplace,
		From:        from,
		To:          o.Status,
		Reason:      req.Reason,
		Origin:      req.Origin,
		At:          o.UpdatedAt,
		Details:     details,
	}
	if err := m.publisher.Publish(ctx, event); err != nil {
		logger.Enrich(ctx, m.logger).Error("Failed to publish order transition",
			zap.String("order_number", o.OrderNumber),
			zap.String("event_id", event.EventID),
			zap.Error(err))
	}
}

// TransitionIn migrates the order within an open transaction and returns
// the moved order with the status it left.
func (m *StateMachine) TransitionIn(ctx context.Context, repos tx.Repositories, req order.TransitionRequest) (*order.Order, order.Status, error) {
	if req.OrderNumber == "" {
		return nil, "", order.ErrInvalidOrder.WithDetails("order number is required")
	}
	if !req.To.IsValid() {
		return nil, "", order.ErrInvalidOrder.WithDetails("unknown status %q", req.To)
	}
	orders := repos.Orders()

	from, err := m.locateOne(ctx, orders, req.OrderNumber)
	if err != nil {
		return nil, "", err
	}
	o, err := orders.FindForUpdate(ctx, from, req.OrderNumber)
	if err != nil {
		if errors.Is(err, shared.ErrOrderNotFound) {
			return nil, "", order.LocationConflict(req.OrderNumber, "row left %s while migrating", from)
		}
		return nil, "", err
	}

	if from == order.StatusArchive {
		if !order.CanRestoreTo(o.PreArchiveStatus, req.To, m.cfg.Rules) {
			return nil, "", order.IllegalTransition(from, req.To)
		}
	} else if !from.CanTransitionTo(req.To, m.cfg.Rules) {
		return nil, "", order.IllegalTransition(from, req.To)
	}
	if req.To == order.StatusArchive && req.Reason == "" {
		return nil, "", order.ErrArchiveReasonRequired
	}

	details, err := o.Details()
	if err != nil {
		return nil, "", err
	}
	resolver, err := barcode.NewResolver(ctx, repos.Aliases())
	if err != nil {
		return nil, "", err
	}

	if req.To == order.StatusPicking && req.Origin == order.OriginOperator {
		expected := order.ExpectedScans(details, m.cfg.Verification, resolver.Resolve)
		if m.cfg.Verification != order.VerifyOff {
			if err := order.VerifyScans(expected, canonicalScans(req.Scans, resolver)); err != nil {
				return nil, "", err
			}
		}
	}

	switch {
	case req.To == order.StatusPicking:
		if err := m.consume(ctx, repos, o, details, resolver); err != nil {
			return nil, "", err
		}
	case m.cfg.CancelPolicy.ShouldRestore(from, req.To) && o.StockConsumed:
		if err := m.restore(ctx, repos, o, details, resolver); err != nil {
			return nil, "", err
		}
	case from == order.StatusArchive && req.To == order.StatusCreated:
		o.StockConsumed = false
		o.Allocations = nil
	}

	o.Stamp(req.To, req.Reason, m.now())
	if err := orders.Delete(ctx, from, o.OrderNumber); err != nil {
		return nil, "", err
	}
	if err := orders.Insert(ctx, o); err != nil {
		return nil, "", err
	}
	return o, from, nil
}

// InsertIn stores a new order in o.Status. Entering Picking directly
// consumes stock the same way a transition does.
func (m *StateMachine) InsertIn(ctx context.Context, repos tx.Repositories, o *order.Order) error {
	if !o.Status.IsValid() || o.Status == order.StatusArchive {
		return order.ErrInvalidOrder.WithDetails("cannot insert into %q", o.Status)
	}
	statuses, err := repos.Orders().Locate(ctx, o.OrderNumber)
	if err != nil {
		return err
	}
	if len(statuses) > 0 {
		return order.LocationConflict(o.OrderNumber, "already present in %s", statuses[0])
	}
	if o.Status == order.StatusPicking {
		details, err := o.Details()
		if err != nil {
			return err
		}
		resolver, err := barcode.NewResolver(ctx, repos.Aliases())
		if err != nil {
			return err
		}
		if err := m.consume(ctx, repos, o, details, resolver); err != nil {
			return err
		}
		now := m.now()
		o.PickingStartTime = &now
	}
	return repos.Orders().Insert(ctx, o)
}

// PickVerify checks the operator's scans and, when they match, moves the
// order into Picking. A mismatch leaves the order and inventory untouched.
func (m *StateMachine) PickVerify(ctx context.Context, orderNumber string, scans []string) (*order.Order, error) {
	return m.Transition(ctx, order.TransitionRequest{
		OrderNumber: orderNumber,
		To:          order.StatusPicking,
		Origin:      order.OriginOperator,
		Scans:       scans,
	})
}

// ExpectedScans returns the canonical barcode multiset an operator has to
// scan before picking the order.
func (m *StateMachine) ExpectedScans(ctx context.Context, orderNumber string) (map[string]int, error) {
	var expected map[string]int
	err := m.scope.Execute(ctx, func(repos tx.Repositories) error {
		status, err := m.locateOne(ctx, repos.Orders(), orderNumber)
		if err != nil {
			return err
		}
		o, err := repos.Orders().Find(ctx, status, orderNumber)
		if err != nil {
			return err
		}
		details, err := o.Details()
		if err != nil {
			return err
		}
		resolver, err := barcode.NewResolver(ctx, repos.Aliases())
		if err != nil {
			return err
		}
		expected = order.ExpectedScans(details, m.cfg.Verification, resolver.Resolve)
		return nil
	})
	return expected, err
}

// Get returns the order wherever it lives.
func (m *StateMachine) Get(ctx context.Context, orderNumber string) (*order.Order, error) {
	var out *order.Order
	err := m.scope.Execute(ctx, func(repos tx.Repositories) error {
		status, err := m.locateOne(ctx, repos.Orders(), orderNumber)
		if err != nil {
			return err
		}
		out, err = repos.Orders().Find(ctx, status, orderNumber)
		return err
	})
	return out, err
}

// List pages through the orders in one status table.
func (m *StateMachine) List(ctx context.Context, status order.Status, limit, offset int) ([]order.Order, int64, error) {
	var (
		out   []order.Order
		total int64
	)
	err := m.scope.Execute(ctx, func(repos tx.Repositories) error {
		var err error
		out, total, err = repos.Orders().List(ctx, status, limit, offset)
		return err
	})
	return out, total, err
}

func (m *StateMachine) locateOne(ctx context.Context, orders order.Repository, orderNumber string) (order.Status, error) {
	statuses, err := orders.Locate(ctx, orderNumber)
	if err != nil {
		return "", err
	}
	switch len(statuses) {
	case 0:
		return "", shared.ErrOrderNotFound.WithDetails("order %s", orderNumber)
	case 1:
		return statuses[0], nil
	}
	return "", order.LocationConflict(orderNumber, "present in %v", statuses)
}

func (m *StateMachine) consume(ctx context.Context, repos tx.Repositories, o *order.Order, details order.Details, resolver barcode.Resolver) error {
	if o.StockConsumed {
		return nil
	}
	lines := details.StockLines(resolver.Resolve)
	allocs, err := m.engine.ConsumeIn(ctx, repos, lines)
	if err != nil {
		return err
	}
	o.Allocations = allocs
	o.StockConsumed = true
	return nil
}

// restore adds consumed stock back to the shelves it came from. Orders
// without an allocation record give their lines back to the return shelf.
func (m *StateMachine) restore(ctx context.Context, repos tx.Repositories, o *order.Order, details order.Details, resolver barcode.Resolver) error {
	allocs := o.Allocations
	if len(allocs) == 0 {
		for _, l := range details.StockLines(resolver.Resolve) {
			allocs = append(allocs, inventory.Allocation{
				ShelfCode: m.engine.ReturnShelf(),
				Barcode:   l.Barcode,
				Qty:       l.Qty,
			})
		}
	}
	if err := m.engine.AddIn(ctx, repos, allocs); err != nil {
		return err
	}
	o.StockConsumed = false
	o.Allocations = nil
	return nil
}

func canonicalScans(scans []string, resolver barcode.Resolver) []string {
	out := make([]string, 0, len(scans))
	for _, s := range scans {
		out = append(out, resolver.Resolve(s))
	}
	return out
}
