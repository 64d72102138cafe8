package order_test

import (
	"context"
	"errors"
	"testing"
	"time"

	appbarcode "github.com/sellerops/console/internal/application/barcode"
	appinventory "github.com/sellerops/console/internal/application/inventory"
	apporder "github.com/sellerops/console/internal/application/order"
	"github.com/sellerops/console/internal/application/tx"
	"github.com/sellerops/console/internal/domain/barcode"
	"github.com/sellerops/console/internal/domain/inventory"
	"github.com/sellerops/console/internal/domain/order"
	"github.com/sellerops/console/internal/domain/shared"
	"github.com/sellerops/console/internal/infrastructure/persistence"
	"github.com/sellerops/console/internal/infrastructure/persistence/persistencetest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event order.TransitionEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type fixture struct {
	scope     *persistence.GormTransactionScope
	engine    *appinventory.Engine
	machine   *apporder.StateMachine
	publisher *MockPublisher
}

func newFixture(t *testing.T, cfg apporder.Config) *fixture {
	t.Helper()
	scope, _ := persistencetest.Scope(t)
	engine := appinventory.NewEngine(scope, appinventory.Config{}, zap.NewNop())
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Maybe()
	return &fixture{
		scope:     scope,
		engine:    engine,
		machine:   apporder.NewStateMachine(scope, engine, pub, cfg, zap.NewNop()),
		publisher: pub,
	}
}

func defaultConfig() apporder.Config {
	return apporder.Config{
		CancelPolicy: order.DefaultCancelPolicy(),
		Verification: order.VerifyPerPair,
	}
}

func (f *fixture) seed(t *testing.T, number string, status order.Status, lines ...order.Line) {
	t.Helper()
	o := &order.Order{
		OrderNumber: number,
		Marketplace: "trendyol",
		Status:      status,
		OrderDate:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		TotalAmount: decimal.NewFromInt(100),
		Currency:    "TRY",
	}
	require.NoError(t, o.SetDetails(order.Details(lines)))
	require.NoError(t, f.scope.Execute(context.Background(), func(repos tx.Repositories) error {
		return repos.Orders().Insert(context.Background(), o)
	}))
}

func (f *fixture) move(number string, to order.Status, scans ...string) (*order.Order, error) {
	return f.machine.Transition(context.Background(), order.TransitionRequest{
		OrderNumber: number,
		To:          to,
		Origin:      order.OriginOperator,
		Scans:       scans,
		Reason:      "test",
	})
}

func TestStateMachine_PickingConsumesStock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultConfig())

	_, err := f.engine.Add(ctx, "A1", "X", 5)
	require.NoError(t, err)
	f.seed(t, "1001", order.StatusReadyToShip, order.Line{Barcode: "X", Quantity: 2})

	moved, err := f.move("1001", order.StatusPicking, "x", "x", "x", "x")
	require.NoError(t, err)
	assert.Equal(t, order.StatusPicking, moved.Status)
	assert.True(t, moved.StockConsumed)
	assert.Equal(t, []inventory.Allocation{{ShelfCode: "A1", Barcode: "x", Qty: 2}}, moved.Allocations)
	require.NotNil(t, moved.PickingStartTime)

	central, err := f.engine.CentralOf(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, 3, central)

	got, err := f.machine.Get(ctx, "1001")
	require.NoError(t, err)
	assert.Equal(t, order.StatusPicking, got.Status)

	f.publisher.AssertCalled(t, "Publish", mock.Anything, mock.MatchedBy(func(e order.TransitionEvent) bool {
		return e.OrderNumber == "1001" && e.From == order.StatusReadyToShip && e.To == order.StatusPicking && e.EventID != ""
	}))
}

func TestStateMachine_InsufficientStockLeavesOrderInPlace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultConfig())

	_, err := f.engine.Add(ctx, "A1", "X", 1)
	require.NoError(t, err)
	f.seed(t, "1002", order.StatusReadyToShip, order.Line{Barcode: "X", Quantity: 2})

	_, err = f.move("1002", order.StatusPicking, "x", "x", "x", "x")
	require.Error(t, err)
	assert.True(t, errors.Is(err, inventory.ErrInsufficientStock))

	got, err := f.machine.Get(ctx, "1002")
	require.NoError(t, err)
	assert.Equal(t, order.StatusReadyToShip, got.Status)
	assert.False(t, got.StockConsumed)

	central, err := f.engine.CentralOf(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, 1, central)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestStateMachine_PickVerification(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultConfig())

	_, err := f.engine.Add(ctx, "A1", "X", 5)
	require.NoError(t, err)
	_, err = f.engine.Add(ctx, "A1", "Y", 5)
	require.NoError(t, err)
	f.seed(t, "1003", order.StatusReadyToShip,
		order.Line{Barcode: "X", Quantity: 1},
		order.Line{Barcode: "Y", Quantity: 1},
	)

	_, err = f.move("1003", order.StatusPicking, "x", "x", "y")
	require.Error(t, err)
	assert.True(t, errors.Is(err, order.ErrPickVerificationFailed))
	assert.Contains(t, err.Error(), "missing y x1")

	expected, err := f.machine.ExpectedScans(ctx, "1003")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"x": 2, "y": 2}, expected)

	moved, err := f.machine.PickVerify(ctx, "1003", []string{"x", "X", "y", "Y"})
	require.NoError(t, err)
	assert.Equal(t, order.StatusPicking, moved.Status)
}

func TestStateMachine_ScansResolveAliases(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultConfig())

	require.NoError(t, f.scope.Execute(ctx, func(repos tx.Repositories) error {
		a, err := barcode.NewAlias("old-x", "x")
		if err != nil {
			return err
		}
		return repos.Aliases().Save(ctx, a)
	}))
	_, err := f.engine.Add(ctx, "A1", "X", 2)
	require.NoError(t, err)
	f.seed(t, "1004", order.StatusReadyToShip, order.Line{Barcode: "OLD-X", Quantity: 1})

	moved, err := f.move("1004", order.StatusPicking, "old-x", "x")
	require.NoError(t, err)
	assert.Equal(t, []inventory.Allocation{{ShelfCode: "A1", Barcode: "x", Qty: 1}}, moved.Allocations)
}

func TestStateMachine_MarketplaceOriginSkipsVerification(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultConfig())

	_, err := f.engine.Add(ctx, "A1", "X", 1)
	require.NoError(t, err)
	f.seed(t, "1005", order.StatusReadyToShip, order.Line{Barcode: "X", Quantity: 1})

	_, err = f.machine.Transition(ctx, order.TransitionRequest{
		OrderNumber: "1005",
		To:          order.StatusPicking,
		Origin:      order.OriginMarketplace,
	})
	require.NoError(t, err)
}

func TestStateMachine_CancelRestoresToOriginalShelves(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultConfig())

	_, err := f.engine.Add(ctx, "A1", "X", 1)
	require.NoError(t, err)
	_, err = f.engine.Add(ctx, "A2", "X", 4)
	require.NoError(t, err)
	f.seed(t, "1006", order.StatusReadyToShip, order.Line{Barcode: "X", Quantity: 3})

	_, err = f.move("1006", order.StatusPicking, "x", "x", "x", "x", "x", "x")
	require.NoError(t, err)
	central, err := f.engine.CentralOf(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, 2, central)

	cancelled, err := f.move("1006", order.StatusCancelled)
	require.NoError(t, err)
	assert.False(t, cancelled.StockConsumed)
	assert.Empty(t, cancelled.Allocations)
	require.NotNil(t, cancelled.CancellationDate)
	assert.Equal(t, "test", cancelled.CancellationReason)

	view, err := f.engine.Stock(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, 5, view.Central)
	assert.ElementsMatch(t, []inventory.ShelfQty{
		{ShelfCode: "A1", Barcode: "x", Qty: 1},
		{ShelfCode: "A2", Barcode: "x", Qty: 4},
	}, view.Shelves)
}

func TestStateMachine_CancelAfterAliasMergeRestoresCanonical(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultConfig())
	aliases := appbarcode.NewAliasService(f.scope, f.engine, zap.NewNop())

	_, err := f.engine.Add(ctx, "B1", "alt", 5)
	require.NoError(t, err)
	f.seed(t, "1020", order.StatusReadyToShip, order.Line{Barcode: "alt", Quantity: 2})
	moved, err := f.move("1020", order.StatusPicking, "alt", "alt", "alt", "alt")
	require.NoError(t, err)
	assert.Equal(t, []inventory.Allocation{{ShelfCode: "B1", Barcode: "alt", Qty: 2}}, moved.Allocations)

	_, err = aliases.AddAlias(ctx, appbarcode.AddAliasRequest{Alias: "alt", Canonical: "can"})
	require.NoError(t, err)

	_, err = f.move("1020", order.StatusCancelled)
	require.NoError(t, err)

	view, err := f.engine.Stock(ctx, "can")
	require.NoError(t, err)
	assert.Equal(t, 5, view.Central)
	assert.Equal(t, []inventory.ShelfQty{{ShelfCode: "B1", Barcode: "can", Qty: 5}}, view.Shelves)

	require.NoError(t, f.scope.Execute(ctx, func(repos tx.Repositories) error {
		rows, err := repos.Stock().ShelfRows(ctx, "alt")
		require.NoError(t, err)
		assert.Empty(t, rows, "alias must not own shelf rows")
		_, err = repos.Stock().FindCentral(ctx, "alt")
		assert.ErrorIs(t, err, shared.ErrNotFound, "alias must not own a central row")
		return nil
	}))
}

func TestStateMachine_CancelAfterShippingFollowsPolicy(t *testing.T) {
	tests := []struct {
		name        string
		policy      order.CancelPolicy
		wantCentral int
	}{
		{name: "default keeps stock consumed", policy: order.DefaultCancelPolicy(), wantCentral: 0},
		{name: "restore after shipping", policy: order.CancelPolicy{RestoreFromPicking: true, RestoreFromShippedOrLater: true}, wantCentral: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			cfg := defaultConfig()
			cfg.CancelPolicy = tt.policy
			f := newFixture(t, cfg)

			_, err := f.engine.Add(ctx, "A1", "X", 2)
			require.NoError(t, err)
			f.seed(t, "1007", order.StatusReadyToShip, order.Line{Barcode: "X", Quantity: 2})

			_, err = f.move("1007", order.StatusPicking, "x", "x", "x", "x")
			require.NoError(t, err)
			_, err = f.move("1007", order.StatusShipped)
			require.NoError(t, err)
			_, err = f.move("1007", order.StatusCancelled)
			require.NoError(t, err)

			central, err := f.engine.CentralOf(ctx, "X")
			require.NoError(t, err)
			assert.Equal(t, tt.wantCentral, central)
		})
	}
}

func TestStateMachine_RestoreWithoutAllocationsUsesReturnShelf(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultConfig())

	o := &order.Order{
		OrderNumber:   "1008",
		Status:        order.StatusPicking,
		StockConsumed: true,
		OrderDate:     time.Now(),
	}
	require.NoError(t, o.SetDetails(order.Details{{Barcode: "X", Quantity: 2}}))
	require.NoError(t, f.scope.Execute(ctx, func(repos tx.Repositories) error {
		return repos.Orders().Insert(ctx, o)
	}))

	_, err := f.move("1008", order.StatusCancelled)
	require.NoError(t, err)

	view, err := f.engine.Stock(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, 2, view.Central)
	assert.Equal(t, []inventory.ShelfQty{{ShelfCode: f.engine.ReturnShelf(), Barcode: "x", Qty: 2}}, view.Shelves)
}

func TestStateMachine_IllegalTransitions(t *testing.T) {
	f := newFixture(t, defaultConfig())
	f.seed(t, "2001", order.StatusCreated, order.Line{Barcode: "X", Quantity: 1})
	f.seed(t, "2002", order.StatusDelivered, order.Line{Barcode: "X", Quantity: 1})

	tests := []struct {
		name   string
		number string
		to     order.Status
	}{
		{name: "created to picking is off by default", number: "2001", to: order.StatusPicking},
		{name: "created to shipped", number: "2001", to: order.StatusShipped},
		{name: "same status", number: "2001", to: order.StatusCreated},
		{name: "delivered to cancelled", number: "2002", to: order.StatusCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.move(tt.number, tt.to)
			require.Error(t, err)
			assert.True(t, errors.Is(err, order.ErrIllegalTransition))
		})
	}
}

func TestStateMachine_CreatedToPickingWhenAllowed(t *testing.T) {
	ctx := context.Background()
	cfg := defaultConfig()
	cfg.Rules.AllowPickingFromCreated = true
	cfg.Verification = order.VerifyOff
	f := newFixture(t, cfg)

	_, err := f.engine.Add(ctx, "A1", "X", 1)
	require.NoError(t, err)
	f.seed(t, "2003", order.StatusCreated, order.Line{Barcode: "X", Quantity: 1})

	moved, err := f.move("2003", order.StatusPicking)
	require.NoError(t, err)
	assert.True(t, moved.StockConsumed)
}

func TestStateMachine_ArchiveAndRestore(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultConfig())
	f.seed(t, "3001", order.StatusCreated, order.Line{Barcode: "X", Quantity: 1})

	_, err := f.machine.Transition(ctx, order.TransitionRequest{
		OrderNumber: "3001",
		To:          order.StatusArchive,
		Origin:      order.OriginOperator,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Archive reason is required")

	archived, err := f.move("3001", order.StatusArchive)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCreated, archived.PreArchiveStatus)
	assert.Equal(t, "test", archived.ArchiveReason)

	_, err = f.move("3001", order.StatusReadyToShip)
	assert.True(t, errors.Is(err, order.ErrIllegalTransition))

	restored, err := f.move("3001", order.StatusCreated)
	require.NoError(t, err)
	assert.Equal(t, order.StatusCreated, restored.Status)
	assert.Nil(t, restored.ArchiveDate)
	assert.Empty(t, restored.PreArchiveStatus)
}

func TestStateMachine_RestoreToOriginalStatus(t *testing.T) {
	cfg := defaultConfig()
	cfg.Rules.RestoreToOriginalStatus = true
	f := newFixture(t, cfg)
	f.seed(t, "3002", order.StatusDelivered, order.Line{Barcode: "X", Quantity: 1})

	_, err := f.move("3002", order.StatusArchive)
	require.NoError(t, err)

	_, err = f.move("3002", order.StatusCancelled)
	assert.True(t, errors.Is(err, order.ErrIllegalTransition))

	restored, err := f.move("3002", order.StatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, order.StatusDelivered, restored.Status)
}

func TestStateMachine_NotFoundAndConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultConfig())

	_, err := f.move("missing", order.StatusCancelled)
	assert.True(t, errors.Is(err, shared.ErrOrderNotFound))

	f.seed(t, "4001", order.StatusCreated, order.Line{Barcode: "X", Quantity: 1})
	f.seed(t, "4001", order.StatusCancelled, order.Line{Barcode: "X", Quantity: 1})

	_, err = f.move("4001", order.StatusArchive)
	assert.True(t, errors.Is(err, order.ErrOrderLocationConflict))

	_, err = f.machine.Get(ctx, "4001")
	assert.True(t, errors.Is(err, order.ErrOrderLocationConflict))
}

func TestStateMachine_PublishFailureDoesNotUndoMigration(t *testing.T) {
	ctx := context.Background()
	scope, _ := persistencetest.Scope(t)
	engine := appinventory.NewEngine(scope, appinventory.Config{}, zap.NewNop())
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()
	machine := apporder.NewStateMachine(scope, engine, pub, defaultConfig(), zap.NewNop())

	o := &order.Order{OrderNumber: "5001", Status: order.StatusCreated, OrderDate: time.Now()}
	require.NoError(t, o.SetDetails(order.Details{{Barcode: "X", Quantity: 1}}))
	require.NoError(t, scope.Execute(ctx, func(repos tx.Repositories) error {
		return repos.Orders().Insert(ctx, o)
	}))

	moved, err := machine.Transition(ctx, order.TransitionRequest{
		OrderNumber: "5001",
		To:          order.StatusCancelled,
		Origin:      order.OriginOperator,
	})
	require.NoError(t, err)
	assert.Equal(t, order.StatusCancelled, moved.Status)
	pub.AssertExpectations(t)
}

func TestStateMachine_InsertInPickingConsumes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultConfig())
	_, err := f.engine.Add(ctx, "A1", "X", 3)
	require.NoError(t, err)

	o := &order.Order{OrderNumber: "6001", Status: order.StatusPicking, OrderDate: time.Now()}
	require.NoError(t, o.SetDetails(order.Details{{Barcode: "X", Quantity: 2}}))
	require.NoError(t, f.scope.Execute(ctx, func(repos tx.Repositories) error {
		return f.machine.InsertIn(ctx, repos, o)
	}))

	central, err := f.engine.CentralOf(ctx, "X")
	require.NoError(t, err)
	assert.Equal(t, 1, central)

	err = f.scope.Execute(ctx, func(repos tx.Repositories) error {
		dup := &order.Order{OrderNumber: "6001", Status: order.StatusCreated, OrderDate: time.Now()}
		return f.machine.InsertIn(ctx, repos, dup)
	})
	assert.True(t, errors.Is(err, order.ErrOrderLocationConflict))
}

func TestStateMachine_List(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultConfig())
	f.seed(t, "7001", order.StatusCreated)
	f.seed(t, "7002", order.StatusCreated)

	orders, total, err := f.machine.List(ctx, order.StatusCreated, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, orders, 1)
}

func TestStateMachine_PickVerifyScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, defaultConfig())

	_, err := f.engine.Add(ctx, "A1", "x", 5)
	require.NoError(t, err)
	_, err = f.engine.Add(ctx, "A1", "y", 5)
	require.NoError(t, err)
	f.seed(t, "O-1", order.StatusReadyToShip,
		order.Line{Barcode: "x", Quantity: 2},
		order.Line{Barcode: "y", Quantity: 1},
	)

	_, err = f.machine.PickVerify(ctx, "O-1", []string{"x", "x", "x", "x", "y"})
	assert.True(t, errors.Is(err, order.ErrPickVerificationFailed))
	x, err := f.engine.CentralOf(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, 5, x)

	_, err = f.machine.PickVerify(ctx, "O-1", []string{"x", "x", "x", "x", "y", "y"})
	require.NoError(t, err)
	x, err = f.engine.CentralOf(ctx, "x")
	require.NoError(t, err)
	y, err := f.engine.CentralOf(ctx, "y")
	require.NoError(t, err)
	assert.Equal(t, 3, x)
	assert.Equal(t, 4, y)
}
