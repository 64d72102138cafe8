package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	appbarcode "github.com/sellerops/console/internal/application/barcode"
	appcatalog "github.com/sellerops/console/internal/application/catalog"
	appinventory "github.com/sellerops/console/internal/application/inventory"
	apporder "github.com/sellerops/console/internal/application/order"
	"github.com/sellerops/console/internal/application/ordersync"
	"github.com/sellerops/console/internal/application/reservation"
	"github.com/sellerops/console/internal/application/tx"
	"github.com/sellerops/console/internal/domain/marketplace"
	"github.com/sellerops/console/internal/domain/order"
	"github.com/sellerops/console/internal/domain/shared"
	"github.com/sellerops/console/internal/infrastructure/auth"
	"github.com/sellerops/console/internal/infrastructure/config"
	"github.com/sellerops/console/internal/infrastructure/persistence"
	"github.com/sellerops/console/internal/infrastructure/persistence/persistencetest"
	"github.com/sellerops/console/internal/interfaces/cli"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Test Helpers
// ---------------------------------------------------------------------------

type fakeMarketplace struct {
	m      marketplace.Marketplace
	orders []marketplace.RemoteOrder
	pushed []marketplace.StockItem
}

func (f *fakeMarketplace) Marketplace() marketplace.Marketplace { return f.m }

func (f *fakeMarketplace) FetchOrders(ctx context.Context, _ marketplace.Window, page int) (*marketplace.Page, error) {
	return &marketplace.Page{Orders: f.orders, TotalPages: 1}, nil
}

func (f *fakeMarketplace) PushStock(ctx context.Context, items []marketplace.StockItem) ([]marketplace.ItemResult, error) {
	f.pushed = append(f.pushed, items...)
	out := make([]marketplace.ItemResult, len(items))
	for i, it := range items {
		out[i] = marketplace.ItemResult{Barcode: it.Barcode}
	}
	return out, nil
}

type fakeAdapters struct {
	fake *fakeMarketplace
}

func (a fakeAdapters) Source(m marketplace.Marketplace) (marketplace.OrderSource, error) {
	if m != a.fake.m {
		return nil, marketplace.ErrRejected.WithDetails("%s is not enabled", m)
	}
	return a.fake, nil
}

func (a fakeAdapters) Pusher(m marketplace.Marketplace) (marketplace.StockPusher, error) {
	if m != a.fake.m {
		return nil, marketplace.ErrRejected.WithDetails("%s is not enabled", m)
	}
	return a.fake, nil
}

type harness struct {
	cli   *cli.CLI
	out   *bytes.Buffer
	scope *persistence.GormTransactionScope
	fake  *fakeMarketplace
	jwt   *auth.JWTService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	scope, _ := persistencetest.Scope(t)
	log := zap.NewNop()
	engine := appinventory.NewEngine(scope, appinventory.Config{}, log)
	machine := apporder.NewStateMachine(scope, engine, nil, apporder.Config{
		CancelPolicy: order.DefaultCancelPolicy(),
		Verification: order.VerifyPerPair,
	}, log)
	fake := &fakeMarketplace{m: marketplace.Trendyol}
	jwt := auth.NewJWTService(config.JWTConfig{
		Secret:                "cli-test-secret",
		AccessTokenExpiration: time.Hour,
		Issuer:                "sellerops",
	})
	out := &bytes.Buffer{}
	return &harness{
		cli: cli.New(cli.Services{
			Aliases:      appbarcode.NewAliasService(scope, engine, log),
			Engine:       engine,
			Orders:       machine,
			Sync:         ordersync.NewService(scope, machine, ordersync.Config{}, log),
			Reservations: reservation.NewService(scope, 0, log),
			Products:     appcatalog.NewProductService(scope, log),
			Adapters:     fakeAdapters{fake: fake},
			Tokens:       jwt,
		}, out, log),
		out:   out,
		scope: scope,
		fake:  fake,
		jwt:   jwt,
	}
}

type envelope struct {
	OK        bool            `json:"ok"`
	ErrorCode string          `json:"error_code"`
	Details   string          `json:"details"`
	Result    json.RawMessage `json:"result"`
}

// run executes args and decodes the printed result document.
func (h *harness) run(t *testing.T, args ...string) (int, envelope) {
	t.Helper()
	h.out.Reset()
	code := h.cli.Run(context.Background(), args)
	var env envelope
	require.NoError(t, json.Unmarshal(h.out.Bytes(), &env), h.out.String())
	return code, env
}

func (h *harness) mustRun(t *testing.T, args ...string) json.RawMessage {
	t.Helper()
	code, env := h.run(t, args...)
	require.Equal(t, shared.ExitOK, code, "%s: %s", env.ErrorCode, env.Details)
	require.True(t, env.OK)
	return env.Result
}

func (h *harness) seedOrder(t *testing.T, number string, status order.Status, lines ...order.Line) {
	t.Helper()
	o := &order.Order{
		OrderNumber: number,
		Marketplace: "trendyol",
		Status:      status,
		OrderDate:   time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
		TotalAmount: decimal.NewFromInt(250),
		Currency:    "TRY",
	}
	require.NoError(t, o.SetDetails(order.Details(lines)))
	require.NoError(t, h.scope.Execute(context.Background(), func(repos tx.Repositories) error {
		return repos.Orders().Insert(context.Background(), o)
	}))
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

// ---------------------------------------------------------------------------
// Stock commands
// ---------------------------------------------------------------------------

func TestStockCommands(t *testing.T) {
	h := newHarness(t)

	h.mustRun(t, "stock", "add", "--shelf", "A1", "--barcode", "8690001", "--count", "5")
	h.mustRun(t, "stock", "add", "--shelf", "B2", "--barcode", "8690001", "--count", "3")
	view := decode[appinventory.StockView](t,
		h.mustRun(t, "stock", "transfer", "--from", "A1", "--to", "B2", "--barcode", "8690001", "--count", "2"))
	assert.Equal(t, 8, view.Central)

	view = decode[appinventory.StockView](t, h.mustRun(t, "stock", "renew", "--shelf", "B2", "--barcode", "8690001", "--count", "1"))
	assert.Equal(t, 4, view.Central, "A1 keeps 3, B2 is reset to 1")

	shown := decode[appinventory.StockView](t, h.mustRun(t, "stock", "show", "--barcode", "8690001"))
	assert.Equal(t, view, shown)

	snapshot := decode[reservation.Snapshot](t, h.mustRun(t, "stock", "available", "--barcode", "8690001"))
	assert.Equal(t, 4, snapshot.Available)
}

func TestStockTransfer_InsufficientShelfStock(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "stock", "add", "--shelf", "A1", "--barcode", "8690001", "--count", "1")

	code, env := h.run(t, "stock", "transfer", "--from", "A1", "--to", "B2", "--barcode", "8690001", "--count", "2")
	assert.Equal(t, shared.ExitInsufficientStock, code)
	assert.False(t, env.OK)
	assert.Equal(t, shared.CodeInsufficientShelfStock, env.ErrorCode)
	assert.NotEmpty(t, env.Details)
}

func TestStockPush(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "stock", "add", "--shelf", "A1", "--barcode", "8690001", "--count", "5")
	h.mustRun(t, "product", "upsert", "--barcode", "8690001", "--title", "Keten gomlek", "--marketplaces", "trendyol", "--price", "349.90")

	payload := decode[[]marketplace.StockItem](t, h.mustRun(t, "stock", "push", "--marketplace", "trendyol", "--dry-run"))
	assert.Equal(t, []marketplace.StockItem{{Barcode: "8690001", AvailableQty: 5}}, payload)
	assert.Empty(t, h.fake.pushed)

	result := decode[reservation.PushResult](t, h.mustRun(t, "stock", "push", "--marketplace", "trendyol"))
	assert.Equal(t, 1, result.SuccessCount)
	assert.Len(t, h.fake.pushed, 1)

	code, env := h.run(t, "stock", "push", "--marketplace", "amazon")
	assert.Equal(t, shared.ExitMarketplace, code)
	assert.Equal(t, shared.CodeMarketplaceRejected, env.ErrorCode)
}

// ---------------------------------------------------------------------------
// Alias commands
// ---------------------------------------------------------------------------

func TestAliasCommands_MergeStock(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "stock", "add", "--shelf", "B1", "--barcode", "can", "--count", "5")
	h.mustRun(t, "stock", "add", "--shelf", "B1", "--barcode", "alt", "--count", "7")

	h.mustRun(t, "alias", "add", "alt", "can")

	view := decode[appinventory.StockView](t, h.mustRun(t, "stock", "show", "--barcode", "alt"))
	assert.Equal(t, "can", view.Barcode)
	assert.Equal(t, 12, view.Central)
	require.Len(t, view.Shelves, 1)
	assert.Equal(t, 12, view.Shelves[0].Qty)

	info := h.mustRun(t, "alias", "info", "can")
	assert.Contains(t, string(info), `"alt"`)

	h.mustRun(t, "alias", "remove", "alt")
	code, env := h.run(t, "alias", "remove", "alt")
	assert.NotEqual(t, shared.ExitOK, code)
	assert.False(t, env.OK)
}

func TestAliasAdd_Conflict(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "alias", "add", "alt", "can")

	code, env := h.run(t, "alias", "add", "other", "alt")
	assert.Equal(t, shared.ExitInvariant, code)
	assert.Equal(t, shared.CodeAliasConflict, env.ErrorCode)
}

// ---------------------------------------------------------------------------
// Order commands
// ---------------------------------------------------------------------------

func TestOrderCommands_PickVerify(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "stock", "add", "--shelf", "A1", "--barcode", "8690001", "--count", "3")
	h.seedOrder(t, "TY-1", order.StatusReadyToShip, order.Line{Barcode: "8690001", Quantity: 1, UnitPrice: decimal.NewFromInt(250)})

	expected := h.mustRun(t, "order", "pick-verify", "--order", "TY-1")
	assert.JSONEq(t, `{"order_number":"TY-1","expected_scans":{"8690001":2}}`, string(expected))

	code, env := h.run(t, "order", "pick-verify", "--order", "TY-1", "--scans", "8690001")
	assert.Equal(t, shared.ExitIllegalTransition, code)
	assert.Equal(t, shared.CodePickVerificationFailed, env.ErrorCode)

	picked := decode[apporder.OrderResponse](t,
		h.mustRun(t, "order", "pick-verify", "--order", "TY-1", "--scans", "8690001,8690001"))
	assert.Equal(t, order.StatusPicking, picked.Status)
	assert.True(t, picked.StockConsumed)

	view := decode[appinventory.StockView](t, h.mustRun(t, "stock", "show", "--barcode", "8690001"))
	assert.Equal(t, 2, view.Central)
}

func TestOrderTransition(t *testing.T) {
	h := newHarness(t)
	h.seedOrder(t, "TY-2", order.StatusCreated, order.Line{Barcode: "8690002", Quantity: 1})

	code, env := h.run(t, "order", "transition", "--order", "TY-2", "--to", "Delivered")
	assert.Equal(t, shared.ExitIllegalTransition, code)
	assert.Equal(t, shared.CodeIllegalTransition, env.ErrorCode)

	moved := decode[apporder.OrderResponse](t,
		h.mustRun(t, "order", "transition", "--order", "TY-2", "--to", "cancelled", "--reason", "customer request"))
	assert.Equal(t, order.StatusCancelled, moved.Status)
	assert.Equal(t, "customer request", moved.CancellationReason)

	shown := decode[apporder.OrderResponse](t, h.mustRun(t, "order", "show", "--order", "TY-2"))
	assert.Equal(t, order.StatusCancelled, shown.Status)
	require.Len(t, shown.Lines, 1)
}

// ---------------------------------------------------------------------------
// Sync and misc commands
// ---------------------------------------------------------------------------

func TestSyncPull(t *testing.T) {
	h := newHarness(t)
	h.fake.orders = []marketplace.RemoteOrder{{
		OrderNumber: "TY-100",
		Status:      order.StatusCreated,
		OrderDate:   time.Now().Add(-time.Hour),
		Lines:       []marketplace.RemoteLine{{Barcode: "8690003", Quantity: 2}},
	}}

	result := decode[map[string]any](t, h.mustRun(t, "sync", "pull", "--source", "trendyol"))
	assert.Equal(t, float64(1), result["inserted"])
	assert.Equal(t, false, result["partial"])

	shown := decode[apporder.OrderResponse](t, h.mustRun(t, "order", "show", "--order", "TY-100"))
	assert.Equal(t, order.StatusCreated, shown.Status)

	code, env := h.run(t, "sync", "pull", "--source", "trendyol", "--since", "2026-10-10", "--until", "2026-10-01")
	assert.Equal(t, shared.ExitInvariant, code)
	assert.Equal(t, shared.CodeValidation, env.ErrorCode)

	code, _ = h.run(t, "sync", "pull", "--source", "etsy")
	assert.Equal(t, shared.ExitInvariant, code)
}

func TestTokenIssue(t *testing.T) {
	h := newHarness(t)
	issued := decode[auth.IssuedToken](t, h.mustRun(t, "token", "issue", "--operator", "depo-1", "--scopes", "stock,read", "--ttl", "30m"))

	claims, err := h.jwt.Validate(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "depo-1", claims.Operator)
	assert.True(t, claims.HasScope(auth.ScopeStock))
	assert.False(t, claims.HasScope(auth.ScopeOrder))
}

func TestUsageErrors(t *testing.T) {
	h := newHarness(t)
	tests := []struct {
		name string
		args []string
	}{
		{"no command", nil},
		{"unknown command", []string{"stock", "teleport"}},
		{"missing flag", []string{"stock", "add", "--shelf", "A1", "--barcode", "x"}},
		{"unknown flag", []string{"stock", "show", "--barcode", "x", "--color", "red"}},
		{"bad count", []string{"stock", "add", "--shelf", "A1", "--barcode", "x", "--count", "many"}},
		{"alias arity", []string{"alias", "add", "only-one"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, env := h.run(t, tt.args...)
			assert.Equal(t, shared.ExitInvariant, code)
			assert.False(t, env.OK)
			assert.Equal(t, shared.CodeValidation, env.ErrorCode)
		})
	}
}

func TestUnconfiguredService(t *testing.T) {
	out := &bytes.Buffer{}
	c := cli.New(cli.Services{}, out, nil)

	code := c.Run(context.Background(), []string{"sync", "pull", "--source", "trendyol"})
	assert.Equal(t, shared.ExitConfig, code)
	assert.Contains(t, out.String(), shared.CodeConfigError)
}
