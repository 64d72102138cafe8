package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
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
	"github.com/sellerops/console/internal/infrastructure/persistence"
	"github.com/sellerops/console/internal/infrastructure/persistence/persistencetest"
	"github.com/sellerops/console/internal/infrastructure/scheduler"
	"github.com/sellerops/console/internal/interfaces/http/dto"
	"github.com/sellerops/console/internal/interfaces/http/handler"
	"github.com/sellerops/console/internal/interfaces/http/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

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

type mockJobs struct {
	mock.Mock
}

func (m *mockJobs) Submit(job *scheduler.Job) error {
	args := m.Called(job)
	return args.Error(0)
}

func (m *mockJobs) History(limit int) []*scheduler.Job {
	args := m.Called(limit)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]*scheduler.Job)
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

type harness struct {
	router *gin.Engine
	scope  *persistence.GormTransactionScope
	fake   *fakeMarketplace
	jobs   *mockJobs
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	scope, db := persistencetest.Scope(t)
	log := zap.NewNop()
	engine := appinventory.NewEngine(scope, appinventory.Config{}, log)
	machine := apporder.NewStateMachine(scope, engine, nil, apporder.Config{
		CancelPolicy: order.DefaultCancelPolicy(),
		Verification: order.VerifyPerPair,
	}, log)
	reservations := reservation.NewService(scope, 0, log)
	sync := ordersync.NewService(scope, machine, ordersync.Config{}, log)
	t.Cleanup(sync.Wait)

	fake := &fakeMarketplace{m: marketplace.Trendyol}
	adapters := fakeAdapters{fake: fake}
	jobs := &mockJobs{}

	stock := handler.NewStockHandler(engine, reservations)
	aliases := handler.NewAliasHandler(appbarcode.NewAliasService(scope, engine, log))
	orders := handler.NewOrderHandler(machine)
	syncs := handler.NewSyncHandler(sync, adapters, jobs)
	res := handler.NewReservationHandler(reservations, adapters)
	products := handler.NewProductHandler(appcatalog.NewProductService(scope, log))
	system := handler.NewSystemHandler("sellerops-console", map[string]handler.Pinger{
		"database": &persistence.Database{DB: db, Driver: "sqlite"},
	})

	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/health", system.Health)
	r.POST("/stock/add", stock.Add)
	r.POST("/stock/renew", stock.Renew)
	r.POST("/stock/transfer", stock.Transfer)
	r.GET("/stock/:barcode", stock.Get)
	r.GET("/shelves/:code", stock.Shelf)
	r.POST("/aliases", aliases.Add)
	r.DELETE("/aliases/:alias", aliases.Remove)
	r.GET("/aliases/:barcode", aliases.Info)
	r.GET("/orders", orders.List)
	r.GET("/orders/:number", orders.Get)
	r.POST("/orders/:number/transition", orders.Transition)
	r.POST("/orders/:number/pick-verify", orders.PickVerify)
	r.POST("/sync/:source/pull", syncs.Pull)
	r.POST("/sync/jobs", syncs.SubmitJob)
	r.GET("/sync/jobs", syncs.Jobs)
	r.GET("/reservations/:barcode", res.Available)
	r.POST("/stock-push/:marketplace", res.Push)
	r.PUT("/products/:barcode", products.Upsert)
	r.GET("/products/:barcode", products.Get)
	r.GET("/products", products.List)

	return &harness{router: r, scope: scope, fake: fake, jobs: jobs}
}

type envelope struct {
	OK         bool                   `json:"ok"`
	ErrorCode  string                 `json:"error_code"`
	Details    string                 `json:"details"`
	Result     json.RawMessage        `json:"result"`
	Validation []dto.ValidationDetail `json:"validation"`
	Meta       *dto.Meta              `json:"meta"`
	RequestID  string                 `json:"request_id"`
}

func (h *harness) do(t *testing.T, method, path string, body any) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (h *harness) must(t *testing.T, method, path string, body any) json.RawMessage {
	t.Helper()
	status, env := h.do(t, method, path, body)
	require.Less(t, status, 300, "%s: %s", env.ErrorCode, env.Details)
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

func stockBody(shelf, code string, count int) map[string]any {
	return map[string]any{"shelf": shelf, "barcode": code, "count": count}
}

// ---------------------------------------------------------------------------
// Stock
// ---------------------------------------------------------------------------

func TestStockHandler_Flow(t *testing.T) {
	h := newHarness(t)

	h.must(t, http.MethodPost, "/stock/add", stockBody("A1", "8690001", 5))
	h.must(t, http.MethodPost, "/stock/add", stockBody("B2", "8690001", 3))
	view := decode[appinventory.StockView](t, h.must(t, http.MethodPost, "/stock/transfer",
		map[string]any{"from": "A1", "to": "B2", "barcode": "8690001", "count": 2}))
	assert.Equal(t, 8, view.Central)

	view = decode[appinventory.StockView](t, h.must(t, http.MethodPost, "/stock/renew", stockBody("B2", "8690001", 0)))
	assert.Equal(t, 3, view.Central)

	detail := decode[map[string]any](t, h.must(t, http.MethodGet, "/stock/8690001", nil))
	assert.Equal(t, float64(3), detail["central"])
	assert.Equal(t, float64(0), detail["reserved"])
	assert.Equal(t, float64(3), detail["available"])

	shelf := decode[map[string]any](t, h.must(t, http.MethodGet, "/shelves/A1", nil))
	assert.Equal(t, "A1", shelf["shelf"])
	assert.Len(t, shelf["items"], 1)
}

func TestStockHandler_Errors(t *testing.T) {
	h := newHarness(t)
	h.must(t, http.MethodPost, "/stock/add", stockBody("A1", "8690001", 1))

	tests := []struct {
		name   string
		path   string
		body   any
		status int
		code   string
	}{
		{"missing count", "/stock/add", map[string]any{"shelf": "A1", "barcode": "8690001"}, http.StatusBadRequest, shared.CodeValidation},
		{"blank barcode", "/stock/add", stockBody("A1", "   ", 1), http.StatusBadRequest, shared.CodeValidation},
		{"negative renew", "/stock/renew", stockBody("A1", "8690001", -1), http.StatusBadRequest, shared.CodeValidation},
		{"zero add", "/stock/add", stockBody("A1", "8690001", 0), http.StatusBadRequest, shared.CodeValidation},
		{"short shelf", "/stock/transfer", map[string]any{"from": "A1", "to": "B2", "barcode": "8690001", "count": 2},
			http.StatusUnprocessableEntity, shared.CodeInsufficientShelfStock},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := h.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, status)
			assert.False(t, env.OK)
			assert.Equal(t, tt.code, env.ErrorCode)
			assert.NotEmpty(t, env.RequestID)
		})
	}
}

func TestStockHandler_ValidationDetails(t *testing.T) {
	h := newHarness(t)
	status, env := h.do(t, http.MethodPost, "/stock/add", map[string]any{"barcode": "8690001", "count": 1})

	assert.Equal(t, http.StatusBadRequest, status)
	require.Len(t, env.Validation, 1)
	assert.Equal(t, "shelf", env.Validation[0].Field)
}

// ---------------------------------------------------------------------------
// Aliases
// ---------------------------------------------------------------------------

func TestAliasHandler(t *testing.T) {
	h := newHarness(t)
	h.must(t, http.MethodPost, "/stock/add", stockBody("B1", "can", 5))
	h.must(t, http.MethodPost, "/stock/add", stockBody("B1", "alt", 7))

	status, env := h.do(t, http.MethodPost, "/aliases", map[string]any{"alias": "alt", "canonical": "can"})
	require.Equal(t, http.StatusCreated, status, env.Details)

	view := decode[appinventory.StockView](t, h.must(t, http.MethodGet, "/stock/alt", nil))
	assert.Equal(t, "can", view.Barcode)
	assert.Equal(t, 12, view.Central)

	info := h.must(t, http.MethodGet, "/aliases/can", nil)
	assert.Contains(t, string(info), `"alt"`)

	status, env = h.do(t, http.MethodPost, "/aliases", map[string]any{"alias": "other", "canonical": "alt"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, shared.CodeAliasConflict, env.ErrorCode)

	h.must(t, http.MethodDelete, "/aliases/alt", nil)
	status, _ = h.do(t, http.MethodDelete, "/aliases/alt", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAliasHandler_NoMerge(t *testing.T) {
	h := newHarness(t)
	h.must(t, http.MethodPost, "/stock/add", stockBody("B1", "can", 5))

	merge := false
	status, _ := h.do(t, http.MethodPost, "/aliases", handler.AddAliasRequest{Alias: "alt", Canonical: "can", MergeStocks: &merge})
	require.Equal(t, http.StatusCreated, status)

	view := decode[appinventory.StockView](t, h.must(t, http.MethodGet, "/stock/can", nil))
	assert.Equal(t, 5, view.Central)
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

func TestOrderHandler_PickVerify(t *testing.T) {
	h := newHarness(t)
	h.must(t, http.MethodPost, "/stock/add", stockBody("A1", "8690001", 3))
	h.seedOrder(t, "TY-1", order.StatusReadyToShip, order.Line{Barcode: "8690001", Quantity: 1, UnitPrice: decimal.NewFromInt(250)})

	expected := h.must(t, http.MethodPost, "/orders/TY-1/pick-verify", map[string]any{})
	assert.JSONEq(t, `{"order_number":"TY-1","expected_scans":{"8690001":2}}`, string(expected))

	status, env := h.do(t, http.MethodPost, "/orders/TY-1/pick-verify", map[string]any{"scans": []string{"8690001"}})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, shared.CodePickVerificationFailed, env.ErrorCode)

	picked := decode[apporder.OrderResponse](t, h.must(t, http.MethodPost, "/orders/TY-1/pick-verify",
		map[string]any{"scans": []string{"8690001", "8690001"}}))
	assert.Equal(t, order.StatusPicking, picked.Status)
	assert.True(t, picked.StockConsumed)

	view := decode[appinventory.StockView](t, h.must(t, http.MethodGet, "/stock/8690001", nil))
	assert.Equal(t, 2, view.Central)
}

func TestOrderHandler_Transition(t *testing.T) {
	h := newHarness(t)
	h.seedOrder(t, "TY-2", order.StatusCreated, order.Line{Barcode: "8690002", Quantity: 1})

	status, env := h.do(t, http.MethodPost, "/orders/TY-2/transition", map[string]any{"to": "Delivered"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, shared.CodeIllegalTransition, env.ErrorCode)

	status, env = h.do(t, http.MethodPost, "/orders/TY-2/transition", map[string]any{"to": "nowhere"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, shared.CodeValidation, env.ErrorCode)

	moved := decode[apporder.OrderResponse](t, h.must(t, http.MethodPost, "/orders/TY-2/transition",
		map[string]any{"to": "cancelled", "reason": "customer request"}))
	assert.Equal(t, order.StatusCancelled, moved.Status)
	assert.Equal(t, "customer request", moved.CancellationReason)

	shown := decode[apporder.OrderResponse](t, h.must(t, http.MethodGet, "/orders/TY-2", nil))
	assert.Equal(t, order.StatusCancelled, shown.Status)

	status, env = h.do(t, http.MethodGet, "/orders/TY-404", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, shared.CodeOrderNotFound, env.ErrorCode)
}

func TestOrderHandler_List(t *testing.T) {
	h := newHarness(t)
	h.seedOrder(t, "TY-10", order.StatusCreated, order.Line{Barcode: "8690002", Quantity: 1})
	h.seedOrder(t, "TY-11", order.StatusCreated, order.Line{Barcode: "8690002", Quantity: 1})
	h.seedOrder(t, "TY-12", order.StatusReadyToShip, order.Line{Barcode: "8690002", Quantity: 1})

	status, env := h.do(t, http.MethodGet, "/orders?status=created&page=1&page_size=1", nil)
	require.Equal(t, http.StatusOK, status, env.Details)
	items := decode[[]apporder.OrderResponse](t, env.Result)
	assert.Len(t, items, 1)
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(2), env.Meta.Total)
	assert.Equal(t, 2, env.Meta.TotalPages)

	status, env = h.do(t, http.MethodGet, "/orders", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, shared.CodeValidation, env.ErrorCode)
}

// ---------------------------------------------------------------------------
// Sync
// ---------------------------------------------------------------------------

func TestSyncHandler_Pull(t *testing.T) {
	h := newHarness(t)
	h.fake.orders = []marketplace.RemoteOrder{{
		OrderNumber: "TY-100",
		Status:      order.StatusCreated,
		OrderDate:   time.Now().Add(-time.Hour),
		Lines:       []marketplace.RemoteLine{{Barcode: "8690003", Quantity: 2}},
	}}

	result := decode[map[string]any](t, h.must(t, http.MethodPost, "/sync/trendyol/pull", nil))
	assert.Equal(t, float64(1), result["inserted"])
	assert.Equal(t, false, result["partial"])

	shown := decode[apporder.OrderResponse](t, h.must(t, http.MethodGet, "/orders/TY-100", nil))
	assert.Equal(t, order.StatusCreated, shown.Status)

	status, env := h.do(t, http.MethodPost, "/sync/trendyol/pull", map[string]any{"since": "2026-10-10", "until": "2026-10-01"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, shared.CodeValidation, env.ErrorCode)

	status, env = h.do(t, http.MethodPost, "/sync/trendyol/pull", map[string]any{"since": "yesterday"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Details, "since")

	status, env = h.do(t, http.MethodPost, "/sync/amazon/pull", nil)
	assert.Equal(t, http.StatusBadGateway, status)
	assert.Equal(t, shared.CodeMarketplaceRejected, env.ErrorCode)
}

func TestSyncHandler_SubmitJob(t *testing.T) {
	h := newHarness(t)
	h.jobs.On("Submit", mock.MatchedBy(func(j *scheduler.Job) bool {
		return j.Kind == scheduler.JobKindSync && j.Marketplace == marketplace.Trendyol
	})).Return(nil).Once()
	h.jobs.On("Submit", mock.Anything).Return(scheduler.ErrJobInFlight).Once()

	status, env := h.do(t, http.MethodPost, "/sync/jobs", map[string]any{"kind": "SYNC", "marketplace": "trendyol"})
	require.Equal(t, http.StatusAccepted, status, env.Details)
	job := decode[handler.JobResponse](t, env.Result)
	assert.Equal(t, "PENDING", job.Status)

	status, env = h.do(t, http.MethodPost, "/sync/jobs", map[string]any{"kind": "SYNC", "marketplace": "trendyol"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, dto.ErrCodeJobInFlight, env.ErrorCode)

	status, env = h.do(t, http.MethodPost, "/sync/jobs", map[string]any{"kind": "REINDEX", "marketplace": "trendyol"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "kind", env.Validation[0].Field)

	h.jobs.AssertExpectations(t)
}

func TestSyncHandler_Jobs(t *testing.T) {
	h := newHarness(t)
	done := scheduler.NewJob(scheduler.JobKindStockPush, marketplace.Trendyol, 3)
	done.Start()
	done.Complete(false, "pushed 4")
	h.jobs.On("History", 50).Return([]*scheduler.Job{done})

	items := decode[[]handler.JobResponse](t, h.must(t, http.MethodGet, "/sync/jobs", nil))
	require.Len(t, items, 1)
	assert.Equal(t, "STOCK_PUSH", items[0].Kind)
	assert.Equal(t, "SUCCESS", items[0].Status)
	assert.Equal(t, "pushed 4", items[0].Summary)
	assert.NotNil(t, items[0].CompletedAt)
}

func TestSyncHandler_NotConfigured(t *testing.T) {
	scope, _ := persistencetest.Scope(t)
	log := zap.NewNop()
	engine := appinventory.NewEngine(scope, appinventory.Config{}, log)
	machine := apporder.NewStateMachine(scope, engine, nil, apporder.Config{CancelPolicy: order.DefaultCancelPolicy()}, log)
	syncs := handler.NewSyncHandler(ordersync.NewService(scope, machine, ordersync.Config{}, log), nil, nil)

	r := gin.New()
	r.GET("/sync/jobs", syncs.Jobs)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sync/jobs", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), shared.CodeConfigError)
}

// ---------------------------------------------------------------------------
// Reservations, products and health
// ---------------------------------------------------------------------------

func TestReservationHandler_Push(t *testing.T) {
	h := newHarness(t)
	h.must(t, http.MethodPost, "/stock/add", stockBody("A1", "8690001", 5))
	h.must(t, http.MethodPut, "/products/8690001", map[string]any{
		"title": "Keten gomlek", "marketplaces": []string{"Trendyol"}, "price": "349.90",
	})
	h.seedOrder(t, "TY-5", order.StatusCreated, order.Line{Barcode: "8690001", Quantity: 2})

	snap := decode[reservation.Snapshot](t, h.must(t, http.MethodGet, "/reservations/8690001", nil))
	assert.Equal(t, reservation.Snapshot{Barcode: "8690001", Central: 5, Reserved: 2, Available: 3}, snap)

	dry := decode[map[string]json.RawMessage](t, h.must(t, http.MethodPost, "/stock-push/trendyol?dry_run=true", nil))
	assert.JSONEq(t, `[{"barcode":"8690001","availableQty":3}]`, string(dry["items"]))
	assert.Empty(t, h.fake.pushed)

	result := decode[reservation.PushResult](t, h.must(t, http.MethodPost, "/stock-push/trendyol", nil))
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, []marketplace.StockItem{{Barcode: "8690001", AvailableQty: 3}}, h.fake.pushed)

	status, env := h.do(t, http.MethodPost, "/stock-push/etsy", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, shared.CodeValidation, env.ErrorCode)
}

func TestProductHandler(t *testing.T) {
	h := newHarness(t)
	product := decode[appcatalog.ProductResponse](t, h.must(t, http.MethodPut, "/products/8690009", map[string]any{
		"title": "Keten gomlek", "color": "beyaz", "marketplaces": []string{"idefix"},
	}))
	assert.Equal(t, "8690009", product.Barcode)
	assert.Equal(t, []string{"idefix"}, product.Marketplaces)

	listed := decode[[]appcatalog.ProductResponse](t, h.must(t, http.MethodGet, "/products?marketplace=idefix", nil))
	require.Len(t, listed, 1)

	shown := decode[appcatalog.ProductResponse](t, h.must(t, http.MethodGet, "/products/8690009", nil))
	assert.Equal(t, "beyaz", shown.Color)

	status, env := h.do(t, http.MethodPut, "/products/8690009", map[string]any{"color": "mavi"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "title", env.Validation[0].Field)

	status, _ = h.do(t, http.MethodGet, "/products/0000", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSystemHandler_Health(t *testing.T) {
	h := newHarness(t)
	health := decode[handler.HealthResponse](t, h.must(t, http.MethodGet, "/health", nil))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "ok", health.Checks["database"])

	system := handler.NewSystemHandler("sellerops-console", map[string]handler.Pinger{"redis": failingPinger{}})
	r := gin.New()
	r.GET("/health", system.Health)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}
