package ecommerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerops/console/internal/domain/marketplace"
	"github.com/sellerops/console/internal/domain/order"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:      baseURL,
		SellerID:     "1234",
		APIKey:       "key",
		APISecret:    "secret",
		PageSize:     2,
		Timeout:      5 * time.Second,
		RateLimitRPS: 1000,
	}
}

func testWindow() marketplace.Window {
	until := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	return marketplace.LookbackWindow(until, 14)
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

// ---------------------------------------------------------------------------
// Trendyol
// ---------------------------------------------------------------------------

func TestTrendyolAdapter_FetchOrders(t *testing.T) {
	window := testWindow()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/integration/order/sellers/1234/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "1234 - SelfIntegration", r.Header.Get("User-Agent"))

		q := r.URL.Query()
		assert.Equal(t, "1", q.Get("page"))
		assert.Equal(t, "2", q.Get("size"))
		assert.Equal(t, "1791201600000", q.Get("startDate"))
		assert.Equal(t, "1792411200000", q.Get("endDate"))

		w.Write([]byte(`{
			"page": 1, "size": 2, "totalPages": 3, "totalElements": 5,
			"content": [{
				"id": 99, "orderNumber": "TY-1", "orderDate": 1760000000000,
				"status": "Invoiced", "shipmentPackageId": 555,
				"customerFirstName": "Ayse", "customerLastName": "Yilmaz",
				"shipmentAddress": {"fullName": "Ayse Yilmaz", "fullAddress": "Kadikoy, Istanbul", "phone": "555"},
				"cargoTrackingNumber": 7330000000001,
				"cargoProviderName": "Yurtici",
				"totalPrice": 349.90, "currencyCode": "TRY",
				"lines": [
					{"id": 1, "barcode": "ABC-1", "quantity": 2, "price": 99.95, "productSize": "42", "productColor": "Black", "productCode": 12},
					{"id": 2, "barcode": "XYZ", "quantity": 1, "price": 150, "productSize": "", "productColor": "", "productCode": "P-2"}
				]
			}]
		}`))
	}))
	defer server.Close()

	adapter, err := NewTrendyolAdapter(testConfig(server.URL))
	require.NoError(t, err)

	page, err := adapter.FetchOrders(context.Background(), window, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Orders, 1)

	o := page.Orders[0]
	assert.Equal(t, "TY-1", o.OrderNumber)
	assert.Equal(t, "Invoiced", o.RemoteStatus)
	assert.Equal(t, order.StatusPicking, o.Status)
	assert.Equal(t, "555", o.ShipmentPackageID)
	assert.Equal(t, "99", o.PackageNumber)
	assert.Equal(t, "Ayse Yilmaz", o.CustomerName)
	assert.Equal(t, "7330000000001", o.CargoTrackingNo)
	assert.True(t, decimal.RequireFromString("349.90").Equal(o.TotalAmount))
	assert.Equal(t, time.UnixMilli(1760000000000).UTC(), o.OrderDate)
	require.Len(t, o.Lines, 2)
	assert.Equal(t, "ABC-1", o.Lines[0].Barcode)
	assert.Equal(t, 2, o.Lines[0].Quantity)
	assert.Equal(t, "42", o.Lines[0].Size)
	assert.Equal(t, "12", o.Lines[0].ProductMainID)
	assert.Equal(t, "P-2", o.Lines[1].ProductMainID)
}

func TestTrendyolAdapter_UnknownStatusIsIgnored(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"totalPages": 1, "content": [{"orderNumber": "TY-2", "status": "Returned"}]}`))
	}))
	defer server.Close()

	adapter, err := NewTrendyolAdapter(testConfig(server.URL))
	require.NoError(t, err)

	page, err := adapter.FetchOrders(context.Background(), testWindow(), 0)
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, order.Status(""), page.Orders[0].Status)
	assert.False(t, page.Orders[0].Status.IsValid())
}

func TestTrendyolAdapter_PushStock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/integration/inventory/sellers/1234/products/price-and-inventory":
			var body TrendyolInventoryRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, []TrendyolInventoryItem{{Barcode: "a", Quantity: 3}, {Barcode: "b", Quantity: 0}}, body.Items)
			writeJSON(t, w, TrendyolBatchResponse{BatchRequestID: "batch-1"})
		case r.Method == http.MethodGet && r.URL.Path == "/integration/product/sellers/1234/products/batch-requests/batch-1":
			writeJSON(t, w, TrendyolBatchResult{
				BatchRequestID: "batch-1",
				Status:         "COMPLETED",
				Items: []TrendyolBatchItemResult{
					{RequestItem: TrendyolInventoryItem{Barcode: "a", Quantity: 3}, Status: "SUCCESS"},
					{RequestItem: TrendyolInventoryItem{Barcode: "B", Quantity: 0}, Status: "FAILED", FailureReasons: []string{"unknown barcode"}},
				},
			})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	adapter, err := NewTrendyolAdapter(testConfig(server.URL))
	require.NoError(t, err)

	results, err := adapter.PushStock(context.Background(), []marketplace.StockItem{
		{Barcode: "a", AvailableQty: 3},
		{Barcode: "b", AvailableQty: 0},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.NoError(t, results[0].Err)
	require.Error(t, results[1].Err)
	assert.Contains(t, results[1].Err.Error(), "unknown barcode")
}

func TestTrendyolAdapter_PushStockMissingBatchID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	adapter, err := NewTrendyolAdapter(testConfig(server.URL))
	require.NoError(t, err)

	_, err = adapter.PushStock(context.Background(), []marketplace.StockItem{{Barcode: "a", AvailableQty: 1}})
	assert.ErrorIs(t, err, marketplace.ErrMalformedPayload)
}

func TestNewTrendyolAdapter_Validation(t *testing.T) {
	cfg := testConfig("")
	cfg.SellerID = ""
	_, err := NewTrendyolAdapter(cfg)
	assert.ErrorIs(t, err, ErrConfigMissingSellerID)

	cfg = testConfig("")
	adapter, err := NewTrendyolAdapter(cfg)
	require.NoError(t, err)
	assert.Equal(t, TrendyolBaseURL, adapter.config.BaseURL)
	assert.Equal(t, marketplace.Trendyol, adapter.Marketplace())
}
