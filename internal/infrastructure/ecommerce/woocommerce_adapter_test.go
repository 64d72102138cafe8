package ecommerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerops/console/internal/domain/marketplace"
	"github.com/sellerops/console/internal/domain/order"
)

func TestWooCommerceAdapter_FetchOrders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/wp-json/wc/v3/orders", r.URL.Path)
		user, _, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)

		q := r.URL.Query()
		assert.Equal(t, "1", q.Get("page"), "woo pages are one-based")
		assert.Equal(t, "2026-10-05T12:00:00", q.Get("after"))
		assert.Equal(t, "2026-10-19T12:00:00", q.Get("before"))

		w.Header().Set("X-WP-TotalPages", "4")
		w.Write([]byte(`[
			{
				"id": 812, "number": "812", "status": "processing",
				"date_created_gmt": "2026-10-18T08:30:00", "total": "420.00", "currency": "TRY",
				"billing": {"first_name": "Can", "last_name": "Demir", "phone": "0555"},
				"shipping": {"first_name": "Can", "last_name": "Demir", "address_1": "Moda Cd. 1", "city": "Istanbul"},
				"meta_data": [{"key": "_tracking_number", "value": "TRK-9"}],
				"shipping_lines": [{"method_title": "Aras Kargo"}],
				"line_items": [
					{"id": 5, "sku": "SKU-1", "quantity": 2, "price": 210, "meta_data": [{"key": "pa_size", "value": "M"}]}
				]
			},
			{
				"id": 813, "number": "", "status": "refunded",
				"line_items": [{"id": 6, "sku": "SKU-2", "quantity": 1, "price": "10.5"}]
			}
		]`))
	}))
	defer server.Close()

	adapter, err := NewWooCommerceAdapter(testConfig(server.URL))
	require.NoError(t, err)

	page, err := adapter.FetchOrders(context.Background(), testWindow(), 0)
	require.NoError(t, err)
	assert.Equal(t, 4, page.TotalPages)
	require.Len(t, page.Orders, 2)

	first := page.Orders[0]
	assert.Equal(t, "812", first.OrderNumber)
	assert.Equal(t, order.StatusReadyToShip, first.Status)
	assert.Equal(t, "Can Demir", first.CustomerName)
	assert.Equal(t, "Moda Cd. 1, Istanbul", first.CustomerAddress)
	assert.Equal(t, "TRK-9", first.CargoTrackingNo)
	assert.Equal(t, "Aras Kargo", first.CargoProvider)
	assert.True(t, decimal.NewFromInt(420).Equal(first.TotalAmount))
	require.Len(t, first.Lines, 1)
	assert.Equal(t, "M", first.Lines[0].Size)
	assert.True(t, decimal.NewFromInt(210).Equal(first.Lines[0].UnitPrice))

	second := page.Orders[1]
	assert.Empty(t, second.OrderNumber, "orders without a number are fingerprinted by the sync")
	assert.Equal(t, order.StatusCancelled, second.Status)
	assert.True(t, strings.HasPrefix(marketplace.Fingerprint(second.Lines), marketplace.FingerprintPrefix))
}

func TestWooCommerceAdapter_MalformedTotal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id": 1, "number": "1", "status": "pending", "total": "abc"}]`))
	}))
	defer server.Close()

	adapter, err := NewWooCommerceAdapter(testConfig(server.URL))
	require.NoError(t, err)

	_, err = adapter.FetchOrders(context.Background(), testWindow(), 0)
	assert.ErrorIs(t, err, marketplace.ErrMalformedPayload)
	assert.False(t, marketplace.Retryable(err))
}

func TestWooCommerceAdapter_PushStock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/wp-json/wc/v3/products":
			assert.Equal(t, "a,b,c", r.URL.Query().Get("sku"))
			writeJSON(t, w, []WooProduct{{ID: 10, SKU: "A"}, {ID: 11, SKU: "b"}})
		case r.Method == http.MethodPost && r.URL.Path == "/wp-json/wc/v3/products/batch":
			var body WooBatchRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, []WooStockUpdate{
				{ID: 10, ManageStock: true, StockQuantity: 4},
				{ID: 11, ManageStock: true, StockQuantity: 0},
			}, body.Update)
			w.Write([]byte(`{"update": [
				{"id": 10, "sku": "A"},
				{"id": 11, "sku": "b", "error": {"code": "woocommerce_rest_invalid", "message": "locked"}}
			]}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer server.Close()

	adapter, err := NewWooCommerceAdapter(testConfig(server.URL))
	require.NoError(t, err)

	results, err := adapter.PushStock(context.Background(), []marketplace.StockItem{
		{Barcode: "a", AvailableQty: 4},
		{Barcode: "b", AvailableQty: 0},
		{Barcode: "c", AvailableQty: 2},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.EqualError(t, results[1].Err, "woocommerce_rest_invalid: locked")
	assert.EqualError(t, results[2].Err, "sku not found")
}

func TestNewWooCommerceAdapter_RequiresBaseURL(t *testing.T) {
	_, err := NewWooCommerceAdapter(testConfig(""))
	assert.ErrorIs(t, err, ErrConfigMissingBaseURL)
}
