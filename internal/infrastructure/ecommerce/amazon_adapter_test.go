package ecommerce

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellerops/console/internal/domain/marketplace"
	"github.com/sellerops/console/internal/domain/order"
)

func TestAmazonAdapter_FetchOrdersFollowsNextToken(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "token", r.Header.Get("x-amz-access-token"))
		switch r.URL.Path {
		case "/orders/v0/orders":
			assert.Equal(t, AmazonTurkeyMarketplaceID, r.URL.Query().Get("MarketplaceIds"))
			if r.URL.Query().Get("NextToken") == "" {
				w.Write([]byte(`{"payload": {"NextToken": "n1", "Orders": [
					{"AmazonOrderId": "402-1", "OrderStatus": "Unshipped", "PurchaseDate": "2026-10-17T09:00:00Z",
					 "OrderTotal": {"CurrencyCode": "TRY", "Amount": "300.00"},
					 "ShippingAddress": {"Name": "Ece", "AddressLine1": "Bagdat Cd.", "City": "Istanbul"}}
				]}}`))
				return
			}
			assert.Equal(t, "n1", r.URL.Query().Get("NextToken"))
			w.Write([]byte(`{"payload": {"Orders": [
				{"AmazonOrderId": "402-2", "OrderStatus": "Canceled", "PurchaseDate": "2026-10-16T09:00:00Z"}
			]}}`))
		case "/orders/v0/orders/402-1/orderItems":
			w.Write([]byte(`{"payload": {"OrderItems": [
				{"OrderItemId": "i1", "SellerSKU": "SKU-1", "ASIN": "B0001", "QuantityOrdered": 3, "ItemPrice": {"Amount": "300.00"}}
			]}}`))
		case "/orders/v0/orders/402-2/orderItems":
			w.Write([]byte(`{"payload": {"OrderItems": []}}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.APIKey = "token"
	adapter, err := NewAmazonAdapter(cfg)
	require.NoError(t, err)

	page, err := adapter.FetchOrders(context.Background(), testWindow(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.TotalPages)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, int32(4), calls.Load())

	first := page.Orders[0]
	assert.Equal(t, "402-1", first.OrderNumber)
	assert.Equal(t, order.StatusReadyToShip, first.Status)
	assert.Equal(t, "Ece", first.CustomerName)
	require.Len(t, first.Lines, 1)
	assert.Equal(t, "SKU-1", first.Lines[0].Barcode)
	assert.True(t, decimal.NewFromInt(100).Equal(first.Lines[0].UnitPrice))
	assert.Equal(t, order.StatusCancelled, page.Orders[1].Status)

	// later pages are empty
	page, err = adapter.FetchOrders(context.Background(), testWindow(), 1)
	require.NoError(t, err)
	assert.Empty(t, page.Orders)
	assert.Equal(t, int32(4), calls.Load())
}

func TestAmazonAdapter_PushStock(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		var body AmazonListingPatch
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Patches, 1)
		assert.Equal(t, "/attributes/fulfillment_availability", body.Patches[0].Path)

		switch {
		case strings.HasSuffix(r.URL.Path, "/1234/ok"):
			w.Write([]byte(`{"sku": "ok", "status": "ACCEPTED"}`))
		case strings.HasSuffix(r.URL.Path, "/1234/bad"):
			w.Write([]byte(`{"sku": "bad", "status": "INVALID", "issues": [{"code": "90220", "message": "not listed", "severity": "ERROR"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"errors": [{"code": "NotFound"}]}`))
		}
	}))
	defer server.Close()

	adapter, err := NewAmazonAdapter(testConfig(server.URL))
	require.NoError(t, err)

	results, err := adapter.PushStock(context.Background(), []marketplace.StockItem{
		{Barcode: "ok", AvailableQty: 1},
		{Barcode: "bad", AvailableQty: 2},
		{Barcode: "gone", AvailableQty: 3},
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.ErrorContains(t, results[1].Err, "90220: not listed")
	assert.ErrorIs(t, results[2].Err, marketplace.ErrRejected)
}
