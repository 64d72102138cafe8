package ecommerce

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sellerops/console/internal/domain/marketplace"
	"github.com/sellerops/console/internal/domain/order"
	"github.com/shopspring/decimal"
)

var amazonStatuses = marketplace.StatusMap{
	"pending":            order.StatusCreated,
	"unshipped":          order.StatusReadyToShip,
	"partiallyshipped":   order.StatusPicking,
	"shipped":            order.StatusShipped,
	"invoiceunconfirmed": order.StatusShipped,
	"canceled":           order.StatusCancelled,
}

// AmazonAdapter reads orders and updates listing quantities through the
// Selling Partner API. APIKey is an LWA access token; refreshing it is the
// caller's concern.
type AmazonAdapter struct {
	config *Config
	client *client
}

// NewAmazonAdapter creates a new Amazon adapter
func NewAmazonAdapter(cfg Config) (*AmazonAdapter, error) {
	cfg.Marketplace = marketplace.Amazon
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &AmazonAdapter{
		config: &cfg,
		client: newClient(&cfg, func(req *http.Request) {
			req.Header.Set("x-amz-access-token", cfg.APIKey)
		}),
	}, nil
}

// Marketplace returns the marketplace this adapter handles
func (a *AmazonAdapter) Marketplace() marketplace.Marketplace {
	return marketplace.Amazon
}

// FetchOrders follows the NextToken chain on page 0 and reports a single
// page. The API has no random page access.
func (a *AmazonAdapter) FetchOrders(ctx context.Context, window marketplace.Window, page int) (*marketplace.Page, error) {
	out := &marketplace.Page{TotalPages: 1}
	if page > 0 {
		return out, nil
	}

	query := url.Values{}
	query.Set("MarketplaceIds", a.config.MarketplaceID)
	query.Set("LastUpdatedAfter", window.Since.UTC().Format(time.RFC3339))
	query.Set("LastUpdatedBefore", window.Until.UTC().Format(time.RFC3339))
	query.Set("MaxResultsPerPage", fmt.Sprint(min(a.config.PageSize, 100)))

	for {
		var resp AmazonOrdersResponse
		if _, err := a.client.getJSON(ctx, "/orders/v0/orders", query, &resp); err != nil {
			return nil, err
		}
		for i := range resp.Payload.Orders {
			remote, err := a.convertOrder(ctx, &resp.Payload.Orders[i])
			if err != nil {
				return nil, err
			}
			out.Orders = append(out.Orders, remote)
		}
		if resp.Payload.NextToken == "" {
			return out, nil
		}
		query = url.Values{}
		query.Set("MarketplaceIds", a.config.MarketplaceID)
		query.Set("NextToken", resp.Payload.NextToken)
	}
}

func (a *AmazonAdapter) convertOrder(ctx context.Context, o *AmazonOrder) (marketplace.RemoteOrder, error) {
	status, _ := amazonStatuses.Map(o.OrderStatus)
	remote := marketplace.RemoteOrder{
		OrderNumber:   o.AmazonOrderID,
		RemoteStatus:  o.OrderStatus,
		Status:        status,
		CargoProvider: o.ShipServiceLevel,
	}
	if o.PurchaseDate != "" {
		date, err := marketplace.ParseOrderDate(o.PurchaseDate)
		if err != nil {
			return remote, err
		}
		remote.OrderDate = date
	}
	if o.OrderTotal != nil {
		remote.Currency = o.OrderTotal.CurrencyCode
		if total, err := decimal.NewFromString(o.OrderTotal.Amount); err == nil {
			remote.TotalAmount = total
		}
	}
	if addr := o.ShippingAddress; addr != nil {
		remote.CustomerName = addr.Name
		remote.CustomerPhone = addr.Phone
		remote.CustomerAddress = joinNonEmpty(", ", addr.AddressLine1, addr.AddressLine2, addr.PostalCode, addr.City, addr.StateOrRegion)
	}
	if remote.CustomerName == "" && o.BuyerInfo != nil {
		remote.CustomerName = o.BuyerInfo.BuyerName
	}

	items, err := a.orderItems(ctx, o.AmazonOrderID)
	if err != nil {
		return remote, err
	}
	for _, it := range items {
		line := marketplace.RemoteLine{
			Barcode:       it.SellerSKU,
			Quantity:      it.QuantityOrdered,
			LineID:        it.OrderItemID,
			ProductMainID: it.ASIN,
		}
		if it.ItemPrice != nil && it.QuantityOrdered > 0 {
			if total, err := decimal.NewFromString(it.ItemPrice.Amount); err == nil {
				line.UnitPrice = total.Div(decimal.NewFromInt(int64(it.QuantityOrdered)))
			}
		}
		remote.Lines = append(remote.Lines, line)
	}
	return remote, nil
}

func (a *AmazonAdapter) orderItems(ctx context.Context, orderID string) ([]AmazonOrderItem, error) {
	path := fmt.Sprintf("/orders/v0/orders/%s/orderItems", url.PathEscape(orderID))
	var items []AmazonOrderItem
	query := url.Values{}
	for {
		var resp AmazonOrderItemsResponse
		if _, err := a.client.getJSON(ctx, path, query, &resp); err != nil {
			return nil, err
		}
		items = append(items, resp.Payload.OrderItems...)
		if resp.Payload.NextToken == "" {
			return items, nil
		}
		query = url.Values{"NextToken": {resp.Payload.NextToken}}
	}
}

// PushStock patches the fulfillment availability of each SKU. Listings are
// updated one at a time; a rejected listing fails only its own item.
func (a *AmazonAdapter) PushStock(ctx context.Context, items []marketplace.StockItem) ([]marketplace.ItemResult, error) {
	out := make([]marketplace.ItemResult, 0, len(items))
	for _, it := range items {
		err := a.patchQuantity(ctx, it)
		if err != nil && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		out = append(out, marketplace.ItemResult{Barcode: it.Barcode, Err: err})
	}
	return out, nil
}

func (a *AmazonAdapter) patchQuantity(ctx context.Context, it marketplace.StockItem) error {
	path := fmt.Sprintf("/listings/2021-08-01/items/%s/%s",
		url.PathEscape(a.config.SellerID), url.PathEscape(it.Barcode))
	availability := map[string]any{
		"fulfillment_channel_code": "DEFAULT",
		"quantity":                 it.AvailableQty,
	}
	body := AmazonListingPatch{
		ProductType: "PRODUCT",
		Patches: []AmazonPatchOperation{
			{Op: "replace", Path: "/attributes/fulfillment_availability", Value: []any{availability}},
		},
	}
	resp, err := a.client.do(ctx, http.MethodPatch, path, url.Values{"marketplaceIds": {a.config.MarketplaceID}}, body)
	if err != nil {
		return err
	}
	var verdict AmazonListingResponse
	if err := decode(resp.body, &verdict); err != nil {
		return err
	}
	if strings.EqualFold(verdict.Status, "ACCEPTED") {
		return nil
	}
	msgs := make([]string, 0, len(verdict.Issues))
	for _, issue := range verdict.Issues {
		if strings.EqualFold(issue.Severity, "ERROR") {
			msgs = append(msgs, issue.Code+": "+issue.Message)
		}
	}
	if len(msgs) == 0 {
		msgs = append(msgs, "status "+verdict.Status)
	}
	return fmt.Errorf("listing %s rejected: %s", it.Barcode, strings.Join(msgs, "; "))
}

// Ensure AmazonAdapter implements the marketplace ports
var (
	_ marketplace.OrderSource = (*AmazonAdapter)(nil)
	_ marketplace.StockPusher = (*AmazonAdapter)(nil)
)
