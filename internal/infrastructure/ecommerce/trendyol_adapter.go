package ecommerce

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sellerops/console/internal/domain/barcode"
	"github.com/sellerops/console/internal/domain/marketplace"
	"github.com/sellerops/console/internal/domain/order"
)

// trendyolStatuses maps shipment package statuses. Returned and
// UnSupplied packages are handled outside the order tables.
var trendyolStatuses = marketplace.CommonStatuses.Extend(marketplace.StatusMap{
	"awaiting":          order.StatusCreated,
	"created":           order.StatusCreated,
	"picking":           order.StatusPicking,
	"invoiced":          order.StatusPicking,
	"shipped":           order.StatusShipped,
	"atcollectionpoint": order.StatusShipped,
	"undelivered":       order.StatusShipped,
	"delivered":         order.StatusDelivered,
	"cancelled":         order.StatusCancelled,
})

// TrendyolAdapter pulls shipment packages and pushes inventory for one
// Trendyol seller account.
type TrendyolAdapter struct {
	config *Config
	client *client
}

// NewTrendyolAdapter creates a new Trendyol adapter with the given configuration
func NewTrendyolAdapter(cfg Config) (*TrendyolAdapter, error) {
	cfg.Marketplace = marketplace.Trendyol
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &TrendyolAdapter{
		config: &cfg,
		client: newClient(&cfg, func(req *http.Request) {
			req.SetBasicAuth(cfg.APIKey, cfg.APISecret)
			req.Header.Set("User-Agent", cfg.SellerID+" - SelfIntegration")
		}),
	}, nil
}

// Marketplace returns the marketplace this adapter handles
func (a *TrendyolAdapter) Marketplace() marketplace.Marketplace {
	return marketplace.Trendyol
}

// FetchOrders reads one zero-based page of shipment packages.
func (a *TrendyolAdapter) FetchOrders(ctx context.Context, window marketplace.Window, page int) (*marketplace.Page, error) {
	query := url.Values{}
	query.Set("startDate", strconv.FormatInt(window.Since.UnixMilli(), 10))
	query.Set("endDate", strconv.FormatInt(window.Until.UnixMilli(), 10))
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(a.config.PageSize))
	query.Set("orderByField", "PackageLastModifiedDate")
	query.Set("orderByDirection", "DESC")

	var resp TrendyolOrdersResponse
	path := fmt.Sprintf("/integration/order/sellers/%s/orders", url.PathEscape(a.config.SellerID))
	if _, err := a.client.getJSON(ctx, path, query, &resp); err != nil {
		return nil, err
	}

	out := &marketplace.Page{TotalPages: resp.TotalPages, Orders: make([]marketplace.RemoteOrder, 0, len(resp.Content))}
	for i := range resp.Content {
		out.Orders = append(out.Orders, convertTrendyolOrder(&resp.Content[i]))
	}
	return out, nil
}

func convertTrendyolOrder(o *TrendyolShipmentOrder) marketplace.RemoteOrder {
	status, _ := trendyolStatuses.Map(o.Status)
	name := strings.TrimSpace(o.CustomerFirstName + " " + o.CustomerLastName)
	if name == "" {
		name = o.ShipmentAddress.FullName
	}
	remote := marketplace.RemoteOrder{
		OrderNumber:       o.OrderNumber,
		RemoteStatus:      o.Status,
		Status:            status,
		ShipmentPackageID: itoa(o.ShipmentPackageID),
		PackageNumber:     itoa(o.ID),
		CustomerName:      name,
		CustomerAddress:   o.ShipmentAddress.FullAddress,
		CustomerPhone:     o.ShipmentAddress.Phone,
		CargoTrackingNo:   o.CargoTrackingNumber.String(),
		CargoProvider:     o.CargoProviderName,
		TotalAmount:       o.TotalPrice,
		Currency:          o.CurrencyCode,
	}
	if o.OrderDate > 0 {
		remote.OrderDate, _ = marketplace.ParseOrderDate(o.OrderDate)
	}
	for _, l := range o.Lines {
		remote.Lines = append(remote.Lines, marketplace.RemoteLine{
			Barcode:       l.Barcode,
			Quantity:      l.Quantity,
			LineID:        itoa(l.ID),
			UnitPrice:     l.Price,
			Size:          l.ProductSize,
			Color:         l.ProductColor,
			ProductMainID: l.ProductCode.String(),
		})
	}
	return remote
}

// PushStock posts one inventory batch and reads back the per-item verdicts.
func (a *TrendyolAdapter) PushStock(ctx context.Context, items []marketplace.StockItem) ([]marketplace.ItemResult, error) {
	body := TrendyolInventoryRequest{Items: make([]TrendyolInventoryItem, 0, len(items))}
	for _, it := range items {
		body.Items = append(body.Items, TrendyolInventoryItem{Barcode: it.Barcode, Quantity: it.AvailableQty})
	}
	path := fmt.Sprintf("/integration/inventory/sellers/%s/products/price-and-inventory", url.PathEscape(a.config.SellerID))
	resp, err := a.client.do(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return nil, err
	}
	var ack TrendyolBatchResponse
	if err := decode(resp.body, &ack); err != nil {
		return nil, err
	}
	if ack.BatchRequestID == "" {
		return nil, marketplace.ErrMalformedPayload.WithDetails("missing batchRequestId")
	}

	var result TrendyolBatchResult
	resultPath := fmt.Sprintf("/integration/product/sellers/%s/products/batch-requests/%s",
		url.PathEscape(a.config.SellerID), url.PathEscape(ack.BatchRequestID))
	if _, err := a.client.getJSON(ctx, resultPath, nil, &result); err != nil {
		return nil, err
	}

	failed := make(map[string]error)
	for _, it := range result.Items {
		if strings.EqualFold(it.Status, "FAILED") {
			reason := strings.Join(it.FailureReasons, "; ")
			if reason == "" {
				reason = "rejected"
			}
			failed[barcode.Normalize(it.RequestItem.Barcode)] = errors.New(reason)
		}
	}
	out := make([]marketplace.ItemResult, 0, len(items))
	for _, it := range items {
		out = append(out, marketplace.ItemResult{Barcode: it.Barcode, Err: failed[barcode.Normalize(it.Barcode)]})
	}
	return out, nil
}

// Ensure TrendyolAdapter implements the marketplace ports
var (
	_ marketplace.OrderSource = (*TrendyolAdapter)(nil)
	_ marketplace.StockPusher = (*TrendyolAdapter)(nil)
)
