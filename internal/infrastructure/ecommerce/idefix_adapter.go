package ecommerce

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sellerops/console/internal/domain/barcode"
	"github.com/sellerops/console/internal/domain/marketplace"
	"github.com/sellerops/console/internal/domain/order"
	"github.com/shopspring/decimal"
)

var idefixStatuses = marketplace.CommonStatuses.Extend(marketplace.StatusMap{
	"ready_to_ship":     order.StatusReadyToShip,
	"shipment_ready":    order.StatusReadyToShip,
	"in_cargo":          order.StatusShipped,
	"cancelled_by_user": order.StatusCancelled,
})

// IdefixAdapter pulls orders from and uploads inventory to one Idefix
// vendor account.
type IdefixAdapter struct {
	config *Config
	client *client
}

// NewIdefixAdapter creates a new Idefix adapter
func NewIdefixAdapter(cfg Config) (*IdefixAdapter, error) {
	cfg.Marketplace = marketplace.Idefix
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &IdefixAdapter{
		config: &cfg,
		client: newClient(&cfg, func(req *http.Request) {
			req.SetBasicAuth(cfg.APIKey, cfg.APISecret)
		}),
	}, nil
}

// Marketplace returns the marketplace this adapter handles
func (a *IdefixAdapter) Marketplace() marketplace.Marketplace {
	return marketplace.Idefix
}

// FetchOrders reads one zero-based page of the vendor order list.
func (a *IdefixAdapter) FetchOrders(ctx context.Context, window marketplace.Window, page int) (*marketplace.Page, error) {
	query := url.Values{}
	query.Set("startDate", window.Since.UTC().Format(time.RFC3339))
	query.Set("endDate", window.Until.UTC().Format(time.RFC3339))
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(a.config.PageSize))

	var resp IdefixOrdersResponse
	path := fmt.Sprintf("/oms/%s/list", url.PathEscape(a.config.SellerID))
	if _, err := a.client.getJSON(ctx, path, query, &resp); err != nil {
		return nil, err
	}

	totalPages := resp.TotalPages
	if totalPages == 0 && resp.TotalCount > 0 {
		totalPages = (resp.TotalCount + a.config.PageSize - 1) / a.config.PageSize
	}
	out := &marketplace.Page{TotalPages: totalPages, Orders: make([]marketplace.RemoteOrder, 0, len(resp.Items))}
	for i := range resp.Items {
		remote, err := convertIdefixOrder(&resp.Items[i])
		if err != nil {
			return nil, err
		}
		out.Orders = append(out.Orders, remote)
	}
	return out, nil
}

func convertIdefixOrder(o *IdefixOrder) (marketplace.RemoteOrder, error) {
	status, _ := idefixStatuses.Map(o.Status)
	addr := o.ShippingAddress
	remote := marketplace.RemoteOrder{
		OrderNumber:     o.OrderNumber.String(),
		RemoteStatus:    o.Status,
		Status:          status,
		PackageNumber:   o.ID.String(),
		CustomerName:    addr.FullName,
		CustomerAddress: joinNonEmpty(", ", addr.Address, addr.District, addr.City),
		CustomerPhone:   addr.Phone,
		CargoTrackingNo: o.CargoTrackingNumber.String(),
		CargoProvider:   o.CargoCompany,
		Currency:        o.Currency,
	}
	if o.OrderDate != "" {
		date, err := marketplace.ParseOrderDate(o.OrderDate)
		if err != nil {
			return remote, err
		}
		remote.OrderDate = date
	}
	if total := o.TotalPrice.String(); total != "" {
		amount, err := decimal.NewFromString(total)
		if err != nil {
			return remote, marketplace.ErrMalformedPayload.WithDetails("order %s total %q", remote.OrderNumber, total)
		}
		remote.TotalAmount = amount
	}
	for _, li := range o.Items {
		price, _ := decimal.NewFromString(li.Price.String())
		remote.Lines = append(remote.Lines, marketplace.RemoteLine{
			Barcode:   li.Barcode,
			Quantity:  li.Quantity,
			LineID:    li.ID.String(),
			UnitPrice: price,
			Size:      li.Size,
			Color:     li.Color,
		})
	}
	return remote, nil
}

// PushStock uploads the batch and maps the per-barcode verdicts.
func (a *IdefixAdapter) PushStock(ctx context.Context, items []marketplace.StockItem) ([]marketplace.ItemResult, error) {
	req := IdefixInventoryRequest{Items: make([]IdefixInventoryItem, 0, len(items))}
	for _, it := range items {
		req.Items = append(req.Items, IdefixInventoryItem{Barcode: it.Barcode, InventoryQuantity: it.AvailableQty})
	}
	path := fmt.Sprintf("/pim/catalog/%s/inventory-upload", url.PathEscape(a.config.SellerID))
	resp, err := a.client.do(ctx, http.MethodPost, path, nil, req)
	if err != nil {
		return nil, err
	}
	var verdict IdefixInventoryResponse
	if err := decode(resp.body, &verdict); err != nil {
		return nil, err
	}

	failed := make(map[string]error)
	for _, v := range verdict.Items {
		if strings.EqualFold(v.Status, "success") {
			continue
		}
		msg := v.Message
		if msg == "" {
			msg = "status " + v.Status
		}
		failed[barcode.Normalize(v.Barcode)] = errors.New(msg)
	}
	out := make([]marketplace.ItemResult, 0, len(items))
	for _, it := range items {
		out = append(out, marketplace.ItemResult{Barcode: it.Barcode, Err: failed[barcode.Normalize(it.Barcode)]})
	}
	return out, nil
}

// Ensure IdefixAdapter implements the marketplace ports
var (
	_ marketplace.OrderSource = (*IdefixAdapter)(nil)
	_ marketplace.StockPusher = (*IdefixAdapter)(nil)
)
