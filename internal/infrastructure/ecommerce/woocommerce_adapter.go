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
	"github.com/shopspring/decimal"
)

var wooStatuses = marketplace.StatusMap{
	"pending":    order.StatusCreated,
	"on-hold":    order.StatusCreated,
	"processing": order.StatusReadyToShip,
	"shipped":    order.StatusShipped,
	"completed":  order.StatusDelivered,
	"cancelled":  order.StatusCancelled,
	"refunded":   order.StatusCancelled,
}

// wooTrackingKeys are the order meta keys shipment tracking plugins use.
var wooTrackingKeys = []string{"_tracking_number", "_aftership_tracking_number", "tracking_number"}

// WooCommerceAdapter pulls orders from and pushes stock to one WooCommerce
// store. Barcodes are product SKUs.
type WooCommerceAdapter struct {
	config *Config
	client *client
}

// NewWooCommerceAdapter creates a new WooCommerce adapter. APIKey and
// APISecret are the REST consumer key and secret.
func NewWooCommerceAdapter(cfg Config) (*WooCommerceAdapter, error) {
	cfg.Marketplace = marketplace.WooCommerce
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &WooCommerceAdapter{
		config: &cfg,
		client: newClient(&cfg, func(req *http.Request) {
			req.SetBasicAuth(cfg.APIKey, cfg.APISecret)
		}),
	}, nil
}

// Marketplace returns the marketplace this adapter handles
func (a *WooCommerceAdapter) Marketplace() marketplace.Marketplace {
	return marketplace.WooCommerce
}

// FetchOrders reads one page; the page count comes from X-WP-TotalPages.
func (a *WooCommerceAdapter) FetchOrders(ctx context.Context, window marketplace.Window, page int) (*marketplace.Page, error) {
	query := url.Values{}
	query.Set("after", window.Since.UTC().Format("2006-01-02T15:04:05"))
	query.Set("before", window.Until.UTC().Format("2006-01-02T15:04:05"))
	query.Set("dates_are_gmt", "true")
	query.Set("page", strconv.Itoa(page+1))
	query.Set("per_page", strconv.Itoa(min(a.config.PageSize, 100)))
	query.Set("orderby", "date")
	query.Set("order", "desc")

	var orders []WooOrder
	header, err := a.client.getJSON(ctx, "/wp-json/wc/v3/orders", query, &orders)
	if err != nil {
		return nil, err
	}
	totalPages, _ := strconv.Atoi(header.Get("X-WP-TotalPages"))

	out := &marketplace.Page{TotalPages: totalPages, Orders: make([]marketplace.RemoteOrder, 0, len(orders))}
	for i := range orders {
		remote, err := convertWooOrder(&orders[i])
		if err != nil {
			return nil, err
		}
		out.Orders = append(out.Orders, remote)
	}
	return out, nil
}

func convertWooOrder(o *WooOrder) (marketplace.RemoteOrder, error) {
	status, _ := wooStatuses.Map(o.Status)
	addr := o.Shipping
	if addr.Address1 == "" {
		addr = o.Billing
	}
	remote := marketplace.RemoteOrder{
		OrderNumber:     strings.TrimSpace(o.Number),
		RemoteStatus:    o.Status,
		Status:          status,
		PackageNumber:   itoa(o.ID),
		CustomerName:    strings.TrimSpace(addr.FirstName + " " + addr.LastName),
		CustomerAddress: joinNonEmpty(", ", addr.Address1, addr.Address2, addr.Postcode, addr.City, addr.State),
		CustomerPhone:   o.Billing.Phone,
		CargoTrackingNo: metaString(o.MetaData, wooTrackingKeys...),
		Currency:        o.Currency,
	}
	if len(o.ShippingLines) > 0 {
		remote.CargoProvider = o.ShippingLines[0].MethodTitle
	}
	if o.DateCreatedGMT != "" {
		date, err := marketplace.ParseOrderDate(o.DateCreatedGMT)
		if err != nil {
			return remote, err
		}
		remote.OrderDate = date
	}
	if o.Total != "" {
		total, err := decimal.NewFromString(o.Total)
		if err != nil {
			return remote, marketplace.ErrMalformedPayload.WithDetails("order %d total %q", o.ID, o.Total)
		}
		remote.TotalAmount = total
	}
	for _, li := range o.LineItems {
		price, _ := decimal.NewFromString(li.Price.String())
		remote.Lines = append(remote.Lines, marketplace.RemoteLine{
			Barcode:   li.SKU,
			Quantity:  li.Quantity,
			LineID:    itoa(li.ID),
			UnitPrice: price,
			Size:      metaString(li.MetaData, "pa_size", "size", "beden"),
			Color:     metaString(li.MetaData, "pa_color", "color", "renk"),
		})
	}
	return remote, nil
}

// PushStock resolves SKUs to product ids and updates them in one batch.
func (a *WooCommerceAdapter) PushStock(ctx context.Context, items []marketplace.StockItem) ([]marketplace.ItemResult, error) {
	skus := make([]string, 0, len(items))
	for _, it := range items {
		skus = append(skus, it.Barcode)
	}
	query := url.Values{}
	query.Set("sku", strings.Join(skus, ","))
	query.Set("per_page", "100")
	var products []WooProduct
	if _, err := a.client.getJSON(ctx, "/wp-json/wc/v3/products", query, &products); err != nil {
		return nil, err
	}
	ids := make(map[string]int64, len(products))
	for _, p := range products {
		ids[barcode.Normalize(p.SKU)] = p.ID
	}

	failed := make(map[string]error)
	batch := WooBatchRequest{}
	skuOf := make(map[int64]string)
	for _, it := range items {
		id, ok := ids[barcode.Normalize(it.Barcode)]
		if !ok {
			failed[it.Barcode] = errors.New("sku not found")
			continue
		}
		skuOf[id] = it.Barcode
		batch.Update = append(batch.Update, WooStockUpdate{ID: id, ManageStock: true, StockQuantity: it.AvailableQty})
	}

	if len(batch.Update) > 0 {
		resp, err := a.client.do(ctx, http.MethodPost, "/wp-json/wc/v3/products/batch", nil, batch)
		if err != nil {
			return nil, err
		}
		var result WooBatchResponse
		if err := decode(resp.body, &result); err != nil {
			return nil, err
		}
		for _, u := range result.Update {
			if u.Error != nil {
				failed[skuOf[u.ID]] = fmt.Errorf("%s: %s", u.Error.Code, u.Error.Message)
			}
		}
	}

	out := make([]marketplace.ItemResult, 0, len(items))
	for _, it := range items {
		out = append(out, marketplace.ItemResult{Barcode: it.Barcode, Err: failed[it.Barcode]})
	}
	return out, nil
}

func metaString(meta []WooMetaEntry, keys ...string) string {
	for _, k := range keys {
		for _, m := range meta {
			if strings.EqualFold(m.Key, k) {
				if s, ok := m.Value.(string); ok && s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}

// Ensure WooCommerceAdapter implements the marketplace ports
var (
	_ marketplace.OrderSource = (*WooCommerceAdapter)(nil)
	_ marketplace.StockPusher = (*WooCommerceAdapter)(nil)
)
