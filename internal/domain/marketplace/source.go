// Package marketplace describes the capabilities the core needs from a
// remote marketplace: paged order pulls and stock pushes.
package marketplace

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sellerops/console/internal/domain/order"
	"github.com/sellerops/console/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Marketplace identifies a remote sales channel.
type Marketplace string

const (
	Trendyol    Marketplace = "trendyol"
	Amazon      Marketplace = "amazon"
	Idefix      Marketplace = "idefix"
	WooCommerce Marketplace = "woocommerce"
)

// All lists the supported marketplaces.
var All = []Marketplace{Trendyol, Amazon, Idefix, WooCommerce}

// Parse validates a marketplace name.
func Parse(s string) (Marketplace, error) {
	m := Marketplace(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range All {
		if m == known {
			return m, nil
		}
	}
	return "", shared.ErrInvalidInput.WithDetails("unknown marketplace %q", s)
}

// Window bounds an order pull.
type Window struct {
	Since time.Time
	Until time.Time
}

// LookbackWindow ends at now and starts days earlier.
func LookbackWindow(now time.Time, days int) Window {
	return Window{Since: now.AddDate(0, 0, -days), Until: now}
}

// Validate rejects empty or inverted windows.
func (w Window) Validate() error {
	if w.Since.IsZero() || w.Until.IsZero() || !w.Since.Before(w.Until) {
		return shared.ErrInvalidInput.WithDetails("invalid window %s..%s",
			w.Since.Format(time.RFC3339), w.Until.Format(time.RFC3339))
	}
	return nil
}

// RemoteLine is one line of a marketplace order.
type RemoteLine struct {
	Barcode       string
	Quantity      int
	LineID        string
	UnitPrice     decimal.Decimal
	Size          string
	Color         string
	ProductMainID string
}

// RemoteOrder is an order as normalized by a source adapter. Status holds
// the local status the remote status maps to.
type RemoteOrder struct {
	OrderNumber       string
	RemoteStatus      string
	Status            order.Status
	OrderDate         time.Time
	Lines             []RemoteLine
	PackageNumber     string
	ShipmentPackageID string
	CustomerName      string
	CustomerAddress   string
	CustomerPhone     string
	CargoTrackingNo   string
	CargoProvider     string
	TotalAmount       decimal.Decimal
	Currency          string
}

// Page is one page of a paged order listing.
type Page struct {
	Orders     []RemoteOrder
	TotalPages int
}

// OrderSource pulls orders from one marketplace. Pages are zero-based.
type OrderSource interface {
	Marketplace() Marketplace
	FetchOrders(ctx context.Context, window Window, page int) (*Page, error)
}

// StockItem is one outbound availability update.
type StockItem struct {
	Barcode      string `json:"barcode"`
	AvailableQty int    `json:"availableQty"`
}

// ItemResult is the marketplace verdict for one pushed item.
type ItemResult struct {
	Barcode string
	Err     error
}

// StockPusher posts availability batches to one marketplace.
type StockPusher interface {
	Marketplace() Marketplace
	// PushStock returns per-item results. A non-nil error means the whole
	// batch failed.
	PushStock(ctx context.Context, items []StockItem) ([]ItemResult, error)
}

// ParseOrderDate accepts epoch milliseconds or ISO-8601 timestamps.
func ParseOrderDate(v any) (time.Time, error) {
	switch t := v.(type) {
	case int64:
		return time.UnixMilli(t).UTC(), nil
	case float64:
		return time.UnixMilli(int64(t)).UTC(), nil
	case string:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.UTC(), nil
			}
		}
		return time.Time{}, ErrMalformedPayload.WithDetails("unparseable order date %q", t)
	}
	return time.Time{}, ErrMalformedPayload.WithDetails("unsupported order date %v", fmt.Sprint(v))
}
