package order

import (
	"time"

	"github.com/sellerops/console/internal/domain/inventory"
	"github.com/sellerops/console/internal/domain/order"
	"github.com/shopspring/decimal"
)

// OrderResponse is the API view of an order.
type OrderResponse struct {
	OrderNumber        string                 `json:"order_number"`
	Status             order.Status           `json:"status"`
	Marketplace        string                 `json:"marketplace,omitempty"`
	MarketplaceStatus  string                 `json:"marketplace_status,omitempty"`
	OrderDate          time.Time              `json:"order_date"`
	CustomerName       string                 `json:"customer_name,omitempty"`
	CustomerAddress    string                 `json:"customer_address,omitempty"`
	CustomerPhone      string                 `json:"customer_phone,omitempty"`
	PackageNumber      string                 `json:"package_number,omitempty"`
	ShipmentPackageID  string                 `json:"shipment_package_id,omitempty"`
	CargoTrackingNo    string                 `json:"cargo_tracking_no,omitempty"`
	CargoProvider      string                 `json:"cargo_provider,omitempty"`
	TotalAmount        decimal.Decimal        `json:"total_amount"`
	Currency           string                 `json:"currency,omitempty"`
	Lines              order.Details          `json:"lines"`
	StockConsumed      bool                   `json:"stock_consumed"`
	Allocations        []inventory.Allocation `json:"allocations,omitempty"`
	PickingStartTime   *time.Time             `json:"picking_start_time,omitempty"`
	ShippingTime       *time.Time             `json:"shipping_time,omitempty"`
	DeliveryTime       *time.Time             `json:"delivery_time,omitempty"`
	CancellationDate   *time.Time             `json:"cancellation_date,omitempty"`
	CancellationReason string                 `json:"cancellation_reason,omitempty"`
	ArchiveDate        *time.Time             `json:"archive_date,omitempty"`
	ArchiveReason      string                 `json:"archive_reason,omitempty"`
	PreArchiveStatus   order.Status           `json:"pre_archive_status,omitempty"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

// ToOrderResponse converts a domain Order to a response. Unreadable details
// are reported as an empty line list.
func ToOrderResponse(o *order.Order) OrderResponse {
	lines, err := o.Details()
	if err != nil || lines == nil {
		lines = order.Details{}
	}
	return OrderResponse{
		OrderNumber:        o.OrderNumber,
		Status:             o.Status,
		Marketplace:        o.Marketplace,
		MarketplaceStatus:  o.MarketplaceStatus,
		OrderDate:          o.OrderDate,
		CustomerName:       o.CustomerName,
		CustomerAddress:    o.CustomerAddress,
		CustomerPhone:      o.CustomerPhone,
		PackageNumber:      o.PackageNumber,
		ShipmentPackageID:  o.ShipmentPackageID,
		CargoTrackingNo:    o.CargoTrackingNo,
		CargoProvider:      o.CargoProvider,
		TotalAmount:        o.TotalAmount,
		Currency:           o.Currency,
		Lines:              lines,
		StockConsumed:      o.StockConsumed,
		Allocations:        o.Allocations,
		PickingStartTime:   o.PickingStartTime,
		ShippingTime:       o.ShippingTime,
		DeliveryTime:       o.DeliveryTime,
		CancellationDate:   o.CancellationDate,
		CancellationReason: o.CancellationReason,
		ArchiveDate:        o.ArchiveDate,
		ArchiveReason:      o.ArchiveReason,
		PreArchiveStatus:   o.PreArchiveStatus,
		UpdatedAt:          o.UpdatedAt,
	}
}
