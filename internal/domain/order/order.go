package order

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/sellerops/console/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// Line is one item of an order's details.
type Line struct {
	Barcode       string          `json:"barcode"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	LineID        string          `json:"line_id,omitempty"`
	Size          string          `json:"size,omitempty"`
	Color         string          `json:"color,omitempty"`
	ProductMainID string          `json:"product_main_id,omitempty"`
}

// Details is the serialized line list stored verbatim with the order.
type Details []Line

// ParseDetails decodes a stored details document.
func ParseDetails(raw string) (Details, error) {
	if strings.TrimSpace(raw) == "" {
		return Details{}, nil
	}
	var d Details
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, ErrInvalidOrder.WithDetails("details: %v", err)
	}
	return d, nil
}

// Encode serializes details for storage.
func (d Details) Encode() (string, error) {
	if d == nil {
		d = Details{}
	}
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// StockLines converts details to inventory lines, preserving order.
func (d Details) StockLines(resolve func(string) string) []inventory.Line {
	out := make([]inventory.Line, 0, len(d))
	for _, l := range d {
		if l.Quantity <= 0 {
			continue
		}
		out = append(out, inventory.Line{Barcode: resolve(l.Barcode), Qty: l.Quantity})
	}
	return out
}

// Total sums quantity times unit price over all lines.
func (d Details) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range d {
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

// Order is the logical order entity. Status names the table it lives in.
type Order struct {
	OrderNumber       string
	Marketplace       string
	Status            Status
	MarketplaceStatus string
	OrderDate         time.Time

	CustomerName    string
	CustomerAddress string
	CustomerPhone   string

	PackageNumber     string
	ShipmentPackageID string
	CargoTrackingNo   string
	CargoProvider     string

	TotalAmount decimal.Decimal
	Currency    string

	// DetailsRaw is the stored details document; it is copied verbatim on
	// every migration.
	DetailsRaw string

	// StockConsumed is set when entry to Picking consumed inventory and
	// cleared when a cancellation restored it.
	StockConsumed bool
	// Allocations records the shelves stock was consumed from.
	Allocations []inventory.Allocation

	PickingStartTime   *time.Time
	ShippingTime       *time.Time
	DeliveryTime       *time.Time
	CancellationDate   *time.Time
	CancellationReason string
	ArchiveDate        *time.Time
	ArchiveReason      string
	PreArchiveStatus   Status

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Details decodes the stored details.
func (o *Order) Details() (Details, error) {
	return ParseDetails(o.DetailsRaw)
}

// SetDetails encodes and stores d.
func (o *Order) SetDetails(d Details) error {
	raw, err := d.Encode()
	if err != nil {
		return err
	}
	o.DetailsRaw = raw
	return nil
}

// Stamp moves the order into target and fills the timestamps that belong
// to the destination table.
func (o *Order) Stamp(target Status, reason string, now time.Time) {
	from := o.Status
	switch target {
	case StatusPicking:
		o.PickingStartTime = &now
	case StatusShipped:
		o.ShippingTime = &now
	case StatusDelivered:
		o.DeliveryTime = &now
	case StatusCancelled:
		o.CancellationDate = &now
		if reason != "" {
			o.CancellationReason = reason
		}
	case StatusArchive:
		o.ArchiveDate = &now
		o.ArchiveReason = reason
		o.PreArchiveStatus = from
	}
	if from == StatusArchive && target != StatusArchive {
		o.ArchiveDate = nil
		o.ArchiveReason = ""
		o.PreArchiveStatus = ""
	}
	o.Status = target
	o.UpdatedAt = now
}
