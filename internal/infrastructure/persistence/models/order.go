package models

import (
	"encoding/json"
	"time"

	"github.com/sellerops/console/internal/domain/inventory"
	"github.com/sellerops/console/internal/domain/order"
	"github.com/shopspring/decimal"
)

// OrderTables names the physical table of every status.
var OrderTables = map[order.Status]string{
	order.StatusCreated:     "orders_created",
	order.StatusReadyToShip: "orders_ready_to_ship",
	order.StatusPicking:     "orders_picking",
	order.StatusShipped:     "orders_shipped",
	order.StatusDelivered:   "orders_delivered",
	order.StatusCancelled:   "orders_cancelled",
	order.StatusArchive:     "orders_archive",
}

// OrderModel is the row layout shared by the seven status tables. It has no
// TableName; repositories always pick the table with db.Table.
type OrderModel struct {
	OrderNumber       string          `gorm:"type:varchar(128);primaryKey"`
	Marketplace       string          `gorm:"type:varchar(32);not null;default:''"`
	MarketplaceStatus string          `gorm:"type:varchar(64);not null;default:''"`
	OrderDate         time.Time       `gorm:"not null"`
	CustomerName      string          `gorm:"type:varchar(255)"`
	CustomerAddress   string          `gorm:"type:text"`
	CustomerPhone     string          `gorm:"type:varchar(64)"`
	PackageNumber     string          `gorm:"type:varchar(128)"`
	ShipmentPackageID string          `gorm:"type:varchar(128)"`
	CargoTrackingNo   string          `gorm:"type:varchar(128)"`
	CargoProvider     string          `gorm:"type:varchar(128)"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Currency          string          `gorm:"type:varchar(8)"`
	Details           string          `gorm:"type:text;not null"`
	StockConsumed     bool            `gorm:"not null;default:false"`
	Allocations       string          `gorm:"type:text"`

	PickingStartTime   *time.Time
	ShippingTime       *time.Time
	DeliveryTime       *time.Time
	CancellationDate   *time.Time
	CancellationReason string `gorm:"type:text"`
	ArchiveDate        *time.Time
	ArchiveReason      string `gorm:"type:text"`
	PreArchiveStatus   string `gorm:"type:varchar(32)"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts the row read from the table of status to a domain Order.
func (m *OrderModel) ToDomain(status order.Status) *order.Order {
	o := &order.Order{
		OrderNumber:        m.OrderNumber,
		Marketplace:        m.Marketplace,
		Status:             status,
		MarketplaceStatus:  m.MarketplaceStatus,
		OrderDate:          m.OrderDate,
		CustomerName:       m.CustomerName,
		CustomerAddress:    m.CustomerAddress,
		CustomerPhone:      m.CustomerPhone,
		PackageNumber:      m.PackageNumber,
		ShipmentPackageID:  m.ShipmentPackageID,
		CargoTrackingNo:    m.CargoTrackingNo,
		CargoProvider:      m.CargoProvider,
		TotalAmount:        m.TotalAmount,
		Currency:           m.Currency,
		DetailsRaw:         m.Details,
		StockConsumed:      m.StockConsumed,
		PickingStartTime:   m.PickingStartTime,
		ShippingTime:       m.ShippingTime,
		DeliveryTime:       m.DeliveryTime,
		CancellationDate:   m.CancellationDate,
		CancellationReason: m.CancellationReason,
		ArchiveDate:        m.ArchiveDate,
		ArchiveReason:      m.ArchiveReason,
		PreArchiveStatus:   order.Status(m.PreArchiveStatus),
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
	if m.Allocations != "" {
		var allocs []inventory.Allocation
		if err := json.Unmarshal([]byte(m.Allocations), &allocs); err == nil {
			o.Allocations = allocs
		}
	}
	return o
}

// FromDomain populates the persistence model from a domain Order.
func (m *OrderModel) FromDomain(o *order.Order) {
	m.OrderNumber = o.OrderNumber
	m.Marketplace = o.Marketplace
	m.MarketplaceStatus = o.MarketplaceStatus
	m.OrderDate = o.OrderDate
	m.CustomerName = o.CustomerName
	m.CustomerAddress = o.CustomerAddress
	m.CustomerPhone = o.CustomerPhone
	m.PackageNumber = o.PackageNumber
	m.ShipmentPackageID = o.ShipmentPackageID
	m.CargoTrackingNo = o.CargoTrackingNo
	m.CargoProvider = o.CargoProvider
	m.TotalAmount = o.TotalAmount
	m.Currency = o.Currency
	m.Details = o.DetailsRaw
	m.StockConsumed = o.StockConsumed
	m.Allocations = ""
	if len(o.Allocations) > 0 {
		if b, err := json.Marshal(o.Allocations); err == nil {
			m.Allocations = string(b)
		}
	}
	m.PickingStartTime = o.PickingStartTime
	m.ShippingTime = o.ShippingTime
	m.DeliveryTime = o.DeliveryTime
	m.CancellationDate = o.CancellationDate
	m.CancellationReason = o.CancellationReason
	m.ArchiveDate = o.ArchiveDate
	m.ArchiveReason = o.ArchiveReason
	m.PreArchiveStatus = string(o.PreArchiveStatus)
	m.CreatedAt = o.CreatedAt
	m.UpdatedAt = o.UpdatedAt
}

// OrderModelFromDomain creates a persistence model from a domain Order.
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}
