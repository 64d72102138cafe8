package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/sellerops/console/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the Product domain entity.
// Marketplaces is stored comma-delimited with leading and trailing commas so
// a listing lookup is a single LIKE on ",name,".
type ProductModel struct {
	Barcode      string          `gorm:"type:varchar(128);primaryKey"`
	Title        string          `gorm:"type:varchar(255);not null"`
	ModelID      string          `gorm:"type:varchar(64)"`
	Color        string          `gorm:"type:varchar(64)"`
	Size         string          `gorm:"type:varchar(32)"`
	Price        decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Attributes   string          `gorm:"type:text"`
	Marketplaces string          `gorm:"type:varchar(255);not null;default:''"`
	Archived     bool            `gorm:"not null;default:false"`
	Hidden       bool            `gorm:"not null;default:false"`
	UpdatedAt    time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// MarketplaceToken is the LIKE operand matching one listing.
func MarketplaceToken(name string) string {
	return "%," + name + ",%"
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() *catalog.Product {
	p := &catalog.Product{
		Barcode:    m.Barcode,
		Title:      m.Title,
		ModelID:    m.ModelID,
		Color:      m.Color,
		Size:       m.Size,
		Price:      m.Price,
		Attributes: map[string]string{},
		Archived:   m.Archived,
		Hidden:     m.Hidden,
		UpdatedAt:  m.UpdatedAt,
	}
	if m.Attributes != "" {
		_ = json.Unmarshal([]byte(m.Attributes), &p.Attributes)
	}
	for _, name := range strings.Split(m.Marketplaces, ",") {
		if name != "" {
			p.Marketplaces = append(p.Marketplaces, name)
		}
	}
	return p
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.Barcode = p.Barcode
	m.Title = p.Title
	m.ModelID = p.ModelID
	m.Color = p.Color
	m.Size = p.Size
	m.Price = p.Price
	m.Archived = p.Archived
	m.Hidden = p.Hidden
	m.UpdatedAt = p.UpdatedAt
	m.Attributes = ""
	if len(p.Attributes) > 0 {
		if b, err := json.Marshal(p.Attributes); err == nil {
			m.Attributes = string(b)
		}
	}
	m.Marketplaces = ""
	if len(p.Marketplaces) > 0 {
		m.Marketplaces = "," + strings.Join(p.Marketplaces, ",") + ","
	}
}

// ProductModelFromDomain creates a new persistence model from a domain Product entity.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}
