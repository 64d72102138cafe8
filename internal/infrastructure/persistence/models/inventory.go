package models

import (
	"time"

	"github.com/sellerops/console/internal/domain/inventory"
)

// ShelfModel is the persistence model for a physical shelf.
type ShelfModel struct {
	Code      string    `gorm:"type:varchar(64);primaryKey"`
	Zone      string    `gorm:"type:varchar(64)"`
	Subzone   string    `gorm:"type:varchar(64)"`
	Level     string    `gorm:"type:varchar(64)"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ShelfModel) TableName() string {
	return "shelves"
}

// ToDomain converts the persistence model to a domain Shelf.
func (m *ShelfModel) ToDomain() *inventory.Shelf {
	return &inventory.Shelf{
		Code:    m.Code,
		Zone:    m.Zone,
		Subzone: m.Subzone,
		Level:   m.Level,
	}
}

// CentralStockModel is the persistence model for the per-barcode counter.
type CentralStockModel struct {
	Barcode   string    `gorm:"type:varchar(128);primaryKey"`
	Qty       int       `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CentralStockModel) TableName() string {
	return "central_stocks"
}

// ToDomain converts the persistence model to a domain CentralStock.
func (m *CentralStockModel) ToDomain() *inventory.CentralStock {
	return &inventory.CentralStock{
		Barcode:   m.Barcode,
		Qty:       m.Qty,
		UpdatedAt: m.UpdatedAt,
	}
}

// CentralStockModelFromDomain creates a persistence model from a domain CentralStock.
func CentralStockModelFromDomain(c *inventory.CentralStock) *CentralStockModel {
	return &CentralStockModel{
		Barcode:   c.Barcode,
		Qty:       c.Qty,
		UpdatedAt: c.UpdatedAt,
	}
}

// RafUrunModel is one shelf/barcode row. The column names are the ones the
// warehouse staff already know from the shelf labels.
type RafUrunModel struct {
	RafKodu     string `gorm:"column:raf_kodu;type:varchar(64);primaryKey"`
	UrunBarkodu string `gorm:"column:urun_barkodu;type:varchar(128);primaryKey;index:idx_raf_urun_barkodu"`
	Adet        int    `gorm:"column:adet;not null;default:0"`
}

// TableName returns the table name for GORM
func (RafUrunModel) TableName() string {
	return "raf_urun"
}

// ToDomain converts the persistence model to a domain ShelfStock.
func (m *RafUrunModel) ToDomain() inventory.ShelfStock {
	return inventory.ShelfStock{
		ShelfCode: m.RafKodu,
		Barcode:   m.UrunBarkodu,
		Adet:      m.Adet,
	}
}

// RafUrunModelFromDomain creates a persistence model from a domain ShelfStock.
func RafUrunModelFromDomain(s *inventory.ShelfStock) *RafUrunModel {
	return &RafUrunModel{
		RafKodu:     s.ShelfCode,
		UrunBarkodu: s.Barcode,
		Adet:        s.Adet,
	}
}
