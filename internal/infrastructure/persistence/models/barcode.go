package models

import (
	"time"

	"github.com/sellerops/console/internal/domain/barcode"
)

// BarcodeAliasModel is the persistence model for an alias row.
type BarcodeAliasModel struct {
	Alias     string    `gorm:"type:varchar(128);primaryKey"`
	Canonical string    `gorm:"type:varchar(128);not null;index:idx_barcode_aliases_canonical"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (BarcodeAliasModel) TableName() string {
	return "barcode_aliases"
}

// ToDomain converts the persistence model to a domain Alias.
func (m *BarcodeAliasModel) ToDomain() *barcode.Alias {
	return &barcode.Alias{
		Alias:     m.Alias,
		Canonical: m.Canonical,
		CreatedAt: m.CreatedAt,
	}
}

// BarcodeAliasModelFromDomain creates a persistence model from a domain Alias.
func BarcodeAliasModelFromDomain(a *barcode.Alias) *BarcodeAliasModel {
	return &BarcodeAliasModel{
		Alias:     a.Alias,
		Canonical: a.Canonical,
		CreatedAt: a.CreatedAt,
	}
}
