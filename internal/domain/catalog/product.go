// Package catalog holds product metadata keyed by canonical barcode.
package catalog

import (
	"context"
	"time"

	"github.com/sellerops/console/internal/domain/barcode"
	"github.com/sellerops/console/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Product is catalog metadata for one canonical barcode. Inventory does not
// require a product row, but stock pushes only cover listed products.
type Product struct {
	Barcode      string
	Title        string
	ModelID      string
	Color        string
	Size         string
	Price        decimal.Decimal
	Attributes   map[string]string
	Marketplaces []string
	Archived     bool
	Hidden       bool
	UpdatedAt    time.Time
}

// NewProduct validates the barcode and normalizes marketplace names.
func NewProduct(code, title string, marketplaces []string) (*Product, error) {
	b, err := barcode.Require(code)
	if err != nil {
		return nil, err
	}
	if title == "" {
		return nil, shared.ErrInvalidInput.WithDetails("title is required")
	}
	p := &Product{Barcode: b, Title: title, Attributes: map[string]string{}}
	p.SetMarketplaces(marketplaces)
	return p, nil
}

// SetMarketplaces replaces the listing flags, dropping duplicates.
func (p *Product) SetMarketplaces(names []string) {
	seen := make(map[string]bool, len(names))
	p.Marketplaces = p.Marketplaces[:0]
	for _, n := range names {
		n = barcode.Normalize(n)
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		p.Marketplaces = append(p.Marketplaces, n)
	}
}

// ListedOn reports whether the product is pushed to marketplace.
func (p *Product) ListedOn(marketplace string) bool {
	for _, m := range p.Marketplaces {
		if m == marketplace {
			return true
		}
	}
	return false
}

// ProductRepository persists catalog rows.
type ProductRepository interface {
	// FindByBarcode returns shared.ErrNotFound when absent.
	FindByBarcode(ctx context.Context, barcode string) (*Product, error)
	// ListByMarketplace returns non-archived products listed on marketplace.
	ListByMarketplace(ctx context.Context, marketplace string) ([]Product, error)
	Save(ctx context.Context, p *Product) error
}
