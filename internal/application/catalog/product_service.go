// Package catalog maintains the product rows stock pushes are driven from.
package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/sellerops/console/internal/application/tx"
	"github.com/sellerops/console/internal/domain/barcode"
	"github.com/sellerops/console/internal/domain/catalog"
	"github.com/sellerops/console/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// UpsertProductRequest creates or replaces a product row.
type UpsertProductRequest struct {
	Barcode      string            `json:"barcode"`
	Title        string            `json:"title" binding:"required"`
	ModelID      string            `json:"model_id"`
	Color        string            `json:"color"`
	Size         string            `json:"size"`
	Price        *decimal.Decimal  `json:"price"`
	Attributes   map[string]string `json:"attributes"`
	Marketplaces []string          `json:"marketplaces"`
	Archived     bool              `json:"archived"`
	Hidden       bool              `json:"hidden"`
}

// ProductResponse is the API view of a product.
type ProductResponse struct {
	Barcode      string            `json:"barcode"`
	Title        string            `json:"title"`
	ModelID      string            `json:"model_id,omitempty"`
	Color        string            `json:"color,omitempty"`
	Size         string            `json:"size,omitempty"`
	Price        decimal.Decimal   `json:"price"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	Marketplaces []string          `json:"marketplaces"`
	Archived     bool              `json:"archived"`
	Hidden       bool              `json:"hidden"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// ToProductResponse converts a domain Product to a response.
func ToProductResponse(p *catalog.Product) ProductResponse {
	marketplaces := p.Marketplaces
	if marketplaces == nil {
		marketplaces = []string{}
	}
	return ProductResponse{
		Barcode:      p.Barcode,
		Title:        p.Title,
		ModelID:      p.ModelID,
		Color:        p.Color,
		Size:         p.Size,
		Price:        p.Price,
		Attributes:   p.Attributes,
		Marketplaces: marketplaces,
		Archived:     p.Archived,
		Hidden:       p.Hidden,
		UpdatedAt:    p.UpdatedAt,
	}
}

// ProductService handles product catalog operations
type ProductService struct {
	scope  tx.Scope
	logger *zap.Logger
	now    func() time.Time
}

// NewProductService creates a new ProductService
func NewProductService(scope tx.Scope, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{scope: scope, logger: logger, now: time.Now}
}

// Upsert stores the product under the canonical form of req.Barcode.
func (s *ProductService) Upsert(ctx context.Context, req UpsertProductRequest) (*ProductResponse, error) {
	var out ProductResponse
	err := s.scope.Execute(ctx, func(repos tx.Repositories) error {
		if _, err := barcode.Require(req.Barcode); err != nil {
			return err
		}
		code, err := barcode.Canonicalize(ctx, repos.Aliases(), req.Barcode)
		if err != nil {
			return err
		}
		p, err := catalog.NewProduct(code, req.Title, req.Marketplaces)
		if err != nil {
			return err
		}
		p.ModelID = req.ModelID
		p.Color = req.Color
		p.Size = req.Size
		if req.Price != nil {
			if req.Price.IsNegative() {
				return shared.ErrInvalidInput.WithDetails("price must not be negative")
			}
			p.Price = *req.Price
		}
		if req.Attributes != nil {
			p.Attributes = req.Attributes
		}
		p.Archived = req.Archived
		p.Hidden = req.Hidden
		p.UpdatedAt = s.now()
		if err := repos.Products().Save(ctx, p); err != nil {
			return err
		}
		out = ToProductResponse(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Product upserted",
		zap.String("barcode", out.Barcode),
		zap.Strings("marketplaces", out.Marketplaces))
	return &out, nil
}

// Get returns the product of raw, resolving aliases.
func (s *ProductService) Get(ctx context.Context, raw string) (*ProductResponse, error) {
	var out ProductResponse
	err := s.scope.Execute(ctx, func(repos tx.Repositories) error {
		if _, err := barcode.Require(raw); err != nil {
			return err
		}
		code, err := barcode.Canonicalize(ctx, repos.Aliases(), raw)
		if err != nil {
			return err
		}
		p, err := repos.Products().FindByBarcode(ctx, code)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.ErrNotFound.WithDetails("product %s", code)
			}
			return err
		}
		out = ToProductResponse(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListByMarketplace lists the non-archived products pushed to marketplace.
func (s *ProductService) ListByMarketplace(ctx context.Context, marketplace string) ([]ProductResponse, error) {
	var out []ProductResponse
	err := s.scope.Execute(ctx, func(repos tx.Repositories) error {
		products, err := repos.Products().ListByMarketplace(ctx, barcode.Normalize(marketplace))
		if err != nil {
			return err
		}
		out = make([]ProductResponse, 0, len(products))
		for i := range products {
			out = append(out, ToProductResponse(&products[i]))
		}
		return nil
	})
	return out, err
}
