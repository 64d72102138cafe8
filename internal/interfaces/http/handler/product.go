package handler

import (
	"github.com/gin-gonic/gin"
	appcatalog "github.com/sellerops/console/internal/application/catalog"
	"github.com/sellerops/console/internal/domain/marketplace"
)

// ProductHandler handles product catalog endpoints
type ProductHandler struct {
	BaseHandler
	products *appcatalog.ProductService
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(products *appcatalog.ProductService) *ProductHandler {
	return &ProductHandler{products: products}
}

// Upsert creates or replaces the product of the barcode in the path
func (h *ProductHandler) Upsert(c *gin.Context) {
	var req appcatalog.UpsertProductRequest
	if !h.BindJSON(c, &req) {
		return
	}
	req.Barcode = c.Param("barcode")
	for i, name := range req.Marketplaces {
		m, err := marketplace.Parse(name)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		req.Marketplaces[i] = string(m)
	}
	p, err := h.products.Upsert(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// Get returns a product by barcode or alias
func (h *ProductHandler) Get(c *gin.Context) {
	p, err := h.products.Get(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// List returns the products listed on one marketplace
func (h *ProductHandler) List(c *gin.Context) {
	m, err := marketplace.Parse(c.Query("marketplace"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	products, err := h.products.ListByMarketplace(c.Request.Context(), string(m))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if products == nil {
		products = []appcatalog.ProductResponse{}
	}
	h.Success(c, products)
}
