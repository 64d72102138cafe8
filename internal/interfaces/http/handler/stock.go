package handler

import (
	"github.com/gin-gonic/gin"
	appinventory "github.com/sellerops/console/internal/application/inventory"
	"github.com/sellerops/console/internal/application/reservation"
)

// StockMutationRequest is the body of stock add and renew
type StockMutationRequest struct {
	Shelf   string `json:"shelf" binding:"required"`
	Barcode string `json:"barcode" binding:"required,barcode"`
	Count   *int   `json:"count" binding:"required,gte=0"`
}

// StockTransferRequest is the body of stock transfer
type StockTransferRequest struct {
	From    string `json:"from" binding:"required"`
	To      string `json:"to" binding:"required"`
	Barcode string `json:"barcode" binding:"required,barcode"`
	Count   int    `json:"count" binding:"required,gt=0"`
}

// StockDetailResponse is the stock view of one barcode with its reservation.
type StockDetailResponse struct {
	*appinventory.StockView
	Reserved  *int `json:"reserved,omitempty"`
	Available *int `json:"available,omitempty"`
}

// StockHandler handles stock-related API endpoints
type StockHandler struct {
	BaseHandler
	engine       *appinventory.Engine
	reservations *reservation.Service
}

// NewStockHandler creates a new StockHandler. reservations may be nil.
func NewStockHandler(engine *appinventory.Engine, reservations *reservation.Service) *StockHandler {
	return &StockHandler{engine: engine, reservations: reservations}
}

// Add handles POST /stock/add: add units to a shelf.
func (h *StockHandler) Add(c *gin.Context) {
	var req StockMutationRequest
	if !h.BindJSON(c, &req) {
		return
	}
	view, err := h.engine.Add(c.Request.Context(), req.Shelf, req.Barcode, *req.Count)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Renew handles POST /stock/renew: set the shelf quantity of a barcode.
func (h *StockHandler) Renew(c *gin.Context) {
	var req StockMutationRequest
	if !h.BindJSON(c, &req) {
		return
	}
	view, err := h.engine.Renew(c.Request.Context(), req.Shelf, req.Barcode, *req.Count)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Transfer moves units between shelves
func (h *StockHandler) Transfer(c *gin.Context) {
	var req StockTransferRequest
	if !h.BindJSON(c, &req) {
		return
	}
	view, err := h.engine.Transfer(c.Request.Context(), req.From, req.To, req.Barcode, req.Count)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Get returns central, shelf breakdown and reservation of one barcode
func (h *StockHandler) Get(c *gin.Context) {
	ctx := c.Request.Context()
	view, err := h.engine.Stock(ctx, c.Param("barcode"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	resp := StockDetailResponse{StockView: view}
	if h.reservations != nil {
		snap, err := h.reservations.Snapshot(ctx, view.Barcode)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		resp.Reserved = &snap.Reserved
		resp.Available = &snap.Available
	}
	h.Success(c, resp)
}

// Shelf lists the contents of one shelf
func (h *StockHandler) Shelf(c *gin.Context) {
	rows, err := h.engine.ShelfContents(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"shelf": c.Param("code"), "items": rows})
}
