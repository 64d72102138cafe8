package handler

import (
	"github.com/gin-gonic/gin"
	appbarcode "github.com/sellerops/console/internal/application/barcode"
)

// AddAliasRequest is the body of alias registration.
// MergeStocks defaults to true when omitted.
type AddAliasRequest struct {
	Alias       string `json:"alias" binding:"required,barcode"`
	Canonical   string `json:"canonical" binding:"required,barcode"`
	MergeStocks *bool  `json:"merge_stocks"`
}

// AliasHandler handles barcode alias endpoints
type AliasHandler struct {
	BaseHandler
	aliases *appbarcode.AliasService
}

// NewAliasHandler creates a new AliasHandler
func NewAliasHandler(aliases *appbarcode.AliasService) *AliasHandler {
	return &AliasHandler{aliases: aliases}
}

// Add handles POST /aliases: register an alias for a canonical barcode.
func (h *AliasHandler) Add(c *gin.Context) {
	var req AddAliasRequest
	if !h.BindJSON(c, &req) {
		return
	}
	info, err := h.aliases.AddAlias(c.Request.Context(), appbarcode.AddAliasRequest{
		Alias:       req.Alias,
		Canonical:   req.Canonical,
		MergeStocks: req.MergeStocks,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, info)
}

// Remove deletes an alias. Stock already merged stays on the canonical barcode.
func (h *AliasHandler) Remove(c *gin.Context) {
	alias := c.Param("alias")
	if err := h.aliases.RemoveAlias(c.Request.Context(), alias); err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"removed": alias})
}

// Info resolves a barcode or alias
func (h *AliasHandler) Info(c *gin.Context) {
	info, err := h.aliases.Info(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, info)
}
