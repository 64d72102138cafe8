package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sellerops/console/internal/application/reservation"
	"github.com/sellerops/console/internal/domain/marketplace"
)

// StockPushQuery selects a dry run, which returns the payload unsent.
type StockPushQuery struct {
	DryRun bool `form:"dry_run"`
}

// ReservationHandler handles availability and stock push endpoints
type ReservationHandler struct {
	BaseHandler
	reservations *reservation.Service
	adapters     Adapters
}

// NewReservationHandler creates a new ReservationHandler. adapters may be
// nil, in which case only dry runs are served.
func NewReservationHandler(reservations *reservation.Service, adapters Adapters) *ReservationHandler {
	return &ReservationHandler{reservations: reservations, adapters: adapters}
}

// Available returns central, reserved and available units of one barcode
func (h *ReservationHandler) Available(c *gin.Context) {
	snap, err := h.reservations.Snapshot(c.Request.Context(), c.Param("barcode"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, snap)
}

// Push handles POST /stock-push/{marketplace}: push available stock to one marketplace.
// With dry_run=true the payload is returned without posting it.
func (h *ReservationHandler) Push(c *gin.Context) {
	var q StockPushQuery
	if !h.BindQuery(c, &q) {
		return
	}
	ctx := c.Request.Context()
	m, err := marketplace.Parse(c.Param("marketplace"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if q.DryRun {
		items, err := h.reservations.PushPayload(ctx, m)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, gin.H{"marketplace": m, "dry_run": true, "items": items})
		return
	}
	if h.adapters == nil {
		h.NotConfigured(c, "marketplace adapters")
		return
	}
	pusher, err := h.adapters.Pusher(m)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	result, err := h.reservations.PushStock(ctx, pusher)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
