package handler

import (
	"github.com/gin-gonic/gin"
	apporder "github.com/sellerops/console/internal/application/order"
	"github.com/sellerops/console/internal/domain/order"
	"github.com/sellerops/console/internal/interfaces/http/dto"
)

// TransitionRequest is the body of an operator status change
type TransitionRequest struct {
	To     string `json:"to" binding:"required"`
	Reason string `json:"reason"`
}

// PickVerifyRequest carries the barcodes scanned at the packing bench.
// A nil Scans asks for the expected scan list instead.
type PickVerifyRequest struct {
	Scans []string `json:"scans"`
}

// ListOrdersQuery filters the order list by status table.
type ListOrdersQuery struct {
	dto.PageRequest
	Status string `form:"status" binding:"required"`
}

// OrderHandler handles order endpoints
type OrderHandler struct {
	BaseHandler
	machine *apporder.StateMachine
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(machine *apporder.StateMachine) *OrderHandler {
	return &OrderHandler{machine: machine}
}

// Transition handles POST /orders/{number}/transition: move an order to another status.
func (h *OrderHandler) Transition(c *gin.Context) {
	var req TransitionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	to, err := order.ParseStatus(req.To)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	o, err := h.machine.Transition(c.Request.Context(), order.TransitionRequest{
		OrderNumber: c.Param("number"),
		To:          to,
		Reason:      req.Reason,
		Origin:      order.OriginOperator,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, apporder.ToOrderResponse(o))
}

// PickVerify handles POST /orders/{number}/pick-verify: verify scanned barcodes against a Picking order.
func (h *OrderHandler) PickVerify(c *gin.Context) {
	var req PickVerifyRequest
	if !h.BindJSON(c, &req) {
		return
	}
	ctx := c.Request.Context()
	number := c.Param("number")
	if req.Scans == nil {
		expected, err := h.machine.ExpectedScans(ctx, number)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		h.Success(c, gin.H{"order_number": number, "expected_scans": expected})
		return
	}
	o, err := h.machine.PickVerify(ctx, number, req.Scans)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, apporder.ToOrderResponse(o))
}

// Get returns one order from whichever status table holds it
func (h *OrderHandler) Get(c *gin.Context) {
	o, err := h.machine.Get(c.Request.Context(), c.Param("number"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, apporder.ToOrderResponse(o))
}

// List pages through one status table
func (h *OrderHandler) List(c *gin.Context) {
	var q ListOrdersQuery
	if !h.BindQuery(c, &q) {
		return
	}
	status, err := order.ParseStatus(q.Status)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	limit, offset := q.Normalize()
	orders, total, err := h.machine.List(c.Request.Context(), status, limit, offset)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	items := make([]apporder.OrderResponse, 0, len(orders))
	for i := range orders {
		items = append(items, apporder.ToOrderResponse(&orders[i]))
	}
	h.SuccessWithMeta(c, items, total, q.Page, q.PageSize)
}
