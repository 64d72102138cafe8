// Package handler implements the operator API handlers.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sellerops/console/internal/domain/marketplace"
	"github.com/sellerops/console/internal/domain/shared"
	"github.com/sellerops/console/internal/infrastructure/logger"
	"github.com/sellerops/console/internal/interfaces/http/dto"
	"github.com/sellerops/console/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Adapters resolves marketplace adapters by name.
type Adapters interface {
	Source(m marketplace.Marketplace) (marketplace.OrderSource, error)
	Pusher(m marketplace.Marketplace) (marketplace.StockPusher, error)
}

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMeta sends a success response with pagination meta
func (h *BaseHandler) SuccessWithMeta(c *gin.Context, data any, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, total, page, pageSize))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Accepted sends a 202 for work queued in the background
func (h *BaseHandler) Accepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(data))
}

// HandleError maps err to its status code and writes the error envelope.
// Server-side failures are logged with the request logger.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	code := shared.CodeOf(err)
	status := dto.GetHTTPStatus(code)
	c.Set("error_code", code)
	_ = c.Error(err)

	if status >= http.StatusInternalServerError {
		logger.L(c.Request.Context()).Error("Request failed", zap.String("code", code), zap.Error(err))
	}
	c.JSON(status, dto.NewErrorResponse(err, middleware.GetRequestID(c)))
}

// Fail writes an edge error code that has no domain error behind it.
func (h *BaseHandler) Fail(c *gin.Context, code, details string) {
	c.Set("error_code", code)
	c.JSON(dto.GetHTTPStatus(code), dto.NewCodeResponse(code, details, middleware.GetRequestID(c)))
}

// BindJSON binds the request body, writing a validation error on failure.
func (h *BaseHandler) BindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// BindQuery binds the query string, writing a validation error on failure.
func (h *BaseHandler) BindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// NotConfigured reports a route whose backing service is disabled.
func (h *BaseHandler) NotConfigured(c *gin.Context, what string) {
	h.HandleError(c, shared.ErrConfig.WithDetails("%s is not configured", what))
}
