package dto

import "github.com/sellerops/console/internal/domain/shared"

// Response is the envelope every API route returns. It carries the same
// fields as the operator command result plus request metadata.
type Response struct {
	OK         bool               `json:"ok"`
	ErrorCode  string             `json:"error_code,omitempty"`
	Details    string             `json:"details,omitempty"`
	Result     any                `json:"result,omitempty"`
	Validation []ValidationDetail `json:"validation,omitempty"`
	Meta       *Meta              `json:"meta,omitempty"`
	RequestID  string             `json:"request_id,omitempty"`
}

// ValidationDetail describes one rejected request field.
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Meta represents pagination metadata
type Meta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewSuccessResponse creates a success response
func NewSuccessResponse(data any) Response {
	return Response{OK: true, Result: data}
}

// NewSuccessResponseWithMeta creates a success response with pagination meta
func NewSuccessResponseWithMeta(data any, total int64, page, pageSize int) Response {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(total) / pageSize
		if int(total)%pageSize > 0 {
			totalPages++
		}
	}
	return Response{
		OK:     true,
		Result: data,
		Meta: &Meta{
			Total:      total,
			Page:       page,
			PageSize:   pageSize,
			TotalPages: totalPages,
		},
	}
}

// NewErrorResponse converts err into a failed response.
func NewErrorResponse(err error, requestID string) Response {
	r := shared.ErrorResult(err)
	return Response{
		OK:        false,
		ErrorCode: r.ErrorCode,
		Details:   r.Details,
		RequestID: requestID,
	}
}

// NewCodeResponse creates a failed response from an edge error code.
func NewCodeResponse(code, details, requestID string) Response {
	return Response{
		OK:        false,
		ErrorCode: code,
		Details:   details,
		RequestID: requestID,
	}
}

// NewValidationErrorResponse creates a 400 body listing the rejected fields.
func NewValidationErrorResponse(details []ValidationDetail, requestID string) Response {
	return Response{
		OK:         false,
		ErrorCode:  shared.CodeValidation,
		Details:    "request validation failed",
		Validation: details,
		RequestID:  requestID,
	}
}

// PageRequest holds list paging parameters.
type PageRequest struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=200"`
}

// Normalize fills defaults and returns limit and offset.
func (p *PageRequest) Normalize() (limit, offset int) {
	if p.Page == 0 {
		p.Page = 1
	}
	if p.PageSize == 0 {
		p.PageSize = 50
	}
	return p.PageSize, (p.Page - 1) * p.PageSize
}
