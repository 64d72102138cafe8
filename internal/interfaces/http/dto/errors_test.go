package dto

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/sellerops/console/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{shared.CodeValidation, http.StatusBadRequest},
		{shared.CodeInvalidBarcode, http.StatusBadRequest},
		{shared.CodeUnauthorized, http.StatusUnauthorized},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{ErrCodeForbidden, http.StatusForbidden},
		{shared.CodeNotFound, http.StatusNotFound},
		{shared.CodeOrderNotFound, http.StatusNotFound},
		{shared.CodeIllegalTransition, http.StatusConflict},
		{shared.CodeOrderLocationConflict, http.StatusConflict},
		{shared.CodePickVerificationFailed, http.StatusConflict},
		{shared.CodeAliasConflict, http.StatusConflict},
		{shared.CodeInsufficientStock, http.StatusUnprocessableEntity},
		{shared.CodeInsufficientShelfStock, http.StatusUnprocessableEntity},
		{shared.CodeMarketplaceUnreachable, http.StatusBadGateway},
		{shared.CodeMarketplaceRateLimited, http.StatusTooManyRequests},
		{shared.CodeConfigError, http.StatusServiceUnavailable},
		{shared.CodeInventoryInvariantViolation, http.StatusInternalServerError},
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusUnprocessableEntity,
		StatusOf(shared.NewDomainError(shared.CodeInsufficientShelfStock, "short").WithDetails("A1 holds 2")))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("boom")))
}

func TestNewErrorResponse(t *testing.T) {
	resp := NewErrorResponse(shared.ErrOrderNotFound.WithDetails("order 42"), "req-1")

	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":false,"error_code":"ORDER_NOT_FOUND","details":"order 42","request_id":"req-1"}`, string(body))
}

func TestNewErrorResponse_PlainError(t *testing.T) {
	resp := NewErrorResponse(errors.New("disk full"), "")

	assert.False(t, resp.OK)
	assert.Equal(t, shared.CodeInternal, resp.ErrorCode)
	assert.Equal(t, "disk full", resp.Details)
}

func TestNewSuccessResponseWithMeta(t *testing.T) {
	resp := NewSuccessResponseWithMeta([]int{1, 2}, 101, 2, 50)

	assert.True(t, resp.OK)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 3, resp.Meta.TotalPages)
	assert.Equal(t, int64(101), resp.Meta.Total)
}

func TestPageRequest_Normalize(t *testing.T) {
	p := PageRequest{}
	limit, offset := p.Normalize()
	assert.Equal(t, 50, limit)
	assert.Equal(t, 0, offset)

	p = PageRequest{Page: 3, PageSize: 20}
	limit, offset = p.Normalize()
	assert.Equal(t, 20, limit)
	assert.Equal(t, 40, offset)
}
