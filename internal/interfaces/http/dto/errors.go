package dto

import (
	"net/http"

	"github.com/sellerops/console/internal/domain/shared"
)

// Error codes that only exist at the HTTP edge. Everything else uses the
// shared domain codes unchanged.
const (
	ErrCodeForbidden       = "FORBIDDEN"
	ErrCodeInvalidToken    = "INVALID_TOKEN"
	ErrCodeTokenExpired    = "TOKEN_EXPIRED"
	ErrCodeRateLimited     = "RATE_LIMITED"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeRouteNotFound   = "ROUTE_NOT_FOUND"
	ErrCodeJobInFlight     = "JOB_IN_FLIGHT"
	ErrCodeSchedulerBusy   = "SCHEDULER_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// Input -> 400 Bad Request
	shared.CodeValidation:     http.StatusBadRequest,
	shared.CodeInvalidBarcode: http.StatusBadRequest,

	// Authentication -> 401, authorization -> 403
	shared.CodeUnauthorized: http.StatusUnauthorized,
	ErrCodeInvalidToken:     http.StatusUnauthorized,
	ErrCodeTokenExpired:     http.StatusUnauthorized,
	ErrCodeForbidden:        http.StatusForbidden,

	// Lookups -> 404
	shared.CodeNotFound:      http.StatusNotFound,
	shared.CodeOrderNotFound: http.StatusNotFound,
	ErrCodeRouteNotFound:     http.StatusNotFound,

	// State conflicts -> 409
	shared.CodeIllegalTransition:      http.StatusConflict,
	shared.CodeOrderLocationConflict:  http.StatusConflict,
	shared.CodePickVerificationFailed: http.StatusConflict,
	shared.CodeAliasConflict:          http.StatusConflict,
	ErrCodeJobInFlight:                http.StatusConflict,

	// Stock rules -> 422
	shared.CodeInsufficientStock:      http.StatusUnprocessableEntity,
	shared.CodeInsufficientShelfStock: http.StatusUnprocessableEntity,
	shared.CodeStockMergeFailure:      http.StatusUnprocessableEntity,

	// Marketplace failures
	shared.CodeMarketplaceUnreachable: http.StatusBadGateway,
	shared.CodeMarketplaceRejected:    http.StatusBadGateway,
	shared.CodeMalformedOrderPayload:  http.StatusBadGateway,
	shared.CodeMarketplaceRateLimited: http.StatusTooManyRequests,

	// Edge limits
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	// Server side
	shared.CodeConfigError:                 http.StatusServiceUnavailable,
	ErrCodeSchedulerBusy:                   http.StatusServiceUnavailable,
	shared.CodeInventoryInvariantViolation: http.StatusInternalServerError,
	shared.CodeInternal:                    http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// StatusOf returns the HTTP status for err.
func StatusOf(err error) int {
	return GetHTTPStatus(shared.CodeOf(err))
}
