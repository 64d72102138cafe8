package shared

import (
	"errors"
	"fmt"
)

// Stable error codes surfaced to operators and API clients.
const (
	CodeInvalidBarcode              = "INVALID_BARCODE"
	CodeAliasConflict               = "ALIAS_CONFLICT"
	CodeStockMergeFailure           = "STOCK_MERGE_FAILURE"
	CodeInsufficientStock           = "INSUFFICIENT_STOCK"
	CodeInsufficientShelfStock      = "INSUFFICIENT_SHELF_STOCK"
	CodeInventoryInvariantViolation = "INVENTORY_INVARIANT_VIOLATION"
	CodeIllegalTransition           = "ILLEGAL_TRANSITION"
	CodeOrderLocationConflict       = "ORDER_LOCATION_CONFLICT"
	CodePickVerificationFailed      = "PICK_VERIFICATION_FAILED"
	CodeOrderNotFound               = "ORDER_NOT_FOUND"
	CodeMarketplaceUnreachable      = "MARKETPLACE_UNREACHABLE"
	CodeMarketplaceRateLimited      = "MARKETPLACE_RATE_LIMITED"
	CodeMarketplaceRejected         = "MARKETPLACE_REJECTED"
	CodeMalformedOrderPayload       = "MALFORMED_ORDER_PAYLOAD"
	CodeConfigError                 = "CONFIG_ERROR"
	CodeValidation                  = "VALIDATION_ERROR"
	CodeNotFound                    = "NOT_FOUND"
	CodeUnauthorized                = "UNAUTHORIZED"
	CodeInternal                    = "INTERNAL_ERROR"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// Is matches any DomainError carrying the same code, so sentinel values
// work with errors.Is even after WithDetails.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// WithDetails returns a copy of the error carrying details.
func (e *DomainError) WithDetails(format string, args ...any) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: fmt.Sprintf(format, args...),
	}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound       = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput   = NewDomainError(CodeValidation, "Invalid input provided")
	ErrUnauthorized   = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrConfig         = NewDomainError(CodeConfigError, "Invalid configuration")
	ErrInternal       = NewDomainError(CodeInternal, "Internal error")
	ErrOrderNotFound  = NewDomainError(CodeOrderNotFound, "Order not found")
	ErrInvalidBarcode = NewDomainError(CodeInvalidBarcode, "Invalid barcode")
)

// AsDomainError unwraps err into a DomainError. Errors that are not domain
// errors are reported as INTERNAL_ERROR with the original message as details.
func AsDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de
	}
	return ErrInternal.WithDetails("%s", err.Error())
}

// CodeOf returns the stable code for err, or an empty string for nil.
func CodeOf(err error) string {
	if de := AsDomainError(err); de != nil {
		return de.Code
	}
	return ""
}
