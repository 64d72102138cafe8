package marketplace

import (
	"errors"
	"fmt"
	"time"

	"github.com/sellerops/console/internal/domain/shared"
)

// Marketplace error kinds.
var (
	ErrUnreachable      = shared.NewDomainError(shared.CodeMarketplaceUnreachable, "Marketplace unreachable")
	ErrRateLimited      = shared.NewDomainError(shared.CodeMarketplaceRateLimited, "Marketplace rate limited")
	ErrRejected         = shared.NewDomainError(shared.CodeMarketplaceRejected, "Marketplace rejected request")
	ErrMalformedPayload = shared.NewDomainError(shared.CodeMalformedOrderPayload, "Malformed order payload")
)

// FetchError carries the transport details the retry policy needs.
type FetchError struct {
	Kind       *shared.DomainError
	StatusCode int
	// RetryAfter is the server-provided delay for 429 responses, zero if absent.
	RetryAfter time.Duration
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status %d): %v", e.Kind.Message, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind.Message, e.Err)
}

// Unwrap exposes the kind so errors.As finds the DomainError and errors.Is
// matches the sentinel.
func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind.WithDetails("%v", e.Err), e.Err}
}

// Retryable reports whether another attempt may succeed: timeouts, 5xx and
// 429 are retried; other 4xx and malformed payloads are not.
func Retryable(err error) bool {
	var fe *FetchError
	if !errors.As(err, &fe) {
		return false
	}
	switch fe.Kind.Code {
	case shared.CodeMarketplaceUnreachable, shared.CodeMarketplaceRateLimited:
		return true
	}
	return false
}

// RetryAfter returns the server-requested delay when err carries one.
func RetryAfter(err error) (time.Duration, bool) {
	var fe *FetchError
	if errors.As(err, &fe) && fe.RetryAfter > 0 {
		return fe.RetryAfter, true
	}
	return 0, false
}

// ClassifyStatus maps an HTTP status to an error kind; nil for success.
func ClassifyStatus(code int) *shared.DomainError {
	switch {
	case code < 400:
		return nil
	case code == 429:
		return ErrRateLimited
	case code >= 500:
		return ErrUnreachable
	default:
		return ErrRejected
	}
}
