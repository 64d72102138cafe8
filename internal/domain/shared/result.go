package shared

// Exit codes returned by operator commands.
const (
	ExitOK                = 0
	ExitInvariant         = 1
	ExitIllegalTransition = 2
	ExitInsufficientStock = 3
	ExitMarketplace       = 4
	ExitConfig            = 5
)

// ExitCode maps an error to the operator exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	switch CodeOf(err) {
	case CodeIllegalTransition, CodeOrderLocationConflict, CodePickVerificationFailed:
		return ExitIllegalTransition
	case CodeInsufficientStock, CodeInsufficientShelfStock:
		return ExitInsufficientStock
	case CodeMarketplaceUnreachable, CodeMarketplaceRateLimited,
		CodeMarketplaceRejected, CodeMalformedOrderPayload:
		return ExitMarketplace
	case CodeConfigError:
		return ExitConfig
	default:
		return ExitInvariant
	}
}

// Result is the single envelope every operator command returns.
type Result struct {
	OK        bool   `json:"ok"`
	ErrorCode string `json:"error_code,omitempty"`
	Details   string `json:"details,omitempty"`
	Result    any    `json:"result,omitempty"`
}

// OKResult wraps a successful payload.
func OKResult(payload any) Result {
	return Result{OK: true, Result: payload}
}

// ErrorResult converts err into a failed Result.
func ErrorResult(err error) Result {
	de := AsDomainError(err)
	details := de.Details
	if details == "" {
		details = de.Message
	}
	return Result{OK: false, ErrorCode: de.Code, Details: details}
}
