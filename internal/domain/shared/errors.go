package shared

import (
	"fmt"
	"strings"
)

// Parameter is a single ordered key/value attached to a domain error,
// e.g. the offending fund id or invoice line id.
type Parameter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// DomainError represents a domain-level error with a machine-readable code
// and ordered structured parameters.
type DomainError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Parameters []Parameter `json:"parameters,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if len(e.Parameters) == 0 {
		return e.Message
	}
	parts := make([]string, 0, len(e.Parameters))
	for _, p := range e.Parameters {
		parts = append(parts, fmt.Sprintf("%s=%s", p.Key, p.Value))
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, ", "))
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithParam returns a copy of the error with an additional parameter appended.
// The receiver is not modified, so the package-level sentinels stay clean.
func (e *DomainError) WithParam(key, value string) *DomainError {
	params := make([]Parameter, len(e.Parameters), len(e.Parameters)+1)
	copy(params, e.Parameters)
	params = append(params, Parameter{Key: key, Value: value})
	return &DomainError{
		Code:       e.Code,
		Message:    e.Message,
		Parameters: params,
	}
}

// Is reports whether target is a DomainError with the same code, so callers
// can match sentinels through errors.Is after parameters were attached.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrUnsupportedOp       = NewDomainError("UNSUPPORTED_OPERATION", "Operation is not supported by this endpoint")
	ErrMultipleFiscalYears = NewDomainError("MULTIPLE_FISCAL_YEARS", "Fund distributions reference budgets from multiple fiscal years")
	ErrFundCannotBePaid    = NewDomainError("FUND_CANNOT_BE_PAID", "Fund available balance would be exceeded")
	ErrTransactionFailure  = NewDomainError("TRANSACTION_CREATION_FAILURE", "Failed to create or update a ledger transaction")
	ErrCurrencyMismatch    = NewDomainError("CURRENCY_MISMATCH", "Monetary amounts have different currencies")
)
