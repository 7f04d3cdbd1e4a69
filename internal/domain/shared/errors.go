package shared

// DomainError is an error with a stable machine-readable code
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string {
	return e.Message
}

// Is compares by code, so a DomainError built with a different message still
// matches the sentinel of the same code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// Sentinels matched with errors.Is
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "resource not found")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "resource was modified by another transaction")
	ErrOptimisticLock      = NewDomainError("OPTIMISTIC_LOCK_FAILED", "record version changed since it was read")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "operation not allowed in current state")
	ErrInsufficientStock   = NewDomainError("INSUFFICIENT_STOCK", "insufficient stock available")
)
