package inventory

import (
	"fmt"
	"strings"

	"github.com/Shrijana18/StockPilot-v1-sub005/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Error codes carried by the inventory failure taxonomy
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeNotFound          = "NOT_FOUND"
	CodeInsufficientStock = "INSUFFICIENT_STOCK"
	CodeTransientConflict = "CONCURRENCY_CONFLICT"
	CodeChangeLogFailed   = "CHANGE_LOG_FAILED"
	CodeInvalidOrderState = "INVALID_STATE"
)

// ValidationError reports bad caller input. It is never retried automatically.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap exposes the domain error so callers can branch on its code
func (e *ValidationError) Unwrap() error {
	return shared.NewDomainError(CodeValidation, e.Error())
}

// NotFoundError reports a SKU with no inventory record in the scope
type NotFoundError struct {
	SKUs []string
}

func NewNotFoundError(skus ...string) *NotFoundError {
	return &NotFoundError{SKUs: skus}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("inventory record not found for sku %s", strings.Join(e.SKUs, ", "))
}

func (e *NotFoundError) Unwrap() error {
	return shared.NewDomainError(CodeNotFound, e.Error())
}

// Shortfall describes one line item that cannot be covered
type Shortfall struct {
	SKU       string          `json:"sku"`
	Requested decimal.Decimal `json:"requested"`
	Available decimal.Decimal `json:"available"`
	Status    StockStatusCode `json:"status"`
}

// Missing returns how many units are lacking
func (s Shortfall) Missing() decimal.Decimal {
	return s.Requested.Sub(s.Available)
}

// InsufficientStockError is the expected business failure of reserve and commit.
// It lists every offending line item, not only the first one.
type InsufficientStockError struct {
	Items []Shortfall
}

func NewInsufficientStockError(items []Shortfall) *InsufficientStockError {
	return &InsufficientStockError{Items: items}
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Items))
	for _, s := range e.Items {
		parts = append(parts, fmt.Sprintf("%s (requested %s, available %s)", s.SKU, s.Requested, s.Available))
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

func (e *InsufficientStockError) Unwrap() error {
	return shared.ErrInsufficientStock
}

// TransientConflictError means the transaction could not serialize within its
// retry budget. The whole call is safe to retry.
type TransientConflictError struct {
	Operation string
	Attempts  int
	Cause     error
}

func NewTransientConflictError(operation string, attempts int, cause error) *TransientConflictError {
	return &TransientConflictError{Operation: operation, Attempts: attempts, Cause: cause}
}

func (e *TransientConflictError) Error() string {
	return fmt.Sprintf("%s: conflicting concurrent update, gave up after %d attempts: %v", e.Operation, e.Attempts, e.Cause)
}

func (e *TransientConflictError) Unwrap() []error {
	return []error{shared.NewDomainError(CodeTransientConflict, e.Error()), e.Cause}
}

// LoggingError is raised after a committed change when the audit sink rejects
// its records. It never undoes the change.
type LoggingError struct {
	OrderID string
	Cause   error
}

func NewLoggingError(orderID string, cause error) *LoggingError {
	return &LoggingError{OrderID: orderID, Cause: cause}
}

func (e *LoggingError) Error() string {
	return fmt.Sprintf("change log for order %s failed: %v", e.OrderID, e.Cause)
}

func (e *LoggingError) Unwrap() error {
	return e.Cause
}

// ErrOrderStateConflict is returned when an order's ledger entries are in a state
// that forbids the requested transition.
func ErrOrderStateConflict(orderID string, state ReservationState, op string) *shared.DomainError {
	return shared.NewDomainError(CodeInvalidOrderState,
		fmt.Sprintf("order %s is %s and cannot be %s", orderID, state, op))
}

// ErrMixedCommit is returned when a commit names skus the order already
// committed alongside skus it has not.
func ErrMixedCommit(orderID string, committed []string) *shared.DomainError {
	return shared.NewDomainError(CodeInvalidOrderState,
		fmt.Sprintf("order %s already committed %s; commit the remaining skus on their own", orderID, strings.Join(committed, ", ")))
}
