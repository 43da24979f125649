// Package apperror provides structured error handling following RFC 7807 Problem Details.
// Every business failure raised by the posting engine is an AppError so callers
// can surface an actionable message instead of a raw Go error.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Infrastructure errors (5xx)
	CodeInternal = "INTERNAL_ERROR"
	CodeDatabase = "DATABASE_ERROR"

	// Validation errors (400)
	CodeValidation = "VALIDATION_ERROR"

	// Business rule violations (422)
	CodeBusinessRule             = "BUSINESS_RULE_VIOLATION"
	CodeUnbalancedEntry          = "UNBALANCED_ENTRY"
	CodeInvalidLedgerState       = "INVALID_LEDGER_STATE"
	CodeInvalidOrderState        = "INVALID_ORDER_STATE"
	CodeInsufficientStock        = "INSUFFICIENT_STOCK"
	CodeAllocationTargetNotFound = "ALLOCATION_TARGET_NOT_FOUND"
	CodeOverAllocation           = "OVER_ALLOCATION"
	CodeDocumentPosted           = "DOCUMENT_ALREADY_POSTED"
	CodeConcurrentModification   = "CONCURRENT_MODIFICATION"

	// Not found (404)
	CodeNotFound = "NOT_FOUND"

	// Conflict (409)
	CodeConflict    = "CONFLICT"
	CodeIdempotency = "IDEMPOTENCY_CONFLICT"
)

// AppError is the standard error type for the engine.
type AppError struct {
	// Code is a machine-readable error identifier
	Code string `json:"code"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Details contains additional context (amounts, quantities, ids)
	Details map[string]any `json:"details,omitempty"`

	// HTTPStatus is the suggested HTTP status code
	HTTPStatus int `json:"-"`

	// Err is the underlying error (not exposed in JSON)
	Err error `json:"-"`
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to error details
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// --- Factory functions ---

// NewValidation creates a validation error (400)
func NewValidation(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// NewNotFound creates a not found error (404)
func NewNotFound(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", entity),
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewBusinessRule creates a business rule violation error (422)
func NewBusinessRule(code, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// NewUnbalancedEntry is raised when a ledger entry violates debit == credit
// or when its declared totals disagree with its own lines.
func NewUnbalancedEntry(reason string, debit, credit string) *AppError {
	return NewBusinessRule(CodeUnbalancedEntry, "Ledger entry is not balanced: "+reason).
		WithDetail("total_debit", debit).
		WithDetail("total_credit", credit)
}

// NewInvalidLedgerState is raised on an illegal ledger status transition.
func NewInvalidLedgerState(sequence int64, from, to string) *AppError {
	return NewBusinessRule(CodeInvalidLedgerState,
		fmt.Sprintf("Ledger entry %d cannot move from %s to %s", sequence, from, to)).
		WithDetail("sequence", sequence).
		WithDetail("from", from).
		WithDetail("to", to)
}

// NewInvalidOrderState is raised on an illegal production order transition.
func NewInvalidOrderState(orderID string, current, required string) *AppError {
	return NewBusinessRule(CodeInvalidOrderState,
		fmt.Sprintf("Production order is %s, operation requires %s", current, required)).
		WithDetail("order_id", orderID).
		WithDetail("current_status", current).
		WithDetail("required_status", required)
}

// NewInsufficientStock creates a stock shortage error
func NewInsufficientStock(itemID string, requested, available string) *AppError {
	return &AppError{
		Code:       CodeInsufficientStock,
		Message:    "Insufficient stock",
		HTTPStatus: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"item_id":   itemID,
			"requested": requested,
			"available": available,
		},
	}
}

// NewAllocationTargetNotFound is raised when a payment allocation points at
// an invoice that does not exist.
func NewAllocationTargetNotFound(paymentID, invoiceID string) *AppError {
	return NewBusinessRule(CodeAllocationTargetNotFound, "Payment allocation references an unknown invoice").
		WithDetail("payment_id", paymentID).
		WithDetail("invoice_id", invoiceID)
}

// NewOverAllocation is raised when an allocation exceeds the invoice's remaining balance.
func NewOverAllocation(invoiceID string, requested, remaining string) *AppError {
	return NewBusinessRule(CodeOverAllocation, "Allocation exceeds invoice remaining balance").
		WithDetail("invoice_id", invoiceID).
		WithDetail("requested", requested).
		WithDetail("remaining", remaining)
}

// NewDocumentPosted is raised when a document that was already posted is posted again or modified.
func NewDocumentPosted(documentType, documentID string) *AppError {
	return NewBusinessRule(CodeDocumentPosted, "Document is already posted").
		WithDetail("document_type", documentType).
		WithDetail("document_id", documentID)
}

// NewConcurrentModification creates an optimistic locking error
func NewConcurrentModification(entity string, id any) *AppError {
	return &AppError{
		Code:       CodeConcurrentModification,
		Message:    "Record was modified concurrently. Reload and try again.",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"entity": entity, "id": id},
	}
}

// NewConflict creates a conflict error (409)
func NewConflict(message string) *AppError {
	return &AppError{
		Code:       CodeConflict,
		Message:    message,
		HTTPStatus: http.StatusConflict,
	}
}

// NewInternal creates an internal server error (hides details from client)
func NewInternal(err error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "Internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewIdempotencyConflict is returned while another request holds the key.
func NewIdempotencyConflict(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Operation already in progress",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// NewIdempotencyMismatch is returned when a key is reused for a different
// actor, route or request body.
func NewIdempotencyMismatch(key string) *AppError {
	return &AppError{
		Code:       CodeIdempotency,
		Message:    "Idempotency key mismatch",
		HTTPStatus: http.StatusConflict,
		Details:    map[string]any{"idempotency_key": key},
	}
}

// --- Helper functions ---

// IsAppError checks if error is AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError extracts AppError from error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus returns appropriate HTTP status for any error
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code == code
	}
	return false
}

// IsNotFound checks if error is CodeNotFound
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}
