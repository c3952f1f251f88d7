// Package apperror provides the structured error type returned by every
// domain operation. The HTTP layer renders it as {code, message, details}.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes. Clients switch on these, so they never change once published.
const (
	CodeInternal = "INTERNAL_ERROR"

	// 400
	CodeValidation    = "VALIDATION_ERROR"
	CodeInvalidStatus = "INVALID_STATUS"

	// 422
	CodeInsufficientStock    = "INSUFFICIENT_STOCK"
	CodeTransitionNotAllowed = "TRANSITION_NOT_ALLOWED"
	CodeOrderLocked          = "ORDER_STOCK_LOCKED"

	// 401, 403
	CodeUnauthorized = "UNAUTHORIZED"
	CodeForbidden    = "FORBIDDEN"

	CodeNotFound = "NOT_FOUND"

	// 409
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeDuplicate              = "DUPLICATE_ENTRY"
	CodeIdempotency            = "IDEMPOTENCY_CONFLICT"
)

// AppError is a classified failure with a suggested HTTP status.
type AppError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`

	HTTPStatus int   `json:"-"`
	Err        error `json:"-"`
}

func newError(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// Error implements error.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// WithDetail adds a key-value pair to the error details.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause sets the underlying error.
func (e *AppError) WithCause(err error) *AppError {
	e.Err = err
	return e
}

// NewValidation reports malformed input. Callers usually attach a "field" detail.
func NewValidation(message string) *AppError {
	return newError(http.StatusBadRequest, CodeValidation, message)
}

// NewInvalidStatus is returned for a status value outside the known set.
func NewInvalidStatus(status string) *AppError {
	return newError(http.StatusBadRequest, CodeInvalidStatus, fmt.Sprintf("unknown order status %q", status)).
		WithDetail("field", "status").
		WithDetail("value", status)
}

// NewNotFound reports a missing entity.
func NewNotFound(entity string, id any) *AppError {
	return newError(http.StatusNotFound, CodeNotFound, entity+" not found").
		WithDetail("entity", entity).
		WithDetail("id", id)
}

// NewInsufficientStock reports a deduction larger than the available quantity.
func NewInsufficientStock(productID string, requested, available int64) *AppError {
	return newError(http.StatusUnprocessableEntity, CodeInsufficientStock, "Insufficient stock").
		WithDetail("product_id", productID).
		WithDetail("requested", requested).
		WithDetail("available", available)
}

// NewOrderLocked is returned when an order is edited while its stock is out of the warehouse.
func NewOrderLocked(orderID any, status string) *AppError {
	return newError(http.StatusUnprocessableEntity, CodeOrderLocked,
		"order stock is deducted; move the order back before editing").
		WithDetail("id", orderID).
		WithDetail("status", status)
}

// NewTransitionNotAllowed is returned when the transition policy refuses a status change.
func NewTransitionNotAllowed(from, to string) *AppError {
	return newError(http.StatusUnprocessableEntity, CodeTransitionNotAllowed,
		fmt.Sprintf("transition from %s to %s is not allowed", from, to)).
		WithDetail("from", from).
		WithDetail("to", to)
}

// NewConcurrentModification is returned when a version check fails on save.
func NewConcurrentModification(entity string, id any) *AppError {
	return newError(http.StatusConflict, CodeConcurrentModification,
		"Record was modified by another user. Please refresh and try again.").
		WithDetail("entity", entity).
		WithDetail("id", id)
}

// NewDuplicate reports a unique key collision.
func NewDuplicate(entity, field, value string) *AppError {
	return newError(http.StatusConflict, CodeDuplicate, fmt.Sprintf("%s with this %s already exists", entity, field)).
		WithDetail("entity", entity).
		WithDetail("field", field).
		WithDetail("value", value)
}

// NewIdempotencyConflict is returned while a request with the same key is still running.
func NewIdempotencyConflict(key string) *AppError {
	return newError(http.StatusConflict, CodeIdempotency, "request with this idempotency key is in progress").
		WithDetail("key", key)
}

// NewIdempotencyMismatch is returned when a key is reused for a different request.
func NewIdempotencyMismatch(key string) *AppError {
	return newError(http.StatusUnprocessableEntity, CodeIdempotency, "idempotency key was used for a different request").
		WithDetail("key", key)
}

// NewUnauthorized reports a missing or invalid credential.
func NewUnauthorized(message string) *AppError {
	return newError(http.StatusUnauthorized, CodeUnauthorized, message)
}

// NewForbidden reports an authenticated caller without the required permission.
func NewForbidden(message string) *AppError {
	return newError(http.StatusForbidden, CodeForbidden, message)
}

// NewInternal wraps an unexpected failure. The cause is logged, never rendered.
func NewInternal(err error) *AppError {
	return newError(http.StatusInternalServerError, CodeInternal, "Internal server error").WithCause(err)
}

// AsAppError finds the first AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetHTTPStatus maps err to a status code; plain errors are 500.
func GetHTTPStatus(err error) int {
	if appErr, ok := AsAppError(err); ok {
		return appErr.HTTPStatus
	}
	return http.StatusInternalServerError
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// IsNotFound reports whether err is a NOT_FOUND AppError.
func IsNotFound(err error) bool {
	return HasCode(err, CodeNotFound)
}

// IsConcurrentModification reports whether err is a failed version check.
func IsConcurrentModification(err error) bool {
	return HasCode(err, CodeConcurrentModification)
}
