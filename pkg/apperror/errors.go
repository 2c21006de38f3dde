package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
// Fields carries per-field validation messages keyed by request field name.
type AppError struct {
	Code       string            `json:"error_code"`
	Message    string            `json:"message"`
	Fields     map[string]string `json:"fields,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Validation (VAL) ----

// Validation returns a single-message validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

// FieldValidation returns a validation error with per-field messages.
func FieldValidation(fields map[string]string) *AppError {
	e := New("VAL_001", "Request validation failed", http.StatusBadRequest)
	e.Fields = fields
	return e
}

// ---- Ledger Business Logic (LED) ----

func ErrBalanceNotFound(currency string) *AppError {
	return New("LED_001", fmt.Sprintf("Balance for currency %s does not exist", currency), http.StatusBadRequest)
}

func ErrInsufficientFunds() *AppError {
	return New("LED_002", "Balance is too low for this operation", http.StatusPaymentRequired)
}

func ErrTransactionNotFound() *AppError {
	return New("LED_003", "Transaction not found", http.StatusNotFound)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// ErrDatabaseError wraps a storage failure as a SYS_001 error.
func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
