package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError represents a custom application error
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches AppErrors by code so wrapped copies compare equal to the
// predefined values.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Predefined error types
var (
	ErrStoreUnavailable   = &AppError{Code: "STORE_UNAVAILABLE", Message: "Data store is unavailable"}
	ErrUserNotFound       = &AppError{Code: "USER_NOT_FOUND", Message: "User not found"}
	ErrClusterNotFound    = &AppError{Code: "CLUSTER_NOT_FOUND", Message: "Cluster not found"}
	ErrClusterConflict    = &AppError{Code: "CLUSTER_CONFLICT", Message: "Cluster already exists"}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid credentials"}
	ErrAccountLocked      = &AppError{Code: "ACCOUNT_LOCKED", Message: "Account is locked"}
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Unauthorized access"}
	ErrValidationFailed   = &AppError{Code: "VALIDATION_FAILED", Message: "Validation failed"}
	ErrInvalidReportType  = &AppError{Code: "INVALID_REPORT_TYPE", Message: "Unknown report type"}
	ErrInvalidDateRange   = &AppError{Code: "INVALID_DATE_RANGE", Message: "Unknown date range"}
	ErrReportFailed       = &AppError{Code: "REPORT_FAILED", Message: "Failed to generate report"}
)

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap wraps an error with additional context
func Wrap(err error, code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails returns a copy of base carrying details and the cause.
func WithDetails(base *AppError, details string, err error) *AppError {
	return &AppError{
		Code:    base.Code,
		Message: base.Message,
		Details: details,
		Err:     err,
	}
}

// As reports whether err is an AppError and returns it.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
