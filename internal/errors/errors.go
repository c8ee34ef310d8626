// Package errors defines the failure taxonomy for the analytical core and
// the HTTP error handler that maps each kind to a distinct response.
//
// Every kind is recovered at the operation boundary that raised it: a
// failed parse leaves the previous dataset installed, a failed pivot or
// forecast affects nothing but its own result.
package errors

import (
	"fmt"
)

// ErrorType classifies an application error.
type ErrorType string

const (
	ErrTypeParse            ErrorType = "PARSE"
	ErrTypeEmptyTable       ErrorType = "EMPTY_TABLE"
	ErrTypePivot            ErrorType = "PIVOT"
	ErrTypeInsufficientData ErrorType = "INSUFFICIENT_DATA"
	ErrTypeForecastFailed   ErrorType = "FORECAST_FAILED"
	ErrTypeValidation       ErrorType = "VALIDATION"
	ErrTypeNotFound         ErrorType = "NOT_FOUND"
	ErrTypeConfig           ErrorType = "CONFIG"
)

// AppError is an application-specific error carrying its taxonomy kind
// and, optionally, the underlying cause.
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to reach the cause.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new application error.
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{Type: errType, Message: message, Cause: cause}
}

// NewParseError reports unreadable bytes or unsupported structure in an
// uploaded file.
func NewParseError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParse, message, cause)
}

// NewEmptyTableError reports that nothing survived normalization.
func NewEmptyTableError(message string) *AppError {
	return NewAppError(ErrTypeEmptyTable, message, nil)
}

// NewPivotError reports an incompatible field/aggregation combination.
func NewPivotError(message string, cause error) *AppError {
	return NewAppError(ErrTypePivot, message, cause)
}

// NewInsufficientDataError reports too few usable points for forecasting.
func NewInsufficientDataError(message string) *AppError {
	return NewAppError(ErrTypeInsufficientData, message, nil)
}

// NewForecastFailedError wraps a numeric fitting failure for diagnostics.
func NewForecastFailedError(message string, cause error) *AppError {
	return NewAppError(ErrTypeForecastFailed, message, cause)
}

// NewValidationError reports an invalid request parameter.
func NewValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError reports a missing resource.
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConfigError reports a configuration problem.
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	app, ok := AsAppError(err)
	return ok && app.Type == t
}

// AsAppError extracts an AppError from an error chain.
func AsAppError(err error) (*AppError, bool) {
	for err != nil {
		if app, ok := err.(*AppError); ok {
			return app, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}
