package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError represents an application error with HTTP status code
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	cause   error
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("code=%d, message=%s, details=%s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("code=%d, message=%s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause to errors.Is and errors.As
func (e *AppError) Unwrap() error {
	return e.cause
}

// Common errors
var (
	ErrNotFound        = &AppError{Code: http.StatusNotFound, Message: "Resource not found"}
	ErrUnauthorized    = &AppError{Code: http.StatusUnauthorized, Message: "Unauthorized"}
	ErrForbidden       = &AppError{Code: http.StatusForbidden, Message: "Forbidden"}
	ErrBadRequest      = &AppError{Code: http.StatusBadRequest, Message: "Bad request"}
	ErrConflict        = &AppError{Code: http.StatusConflict, Message: "Conflict"}
	ErrTooManyRequests = &AppError{Code: http.StatusTooManyRequests, Message: "Too many requests"}
	ErrInternalServer  = &AppError{Code: http.StatusInternalServerError, Message: "Internal server error"}
)

// New creates a new AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// WithDetails adds details to an error
func WithDetails(err *AppError, details string) *AppError {
	return &AppError{
		Code:    err.Code,
		Message: err.Message,
		Details: details,
		cause:   err.cause,
	}
}

// Wrap attaches cause to a copy of err; cause's text becomes the details
func Wrap(err *AppError, cause error) *AppError {
	return &AppError{
		Code:    err.Code,
		Message: err.Message,
		Details: cause.Error(),
		cause:   cause,
	}
}

// NotFound reports a missing resource by kind and id
func NotFound(kind, id string) *AppError {
	return WithDetails(ErrNotFound, fmt.Sprintf("%s %q not found", kind, id))
}

// BadRequest reports invalid input
func BadRequest(details string) *AppError {
	return WithDetails(ErrBadRequest, details)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// GetStatusCode returns the HTTP status code from an error
func GetStatusCode(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
