package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeNotConfigured     = "NOT_CONFIGURED"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

// Error is a domain error carrying one of the ErrCode constants. The engine
// and service layers return these; handlers map them to HTTP statuses via
// WriteDomainError.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func Validation(format string, args ...interface{}) *Error {
	return &Error{Code: ErrCodeInvalidInput, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) *Error {
	return &Error{Code: ErrCodeConflict, Message: fmt.Sprintf(format, args...)}
}

func NotConfigured(format string, args ...interface{}) *Error {
	return &Error{Code: ErrCodeNotConfigured, Message: fmt.Sprintf(format, args...)}
}

func Is(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// StatusFor maps a domain error code to an HTTP status. Unknown errors are
// internal.
func StatusFor(err error) (int, string) {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError, ErrCodeInternal
	}
	switch e.Code {
	case ErrCodeInvalidInput:
		return http.StatusBadRequest, e.Code
	case ErrCodeNotFound:
		return http.StatusNotFound, e.Code
	case ErrCodeConflict:
		return http.StatusConflict, e.Code
	case ErrCodeNotConfigured:
		return http.StatusNotFound, e.Code
	case ErrCodeForbidden:
		return http.StatusForbidden, e.Code
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized, e.Code
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}

func WriteError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    code,
		Details: details,
	})
}

func WriteDomainError(w http.ResponseWriter, err error) {
	status, code := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "Internal error"
	}
	WriteError(w, status, code, message, nil)
}
