package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrNotFound     = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden    = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict     = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation   = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal     = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss    = New("CACHE_MISS", http.StatusNotFound, "cache miss")

	// Verification gateway rejection reasons.
	ErrTokenExpired   = New("TOKEN_EXPIRED", http.StatusGone, "token expired, request a fresh one")
	ErrTokenExhausted = New("TOKEN_EXHAUSTED", http.StatusConflict, "token use limit reached")
	ErrNotRegistered  = New("NOT_REGISTERED", http.StatusForbidden, "participant is not registered for this event")
	ErrInvalidCode    = New("INVALID_ACCESS_CODE", http.StatusUnauthorized, "access code not recognized")

	// ErrDuplicateDeviceMismatch marks a physical re-mark from a different
	// device. Requires operator resolution, never silently merged.
	ErrDuplicateDeviceMismatch = New("DUPLICATE_DEVICE_MISMATCH", http.StatusConflict, "checkpoint already physically marked from a different device")

	// ErrSuspectedProxy is a soft rejection: the same device fingerprint
	// already marked a different participant in this event.
	ErrSuspectedProxy = New("SUSPECTED_PROXY", http.StatusConflict, "device already used for another participant, operator override required")

	// ErrScheduleFinalized rejects checkpoint edits after the event ended.
	ErrScheduleFinalized = New("SCHEDULE_FINALIZED", http.StatusConflict, "event has ended, schedule is immutable")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Is reports whether err carries the given sentinel's code.
func Is(err error, sentinel *Error) bool {
	if err == nil || sentinel == nil {
		return false
	}
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == sentinel.Code
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
