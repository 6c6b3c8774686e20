// Package errors provides the application-level error kinds used to map
// forwarder/session/store failures onto HTTP status codes and log levels.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the semantic kind of an AppError, per the error
// kinds enumerated for this system: config, bind, not-found, conflict,
// validation, and already-shutdown.
type ErrorType string

const (
	// ErrorTypeConfig covers malformed JSON, unknown enum values,
	// unparseable endpoints, and violated rule invariants. Fatal at
	// bootstrap; surfaced as 400 for HTTP create/update.
	ErrorTypeConfig ErrorType = "config_error"

	// ErrorTypeValidation covers per-field struct validation failures on
	// an HTTP request body. Surfaced as 400.
	ErrorTypeValidation ErrorType = "validation_error"

	// ErrorTypeBind means a session's source socket could not be bound.
	// Fatal for that session, never HTTP-facing: it is returned from a
	// session's Run and logged by the Manager.
	ErrorTypeBind ErrorType = "bind_error"

	// ErrorTypeNotFound means an HTTP update/delete referenced an unknown
	// or tombstoned RuleId. Surfaced as 404.
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeConflict means a create/update would collide with an
	// existing active rule's (protocol, source) pair. Surfaced as 409.
	ErrorTypeConflict ErrorType = "conflict"

	// ErrorTypeAlreadyShutdown is returned by Manager.Shutdown on a
	// second call. Not an HTTP error; never propagated past the caller
	// that observes it.
	ErrorTypeAlreadyShutdown ErrorType = "already_shutdown"

	// ErrorTypeInternal is the fallback for anything else.
	ErrorTypeInternal ErrorType = "internal_error"
)

// AppError represents an application error with additional context.
type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details string    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func newError(t ErrorType, code int, message string, details ...string) *AppError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &AppError{Type: t, Message: message, Code: code, Details: detail}
}

// NewConfigError creates a config-kind error (400 when HTTP-facing).
func NewConfigError(message string, details ...string) *AppError {
	return newError(ErrorTypeConfig, http.StatusBadRequest, message, details...)
}

// NewValidationError creates a validation-kind error (400).
func NewValidationError(message string, details ...string) *AppError {
	return newError(ErrorTypeValidation, http.StatusBadRequest, message, details...)
}

// NewBindError creates a bind-kind error. Not HTTP-facing; Code is set for
// completeness but callers only inspect Type/Message/Details.
func NewBindError(message string, details ...string) *AppError {
	return newError(ErrorTypeBind, http.StatusInternalServerError, message, details...)
}

// NewNotFoundError creates a not-found-kind error (404).
func NewNotFoundError(message string, details ...string) *AppError {
	return newError(ErrorTypeNotFound, http.StatusNotFound, message, details...)
}

// NewConflictError creates a conflict-kind error (409).
func NewConflictError(message string, details ...string) *AppError {
	return newError(ErrorTypeConflict, http.StatusConflict, message, details...)
}

// NewAlreadyShutdownError creates the error returned by a second Shutdown call.
func NewAlreadyShutdownError(message string, details ...string) *AppError {
	return newError(ErrorTypeAlreadyShutdown, http.StatusConflict, message, details...)
}

// NewInternalError creates a generic internal error (500).
func NewInternalError(message string, details ...string) *AppError {
	return newError(ErrorTypeInternal, http.StatusInternalServerError, message, details...)
}

// IsAppError reports whether err is (or wraps) an *AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts an *AppError from err, or nil if it isn't one.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsNotFoundError reports whether err is a not-found AppError.
func IsNotFoundError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeNotFound
}

// IsConflictError reports whether err is a conflict AppError.
func IsConflictError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeConflict
}

// IsAlreadyShutdownError reports whether err is an already-shutdown AppError.
func IsAlreadyShutdownError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeAlreadyShutdown
}
