package shared

import (
	"errors"
	"fmt"
)

// Error codes shared by the domain, application and interface layers
const (
	CodeNotFound     = "NOT_FOUND"
	CodeConflict     = "CONFLICT"
	CodeValidation   = "VALIDATION_ERROR"
	CodeTransport    = "TRANSPORT_ERROR"
	CodeInvalidState = "INVALID_STATE"
	CodeForbidden    = "FORBIDDEN"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so that wrapped copies with a custom
// message still satisfy errors.Is against the sentinels below.
func (e *DomainError) Is(target error) bool {
	var other *DomainError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound     = NewDomainError(CodeNotFound, "Resource not found")
	ErrConflict     = NewDomainError(CodeConflict, "Resource state conflicts with the request")
	ErrValidation   = NewDomainError(CodeValidation, "Invalid input provided")
	ErrTransport    = NewDomainError(CodeTransport, "Data store is unavailable")
	ErrInvalidState = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrForbidden    = NewDomainError(CodeForbidden, "Operation not permitted for this caller")
)

// LookupError is returned by every store-facing operation. Entity names the
// table or aggregate that was being read or written, Cause carries either a
// domain sentinel (ErrNotFound, ErrConflict) or the underlying transport error.
type LookupError struct {
	Entity string
	Op     string
	Cause  error
}

// Error implements the error interface
func (e *LookupError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s lookup: %v", e.Entity, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Entity, e.Op, e.Cause)
}

// Unwrap exposes the cause to errors.Is / errors.As
func (e *LookupError) Unwrap() error {
	return e.Cause
}

// NewLookupError wraps cause for the given entity and operation
func NewLookupError(entity, op string, cause error) *LookupError {
	return &LookupError{Entity: entity, Op: op, Cause: cause}
}

// Code returns the domain error code carried by err, CodeTransport for
// any error that is not a DomainError, and "" for nil.
func Code(err error) string {
	if err == nil {
		return ""
	}
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeTransport
}

// IsNotFound reports whether err signals a missing record
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether err signals a state conflict
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsValidation reports whether err signals rejected input
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsTransport reports whether err is a transport-level failure, i.e. anything
// that is not one of the domain classifications. Only these are retryable.
func IsTransport(err error) bool {
	return Code(err) == CodeTransport
}

// NotFoundf builds a NOT_FOUND error with a formatted message
func NotFoundf(format string, args ...any) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf(format, args...))
}

// Conflictf builds a CONFLICT error with a formatted message
func Conflictf(format string, args ...any) *DomainError {
	return NewDomainError(CodeConflict, fmt.Sprintf(format, args...))
}

// Validationf builds a VALIDATION_ERROR error with a formatted message
func Validationf(format string, args ...any) *DomainError {
	return NewDomainError(CodeValidation, fmt.Sprintf(format, args...))
}

// Forbiddenf builds a FORBIDDEN error with a formatted message
func Forbiddenf(format string, args ...any) *DomainError {
	return NewDomainError(CodeForbidden, fmt.Sprintf(format, args...))
}
