package dto

import (
	"net/http"

	"github.com/housing/backend/internal/domain/shared"
)

// Error codes returned in ErrorInfo.Code
// Format: ERR_<CATEGORY>
const (
	ErrCodeInternal        = "ERR_INTERNAL"
	ErrCodeValidation      = "ERR_VALIDATION"
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeUnauthorized    = "ERR_UNAUTHORIZED"
	ErrCodeForbidden       = "ERR_FORBIDDEN"
	ErrCodeNotFound        = "ERR_NOT_FOUND"
	ErrCodeConflict        = "ERR_CONFLICT"
	ErrCodeInvalidState    = "ERR_INVALID_STATE"
	ErrCodeUnavailable     = "ERR_UNAVAILABLE"
	ErrCodeTimeout         = "ERR_TIMEOUT"
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeUnauthorized:    http.StatusUnauthorized,
	ErrCodeForbidden:       http.StatusForbidden,
	ErrCodeNotFound:        http.StatusNotFound,
	ErrCodeConflict:        http.StatusConflict,
	ErrCodeInvalidState:    http.StatusUnprocessableEntity,
	ErrCodeUnavailable:     http.StatusServiceUnavailable,
	ErrCodeTimeout:         http.StatusGatewayTimeout,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// domainCodeMapping translates domain error codes into API codes
var domainCodeMapping = map[string]string{
	shared.CodeNotFound:     ErrCodeNotFound,
	shared.CodeConflict:     ErrCodeConflict,
	shared.CodeValidation:   ErrCodeValidation,
	shared.CodeTransport:    ErrCodeUnavailable,
	shared.CodeInvalidState: ErrCodeInvalidState,
	shared.CodeForbidden:    ErrCodeForbidden,
}

// NormalizeErrorCode converts a domain error code to its API form.
// Codes already in API form pass through unchanged.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := domainCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
