package dto

import (
	"net/http"
	"testing"

	"github.com/housing/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeErrorCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{shared.CodeNotFound, ErrCodeNotFound},
		{shared.CodeConflict, ErrCodeConflict},
		{shared.CodeValidation, ErrCodeValidation},
		{shared.CodeTransport, ErrCodeUnavailable},
		{shared.CodeInvalidState, ErrCodeInvalidState},
		{shared.CodeForbidden, ErrCodeForbidden},
		{ErrCodeRateLimited, ErrCodeRateLimited},
		{"SOMETHING_ELSE", "SOMETHING_ELSE"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeErrorCode(tt.in))
		})
	}
}

func TestGetHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, GetHTTPStatus(ErrCodeNotFound))
	assert.Equal(t, http.StatusConflict, GetHTTPStatus(ErrCodeConflict))
	assert.Equal(t, http.StatusForbidden, GetHTTPStatus(NormalizeErrorCode(shared.CodeForbidden)))
	assert.Equal(t, http.StatusServiceUnavailable, GetHTTPStatus(NormalizeErrorCode(shared.CodeTransport)))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus("ERR_WHATEVER"))
}

func TestNewValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "req-1", []ValidationDetail{
		{Field: "flat_id", Message: "This field is required"},
	})

	assert.False(t, resp.Success)
	assert.Nil(t, resp.Data)
	assert.Equal(t, ErrCodeValidation, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
	assert.Len(t, resp.Error.Details, 1)
}
