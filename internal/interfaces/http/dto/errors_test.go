package dto

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code     string
		expected int
	}{
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeAlreadyExists, http.StatusConflict},
		{ErrCodeConcurrencyConflict, http.StatusConflict},
		{ErrCodeDuplicateRequest, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeUnsupportedConversion, http.StatusUnprocessableEntity},
		{ErrCodeIllegalTransition, http.StatusConflict},
		{ErrCodePersistenceFailure, http.StatusInternalServerError},
		{ErrCodeInvalidInput, http.StatusBadRequest},
		{ErrCodeMissingActor, http.StatusBadRequest},
		{"UNKNOWN_CODE", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetHTTPStatus(tt.code))
		})
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeUnsupportedConversion, NormalizeErrorCode(shared.CodeUnsupportedConversion))
	assert.Equal(t, ErrCodeIllegalTransition, NormalizeErrorCode(shared.CodeIllegalTransition))
	assert.Equal(t, ErrCodePersistenceFailure, NormalizeErrorCode(shared.CodePersistenceFailure))
	assert.Equal(t, ErrCodeDuplicateRequest, NormalizeErrorCode(ErrCodeDuplicateRequest))
	assert.Equal(t, ErrCodeInvalidInput, NormalizeErrorCode("INVALID_QUANTITY"))

	// every domain code has an HTTP status
	for domainCode := range DomainErrorCodeMapping {
		_, ok := ErrorCodeHTTPStatus[NormalizeErrorCode(domainCode)]
		assert.True(t, ok, domainCode)
	}
}

func TestNewValidationErrorResponse(t *testing.T) {
	resp := NewValidationErrorResponse("Request validation failed", "req-1", []ValidationDetail{
		{Field: "status", Message: "status is required", Code: ErrCodeValidationRequired},
	})

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"success": false,
		"error": {
			"code": "ERR_VALIDATION",
			"message": "Request validation failed",
			"request_id": "req-1",
			"details": [{"field": "status", "message": "status is required", "code": "ERR_VALIDATION_REQUIRED"}]
		}
	}`, string(raw))
}

func TestNewPaginatedResponse(t *testing.T) {
	resp := NewPaginatedResponse(shared.NewPaginated[string](nil, 0, 1, 20))
	assert.True(t, resp.Success)
	assert.Equal(t, []string{}, resp.Data)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, 20, resp.Meta.PageSize)
}

func TestListRequest_Filter(t *testing.T) {
	f := ListRequest{}.Filter()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 20, f.PageSize)
	assert.Empty(t, f.OrderBy)
}
