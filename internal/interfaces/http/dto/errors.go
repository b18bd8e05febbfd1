package dto

import (
	"net/http"
	"strings"

	"github.com/erp/stockledger/internal/domain/shared"
)

// Error code constants
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
	ErrCodeValidationRange    = "ERR_VALIDATION_RANGE"
	ErrCodeValidationLength   = "ERR_VALIDATION_LENGTH"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	// ErrCodeDuplicateRequest is returned for a reused Idempotency-Key
	ErrCodeDuplicateRequest = "ERR_DUPLICATE_REQUEST"
)

// Stock ledger error codes
const (
	ErrCodeInvalidState          = "ERR_INVALID_STATE"
	ErrCodeUnsupportedConversion = "ERR_UNSUPPORTED_CONVERSION"
	ErrCodeIllegalTransition     = "ERR_ILLEGAL_TRANSITION"
	ErrCodePersistenceFailure    = "ERR_PERSISTENCE_FAILURE"
)

// Input error codes
const (
	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON  = "ERR_INVALID_JSON"
	// ErrCodeMissingActor is returned when the tenant or user header is absent
	ErrCodeMissingActor = "ERR_MISSING_ACTOR"

	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	// ErrCodeRateLimitExceeded is returned when a tenant sends mutating requests too fast
	ErrCodeRateLimitExceeded = "ERR_RATE_LIMIT_EXCEEDED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,
	ErrCodeValidationLength:   http.StatusBadRequest,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeDuplicateRequest:    http.StatusConflict,

	ErrCodeInvalidState:          http.StatusUnprocessableEntity,
	ErrCodeUnsupportedConversion: http.StatusUnprocessableEntity,
	ErrCodeIllegalTransition:     http.StatusConflict,
	ErrCodePersistenceFailure:    http.StatusInternalServerError,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,
	ErrCodeMissingActor: http.StatusBadRequest,

	ErrCodeRequestTooLarge:   http.StatusRequestEntityTooLarge,
	ErrCodeRateLimitExceeded: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	shared.CodeNotFound:              ErrCodeNotFound,
	shared.CodeAlreadyExists:         ErrCodeAlreadyExists,
	shared.CodeInvalidInput:          ErrCodeInvalidInput,
	shared.CodeInvalidState:          ErrCodeInvalidState,
	shared.CodeConcurrencyConflict:   ErrCodeConcurrencyConflict,
	shared.CodeUnsupportedConversion: ErrCodeUnsupportedConversion,
	shared.CodeIllegalTransition:     ErrCodeIllegalTransition,
	shared.CodePersistenceFailure:    ErrCodePersistenceFailure,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Field-level domain codes such as INVALID_QUANTITY collapse to
// ERR_INVALID_INPUT; codes already in the API format pass through unchanged.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	if strings.HasPrefix(code, "INVALID_") {
		return ErrCodeInvalidInput
	}
	return code
}
