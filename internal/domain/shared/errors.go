package shared

import (
	"errors"
	"fmt"
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

// ErrorCode returns the machine-readable code
func (e *DomainError) ErrorCode() string {
	return e.Code
}

// Is matches two domain errors by code, so re-created errors still satisfy
// errors.Is against the package sentinels.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// CodedError is implemented by every error that carries a domain error code.
type CodedError interface {
	error
	ErrorCode() string
}

// Error codes shared across bounded contexts
const (
	CodeNotFound              = "NOT_FOUND"
	CodeAlreadyExists         = "ALREADY_EXISTS"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeInvalidState          = "INVALID_STATE"
	CodeConcurrencyConflict   = "CONCURRENCY_CONFLICT"
	CodeUnsupportedConversion = "UNSUPPORTED_CONVERSION"
	CodeIllegalTransition     = "ILLEGAL_TRANSITION"
	CodePersistenceFailure    = "PERSISTENCE_FAILURE"
)

// Common domain errors
var (
	ErrNotFound              = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists         = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput          = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInvalidState          = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrConcurrencyConflict   = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrUnsupportedConversion = NewDomainError(CodeUnsupportedConversion, "Units are not convertible")
	ErrIllegalTransition     = NewDomainError(CodeIllegalTransition, "Status transition is not allowed")
	ErrPersistenceFailure    = NewDomainError(CodePersistenceFailure, "Storage operation failed")
)

// PersistenceError wraps a storage failure that aborted a transaction.
type PersistenceError struct {
	Op  string
	Err error
}

// NewPersistenceError wraps err as a persistence failure of op.
// Errors that already carry a domain code are returned unchanged.
func NewPersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var coded CodedError
	if errors.As(err, &coded) {
		return err
	}
	return &PersistenceError{Op: op, Err: err}
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// ErrorCode returns PERSISTENCE_FAILURE
func (e *PersistenceError) ErrorCode() string {
	return CodePersistenceFailure
}

// Is reports a match against ErrPersistenceFailure.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistenceFailure
}
