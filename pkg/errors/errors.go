package errors

import (
	"context"
	"errors"
	"fmt"
)

// GetDomainError extracts a DomainError from an error chain.
func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// HasCode reports whether err carries the given stable code.
func HasCode(err error, code string) bool {
	if d := GetDomainError(err); d != nil {
		return d.Code == code
	}
	return false
}

// IsType reports whether err is a DomainError of the given type.
func IsType(err error, errType DomainErrorType) bool {
	if d := GetDomainError(err); d != nil {
		return d.Type == errType
	}
	return false
}

// IsNotFound checks if error is a not found error
func IsNotFound(err error) bool {
	return IsType(err, DomainNotFoundError)
}

// IsConflict checks if error is a conflict error
func IsConflict(err error) bool {
	return IsType(err, DomainConflictError)
}

// IsValidation checks if error is a validation error
func IsValidation(err error) bool {
	return IsType(err, DomainValidationError)
}

// IsRetryable reports whether the caller may retry the failed operation.
func IsRetryable(err error) bool {
	if d := GetDomainError(err); d != nil {
		return d.Retryable
	}
	return false
}

// Normalize turns any error into a DomainError. Context errors become
// timeouts, unknown errors become storage failures.
func Normalize(err error) *DomainError {
	if err == nil {
		return nil
	}
	if d := GetDomainError(err); d != nil {
		return d
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTransactionTimeout.New().WithCause(err)
	}
	if errors.Is(err, context.Canceled) {
		return ErrTransactionAborted.New().WithCause(err).WithRetryable(false)
	}
	return ErrStorageFailure.New().WithCause(err)
}

// Wrap wraps an error with a message
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
