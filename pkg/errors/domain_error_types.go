package errors

import (
	"fmt"
	"strings"
)

// DomainErrorType represents the category of domain error
type DomainErrorType string

const (
	// DomainValidationError indicates malformed input
	DomainValidationError DomainErrorType = "VALIDATION_ERROR"

	// DomainNotFoundError indicates a resource was not found
	DomainNotFoundError DomainErrorType = "NOT_FOUND"

	// DomainConflictError indicates a conflict with existing state
	DomainConflictError DomainErrorType = "CONFLICT"

	// DomainStructuralLimitError indicates a cascade larger than the configured cap
	DomainStructuralLimitError DomainErrorType = "STRUCTURAL_LIMIT_ERROR"

	// DomainHierarchyStateError indicates the tree is in a state that forbids the operation
	DomainHierarchyStateError DomainErrorType = "HIERARCHY_STATE_ERROR"

	// DomainTimeoutError indicates a lock wait or statement timeout
	DomainTimeoutError DomainErrorType = "TIMEOUT_ERROR"

	// DomainInfrastructureError indicates an infrastructure-level failure
	DomainInfrastructureError DomainErrorType = "INFRASTRUCTURE_ERROR"
)

// Stable error codes exposed to callers.
const (
	CodeCategoryNotFound          = "CATEGORY_NOT_FOUND"
	CodeParentNotFound            = "PARENT_NOT_FOUND"
	CodeSlugNotFound              = "SLUG_NOT_FOUND"
	CodeConcurrencyConflict       = "CONCURRENCY_CONFLICT"
	CodeEmptySlug                 = "EMPTY_SLUG"
	CodeSlugTooLong               = "SLUG_TOO_LONG"
	CodeInvalidSlugFormat         = "INVALID_SLUG_FORMAT"
	CodeInvalidCategoryID         = "INVALID_CATEGORY_ID"
	CodeInvalidCategoryName       = "INVALID_CATEGORY_NAME"
	CodeInvalidPath               = "INVALID_PATH"
	CodeInvalidVersion            = "INVALID_VERSION"
	CodeInvalidCommand            = "INVALID_COMMAND"
	CodeSelfParenting             = "SELF_PARENTING"
	CodeCannotMoveUnderDescendant = "CANNOT_MOVE_UNDER_DESCENDANT"
	CodeTooManyDescendantsToMove  = "TOO_MANY_DESCENDANTS_TO_MOVE"
	CodeHasArchivedAncestors      = "HAS_ARCHIVED_ANCESTORS"
	CodeCategoryNotArchived       = "CATEGORY_NOT_ARCHIVED"
	CodeCategoryArchived          = "CATEGORY_ARCHIVED"
	CodeGracePeriodNotElapsed     = "GRACE_PERIOD_NOT_ELAPSED"
	CodeCategoryHasChildren       = "CATEGORY_HAS_CHILDREN"
	CodeCategoryHasProducts       = "CATEGORY_HAS_PRODUCTS"
	CodeSlugAlreadyInUse          = "SLUG_ALREADY_IN_USE"
	CodeSiblingNameConflict       = "SIBLING_NAME_CONFLICT"
	CodeTransactionTimeout        = "TRANSACTION_TIMEOUT"
	CodeTransactionAborted        = "TRANSACTION_ABORTED"
	CodeStorageFailure            = "STORAGE_FAILURE"
)

// DomainError represents a domain-specific error with rich context
type DomainError struct {
	Type       DomainErrorType        `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
}

// NewDomainError creates a new domain error
func NewDomainError(errorType DomainErrorType, code string, message string) *DomainError {
	return &DomainError{
		Type:       errorType,
		Code:       code,
		Message:    message,
		Details:    make(map[string]interface{}),
		StatusCode: domainErrorTypeToStatusCode(errorType),
	}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Type, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

// New returns a fresh copy of e so that sentinel values are never mutated
// by WithDetail or WithCause.
func (e *DomainError) New() *DomainError {
	clone := *e
	clone.Details = make(map[string]interface{}, len(e.Details))
	for k, v := range e.Details {
		clone.Details[k] = v
	}
	return &clone
}

// WithCause adds a cause to the error
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	e.Details[key] = value
	return e
}

// WithRetryable sets whether the error is retryable
func (e *DomainError) WithRetryable(retryable bool) *DomainError {
	e.Retryable = retryable
	return e
}

// WithStatusCode sets a custom HTTP status code
func (e *DomainError) WithStatusCode(code int) *DomainError {
	e.StatusCode = code
	return e
}

// Is matches on type and code so errors.Is works against the sentinels below.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

// Unwrap returns the underlying cause
func (e *DomainError) Unwrap() error {
	return e.Cause
}

func domainErrorTypeToStatusCode(errorType DomainErrorType) int {
	switch errorType {
	case DomainValidationError:
		return 400
	case DomainNotFoundError:
		return 404
	case DomainConflictError:
		return 409
	case DomainStructuralLimitError, DomainHierarchyStateError:
		return 422
	case DomainTimeoutError:
		return 504
	default:
		return 500
	}
}

// Sentinels. Use the constructor functions or New() before attaching details.
var (
	ErrCategoryNotFound = NewDomainError(DomainNotFoundError, CodeCategoryNotFound,
		"The requested category does not exist")

	ErrParentNotFound = NewDomainError(DomainNotFoundError, CodeParentNotFound,
		"The requested parent category does not exist or is archived")

	ErrSlugNotFound = NewDomainError(DomainNotFoundError, CodeSlugNotFound,
		"No entity is registered under this slug")

	ErrConcurrencyConflict = NewDomainError(DomainConflictError, CodeConcurrencyConflict,
		"The category was modified by another request; refetch and retry").WithRetryable(true)

	ErrEmptySlug = NewDomainError(DomainValidationError, CodeEmptySlug,
		"Slug is required")

	ErrSlugTooLong = NewDomainError(DomainValidationError, CodeSlugTooLong,
		"Slug exceeds maximum length")

	ErrInvalidSlugFormat = NewDomainError(DomainValidationError, CodeInvalidSlugFormat,
		"Slug must be lowercase alphanumerics separated by single hyphens")

	ErrInvalidCategoryID = NewDomainError(DomainValidationError, CodeInvalidCategoryID,
		"Category id must be a positive integer")

	ErrInvalidCategoryName = NewDomainError(DomainValidationError, CodeInvalidCategoryName,
		"Category name is invalid")

	ErrInvalidPath = NewDomainError(DomainValidationError, CodeInvalidPath,
		"Hierarchical path is invalid")

	ErrInvalidVersion = NewDomainError(DomainValidationError, CodeInvalidVersion,
		"Version token is required")

	ErrInvalidCommand = NewDomainError(DomainValidationError, CodeInvalidCommand,
		"Command failed validation")

	ErrSelfParenting = NewDomainError(DomainValidationError, CodeSelfParenting,
		"A category cannot be its own parent")

	ErrCannotMoveUnderDescendant = NewDomainError(DomainValidationError, CodeCannotMoveUnderDescendant,
		"A category cannot be moved under one of its descendants")

	ErrTooManyDescendantsToMove = NewDomainError(DomainStructuralLimitError, CodeTooManyDescendantsToMove,
		"The operation would touch more descendants than allowed")

	ErrHasArchivedAncestors = NewDomainError(DomainHierarchyStateError, CodeHasArchivedAncestors,
		"The category has an archived ancestor and cannot be restored")

	ErrCategoryNotArchived = NewDomainError(DomainHierarchyStateError, CodeCategoryNotArchived,
		"The category must be archived before it can be deleted")

	ErrCategoryArchived = NewDomainError(DomainHierarchyStateError, CodeCategoryArchived,
		"The category is archived")

	ErrGracePeriodNotElapsed = NewDomainError(DomainHierarchyStateError, CodeGracePeriodNotElapsed,
		"The deletion grace period has not elapsed")

	ErrCategoryHasChildren = NewDomainError(DomainHierarchyStateError, CodeCategoryHasChildren,
		"The category still has child categories")

	ErrCategoryHasProducts = NewDomainError(DomainHierarchyStateError, CodeCategoryHasProducts,
		"The category still has products")

	ErrSlugAlreadyInUse = NewDomainError(DomainConflictError, CodeSlugAlreadyInUse,
		"The slug is already used by another entity")

	ErrSiblingNameConflict = NewDomainError(DomainConflictError, CodeSiblingNameConflict,
		"A sibling category with this name already exists")

	ErrTransactionTimeout = NewDomainError(DomainTimeoutError, CodeTransactionTimeout,
		"The operation exceeded its lock or statement timeout").WithRetryable(true)

	ErrTransactionAborted = NewDomainError(DomainInfrastructureError, CodeTransactionAborted,
		"The transaction was aborted by a conflicting writer").WithRetryable(true).WithStatusCode(503)

	ErrStorageFailure = NewDomainError(DomainInfrastructureError, CodeStorageFailure,
		"Storage operation failed")
)

// CategoryNotFound reports a missing category by id.
func CategoryNotFound(id int64) *DomainError {
	return ErrCategoryNotFound.New().WithDetail("category_id", id)
}

// ConcurrencyConflict reports a stale version token.
func ConcurrencyConflict(id int64) *DomainError {
	return ErrConcurrencyConflict.New().WithDetail("category_id", id)
}

// TooManyDescendants reports a cascade over the cap.
func TooManyDescendants(id int64, limit int) *DomainError {
	return ErrTooManyDescendantsToMove.New().
		WithDetail("category_id", id).
		WithDetail("limit", limit)
}

// SlugAlreadyInUse reports a slug owned by a different entity.
func SlugAlreadyInUse(slug string) *DomainError {
	return ErrSlugAlreadyInUse.New().WithDetail("slug", slug)
}

// StorageFailure wraps an unexpected storage error.
func StorageFailure(operation string, cause error) *DomainError {
	return ErrStorageFailure.New().
		WithDetail("operation", operation).
		WithCause(cause)
}

// ValidationErrors aggregates multiple validation errors
type ValidationErrors struct {
	Errors []*DomainError `json:"errors"`
}

// NewValidationErrors creates a new validation errors collection
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{Errors: make([]*DomainError, 0)}
}

// Add adds a field validation error
func (v *ValidationErrors) Add(field string, message string) {
	err := ErrInvalidCommand.New().WithDetail("field", field)
	err.Message = message
	v.Errors = append(v.Errors, err)
}

// HasErrors returns true if there are validation errors
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// Error implements the error interface
func (v *ValidationErrors) Error() string {
	messages := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		messages[i] = err.Message
	}
	return fmt.Sprintf("Validation failed: %s", strings.Join(messages, "; "))
}

// AsDomainError folds the collection into a single INVALID_COMMAND error.
func (v *ValidationErrors) AsDomainError() *DomainError {
	fields := make(map[string]string, len(v.Errors))
	for _, err := range v.Errors {
		if field, ok := err.Details["field"].(string); ok {
			fields[field] = err.Message
		}
	}
	return ErrInvalidCommand.New().WithDetail("fields", fields)
}
