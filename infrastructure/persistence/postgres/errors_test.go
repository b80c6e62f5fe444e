package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	pkgerrors "catalog/pkg/errors"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		op   string
		err  error
		code string
	}{
		{"category slug", "create_category", &pgconn.PgError{Code: uniqueViolation, ConstraintName: constraintCategorySlug}, pkgerrors.CodeSlugAlreadyInUse},
		{"registry slug", "register_slug", &pgconn.PgError{Code: uniqueViolation, ConstraintName: constraintRegistrationSlug}, pkgerrors.CodeSlugAlreadyInUse},
		{"sibling name", "save_category", &pgconn.PgError{Code: uniqueViolation, ConstraintName: constraintSiblingName}, pkgerrors.CodeSiblingNameConflict},
		{"active registration race", "register_slug", &pgconn.PgError{Code: uniqueViolation, ConstraintName: constraintRegistrationActive}, pkgerrors.CodeConcurrencyConflict},
		{"child blocks delete", "delete_category", &pgconn.PgError{Code: foreignKeyViolation, ConstraintName: constraintCategoryParent}, pkgerrors.CodeCategoryHasChildren},
		{"missing parent", "create_category", &pgconn.PgError{Code: foreignKeyViolation, ConstraintName: constraintCategoryParent}, pkgerrors.CodeParentNotFound},
		{"product blocks delete", "delete_category", &pgconn.PgError{Code: foreignKeyViolation, ConstraintName: constraintProductCategory}, pkgerrors.CodeCategoryHasProducts},
		{"serialization", "transaction", &pgconn.PgError{Code: serializationFailure}, pkgerrors.CodeTransactionAborted},
		{"deadlock", "transaction", fmt.Errorf("commit: %w", &pgconn.PgError{Code: deadlockDetected}), pkgerrors.CodeTransactionAborted},
		{"lock timeout", "save_category", &pgconn.PgError{Code: lockNotAvailable}, pkgerrors.CodeTransactionTimeout},
		{"statement timeout", "get_descendants", &pgconn.PgError{Code: queryCanceled}, pkgerrors.CodeTransactionTimeout},
		{"deadline", "get_category", context.DeadlineExceeded, pkgerrors.CodeTransactionTimeout},
		{"unknown", "get_category", errors.New("connection reset"), pkgerrors.CodeStorageFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError(tt.op, tt.err)
			assert.True(t, pkgerrors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestMapError_PassesDomainErrorsThrough(t *testing.T) {
	in := pkgerrors.CategoryNotFound(3)
	assert.Same(t, in, mapError("get_category", in))
	assert.NoError(t, mapError("get_category", nil))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&pgconn.PgError{Code: serializationFailure}))
	assert.True(t, isRetryable(pkgerrors.ErrTransactionAborted.New().WithCause(&pgconn.PgError{Code: deadlockDetected})))
	assert.False(t, isRetryable(&pgconn.PgError{Code: uniqueViolation}))
	assert.False(t, isRetryable(errors.New("boom")))
}
