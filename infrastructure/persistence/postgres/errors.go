package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	pkgerrors "catalog/pkg/errors"
)

// SQLSTATE codes the adapter reacts to.
const (
	uniqueViolation      = "23505"
	foreignKeyViolation  = "23503"
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
	lockNotAvailable     = "55P03"
	queryCanceled        = "57014"
)

// Constraint names from the migrations.
const (
	constraintCategorySlug       = "categories_slug_key"
	constraintSiblingName        = "categories_parent_name_key"
	constraintCategoryParent     = "categories_parent_id_fkey"
	constraintProductCategory    = "products_category_id_fkey"
	constraintRegistrationSlug   = "slug_registrations_slug_key"
	constraintRegistrationActive = "slug_registrations_active_entity_key"
)

// mapError turns driver errors into domain errors. Errors that are already
// domain errors pass through unchanged.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if pkgerrors.GetDomainError(err) != nil {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			switch pgErr.ConstraintName {
			case constraintCategorySlug, constraintRegistrationSlug:
				return pkgerrors.ErrSlugAlreadyInUse.New().WithCause(err).WithDetail("operation", op)
			case constraintSiblingName:
				return pkgerrors.ErrSiblingNameConflict.New().WithCause(err).WithDetail("operation", op)
			case constraintRegistrationActive:
				return pkgerrors.ErrConcurrencyConflict.New().WithCause(err).WithDetail("operation", op)
			}
		case foreignKeyViolation:
			switch pgErr.ConstraintName {
			case constraintProductCategory:
				return pkgerrors.ErrCategoryHasProducts.New().WithCause(err)
			case constraintCategoryParent:
				if op == "delete_category" {
					return pkgerrors.ErrCategoryHasChildren.New().WithCause(err)
				}
				return pkgerrors.ErrParentNotFound.New().WithCause(err)
			}
		case serializationFailure, deadlockDetected:
			return pkgerrors.ErrTransactionAborted.New().WithCause(err).WithDetail("operation", op)
		case lockNotAvailable, queryCanceled:
			return pkgerrors.ErrTransactionTimeout.New().WithCause(err).WithDetail("operation", op)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return pkgerrors.Normalize(err)
	}
	return pkgerrors.StorageFailure(op, err)
}

// isRetryable reports serialization failures and deadlocks, wrapped or not.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == serializationFailure || pgErr.Code == deadlockDetected
	}
	return false
}
