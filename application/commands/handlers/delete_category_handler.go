package handlers

import (
	"context"

	"go.uber.org/zap"

	"catalog/application/commands"
	"catalog/application/ports"
	"catalog/application/sagas"
	"catalog/domain/core/entities"
	"catalog/domain/core/valueobjects"
	pkgerrors "catalog/pkg/errors"
)

// DeleteCategoryHandler permanently removes an archived, empty category once
// its grace period has elapsed, together with every slug it ever held.
type DeleteCategoryHandler struct {
	base
}

// NewDeleteCategoryHandler creates a new delete category handler
func NewDeleteCategoryHandler(d Dependencies) *DeleteCategoryHandler {
	return &DeleteCategoryHandler{base: newBase(d)}
}

// Handle executes the delete category command
func (h *DeleteCategoryHandler) Handle(ctx context.Context, cmd commands.DeleteCategoryCommand) (*commands.DeleteResult, error) {
	id, err := valueobjects.NewCategoryID(cmd.CategoryID)
	if err != nil {
		return nil, err
	}

	inTx := ports.JoinsStoreTx(h.Slugs)
	unregister := func(ctx context.Context) error {
		return h.Slugs.UnregisterAllSlugsOfEntity(ctx, valueobjects.EntityTypeCategory, id.Int64())
	}

	var category, deleted *entities.Category
	saga := sagas.New("delete_category", h.Logger)
	saga.AddStep(sagas.Step{
		Name: "delete_category",
		Execute: func(ctx context.Context) error {
			if err := h.Tx.InTx(ctx, cmd.TxPolicy(), func(ctx context.Context) error {
				category = nil
				c, err := h.Store.GetByIDIncludingArchived(ctx, id)
				if err != nil {
					return err
				}
				if err := h.checkDeletable(ctx, c, cmd.ExpectedVersion); err != nil {
					return err
				}
				if err := h.Store.Delete(ctx, c); err != nil {
					return err
				}
				if inTx {
					if err := unregister(ctx); err != nil {
						return err
					}
				}
				category = c
				return nil
			}); err != nil {
				return err
			}
			deleted = category
			return nil
		},
	})
	saga.AddStep(sagas.Step{
		Name: "unregister_slugs",
		Execute: func(ctx context.Context) error {
			if inTx {
				return nil
			}
			return unregister(ctx)
		},
		MaxRetries: registryAttempts,
		Retryable:  pkgerrors.IsRetryable,
	})

	err = saga.Execute(ctx)
	if deleted == nil {
		if pkgerrors.HasCode(err, pkgerrors.CodeCategoryNotFound) {
			h.sweepSlugs(ctx, id, unregister)
		}
		return nil, boundary(err)
	}

	deleted.RecordDeleted(h.Clock.Now())
	h.publish(ctx, deleted)
	if err != nil {
		h.Logger.Error("Category deleted but its slugs are still registered",
			zap.Int64("category_id", id.Int64()),
			zap.Error(err),
		)
		return nil, boundary(err)
	}
	h.Logger.Info("Category deleted", zap.Int64("category_id", id.Int64()))
	return &commands.DeleteResult{CategoryID: id.Int64(), Deleted: true}, nil
}

// checkDeletable enforces version, archive state, grace period and emptiness.
func (h *DeleteCategoryHandler) checkDeletable(ctx context.Context, c *entities.Category, expectedVersion string) error {
	id := c.ID()
	if err := checkVersion(c, expectedVersion); err != nil {
		return err
	}
	if !c.IsArchived() {
		return pkgerrors.ErrCategoryNotArchived.New().WithDetail("category_id", id.Int64())
	}
	if !c.GracePeriodElapsed(h.Clock.Now(), h.Config.DeletionGracePeriod) {
		return pkgerrors.ErrGracePeriodNotElapsed.New().
			WithDetail("category_id", id.Int64()).
			WithDetail("deletable_at", c.DeletedAt().Add(h.Config.DeletionGracePeriod))
	}

	hasChildren, err := h.Store.HasChildCategories(ctx, id)
	if err != nil {
		return err
	}
	if hasChildren {
		return pkgerrors.ErrCategoryHasChildren.New().WithDetail("category_id", id.Int64())
	}
	hasProducts, err := h.Store.HasProducts(ctx, id)
	if err != nil {
		return err
	}
	if hasProducts {
		return pkgerrors.ErrCategoryHasProducts.New().WithDetail("category_id", id.Int64())
	}
	return nil
}

// sweepSlugs drops registry rows left behind by an earlier delete whose
// unregister step failed. Category ids are never reused.
func (h *DeleteCategoryHandler) sweepSlugs(ctx context.Context, id valueobjects.CategoryID, unregister func(context.Context) error) {
	if err := unregister(ctx); err != nil {
		h.Logger.Warn("Failed to sweep slugs of missing category",
			zap.Int64("category_id", id.Int64()),
			zap.Error(err),
		)
	}
}
