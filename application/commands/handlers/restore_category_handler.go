package handlers

import (
	"context"

	"go.uber.org/zap"

	"catalog/application/commands"
	"catalog/domain/core/entities"
	"catalog/domain/core/valueobjects"
)

// RestoreCategoryHandler clears the archive state of a category whose
// ancestors are all active.
type RestoreCategoryHandler struct {
	base
}

// NewRestoreCategoryHandler creates a new restore category handler
func NewRestoreCategoryHandler(d Dependencies) *RestoreCategoryHandler {
	return &RestoreCategoryHandler{base: newBase(d)}
}

// Handle executes the restore category command
func (h *RestoreCategoryHandler) Handle(ctx context.Context, cmd commands.RestoreCategoryCommand) (*commands.CategoryResult, error) {
	id, err := valueobjects.NewCategoryID(cmd.CategoryID)
	if err != nil {
		return nil, err
	}

	var category *entities.Category
	var changed bool
	var revealed int
	err = h.Tx.InTx(ctx, cmd.TxPolicy(), func(ctx context.Context) error {
		c, err := h.Store.GetByIDIncludingArchived(ctx, id)
		if err != nil {
			return err
		}
		if err := checkVersion(c, cmd.ExpectedVersion); err != nil {
			return err
		}
		category, changed, revealed = c, false, 0
		if !c.IsArchived() {
			return nil
		}

		descendants, err := h.Store.GetDescendants(ctx, c.Path(), c.ID(), h.Hierarchy.DescendantCap())
		if err != nil {
			return err
		}
		ancestors, err := h.Store.GetArchivedAncestors(ctx, c.Path())
		if err != nil {
			return err
		}
		changed, err = h.Hierarchy.RestoreCategoryAndDescendants(c, descendants, ancestors, h.Clock.Now())
		if err != nil || !changed {
			return err
		}
		revealed = len(descendants)
		return h.Store.Save(ctx, c)
	})
	if err != nil {
		return nil, boundary(err)
	}

	if changed {
		h.recordCascade(ctx, "restore", revealed)
		h.publish(ctx, category)
		h.Logger.Info("Category restored", zap.Int64("category_id", id.Int64()))
	}
	return categoryResult(category, changed, 0), nil
}
