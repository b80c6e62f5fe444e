package handlers

import (
	"context"

	"go.uber.org/zap"

	"catalog/application/commands"
	"catalog/domain/core/entities"
	"catalog/domain/core/valueobjects"
)

// ArchiveCategoryHandler soft-deletes a category. Its subtree is occluded at
// read time and never written.
type ArchiveCategoryHandler struct {
	base
}

// NewArchiveCategoryHandler creates a new archive category handler
func NewArchiveCategoryHandler(d Dependencies) *ArchiveCategoryHandler {
	return &ArchiveCategoryHandler{base: newBase(d)}
}

// Handle executes the archive category command
func (h *ArchiveCategoryHandler) Handle(ctx context.Context, cmd commands.ArchiveCategoryCommand) (*commands.CategoryResult, error) {
	id, err := valueobjects.NewCategoryID(cmd.CategoryID)
	if err != nil {
		return nil, err
	}

	var category *entities.Category
	var changed bool
	var occluded int
	err = h.Tx.InTx(ctx, cmd.TxPolicy(), func(ctx context.Context) error {
		c, err := h.Store.GetByIDIncludingArchived(ctx, id)
		if err != nil {
			return err
		}
		if err := checkVersion(c, cmd.ExpectedVersion); err != nil {
			return err
		}
		category, changed, occluded = c, false, 0
		if c.IsArchived() {
			return nil
		}

		descendants, err := h.Store.GetDescendants(ctx, c.Path(), c.ID(), h.Hierarchy.DescendantCap())
		if err != nil {
			return err
		}
		changed, err = h.Hierarchy.ArchiveCategoryAndDescendants(c, descendants, h.Clock.Now())
		if err != nil || !changed {
			return err
		}
		occluded = len(descendants)
		return h.Store.Save(ctx, c)
	})
	if err != nil {
		return nil, boundary(err)
	}

	if changed {
		h.recordCascade(ctx, "archive", occluded)
		h.publish(ctx, category)
		h.Logger.Info("Category archived",
			zap.Int64("category_id", id.Int64()),
			zap.Int("occluded_descendants", occluded),
		)
	}
	return categoryResult(category, changed, 0), nil
}
