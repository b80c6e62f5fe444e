package handlers

import (
	"context"

	"go.uber.org/zap"

	"catalog/application/commands"
	"catalog/domain/core/entities"
	"catalog/domain/core/valueobjects"
	pkgerrors "catalog/pkg/errors"
)

// ReparentCategoryHandler moves a category under a new parent and rewrites
// the path prefix of its whole subtree in one transaction.
type ReparentCategoryHandler struct {
	base
}

// NewReparentCategoryHandler creates a new reparent category handler
func NewReparentCategoryHandler(d Dependencies) *ReparentCategoryHandler {
	return &ReparentCategoryHandler{base: newBase(d)}
}

// Handle executes the reparent category command
func (h *ReparentCategoryHandler) Handle(ctx context.Context, cmd commands.ReparentCategoryCommand) (*commands.CategoryResult, error) {
	id, err := valueobjects.NewCategoryID(cmd.CategoryID)
	if err != nil {
		return nil, err
	}
	var newParentID *valueobjects.CategoryID
	if cmd.NewParentID != nil {
		pid, err := valueobjects.NewCategoryID(*cmd.NewParentID)
		if err != nil {
			return nil, err
		}
		newParentID = &pid
	}

	var category *entities.Category
	var changed bool
	var rebased int
	err = h.Tx.InTx(ctx, cmd.TxPolicy(), func(ctx context.Context) error {
		c, err := h.Store.GetByIDIncludingArchived(ctx, id)
		if err != nil {
			return err
		}
		if err := checkVersion(c, cmd.ExpectedVersion); err != nil {
			return err
		}
		category, changed, rebased = c, false, 0
		if c.IsArchived() {
			return pkgerrors.ErrCategoryArchived.New().WithDetail("category_id", id.Int64())
		}
		if c.HasParent(newParentID) {
			return nil
		}

		var parentPath *valueobjects.HierarchicalPath
		if newParentID != nil {
			parent, err := h.Store.GetByID(ctx, *newParentID)
			if err != nil {
				return parentNotFound(err, *newParentID)
			}
			visible, err := h.Store.IsVisible(ctx, *newParentID)
			if err != nil {
				return err
			}
			if !visible {
				return pkgerrors.ErrParentNotFound.New().
					WithDetail("parent_id", newParentID.Int64()).
					WithDetail("reason", "occluded")
			}
			p := parent.Path()
			if p.IsDescendantOf(c.Path()) {
				return pkgerrors.ErrCannotMoveUnderDescendant.New().
					WithDetail("category_id", id.Int64()).
					WithDetail("parent_id", newParentID.Int64())
			}
			parentPath = &p
		}

		taken, err := h.Store.NameExistsWithinParent(ctx, c.Name(), newParentID, &id)
		if err != nil {
			return err
		}
		if taken {
			return pkgerrors.ErrSiblingNameConflict.New().WithDetail("name", c.Name().String())
		}

		descendants, err := h.Store.GetDescendants(ctx, c.Path(), c.ID(), h.Hierarchy.DescendantCap())
		if err != nil {
			return err
		}
		changed, err = h.Hierarchy.ReparentCategoryAndRebaseDescendants(c, newParentID, parentPath, descendants, h.Clock.Now())
		if err != nil || !changed {
			return err
		}
		rebased = len(descendants)
		return h.Store.SaveAll(ctx, append([]*entities.Category{c}, descendants...))
	})
	if err != nil {
		return nil, boundary(err)
	}

	if changed {
		h.recordCascade(ctx, "reparent", rebased)
		h.publish(ctx, category)
		h.Logger.Info("Category reparented",
			zap.Int64("category_id", id.Int64()),
			zap.String("path", category.Path().String()),
			zap.Int("rebased_descendants", rebased),
		)
	}
	return categoryResult(category, changed, rebased), nil
}
