package handlers

import (
	"context"

	"catalog/application/commands"
	"catalog/domain/core/entities"
	"catalog/domain/core/valueobjects"
	pkgerrors "catalog/pkg/errors"
)

// UpdateCategoryHandler renames or reorders a category
type UpdateCategoryHandler struct {
	base
}

// NewUpdateCategoryHandler creates a new update category handler
func NewUpdateCategoryHandler(d Dependencies) *UpdateCategoryHandler {
	return &UpdateCategoryHandler{base: newBase(d)}
}

// Handle executes the update category command
func (h *UpdateCategoryHandler) Handle(ctx context.Context, cmd commands.UpdateCategoryCommand) (*commands.CategoryResult, error) {
	id, err := valueobjects.NewCategoryID(cmd.CategoryID)
	if err != nil {
		return nil, err
	}

	var name *valueobjects.CategoryName
	if cmd.Name != nil {
		n, err := valueobjects.NewCategoryNameWithConfig(*cmd.Name, h.Config)
		if err != nil {
			return nil, err
		}
		name = &n
	}

	var category *entities.Category
	var changed bool
	err = h.Tx.InTx(ctx, cmd.TxPolicy(), func(ctx context.Context) error {
		c, err := h.Store.GetByIDIncludingArchived(ctx, id)
		if err != nil {
			return err
		}
		if err := checkVersion(c, cmd.ExpectedVersion); err != nil {
			return err
		}
		category, changed = c, false

		if name != nil && !c.Name().Equals(*name) {
			taken, err := h.Store.NameExistsWithinParent(ctx, *name, c.ParentID(), &id)
			if err != nil {
				return err
			}
			if taken {
				return pkgerrors.ErrSiblingNameConflict.New().WithDetail("name", name.String())
			}
		}

		if !c.UpdateDetails(name, cmd.DisplayOrder, h.Clock.Now()) {
			return nil
		}
		changed = true
		return h.Store.Save(ctx, c)
	})
	if err != nil {
		return nil, boundary(err)
	}

	if changed {
		h.publish(ctx, category)
	}
	return categoryResult(category, changed, 0), nil
}
