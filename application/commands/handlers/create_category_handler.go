package handlers

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"catalog/application/commands"
	"catalog/domain/core/entities"
	"catalog/domain/core/valueobjects"
	pkgerrors "catalog/pkg/errors"
)

// CreateCategoryHandler handles category creation
type CreateCategoryHandler struct {
	base
}

// NewCreateCategoryHandler creates a new create category handler
func NewCreateCategoryHandler(d Dependencies) *CreateCategoryHandler {
	return &CreateCategoryHandler{base: newBase(d)}
}

// Handle inserts the category, then registers its slug. If the registration
// fails, the row is removed again.
func (h *CreateCategoryHandler) Handle(ctx context.Context, cmd commands.CreateCategoryCommand) (*commands.CategoryResult, error) {
	name, err := valueobjects.NewCategoryNameWithConfig(cmd.Name, h.Config)
	if err != nil {
		return nil, err
	}

	var slug valueobjects.Slug
	if strings.TrimSpace(cmd.Slug) == "" {
		slug, err = valueobjects.SlugFromName(cmd.Name, h.Config)
	} else {
		slug, err = valueobjects.NewSlugWithConfig(cmd.Slug, h.Config)
	}
	if err != nil {
		return nil, err
	}

	var parentID *valueobjects.CategoryID
	if cmd.ParentID != nil {
		id, err := valueobjects.NewCategoryID(*cmd.ParentID)
		if err != nil {
			return nil, err
		}
		parentID = &id
	}

	var created *entities.Category
	commit := func(ctx context.Context) error {
		created = nil

		var parent *entities.Category
		if parentID != nil {
			p, err := h.Store.GetByID(ctx, *parentID)
			if err != nil {
				return parentNotFound(err, *parentID)
			}
			visible, err := h.Store.IsVisible(ctx, *parentID)
			if err != nil {
				return err
			}
			if !visible {
				return pkgerrors.ErrParentNotFound.New().
					WithDetail("parent_id", parentID.Int64()).
					WithDetail("reason", "occluded")
			}
			parent = p
		}

		taken, err := h.Store.NameExistsWithinParent(ctx, name, parentID, nil)
		if err != nil {
			return err
		}
		if taken {
			return pkgerrors.ErrSiblingNameConflict.New().WithDetail("name", name.String())
		}

		available, err := h.Slugs.IsSlugAvailable(ctx, slug)
		if err != nil {
			return err
		}
		if !available {
			return pkgerrors.SlugAlreadyInUse(slug.String())
		}

		id, err := h.Store.NextID(ctx)
		if err != nil {
			return err
		}
		order := 0
		if cmd.DisplayOrder != nil {
			order = *cmd.DisplayOrder
		} else if order, err = h.Store.NextDisplayOrder(ctx, parentID); err != nil {
			return err
		}

		c, err := entities.NewCategory(id, name, slug, parent, order, h.Clock.Now(), h.Config)
		if err != nil {
			return err
		}
		if err := h.Store.Create(ctx, c); err != nil {
			return err
		}
		created = c
		return nil
	}

	revert := func(ctx context.Context) error {
		c, err := h.Store.GetByIDIncludingArchived(ctx, created.ID())
		if err != nil {
			if pkgerrors.IsNotFound(err) {
				return nil
			}
			return err
		}
		return h.Store.Delete(ctx, c)
	}

	_, err = h.registerAfterCommit(ctx, "create_category", cmd.TxPolicy(), commit,
		func() int64 { return created.ID().Int64() },
		func() valueobjects.Slug { return created.Slug() },
		revert,
		nil,
	)
	if err != nil {
		return nil, boundary(err)
	}

	h.publish(ctx, created)
	h.Logger.Info("Category created",
		zap.Int64("category_id", created.ID().Int64()),
		zap.String("slug", created.Slug().String()),
		zap.String("path", created.Path().String()),
	)
	return categoryResult(created, true, 0), nil
}
