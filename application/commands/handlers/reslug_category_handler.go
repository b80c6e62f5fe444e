package handlers

import (
	"context"

	"go.uber.org/zap"

	"catalog/application/commands"
	"catalog/domain/core/entities"
	"catalog/domain/core/valueobjects"
	pkgerrors "catalog/pkg/errors"
)

// ReslugCategoryHandler changes the current slug of a category. The old slug
// stays registered to it as history and keeps resolving.
type ReslugCategoryHandler struct {
	base
}

// NewReslugCategoryHandler creates a new reslug category handler
func NewReslugCategoryHandler(d Dependencies) *ReslugCategoryHandler {
	return &ReslugCategoryHandler{base: newBase(d)}
}

// Handle executes the reslug category command. Paths carry id labels, so no
// descendant is fetched or written. The slug is registered even when the row
// already carries it, which completes a reslug whose registration failed
// transiently. Only a lost uniqueness race reverts the row.
func (h *ReslugCategoryHandler) Handle(ctx context.Context, cmd commands.ReslugCategoryCommand) (*commands.CategoryResult, error) {
	id, err := valueobjects.NewCategoryID(cmd.CategoryID)
	if err != nil {
		return nil, err
	}
	newSlug, err := valueobjects.NewSlugWithConfig(cmd.NewSlug, h.Config)
	if err != nil {
		return nil, err
	}

	var category *entities.Category
	var changed bool
	var oldSlug valueobjects.Slug
	commit := func(ctx context.Context) error {
		c, err := h.Store.GetByIDIncludingArchived(ctx, id)
		if err != nil {
			return err
		}
		if err := checkVersion(c, cmd.ExpectedVersion); err != nil {
			return err
		}
		category, changed, oldSlug = c, false, c.Slug()
		if c.IsArchived() {
			return pkgerrors.ErrCategoryArchived.New().WithDetail("category_id", id.Int64())
		}
		if c.Slug().Equals(newSlug) {
			return nil
		}

		available, err := h.Slugs.IsSlugAvailableForEntity(ctx, newSlug, valueobjects.EntityTypeCategory, id.Int64())
		if err != nil {
			return err
		}
		if !available {
			return pkgerrors.SlugAlreadyInUse(newSlug.String())
		}

		changed, err = h.Hierarchy.ChangeCategorySlugAndRebaseDescendants(c, newSlug, nil, h.Clock.Now())
		if err != nil || !changed {
			return err
		}
		return h.Store.Save(ctx, c)
	}

	revert := func(ctx context.Context) error {
		if !changed {
			return nil
		}
		c, err := h.Store.GetByIDIncludingArchived(ctx, id)
		if err != nil {
			return err
		}
		if !c.Slug().Equals(newSlug) {
			return nil
		}
		c.ChangeSlug(oldSlug, h.Clock.Now())
		c.MarkEventsAsCommitted()
		return h.Store.Save(ctx, c)
	}

	kept, err := h.registerAfterCommit(ctx, "reslug_category", cmd.TxPolicy(), commit,
		id.Int64,
		func() valueobjects.Slug { return newSlug },
		revert,
		lostSlugRace,
	)
	if err != nil {
		if kept && changed {
			h.publish(ctx, category)
		}
		return nil, boundary(err)
	}

	if changed {
		h.publish(ctx, category)
		h.Logger.Info("Category slug changed",
			zap.Int64("category_id", id.Int64()),
			zap.String("old_slug", oldSlug.String()),
			zap.String("new_slug", newSlug.String()),
		)
	}
	return categoryResult(category, changed, 0), nil
}
