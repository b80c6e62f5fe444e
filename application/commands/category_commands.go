package commands

import (
	"strings"

	"catalog/application/ports"
	pkgerrors "catalog/pkg/errors"
	"catalog/pkg/utils"
)

// CreateCategoryCommand creates a category. Slug is derived from Name when empty.
type CreateCategoryCommand struct {
	Name         string `json:"name" validate:"required,max=200"`
	Slug         string `json:"slug" validate:"omitempty,max=255"`
	ParentID     *int64 `json:"parent_id" validate:"omitempty,gt=0"`
	DisplayOrder *int   `json:"display_order" validate:"omitempty,gte=0"`
}

// Validate implements bus.Command
func (c CreateCategoryCommand) Validate() error {
	return utils.ValidateStruct(c)
}

// TxPolicy implements ports.PolicyCarrier
func (c CreateCategoryCommand) TxPolicy() ports.TxPolicy {
	return ports.DefaultTxPolicy()
}

// UpdateCategoryCommand changes plain fields under optimistic concurrency.
type UpdateCategoryCommand struct {
	CategoryID      int64   `json:"category_id"`
	Name            *string `json:"name" validate:"omitempty,max=200"`
	DisplayOrder    *int    `json:"display_order" validate:"omitempty,gte=0"`
	ExpectedVersion string  `json:"version"`
}

// Validate implements bus.Command
func (c UpdateCategoryCommand) Validate() error {
	if err := validateTarget(c.CategoryID, c.ExpectedVersion); err != nil {
		return err
	}
	return utils.ValidateStruct(c)
}

// TxPolicy implements ports.PolicyCarrier
func (c UpdateCategoryCommand) TxPolicy() ports.TxPolicy {
	return ports.DefaultTxPolicy()
}

// ArchiveCategoryCommand soft-deletes a category.
type ArchiveCategoryCommand struct {
	CategoryID      int64  `json:"category_id"`
	ExpectedVersion string `json:"version"`
}

// Validate implements bus.Command
func (c ArchiveCategoryCommand) Validate() error {
	return validateTarget(c.CategoryID, c.ExpectedVersion)
}

// TxPolicy implements ports.PolicyCarrier
func (c ArchiveCategoryCommand) TxPolicy() ports.TxPolicy {
	return ports.StructuralTxPolicy()
}

// RestoreCategoryCommand clears a category's archive state.
type RestoreCategoryCommand struct {
	CategoryID      int64  `json:"category_id"`
	ExpectedVersion string `json:"version"`
}

// Validate implements bus.Command
func (c RestoreCategoryCommand) Validate() error {
	return validateTarget(c.CategoryID, c.ExpectedVersion)
}

// TxPolicy implements ports.PolicyCarrier
func (c RestoreCategoryCommand) TxPolicy() ports.TxPolicy {
	return ports.StructuralTxPolicy()
}

// ReparentCategoryCommand moves a category and its subtree. A nil
// NewParentID moves it to the root level.
type ReparentCategoryCommand struct {
	CategoryID      int64  `json:"category_id"`
	NewParentID     *int64 `json:"parent_id"`
	ExpectedVersion string `json:"version"`
}

// Validate implements bus.Command
func (c ReparentCategoryCommand) Validate() error {
	if err := validateTarget(c.CategoryID, c.ExpectedVersion); err != nil {
		return err
	}
	if c.NewParentID != nil {
		if *c.NewParentID <= 0 {
			return pkgerrors.ErrInvalidCategoryID.New().WithDetail("parent_id", *c.NewParentID)
		}
		if *c.NewParentID == c.CategoryID {
			return pkgerrors.ErrSelfParenting.New().WithDetail("category_id", c.CategoryID)
		}
	}
	return nil
}

// TxPolicy implements ports.PolicyCarrier
func (c ReparentCategoryCommand) TxPolicy() ports.TxPolicy {
	return ports.StructuralTxPolicy()
}

// ReslugCategoryCommand changes a category's current slug. The old slug
// stays registered to the category as history.
type ReslugCategoryCommand struct {
	CategoryID      int64  `json:"category_id"`
	NewSlug         string `json:"slug"`
	ExpectedVersion string `json:"version"`
}

// Validate implements bus.Command
func (c ReslugCategoryCommand) Validate() error {
	if err := validateTarget(c.CategoryID, c.ExpectedVersion); err != nil {
		return err
	}
	if strings.TrimSpace(c.NewSlug) == "" {
		return pkgerrors.ErrEmptySlug.New()
	}
	return nil
}

// TxPolicy implements ports.PolicyCarrier
func (c ReslugCategoryCommand) TxPolicy() ports.TxPolicy {
	return ports.StructuralTxPolicy()
}

// DeleteCategoryCommand permanently removes an archived category.
type DeleteCategoryCommand struct {
	CategoryID      int64  `json:"category_id"`
	ExpectedVersion string `json:"version"`
}

// Validate implements bus.Command
func (c DeleteCategoryCommand) Validate() error {
	return validateTarget(c.CategoryID, c.ExpectedVersion)
}

// TxPolicy implements ports.PolicyCarrier
func (c DeleteCategoryCommand) TxPolicy() ports.TxPolicy {
	return ports.StructuralTxPolicy()
}

func validateTarget(id int64, version string) error {
	if id <= 0 {
		return pkgerrors.ErrInvalidCategoryID.New().WithDetail("category_id", id)
	}
	if strings.TrimSpace(version) == "" {
		return pkgerrors.ErrInvalidVersion.New().WithDetail("category_id", id)
	}
	return nil
}

// CategoryResult is returned by every category command except delete.
type CategoryResult struct {
	CategoryID int64  `json:"category_id"`
	Changed    bool   `json:"changed"`
	Version    string `json:"version"`
	Slug       string `json:"slug"`
	Path       string `json:"path"`
	// Rebased counts descendants whose path was rewritten.
	Rebased int `json:"rebased,omitempty"`
}

// DeleteResult is returned by DeleteCategoryCommand.
type DeleteResult struct {
	CategoryID int64 `json:"category_id"`
	Deleted    bool  `json:"deleted"`
}
