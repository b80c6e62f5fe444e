package queries

import (
	"strings"
	"time"

	"catalog/domain/core/entities"
	pkgerrors "catalog/pkg/errors"
)

// GetCategoryQuery reads one category in any archive state
type GetCategoryQuery struct {
	CategoryID int64
}

// Validate validates the GetCategoryQuery
func (q GetCategoryQuery) Validate() error {
	if q.CategoryID <= 0 {
		return pkgerrors.ErrInvalidCategoryID.New().WithDetail("category_id", q.CategoryID)
	}
	return nil
}

// GetCategoryTreeQuery reads the visible tree, optionally below RootID only
type GetCategoryTreeQuery struct {
	RootID *int64
}

// Validate validates the GetCategoryTreeQuery
func (q GetCategoryTreeQuery) Validate() error {
	if q.RootID != nil && *q.RootID <= 0 {
		return pkgerrors.ErrInvalidCategoryID.New().WithDetail("root_id", *q.RootID)
	}
	return nil
}

// ResolveSlugQuery maps a current or historical slug to its entity
type ResolveSlugQuery struct {
	Slug string
}

// Validate validates the ResolveSlugQuery
func (q ResolveSlugQuery) Validate() error {
	if strings.TrimSpace(q.Slug) == "" {
		return pkgerrors.ErrEmptySlug.New()
	}
	return nil
}

// CategoryView is the read model of a category
type CategoryView struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Slug         string  `json:"slug"`
	Path         string  `json:"path"`
	ParentID     *int64  `json:"parent_id"`
	DisplayOrder int     `json:"display_order"`
	Archived     bool    `json:"archived"`
	Visible      bool    `json:"visible"`
	Version      string  `json:"version"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
	DeletedAt    *string `json:"deleted_at,omitempty"`
}

// NewCategoryView builds the view. visible is decided by the caller from
// the ancestor chain.
func NewCategoryView(c *entities.Category, visible bool) CategoryView {
	v := CategoryView{
		ID:           c.ID().Int64(),
		Name:         c.Name().String(),
		Slug:         c.Slug().String(),
		Path:         c.Path().String(),
		ParentID:     c.ParentIDValue(),
		DisplayOrder: c.DisplayOrder(),
		Archived:     c.IsArchived(),
		Visible:      visible,
		Version:      c.RowVersion().String(),
		CreatedAt:    c.CreatedAt().Format(time.RFC3339),
		UpdatedAt:    c.UpdatedAt().Format(time.RFC3339),
	}
	if at := c.DeletedAt(); at != nil {
		s := at.Format(time.RFC3339)
		v.DeletedAt = &s
	}
	return v
}

// CategoryTreeNode is one node of the visible tree
type CategoryTreeNode struct {
	CategoryView
	Children []*CategoryTreeNode `json:"children"`
}

// CategoryTreeResult holds the top-level nodes of the tree
type CategoryTreeResult struct {
	Roots []*CategoryTreeNode `json:"roots"`
	Total int                 `json:"total"`
}

// SlugResolution is the result of ResolveSlugQuery. Redirect is set when
// the requested slug is historical and CurrentSlug should be used instead.
type SlugResolution struct {
	RequestedSlug string        `json:"requested_slug"`
	CurrentSlug   string        `json:"current_slug"`
	EntityType    string        `json:"entity_type"`
	EntityID      int64         `json:"entity_id"`
	Redirect      bool          `json:"redirect"`
	Category      *CategoryView `json:"category,omitempty"`
}
