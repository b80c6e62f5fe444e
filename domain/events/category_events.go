package events

import (
	"strconv"
	"time"
)

// Event type names published on the bus.
const (
	TypeCategoryCreated     = "category.created"
	TypeCategoryUpdated     = "category.updated"
	TypeCategoryArchived    = "category.archived"
	TypeCategoryRestored    = "category.restored"
	TypeCategoryReparented  = "category.reparented"
	TypeCategorySlugChanged = "category.slug_changed"
	TypeCategoryDeleted     = "category.deleted"
)

func aggregateID(categoryID int64) string {
	return strconv.FormatInt(categoryID, 10)
}

// CategoryCreated is raised when a category is created
type CategoryCreated struct {
	BaseEvent
	CategoryID int64  `json:"category_id"`
	ParentID   *int64 `json:"parent_id,omitempty"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	Path       string `json:"path"`
}

// NewCategoryCreated creates a CategoryCreated event
func NewCategoryCreated(categoryID int64, parentID *int64, name, slug, path string, timestamp time.Time) CategoryCreated {
	return CategoryCreated{
		BaseEvent:  newBaseEvent(aggregateID(categoryID), TypeCategoryCreated, timestamp),
		CategoryID: categoryID,
		ParentID:   parentID,
		Name:       name,
		Slug:       slug,
		Path:       path,
	}
}

// CategoryUpdated is raised when plain fields change
type CategoryUpdated struct {
	BaseEvent
	CategoryID   int64  `json:"category_id"`
	Name         string `json:"name"`
	DisplayOrder int    `json:"display_order"`
}

// NewCategoryUpdated creates a CategoryUpdated event
func NewCategoryUpdated(categoryID int64, name string, displayOrder int, timestamp time.Time) CategoryUpdated {
	return CategoryUpdated{
		BaseEvent:    newBaseEvent(aggregateID(categoryID), TypeCategoryUpdated, timestamp),
		CategoryID:   categoryID,
		Name:         name,
		DisplayOrder: displayOrder,
	}
}

// CategoryArchived is raised when a category is soft-deleted. Descendants
// are occluded, not written.
type CategoryArchived struct {
	BaseEvent
	CategoryID      int64 `json:"category_id"`
	OccludedSubtree int   `json:"occluded_subtree"`
}

// NewCategoryArchived creates a CategoryArchived event
func NewCategoryArchived(categoryID int64, occluded int, timestamp time.Time) CategoryArchived {
	return CategoryArchived{
		BaseEvent:       newBaseEvent(aggregateID(categoryID), TypeCategoryArchived, timestamp),
		CategoryID:      categoryID,
		OccludedSubtree: occluded,
	}
}

// CategoryRestored is raised when an archived category is restored
type CategoryRestored struct {
	BaseEvent
	CategoryID int64 `json:"category_id"`
}

// NewCategoryRestored creates a CategoryRestored event
func NewCategoryRestored(categoryID int64, timestamp time.Time) CategoryRestored {
	return CategoryRestored{
		BaseEvent:  newBaseEvent(aggregateID(categoryID), TypeCategoryRestored, timestamp),
		CategoryID: categoryID,
	}
}

// CategoryReparented is raised when a subtree moves
type CategoryReparented struct {
	BaseEvent
	CategoryID     int64  `json:"category_id"`
	OldParentID    *int64 `json:"old_parent_id,omitempty"`
	NewParentID    *int64 `json:"new_parent_id,omitempty"`
	OldPath        string `json:"old_path"`
	NewPath        string `json:"new_path"`
	RebasedSubtree int    `json:"rebased_subtree"`
}

// NewCategoryReparented creates a CategoryReparented event
func NewCategoryReparented(categoryID int64, oldParentID, newParentID *int64, oldPath, newPath string, rebased int, timestamp time.Time) CategoryReparented {
	return CategoryReparented{
		BaseEvent:      newBaseEvent(aggregateID(categoryID), TypeCategoryReparented, timestamp),
		CategoryID:     categoryID,
		OldParentID:    oldParentID,
		NewParentID:    newParentID,
		OldPath:        oldPath,
		NewPath:        newPath,
		RebasedSubtree: rebased,
	}
}

// CategorySlugChanged is raised on reslug. OldSlug stays registered as
// history so it can redirect.
type CategorySlugChanged struct {
	BaseEvent
	CategoryID int64  `json:"category_id"`
	OldSlug    string `json:"old_slug"`
	NewSlug    string `json:"new_slug"`
}

// NewCategorySlugChanged creates a CategorySlugChanged event
func NewCategorySlugChanged(categoryID int64, oldSlug, newSlug string, timestamp time.Time) CategorySlugChanged {
	return CategorySlugChanged{
		BaseEvent:  newBaseEvent(aggregateID(categoryID), TypeCategorySlugChanged, timestamp),
		CategoryID: categoryID,
		OldSlug:    oldSlug,
		NewSlug:    newSlug,
	}
}

// CategoryDeleted is raised after permanent removal
type CategoryDeleted struct {
	BaseEvent
	CategoryID int64  `json:"category_id"`
	Slug       string `json:"slug"`
}

// NewCategoryDeleted creates a CategoryDeleted event
func NewCategoryDeleted(categoryID int64, slug string, timestamp time.Time) CategoryDeleted {
	return CategoryDeleted{
		BaseEvent:  newBaseEvent(aggregateID(categoryID), TypeCategoryDeleted, timestamp),
		CategoryID: categoryID,
		Slug:       slug,
	}
}
