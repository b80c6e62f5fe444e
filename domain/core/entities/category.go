package entities

import (
	"time"

	"catalog/domain/config"
	"catalog/domain/core/valueobjects"
	"catalog/domain/events"
	pkgerrors "catalog/pkg/errors"
)

// Category is a node of the catalog tree. Its path mirrors the chain of
// ancestor ids; archive state lives only on the archived node itself and
// occludes descendants at read time.
type Category struct {
	id           valueobjects.CategoryID
	name         valueobjects.CategoryName
	slug         valueobjects.Slug
	path         valueobjects.HierarchicalPath
	parentID     *valueobjects.CategoryID
	displayOrder int
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
	rowVersion   valueobjects.RowVersion

	events []events.DomainEvent
}

// CategoryState is the flat persisted form of a Category.
type CategoryState struct {
	ID           int64
	Name         string
	Slug         string
	Path         string
	ParentID     *int64
	DisplayOrder int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	DeletedAt    *time.Time
	RowVersion   string
}

// NewCategory builds a category below parent (nil for a root). The path
// label is the category id.
func NewCategory(
	id valueobjects.CategoryID,
	name valueobjects.CategoryName,
	slug valueobjects.Slug,
	parent *Category,
	displayOrder int,
	now time.Time,
	cfg *config.DomainConfig,
) (*Category, error) {
	if id.IsZero() {
		return nil, pkgerrors.ErrInvalidCategoryID.New()
	}
	if slug.IsZero() {
		return nil, pkgerrors.ErrEmptySlug.New()
	}

	var parentPath *valueobjects.HierarchicalPath
	var parentID *valueobjects.CategoryID
	if parent != nil {
		p := parent.path
		parentPath = &p
		pid := parent.id
		parentID = &pid
	}

	path, err := valueobjects.UnderParent(parentPath, id.Label())
	if err != nil {
		return nil, err
	}
	if path.NLevel() > cfg.MaxDepth {
		return nil, pkgerrors.ErrInvalidPath.New().
			WithDetail("reason", "max_depth").
			WithDetail("max_depth", cfg.MaxDepth)
	}

	now = now.UTC()
	c := &Category{
		id:           id,
		name:         name,
		slug:         slug,
		path:         path,
		parentID:     parentID,
		displayOrder: displayOrder,
		createdAt:    now,
		updatedAt:    now,
	}
	c.addEvent(events.NewCategoryCreated(id.Int64(), c.ParentIDValue(), name.String(), slug.String(), path.String(), now))
	return c, nil
}

// ReconstructCategory rebuilds a category from storage.
func ReconstructCategory(state CategoryState) (*Category, error) {
	id, err := valueobjects.NewCategoryID(state.ID)
	if err != nil {
		return nil, err
	}
	name, err := valueobjects.NewCategoryName(state.Name)
	if err != nil {
		return nil, err
	}
	slug, err := valueobjects.NewSlug(state.Slug)
	if err != nil {
		return nil, err
	}
	path, err := valueobjects.ParsePath(state.Path)
	if err != nil {
		return nil, err
	}

	c := &Category{
		id:           id,
		name:         name,
		slug:         slug,
		path:         path,
		displayOrder: state.DisplayOrder,
		createdAt:    state.CreatedAt.UTC(),
		updatedAt:    state.UpdatedAt.UTC(),
		rowVersion:   valueobjects.NewRowVersion(state.RowVersion),
	}
	if state.ParentID != nil {
		pid, err := valueobjects.NewCategoryID(*state.ParentID)
		if err != nil {
			return nil, err
		}
		c.parentID = &pid
	}
	if state.DeletedAt != nil {
		t := state.DeletedAt.UTC()
		c.deletedAt = &t
	}
	return c, nil
}

// State returns the persisted form.
func (c *Category) State() CategoryState {
	state := CategoryState{
		ID:           c.id.Int64(),
		Name:         c.name.String(),
		Slug:         c.slug.String(),
		Path:         c.path.String(),
		ParentID:     c.ParentIDValue(),
		DisplayOrder: c.displayOrder,
		CreatedAt:    c.createdAt,
		UpdatedAt:    c.updatedAt,
		RowVersion:   c.rowVersion.String(),
	}
	if c.deletedAt != nil {
		t := *c.deletedAt
		state.DeletedAt = &t
	}
	return state
}

func (c *Category) ID() valueobjects.CategoryID                { return c.id }
func (c *Category) Name() valueobjects.CategoryName            { return c.name }
func (c *Category) Slug() valueobjects.Slug                    { return c.slug }
func (c *Category) Path() valueobjects.HierarchicalPath        { return c.path }
func (c *Category) ParentID() *valueobjects.CategoryID         { return c.parentID }
func (c *Category) DisplayOrder() int                          { return c.displayOrder }
func (c *Category) CreatedAt() time.Time                       { return c.createdAt }
func (c *Category) UpdatedAt() time.Time                       { return c.updatedAt }
func (c *Category) DeletedAt() *time.Time                      { return c.deletedAt }
func (c *Category) RowVersion() valueobjects.RowVersion        { return c.rowVersion }
func (c *Category) GetUncommittedEvents() []events.DomainEvent { return c.events }

// ParentIDValue returns the parent id as a nullable int64.
func (c *Category) ParentIDValue() *int64 {
	if c.parentID == nil {
		return nil
	}
	v := c.parentID.Int64()
	return &v
}

// IsRoot reports whether the category has no parent.
func (c *Category) IsRoot() bool {
	return c.parentID == nil
}

// IsArchived reports whether this category itself is soft-deleted. It says
// nothing about occlusion by an archived ancestor.
func (c *Category) IsArchived() bool {
	return c.deletedAt != nil
}

// HasParent reports whether parentID equals id (nil means root).
func (c *Category) HasParent(id *valueobjects.CategoryID) bool {
	if c.parentID == nil || id == nil {
		return c.parentID == nil && id == nil
	}
	return c.parentID.Equals(*id)
}

// GracePeriodElapsed reports whether now >= DeletedAt + grace.
func (c *Category) GracePeriodElapsed(now time.Time, grace time.Duration) bool {
	if c.deletedAt == nil {
		return false
	}
	return !now.UTC().Before(c.deletedAt.Add(grace))
}

// ApplyRowVersion records the token storage assigned on write.
func (c *Category) ApplyRowVersion(v valueobjects.RowVersion) {
	c.rowVersion = v
}

// MarkArchived sets DeletedAt. Returns false if already archived.
func (c *Category) MarkArchived(now time.Time, occluded int) bool {
	if c.deletedAt != nil {
		return false
	}
	now = now.UTC()
	c.deletedAt = &now
	c.updatedAt = now
	c.addEvent(events.NewCategoryArchived(c.id.Int64(), occluded, now))
	return true
}

// ClearArchived clears DeletedAt. Returns false if not archived.
func (c *Category) ClearArchived(now time.Time) bool {
	if c.deletedAt == nil {
		return false
	}
	now = now.UTC()
	c.deletedAt = nil
	c.updatedAt = now
	c.addEvent(events.NewCategoryRestored(c.id.Int64(), now))
	return true
}

// MoveUnder sets a new parent and path for the subtree root.
func (c *Category) MoveUnder(parentID *valueobjects.CategoryID, path valueobjects.HierarchicalPath, rebased int, now time.Time) {
	now = now.UTC()
	oldParent := c.ParentIDValue()
	oldPath := c.path.String()
	if parentID != nil {
		pid := *parentID
		c.parentID = &pid
	} else {
		c.parentID = nil
	}
	c.path = path
	c.updatedAt = now
	c.addEvent(events.NewCategoryReparented(c.id.Int64(), oldParent, c.ParentIDValue(), oldPath, path.String(), rebased, now))
}

// RebasePath rewrites a descendant path after its ancestor moved.
func (c *Category) RebasePath(path valueobjects.HierarchicalPath, now time.Time) bool {
	if c.path.Equals(path) {
		return false
	}
	c.path = path
	c.updatedAt = now.UTC()
	return true
}

// ChangeSlug sets the current slug. Returns false if unchanged.
func (c *Category) ChangeSlug(slug valueobjects.Slug, now time.Time) bool {
	if c.slug.Equals(slug) {
		return false
	}
	now = now.UTC()
	old := c.slug
	c.slug = slug
	c.updatedAt = now
	c.addEvent(events.NewCategorySlugChanged(c.id.Int64(), old.String(), slug.String(), now))
	return true
}

// UpdateDetails renames and reorders. Returns false if nothing changed.
func (c *Category) UpdateDetails(name *valueobjects.CategoryName, displayOrder *int, now time.Time) bool {
	changed := false
	if name != nil && c.name.String() != name.String() {
		c.name = *name
		changed = true
	}
	if displayOrder != nil && c.displayOrder != *displayOrder {
		c.displayOrder = *displayOrder
		changed = true
	}
	if !changed {
		return false
	}
	c.updatedAt = now.UTC()
	c.addEvent(events.NewCategoryUpdated(c.id.Int64(), c.name.String(), c.displayOrder, c.updatedAt))
	return true
}

// MarkEventsAsCommitted clears the uncommitted event buffer
func (c *Category) MarkEventsAsCommitted() {
	c.events = nil
}

// RecordDeleted appends the deletion event.
func (c *Category) RecordDeleted(now time.Time) {
	c.addEvent(events.NewCategoryDeleted(c.id.Int64(), c.slug.String(), now.UTC()))
}

func (c *Category) addEvent(event events.DomainEvent) {
	c.events = append(c.events, event)
}
