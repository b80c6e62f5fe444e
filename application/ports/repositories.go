package ports

import (
	"context"
	"time"

	"catalog/domain/core/entities"
	"catalog/domain/core/valueobjects"
	"catalog/domain/events"
)

// CategoryTreeStore defines category persistence over a materialized path.
// Implementations read through the transaction carried by ctx when one is
// open (see TxRunner). Failures are returned as *errors.DomainError values.
type CategoryTreeStore interface {
	// NextID reserves a fresh category id
	NextID(ctx context.Context) (valueobjects.CategoryID, error)

	// GetByID returns a non-archived category, CATEGORY_NOT_FOUND otherwise
	GetByID(ctx context.Context, id valueobjects.CategoryID) (*entities.Category, error)

	// GetByIDIncludingArchived returns the category whatever its archive state
	GetByIDIncludingArchived(ctx context.Context, id valueobjects.CategoryID) (*entities.Category, error)

	// Exists reports whether a non-archived category with id exists
	Exists(ctx context.Context, id valueobjects.CategoryID) (bool, error)

	// GetPath returns the stored path of a category in any archive state
	GetPath(ctx context.Context, id valueobjects.CategoryID) (valueobjects.HierarchicalPath, error)

	// NameExistsWithinParent checks sibling name uniqueness (case-insensitive,
	// archived siblings included). excludeID skips the category being renamed.
	NameExistsWithinParent(ctx context.Context, name valueobjects.CategoryName, parentID *valueobjects.CategoryID, excludeID *valueobjects.CategoryID) (bool, error)

	// GetDescendants returns strict descendants of parentPath ordered by depth
	// ascending, excluding excludeID, and at most maxCount+1 rows.
	GetDescendants(ctx context.Context, parentPath valueobjects.HierarchicalPath, excludeID valueobjects.CategoryID, maxCount int) ([]*entities.Category, error)

	// GetArchivedAncestors returns strict ancestors of path that are archived,
	// nearest-to-root first
	GetArchivedAncestors(ctx context.Context, path valueobjects.HierarchicalPath) ([]valueobjects.CategoryID, error)

	// HasChildCategories reports whether any category (archived or not) has id as parent
	HasChildCategories(ctx context.Context, id valueobjects.CategoryID) (bool, error)

	// HasProducts reports whether any product references the category
	HasProducts(ctx context.Context, id valueobjects.CategoryID) (bool, error)

	// NextDisplayOrder returns max(display_order)+1 among the parent's children
	NextDisplayOrder(ctx context.Context, parentID *valueobjects.CategoryID) (int, error)

	// IsVisible reports DeletedAt null on the category and on every ancestor
	IsVisible(ctx context.Context, id valueobjects.CategoryID) (bool, error)

	// ListVisible returns visible categories ordered by path, optionally
	// restricted to the subtree rooted at root (inclusive)
	ListVisible(ctx context.Context, root *valueobjects.HierarchicalPath) ([]*entities.Category, error)

	// Create inserts a new category and assigns its row version
	Create(ctx context.Context, category *entities.Category) error

	// Save updates a category conditioned on its current row version and
	// assigns the new one. A lost race is CONCURRENCY_CONFLICT.
	Save(ctx context.Context, category *entities.Category) error

	// SaveAll saves several categories with the same conditions as Save
	SaveAll(ctx context.Context, categories []*entities.Category) error

	// Delete physically removes a category conditioned on its row version
	Delete(ctx context.Context, category *entities.Category) error
}

// SlugRegistry is the global slug ledger. Uniqueness is enforced by storage
// constraints; availability checks are early exits only.
type SlugRegistry interface {
	// RegisterSlug makes slug the active slug of the entity. The previous
	// active row is kept as history; a historical row for the same pair is
	// reactivated. A slug owned by another entity is SLUG_ALREADY_IN_USE.
	RegisterSlug(ctx context.Context, entityType valueobjects.EntityType, entityID int64, slug valueobjects.Slug) error

	// IsSlugAvailable reports whether no row exists for slug in any state
	IsSlugAvailable(ctx context.Context, slug valueobjects.Slug) (bool, error)

	// IsSlugAvailableForEntity reports whether no other entity holds slug
	IsSlugAvailableForEntity(ctx context.Context, slug valueobjects.Slug, entityType valueobjects.EntityType, entityID int64) (bool, error)

	// UnregisterAllSlugsOfEntity hard-deletes every row of the entity. Only
	// valid after the entity itself is permanently deleted.
	UnregisterAllSlugsOfEntity(ctx context.Context, entityType valueobjects.EntityType, entityID int64) error

	// Lookup returns the registration for slug in any state, SLUG_NOT_FOUND otherwise
	Lookup(ctx context.Context, slug valueobjects.Slug) (*entities.SlugRegistration, error)

	// ActiveSlug returns the active registration of an entity, SLUG_NOT_FOUND otherwise
	ActiveSlug(ctx context.Context, entityType valueobjects.EntityType, entityID int64) (*entities.SlugRegistration, error)
}

// StoreTxSlugRegistry is implemented by registries whose writes join the
// transaction opened by the category store's TxRunner.
type StoreTxSlugRegistry interface {
	JoinsStoreTx() bool
}

// JoinsStoreTx reports whether r writes inside the category store transaction
func JoinsStoreTx(r SlugRegistry) bool {
	bound, ok := r.(StoreTxSlugRegistry)
	return ok && bound.JoinsStoreTx()
}

// EventPublisher defines the interface for publishing domain events
type EventPublisher interface {
	// Publish sends a single event
	Publish(ctx context.Context, event events.DomainEvent) error

	// PublishBatch sends multiple events
	PublishBatch(ctx context.Context, events []events.DomainEvent) error
}

// Cache defines the interface for a byte cache
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value in cache with TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes values from cache
	Delete(ctx context.Context, keys ...string) error
}

// Clock is the single source of "now"
type Clock interface {
	Now() time.Time
}

// MetricsRecorder receives command and cascade measurements
type MetricsRecorder interface {
	RecordCommandExecution(ctx context.Context, commandName string, duration time.Duration, err error)
	RecordCascadeSize(ctx context.Context, operation string, size int)
}
