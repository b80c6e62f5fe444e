package memory

import (
	"context"
	"sync"
	"time"

	"catalog/domain/core/entities"
	"catalog/domain/core/valueobjects"
	pkgerrors "catalog/pkg/errors"
)

// InMemorySlugRegistry implements ports.SlugRegistry. Rows are keyed by
// slug value, which gives the global uniqueness constraint for free.
type InMemorySlugRegistry struct {
	mu   sync.RWMutex
	rows map[string]entities.SlugRegistration
	now  func() time.Time

	// FailRegister, when set, is returned by RegisterSlug.
	FailRegister error
	// FailUnregister, when set, is returned by UnregisterAllSlugsOfEntity.
	FailUnregister error
}

// NewInMemorySlugRegistry creates an empty registry
func NewInMemorySlugRegistry() *InMemorySlugRegistry {
	return &InMemorySlugRegistry{
		rows: make(map[string]entities.SlugRegistration),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// RegisterSlug implements ports.SlugRegistry
func (r *InMemorySlugRegistry) RegisterSlug(ctx context.Context, entityType valueobjects.EntityType, entityID int64, slug valueobjects.Slug) error {
	if r.FailRegister != nil {
		return r.FailRegister
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	value := slug.String()
	existing, found := r.rows[value]
	if found && !existing.OwnedBy(entityType, entityID) {
		return pkgerrors.SlugAlreadyInUse(value)
	}

	now := r.now()
	for key, row := range r.rows {
		if row.IsActive && key != value && row.OwnedBy(entityType, entityID) {
			row.IsActive = false
			row.UpdatedAt = now
			r.rows[key] = row
		}
	}

	if found {
		if !existing.IsActive {
			existing.IsActive = true
			existing.UpdatedAt = now
			r.rows[value] = existing
		}
		return nil
	}

	r.rows[value] = entities.SlugRegistration{
		Slug:       value,
		EntityType: entityType,
		EntityID:   entityID,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return nil
}

// IsSlugAvailable implements ports.SlugRegistry
func (r *InMemorySlugRegistry) IsSlugAvailable(ctx context.Context, slug valueobjects.Slug) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, found := r.rows[slug.String()]
	return !found, nil
}

// IsSlugAvailableForEntity implements ports.SlugRegistry
func (r *InMemorySlugRegistry) IsSlugAvailableForEntity(ctx context.Context, slug valueobjects.Slug, entityType valueobjects.EntityType, entityID int64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, found := r.rows[slug.String()]
	return !found || row.OwnedBy(entityType, entityID), nil
}

// UnregisterAllSlugsOfEntity implements ports.SlugRegistry
func (r *InMemorySlugRegistry) UnregisterAllSlugsOfEntity(ctx context.Context, entityType valueobjects.EntityType, entityID int64) error {
	if r.FailUnregister != nil {
		return r.FailUnregister
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for key, row := range r.rows {
		if row.OwnedBy(entityType, entityID) {
			delete(r.rows, key)
		}
	}
	return nil
}

// Lookup implements ports.SlugRegistry
func (r *InMemorySlugRegistry) Lookup(ctx context.Context, slug valueobjects.Slug) (*entities.SlugRegistration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	row, found := r.rows[slug.String()]
	if !found {
		return nil, pkgerrors.ErrSlugNotFound.New().WithDetail("slug", slug.String())
	}
	return &row, nil
}

// ActiveSlug implements ports.SlugRegistry
func (r *InMemorySlugRegistry) ActiveSlug(ctx context.Context, entityType valueobjects.EntityType, entityID int64) (*entities.SlugRegistration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, row := range r.rows {
		if row.IsActive && row.OwnedBy(entityType, entityID) {
			out := row
			return &out, nil
		}
	}
	return nil, pkgerrors.ErrSlugNotFound.New().
		WithDetail("entity_type", string(entityType)).
		WithDetail("entity_id", entityID)
}

// Registrations returns every row owned by the entity.
func (r *InMemorySlugRegistry) Registrations(entityType valueobjects.EntityType, entityID int64) []entities.SlugRegistration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]entities.SlugRegistration, 0)
	for _, row := range r.rows {
		if row.OwnedBy(entityType, entityID) {
			out = append(out, row)
		}
	}
	return out
}
