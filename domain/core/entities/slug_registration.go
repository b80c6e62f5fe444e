package entities

import (
	"time"

	"catalog/domain/core/valueobjects"
)

// SlugRegistration is one row of the slug ledger. A slug value belongs to
// exactly one entity for as long as the row exists; at most one row per
// entity is active.
type SlugRegistration struct {
	Slug       string
	EntityType valueobjects.EntityType
	EntityID   int64
	IsActive   bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// OwnedBy reports whether the registration belongs to the given entity.
func (r SlugRegistration) OwnedBy(entityType valueobjects.EntityType, entityID int64) bool {
	return r.EntityType == entityType && r.EntityID == entityID
}
