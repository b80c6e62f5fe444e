package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"catalog/application/ports"
	"catalog/domain/core/entities"
	"catalog/domain/core/valueobjects"
	pkgerrors "catalog/pkg/errors"
)

// SlugRegistry implements ports.SlugRegistry on the slug_registrations
// table. The unique slug constraint and the partial unique index on active
// rows are the source of truth; the reads here only shortcut.
type SlugRegistry struct {
	pool *pgxpool.Pool
	tx   *TxRunner
}

// NewSlugRegistry creates a registry sharing tx with the category store
func NewSlugRegistry(pool *pgxpool.Pool, tx *TxRunner) *SlugRegistry {
	return &SlugRegistry{pool: pool, tx: tx}
}

// JoinsStoreTx implements ports.StoreTxSlugRegistry
func (r *SlugRegistry) JoinsStoreTx() bool { return true }

const registrationColumns = `slug, entity_type, entity_id, is_active, created_at, updated_at`

func scanRegistration(row pgx.Row) (*entities.SlugRegistration, error) {
	var r entities.SlugRegistration
	var entityType string
	if err := row.Scan(&r.Slug, &entityType, &r.EntityID, &r.IsActive, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.EntityType = valueobjects.EntityType(entityType)
	return &r, nil
}

// RegisterSlug makes slug the active slug of the entity
func (r *SlugRegistry) RegisterSlug(ctx context.Context, entityType valueobjects.EntityType, entityID int64, slug valueobjects.Slug) error {
	return r.tx.InTx(ctx, ports.DefaultTxPolicy(), func(ctx context.Context) error {
		q := conn(ctx, r.pool)

		existing, err := scanRegistration(q.QueryRow(ctx,
			`SELECT `+registrationColumns+` FROM slug_registrations WHERE slug = $1 FOR UPDATE`, slug.String()))
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			existing = nil
		case err != nil:
			return mapError("register_slug", err)
		}
		if existing != nil && !existing.OwnedBy(entityType, entityID) {
			return pkgerrors.SlugAlreadyInUse(slug.String())
		}
		if existing != nil && existing.IsActive {
			return nil
		}

		if _, err := q.Exec(ctx, `
			UPDATE slug_registrations SET is_active = FALSE, updated_at = now()
			WHERE entity_type = $1 AND entity_id = $2 AND is_active AND slug <> $3`,
			string(entityType), entityID, slug.String(),
		); err != nil {
			return mapError("register_slug", err)
		}

		if existing != nil {
			_, err = q.Exec(ctx,
				`UPDATE slug_registrations SET is_active = TRUE, updated_at = now() WHERE slug = $1`, slug.String())
		} else {
			_, err = q.Exec(ctx,
				`INSERT INTO slug_registrations (slug, entity_type, entity_id, is_active) VALUES ($1, $2, $3, TRUE)`,
				slug.String(), string(entityType), entityID)
		}
		return mapError("register_slug", err)
	})
}

// IsSlugAvailable reports whether no row exists for slug
func (r *SlugRegistry) IsSlugAvailable(ctx context.Context, slug valueobjects.Slug) (bool, error) {
	var taken bool
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM slug_registrations WHERE slug = $1)`, slug.String(),
	).Scan(&taken)
	return !taken, mapError("is_slug_available", err)
}

// IsSlugAvailableForEntity reports whether no other entity holds slug
func (r *SlugRegistry) IsSlugAvailableForEntity(ctx context.Context, slug valueobjects.Slug, entityType valueobjects.EntityType, entityID int64) (bool, error) {
	var taken bool
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM slug_registrations
			WHERE slug = $1 AND NOT (entity_type = $2 AND entity_id = $3)
		)`,
		slug.String(), string(entityType), entityID,
	).Scan(&taken)
	return !taken, mapError("is_slug_available_for_entity", err)
}

// UnregisterAllSlugsOfEntity deletes every row of the entity
func (r *SlugRegistry) UnregisterAllSlugsOfEntity(ctx context.Context, entityType valueobjects.EntityType, entityID int64) error {
	_, err := conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM slug_registrations WHERE entity_type = $1 AND entity_id = $2`, string(entityType), entityID)
	return mapError("unregister_slugs", err)
}

// Lookup returns the registration of slug in any state
func (r *SlugRegistry) Lookup(ctx context.Context, slug valueobjects.Slug) (*entities.SlugRegistration, error) {
	reg, err := scanRegistration(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM slug_registrations WHERE slug = $1`, slug.String()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, pkgerrors.ErrSlugNotFound.New().WithDetail("slug", slug.String())
	}
	if err != nil {
		return nil, mapError("lookup_slug", err)
	}
	return reg, nil
}

// ActiveSlug returns the active registration of the entity
func (r *SlugRegistry) ActiveSlug(ctx context.Context, entityType valueobjects.EntityType, entityID int64) (*entities.SlugRegistration, error) {
	reg, err := scanRegistration(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM slug_registrations WHERE entity_type = $1 AND entity_id = $2 AND is_active`,
		string(entityType), entityID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, pkgerrors.ErrSlugNotFound.New().
			WithDetail("entity_type", string(entityType)).
			WithDetail("entity_id", entityID)
	}
	if err != nil {
		return nil, mapError("active_slug", err)
	}
	return reg, nil
}
