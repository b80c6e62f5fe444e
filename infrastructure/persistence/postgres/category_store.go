package postgres

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"catalog/domain/core/entities"
	"catalog/domain/core/valueobjects"
	pkgerrors "catalog/pkg/errors"
)

// CategoryStore implements ports.CategoryTreeStore
type CategoryStore struct {
	pool *pgxpool.Pool
}

// NewCategoryStore returns a new CategoryStore.
func NewCategoryStore(pool *pgxpool.Pool) *CategoryStore {
	return &CategoryStore{pool: pool}
}

const categoryColumns = `id, name, slug, path::text, parent_id, display_order, created_at, updated_at, deleted_at, row_version`

// visibleClause holds for rows with no archived row on their path, self included.
const visibleClause = `NOT EXISTS (
	SELECT 1 FROM categories a
	WHERE a.deleted_at IS NOT NULL AND a.path @> c.path
)`

func scanCategory(row pgx.Row) (*entities.Category, error) {
	var (
		state   entities.CategoryState
		version int64
	)
	err := row.Scan(
		&state.ID, &state.Name, &state.Slug, &state.Path, &state.ParentID,
		&state.DisplayOrder, &state.CreatedAt, &state.UpdatedAt, &state.DeletedAt, &version,
	)
	if err != nil {
		return nil, err
	}
	state.RowVersion = strconv.FormatInt(version, 10)
	return entities.ReconstructCategory(state)
}

func collectCategories(rows pgx.Rows) ([]*entities.Category, error) {
	defer rows.Close()
	out := make([]*entities.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func parentParam(id *valueobjects.CategoryID) *int64 {
	if id == nil {
		return nil
	}
	v := id.Int64()
	return &v
}

// versionParam parses a row version token. Tokens this store did not issue
// can never match.
func versionParam(c *entities.Category) (int64, error) {
	v, err := strconv.ParseInt(c.RowVersion().String(), 10, 64)
	if err != nil {
		return 0, pkgerrors.ConcurrencyConflict(c.ID().Int64()).WithDetail("reason", "malformed_version")
	}
	return v, nil
}

// NextID reserves a fresh category id
func (s *CategoryStore) NextID(ctx context.Context) (valueobjects.CategoryID, error) {
	var id int64
	if err := conn(ctx, s.pool).QueryRow(ctx, `SELECT nextval('categories_id_seq')`).Scan(&id); err != nil {
		return valueobjects.CategoryID{}, mapError("next_id", err)
	}
	return valueobjects.NewCategoryID(id)
}

func (s *CategoryStore) get(ctx context.Context, id valueobjects.CategoryID, includeArchived bool) (*entities.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1`
	if !includeArchived {
		query += ` AND deleted_at IS NULL`
	}
	c, err := scanCategory(conn(ctx, s.pool).QueryRow(ctx, query, id.Int64()))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, pkgerrors.CategoryNotFound(id.Int64())
	}
	if err != nil {
		return nil, mapError("get_category", err)
	}
	return c, nil
}

// GetByID returns a non-archived category
func (s *CategoryStore) GetByID(ctx context.Context, id valueobjects.CategoryID) (*entities.Category, error) {
	return s.get(ctx, id, false)
}

// GetByIDIncludingArchived returns the category in any archive state
func (s *CategoryStore) GetByIDIncludingArchived(ctx context.Context, id valueobjects.CategoryID) (*entities.Category, error) {
	return s.get(ctx, id, true)
}

// Exists reports whether a non-archived category exists
func (s *CategoryStore) Exists(ctx context.Context, id valueobjects.CategoryID) (bool, error) {
	var ok bool
	err := conn(ctx, s.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE id = $1 AND deleted_at IS NULL)`, id.Int64(),
	).Scan(&ok)
	return ok, mapError("category_exists", err)
}

// GetPath returns the stored path
func (s *CategoryStore) GetPath(ctx context.Context, id valueobjects.CategoryID) (valueobjects.HierarchicalPath, error) {
	var raw string
	err := conn(ctx, s.pool).QueryRow(ctx, `SELECT path::text FROM categories WHERE id = $1`, id.Int64()).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return valueobjects.HierarchicalPath{}, pkgerrors.CategoryNotFound(id.Int64())
	}
	if err != nil {
		return valueobjects.HierarchicalPath{}, mapError("get_path", err)
	}
	return valueobjects.ParsePath(raw)
}

// NameExistsWithinParent checks case-insensitive sibling names, archived included
func (s *CategoryStore) NameExistsWithinParent(ctx context.Context, name valueobjects.CategoryName, parentID *valueobjects.CategoryID, excludeID *valueobjects.CategoryID) (bool, error) {
	var ok bool
	err := conn(ctx, s.pool).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM categories
			WHERE COALESCE(parent_id, 0) = COALESCE($1::bigint, 0)
			  AND lower(name) = lower($2)
			  AND ($3::bigint IS NULL OR id <> $3::bigint)
		)`,
		parentParam(parentID), name.String(), parentParam(excludeID),
	).Scan(&ok)
	return ok, mapError("sibling_name_exists", err)
}

// GetDescendants returns up to maxCount+1 strict descendants, shallowest first
func (s *CategoryStore) GetDescendants(ctx context.Context, parentPath valueobjects.HierarchicalPath, excludeID valueobjects.CategoryID, maxCount int) ([]*entities.Category, error) {
	rows, err := conn(ctx, s.pool).Query(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		WHERE path <@ $1::ltree AND path <> $1::ltree AND id <> $2
		ORDER BY nlevel(path), path
		LIMIT $3`,
		parentPath.String(), excludeID.Int64(), maxCount+1,
	)
	if err != nil {
		return nil, mapError("get_descendants", err)
	}
	out, err := collectCategories(rows)
	return out, mapError("get_descendants", err)
}

// GetArchivedAncestors returns archived strict ancestors, root first
func (s *CategoryStore) GetArchivedAncestors(ctx context.Context, path valueobjects.HierarchicalPath) ([]valueobjects.CategoryID, error) {
	rows, err := conn(ctx, s.pool).Query(ctx, `
		SELECT id FROM categories
		WHERE path @> $1::ltree AND path <> $1::ltree AND deleted_at IS NOT NULL
		ORDER BY nlevel(path)`,
		path.String(),
	)
	if err != nil {
		return nil, mapError("get_archived_ancestors", err)
	}
	defer rows.Close()

	out := make([]valueobjects.CategoryID, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, mapError("get_archived_ancestors", err)
		}
		cid, err := valueobjects.NewCategoryID(id)
		if err != nil {
			return nil, err
		}
		out = append(out, cid)
	}
	return out, mapError("get_archived_ancestors", rows.Err())
}

// HasChildCategories reports whether any row has id as parent
func (s *CategoryStore) HasChildCategories(ctx context.Context, id valueobjects.CategoryID) (bool, error) {
	var ok bool
	err := conn(ctx, s.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE parent_id = $1)`, id.Int64(),
	).Scan(&ok)
	return ok, mapError("has_child_categories", err)
}

// HasProducts reports whether any product references the category
func (s *CategoryStore) HasProducts(ctx context.Context, id valueobjects.CategoryID) (bool, error) {
	var ok bool
	err := conn(ctx, s.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE category_id = $1)`, id.Int64(),
	).Scan(&ok)
	return ok, mapError("has_products", err)
}

// NextDisplayOrder returns max(display_order)+1 among the parent's children
func (s *CategoryStore) NextDisplayOrder(ctx context.Context, parentID *valueobjects.CategoryID) (int, error) {
	var next int
	err := conn(ctx, s.pool).QueryRow(ctx,
		`SELECT COALESCE(MAX(display_order) + 1, 0) FROM categories WHERE COALESCE(parent_id, 0) = COALESCE($1::bigint, 0)`,
		parentParam(parentID),
	).Scan(&next)
	return next, mapError("next_display_order", err)
}

// IsVisible reports whether neither the category nor any ancestor is archived
func (s *CategoryStore) IsVisible(ctx context.Context, id valueobjects.CategoryID) (bool, error) {
	var ok bool
	err := conn(ctx, s.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories c WHERE c.id = $1 AND `+visibleClause+`)`, id.Int64(),
	).Scan(&ok)
	return ok, mapError("is_visible", err)
}

// ListVisible returns visible categories ordered by path
func (s *CategoryStore) ListVisible(ctx context.Context, root *valueobjects.HierarchicalPath) ([]*entities.Category, error) {
	var rootParam *string
	if root != nil {
		v := root.String()
		rootParam = &v
	}
	rows, err := conn(ctx, s.pool).Query(ctx, `
		SELECT `+categoryColumns+`
		FROM categories c
		WHERE ($1::ltree IS NULL OR c.path <@ $1::ltree) AND `+visibleClause+`
		ORDER BY c.path`,
		rootParam,
	)
	if err != nil {
		return nil, mapError("list_visible", err)
	}
	out, err := collectCategories(rows)
	return out, mapError("list_visible", err)
}

// Create inserts a new category at row version 1
func (s *CategoryStore) Create(ctx context.Context, category *entities.Category) error {
	st := category.State()
	var version int64
	err := conn(ctx, s.pool).QueryRow(ctx, `
		INSERT INTO categories (id, name, slug, path, parent_id, display_order, created_at, updated_at, deleted_at, row_version)
		VALUES ($1, $2, $3, $4::ltree, $5, $6, $7, $8, $9, 1)
		RETURNING row_version`,
		st.ID, st.Name, st.Slug, st.Path, st.ParentID, st.DisplayOrder, st.CreatedAt, st.UpdatedAt, st.DeletedAt,
	).Scan(&version)
	if err != nil {
		return mapError("create_category", err)
	}
	category.ApplyRowVersion(valueobjects.NewRowVersion(strconv.FormatInt(version, 10)))
	return nil
}

const updateCategorySQL = `
	UPDATE categories
	SET name = $2, slug = $3, path = $4::ltree, parent_id = $5, display_order = $6,
	    updated_at = $7, deleted_at = $8, row_version = row_version + 1
	WHERE id = $1 AND row_version = $9
	RETURNING row_version`

func updateArgs(c *entities.Category, version int64) []any {
	st := c.State()
	return []any{st.ID, st.Name, st.Slug, st.Path, st.ParentID, st.DisplayOrder, st.UpdatedAt, st.DeletedAt, version}
}

// Save updates a category conditioned on its row version
func (s *CategoryStore) Save(ctx context.Context, category *entities.Category) error {
	version, err := versionParam(category)
	if err != nil {
		return err
	}
	var next int64
	err = conn(ctx, s.pool).QueryRow(ctx, updateCategorySQL, updateArgs(category, version)...).Scan(&next)
	if errors.Is(err, pgx.ErrNoRows) {
		return pkgerrors.ConcurrencyConflict(category.ID().Int64())
	}
	if err != nil {
		return mapError("save_category", err)
	}
	category.ApplyRowVersion(valueobjects.NewRowVersion(strconv.FormatInt(next, 10)))
	return nil
}

// SaveAll sends every update in one batch. Must run inside a transaction
// for the batch to be atomic.
func (s *CategoryStore) SaveAll(ctx context.Context, categories []*entities.Category) error {
	if len(categories) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, c := range categories {
		version, err := versionParam(c)
		if err != nil {
			return err
		}
		batch.Queue(updateCategorySQL, updateArgs(c, version)...)
	}

	results := conn(ctx, s.pool).SendBatch(ctx, batch)
	defer results.Close()

	next := make([]int64, len(categories))
	for i, c := range categories {
		err := results.QueryRow().Scan(&next[i])
		if errors.Is(err, pgx.ErrNoRows) {
			return pkgerrors.ConcurrencyConflict(c.ID().Int64())
		}
		if err != nil {
			return mapError("save_categories", err)
		}
	}
	for i, c := range categories {
		c.ApplyRowVersion(valueobjects.NewRowVersion(strconv.FormatInt(next[i], 10)))
	}
	return nil
}

// Delete removes the row conditioned on its row version
func (s *CategoryStore) Delete(ctx context.Context, category *entities.Category) error {
	version, err := versionParam(category)
	if err != nil {
		return err
	}
	tag, err := conn(ctx, s.pool).Exec(ctx,
		`DELETE FROM categories WHERE id = $1 AND row_version = $2`, category.ID().Int64(), version,
	)
	if err != nil {
		return mapError("delete_category", err)
	}
	if tag.RowsAffected() == 0 {
		return pkgerrors.ConcurrencyConflict(category.ID().Int64())
	}
	return nil
}

// AddProduct inserts a product row referencing the category. Used by seeding
// and integration tests; products are otherwise owned elsewhere.
func (s *CategoryStore) AddProduct(ctx context.Context, categoryID int64, name, slug string) (int64, error) {
	var id int64
	err := conn(ctx, s.pool).QueryRow(ctx,
		`INSERT INTO products (category_id, name, slug, created_at) VALUES ($1, $2, $3, $4) RETURNING id`,
		categoryID, name, slug, time.Now().UTC(),
	).Scan(&id)
	return id, mapError("add_product", err)
}
