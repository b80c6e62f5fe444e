// Package memory provides in-process adapters for the catalog ports. They
// honour the same constraints as the Postgres store and are used by tests
// and the memory storage backend.
package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"catalog/domain/core/entities"
	"catalog/domain/core/valueobjects"
	pkgerrors "catalog/pkg/errors"
)

type categoryRow struct {
	state   entities.CategoryState
	version int64
}

// InMemoryCategoryStore implements ports.CategoryTreeStore
type InMemoryCategoryStore struct {
	mu       sync.RWMutex
	rows     map[int64]categoryRow
	products map[int64]int
	nextID   int64
}

// NewInMemoryCategoryStore creates an empty store
func NewInMemoryCategoryStore() *InMemoryCategoryStore {
	return &InMemoryCategoryStore{
		rows:     make(map[int64]categoryRow),
		products: make(map[int64]int),
	}
}

// AddProduct registers a product reference to a category.
func (s *InMemoryCategoryStore) AddProduct(categoryID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[categoryID]++
}

// RemoveProducts clears the product references of a category.
func (s *InMemoryCategoryStore) RemoveProducts(categoryID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, categoryID)
}

// Len returns the number of stored rows, archived included.
func (s *InMemoryCategoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// NextID reserves a fresh category id
func (s *InMemoryCategoryStore) NextID(ctx context.Context) (valueobjects.CategoryID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return valueobjects.NewCategoryID(s.nextID)
}

func (s *InMemoryCategoryStore) load(id int64) (*entities.Category, bool, error) {
	row, ok := s.rows[id]
	if !ok {
		return nil, false, nil
	}
	c, err := entities.ReconstructCategory(row.state)
	if err != nil {
		return nil, true, pkgerrors.StorageFailure("reconstruct_category", err)
	}
	return c, true, nil
}

// GetByID returns a non-archived category
func (s *InMemoryCategoryStore) GetByID(ctx context.Context, id valueobjects.CategoryID) (*entities.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok, err := s.load(id.Int64())
	if err != nil {
		return nil, err
	}
	if !ok || c.IsArchived() {
		return nil, pkgerrors.CategoryNotFound(id.Int64())
	}
	return c, nil
}

// GetByIDIncludingArchived returns the category in any archive state
func (s *InMemoryCategoryStore) GetByIDIncludingArchived(ctx context.Context, id valueobjects.CategoryID) (*entities.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok, err := s.load(id.Int64())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.CategoryNotFound(id.Int64())
	}
	return c, nil
}

// Exists reports whether a non-archived category exists
func (s *InMemoryCategoryStore) Exists(ctx context.Context, id valueobjects.CategoryID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[id.Int64()]
	return ok && row.state.DeletedAt == nil, nil
}

// GetPath returns the stored path
func (s *InMemoryCategoryStore) GetPath(ctx context.Context, id valueobjects.CategoryID) (valueobjects.HierarchicalPath, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[id.Int64()]
	if !ok {
		return valueobjects.HierarchicalPath{}, pkgerrors.CategoryNotFound(id.Int64())
	}
	return valueobjects.ParsePath(row.state.Path)
}

// NameExistsWithinParent checks sibling name uniqueness
func (s *InMemoryCategoryStore) NameExistsWithinParent(ctx context.Context, name valueobjects.CategoryName, parentID *valueobjects.CategoryID, excludeID *valueobjects.CategoryID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var parent *int64
	if parentID != nil {
		v := parentID.Int64()
		parent = &v
	}
	var exclude int64
	if excludeID != nil {
		exclude = excludeID.Int64()
	}
	return s.siblingNameTaken(name.Key(), parent, exclude), nil
}

func (s *InMemoryCategoryStore) siblingNameTaken(key string, parent *int64, exclude int64) bool {
	for id, row := range s.rows {
		if id == exclude || !sameParent(row.state.ParentID, parent) {
			continue
		}
		if strings.ToLower(row.state.Name) == key {
			return true
		}
	}
	return false
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// GetDescendants returns up to maxCount+1 strict descendants by depth
func (s *InMemoryCategoryStore) GetDescendants(ctx context.Context, parentPath valueobjects.HierarchicalPath, excludeID valueobjects.CategoryID, maxCount int) ([]*entities.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]categoryRow, 0)
	for id, row := range s.rows {
		if id == excludeID.Int64() {
			continue
		}
		p, err := valueobjects.ParsePath(row.state.Path)
		if err != nil {
			return nil, pkgerrors.StorageFailure("parse_path", err)
		}
		if p.IsStrictDescendantOf(parentPath) {
			matches = append(matches, row)
		}
	}
	sortByDepth(matches)

	limit := maxCount + 1
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return s.reconstructAll(matches)
}

func sortByDepth(rows []categoryRow) {
	sort.Slice(rows, func(i, j int) bool {
		di := strings.Count(rows[i].state.Path, ".")
		dj := strings.Count(rows[j].state.Path, ".")
		if di != dj {
			return di < dj
		}
		return rows[i].state.Path < rows[j].state.Path
	})
}

func (s *InMemoryCategoryStore) reconstructAll(rows []categoryRow) ([]*entities.Category, error) {
	out := make([]*entities.Category, 0, len(rows))
	for _, row := range rows {
		c, err := entities.ReconstructCategory(row.state)
		if err != nil {
			return nil, pkgerrors.StorageFailure("reconstruct_category", err)
		}
		out = append(out, c)
	}
	return out, nil
}

// GetArchivedAncestors returns archived strict ancestors, root first
func (s *InMemoryCategoryStore) GetArchivedAncestors(ctx context.Context, path valueobjects.HierarchicalPath) ([]valueobjects.CategoryID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]categoryRow, 0)
	for _, row := range s.rows {
		if row.state.DeletedAt == nil {
			continue
		}
		p, err := valueobjects.ParsePath(row.state.Path)
		if err != nil {
			return nil, pkgerrors.StorageFailure("parse_path", err)
		}
		if path.IsStrictDescendantOf(p) {
			matches = append(matches, row)
		}
	}
	sortByDepth(matches)

	ids := make([]valueobjects.CategoryID, 0, len(matches))
	for _, row := range matches {
		id, err := valueobjects.NewCategoryID(row.state.ID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// HasChildCategories reports any child, archived or not
func (s *InMemoryCategoryStore) HasChildCategories(ctx context.Context, id valueobjects.CategoryID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, row := range s.rows {
		if row.state.ParentID != nil && *row.state.ParentID == id.Int64() {
			return true, nil
		}
	}
	return false, nil
}

// HasProducts reports whether any product references the category
func (s *InMemoryCategoryStore) HasProducts(ctx context.Context, id valueobjects.CategoryID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.products[id.Int64()] > 0, nil
}

// NextDisplayOrder returns max(display_order)+1 among siblings
func (s *InMemoryCategoryStore) NextDisplayOrder(ctx context.Context, parentID *valueobjects.CategoryID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var parent *int64
	if parentID != nil {
		v := parentID.Int64()
		parent = &v
	}
	next := 0
	for _, row := range s.rows {
		if sameParent(row.state.ParentID, parent) && row.state.DisplayOrder >= next {
			next = row.state.DisplayOrder + 1
		}
	}
	return next, nil
}

// IsVisible checks the category and every ancestor by path prefix
func (s *InMemoryCategoryStore) IsVisible(ctx context.Context, id valueobjects.CategoryID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.rows[id.Int64()]
	if !ok {
		return false, nil
	}
	return s.visible(row)
}

func (s *InMemoryCategoryStore) visible(row categoryRow) (bool, error) {
	if row.state.DeletedAt != nil {
		return false, nil
	}
	p, err := valueobjects.ParsePath(row.state.Path)
	if err != nil {
		return false, pkgerrors.StorageFailure("parse_path", err)
	}
	for _, other := range s.rows {
		if other.state.DeletedAt == nil {
			continue
		}
		op, err := valueobjects.ParsePath(other.state.Path)
		if err != nil {
			return false, pkgerrors.StorageFailure("parse_path", err)
		}
		if p.IsDescendantOf(op) {
			return false, nil
		}
	}
	return true, nil
}

// ListVisible returns visible categories ordered by path
func (s *InMemoryCategoryStore) ListVisible(ctx context.Context, root *valueobjects.HierarchicalPath) ([]*entities.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]categoryRow, 0)
	for _, row := range s.rows {
		if root != nil {
			p, err := valueobjects.ParsePath(row.state.Path)
			if err != nil {
				return nil, pkgerrors.StorageFailure("parse_path", err)
			}
			if !p.IsDescendantOf(*root) {
				continue
			}
		}
		ok, err := s.visible(row)
		if err != nil {
			return nil, err
		}
		if ok {
			matches = append(matches, row)
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return comparePaths(matches[i].state.Path, matches[j].state.Path) < 0
	})
	return s.reconstructAll(matches)
}

// comparePaths orders label-wise, numerically when both labels are numbers,
// so "1.10" sorts after "1.9".
func comparePaths(a, b string) int {
	la, lb := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(la) && i < len(lb); i++ {
		if la[i] == lb[i] {
			continue
		}
		na, errA := strconv.ParseInt(la[i], 10, 64)
		nb, errB := strconv.ParseInt(lb[i], 10, 64)
		if errA == nil && errB == nil {
			if na < nb {
				return -1
			}
			return 1
		}
		return strings.Compare(la[i], lb[i])
	}
	return len(la) - len(lb)
}

func (s *InMemoryCategoryStore) checkConstraints(state entities.CategoryState) error {
	if s.siblingNameTaken(strings.ToLower(state.Name), state.ParentID, state.ID) {
		return pkgerrors.ErrSiblingNameConflict.New().WithDetail("name", state.Name)
	}
	for id, row := range s.rows {
		if id != state.ID && row.state.Slug == state.Slug {
			return pkgerrors.SlugAlreadyInUse(state.Slug)
		}
	}
	if state.ParentID != nil {
		parent, ok := s.rows[*state.ParentID]
		if !ok {
			return pkgerrors.ErrParentNotFound.New().WithDetail("parent_id", *state.ParentID)
		}
		if !strings.HasPrefix(state.Path, parent.state.Path+".") {
			return pkgerrors.ErrInvalidPath.New().
				WithDetail("reason", "parent_mismatch").
				WithDetail("path", state.Path)
		}
	}
	return nil
}

// Create inserts a new category
func (s *InMemoryCategoryStore) Create(ctx context.Context, category *entities.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := category.State()
	if _, exists := s.rows[state.ID]; exists {
		return pkgerrors.ErrConcurrencyConflict.New().WithDetail("category_id", state.ID)
	}
	if err := s.checkConstraints(state); err != nil {
		return err
	}
	if state.ID > s.nextID {
		s.nextID = state.ID
	}
	s.put(category, state, 1)
	return nil
}

func (s *InMemoryCategoryStore) put(category *entities.Category, state entities.CategoryState, version int64) {
	token := strconv.FormatInt(version, 10)
	state.RowVersion = token
	s.rows[state.ID] = categoryRow{state: state, version: version}
	category.ApplyRowVersion(valueobjects.NewRowVersion(token))
}

func (s *InMemoryCategoryStore) saveLocked(category *entities.Category) error {
	state := category.State()
	row, ok := s.rows[state.ID]
	if !ok {
		return pkgerrors.CategoryNotFound(state.ID)
	}
	if row.state.RowVersion != state.RowVersion {
		return pkgerrors.ConcurrencyConflict(state.ID)
	}
	if err := s.checkConstraints(state); err != nil {
		return err
	}
	s.put(category, state, row.version+1)
	return nil
}

// Save updates a category conditioned on its row version
func (s *InMemoryCategoryStore) Save(ctx context.Context, category *entities.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(category)
}

// SaveAll saves several categories in order. Path constraints are checked
// against rows already written in this call, so parents go first.
func (s *InMemoryCategoryStore) SaveAll(ctx context.Context, categories []*entities.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range categories {
		if err := s.saveLocked(c); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a category conditioned on its row version
func (s *InMemoryCategoryStore) Delete(ctx context.Context, category *entities.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := category.ID().Int64()
	row, ok := s.rows[id]
	if !ok {
		return pkgerrors.CategoryNotFound(id)
	}
	if !category.RowVersion().Matches(row.state.RowVersion) {
		return pkgerrors.ConcurrencyConflict(id)
	}
	delete(s.rows, id)
	return nil
}

func (s *InMemoryCategoryStore) snapshot() map[int64]categoryRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := make(map[int64]categoryRow, len(s.rows))
	for id, row := range s.rows {
		snap[id] = row
	}
	return snap
}

func (s *InMemoryCategoryStore) restore(snap map[int64]categoryRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = snap
}
