// Package services holds the pure domain logic for structural changes to the
// category tree. Nothing here performs I/O: callers load the subject and its
// descendant set (capped at DescendantCap()+1 rows) and persist the result.
package services

import (
	"time"

	"catalog/domain/config"
	"catalog/domain/core/entities"
	"catalog/domain/core/valueobjects"
	pkgerrors "catalog/pkg/errors"
)

// CategoryHierarchyService decides and applies the minimal set of field
// changes for archive, restore, reparent and reslug. Every operation returns
// (changed, err); changed=false with a nil error is a no-op.
type CategoryHierarchyService struct {
	cfg *config.DomainConfig
}

// NewCategoryHierarchyService creates the service
func NewCategoryHierarchyService(cfg *config.DomainConfig) *CategoryHierarchyService {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &CategoryHierarchyService{cfg: cfg}
}

// DescendantCap is the maxCount callers pass to the store. The store returns
// up to cap+1 rows so overflow is detectable.
func (s *CategoryHierarchyService) DescendantCap() int {
	return s.cfg.DescendantCap
}

func (s *CategoryHierarchyService) checkCap(category *entities.Category, descendants []*entities.Category) error {
	if len(descendants) > s.cfg.DescendantCap {
		return pkgerrors.TooManyDescendants(category.ID().Int64(), s.cfg.DescendantCap).
			WithDetail("fetched", len(descendants))
	}
	return nil
}

// ArchiveCategoryAndDescendants sets DeletedAt on the category only.
// Descendants stay untouched and become occluded at read time.
func (s *CategoryHierarchyService) ArchiveCategoryAndDescendants(
	category *entities.Category,
	descendants []*entities.Category,
	now time.Time,
) (bool, error) {
	if category.IsArchived() {
		return false, nil
	}
	if err := s.checkCap(category, descendants); err != nil {
		return false, err
	}
	return category.MarkArchived(now, len(descendants)), nil
}

// RestoreCategoryAndDescendants clears DeletedAt. archivedAncestors must come
// from a path-prefix query against the store, not from the descendant set.
func (s *CategoryHierarchyService) RestoreCategoryAndDescendants(
	category *entities.Category,
	descendants []*entities.Category,
	archivedAncestors []valueobjects.CategoryID,
	now time.Time,
) (bool, error) {
	if !category.IsArchived() {
		return false, nil
	}
	if err := s.checkCap(category, descendants); err != nil {
		return false, err
	}
	if len(archivedAncestors) > 0 {
		ids := make([]int64, len(archivedAncestors))
		for i, id := range archivedAncestors {
			ids[i] = id.Int64()
		}
		return false, pkgerrors.ErrHasArchivedAncestors.New().
			WithDetail("category_id", category.ID().Int64()).
			WithDetail("archived_ancestor_ids", ids)
	}
	return category.ClearArchived(now), nil
}

// ReparentCategoryAndRebaseDescendants moves category under newParentID
// (nil for root) and rewrites the prefix of every descendant path. Sibling
// name collisions are checked by the caller. All new paths are computed
// before anything is mutated.
func (s *CategoryHierarchyService) ReparentCategoryAndRebaseDescendants(
	category *entities.Category,
	newParentID *valueobjects.CategoryID,
	newParentPath *valueobjects.HierarchicalPath,
	descendants []*entities.Category,
	now time.Time,
) (bool, error) {
	if newParentID != nil && newParentID.Equals(category.ID()) {
		return false, pkgerrors.ErrSelfParenting.New().WithDetail("category_id", category.ID().Int64())
	}
	if category.HasParent(newParentID) {
		return false, nil
	}
	if newParentID == nil {
		newParentPath = nil
	} else if newParentPath == nil || newParentPath.IsZero() {
		return false, pkgerrors.ErrParentNotFound.New().WithDetail("parent_id", newParentID.Int64())
	}

	oldPath := category.Path()
	if newParentPath != nil && newParentPath.IsDescendantOf(oldPath) {
		return false, pkgerrors.ErrCannotMoveUnderDescendant.New().
			WithDetail("category_id", category.ID().Int64()).
			WithDetail("parent_id", newParentID.Int64())
	}
	if err := s.checkCap(category, descendants); err != nil {
		return false, err
	}

	newPath, err := valueobjects.UnderParent(newParentPath, oldPath.Label())
	if err != nil {
		return false, err
	}

	rebased := make([]valueobjects.HierarchicalPath, len(descendants))
	for i, d := range descendants {
		if !d.Path().IsStrictDescendantOf(oldPath) {
			return false, pkgerrors.ErrInvalidPath.New().
				WithDetail("reason", "not_a_descendant").
				WithDetail("category_id", d.ID().Int64()).
				WithDetail("path", d.Path().String())
		}
		p, err := d.Path().Rebase(oldPath, newPath)
		if err != nil {
			return false, err
		}
		if p.NLevel() > s.cfg.MaxDepth {
			return false, pkgerrors.ErrInvalidPath.New().
				WithDetail("reason", "max_depth").
				WithDetail("max_depth", s.cfg.MaxDepth)
		}
		rebased[i] = p
	}
	if newPath.NLevel() > s.cfg.MaxDepth {
		return false, pkgerrors.ErrInvalidPath.New().
			WithDetail("reason", "max_depth").
			WithDetail("max_depth", s.cfg.MaxDepth)
	}

	category.MoveUnder(newParentID, newPath, len(descendants), now)
	for i, d := range descendants {
		d.RebasePath(rebased[i], now)
	}
	return true, nil
}

// ChangeCategorySlugAndRebaseDescendants sets the current slug. Paths are
// built from id labels, so descendants never need rewriting here; the set is
// only checked against the cap when a caller supplies one.
func (s *CategoryHierarchyService) ChangeCategorySlugAndRebaseDescendants(
	category *entities.Category,
	newSlug valueobjects.Slug,
	descendants []*entities.Category,
	now time.Time,
) (bool, error) {
	if newSlug.IsZero() {
		return false, pkgerrors.ErrEmptySlug.New()
	}
	if category.Slug().Equals(newSlug) {
		return false, nil
	}
	if err := s.checkCap(category, descendants); err != nil {
		return false, err
	}
	return category.ChangeSlug(newSlug, now), nil
}
