package handlers

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"catalog/application/ports"
	"catalog/application/queries"
	"catalog/application/queries/bus"
	"catalog/domain/core/valueobjects"
	pkgerrors "catalog/pkg/errors"
)

// GetCategoryHandler handles single category reads
type GetCategoryHandler struct {
	store  ports.CategoryTreeStore
	logger *zap.Logger
}

// NewGetCategoryHandler creates a new get category handler
func NewGetCategoryHandler(store ports.CategoryTreeStore, logger *zap.Logger) *GetCategoryHandler {
	return &GetCategoryHandler{store: store, logger: logger}
}

// Handle returns the category with its archive and visibility state
func (h *GetCategoryHandler) Handle(ctx context.Context, query queries.GetCategoryQuery) (*queries.CategoryView, error) {
	id, err := valueobjects.NewCategoryID(query.CategoryID)
	if err != nil {
		return nil, err
	}
	c, err := h.store.GetByIDIncludingArchived(ctx, id)
	if err != nil {
		return nil, err
	}
	visible := false
	if !c.IsArchived() {
		if visible, err = h.store.IsVisible(ctx, id); err != nil {
			return nil, err
		}
	}
	view := queries.NewCategoryView(c, visible)
	return &view, nil
}

// GetCategoryTreeHandler builds the nested visible tree
type GetCategoryTreeHandler struct {
	store  ports.CategoryTreeStore
	logger *zap.Logger
}

// NewGetCategoryTreeHandler creates a new tree handler
func NewGetCategoryTreeHandler(store ports.CategoryTreeStore, logger *zap.Logger) *GetCategoryTreeHandler {
	return &GetCategoryTreeHandler{store: store, logger: logger}
}

// Handle returns every visible category nested under its parent. With a
// RootID the result holds that single subtree, which must itself be visible.
func (h *GetCategoryTreeHandler) Handle(ctx context.Context, query queries.GetCategoryTreeQuery) (*queries.CategoryTreeResult, error) {
	var root *valueobjects.HierarchicalPath
	if query.RootID != nil {
		id, err := valueobjects.NewCategoryID(*query.RootID)
		if err != nil {
			return nil, err
		}
		visible, err := h.store.IsVisible(ctx, id)
		if err != nil {
			return nil, err
		}
		if !visible {
			return nil, pkgerrors.CategoryNotFound(id.Int64())
		}
		p, err := h.store.GetPath(ctx, id)
		if err != nil {
			return nil, err
		}
		root = &p
	}

	rows, err := h.store.ListVisible(ctx, root)
	if err != nil {
		return nil, err
	}

	nodes := make(map[int64]*queries.CategoryTreeNode, len(rows))
	result := &queries.CategoryTreeResult{Roots: []*queries.CategoryTreeNode{}, Total: len(rows)}
	for _, c := range rows {
		node := &queries.CategoryTreeNode{
			CategoryView: queries.NewCategoryView(c, true),
			Children:     []*queries.CategoryTreeNode{},
		}
		nodes[node.ID] = node
		if pid := c.ParentIDValue(); pid != nil {
			if parent, ok := nodes[*pid]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		result.Roots = append(result.Roots, node)
	}
	sortNodes(result.Roots)

	h.logger.Debug("Category tree built", zap.Int("nodes", len(rows)))
	return result, nil
}

func sortNodes(nodes []*queries.CategoryTreeNode) {
	sort.SliceStable(nodes, func(i, j int) bool {
		if nodes[i].DisplayOrder != nodes[j].DisplayOrder {
			return nodes[i].DisplayOrder < nodes[j].DisplayOrder
		}
		return nodes[i].Name < nodes[j].Name
	})
	for _, n := range nodes {
		sortNodes(n.Children)
	}
}

// ResolveSlugHandler resolves public slugs, following history to the
// current slug
type ResolveSlugHandler struct {
	slugs  ports.SlugRegistry
	store  ports.CategoryTreeStore
	logger *zap.Logger
}

// NewResolveSlugHandler creates a new resolve slug handler
func NewResolveSlugHandler(slugs ports.SlugRegistry, store ports.CategoryTreeStore, logger *zap.Logger) *ResolveSlugHandler {
	return &ResolveSlugHandler{slugs: slugs, store: store, logger: logger}
}

// Handle resolves the slug. A category that is archived or occluded does not
// resolve. For categories the row's slug, not the registry, names the
// current slug.
func (h *ResolveSlugHandler) Handle(ctx context.Context, query queries.ResolveSlugQuery) (*queries.SlugResolution, error) {
	slug, err := valueobjects.NewSlug(query.Slug)
	if err != nil {
		return nil, err
	}
	reg, err := h.slugs.Lookup(ctx, slug)
	if err != nil {
		return nil, err
	}

	res := &queries.SlugResolution{
		RequestedSlug: slug.String(),
		EntityType:    string(reg.EntityType),
		EntityID:      reg.EntityID,
	}

	if reg.EntityType != valueobjects.EntityTypeCategory {
		res.CurrentSlug = reg.Slug
		if !reg.IsActive {
			active, err := h.slugs.ActiveSlug(ctx, reg.EntityType, reg.EntityID)
			if err != nil {
				return nil, err
			}
			res.CurrentSlug = active.Slug
		}
		res.Redirect = res.CurrentSlug != res.RequestedSlug
		return res, nil
	}

	id, err := valueobjects.NewCategoryID(reg.EntityID)
	if err != nil {
		return nil, err
	}
	notFound := pkgerrors.ErrSlugNotFound.New().WithDetail("slug", slug.String())
	visible, err := h.store.IsVisible(ctx, id)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, notFound
		}
		return nil, err
	}
	if !visible {
		return nil, notFound
	}
	c, err := h.store.GetByID(ctx, id)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil, notFound
		}
		return nil, err
	}

	view := queries.NewCategoryView(c, true)
	res.Category = &view
	res.CurrentSlug = c.Slug().String()
	res.Redirect = res.CurrentSlug != res.RequestedSlug
	return res, nil
}

// Adapt exposes a typed handler on the query bus.
func Adapt[Q bus.Query, R any](handle func(context.Context, Q) (R, error)) bus.QueryHandler {
	return bus.QueryHandlerFunc(func(ctx context.Context, query bus.Query) (interface{}, error) {
		typed, ok := query.(Q)
		if !ok {
			return nil, pkgerrors.ErrInvalidCommand.New().WithDetail("query", query)
		}
		return handle(ctx, typed)
	})
}

// RegisterAll registers the category query handlers on b.
func RegisterAll(b *bus.QueryBus, store ports.CategoryTreeStore, slugs ports.SlugRegistry, logger *zap.Logger) error {
	if err := b.Register(queries.GetCategoryQuery{}, Adapt(NewGetCategoryHandler(store, logger).Handle)); err != nil {
		return err
	}
	if err := b.Register(queries.GetCategoryTreeQuery{}, Adapt(NewGetCategoryTreeHandler(store, logger).Handle)); err != nil {
		return err
	}
	return b.Register(queries.ResolveSlugQuery{}, Adapt(NewResolveSlugHandler(slugs, store, logger).Handle))
}
