package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog/application/ports"
	"catalog/domain/config"
	"catalog/domain/core/entities"
	"catalog/domain/core/valueobjects"
	pkgerrors "catalog/pkg/errors"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func add(t *testing.T, s *InMemoryCategoryStore, name string, parent *entities.Category) *entities.Category {
	t.Helper()
	ctx := context.Background()
	id, err := s.NextID(ctx)
	require.NoError(t, err)
	n, err := valueobjects.NewCategoryName(name)
	require.NoError(t, err)
	slug, err := valueobjects.SlugFromName(name, config.DefaultDomainConfig())
	require.NoError(t, err)
	c, err := entities.NewCategory(id, n, slug, parent, 0, t0, config.DefaultDomainConfig())
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, c))
	return c
}

func TestInMemoryCategoryStore_VisibilityAndDescendants(t *testing.T) {
	s := NewInMemoryCategoryStore()
	ctx := context.Background()

	flowers := add(t, s, "Flowers", nil)
	roses := add(t, s, "Roses", flowers)
	climbing := add(t, s, "Climbing", roses)
	add(t, s, "Tulips", flowers)

	desc, err := s.GetDescendants(ctx, flowers.Path(), flowers.ID(), 10)
	require.NoError(t, err)
	require.Len(t, desc, 3)
	assert.Equal(t, 2, desc[0].Path().NLevel())
	assert.Equal(t, climbing.ID(), desc[2].ID())

	capped, err := s.GetDescendants(ctx, flowers.Path(), flowers.ID(), 1)
	require.NoError(t, err)
	assert.Len(t, capped, 2, "cap+1 rows make overflow detectable")

	flowers.MarkArchived(t0, 3)
	require.NoError(t, s.Save(ctx, flowers))
	assert.Equal(t, "2", flowers.RowVersion().String())

	visible, err := s.IsVisible(ctx, climbing.ID())
	require.NoError(t, err)
	assert.False(t, visible)

	ancestors, err := s.GetArchivedAncestors(ctx, climbing.Path())
	require.NoError(t, err)
	assert.Equal(t, []valueobjects.CategoryID{flowers.ID()}, ancestors)

	list, err := s.ListVisible(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = s.GetByID(ctx, flowers.ID())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeCategoryNotFound))
	archived, err := s.GetByIDIncludingArchived(ctx, flowers.ID())
	require.NoError(t, err)
	assert.True(t, archived.IsArchived())
}

func TestInMemoryCategoryStore_CompareAndSet(t *testing.T) {
	s := NewInMemoryCategoryStore()
	ctx := context.Background()
	flowers := add(t, s, "Flowers", nil)

	stale, err := s.GetByID(ctx, flowers.ID())
	require.NoError(t, err)

	order := 3
	flowers.UpdateDetails(nil, &order, t0)
	require.NoError(t, s.Save(ctx, flowers))

	stale.UpdateDetails(nil, &order, t0)
	assert.True(t, pkgerrors.HasCode(s.Save(ctx, stale), pkgerrors.CodeConcurrencyConflict))
	assert.True(t, pkgerrors.HasCode(s.Delete(ctx, stale), pkgerrors.CodeConcurrencyConflict))
	require.NoError(t, s.Delete(ctx, flowers))
	assert.Zero(t, s.Len())
}

func TestInMemoryCategoryStore_Constraints(t *testing.T) {
	s := NewInMemoryCategoryStore()
	ctx := context.Background()
	flowers := add(t, s, "Flowers", nil)

	taken, err := s.NameExistsWithinParent(ctx, mustName(t, "FLOWERS"), nil, nil)
	require.NoError(t, err)
	assert.True(t, taken)
	self := flowers.ID()
	taken, err = s.NameExistsWithinParent(ctx, mustName(t, "flowers"), nil, &self)
	require.NoError(t, err)
	assert.False(t, taken)

	id, _ := s.NextID(ctx)
	slug, _ := valueobjects.NewSlug("flowers-upper")
	c, err := entities.NewCategory(id, mustName(t, "FLOWERS"), slug, nil, 0, t0, config.DefaultDomainConfig())
	require.NoError(t, err)
	assert.True(t, pkgerrors.HasCode(s.Create(ctx, c), pkgerrors.CodeSiblingNameConflict))

	id, _ = s.NextID(ctx)
	c, err = entities.NewCategory(id, mustName(t, "Blooms"), flowers.Slug(), nil, 0, t0, config.DefaultDomainConfig())
	require.NoError(t, err)
	assert.True(t, pkgerrors.HasCode(s.Create(ctx, c), pkgerrors.CodeSlugAlreadyInUse))

	next, err := s.NextDisplayOrder(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, next)
}

func TestInMemoryCategoryStore_ListVisibleOrdersNumerically(t *testing.T) {
	s := NewInMemoryCategoryStore()
	ctx := context.Background()
	root := add(t, s, "Root", nil)
	for _, name := range []string{"B", "C", "D", "E", "F", "G", "H", "I", "J", "K"} {
		add(t, s, name, root)
	}

	list, err := s.ListVisible(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list, 11)
	assert.Equal(t, "1.10", list[9].Path().String())
	assert.Equal(t, "1.11", list[10].Path().String())

	sub := list[1].Path()
	scoped, err := s.ListVisible(ctx, &sub)
	require.NoError(t, err)
	assert.Len(t, scoped, 1)
}

func TestTxRunner_RollsBack(t *testing.T) {
	s := NewInMemoryCategoryStore()
	tx := NewTxRunner(s)
	ctx := context.Background()
	flowers := add(t, s, "Flowers", nil)

	err := tx.InTx(ctx, ports.StructuralTxPolicy(), func(ctx context.Context) error {
		c, err := s.GetByID(ctx, flowers.ID())
		require.NoError(t, err)
		c.MarkArchived(t0, 0)
		require.NoError(t, s.Save(ctx, c))
		return pkgerrors.ErrCategoryHasChildren.New()
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeCategoryHasChildren))

	c, err := s.GetByID(ctx, flowers.ID())
	require.NoError(t, err)
	assert.False(t, c.IsArchived())
	assert.Zero(t, tx.Commits())

	tx.FailCommit = errors.New("disk full")
	err = tx.InTx(ctx, ports.DefaultTxPolicy(), func(ctx context.Context) error {
		add(t, s, "Shrubs", nil)
		return nil
	})
	assert.Error(t, err)
	assert.Equal(t, 1, s.Len())

	assert.Equal(t, []ports.TxPolicy{ports.StructuralTxPolicy(), ports.DefaultTxPolicy()}, tx.Policies())
}

func TestTxRunner_CancelledContext(t *testing.T) {
	tx := NewTxRunner(NewInMemoryCategoryStore())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := tx.InTx(ctx, ports.DefaultTxPolicy(), func(context.Context) error {
		called = true
		return nil
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeTransactionAborted))
	assert.False(t, called)
}

func TestInMemorySlugRegistry_HistoryAndReactivation(t *testing.T) {
	r := NewInMemorySlugRegistry()
	ctx := context.Background()
	cat := valueobjects.EntityTypeCategory
	roses, _ := valueobjects.NewSlug("roses")
	garden, _ := valueobjects.NewSlug("garden-roses")

	require.NoError(t, r.RegisterSlug(ctx, cat, 2, roses))
	require.NoError(t, r.RegisterSlug(ctx, cat, 2, garden))
	assert.True(t, pkgerrors.HasCode(r.RegisterSlug(ctx, cat, 3, roses), pkgerrors.CodeSlugAlreadyInUse))
	assert.True(t, pkgerrors.HasCode(r.RegisterSlug(ctx, valueobjects.EntityTypeProduct, 2, roses), pkgerrors.CodeSlugAlreadyInUse))

	old, err := r.Lookup(ctx, roses)
	require.NoError(t, err)
	assert.False(t, old.IsActive)

	require.NoError(t, r.RegisterSlug(ctx, cat, 2, roses))
	active, err := r.ActiveSlug(ctx, cat, 2)
	require.NoError(t, err)
	assert.Equal(t, "roses", active.Slug)

	activeCount := 0
	for _, row := range r.Registrations(cat, 2) {
		if row.IsActive {
			activeCount++
		}
	}
	assert.Equal(t, 1, activeCount)

	require.NoError(t, r.UnregisterAllSlugsOfEntity(ctx, cat, 2))
	available, err := r.IsSlugAvailable(ctx, garden)
	require.NoError(t, err)
	assert.True(t, available)
	_, err = r.ActiveSlug(ctx, cat, 2)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeSlugNotFound))
}

func mustName(t *testing.T, s string) valueobjects.CategoryName {
	t.Helper()
	n, err := valueobjects.NewCategoryName(s)
	require.NoError(t, err)
	return n
}
