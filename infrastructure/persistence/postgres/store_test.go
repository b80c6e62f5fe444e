package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"catalog/application/ports"
	"catalog/domain/config"
	"catalog/domain/core/entities"
	"catalog/domain/core/valueobjects"
	pkgerrors "catalog/pkg/errors"
)

// testPool connects to TEST_DATABASE_URL and migrates it. Tests are skipped
// when the variable is unset or the database is unreachable.
func testPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("skipping integration test: TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := Connect(ctx, dsn, 4, zap.NewNop())
	if err != nil {
		t.Skipf("skipping integration test: DB not reachable: %v", err)
	}
	require.NoError(t, Migrate(ctx, pool, zap.NewNop()))

	_, err = pool.Exec(ctx, `TRUNCATE products, slug_registrations, categories RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	t.Cleanup(pool.Close)
	return pool
}

type pgFixture struct {
	store *CategoryStore
	slugs *SlugRegistry
	tx    *TxRunner
}

func newPGFixture(t *testing.T) *pgFixture {
	pool := testPool(t)
	tx := NewTxRunner(pool, zap.NewNop())
	return &pgFixture{
		store: NewCategoryStore(pool),
		slugs: NewSlugRegistry(pool, tx),
		tx:    tx,
	}
}

func (f *pgFixture) add(t *testing.T, name string, parent *entities.Category) *entities.Category {
	t.Helper()
	ctx := context.Background()
	id, err := f.store.NextID(ctx)
	require.NoError(t, err)
	n, err := valueobjects.NewCategoryName(name)
	require.NoError(t, err)
	s, err := valueobjects.SlugFromName(name, config.DefaultDomainConfig())
	require.NoError(t, err)
	c, err := entities.NewCategory(id, n, s, parent, 0, time.Now(), config.DefaultDomainConfig())
	require.NoError(t, err)
	require.NoError(t, f.store.Create(ctx, c))
	return c
}

func TestCategoryStore_VisibilityAndDescendants(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()

	flowers := f.add(t, "Flowers", nil)
	roses := f.add(t, "Roses", flowers)
	climbing := f.add(t, "Climbing", roses)
	f.add(t, "Tulips", flowers)

	desc, err := f.store.GetDescendants(ctx, flowers.Path(), flowers.ID(), 10)
	require.NoError(t, err)
	require.Len(t, desc, 3)
	assert.Equal(t, 2, desc[0].Path().NLevel())
	assert.Equal(t, climbing.ID(), desc[2].ID())

	capped, err := f.store.GetDescendants(ctx, flowers.Path(), flowers.ID(), 1)
	require.NoError(t, err)
	assert.Len(t, capped, 2)

	flowers.MarkArchived(time.Now(), 3)
	require.NoError(t, f.store.Save(ctx, flowers))
	assert.Equal(t, "2", flowers.RowVersion().String())

	visible, err := f.store.IsVisible(ctx, climbing.ID())
	require.NoError(t, err)
	assert.False(t, visible)

	ancestors, err := f.store.GetArchivedAncestors(ctx, climbing.Path())
	require.NoError(t, err)
	assert.Equal(t, []valueobjects.CategoryID{flowers.ID()}, ancestors)

	list, err := f.store.ListVisible(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.store.GetByID(ctx, flowers.ID())
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeCategoryNotFound))
}

func TestCategoryStore_CompareAndSet(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	flowers := f.add(t, "Flowers", nil)

	stale, err := f.store.GetByID(ctx, flowers.ID())
	require.NoError(t, err)

	order := 3
	flowers.UpdateDetails(nil, &order, time.Now())
	require.NoError(t, f.store.Save(ctx, flowers))

	stale.UpdateDetails(nil, &order, time.Now())
	err = f.store.Save(ctx, stale)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConcurrencyConflict))

	err = f.store.Delete(ctx, stale)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConcurrencyConflict))
}

func TestCategoryStore_SiblingNameConstraint(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	f.add(t, "Flowers", nil)

	id, err := f.store.NextID(ctx)
	require.NoError(t, err)
	n, _ := valueobjects.NewCategoryName("FLOWERS")
	s, _ := valueobjects.NewSlug("flowers-upper")
	c, err := entities.NewCategory(id, n, s, nil, 0, time.Now(), config.DefaultDomainConfig())
	require.NoError(t, err)

	err = f.store.Create(ctx, c)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeSiblingNameConflict))
}

func TestTxRunner_RollsBackAndAppliesPolicy(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	flowers := f.add(t, "Flowers", nil)

	err := f.tx.InTx(ctx, ports.StructuralTxPolicy(), func(ctx context.Context) error {
		var lockTimeout, isolation string
		tx, _ := txFrom(ctx)
		require.NoError(t, tx.QueryRow(ctx, `SHOW lock_timeout`).Scan(&lockTimeout))
		require.NoError(t, tx.QueryRow(ctx, `SHOW transaction_isolation`).Scan(&isolation))
		assert.Equal(t, "2s", lockTimeout)
		assert.Equal(t, "serializable", isolation)

		c, err := f.store.GetByID(ctx, flowers.ID())
		require.NoError(t, err)
		c.MarkArchived(time.Now(), 0)
		require.NoError(t, f.store.Save(ctx, c))
		return pkgerrors.ErrCategoryHasChildren.New()
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeCategoryHasChildren))

	c, err := f.store.GetByID(ctx, flowers.ID())
	require.NoError(t, err)
	assert.False(t, c.IsArchived())
}

func TestSlugRegistry_HistoryAndReactivation(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	roses, _ := valueobjects.NewSlug("roses")
	garden, _ := valueobjects.NewSlug("garden-roses")

	require.NoError(t, f.slugs.RegisterSlug(ctx, valueobjects.EntityTypeCategory, 2, roses))
	require.NoError(t, f.slugs.RegisterSlug(ctx, valueobjects.EntityTypeCategory, 2, garden))

	err := f.slugs.RegisterSlug(ctx, valueobjects.EntityTypeCategory, 3, roses)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeSlugAlreadyInUse))

	old, err := f.slugs.Lookup(ctx, roses)
	require.NoError(t, err)
	assert.False(t, old.IsActive)

	available, err := f.slugs.IsSlugAvailableForEntity(ctx, roses, valueobjects.EntityTypeCategory, 2)
	require.NoError(t, err)
	assert.True(t, available)

	require.NoError(t, f.slugs.RegisterSlug(ctx, valueobjects.EntityTypeCategory, 2, roses))
	active, err := f.slugs.ActiveSlug(ctx, valueobjects.EntityTypeCategory, 2)
	require.NoError(t, err)
	assert.Equal(t, "roses", active.Slug)

	require.NoError(t, f.slugs.UnregisterAllSlugsOfEntity(ctx, valueobjects.EntityTypeCategory, 2))
	available, err = f.slugs.IsSlugAvailable(ctx, garden)
	require.NoError(t, err)
	assert.True(t, available)
}

func TestSlugRegistry_UnregisterRollsBackWithStore(t *testing.T) {
	f := newPGFixture(t)
	ctx := context.Background()
	require.True(t, ports.JoinsStoreTx(f.slugs))

	roses := f.add(t, "Roses", nil)
	require.NoError(t, f.slugs.RegisterSlug(ctx, valueobjects.EntityTypeCategory, roses.ID().Int64(), roses.Slug()))

	err := f.tx.InTx(ctx, ports.StructuralTxPolicy(), func(ctx context.Context) error {
		require.NoError(t, f.store.Delete(ctx, roses))
		require.NoError(t, f.slugs.UnregisterAllSlugsOfEntity(ctx, valueobjects.EntityTypeCategory, roses.ID().Int64()))
		return pkgerrors.ErrCategoryHasProducts.New()
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeCategoryHasProducts))

	_, err = f.store.GetByIDIncludingArchived(ctx, roses.ID())
	require.NoError(t, err)
	active, err := f.slugs.ActiveSlug(ctx, valueobjects.EntityTypeCategory, roses.ID().Int64())
	require.NoError(t, err)
	assert.Equal(t, "roses", active.Slug)
}
