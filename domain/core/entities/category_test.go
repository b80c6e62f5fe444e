package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog/domain/config"
	"catalog/domain/core/valueobjects"
	"catalog/domain/events"
	pkgerrors "catalog/pkg/errors"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newCategory(t *testing.T, id int64, name string, parent *Category) *Category {
	t.Helper()
	cid, err := valueobjects.NewCategoryID(id)
	require.NoError(t, err)
	n, err := valueobjects.NewCategoryName(name)
	require.NoError(t, err)
	s, err := valueobjects.SlugFromName(name, config.DefaultDomainConfig())
	require.NoError(t, err)
	c, err := NewCategory(cid, n, s, parent, 0, t0, config.DefaultDomainConfig())
	require.NoError(t, err)
	return c
}

func eventTypes(c *Category) []string {
	var out []string
	for _, e := range c.GetUncommittedEvents() {
		out = append(out, e.GetEventType())
	}
	return out
}

func TestNewCategory_PathFollowsIDs(t *testing.T) {
	flowers := newCategory(t, 1, "Flowers", nil)
	roses := newCategory(t, 7, "Roses", flowers)

	assert.True(t, flowers.IsRoot())
	assert.Equal(t, "1", flowers.Path().String())
	assert.Equal(t, "1.7", roses.Path().String())
	assert.Equal(t, int64(1), *roses.ParentIDValue())
	assert.Equal(t, []string{events.TypeCategoryCreated}, eventTypes(roses))
}

func TestNewCategory_MaxDepth(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	cfg.MaxDepth = 2
	root := newCategory(t, 1, "A", nil)
	child := newCategory(t, 2, "B", root)

	id, _ := valueobjects.NewCategoryID(3)
	n, _ := valueobjects.NewCategoryName("C")
	s, _ := valueobjects.NewSlug("c")
	_, err := NewCategory(id, n, s, child, 0, t0, cfg)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidPath))
}

func TestCategory_ArchiveAndRestore(t *testing.T) {
	c := newCategory(t, 1, "Flowers", nil)
	c.MarkEventsAsCommitted()

	require.True(t, c.MarkArchived(t0, 4))
	assert.True(t, c.IsArchived())
	assert.False(t, c.MarkArchived(t0.Add(time.Hour), 4))
	assert.Equal(t, t0, *c.DeletedAt())

	assert.False(t, c.GracePeriodElapsed(t0.Add(23*time.Hour), 24*time.Hour))
	assert.True(t, c.GracePeriodElapsed(t0.Add(24*time.Hour), 24*time.Hour))

	require.True(t, c.ClearArchived(t0.Add(time.Hour)))
	assert.False(t, c.ClearArchived(t0.Add(time.Hour)))
	assert.False(t, c.GracePeriodElapsed(t0.Add(48*time.Hour), 24*time.Hour))
	assert.Equal(t, []string{events.TypeCategoryArchived, events.TypeCategoryRestored}, eventTypes(c))
}

func TestCategory_UpdateDetails(t *testing.T) {
	c := newCategory(t, 1, "Flowers", nil)
	c.MarkEventsAsCommitted()

	same, _ := valueobjects.NewCategoryName("Flowers")
	zero := 0
	assert.False(t, c.UpdateDetails(&same, &zero, t0))
	assert.Empty(t, c.GetUncommittedEvents())

	renamed, _ := valueobjects.NewCategoryName("Cut Flowers")
	order := 2
	require.True(t, c.UpdateDetails(&renamed, &order, t0.Add(time.Minute)))
	assert.Equal(t, "Cut Flowers", c.Name().String())
	assert.Equal(t, 2, c.DisplayOrder())
	assert.Equal(t, "flowers", c.Slug().String(), "rename keeps the slug")
	assert.Equal(t, t0.Add(time.Minute), c.UpdatedAt())
}

func TestCategory_ChangeSlug(t *testing.T) {
	c := newCategory(t, 1, "Flowers", nil)
	c.MarkEventsAsCommitted()

	same, _ := valueobjects.NewSlug("flowers")
	assert.False(t, c.ChangeSlug(same, t0))

	next, _ := valueobjects.NewSlug("cut-flowers")
	require.True(t, c.ChangeSlug(next, t0))
	assert.Equal(t, "cut-flowers", c.Slug().String())

	evt, ok := c.GetUncommittedEvents()[0].(events.CategorySlugChanged)
	require.True(t, ok)
	assert.Equal(t, "flowers", evt.OldSlug)
	assert.Equal(t, "cut-flowers", evt.NewSlug)
}

func TestCategory_StateRoundTrip(t *testing.T) {
	flowers := newCategory(t, 1, "Flowers", nil)
	roses := newCategory(t, 7, "Roses", flowers)
	roses.MarkArchived(t0, 0)
	roses.ApplyRowVersion(valueobjects.NewRowVersion("5"))

	back, err := ReconstructCategory(roses.State())
	require.NoError(t, err)
	assert.Equal(t, roses.State(), back.State())
	assert.Empty(t, back.GetUncommittedEvents())

	state := roses.State()
	state.Path = "1..7"
	_, err = ReconstructCategory(state)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidPath))
}

func TestCategory_HasParent(t *testing.T) {
	flowers := newCategory(t, 1, "Flowers", nil)
	roses := newCategory(t, 7, "Roses", flowers)

	assert.True(t, flowers.HasParent(nil))
	assert.False(t, roses.HasParent(nil))
	id := flowers.ID()
	assert.True(t, roses.HasParent(&id))
	other := roses.ID()
	assert.False(t, roses.HasParent(&other))
}

func TestSlugRegistration_OwnedBy(t *testing.T) {
	r := SlugRegistration{Slug: "roses", EntityType: valueobjects.EntityTypeCategory, EntityID: 7}
	assert.True(t, r.OwnedBy(valueobjects.EntityTypeCategory, 7))
	assert.False(t, r.OwnedBy(valueobjects.EntityTypeProduct, 7))
	assert.False(t, r.OwnedBy(valueobjects.EntityTypeCategory, 8))
}
