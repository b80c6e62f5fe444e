package valueobjects

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog/domain/config"
	"catalog/pkg/errors"
)

func TestNewSlug(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  string
	}{
		{"simple", "roses", ""},
		{"hyphenated", "garden-roses-2", ""},
		{"blank", "   ", errors.CodeEmptySlug},
		{"empty", "", errors.CodeEmptySlug},
		{"too long", strings.Repeat("a", 256), errors.CodeSlugTooLong},
		{"upper case", "Roses", errors.CodeInvalidSlugFormat},
		{"leading hyphen", "-roses", errors.CodeInvalidSlugFormat},
		{"double hyphen", "garden--roses", errors.CodeInvalidSlugFormat},
		{"underscore", "garden_roses", errors.CodeInvalidSlugFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSlug(tt.input)
			if tt.code == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.input, s.String())
				return
			}
			assert.True(t, errors.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestSlugFromName(t *testing.T) {
	cfg := config.DefaultDomainConfig()

	s, err := SlugFromName("  Garden Roses & Tulips ", cfg)
	require.NoError(t, err)
	assert.Equal(t, "garden-roses-tulips", s.String())

	cfg.MaxSlugLength = 8
	s, err = SlugFromName("garden roses", cfg)
	require.NoError(t, err)
	assert.Equal(t, "garden-r", s.String())

	cfg.MaxSlugLength = 7
	s, err = SlugFromName("garden roses", cfg)
	require.NoError(t, err)
	assert.Equal(t, "garden", s.String())

	_, err = SlugFromName("&&&", config.DefaultDomainConfig())
	assert.True(t, errors.HasCode(err, errors.CodeEmptySlug))
}

func TestSlug_JSON(t *testing.T) {
	var s Slug
	require.NoError(t, json.Unmarshal([]byte(`"roses"`), &s))
	assert.Equal(t, "roses", s.String())
	assert.Error(t, json.Unmarshal([]byte(`"Not A Slug"`), &s))
}

func TestHierarchicalPath_Parse(t *testing.T) {
	p, err := ParsePath("1.7.42")
	require.NoError(t, err)
	assert.Equal(t, 3, p.NLevel())
	assert.Equal(t, 2, p.Depth())
	assert.Equal(t, "42", p.Label())
	assert.Equal(t, []string{"1", "7", "42"}, p.Labels())

	for _, bad := range []string{"", "1..2", "1.a-b", ".1", "1."} {
		_, err := ParsePath(bad)
		assert.True(t, errors.HasCode(err, errors.CodeInvalidPath), bad)
	}
}

func TestHierarchicalPath_Relations(t *testing.T) {
	root := MustParsePath("1")
	child := MustParsePath("1.7")
	grandchild := MustParsePath("1.7.42")
	lookalike := MustParsePath("17.42")

	assert.True(t, grandchild.IsDescendantOf(root))
	assert.True(t, root.IsDescendantOf(root))
	assert.False(t, root.IsStrictDescendantOf(root))
	assert.True(t, grandchild.IsStrictDescendantOf(child))
	assert.False(t, lookalike.IsDescendantOf(root))
	assert.True(t, root.IsAncestorOf(grandchild))
	assert.False(t, child.IsDescendantOf(HierarchicalPath{}))

	parent, ok := grandchild.Parent()
	require.True(t, ok)
	assert.True(t, parent.Equals(child))
	_, ok = root.Parent()
	assert.False(t, ok)
}

func TestHierarchicalPath_ChildIsIndependent(t *testing.T) {
	base := MustParsePath("1.2")
	a, err := base.Child("3")
	require.NoError(t, err)
	b, err := base.Child("4")
	require.NoError(t, err)

	assert.Equal(t, "1.2.3", a.String())
	assert.Equal(t, "1.2.4", b.String())
	assert.Equal(t, "1.2", base.String())

	_, err = base.Child("x.y")
	assert.True(t, errors.HasCode(err, errors.CodeInvalidPath))
}

func TestHierarchicalPath_Rebase(t *testing.T) {
	p := MustParsePath("1.7.42.9")
	moved, err := p.Rebase(MustParsePath("1.7"), MustParsePath("3"))
	require.NoError(t, err)
	assert.Equal(t, "3.42.9", moved.String())

	self, err := MustParsePath("1.7").Rebase(MustParsePath("1.7"), MustParsePath("2.5.7"))
	require.NoError(t, err)
	assert.Equal(t, "2.5.7", self.String())

	_, err = p.Rebase(MustParsePath("2"), MustParsePath("3"))
	assert.True(t, errors.HasCode(err, errors.CodeInvalidPath))
}

func TestUnderParent(t *testing.T) {
	root, err := UnderParent(nil, "5")
	require.NoError(t, err)
	assert.Equal(t, "5", root.String())

	parent := MustParsePath("1.2")
	child, err := UnderParent(&parent, "5")
	require.NoError(t, err)
	assert.Equal(t, "1.2.5", child.String())
}

func TestHierarchicalPath_JSON(t *testing.T) {
	data, err := json.Marshal(MustParsePath("1.2"))
	require.NoError(t, err)
	assert.JSONEq(t, `"1.2"`, string(data))

	var p HierarchicalPath
	require.NoError(t, json.Unmarshal(data, &p))
	assert.Equal(t, "1.2", p.String())
}

func TestCategoryName(t *testing.T) {
	n, err := NewCategoryName("  Roses ")
	require.NoError(t, err)
	assert.Equal(t, "Roses", n.String())
	assert.Equal(t, "roses", n.Key())

	other, _ := NewCategoryName("ROSES")
	assert.True(t, n.Equals(other))

	_, err = NewCategoryName(" ")
	assert.True(t, errors.HasCode(err, errors.CodeInvalidCategoryName))

	_, err = NewCategoryName(strings.Repeat("é", 201))
	assert.True(t, errors.HasCode(err, errors.CodeInvalidCategoryName))
}

func TestCategoryIDAndVersion(t *testing.T) {
	id, err := NewCategoryID(42)
	require.NoError(t, err)
	assert.Equal(t, "42", id.Label())
	assert.Equal(t, int64(42), id.Int64())

	_, err = NewCategoryID(0)
	assert.True(t, errors.HasCode(err, errors.CodeInvalidCategoryID))

	v := NewRowVersion("3")
	assert.True(t, v.Matches("3"))
	assert.False(t, v.Matches("2"))
	assert.False(t, NewRowVersion("").Matches(""))

	assert.True(t, EntityTypeCategory.IsValid())
	assert.False(t, EntityType("Brand").IsValid())
}
