package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnrirwin/hamroeshop/internal/models"
)

func TestCategorySlug(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"Technology & Electronics", "technology-electronics"},
		{"Fashion & Accessories", "fashion-accessories"},
		{"Men's Fashion", "men-s-fashion"},
		{"  Kids & Family  ", "kids-family"},
		{"Soaps, Cleansers & Bodywash", "soaps-cleansers-bodywash"},
		{"---", ""},
		{"Café 24/7", "caf-24-7"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, CategorySlug(tt.label))
		})
	}
}

func TestDefaultGroups(t *testing.T) {
	require.Len(t, DefaultGroups, 6)

	seen := make(map[string]bool)
	for _, g := range DefaultGroups {
		assert.NotEmpty(t, g.Icon, g.Label)
		assert.GreaterOrEqual(t, len(g.Members), 1, g.Label)
		assert.LessOrEqual(t, len(g.Members), 8, g.Label)
		assert.False(t, seen[g.Slug()], "duplicate slug %s", g.Slug())
		seen[g.Slug()] = true
	}
}

func TestResolveCategoryGroup(t *testing.T) {
	g, ok := ResolveCategoryGroup("kids-family")
	require.True(t, ok)
	assert.Equal(t, "Kids & Family", g.Label)
	assert.True(t, g.Contains("nursery"))

	g, ok = ResolveCategoryGroup("KIDS-FAMILY")
	require.True(t, ok)
	assert.Equal(t, "Kids & Family", g.Label)

	_, ok = ResolveCategoryGroup("unknown")
	assert.False(t, ok)
}

func TestGroupCounts(t *testing.T) {
	products := []models.Product{
		{Category: "Nursery"},
		{Category: "feeding"},
		{Category: "Vapes & Drinks"},
		{Category: "Unlisted"},
	}

	counts := GroupCounts(products)
	require.Len(t, counts, len(DefaultGroups))

	bySlug := make(map[string]int)
	for _, c := range counts {
		bySlug[c.Slug] = c.Count
	}
	assert.Equal(t, 2, bySlug["kids-family"])
	assert.Equal(t, 1, bySlug["sports-outdoor"])
	assert.Equal(t, 0, bySlug["health-beauty"])
}

func TestLoadGroups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "groups.yaml")
	content := `
- label: Festival Deals
  icon: "🎉"
  members: [Gifts & Decorations, Groceries & Pets]
- label: Gadgets
  members:
    - Gaming Accessories
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	groups, err := LoadGroups(path)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "festival-deals", groups[0].Slug())
	assert.Equal(t, []string{"Gaming Accessories"}, groups[1].Members)
}

func TestParseGroups_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no members", "- label: Empty\n"},
		{"no label", "- label: '&&'\n  members: [A]\n"},
		{"duplicate", "- label: A B\n  members: [x]\n- label: a-b\n  members: [y]\n"},
		{"not yaml list", "label: x\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGroups([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadGroups_MissingFile(t *testing.T) {
	_, err := LoadGroups(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
