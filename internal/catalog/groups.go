package catalog

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"

	"github.com/johnrirwin/hamroeshop/internal/models"
)

// CategoryGroup is a curated umbrella over several catalog categories.
type CategoryGroup struct {
	Label   string   `json:"label" yaml:"label"`
	Icon    string   `json:"icon" yaml:"icon"`
	Members []string `json:"members" yaml:"members"`
}

// Slug returns the URL form of the group label.
func (g CategoryGroup) Slug() string {
	return CategorySlug(g.Label)
}

// Contains reports whether category is one of the group's members (case-insensitive).
func (g CategoryGroup) Contains(category string) bool {
	for _, m := range g.Members {
		if strings.EqualFold(m, category) {
			return true
		}
	}
	return false
}

// DefaultGroups is the storefront's "popular categories" table.
var DefaultGroups = []CategoryGroup{
	{
		Label:   "Technology & Electronics",
		Icon:    "💻",
		Members: []string{"Electronic & Accessories", "Mobiles & Laptops", "Gaming Accessories"},
	},
	{
		Label:   "Fashion & Accessories",
		Icon:    "👗",
		Members: []string{"Men's Fashion", "Women's Fashion", "Watches & Accessories", "Clothing Accessories"},
	},
	{
		Label:   "Home & Lifestyle",
		Icon:    "🏠",
		Members: []string{"Home & Lifestyle", "Gifts & Decorations"},
	},
	{
		Label:   "Health & Beauty",
		Icon:    "💄",
		Members: []string{"Health & Beauty", "Cosmetics & Skin Care", "Soaps, Cleansers & Bodywash"},
	},
	{
		Label: "Kids & Family",
		Icon:  "🧸",
		Members: []string{
			"Babies & Toys", "Toys & Games", "Nursery", "Diapering & Potty",
			"Pacifiers & Accessories", "Feeding", "Remote Control & Vehicles", "Bathing Tubs & Seats",
		},
	},
	{
		Label: "Sports & Outdoor",
		Icon:  "⚽",
		Members: []string{
			"Sports & Outdoor", "Sports & Outdoor Play", "Exercise & Fitness",
			"Motors, Tools & DIY", "Groceries & Pets", "Vapes & Drinks",
		},
	},
}

// CategorySlug lowercases label, turns every run of non-alphanumeric
// characters into one hyphen and trims hyphens from both ends.
func CategorySlug(label string) string {
	var b strings.Builder
	b.Grow(len(label))

	pendingHyphen := false
	for _, r := range strings.ToLower(label) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
			continue
		}
		pendingHyphen = true
	}
	return b.String()
}

// GroupCount is a group together with the number of products it covers.
type GroupCount struct {
	CategoryGroup
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

// LoadGroups reads a YAML list of groups:
//
//	- label: Technology & Electronics
//	  icon: "💻"
//	  members: [Electronic & Accessories, Mobiles & Laptops]
func LoadGroups(path string) ([]CategoryGroup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read category groups: %w", err)
	}
	return ParseGroups(data)
}

// ParseGroups decodes and validates a YAML group list.
func ParseGroups(data []byte) ([]CategoryGroup, error) {
	var groups []CategoryGroup
	if err := yaml.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("failed to parse category groups: %w", err)
	}

	seen := make(map[string]bool, len(groups))
	for i, g := range groups {
		slug := g.Slug()
		if slug == "" {
			return nil, &ConfigurationError{Field: fmt.Sprintf("groups[%d].label", i), Message: "label must contain letters or digits"}
		}
		if len(g.Members) == 0 {
			return nil, &ConfigurationError{Field: fmt.Sprintf("groups[%d].members", i), Message: "group needs at least one member category"}
		}
		if seen[slug] {
			return nil, &ConfigurationError{Field: fmt.Sprintf("groups[%d].label", i), Message: "duplicate group slug " + slug}
		}
		seen[slug] = true
	}
	return groups, nil
}

func groupCounts(groups []CategoryGroup, products []models.Product) []GroupCount {
	out := make([]GroupCount, 0, len(groups))
	for _, g := range groups {
		count := 0
		for i := range products {
			if g.Contains(products[i].Category) {
				count++
			}
		}
		out = append(out, GroupCount{CategoryGroup: g, Slug: g.Slug(), Count: count})
	}
	return out
}

func findGroup(groups []CategoryGroup, slug string) (CategoryGroup, bool) {
	for _, g := range groups {
		if strings.EqualFold(g.Slug(), slug) {
			return g, true
		}
	}
	return CategoryGroup{}, false
}
