package catalog

import (
	"math"
	"strings"

	"github.com/johnrirwin/hamroeshop/internal/models"
)

// SortKey selects the ordering of a view.
type SortKey string

const (
	SortNewest    SortKey = "newest"
	SortPriceLow  SortKey = "price-low"
	SortPriceHigh SortKey = "price-high"
	SortRating    SortKey = "rating"
	SortPopular   SortKey = "popular"
	SortName      SortKey = "name"
	SortDiscount  SortKey = "discount"
)

// ValidSortKeys returns every supported sort key.
func ValidSortKeys() []SortKey {
	return []SortKey{SortNewest, SortPriceLow, SortPriceHigh, SortRating, SortPopular, SortName, SortDiscount}
}

// IsValid reports whether k is a supported sort key.
func (k SortKey) IsValid() bool {
	for _, valid := range ValidSortKeys() {
		if k == valid {
			return true
		}
	}
	return false
}

// FacetMode decides which collection facet counts are computed over.
type FacetMode string

const (
	// FacetModeUnfiltered counts over the URL pre-filtered collection and
	// ignores every sidebar filter.
	FacetModeUnfiltered FacetMode = "unfiltered"
	// FacetModeExcludeSelf counts each facet under every active filter
	// except its own.
	FacetModeExcludeSelf FacetMode = "exclude-self"
)

// ParseFacetMode maps a query or config value to a FacetMode. Anything
// unrecognised means FacetModeUnfiltered.
func ParseFacetMode(s string) FacetMode {
	if FacetMode(strings.ToLower(strings.TrimSpace(s))) == FacetModeExcludeSelf {
		return FacetModeExcludeSelf
	}
	return FacetModeUnfiltered
}

// Viewport classes and their page sizes.
const (
	ViewportMobile  = "mobile"
	ViewportTablet  = "tablet"
	ViewportDesktop = "desktop"
)

// PageSizeForViewport maps a viewport class to its page size. Unknown
// classes get the desktop size.
func PageSizeForViewport(class string) int {
	switch strings.ToLower(strings.TrimSpace(class)) {
	case ViewportMobile:
		return 12
	case ViewportTablet:
		return 16
	default:
		return 20
	}
}

// PriceRange is an inclusive bound on effective price.
type PriceRange struct {
	Min float64 `json:"min" yaml:"min"`
	Max float64 `json:"max" yaml:"max"`
}

// FilterState is every user-selected input to a view. It is a value: the
// With helpers return a new state and leave the receiver untouched.
type FilterState struct {
	// URL-derived pre-filter.
	URLCategories []string `json:"urlCategories,omitempty"`
	CategoryGroup string   `json:"categoryGroup,omitempty"`

	PriceRange         PriceRange `json:"priceRange"`
	SelectedCategories []string   `json:"selectedCategories,omitempty"`
	SelectedBrands     []string   `json:"selectedBrands,omitempty"`
	SelectedRatings    []int      `json:"selectedRatings,omitempty"`
	InStockOnly        bool       `json:"inStockOnly"`
	FreeShippingOnly   bool       `json:"freeShippingOnly"`
	SearchQuery        string     `json:"searchQuery,omitempty"`

	SortKey   SortKey   `json:"sortKey"`
	Page      int       `json:"page"`
	PageSize  int       `json:"pageSize"`
	FacetMode FacetMode `json:"facetMode,omitempty"`
}

// PriceBounds returns the lowest and highest of every list and effective
// price in products. An empty collection yields {0, 0}.
func PriceBounds(products []models.Product) PriceRange {
	if len(products) == 0 {
		return PriceRange{}
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range products {
		for _, v := range []float64{products[i].Price, products[i].EffectivePrice()} {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	return PriceRange{Min: lo, Max: hi}
}

// DefaultFilterState is the state a fresh listing starts from: full price
// range, no sidebar restrictions, newest first, page 1.
func DefaultFilterState(products []models.Product, pageSize int) FilterState {
	return FilterState{
		PriceRange: PriceBounds(products),
		SortKey:    SortNewest,
		Page:       1,
		PageSize:   pageSize,
		FacetMode:  FacetModeUnfiltered,
	}
}

// Clear resets the sidebar filters and the page. URL-derived categories,
// search, sort, page size and facet mode survive.
func (f FilterState) Clear(products []models.Product) FilterState {
	return FilterState{
		URLCategories: cloneStrings(f.URLCategories),
		CategoryGroup: f.CategoryGroup,
		PriceRange:    PriceBounds(products),
		SearchQuery:   f.SearchQuery,
		SortKey:       f.SortKey,
		Page:          1,
		PageSize:      f.PageSize,
		FacetMode:     f.FacetMode,
	}
}

// WithPage returns a copy on the given page. Page navigation is the only
// change that keeps the rest of the state as-is.
func (f FilterState) WithPage(page int) FilterState {
	next := f.clone()
	next.Page = page
	return next
}

func (f FilterState) WithPriceRange(r PriceRange) FilterState {
	next := f.clone()
	next.PriceRange = r
	next.Page = 1
	return next
}

// WithCategoryToggled adds category to the sidebar selection, or removes it
// when already selected.
func (f FilterState) WithCategoryToggled(category string) FilterState {
	next := f.clone()
	next.SelectedCategories = toggleString(next.SelectedCategories, category)
	next.Page = 1
	return next
}

func (f FilterState) WithBrandToggled(brand string) FilterState {
	next := f.clone()
	next.SelectedBrands = toggleString(next.SelectedBrands, brand)
	next.Page = 1
	return next
}

func (f FilterState) WithRatingToggled(threshold int) FilterState {
	next := f.clone()
	out := make([]int, 0, len(next.SelectedRatings)+1)
	found := false
	for _, r := range next.SelectedRatings {
		if r == threshold {
			found = true
			continue
		}
		out = append(out, r)
	}
	if !found {
		out = append(out, threshold)
	}
	next.SelectedRatings = out
	next.Page = 1
	return next
}

func (f FilterState) WithInStockOnly(on bool) FilterState {
	next := f.clone()
	next.InStockOnly = on
	next.Page = 1
	return next
}

func (f FilterState) WithFreeShippingOnly(on bool) FilterState {
	next := f.clone()
	next.FreeShippingOnly = on
	next.Page = 1
	return next
}

func (f FilterState) WithSearch(query string) FilterState {
	next := f.clone()
	next.SearchQuery = query
	next.Page = 1
	return next
}

func (f FilterState) WithSort(key SortKey) FilterState {
	next := f.clone()
	next.SortKey = key
	next.Page = 1
	return next
}

func (f FilterState) WithPageSize(size int) FilterState {
	next := f.clone()
	next.PageSize = size
	next.Page = 1
	return next
}

func (f FilterState) clone() FilterState {
	next := f
	next.URLCategories = cloneStrings(f.URLCategories)
	next.SelectedCategories = cloneStrings(f.SelectedCategories)
	next.SelectedBrands = cloneStrings(f.SelectedBrands)
	if f.SelectedRatings != nil {
		next.SelectedRatings = append([]int(nil), f.SelectedRatings...)
	}
	return next
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func toggleString(in []string, v string) []string {
	out := make([]string, 0, len(in)+1)
	found := false
	for _, s := range in {
		if s == v {
			found = true
			continue
		}
		out = append(out, s)
	}
	if !found {
		out = append(out, v)
	}
	return out
}
