// Package catalog turns a fetched product collection and a FilterState into
// one rendered page of products with facet counts and pagination metadata.
// Nothing here performs I/O or mutates its inputs.
package catalog

import (
	"sort"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/johnrirwin/hamroeshop/internal/models"
)

// FacetCounts holds per-value counts for the sidebar checkboxes.
type FacetCounts struct {
	Categories map[string]int `json:"categories"`
	Brands     map[string]int `json:"brands"`
}

// ViewResult is one page of a filtered, sorted listing.
type ViewResult struct {
	PageItems   []models.Product `json:"pageItems"`
	TotalCount  int              `json:"totalCount"`
	TotalPages  int              `json:"totalPages"`
	CurrentPage int              `json:"currentPage"`
	HasNext     bool             `json:"hasNext"`
	HasPrev     bool             `json:"hasPrev"`
	FacetCounts FacetCounts      `json:"facetCounts"`
}

// Engine computes views against a fixed category-group table.
// An Engine holds no mutable state and may be shared between goroutines.
type Engine struct {
	groups []CategoryGroup
	locale language.Tag
}

// NewEngine creates an engine over groups. A nil table means DefaultGroups.
func NewEngine(groups []CategoryGroup) *Engine {
	if groups == nil {
		groups = DefaultGroups
	}
	return &Engine{groups: groups, locale: language.English}
}

var defaultEngine = NewEngine(nil)

// ComputeView runs the default engine.
func ComputeView(products []models.Product, filters FilterState) (*ViewResult, error) {
	return defaultEngine.ComputeView(products, filters)
}

// Groups returns the engine's category-group table.
func (e *Engine) Groups() []CategoryGroup {
	out := make([]CategoryGroup, len(e.groups))
	copy(out, e.groups)
	return out
}

// ResolveCategoryGroup finds the group whose slug equals slug.
func (e *Engine) ResolveCategoryGroup(slug string) (CategoryGroup, bool) {
	return findGroup(e.groups, slug)
}

// ResolveCategoryGroup looks slug up in DefaultGroups.
func ResolveCategoryGroup(slug string) (CategoryGroup, bool) {
	return findGroup(DefaultGroups, slug)
}

// GroupCounts returns how many products fall under each group.
func (e *Engine) GroupCounts(products []models.Product) []GroupCount {
	return groupCounts(e.groups, products)
}

// GroupCounts counts products per group of DefaultGroups.
func GroupCounts(products []models.Product) []GroupCount {
	return groupCounts(DefaultGroups, products)
}

type predicate func(p *models.Product) bool

// ComputeView filters, sorts and paginates products according to filters.
// products is never modified; PageItems is a fresh slice.
func (e *Engine) ComputeView(products []models.Product, filters FilterState) (*ViewResult, error) {
	if filters.PageSize <= 0 {
		return nil, &ConfigurationError{Field: "pageSize", Message: "must be positive"}
	}

	base := e.preFilter(products, filters)

	categoryPred := categoryFilter(filters.SelectedCategories)
	brandPred := brandFilter(filters.SelectedBrands)
	rest := []predicate{
		priceFilter(filters.PriceRange),
		ratingFilter(filters.SelectedRatings),
		stockFilter(filters.InStockOnly),
		shippingFilter(filters.FreeShippingOnly),
		searchFilter(filters.SearchQuery),
	}

	all := append([]predicate{categoryPred, brandPred}, rest...)
	filtered := applyFilters(base, all)
	e.sortProducts(filtered, filters.SortKey)

	result := paginate(filtered, filters.Page, filters.PageSize)

	switch filters.FacetMode {
	case FacetModeExcludeSelf:
		result.FacetCounts = facetCountsExcludeSelf(base, categoryPred, brandPred, rest)
	default:
		result.FacetCounts = facetCounts(base, base, base)
	}

	return result, nil
}

// preFilter applies the URL category and group restrictions. Both hold
// when both are present; an unknown group slug restricts nothing.
func (e *Engine) preFilter(products []models.Product, filters FilterState) []models.Product {
	var preds []predicate

	if filters.CategoryGroup != "" {
		if group, ok := e.ResolveCategoryGroup(filters.CategoryGroup); ok {
			preds = append(preds, func(p *models.Product) bool {
				return group.Contains(p.Category)
			})
		}
	}

	if len(filters.URLCategories) > 0 {
		wanted := filters.URLCategories
		preds = append(preds, func(p *models.Product) bool {
			for _, c := range wanted {
				if strings.EqualFold(p.Category, c) {
					return true
				}
			}
			return false
		})
	}

	return applyFilters(products, preds)
}

func applyFilters(products []models.Product, preds []predicate) []models.Product {
	out := make([]models.Product, 0, len(products))
	for i := range products {
		if matchesAll(&products[i], preds) {
			out = append(out, products[i])
		}
	}
	return out
}

func matchesAll(p *models.Product, preds []predicate) bool {
	for _, pred := range preds {
		if pred != nil && !pred(p) {
			return false
		}
	}
	return true
}

func categoryFilter(selected []string) predicate {
	if len(selected) == 0 {
		return nil
	}
	lowered := lowerAll(selected)
	return func(p *models.Product) bool {
		category := strings.ToLower(p.Category)
		for _, s := range lowered {
			if strings.Contains(category, s) {
				return true
			}
		}
		return false
	}
}

func brandFilter(selected []string) predicate {
	if len(selected) == 0 {
		return nil
	}
	return func(p *models.Product) bool {
		for _, b := range selected {
			if p.Brand == b {
				return true
			}
		}
		return false
	}
}

func priceFilter(r PriceRange) predicate {
	return func(p *models.Product) bool {
		price := p.EffectivePrice()
		return price >= r.Min && price <= r.Max
	}
}

func ratingFilter(thresholds []int) predicate {
	if len(thresholds) == 0 {
		return nil
	}
	return func(p *models.Product) bool {
		if p.Rating == nil {
			return false
		}
		for _, t := range thresholds {
			if *p.Rating >= float64(t) {
				return true
			}
		}
		return false
	}
}

func stockFilter(on bool) predicate {
	if !on {
		return nil
	}
	return func(p *models.Product) bool { return p.Stock > 0 }
}

func shippingFilter(on bool) predicate {
	if !on {
		return nil
	}
	return func(p *models.Product) bool { return p.FreeShipping }
}

func searchFilter(query string) predicate {
	if query == "" {
		return nil
	}
	q := strings.ToLower(query)
	return func(p *models.Product) bool {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Description), q) ||
			strings.Contains(strings.ToLower(p.Category), q) ||
			strings.Contains(strings.ToLower(p.Brand), q) {
			return true
		}
		for _, tag := range p.Tags {
			if strings.Contains(strings.ToLower(tag), q) {
				return true
			}
		}
		return false
	}
}

var epoch = time.Unix(0, 0)

func createdAt(p *models.Product) time.Time {
	if p.CreatedAt.IsZero() {
		return epoch
	}
	return p.CreatedAt
}

func ratingOrZero(p *models.Product) float64 {
	if p.Rating == nil {
		return 0
	}
	return *p.Rating
}

// sortProducts orders items in place. Equal keys keep their input order.
func (e *Engine) sortProducts(items []models.Product, key SortKey) {
	var less func(a, b *models.Product) bool

	switch key {
	case SortPriceLow:
		less = func(a, b *models.Product) bool { return a.EffectivePrice() < b.EffectivePrice() }
	case SortPriceHigh:
		less = func(a, b *models.Product) bool { return a.EffectivePrice() > b.EffectivePrice() }
	case SortRating:
		less = func(a, b *models.Product) bool { return ratingOrZero(a) > ratingOrZero(b) }
	case SortPopular:
		less = func(a, b *models.Product) bool { return a.SoldCount > b.SoldCount }
	case SortName:
		// Collators keep internal buffers, so each call gets its own.
		col := collate.New(e.locale)
		less = func(a, b *models.Product) bool { return col.CompareString(a.Name, b.Name) < 0 }
	case SortDiscount:
		less = func(a, b *models.Product) bool { return a.DiscountPercent() > b.DiscountPercent() }
	default:
		less = func(a, b *models.Product) bool { return createdAt(a).After(createdAt(b)) }
	}

	sort.SliceStable(items, func(i, j int) bool {
		return less(&items[i], &items[j])
	})
}

func paginate(filtered []models.Product, page, pageSize int) *ViewResult {
	total := len(filtered)
	totalPages := total / pageSize
	if total%pageSize != 0 {
		totalPages++
	}

	maxPage := totalPages
	if maxPage < 1 {
		maxPage = 1
	}
	if page < 1 {
		page = 1
	}
	if page > maxPage {
		page = maxPage
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	pageItems := make([]models.Product, end-start)
	copy(pageItems, filtered[start:end])

	return &ViewResult{
		PageItems:   pageItems,
		TotalCount:  total,
		TotalPages:  totalPages,
		CurrentPage: page,
		HasNext:     page < totalPages,
		HasPrev:     page > 1,
	}
}

// facetCounts seeds every category and brand present in base with zero and
// counts categories over catSet and brands over brandSet.
func facetCounts(base, catSet, brandSet []models.Product) FacetCounts {
	counts := FacetCounts{
		Categories: make(map[string]int),
		Brands:     make(map[string]int),
	}

	for i := range base {
		if c := base[i].Category; c != "" {
			counts.Categories[c] += 0
		}
		if b := base[i].Brand; b != "" {
			counts.Brands[b] += 0
		}
	}
	for i := range catSet {
		if c := catSet[i].Category; c != "" {
			counts.Categories[c]++
		}
	}
	for i := range brandSet {
		if b := brandSet[i].Brand; b != "" {
			counts.Brands[b]++
		}
	}
	return counts
}

func facetCountsExcludeSelf(base []models.Product, categoryPred, brandPred predicate, rest []predicate) FacetCounts {
	withoutCategory := applyFilters(base, append([]predicate{brandPred}, rest...))
	withoutBrand := applyFilters(base, append([]predicate{categoryPred}, rest...))
	return facetCounts(base, withoutCategory, withoutBrand)
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
