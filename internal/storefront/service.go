// Package storefront serves the product catalog and the seller listing
// operations behind it.
package storefront

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/johnrirwin/hamroeshop/internal/cache"
	"github.com/johnrirwin/hamroeshop/internal/catalog"
	"github.com/johnrirwin/hamroeshop/internal/logging"
	"github.com/johnrirwin/hamroeshop/internal/models"
	"github.com/johnrirwin/hamroeshop/internal/tagging"
)

// CollectionCacheKey holds the full product collection in the cache.
const CollectionCacheKey = "catalog:products"

var (
	// ErrNotFound is returned when a product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrForbidden is returned when the actor may not modify a product.
	ErrForbidden = errors.New("not allowed to modify this product")
)

// ServiceError is a validation failure reported to the caller as-is.
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// ProductStore persists products. Lookups return nil, nil when nothing matches.
type ProductStore interface {
	List(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Product, error)
	ListByCategory(ctx context.Context, category string) ([]models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	Delete(ctx context.Context, id string) error
}

// ImageUploader hosts listing images and returns their URLs in input order.
type ImageUploader interface {
	UploadAll(ctx context.Context, ownerID string, files []models.ImageUpload) ([]string, error)
}

// Option configures a Service.
type Option func(*Service)

// WithCache caches the product collection for ttl.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

// WithEngine replaces the default catalog engine.
func WithEngine(e *catalog.Engine) Option {
	return func(s *Service) { s.engine = e }
}

// WithTagger enables keyword tag inference on create.
func WithTagger(t *tagging.Tagger) Option {
	return func(s *Service) { s.tagger = t }
}

// WithImages sets the uploader used for listing images.
func WithImages(u ImageUploader) Option {
	return func(s *Service) { s.images = u }
}

// Service implements catalog reads and seller writes.
type Service struct {
	store    ProductStore
	engine   *catalog.Engine
	cache    cache.Cache
	cacheTTL time.Duration
	tagger   *tagging.Tagger
	images   ImageUploader
	logger   *logging.Logger
	now      func() time.Time

	// generation counts invalidations. A collection loaded under an older
	// generation is not cached.
	cacheMu    sync.Mutex
	generation uint64
}

// NewService creates a storefront service over store.
func NewService(store ProductStore, logger *logging.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		engine: catalog.NewEngine(nil),
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the catalog engine the service filters with.
func (s *Service) Engine() *catalog.Engine {
	return s.engine
}

// Products returns the whole collection, newest first, from the cache when
// possible.
func (s *Service) Products(ctx context.Context) ([]models.Product, error) {
	if products, ok := cache.GetJSON[[]models.Product](ctx, s.cache, CollectionCacheKey); ok {
		return products, nil
	}

	s.cacheMu.Lock()
	gen := s.generation
	s.cacheMu.Unlock()

	products, err := s.store.List(ctx)
	if err != nil {
		s.logger.Error("Failed to load products", logging.WithField("error", err.Error()))
		return nil, err
	}
	sortNewestFirst(products)

	s.storeCollection(ctx, gen, products)
	return products, nil
}

// storeCollection caches products unless a write invalidated the cache
// after they were loaded.
func (s *Service) storeCollection(ctx context.Context, gen uint64, products []models.Product) {
	if s.cache == nil {
		return
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if gen != s.generation {
		s.logger.Debug("Skipping cache fill after concurrent write")
		return
	}
	if err := cache.SetJSON(ctx, s.cache, CollectionCacheKey, products, s.cacheTTL); err != nil {
		s.logger.Warn("Failed to cache products", logging.WithField("error", err.Error()))
	}
}

// ListProducts returns up to limit products, newest first. limit <= 0 means all.
func (s *Service) ListProducts(ctx context.Context, limit int) ([]models.Product, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(products) {
		products = products[:limit]
	}
	return products, nil
}

// View runs the catalog engine over the full collection.
func (s *Service) View(ctx context.Context, filters catalog.FilterState) (*catalog.ViewResult, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.ComputeView(products, filters)
}

// DefaultFilters returns the initial filter state for the current collection.
func (s *Service) DefaultFilters(ctx context.Context, pageSize int) (catalog.FilterState, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return catalog.FilterState{}, err
	}
	return catalog.DefaultFilterState(products, pageSize), nil
}

// FilterMetadata returns the distinct categories and brands, the price
// bounds and the category-group counts of the collection.
func (s *Service) FilterMetadata(ctx context.Context) (*models.FilterMetadata, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}

	categories := make(map[string]bool)
	brands := make(map[string]bool)
	for i := range products {
		if c := strings.TrimSpace(products[i].Category); c != "" {
			categories[c] = true
		}
		if b := strings.TrimSpace(products[i].Brand); b != "" {
			brands[b] = true
		}
	}

	bounds := catalog.PriceBounds(products)
	groupCounts := make(map[string]int)
	for _, gc := range s.engine.GroupCounts(products) {
		groupCounts[gc.Slug] = gc.Count
	}

	return &models.FilterMetadata{
		Categories:  sortedKeys(categories),
		Brands:      sortedKeys(brands),
		MinPrice:    bounds.Min,
		MaxPrice:    bounds.Max,
		GroupCounts: groupCounts,
		TotalCount:  len(products),
	}, nil
}

// GroupCounts returns the member-product count of every category group.
func (s *Service) GroupCounts(ctx context.Context) ([]catalog.GroupCount, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.GroupCounts(products), nil
}

// GetProduct returns a product or ErrNotFound.
func (s *Service) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &ServiceError{Message: "product ID is required"}
	}

	p, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}

// GetProducts returns the products with the given IDs in one lookup.
func (s *Service) GetProducts(ctx context.Context, ids []string) ([]models.Product, error) {
	return s.store.GetByIDs(ctx, ids)
}

// ProductsByCategory returns products in category, newest first.
func (s *Service) ProductsByCategory(ctx context.Context, category string) ([]models.Product, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return nil, &ServiceError{Message: "category is required"}
	}
	products, err := s.store.ListByCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	sortNewestFirst(products)
	return products, nil
}

// CreateProduct validates and stores a new listing for sellerID, uploading
// its images first.
func (s *Service) CreateProduct(ctx context.Context, sellerID string, params models.CreateProductParams, files []models.ImageUpload) (*models.Product, error) {
	if err := validateCreate(params); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, &ServiceError{Message: "at least one image is required"}
	}
	if s.images == nil {
		return nil, &ServiceError{Message: "image uploads are not configured"}
	}

	urls, err := s.images.UploadAll(ctx, sellerID, files)
	if err != nil {
		s.logger.Warn("Product image upload failed", logging.WithFields(map[string]interface{}{
			"seller_id": sellerID,
			"error":     err.Error(),
		}))
		return nil, err
	}

	offer := params.OfferPrice
	p := &models.Product{
		SellerID:       sellerID,
		SellerName:     strings.TrimSpace(params.SellerName),
		Name:           strings.TrimSpace(params.Name),
		Description:    params.Description,
		Category:       strings.TrimSpace(params.Category),
		Brand:          defaultString(params.Brand, models.DefaultBrand),
		Color:          defaultString(params.Color, models.DefaultColor),
		Price:          params.Price,
		OfferPrice:     &offer,
		ShippingFee:    defaultFloat(params.ShippingFee, models.DefaultShippingFee),
		DeliveryCharge: defaultFloat(params.DeliveryCharge, models.DefaultDeliveryCharge),
		FreeShipping:   params.FreeShipping,
		Images:         urls,
		Stock:          params.Stock,
		Tags:           params.Tags,
		Attributes:     params.Attributes,
		CreatedAt:      s.now().UTC(),
	}
	if s.tagger != nil {
		p.Tags = tagging.Merge(p.Tags, s.tagger.InferTags(p.Name, p.Description))
	}

	if err := s.store.Create(ctx, p); err != nil {
		s.logger.Error("Failed to create product", logging.WithField("error", err.Error()))
		return nil, err
	}
	s.invalidate(ctx)

	s.logger.Info("Created product", logging.WithFields(map[string]interface{}{
		"id":        p.ID,
		"seller_id": sellerID,
		"images":    len(urls),
	}))
	return p, nil
}

// UpdateProduct applies a partial update. Only the owning seller or an
// admin may update.
func (s *Service) UpdateProduct(ctx context.Context, actorID string, role models.Role, id string, params models.UpdateProductParams) (*models.Product, error) {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !models.CanManage(actorID, role, p.SellerID) {
		return nil, ErrForbidden
	}

	params.Apply(p)
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	if err := s.store.Update(ctx, p); err != nil {
		s.logger.Error("Failed to update product", logging.WithFields(map[string]interface{}{
			"id":    id,
			"error": err.Error(),
		}))
		return nil, err
	}
	s.invalidate(ctx)

	s.logger.Info("Updated product", logging.WithField("id", id))
	return p, nil
}

// DeleteProduct removes a listing. Only the owning seller or an admin may delete.
func (s *Service) DeleteProduct(ctx context.Context, actorID string, role models.Role, id string) error {
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if !models.CanManage(actorID, role, p.SellerID) {
		return ErrForbidden
	}

	if err := s.store.Delete(ctx, id); err != nil {
		s.logger.Error("Failed to delete product", logging.WithFields(map[string]interface{}{
			"id":    id,
			"error": err.Error(),
		}))
		return err
	}
	s.invalidate(ctx)

	s.logger.Info("Deleted product", logging.WithField("id", id))
	return nil
}

// SetPopular marks or unmarks a product as featured. Admin only.
func (s *Service) SetPopular(ctx context.Context, role models.Role, id string, popular bool) (*models.Product, error) {
	if role != models.RoleAdmin {
		return nil, ErrForbidden
	}
	p, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	p.IsPopular = popular
	if err := s.store.Update(ctx, p); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return p, nil
}

// AddReview appends a review and recomputes the product rating as the mean
// of all review ratings.
func (s *Service) AddReview(ctx context.Context, productID string, review models.Review) (*models.Product, error) {
	if review.Rating < 1 || review.Rating > 5 {
		return nil, &ServiceError{Message: "rating must be between 1 and 5"}
	}
	if strings.TrimSpace(review.UserID) == "" {
		return nil, &ServiceError{Message: "reviewer is required"}
	}

	p, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	if review.CreatedAt.IsZero() {
		review.CreatedAt = s.now().UTC()
	}
	review.Comment = strings.TrimSpace(review.Comment)
	p.Reviews = append(p.Reviews, review)
	if avg, ok := p.AverageRating(); ok {
		p.Rating = &avg
	}

	if err := s.store.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save review: %w", err)
	}
	s.invalidate(ctx)
	return p, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.generation++
	s.cache.Delete(ctx, CollectionCacheKey)
}

func validateCreate(params models.CreateProductParams) error {
	var missing []string
	if strings.TrimSpace(params.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(params.Description) == "" {
		missing = append(missing, "description")
	}
	if strings.TrimSpace(params.Category) == "" {
		missing = append(missing, "category")
	}
	if params.Price <= 0 {
		missing = append(missing, "price")
	}
	if params.OfferPrice <= 0 {
		missing = append(missing, "offerPrice")
	}
	if strings.TrimSpace(params.SellerName) == "" {
		missing = append(missing, "sellerName")
	}
	if len(missing) > 0 {
		return &ServiceError{Message: "missing required fields: " + strings.Join(missing, ", ")}
	}

	if params.Stock < 0 {
		return &ServiceError{Message: "stock cannot be negative"}
	}
	if (params.ShippingFee != nil && *params.ShippingFee < 0) || (params.DeliveryCharge != nil && *params.DeliveryCharge < 0) {
		return &ServiceError{Message: "shipping fee and delivery charge cannot be negative"}
	}
	if attrs := models.MissingAttributes(params.Category, params.Attributes); len(attrs) > 0 {
		return &ServiceError{Message: fmt.Sprintf("%s required for %s category", strings.Join(attrs, ", "), params.Category)}
	}
	return nil
}

func validateProduct(p *models.Product) error {
	switch {
	case p.Name == "":
		return &ServiceError{Message: "name is required"}
	case p.Category == "":
		return &ServiceError{Message: "category is required"}
	case p.Price <= 0:
		return &ServiceError{Message: "price must be positive"}
	case p.OfferPrice != nil && *p.OfferPrice <= 0:
		return &ServiceError{Message: "offer price must be positive"}
	case p.Stock < 0:
		return &ServiceError{Message: "stock cannot be negative"}
	}
	return nil
}

func sortNewestFirst(products []models.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func defaultFloat(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

func defaultString(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}
