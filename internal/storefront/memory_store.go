package storefront

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/johnrirwin/hamroeshop/internal/models"
)

// MemoryStore is a ProductStore kept in process, used when no database is
// reachable and in tests.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]models.Product
}

// NewMemoryStore creates a store seeded with products. Seeds without an ID
// get one.
func NewMemoryStore(seed ...models.Product) *MemoryStore {
	s := &MemoryStore{products: make(map[string]models.Product, len(seed))}
	for _, p := range seed {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		s.products[p.ID] = cloneProduct(p)
	}
	return s
}

func (s *MemoryStore) List(_ context.Context) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, cloneProduct(p))
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) GetByID(_ context.Context, id string) (*models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, nil
	}
	c := cloneProduct(p)
	return &c, nil
}

func (s *MemoryStore) GetByIDs(_ context.Context, ids []string) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Product, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		p, ok := s.products[id]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, cloneProduct(p))
	}
	return out, nil
}

func (s *MemoryStore) ListByCategory(_ context.Context, category string) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Product, 0)
	for _, p := range s.products {
		if strings.EqualFold(p.Category, category) {
			out = append(out, cloneProduct(p))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) Create(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.ID = uuid.NewString()
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	s.products[p.ID] = cloneProduct(*p)
	return nil
}

func (s *MemoryStore) Update(_ context.Context, p *models.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[p.ID]; !ok {
		return fmt.Errorf("product %s not found", p.ID)
	}
	p.UpdatedAt = time.Now().UTC()
	s.products[p.ID] = cloneProduct(*p)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.products, id)
	return nil
}

func cloneProduct(p models.Product) models.Product {
	c := p
	if p.OfferPrice != nil {
		v := *p.OfferPrice
		c.OfferPrice = &v
	}
	if p.Rating != nil {
		v := *p.Rating
		c.Rating = &v
	}
	c.Images = append([]string(nil), p.Images...)
	c.Tags = append([]string(nil), p.Tags...)
	c.Reviews = append([]models.Review(nil), p.Reviews...)
	if p.Attributes != nil {
		c.Attributes = make(map[string]string, len(p.Attributes))
		for k, v := range p.Attributes {
			c.Attributes[k] = v
		}
	}
	return c
}

var _ ProductStore = (*MemoryStore)(nil)
