package blog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/johnrirwin/hamroeshop/internal/models"
)

// MemoryStore keeps posts in process, keyed by slug.
type MemoryStore struct {
	mu    sync.RWMutex
	posts map[string]models.BlogPost
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{posts: make(map[string]models.BlogPost)}
}

func (s *MemoryStore) Create(_ context.Context, post *models.BlogPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[post.Slug]; ok {
		return fmt.Errorf("slug %q already exists", post.Slug)
	}
	post.ID = uuid.NewString()
	post.CreatedAt = time.Now().UTC()
	post.UpdatedAt = post.CreatedAt
	s.posts[post.Slug] = clonePost(*post)
	return nil
}

func (s *MemoryStore) GetBySlug(_ context.Context, slug string) (*models.BlogPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[slug]
	if !ok {
		return nil, nil
	}
	c := clonePost(post)
	return &c, nil
}

func (s *MemoryStore) SlugExists(_ context.Context, slug string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.posts[slug]
	return ok, nil
}

func (s *MemoryStore) IncrementViews(_ context.Context, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[slug]
	if !ok {
		return nil
	}
	post.Views++
	s.posts[slug] = post
	return nil
}

func (s *MemoryStore) Update(_ context.Context, post *models.BlogPost) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[post.Slug]; !ok {
		return fmt.Errorf("blog post %s not found", post.Slug)
	}
	post.UpdatedAt = time.Now().UTC()
	s.posts[post.Slug] = clonePost(*post)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, slug string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.posts, slug)
	return nil
}

func (s *MemoryStore) List(_ context.Context, params models.BlogListParams) ([]models.BlogPost, int, error) {
	s.mu.RLock()
	matched := make([]models.BlogPost, 0, len(s.posts))
	for _, post := range s.posts {
		if params.PublishedOnly && post.Status != models.BlogStatusPublished {
			continue
		}
		if params.Category != "" && !strings.EqualFold(post.Category, params.Category) {
			continue
		}
		matched = append(matched, clonePost(post))
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		return publishedAfter(matched[i], matched[j])
	})

	total := len(matched)
	start := (params.Page - 1) * params.Limit
	if start >= total {
		return []models.BlogPost{}, total, nil
	}
	end := start + params.Limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (s *MemoryStore) ListBySeller(_ context.Context, sellerID string) ([]models.BlogPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.BlogPost, 0)
	for _, post := range s.posts {
		if post.SellerID == sellerID {
			out = append(out, clonePost(post))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) CategoryCounts(_ context.Context) ([]models.CategoryCount, error) {
	s.mu.RLock()
	counts := make(map[string]int)
	for _, post := range s.posts {
		if post.Status == models.BlogStatusPublished {
			counts[post.Category]++
		}
	}
	s.mu.RUnlock()

	out := make([]models.CategoryCount, 0, len(counts))
	for category, n := range counts {
		out = append(out, models.CategoryCount{Category: category, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

// publishedAfter orders by publish date descending with unpublished posts
// last, then by creation date descending.
func publishedAfter(a, b models.BlogPost) bool {
	switch {
	case a.PublishedAt != nil && b.PublishedAt != nil && !a.PublishedAt.Equal(*b.PublishedAt):
		return a.PublishedAt.After(*b.PublishedAt)
	case a.PublishedAt != nil && b.PublishedAt == nil:
		return true
	case a.PublishedAt == nil && b.PublishedAt != nil:
		return false
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func clonePost(p models.BlogPost) models.BlogPost {
	c := p
	c.Tags = append([]string(nil), p.Tags...)
	if p.PublishedAt != nil {
		t := *p.PublishedAt
		c.PublishedAt = &t
	}
	return c
}

var _ Store = (*MemoryStore)(nil)
