// Package blog manages seller-authored posts.
package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/johnrirwin/hamroeshop/internal/logging"
	"github.com/johnrirwin/hamroeshop/internal/models"
	"github.com/johnrirwin/hamroeshop/internal/slug"
)

const (
	excerptLength = 100
	defaultLimit  = 10
	maxLimit      = 100
	feedTimeout   = 15 * time.Second
)

var (
	// ErrNotFound is returned when no post has the requested slug.
	ErrNotFound = errors.New("blog post not found")
	// ErrForbidden is returned when the actor may not modify a post.
	ErrForbidden = errors.New("not allowed to modify this post")
)

// ServiceError is a validation failure reported to the caller as-is.
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// Store persists posts. GetBySlug returns nil, nil when nothing matches.
type Store interface {
	Create(ctx context.Context, post *models.BlogPost) error
	GetBySlug(ctx context.Context, slug string) (*models.BlogPost, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	IncrementViews(ctx context.Context, slug string) error
	Update(ctx context.Context, post *models.BlogPost) error
	Delete(ctx context.Context, slug string) error
	List(ctx context.Context, params models.BlogListParams) ([]models.BlogPost, int, error)
	ListBySeller(ctx context.Context, sellerID string) ([]models.BlogPost, error)
	CategoryCounts(ctx context.Context) ([]models.CategoryCount, error)
}

// Service implements blog operations.
type Service struct {
	store  Store
	slugs  *slug.Allocator
	parser *gofeed.Parser
	logger *logging.Logger
	now    func() time.Time
}

// NewService creates a blog service. Slugs are probed against store.
func NewService(store Store, logger *logging.Logger, opts ...slug.Option) *Service {
	return &Service{
		store:  store,
		slugs:  slug.NewAllocator(store.SlugExists, opts...),
		parser: gofeed.NewParser(),
		logger: logger,
		now:    time.Now,
	}
}

// Create stores a new post for sellerID with a unique slug.
func (s *Service) Create(ctx context.Context, sellerID string, params models.CreateBlogParams) (*models.BlogPost, error) {
	params.Title = strings.TrimSpace(params.Title)
	if params.Title == "" {
		return nil, &ServiceError{Message: "title is required"}
	}
	if strings.TrimSpace(params.Content) == "" {
		return nil, &ServiceError{Message: "content is required"}
	}
	if params.Status == "" {
		params.Status = models.BlogStatusDraft
	}
	if !params.Status.IsValid() {
		return nil, &ServiceError{Message: "invalid status: " + string(params.Status)}
	}

	source := params.Slug
	if strings.TrimSpace(source) == "" {
		source = params.Title
	}
	postSlug, err := s.slugs.Allocate(ctx, source)
	if err != nil {
		s.logger.Error("Failed to allocate blog slug", logging.WithFields(map[string]interface{}{
			"title": params.Title,
			"error": err.Error(),
		}))
		return nil, err
	}

	excerpt := strings.TrimSpace(params.Excerpt)
	if excerpt == "" {
		excerpt = Excerpt(params.Content)
	}

	post := &models.BlogPost{
		SellerID:    sellerID,
		Title:       params.Title,
		Slug:        postSlug,
		Content:     params.Content,
		Excerpt:     excerpt,
		Category:    defaultCategory(params.Category),
		Tags:        params.Tags,
		CoverImage:  params.CoverImage,
		Author:      params.Author,
		Status:      params.Status,
		SourceURL:   params.SourceURL,
		PublishedAt: params.PublishedAt,
	}
	if post.Status == models.BlogStatusPublished && post.PublishedAt == nil {
		now := s.now().UTC()
		post.PublishedAt = &now
	}

	if err := s.store.Create(ctx, post); err != nil {
		s.logger.Error("Failed to create blog post", logging.WithField("error", err.Error()))
		return nil, err
	}

	s.logger.Info("Created blog post", logging.WithFields(map[string]interface{}{
		"slug":      post.Slug,
		"seller_id": sellerID,
	}))
	return post, nil
}

// GetBySlug returns a post and counts the view.
func (s *Service) GetBySlug(ctx context.Context, postSlug string) (*models.BlogPost, error) {
	post, err := s.store.GetBySlug(ctx, postSlug)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrNotFound
	}

	if err := s.store.IncrementViews(ctx, postSlug); err != nil {
		s.logger.Warn("Failed to count blog view", logging.WithFields(map[string]interface{}{
			"slug":  postSlug,
			"error": err.Error(),
		}))
		return post, nil
	}
	post.Views++
	return post, nil
}

// Update applies a partial update. Only the author or an admin may update.
func (s *Service) Update(ctx context.Context, actorID string, role models.Role, postSlug string, params models.UpdateBlogParams) (*models.BlogPost, error) {
	post, err := s.owned(ctx, actorID, role, postSlug)
	if err != nil {
		return nil, err
	}

	if params.Title != nil {
		title := strings.TrimSpace(*params.Title)
		if title == "" {
			return nil, &ServiceError{Message: "title cannot be empty"}
		}
		post.Title = title
	}
	if params.Content != nil {
		if strings.TrimSpace(*params.Content) == "" {
			return nil, &ServiceError{Message: "content cannot be empty"}
		}
		post.Content = *params.Content
		if params.Excerpt == nil {
			post.Excerpt = Excerpt(post.Content)
		}
	}
	if params.Excerpt != nil {
		post.Excerpt = strings.TrimSpace(*params.Excerpt)
	}
	if params.Category != nil {
		post.Category = defaultCategory(*params.Category)
	}
	if params.Tags != nil {
		post.Tags = params.Tags
	}
	if params.CoverImage != nil {
		post.CoverImage = *params.CoverImage
	}
	if params.Status != nil {
		if !params.Status.IsValid() {
			return nil, &ServiceError{Message: "invalid status: " + string(*params.Status)}
		}
		post.Status = *params.Status
		if post.Status == models.BlogStatusPublished && post.PublishedAt == nil {
			now := s.now().UTC()
			post.PublishedAt = &now
		}
	}

	if err := s.store.Update(ctx, post); err != nil {
		s.logger.Error("Failed to update blog post", logging.WithFields(map[string]interface{}{
			"slug":  postSlug,
			"error": err.Error(),
		}))
		return nil, err
	}
	return post, nil
}

// Delete removes a post. Only the author or an admin may delete.
func (s *Service) Delete(ctx context.Context, actorID string, role models.Role, postSlug string) error {
	if _, err := s.owned(ctx, actorID, role, postSlug); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, postSlug); err != nil {
		return err
	}
	s.logger.Info("Deleted blog post", logging.WithField("slug", postSlug))
	return nil
}

// List returns one page of posts, newest publication first.
func (s *Service) List(ctx context.Context, params models.BlogListParams) (*models.BlogListResponse, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit <= 0 {
		params.Limit = defaultLimit
	}
	if params.Limit > maxLimit {
		params.Limit = maxLimit
	}

	posts, total, err := s.store.List(ctx, params)
	if err != nil {
		return nil, err
	}

	totalPages := (total + params.Limit - 1) / params.Limit
	return &models.BlogListResponse{
		Posts:      posts,
		TotalCount: total,
		Pagination: models.Pagination{
			Current: params.Page,
			Total:   totalPages,
			HasNext: params.Page < totalPages,
			HasPrev: params.Page > 1,
		},
	}, nil
}

// ListBySeller returns every post of sellerID, drafts included.
func (s *Service) ListBySeller(ctx context.Context, sellerID string) ([]models.BlogPost, error) {
	return s.store.ListBySeller(ctx, sellerID)
}

// Categories returns published post counts per category, largest first.
func (s *Service) Categories(ctx context.Context) ([]models.CategoryCount, error) {
	return s.store.CategoryCounts(ctx)
}

// ImportFeed creates one draft post per entry of the RSS or Atom feed at
// feedURL, up to max entries (all when max <= 0).
func (s *Service) ImportFeed(ctx context.Context, sellerID, feedURL string, max int) ([]models.BlogPost, error) {
	feedCtx, cancel := context.WithTimeout(ctx, feedTimeout)
	defer cancel()

	feed, err := s.parser.ParseURLWithContext(feedURL, feedCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed %s: %w", feedURL, err)
	}

	imported := make([]models.BlogPost, 0, len(feed.Items))
	for i, item := range feed.Items {
		if max > 0 && i >= max {
			break
		}

		content := item.Content
		if strings.TrimSpace(content) == "" {
			content = item.Description
		}
		if strings.TrimSpace(item.Title) == "" || strings.TrimSpace(content) == "" {
			continue
		}

		params := models.CreateBlogParams{
			Title:     item.Title,
			Content:   content,
			Tags:      item.Categories,
			Status:    models.BlogStatusDraft,
			SourceURL: item.Link,
		}
		if len(item.Categories) > 0 {
			params.Category = item.Categories[0]
		}
		if item.Author != nil {
			params.Author = item.Author.Name
		}
		if item.Image != nil {
			params.CoverImage = item.Image.URL
		}

		post, err := s.Create(ctx, sellerID, params)
		if err != nil {
			return imported, fmt.Errorf("failed to import %q: %w", item.Title, err)
		}
		imported = append(imported, *post)
	}

	s.logger.Info("Imported blog feed", logging.WithFields(map[string]interface{}{
		"feed":     feedURL,
		"imported": len(imported),
	}))
	return imported, nil
}

func (s *Service) owned(ctx context.Context, actorID string, role models.Role, postSlug string) (*models.BlogPost, error) {
	post, err := s.store.GetBySlug(ctx, postSlug)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrNotFound
	}
	if !models.CanManage(actorID, role, post.SellerID) {
		return nil, ErrForbidden
	}
	return post, nil
}

// Excerpt returns the first 100 characters of the visible text of an HTML
// fragment followed by "...".
func Excerpt(content string) string {
	text := content
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(content)); err == nil {
		var b strings.Builder
		visibleText(doc.Selection, &b)
		text = b.String()
	}
	text = strings.Join(strings.Fields(text), " ")

	if utf8.RuneCountInString(text) > excerptLength {
		text = string([]rune(text)[:excerptLength])
	}
	return text + "..."
}

// visibleText writes every text node under s in document order, separated
// by spaces so adjacent block elements do not run together.
func visibleText(s *goquery.Selection, b *strings.Builder) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		switch goquery.NodeName(c) {
		case "#text":
			b.WriteString(c.Text())
			b.WriteByte(' ')
		case "script", "style", "#comment":
		default:
			visibleText(c, b)
		}
	})
}

func defaultCategory(category string) string {
	if category = strings.TrimSpace(category); category != "" {
		return category
	}
	return "General"
}
