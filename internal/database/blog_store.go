package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/johnrirwin/hamroeshop/internal/models"
)

// BlogStore handles blog post database operations
type BlogStore struct {
	db *DB
}

// NewBlogStore creates a new blog store
func NewBlogStore(db *DB) *BlogStore {
	return &BlogStore{db: db}
}

const blogColumns = `
	id, seller_id, title, slug, content, excerpt, category, tags, cover_image,
	author, status, views, source_url, published_at, created_at, updated_at
`

// Create inserts a post and fills in its ID and timestamps
func (s *BlogStore) Create(ctx context.Context, post *models.BlogPost) error {
	query := `
		INSERT INTO blog_posts (
			seller_id, title, slug, content, excerpt, category, tags, cover_image,
			author, status, views, source_url, published_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, created_at, updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		post.SellerID, post.Title, post.Slug, post.Content, nullString(post.Excerpt),
		post.Category, pq.Array(nonNil(post.Tags)), nullString(post.CoverImage),
		nullString(post.Author), post.Status, post.Views, nullString(post.SourceURL),
		nullTime(post.PublishedAt),
	).Scan(&post.ID, &post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create blog post: %w", err)
	}

	return nil
}

// GetBySlug retrieves a post. It returns nil when none exists.
func (s *BlogStore) GetBySlug(ctx context.Context, slug string) (*models.BlogPost, error) {
	query := `SELECT ` + blogColumns + ` FROM blog_posts WHERE slug = $1`

	post, err := scanBlogPost(s.db.QueryRowContext(ctx, query, slug))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get blog post: %w", err)
	}
	return post, nil
}

// SlugExists reports whether any post already uses slug
func (s *BlogStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM blog_posts WHERE slug = $1)`, slug).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check slug: %w", err)
	}
	return exists, nil
}

// IncrementViews bumps the view counter of a post
func (s *BlogStore) IncrementViews(ctx context.Context, slug string) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE blog_posts SET views = views + 1 WHERE slug = $1`, slug); err != nil {
		return fmt.Errorf("failed to increment views: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields of a post
func (s *BlogStore) Update(ctx context.Context, post *models.BlogPost) error {
	query := `
		UPDATE blog_posts SET
			title = $2, content = $3, excerpt = $4, category = $5, tags = $6,
			cover_image = $7, status = $8, published_at = $9, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := s.db.QueryRowContext(ctx, query,
		post.ID, post.Title, post.Content, nullString(post.Excerpt), post.Category,
		pq.Array(nonNil(post.Tags)), nullString(post.CoverImage), post.Status,
		nullTime(post.PublishedAt),
	).Scan(&post.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("blog post %s not found", post.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update blog post: %w", err)
	}
	return nil
}

// Delete removes a post by slug
func (s *BlogStore) Delete(ctx context.Context, slug string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM blog_posts WHERE slug = $1`, slug); err != nil {
		return fmt.Errorf("failed to delete blog post: %w", err)
	}
	return nil
}

// List returns one page of posts ordered by publish date, newest first
func (s *BlogStore) List(ctx context.Context, params models.BlogListParams) ([]models.BlogPost, int, error) {
	where := ` WHERE 1=1`
	args := []interface{}{}
	if params.PublishedOnly {
		where += ` AND status = 'published'`
	}
	if params.Category != "" {
		args = append(args, params.Category)
		where += fmt.Sprintf(` AND LOWER(category) = LOWER($%d)`, len(args))
	}

	var totalCount int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blog_posts`+where, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count blog posts: %w", err)
	}

	offset := (params.Page - 1) * params.Limit
	args = append(args, params.Limit, offset)
	query := `SELECT ` + blogColumns + ` FROM blog_posts` + where +
		fmt.Sprintf(` ORDER BY published_at DESC NULLS LAST, created_at DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list blog posts: %w", err)
	}
	defer rows.Close()

	posts, err := scanBlogRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return posts, totalCount, nil
}

// ListBySeller returns every post of a seller, newest first
func (s *BlogStore) ListBySeller(ctx context.Context, sellerID string) ([]models.BlogPost, error) {
	query := `SELECT ` + blogColumns + ` FROM blog_posts WHERE seller_id = $1 ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, sellerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list seller blog posts: %w", err)
	}
	defer rows.Close()

	return scanBlogRows(rows)
}

// CategoryCounts returns published post counts per category, largest first
func (s *BlogStore) CategoryCounts(ctx context.Context) ([]models.CategoryCount, error) {
	query := `
		SELECT category, COUNT(*) AS count
		FROM blog_posts
		WHERE status = 'published'
		GROUP BY category
		ORDER BY count DESC, category ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count blog categories: %w", err)
	}
	defer rows.Close()

	counts := make([]models.CategoryCount, 0)
	for rows.Next() {
		var c models.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func scanBlogPost(row rowScanner) (*models.BlogPost, error) {
	var post models.BlogPost
	var excerpt, coverImage, author, sourceURL sql.NullString
	var tags pq.StringArray
	var publishedAt sql.NullTime

	err := row.Scan(
		&post.ID, &post.SellerID, &post.Title, &post.Slug, &post.Content, &excerpt,
		&post.Category, &tags, &coverImage, &author, &post.Status, &post.Views,
		&sourceURL, &publishedAt, &post.CreatedAt, &post.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	post.Excerpt = excerpt.String
	post.CoverImage = coverImage.String
	post.Author = author.String
	post.SourceURL = sourceURL.String
	post.Tags = []string(tags)
	if publishedAt.Valid {
		post.PublishedAt = &publishedAt.Time
	}
	return &post, nil
}

func scanBlogRows(rows *sql.Rows) ([]models.BlogPost, error) {
	posts := make([]models.BlogPost, 0)
	for rows.Next() {
		post, err := scanBlogPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan blog post: %w", err)
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate blog posts: %w", err)
	}
	return posts, nil
}
