package models

import "time"

// BlogStatus is the publication state of a post.
type BlogStatus string

const (
	BlogStatusDraft     BlogStatus = "draft"
	BlogStatusPublished BlogStatus = "published"
)

// IsValid reports whether s is a known status.
func (s BlogStatus) IsValid() bool {
	return s == BlogStatusDraft || s == BlogStatusPublished
}

// BlogPost is a seller-authored article.
type BlogPost struct {
	ID          string     `json:"id"`
	SellerID    string     `json:"sellerId"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Content     string     `json:"content"`
	Excerpt     string     `json:"excerpt"`
	Category    string     `json:"category"`
	Tags        []string   `json:"tags"`
	CoverImage  string     `json:"coverImage,omitempty"`
	Author      string     `json:"author,omitempty"`
	Status      BlogStatus `json:"status"`
	Views       int        `json:"views"`
	SourceURL   string     `json:"sourceUrl,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// CreateBlogParams are the fields accepted when creating a post.
type CreateBlogParams struct {
	Title       string     `json:"title"`
	Slug        string     `json:"slug,omitempty"`
	Content     string     `json:"content"`
	Excerpt     string     `json:"excerpt,omitempty"`
	Category    string     `json:"category"`
	Tags        []string   `json:"tags,omitempty"`
	CoverImage  string     `json:"coverImage,omitempty"`
	Author      string     `json:"author,omitempty"`
	Status      BlogStatus `json:"status,omitempty"`
	SourceURL   string     `json:"sourceUrl,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

// UpdateBlogParams is a partial update of a post.
type UpdateBlogParams struct {
	Title      *string     `json:"title,omitempty"`
	Content    *string     `json:"content,omitempty"`
	Excerpt    *string     `json:"excerpt,omitempty"`
	Category   *string     `json:"category,omitempty"`
	Tags       []string    `json:"tags,omitempty"`
	CoverImage *string     `json:"coverImage,omitempty"`
	Status     *BlogStatus `json:"status,omitempty"`
}

// BlogListParams selects a page of posts.
type BlogListParams struct {
	Page          int    `json:"page"`
	Limit         int    `json:"limit"`
	Category      string `json:"category,omitempty"`
	PublishedOnly bool   `json:"publishedOnly"`
}

// Pagination describes the position of a page within a listing.
type Pagination struct {
	Current int  `json:"current"`
	Total   int  `json:"total"`
	HasNext bool `json:"hasNext"`
	HasPrev bool `json:"hasPrev"`
}

// BlogListResponse is one page of posts.
type BlogListResponse struct {
	Posts      []BlogPost `json:"posts"`
	TotalCount int        `json:"totalCount"`
	Pagination Pagination `json:"pagination"`
}

// CategoryCount is the number of published posts in a category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}
