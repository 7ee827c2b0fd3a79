package blogservice

import (
	"context"
	"time"

	"github.com/sushihentaime/markpress/internal/kvstore"
	"github.com/sushihentaime/markpress/internal/userservice"
)

const (
	blogPrefix      = "blog:"
	publishedPrefix = "published:"
	userBlogsPrefix = "user_blogs:"
	commentPrefix   = "comment:"

	DefaultPageLimit = 12
	MaxTitleLength   = 200

	wordsPerMinute = 200
)

// AuthorLookup resolves the {id, name} projection attached to blogs and
// comments. A missing user yields nil, nil.
type AuthorLookup interface {
	Author(ctx context.Context, userID string) (*userservice.Author, error)
}

type Blog struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	// Content is stored in Markdown format.
	Content     string              `json:"content"`
	Slug        string              `json:"slug"`
	Tags        []string            `json:"tags"`
	IsDraft     bool                `json:"isDraft"`
	ReadingTime int                 `json:"readingTime"`
	AuthorID    string              `json:"authorId"`
	Author      *userservice.Author `json:"author"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
	Views       int                 `json:"views"`
}

// IndexEntry is the published-index projection of a blog. It exists exactly
// while the blog is not a draft.
type IndexEntry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Tags      []string  `json:"tags"`
	Slug      string    `json:"slug"`
	AuthorID  string    `json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`
}

type Comment struct {
	ID        string              `json:"id"`
	BlogID    string              `json:"blogId"`
	Content   string              `json:"content"`
	AuthorID  string              `json:"authorId"`
	Author    *userservice.Author `json:"author"`
	CreatedAt time.Time           `json:"createdAt"`
}

type CreateBlogRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
	IsDraft bool     `json:"isDraft"`
}

type UpdateBlogRequest struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
	IsDraft bool     `json:"isDraft"`
}

// ListFilter selects between the author listing (AuthorID set) and the
// published search listing.
type ListFilter struct {
	Search   string
	Tag      string
	Page     int
	Limit    int
	AuthorID string
}

type ListResult struct {
	Blogs      []*Blog `json:"blogs"`
	Total      int     `json:"total"`
	TotalPages int     `json:"totalPages,omitempty"`
}

type RebuildReport struct {
	Scanned  int `json:"scanned"`
	Upserted int `json:"upserted"`
	Drafts   int `json:"drafts"`
	Orphans  int `json:"orphans"`
}

type BlogModel struct {
	store kvstore.Store
}

type BlogService struct {
	m       *BlogModel
	authors AuthorLookup
	now     func() time.Time
}
