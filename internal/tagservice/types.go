package tagservice

import (
	"context"

	"github.com/sushihentaime/markpress/internal/blogservice"
)

const MaxPopularTags = 20

// PublishedSource yields the published blogs in index order.
type PublishedSource interface {
	PublishedBlogs(ctx context.Context) ([]*blogservice.Blog, error)
}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

type TagService struct {
	blogs PublishedSource
}
