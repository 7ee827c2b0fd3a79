// Package tagservice aggregates tag usage across published blogs.
package tagservice

import (
	"context"
	"slices"
)

func NewTagService(blogs PublishedSource) *TagService {
	return &TagService{blogs: blogs}
}

// PopularTags counts every tag occurrence on published blogs and returns the
// top entries by count. Ties keep the order in which tags were first seen. A
// blog listing the same tag twice counts it twice.
func (s *TagService) PopularTags(ctx context.Context) ([]TagCount, error) {
	blogs, err := s.blogs.PublishedBlogs(ctx)
	if err != nil {
		return nil, err
	}

	counts := []TagCount{}
	pos := make(map[string]int)

	for _, b := range blogs {
		for _, tag := range b.Tags {
			i, ok := pos[tag]
			if !ok {
				i = len(counts)
				pos[tag] = i
				counts = append(counts, TagCount{Tag: tag})
			}
			counts[i].Count++
		}
	}

	slices.SortStableFunc(counts, func(a, b TagCount) int {
		return b.Count - a.Count
	})

	if len(counts) > MaxPopularTags {
		counts = counts[:MaxPopularTags]
	}

	return counts, nil
}
