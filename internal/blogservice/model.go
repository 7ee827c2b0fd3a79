package blogservice

import (
	"context"
	"errors"
	"slices"

	"github.com/sushihentaime/markpress/internal/common"
	"github.com/sushihentaime/markpress/internal/kvstore"
)

func newBlogModel(store kvstore.Store) *BlogModel {
	return &BlogModel{store: store}
}

func blogKey(id string) string          { return blogPrefix + id }
func indexKey(id string) string         { return publishedPrefix + id }
func userBlogsKey(userID string) string { return userBlogsPrefix + userID }
func commentsPrefix(blogID string) string {
	return commentPrefix + blogID + ":"
}

func (m *BlogModel) getBlog(ctx context.Context, id string) (*Blog, error) {
	var blog Blog

	err := kvstore.GetJSON(ctx, m.store, blogKey(id), &blog)
	if err != nil {
		switch {
		case errors.Is(err, kvstore.ErrNotFound):
			return nil, common.ErrRecordNotFound
		default:
			return nil, err
		}
	}

	return &blog, nil
}

// putBlog writes the record without the author projection, which is always
// resolved at read time.
func (m *BlogModel) putBlog(ctx context.Context, blog *Blog) error {
	rec := *blog
	rec.Author = nil
	return kvstore.SetJSON(ctx, m.store, blogKey(blog.ID), &rec)
}

func (m *BlogModel) deleteBlog(ctx context.Context, id string) error {
	return m.store.Delete(ctx, blogKey(id))
}

func (m *BlogModel) blogs(ctx context.Context) ([]*Blog, error) {
	kvs, err := m.store.Scan(ctx, blogPrefix)
	if err != nil {
		return nil, err
	}

	blogs := make([]*Blog, 0, len(kvs))
	for _, kv := range kvs {
		var blog Blog
		if err := kvstore.Decode(kv, &blog); err != nil {
			return nil, err
		}
		blogs = append(blogs, &blog)
	}

	return blogs, nil
}

func newIndexEntry(blog *Blog) *IndexEntry {
	return &IndexEntry{
		ID:        blog.ID,
		Title:     blog.Title,
		Tags:      blog.Tags,
		Slug:      blog.Slug,
		AuthorID:  blog.AuthorID,
		CreatedAt: blog.CreatedAt,
	}
}

func (m *BlogModel) putIndexEntry(ctx context.Context, blog *Blog) error {
	return kvstore.SetJSON(ctx, m.store, indexKey(blog.ID), newIndexEntry(blog))
}

func (m *BlogModel) deleteIndexEntry(ctx context.Context, id string) error {
	return m.store.Delete(ctx, indexKey(id))
}

// indexEntries returns the published index in key order.
func (m *BlogModel) indexEntries(ctx context.Context) ([]IndexEntry, error) {
	kvs, err := m.store.Scan(ctx, publishedPrefix)
	if err != nil {
		return nil, err
	}

	entries := make([]IndexEntry, 0, len(kvs))
	for _, kv := range kvs {
		var e IndexEntry
		if err := kvstore.Decode(kv, &e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, nil
}

func (m *BlogModel) authorBlogIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string

	err := kvstore.GetJSON(ctx, m.store, userBlogsKey(userID), &ids)
	if err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		return nil, err
	}

	return ids, nil
}

func (m *BlogModel) appendAuthorBlog(ctx context.Context, userID, blogID string) error {
	ids, err := m.authorBlogIDs(ctx, userID)
	if err != nil {
		return err
	}

	return kvstore.SetJSON(ctx, m.store, userBlogsKey(userID), append(ids, blogID))
}

func (m *BlogModel) removeAuthorBlog(ctx context.Context, userID, blogID string) error {
	ids, err := m.authorBlogIDs(ctx, userID)
	if err != nil {
		return err
	}

	ids = slices.DeleteFunc(ids, func(id string) bool { return id == blogID })
	if ids == nil {
		ids = []string{}
	}

	return kvstore.SetJSON(ctx, m.store, userBlogsKey(userID), ids)
}

func (m *BlogModel) putComment(ctx context.Context, c *Comment) error {
	rec := *c
	rec.Author = nil
	return kvstore.SetJSON(ctx, m.store, commentsPrefix(c.BlogID)+c.ID, &rec)
}

func (m *BlogModel) comments(ctx context.Context, blogID string) ([]*Comment, error) {
	kvs, err := m.store.Scan(ctx, commentsPrefix(blogID))
	if err != nil {
		return nil, err
	}

	comments := make([]*Comment, 0, len(kvs))
	for _, kv := range kvs {
		var c Comment
		if err := kvstore.Decode(kv, &c); err != nil {
			return nil, err
		}
		comments = append(comments, &c)
	}

	return comments, nil
}

// deleteComments removes every comment under blogID. It keeps going past
// individual failures and reports them together.
func (m *BlogModel) deleteComments(ctx context.Context, blogID string) (int, error) {
	kvs, err := m.store.Scan(ctx, commentsPrefix(blogID))
	if err != nil {
		return 0, err
	}

	var (
		deleted int
		errs    []error
	)
	for _, kv := range kvs {
		if err := m.store.Delete(ctx, kv.Key); err != nil {
			errs = append(errs, err)
			continue
		}
		deleted++
	}

	return deleted, errors.Join(errs...)
}
