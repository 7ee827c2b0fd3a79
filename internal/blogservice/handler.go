package blogservice

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sushihentaime/markpress/internal/common"
	"github.com/sushihentaime/markpress/internal/kvstore"
)

func NewBlogService(store kvstore.Store, authors AuthorLookup) *BlogService {
	return &BlogService{
		m:       newBlogModel(store),
		authors: authors,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateBlog stores a new blog owned by authorID and indexes it when it is
// not a draft.
func (s *BlogService) CreateBlog(ctx context.Context, authorID string, req CreateBlogRequest) (*Blog, error) {
	if authorID == "" {
		return nil, common.ErrAuthenticationFailure
	}

	title := strings.TrimSpace(req.Title)
	content := strings.TrimSpace(sanitizeMarkdown(req.Content))

	v := common.NewValidator()
	validateTitle(v, title)
	validateContent(v, content)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	now := s.now()
	blog := &Blog{
		ID:          uuid.NewString(),
		Title:       title,
		Content:     content,
		Tags:        normalizeTags(req.Tags),
		IsDraft:     req.IsDraft,
		ReadingTime: readingTime(content),
		AuthorID:    authorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	slug, err := s.slugFor(ctx, blog)
	if err != nil {
		return nil, err
	}
	blog.Slug = slug

	if err := s.m.putBlog(ctx, blog); err != nil {
		return nil, err
	}

	if err := s.m.appendAuthorBlog(ctx, authorID, blog.ID); err != nil {
		return nil, err
	}

	if !blog.IsDraft {
		if err := s.m.putIndexEntry(ctx, blog); err != nil {
			return nil, err
		}
	}

	if err := s.attachAuthor(ctx, blog); err != nil {
		return nil, err
	}

	return blog, nil
}

// slugFor derives the slug from the title. Published blogs get the short id
// appended when another published blog already uses the same slug.
func (s *BlogService) slugFor(ctx context.Context, blog *Blog) (string, error) {
	slug := slugify(blog.Title)
	if slug == "" {
		return shortID(blog.ID), nil
	}

	if blog.IsDraft {
		return slug, nil
	}

	entries, err := s.m.indexEntries(ctx)
	if err != nil {
		return "", err
	}

	for _, e := range entries {
		if e.ID != blog.ID && e.Slug == slug {
			return slug + "-" + shortID(blog.ID), nil
		}
	}

	return slug, nil
}

// ListBlogs returns either one author's blogs or a page of published blogs
// matching the filter. The author listing is not paginated.
func (s *BlogService) ListBlogs(ctx context.Context, callerID string, f ListFilter) (*ListResult, error) {
	if f.AuthorID != "" {
		return s.listAuthorBlogs(ctx, callerID, f.AuthorID)
	}

	published, err := s.PublishedBlogs(ctx)
	if err != nil {
		return nil, err
	}

	search := strings.ToLower(strings.TrimSpace(f.Search))
	tag := strings.ToLower(strings.TrimSpace(f.Tag))

	matches := make([]*Blog, 0, len(published))
	for _, b := range published {
		if search != "" && !strings.Contains(strings.ToLower(b.Title), search) && !strings.Contains(strings.ToLower(b.Content), search) {
			continue
		}
		if tag != "" && !slices.ContainsFunc(b.Tags, func(t string) bool { return strings.ToLower(t) == tag }) {
			continue
		}
		matches = append(matches, b)
	}

	sortNewestFirst(matches)

	// A zero page or limit means unset. Negative pages are out of range.
	page := f.Page
	if page == 0 {
		page = 1
	}

	limit := f.Limit
	if limit < 1 {
		limit = DefaultPageLimit
	}

	total := len(matches)
	pages := total / limit
	if total%limit != 0 {
		pages++
	}

	result := &ListResult{
		Blogs:      []*Blog{},
		Total:      total,
		TotalPages: max(1, pages),
	}

	// Compare before multiplying so huge pages cannot overflow the offset.
	if page < 1 || page > pages {
		return result, nil
	}

	start := (page - 1) * limit
	end := total
	if limit < total-start {
		end = start + limit
	}

	result.Blogs = matches[start:end]
	for _, b := range result.Blogs {
		if err := s.attachAuthor(ctx, b); err != nil {
			return nil, err
		}
	}

	return result, nil
}

func (s *BlogService) listAuthorBlogs(ctx context.Context, callerID, authorID string) (*ListResult, error) {
	ids, err := s.m.authorBlogIDs(ctx, authorID)
	if err != nil {
		return nil, err
	}

	blogs := make([]*Blog, 0, len(ids))
	for _, id := range ids {
		b, err := s.m.getBlog(ctx, id)
		if err != nil {
			if errors.Is(err, common.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}

		if b.IsDraft && callerID != authorID {
			continue
		}

		if err := s.attachAuthor(ctx, b); err != nil {
			return nil, err
		}
		blogs = append(blogs, b)
	}

	sortNewestFirst(blogs)

	return &ListResult{Blogs: blogs, Total: len(blogs)}, nil
}

func sortNewestFirst(blogs []*Blog) {
	slices.SortStableFunc(blogs, func(a, b *Blog) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
}

// PublishedBlogs resolves the published index to full records in index key
// order. Orphaned entries and records that have become drafts are skipped.
func (s *BlogService) PublishedBlogs(ctx context.Context) ([]*Blog, error) {
	entries, err := s.m.indexEntries(ctx)
	if err != nil {
		return nil, err
	}

	blogs := make([]*Blog, 0, len(entries))
	for _, e := range entries {
		b, err := s.m.getBlog(ctx, e.ID)
		if err != nil {
			if errors.Is(err, common.ErrRecordNotFound) {
				continue
			}
			return nil, err
		}

		if b.IsDraft {
			continue
		}
		blogs = append(blogs, b)
	}

	return blogs, nil
}

// PublishedEntries returns the raw published index in key order.
func (s *BlogService) PublishedEntries(ctx context.Context) ([]IndexEntry, error) {
	return s.m.indexEntries(ctx)
}

// GetBlogBySlug returns the first published blog with the given slug and
// counts the fetch as a view.
func (s *BlogService) GetBlogBySlug(ctx context.Context, slug string) (*Blog, error) {
	if slug == "" {
		return nil, common.ErrRecordNotFound
	}

	entries, err := s.m.indexEntries(ctx)
	if err != nil {
		return nil, err
	}

	idx := slices.IndexFunc(entries, func(e IndexEntry) bool { return e.Slug == slug })
	if idx < 0 {
		return nil, common.ErrRecordNotFound
	}

	blog, err := s.m.getBlog(ctx, entries[idx].ID)
	if err != nil {
		return nil, err
	}

	if blog.IsDraft {
		return nil, common.ErrRecordNotFound
	}

	blog.Views++
	if err := s.m.putBlog(ctx, blog); err != nil {
		return nil, err
	}

	if err := s.attachAuthor(ctx, blog); err != nil {
		return nil, err
	}

	return blog, nil
}

// GetBlog returns a blog by id without counting a view. Drafts are only
// visible to their author.
func (s *BlogService) GetBlog(ctx context.Context, id, callerID string) (*Blog, error) {
	blog, err := s.m.getBlog(ctx, id)
	if err != nil {
		return nil, err
	}

	if blog.IsDraft && blog.AuthorID != callerID {
		return nil, common.ErrRecordNotFound
	}

	if err := s.attachAuthor(ctx, blog); err != nil {
		return nil, err
	}

	return blog, nil
}

// UpdateBlog replaces the editable fields of a blog. Only the author can
// update it. The index entry follows the new draft state and keeps the
// original creation time.
func (s *BlogService) UpdateBlog(ctx context.Context, blogID, callerID string, req UpdateBlogRequest) (*Blog, error) {
	blog, err := s.m.getBlog(ctx, blogID)
	if err != nil {
		return nil, err
	}

	if blog.AuthorID != callerID {
		return nil, common.ErrForbidden
	}

	title := strings.TrimSpace(req.Title)
	content := strings.TrimSpace(sanitizeMarkdown(req.Content))

	v := common.NewValidator()
	validateTitle(v, title)
	validateContent(v, content)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	blog.Title = title
	blog.Content = content
	blog.Tags = normalizeTags(req.Tags)
	blog.IsDraft = req.IsDraft
	blog.ReadingTime = readingTime(content)
	blog.UpdatedAt = s.now()

	slug, err := s.slugFor(ctx, blog)
	if err != nil {
		return nil, err
	}
	blog.Slug = slug

	if err := s.m.putBlog(ctx, blog); err != nil {
		return nil, err
	}

	if blog.IsDraft {
		err = s.m.deleteIndexEntry(ctx, blog.ID)
	} else {
		err = s.m.putIndexEntry(ctx, blog)
	}
	if err != nil {
		return nil, err
	}

	if err := s.attachAuthor(ctx, blog); err != nil {
		return nil, err
	}

	return blog, nil
}

// DeleteBlog removes a blog with its index entry, its place in the author
// list and its comments. The steps after the record delete are best effort
// and are not rolled back when one fails.
func (s *BlogService) DeleteBlog(ctx context.Context, blogID, callerID string) error {
	blog, err := s.m.getBlog(ctx, blogID)
	if err != nil {
		return err
	}

	if blog.AuthorID != callerID {
		return common.ErrForbidden
	}

	if err := s.m.deleteBlog(ctx, blogID); err != nil {
		return err
	}

	var errs []error
	if err := s.m.deleteIndexEntry(ctx, blogID); err != nil {
		errs = append(errs, err)
	}
	if err := s.m.removeAuthorBlog(ctx, blog.AuthorID, blogID); err != nil {
		errs = append(errs, err)
	}
	if _, err := s.m.deleteComments(ctx, blogID); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// AddComment stores a comment on a published blog.
func (s *BlogService) AddComment(ctx context.Context, blogID, authorID, content string) (*Comment, error) {
	if authorID == "" {
		return nil, common.ErrAuthenticationFailure
	}

	content = strings.TrimSpace(sanitizeMarkdown(content))

	v := common.NewValidator()
	validateContent(v, content)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	blog, err := s.m.getBlog(ctx, blogID)
	if err != nil {
		return nil, err
	}

	if blog.IsDraft {
		return nil, common.ErrRecordNotFound
	}

	c := &Comment{
		ID:        uuid.NewString(),
		BlogID:    blogID,
		Content:   content,
		AuthorID:  authorID,
		CreatedAt: s.now(),
	}

	if err := s.m.putComment(ctx, c); err != nil {
		return nil, err
	}

	c.Author, err = s.authors.Author(ctx, authorID)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// ListComments returns the comments on a blog, newest first. A blog without
// comments, or one that no longer exists, yields an empty slice.
func (s *BlogService) ListComments(ctx context.Context, blogID string) ([]*Comment, error) {
	comments, err := s.m.comments(ctx, blogID)
	if err != nil {
		return nil, err
	}

	for _, c := range comments {
		c.Author, err = s.authors.Author(ctx, c.AuthorID)
		if err != nil {
			return nil, err
		}
	}

	slices.SortStableFunc(comments, func(a, b *Comment) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return comments, nil
}

// CountPublished counts the non-draft blogs in a user's blog list.
func (s *BlogService) CountPublished(ctx context.Context, userID string) (int, error) {
	ids, err := s.m.authorBlogIDs(ctx, userID)
	if err != nil {
		return 0, err
	}

	var n int
	for _, id := range ids {
		b, err := s.m.getBlog(ctx, id)
		if err != nil {
			if errors.Is(err, common.ErrRecordNotFound) {
				continue
			}
			return 0, err
		}

		if !b.IsDraft {
			n++
		}
	}

	return n, nil
}

// RebuildIndex brings the published index back in line with the blog
// records: entries are rewritten for published blogs and removed for drafts
// and for blogs that no longer exist.
func (s *BlogService) RebuildIndex(ctx context.Context) (*RebuildReport, error) {
	blogs, err := s.m.blogs(ctx)
	if err != nil {
		return nil, err
	}

	report := &RebuildReport{Scanned: len(blogs)}
	live := make(map[string]bool, len(blogs))

	for _, b := range blogs {
		live[b.ID] = true

		if b.IsDraft {
			if err := s.m.deleteIndexEntry(ctx, b.ID); err != nil {
				return nil, err
			}
			report.Drafts++
			continue
		}

		if err := s.m.putIndexEntry(ctx, b); err != nil {
			return nil, err
		}
		report.Upserted++
	}

	entries, err := s.m.indexEntries(ctx)
	if err != nil {
		return nil, err
	}

	for _, e := range entries {
		if live[e.ID] {
			continue
		}

		if err := s.m.deleteIndexEntry(ctx, e.ID); err != nil {
			return nil, err
		}
		report.Orphans++
	}

	return report, nil
}

func (s *BlogService) attachAuthor(ctx context.Context, blog *Blog) error {
	author, err := s.authors.Author(ctx, blog.AuthorID)
	if err != nil {
		return err
	}

	blog.Author = author
	return nil
}
