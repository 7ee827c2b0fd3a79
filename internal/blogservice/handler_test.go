package blogservice

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sushihentaime/markpress/internal/common"
	"github.com/sushihentaime/markpress/internal/kvstore"
	"github.com/sushihentaime/markpress/internal/userservice"
)

type stubAuthors map[string]string

func (a stubAuthors) Author(ctx context.Context, userID string) (*userservice.Author, error) {
	name, ok := a[userID]
	if !ok {
		return nil, nil
	}
	return &userservice.Author{ID: userID, Name: name}, nil
}

const (
	alice = "user-alice"
	bob   = "user-bob"
)

func setupTestEnvironment(t *testing.T) (*BlogService, kvstore.Store) {
	t.Helper()

	store := kvstore.NewMemoryStore()
	s := NewBlogService(store, stubAuthors{alice: "Alice", bob: "Bob"})

	// every call is one second after the previous one so ordering is stable
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	return s, store
}

func createBlog(t *testing.T, s *BlogService, authorID, title string, draft bool, tags ...string) *Blog {
	t.Helper()

	b, err := s.CreateBlog(context.Background(), authorID, CreateBlogRequest{
		Title:   title,
		Content: "Some content about " + title,
		Tags:    tags,
		IsDraft: draft,
	})
	require.NoError(t, err)
	return b
}

func TestCreateBlog(t *testing.T) {
	s, store := setupTestEnvironment(t)
	ctx := context.Background()

	testCases := []struct {
		name     string
		authorID string
		req      CreateBlogRequest
		wantErr  error
		fields   []string
	}{
		{name: "anonymous", authorID: "", req: CreateBlogRequest{Title: "t", Content: "c"}, wantErr: common.ErrAuthenticationFailure},
		{name: "blank title and content", authorID: alice, req: CreateBlogRequest{Title: "  ", Content: "\n"}, fields: []string{"title", "content"}},
		{name: "only a script", authorID: alice, req: CreateBlogRequest{Title: "ok", Content: "<script>x()</script>"}, fields: []string{"content"}},
		{name: "title too long", authorID: alice, req: CreateBlogRequest{Title: strings.Repeat("a", MaxTitleLength+1), Content: "c"}, fields: []string{"title"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.CreateBlog(ctx, tc.authorID, tc.req)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}

			var verr common.ValidationError
			require.ErrorAs(t, err, &verr)
			for _, f := range tc.fields {
				assert.Contains(t, verr.Errors, f)
			}
		})
	}

	t.Run("published", func(t *testing.T) {
		b, err := s.CreateBlog(ctx, alice, CreateBlogRequest{
			Title:   "Hello, World!",
			Content: "hello <script>alert(1)</script>world",
			Tags:    []string{" Go ", "", "WEB"},
		})
		require.NoError(t, err)

		assert.Equal(t, "hello-world", b.Slug)
		assert.Equal(t, "hello world", b.Content)
		assert.Equal(t, []string{"go", "web"}, b.Tags)
		assert.Equal(t, 1, b.ReadingTime)
		assert.Equal(t, 0, b.Views)
		assert.Equal(t, &userservice.Author{ID: alice, Name: "Alice"}, b.Author)
		assert.Equal(t, b.CreatedAt, b.UpdatedAt)

		entries, err := s.PublishedEntries(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, IndexEntry{ID: b.ID, Title: b.Title, Tags: b.Tags, Slug: b.Slug, AuthorID: alice, CreatedAt: b.CreatedAt}, entries[0])

		var ids []string
		require.NoError(t, kvstore.GetJSON(ctx, store, userBlogsKey(alice), &ids))
		assert.Equal(t, []string{b.ID}, ids)
	})

	t.Run("draft is not indexed", func(t *testing.T) {
		b := createBlog(t, s, alice, "Secret plans", true)

		_, err := store.Get(ctx, indexKey(b.ID))
		assert.ErrorIs(t, err, kvstore.ErrNotFound)
	})

	t.Run("empty slug falls back to short id", func(t *testing.T) {
		b := createBlog(t, s, alice, "!!!", false)
		assert.Equal(t, b.ID[:8], b.Slug)
	})

	t.Run("colliding published slug gets id suffix", func(t *testing.T) {
		b := createBlog(t, s, bob, "Hello World", false)
		assert.Equal(t, "hello-world-"+b.ID[:8], b.Slug)

		// drafts keep the plain slug
		d := createBlog(t, s, bob, "Hello World", true)
		assert.Equal(t, "hello-world", d.Slug)
	})
}

func TestGetBlogBySlug(t *testing.T) {
	s, store := setupTestEnvironment(t)
	ctx := context.Background()

	b := createBlog(t, s, alice, "Counting Views", false)
	assert.Equal(t, 0, b.Views)

	got, err := s.GetBlogBySlug(ctx, "counting-views")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Views)
	assert.Equal(t, "Alice", got.Author.Name)

	got, err = s.GetBlogBySlug(ctx, "counting-views")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Views)

	stored, err := s.GetBlog(ctx, b.ID, "")
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Views)

	_, err = s.GetBlogBySlug(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrRecordNotFound)

	// an index entry without its record is treated as missing
	require.NoError(t, store.Delete(ctx, blogKey(b.ID)))
	_, err = s.GetBlogBySlug(ctx, "counting-views")
	assert.ErrorIs(t, err, common.ErrRecordNotFound)
}

func TestGetBlog(t *testing.T) {
	s, _ := setupTestEnvironment(t)
	ctx := context.Background()

	d := createBlog(t, s, alice, "Draft", true)

	got, err := s.GetBlog(ctx, d.ID, alice)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Views)

	_, err = s.GetBlog(ctx, d.ID, bob)
	assert.ErrorIs(t, err, common.ErrRecordNotFound)

	_, err = s.GetBlog(ctx, "missing", alice)
	assert.ErrorIs(t, err, common.ErrRecordNotFound)
}

func TestListBlogs(t *testing.T) {
	s, _ := setupTestEnvironment(t)
	ctx := context.Background()

	oldest := createBlog(t, s, alice, "Foo one", false, "go")
	middle := createBlog(t, s, bob, "Two", false, "Rust")
	_, err := s.UpdateBlog(ctx, middle.ID, bob, UpdateBlogRequest{Title: "Two", Content: "all about FOO", Tags: []string{"rust"}})
	require.NoError(t, err)
	newest := createBlog(t, s, alice, "foo three", false, "go", "web")
	draft := createBlog(t, s, alice, "foo draft", true, "go")
	other := createBlog(t, s, "user-gone", "Unrelated", false)

	ids := func(blogs []*Blog) []string {
		out := make([]string, 0, len(blogs))
		for _, b := range blogs {
			out = append(out, b.ID)
		}
		return out
	}

	testCases := []struct {
		name           string
		caller         string
		filter         ListFilter
		wantIDs        []string
		wantTotal      int
		wantTotalPages int
	}{
		{
			name:           "no filter",
			filter:         ListFilter{},
			wantIDs:        []string{other.ID, newest.ID, middle.ID, oldest.ID},
			wantTotal:      4,
			wantTotalPages: 1,
		},
		{
			name:           "search title or content, second page",
			filter:         ListFilter{Search: "foo", Page: 2, Limit: 1},
			wantIDs:        []string{middle.ID},
			wantTotal:      3,
			wantTotalPages: 3,
		},
		{
			name:           "tag is case insensitive",
			filter:         ListFilter{Tag: "GO"},
			wantIDs:        []string{newest.ID, oldest.ID},
			wantTotal:      2,
			wantTotalPages: 1,
		},
		{
			name:           "search and tag",
			filter:         ListFilter{Search: "three", Tag: "web"},
			wantIDs:        []string{newest.ID},
			wantTotal:      1,
			wantTotalPages: 1,
		},
		{
			name:           "page out of range",
			filter:         ListFilter{Page: 9, Limit: 2},
			wantIDs:        []string{},
			wantTotal:      4,
			wantTotalPages: 2,
		},
		{
			name:           "huge page is out of range",
			filter:         ListFilter{Page: math.MaxInt, Limit: 12},
			wantIDs:        []string{},
			wantTotal:      4,
			wantTotalPages: 1,
		},
		{
			name:           "huge page and huge limit",
			filter:         ListFilter{Page: math.MaxInt, Limit: math.MaxInt},
			wantIDs:        []string{},
			wantTotal:      4,
			wantTotalPages: 1,
		},
		{
			name:           "huge limit returns everything",
			filter:         ListFilter{Page: 1, Limit: math.MaxInt},
			wantIDs:        []string{other.ID, newest.ID, middle.ID, oldest.ID},
			wantTotal:      4,
			wantTotalPages: 1,
		},
		{
			name:           "negative page is out of range",
			filter:         ListFilter{Page: -1, Limit: 2},
			wantIDs:        []string{},
			wantTotal:      4,
			wantTotalPages: 2,
		},
		{
			name:           "zero page means the first page",
			filter:         ListFilter{Page: 0, Limit: 2},
			wantIDs:        []string{other.ID, newest.ID},
			wantTotal:      4,
			wantTotalPages: 2,
		},
		{
			name:           "no matches still has one page",
			filter:         ListFilter{Search: "zzz"},
			wantIDs:        []string{},
			wantTotal:      0,
			wantTotalPages: 1,
		},
		{
			name:      "author listing for the owner includes drafts",
			caller:    alice,
			filter:    ListFilter{AuthorID: alice, Page: 5, Limit: 1},
			wantIDs:   []string{draft.ID, newest.ID, oldest.ID},
			wantTotal: 3,
		},
		{
			name:      "author listing for others hides drafts",
			caller:    bob,
			filter:    ListFilter{AuthorID: alice},
			wantIDs:   []string{newest.ID, oldest.ID},
			wantTotal: 2,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := s.ListBlogs(ctx, tc.caller, tc.filter)
			require.NoError(t, err)
			assert.Equal(t, tc.wantIDs, ids(res.Blogs))
			assert.Equal(t, tc.wantTotal, res.Total)
			assert.Equal(t, tc.wantTotalPages, res.TotalPages)
		})
	}

	t.Run("authors attached", func(t *testing.T) {
		res, err := s.ListBlogs(ctx, "", ListFilter{})
		require.NoError(t, err)
		assert.Nil(t, res.Blogs[0].Author)
		assert.Equal(t, "Alice", res.Blogs[1].Author.Name)
	})
}

func TestListBlogs_Limits(t *testing.T) {
	s, _ := setupTestEnvironment(t)
	ctx := context.Background()

	for i := 0; i < 150; i++ {
		createBlog(t, s, alice, "Post", false)
	}

	res, err := s.ListBlogs(ctx, "", ListFilter{})
	require.NoError(t, err)
	assert.Len(t, res.Blogs, DefaultPageLimit)
	assert.Equal(t, 13, res.TotalPages)

	res, err = s.ListBlogs(ctx, "", ListFilter{Limit: 500})
	require.NoError(t, err)
	assert.Len(t, res.Blogs, 150)
	assert.Equal(t, 1, res.TotalPages)

	res, err = s.ListBlogs(ctx, "", ListFilter{Page: 2, Limit: 100})
	require.NoError(t, err)
	assert.Len(t, res.Blogs, 50)
	assert.Equal(t, 2, res.TotalPages)
}

func TestUpdateBlog(t *testing.T) {
	s, _ := setupTestEnvironment(t)
	ctx := context.Background()

	b := createBlog(t, s, alice, "Original", false, "go")

	t.Run("non-owner is forbidden and the blog is unchanged", func(t *testing.T) {
		before, err := s.GetBlog(ctx, b.ID, alice)
		require.NoError(t, err)

		_, err = s.UpdateBlog(ctx, b.ID, bob, UpdateBlogRequest{Title: "Hijacked", Content: "x"})
		assert.ErrorIs(t, err, common.ErrForbidden)

		err = s.DeleteBlog(ctx, b.ID, bob)
		assert.ErrorIs(t, err, common.ErrForbidden)

		after, err := s.GetBlog(ctx, b.ID, alice)
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("missing blog", func(t *testing.T) {
		_, err := s.UpdateBlog(ctx, "missing", alice, UpdateBlogRequest{Title: "t", Content: "c"})
		assert.ErrorIs(t, err, common.ErrRecordNotFound)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := s.UpdateBlog(ctx, b.ID, alice, UpdateBlogRequest{Title: "", Content: "c"})
		var verr common.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("recomputes derived fields", func(t *testing.T) {
		u, err := s.UpdateBlog(ctx, b.ID, alice, UpdateBlogRequest{
			Title:   "A New Title",
			Content: strings.Repeat("word ", 201),
			Tags:    []string{"Rust"},
		})
		require.NoError(t, err)
		assert.Equal(t, "a-new-title", u.Slug)
		assert.Equal(t, 2, u.ReadingTime)
		assert.Equal(t, []string{"rust"}, u.Tags)
		assert.True(t, u.UpdatedAt.After(b.UpdatedAt))
		assert.Equal(t, b.CreatedAt, u.CreatedAt)

		entries, err := s.PublishedEntries(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "a-new-title", entries[0].Slug)
		assert.Equal(t, b.CreatedAt, entries[0].CreatedAt)
	})

	t.Run("unpublishing removes it from listings", func(t *testing.T) {
		_, err := s.UpdateBlog(ctx, b.ID, alice, UpdateBlogRequest{Title: "A New Title", Content: "c", IsDraft: true})
		require.NoError(t, err)

		res, err := s.ListBlogs(ctx, "", ListFilter{})
		require.NoError(t, err)
		assert.Empty(t, res.Blogs)

		_, err = s.GetBlogBySlug(ctx, "a-new-title")
		assert.ErrorIs(t, err, common.ErrRecordNotFound)
	})

	t.Run("republishing keeps the original creation time", func(t *testing.T) {
		_, err := s.UpdateBlog(ctx, b.ID, alice, UpdateBlogRequest{Title: "Back", Content: "c"})
		require.NoError(t, err)

		entries, err := s.PublishedEntries(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, b.CreatedAt, entries[0].CreatedAt)
	})
}

func TestDeleteBlog(t *testing.T) {
	s, store := setupTestEnvironment(t)
	ctx := context.Background()

	b := createBlog(t, s, alice, "Doomed", false)
	keep := createBlog(t, s, alice, "Keeper", false)

	for i := 0; i < 3; i++ {
		_, err := s.AddComment(ctx, b.ID, bob, "comment")
		require.NoError(t, err)
	}
	_, err := s.AddComment(ctx, keep.ID, bob, "stays")
	require.NoError(t, err)

	comments, err := s.ListComments(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 3)

	require.NoError(t, s.DeleteBlog(ctx, b.ID, alice))

	comments, err = s.ListComments(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)

	comments, err = s.ListComments(ctx, keep.ID)
	require.NoError(t, err)
	assert.Len(t, comments, 1)

	_, err = store.Get(ctx, indexKey(b.ID))
	assert.ErrorIs(t, err, kvstore.ErrNotFound)

	_, err = s.GetBlog(ctx, b.ID, alice)
	assert.ErrorIs(t, err, common.ErrRecordNotFound)

	var ids []string
	require.NoError(t, kvstore.GetJSON(ctx, store, userBlogsKey(alice), &ids))
	assert.Equal(t, []string{keep.ID}, ids)

	assert.ErrorIs(t, s.DeleteBlog(ctx, b.ID, alice), common.ErrRecordNotFound)
}

func TestComments(t *testing.T) {
	s, _ := setupTestEnvironment(t)
	ctx := context.Background()

	b := createBlog(t, s, alice, "Discuss", false)
	d := createBlog(t, s, alice, "Hidden", true)

	testCases := []struct {
		name     string
		blogID   string
		authorID string
		content  string
		wantErr  error
		field    string
	}{
		{name: "anonymous", blogID: b.ID, authorID: "", content: "hi", wantErr: common.ErrAuthenticationFailure},
		{name: "blank content", blogID: b.ID, authorID: bob, content: "   ", field: "content"},
		{name: "draft blog", blogID: d.ID, authorID: bob, content: "hi", wantErr: common.ErrRecordNotFound},
		{name: "missing blog", blogID: "missing", authorID: bob, content: "hi", wantErr: common.ErrRecordNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.AddComment(ctx, tc.blogID, tc.authorID, tc.content)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}

			var verr common.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Errors, tc.field)
		})
	}

	first, err := s.AddComment(ctx, b.ID, bob, "  first  ")
	require.NoError(t, err)
	assert.Equal(t, "first", first.Content)
	assert.Equal(t, &userservice.Author{ID: bob, Name: "Bob"}, first.Author)

	second, err := s.AddComment(ctx, b.ID, "user-gone", "second")
	require.NoError(t, err)
	assert.Nil(t, second.Author)

	comments, err := s.ListComments(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, second.ID, comments[0].ID)
	assert.Equal(t, first.ID, comments[1].ID)
	assert.Equal(t, "Bob", comments[1].Author.Name)
}

func TestCountPublished(t *testing.T) {
	s, _ := setupTestEnvironment(t)
	ctx := context.Background()

	createBlog(t, s, alice, "One", false)
	createBlog(t, s, alice, "Two", true)
	createBlog(t, s, alice, "Three", false)
	createBlog(t, s, bob, "Four", false)

	n, err := s.CountPublished(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.CountPublished(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRebuildIndex(t *testing.T) {
	s, store := setupTestEnvironment(t)
	ctx := context.Background()

	pub := createBlog(t, s, alice, "Published", false)
	draft := createBlog(t, s, alice, "Draft", true)
	gone := createBlog(t, s, alice, "Gone", false)

	// drift: a lost index entry, a stale draft entry and an orphan
	require.NoError(t, store.Delete(ctx, indexKey(pub.ID)))
	require.NoError(t, kvstore.SetJSON(ctx, store, indexKey(draft.ID), newIndexEntry(draft)))
	require.NoError(t, store.Delete(ctx, blogKey(gone.ID)))

	report, err := s.RebuildIndex(ctx)
	require.NoError(t, err)
	assert.Equal(t, &RebuildReport{Scanned: 2, Upserted: 1, Drafts: 1, Orphans: 1}, report)

	entries, err := s.PublishedEntries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, pub.ID, entries[0].ID)
	assert.Equal(t, pub.CreatedAt, entries[0].CreatedAt)
}
