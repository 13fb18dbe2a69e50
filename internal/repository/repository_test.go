package repository

import (
	"path/filepath"
	"testing"
	"time"

	"dbsite/internal/models"
	"dbsite/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := utils.InitDatabase("sqlite", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type fixture struct {
	db         *gorm.DB
	posts      *PostRepository
	categories *CategoryRepository
	tags       *TagRepository
	comments   *CommentRepository
	images     *ContentImageRepository
}

func newFixture(t *testing.T) *fixture {
	db := openTestDB(t)
	return &fixture{
		db:         db,
		posts:      NewPostRepository(db),
		categories: NewCategoryRepository(db),
		tags:       NewTagRepository(db),
		comments:   NewCommentRepository(db),
		images:     NewContentImageRepository(db),
	}
}

func (f *fixture) category(t *testing.T, name, slug string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name, Slug: slug}
	require.NoError(t, f.categories.Create(c))
	return c
}

func (f *fixture) tag(t *testing.T, name, slug string) models.Tag {
	t.Helper()
	tag := models.Tag{Name: name, Slug: slug}
	require.NoError(t, f.tags.Create(&tag))
	return tag
}

func (f *fixture) post(t *testing.T, c *models.Category, title, content string, public bool, tags ...models.Tag) *models.Post {
	t.Helper()
	p := &models.Post{CategoryID: c.ID, Title: title, Content: content, IsPublic: public}
	require.NoError(t, f.posts.Create(p, tags))
	return p
}

func TestPublishedAtSetOnceWhenPublic(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Go", "go")

	draft := f.post(t, c, "draft", "body", false)
	assert.Nil(t, draft.PublishedAt, "non-public post must not be stamped")

	draft.IsPublic = true
	require.NoError(t, f.posts.Update(draft, nil))
	require.NotNil(t, draft.PublishedAt)
	first := *draft.PublishedAt

	time.Sleep(5 * time.Millisecond)
	draft.Title = "edited"
	require.NoError(t, f.posts.Update(draft, nil))

	stored, err := f.posts.FindByID(draft.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.PublishedAt)
	assert.True(t, first.Equal(*stored.PublishedAt), "published_at must not be overwritten")

	stored.IsPublic = false
	require.NoError(t, f.posts.Update(stored, nil))
	stored.IsPublic = true
	require.NoError(t, f.posts.Update(stored, nil))
	assert.True(t, first.Equal(*stored.PublishedAt), "republishing keeps the original timestamp")
}

func TestFindPageOrdersNewestFirst(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Go", "go")
	older := f.post(t, c, "older", "a", true)
	time.Sleep(5 * time.Millisecond)
	newer := f.post(t, c, "newer", "b", false)

	posts, err := f.posts.FindPage(PostFilter{}, 0, 10)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, newer.ID, posts[0].ID)
	assert.Equal(t, older.ID, posts[1].ID)
	assert.Equal(t, "Go", posts[0].Category.Name, "category is preloaded")

	page, err := f.posts.FindPage(PostFilter{}, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, older.ID, page[0].ID)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	golang := f.category(t, "Golang", "golang")
	misc := f.category(t, "Misc", "misc")
	webTag := f.tag(t, "WebDev", "webdev")
	webTag2 := f.tag(t, "Web", "web")

	hello := f.post(t, misc, "x", "hello world", true)
	inCategory := f.post(t, golang, "y", "body", true)
	tagged := f.post(t, misc, "z", "body", true, webTag, webTag2)
	f.post(t, misc, "unrelated", "nothing here", true)

	search := func(q string) []uint {
		posts, err := f.posts.FindPage(PostFilter{Query: q}, 0, -1)
		require.NoError(t, err)
		count, err := f.posts.Count(PostFilter{Query: q})
		require.NoError(t, err)
		require.Equal(t, int64(len(posts)), count)
		ids := make([]uint, len(posts))
		for i, p := range posts {
			ids[i] = p.ID
		}
		return ids
	}

	assert.Equal(t, []uint{hello.ID}, search("WORLD"), "content match is case-insensitive")
	assert.Empty(t, search("zzz"))
	assert.Equal(t, []uint{inCategory.ID}, search("lang"), "category name matches")
	assert.Equal(t, []uint{tagged.ID}, search("web"), "post matching two tags appears once")
	assert.Empty(t, search("%"), "LIKE wildcards are literal")
	assert.Len(t, search(""), 4, "empty query is unfiltered")
}

func TestFilterByCategoryAndTag(t *testing.T) {
	f := newFixture(t)
	a := f.category(t, "A", "a")
	b := f.category(t, "B", "b")
	tag := f.tag(t, "T", "t")

	pa := f.post(t, a, "pa", "x", true, tag)
	f.post(t, b, "pb", "x", true)

	byCategory, err := f.posts.FindPage(PostFilter{CategoryID: a.ID}, 0, -1)
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, pa.ID, byCategory[0].ID)

	byTag, err := f.posts.FindPage(PostFilter{TagID: tag.ID}, 0, -1)
	require.NoError(t, err)
	require.Len(t, byTag, 1)
	assert.Equal(t, pa.ID, byTag[0].ID)
	require.Len(t, byTag[0].Tags, 1)
	assert.Equal(t, "T", byTag[0].Tags[0].Name)
}

func TestListWithCountsCountsPublicPostsOnly(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Go", "go")
	empty := f.category(t, "Empty", "empty")
	tag := f.tag(t, "tips", "tips")

	counts := func() (map[string]int64, map[string]int64) {
		cats, err := f.categories.ListWithCounts()
		require.NoError(t, err)
		tags, err := f.tags.ListWithCounts()
		require.NoError(t, err)
		cm := map[string]int64{}
		for _, c := range cats {
			cm[c.Slug] = c.NumPosts
		}
		tm := map[string]int64{}
		for _, t := range tags {
			tm[t.Slug] = t.NumPosts
		}
		return cm, tm
	}

	cm, tm := counts()
	assert.Equal(t, int64(0), cm["go"])
	assert.Equal(t, int64(0), tm["tips"])

	f.post(t, c, "public", "x", true, tag)
	cm, tm = counts()
	assert.Equal(t, int64(1), cm["go"])
	assert.Equal(t, int64(1), tm["tips"])

	f.post(t, c, "hidden", "x", false, tag)
	cm, tm = counts()
	assert.Equal(t, int64(1), cm["go"], "non-public posts are not counted")
	assert.Equal(t, int64(1), tm["tips"])
	assert.Equal(t, int64(0), cm[empty.Slug])
}

func TestDeletePostCascadesComments(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Go", "go")
	tag := f.tag(t, "t", "t")
	p := f.post(t, c, "p", "x", true, tag)
	other := f.post(t, c, "other", "x", true)

	comment := &models.Comment{PostID: p.ID, Author: "a", Text: "hi"}
	require.NoError(t, f.comments.CreateComment(comment))
	require.NoError(t, f.comments.CreateReply(&models.Reply{CommentID: comment.ID, Author: "b", Text: "yo"}))
	keep := &models.Comment{PostID: other.ID, Author: "a", Text: "stay"}
	require.NoError(t, f.comments.CreateComment(keep))

	require.NoError(t, f.posts.Delete(p.ID))

	var comments, replies, links int64
	f.db.Model(&models.Comment{}).Count(&comments)
	f.db.Model(&models.Reply{}).Count(&replies)
	f.db.Table("post_tags").Count(&links)
	assert.Equal(t, int64(1), comments, "only the other post's comment survives")
	assert.Equal(t, int64(0), replies)
	assert.Equal(t, int64(0), links)

	_, err := f.posts.FindByID(p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, f.posts.Delete(p.ID), ErrNotFound)
}

func TestDeletePostWithContentImagesIsProtected(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Go", "go")
	p := f.post(t, c, "p", "x", true)
	require.NoError(t, f.images.Create(&models.ContentImage{PostID: p.ID, Image: "post_content_images/a.png"}))

	assert.ErrorIs(t, f.posts.Delete(p.ID), ErrProtected)

	ok, err := f.posts.Exists(p.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeleteCategoryIsProtected(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Go", "go")
	unused := f.category(t, "Unused", "unused")
	f.post(t, c, "p", "x", false)

	assert.ErrorIs(t, f.categories.Delete(c.ID), ErrProtected)
	_, err := f.categories.FindBySlug("go")
	assert.NoError(t, err, "protected category is kept")

	require.NoError(t, f.categories.Delete(unused.ID))
	_, err = f.categories.FindBySlug("unused")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCommentCascadesReplies(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Go", "go")
	p := f.post(t, c, "p", "x", true)

	first := &models.Comment{PostID: p.ID, Author: "a", Text: "one"}
	second := &models.Comment{PostID: p.ID, Author: "a", Text: "two"}
	require.NoError(t, f.comments.CreateComment(first))
	require.NoError(t, f.comments.CreateComment(second))
	r1 := &models.Reply{CommentID: first.ID, Author: "b", Text: "r1"}
	r2 := &models.Reply{CommentID: second.ID, Author: "b", Text: "r2"}
	require.NoError(t, f.comments.CreateReply(r1))
	require.NoError(t, f.comments.CreateReply(r2))

	require.NoError(t, f.comments.DeleteComment(first.ID))
	_, err := f.comments.FindReply(r1.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.comments.FindReply(r2.ID)
	assert.NoError(t, err)

	require.NoError(t, f.comments.DeleteReply(r2.ID))
	_, err = f.comments.FindComment(second.ID)
	assert.NoError(t, err, "removing a reply leaves its comment")

	assert.ErrorIs(t, f.comments.DeleteComment(first.ID), ErrNotFound)
}

func TestApproveAndDetailOrdering(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Go", "go")
	p := f.post(t, c, "p", "x", true)

	older := &models.Comment{PostID: p.ID, Author: "a", Text: "older"}
	require.NoError(t, f.comments.CreateComment(older))
	time.Sleep(5 * time.Millisecond)
	newer := &models.Comment{PostID: p.ID, Author: "a", Text: "newer"}
	require.NoError(t, f.comments.CreateComment(newer))
	assert.False(t, newer.Approved)

	require.NoError(t, f.comments.ApproveComment(older))
	stored, err := f.comments.FindComment(older.ID)
	require.NoError(t, err)
	assert.True(t, stored.Approved)

	pending, err := f.comments.PendingComments(10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, newer.ID, pending[0].ID)

	detail, err := f.posts.FindByID(p.ID)
	require.NoError(t, err)
	require.Len(t, detail.Comments, 2)
	assert.Equal(t, "newer", detail.Comments[0].Text, "comments are newest first")
}
