package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dbsite/internal/models"
	"dbsite/internal/repository"
	"dbsite/internal/storage"
	"dbsite/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type env struct {
	db        *gorm.DB
	mediaRoot string
	posts     *PostService
	taxonomy  *TaxonomyService
	comments  *CommentService
	auth      *AuthService
	media     *MediaService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	db, err := utils.InitDatabase("sqlite", filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	root := filepath.Join(dir, "media")
	store, err := storage.NewLocal(root, "/media")
	require.NoError(t, err)

	logger := zap.NewNop()
	postRepo := repository.NewPostRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	tagRepo := repository.NewTagRepository(db)
	media := NewMediaService(store, 1<<20, logger)

	return &env{
		db:        db,
		mediaRoot: root,
		posts:     NewPostService(postRepo, categoryRepo, tagRepo, repository.NewContentImageRepository(db), media, logger),
		taxonomy:  NewTaxonomyService(categoryRepo, tagRepo),
		comments:  NewCommentService(postRepo, repository.NewCommentRepository(db), logger),
		auth:      NewAuthService(repository.NewUserRepository(db)),
		media:     media,
	}
}

func (e *env) category(t *testing.T, name string) *models.Category {
	t.Helper()
	c, err := e.taxonomy.CreateCategory(name, "")
	require.NoError(t, err)
	return c
}

func (e *env) post(t *testing.T, c *models.Category, title string, public bool) *models.Post {
	t.Helper()
	p, err := e.posts.CreatePost(context.Background(), PostInput{
		Title: title, Content: "Some *content*", CategoryID: c.ID, IsPublic: public,
	})
	require.NoError(t, err)
	return p
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// fileHeaders builds multipart headers the way net/http parses an upload.
func fileHeaders(t *testing.T, field string, files map[string][]byte) []*multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for name, data := range files {
		part, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(10 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { form.RemoveAll() })
	return form.File[field]
}

func validationFields(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Fields
}

func TestGetPostVisibility(t *testing.T) {
	e := newEnv(t)
	c := e.category(t, "Go")
	hidden := e.post(t, c, "hidden", false)
	public := e.post(t, c, "public", true)

	_, err := e.posts.GetPost(hidden.ID, Anonymous)
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := e.posts.GetPost(hidden.ID, Viewer{Authenticated: true, UserID: 1})
	require.NoError(t, err)
	assert.Equal(t, "hidden", got.Title)

	got, err = e.posts.GetPost(public.ID, Anonymous)
	require.NoError(t, err)
	assert.Contains(t, string(got.Content), "<em>content</em>")
	assert.Equal(t, "Go", got.Category.Name)
	assert.NotNil(t, got.PublishedAt)

	_, err = e.posts.GetPost(9999, Viewer{Authenticated: true})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostsPagination(t *testing.T) {
	e := newEnv(t)
	c := e.category(t, "Go")

	empty, err := e.posts.GetPostsPage("")
	require.NoError(t, err, "first page of an empty list is valid")
	assert.Empty(t, empty.Posts)

	for i := 0; i < 7; i++ {
		e.post(t, c, "post", i%2 == 0)
	}

	first, err := e.posts.GetPostsPage("1")
	require.NoError(t, err)
	assert.Len(t, first.Posts, PageSize)
	assert.Equal(t, 3, first.Pager.TotalPages)

	last, err := e.posts.GetPostsPage("last")
	require.NoError(t, err)
	assert.Len(t, last.Posts, 1)
	assert.Equal(t, 3, last.Pager.Number)

	_, err = e.posts.GetPostsPage("99")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.posts.GetPostsPage("abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCategoryAndTagPages(t *testing.T) {
	e := newEnv(t)
	c := e.category(t, "Go Lang")
	assert.Equal(t, "go-lang", c.Slug)
	tag, err := e.taxonomy.CreateTag("Tips", "")
	require.NoError(t, err)

	p, err := e.posts.CreatePost(context.Background(), PostInput{
		Title: "tagged", Content: "x", CategoryID: c.ID, TagIDs: []uint{tag.ID}, IsPublic: true,
	})
	require.NoError(t, err)

	gotCategory, posts, err := e.posts.GetCategoryPosts("go-lang")
	require.NoError(t, err)
	assert.Equal(t, c.ID, gotCategory.ID)
	require.Len(t, posts, 1)
	assert.Equal(t, p.ID, posts[0].ID)

	_, posts, err = e.posts.GetTagPosts("tips")
	require.NoError(t, err)
	require.Len(t, posts, 1)

	_, _, err = e.posts.GetCategoryPosts("nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, _, err = e.posts.GetTagPosts("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCategoryAndTagListsAreNotPaginated(t *testing.T) {
	e := newEnv(t)
	c := e.category(t, "Go")
	tag, err := e.taxonomy.CreateTag("Tips", "")
	require.NoError(t, err)
	for i := 0; i < PageSize+2; i++ {
		_, err := e.posts.CreatePost(context.Background(), PostInput{
			Title: fmt.Sprintf("post %d", i), Content: "x", CategoryID: c.ID, TagIDs: []uint{tag.ID}, IsPublic: i%2 == 0,
		})
		require.NoError(t, err)
	}

	_, posts, err := e.posts.GetCategoryPosts("go")
	require.NoError(t, err)
	assert.Len(t, posts, PageSize+2)

	_, posts, err = e.posts.GetTagPosts("tips")
	require.NoError(t, err)
	assert.Len(t, posts, PageSize+2)
}

func TestAdminPageIsClamped(t *testing.T) {
	e := newEnv(t)
	c := e.category(t, "Go")
	for i := 0; i < 5; i++ {
		e.post(t, c, fmt.Sprintf("post %d", i), true)
	}

	posts, total, page, err := e.posts.GetPostsPageByAdmin(99, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Equal(t, 3, page)
	assert.Len(t, posts, 1)

	posts, _, page, err = e.posts.GetPostsPageByAdmin(-4, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, page)
	assert.Len(t, posts, 2)
}

func TestSearchPostsPage(t *testing.T) {
	e := newEnv(t)
	c := e.category(t, "Misc")
	_, err := e.posts.CreatePost(context.Background(), PostInput{Title: "x", Content: "hello world", CategoryID: c.ID})
	require.NoError(t, err)
	e.post(t, c, "other", true)

	page, err := e.posts.SearchPostsPage("WORLD", "")
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "x", page.Posts[0].Title)

	page, err = e.posts.SearchPostsPage("", "")
	require.NoError(t, err)
	assert.Len(t, page.Posts, 2, "empty query lists everything")

	page, err = e.posts.SearchPostsPage("   ", "")
	require.NoError(t, err)
	assert.Empty(t, page.Posts, "whitespace is matched literally")
}

func TestCreatePostValidation(t *testing.T) {
	e := newEnv(t)
	_, err := e.posts.CreatePost(context.Background(), PostInput{CategoryID: 42, TagIDs: []uint{7}})
	fields := validationFields(t, err)
	assert.Contains(t, fields, "title")
	assert.Contains(t, fields, "content")
	assert.Equal(t, "Select a valid category.", fields["category_id"])
	assert.Contains(t, fields, "tag_ids")
}

func TestPostCoverImageLifecycle(t *testing.T) {
	e := newEnv(t)
	c := e.category(t, "Go")
	ctx := context.Background()

	cover := fileHeaders(t, "image", map[string][]byte{"cover.PNG": pngBytes(t)})[0]
	p, err := e.posts.CreatePost(ctx, PostInput{Title: "p", Content: "x", CategoryID: c.ID, Image: cover})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(p.Image, PostImagePrefix))
	assert.True(t, strings.HasSuffix(p.Image, ".png"))
	_, err = os.Stat(filepath.Join(e.mediaRoot, filepath.FromSlash(p.Image)))
	require.NoError(t, err)

	replacement := fileHeaders(t, "image", map[string][]byte{"new.png": pngBytes(t)})[0]
	updated, err := e.posts.UpdatePost(ctx, p.ID, PostInput{Title: "p2", Content: "x", CategoryID: c.ID, Image: replacement})
	require.NoError(t, err)
	assert.NotEqual(t, p.Image, updated.Image)
	_, err = os.Stat(filepath.Join(e.mediaRoot, filepath.FromSlash(p.Image)))
	assert.True(t, os.IsNotExist(err), "replaced cover is removed")

	require.NoError(t, e.posts.DeletePost(ctx, p.ID))
	_, err = os.Stat(filepath.Join(e.mediaRoot, filepath.FromSlash(updated.Image)))
	assert.True(t, os.IsNotExist(err))
}

func TestContentImagesProtectPost(t *testing.T) {
	e := newEnv(t)
	c := e.category(t, "Go")
	p := e.post(t, c, "p", true)
	ctx := context.Background()

	files := fileHeaders(t, "content_images", map[string][]byte{"a.png": pngBytes(t)})
	images, err := e.posts.AddContentImages(ctx, p.ID, files)
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.True(t, strings.HasPrefix(images[0].Image, ContentImagePrefix))

	assert.ErrorIs(t, e.posts.DeletePost(ctx, p.ID), ErrProtected)

	detail, err := e.posts.GetPost(p.ID, Anonymous)
	require.NoError(t, err)
	require.Len(t, detail.ContentImages, 1)
	assert.Equal(t, "/media/"+images[0].Image, detail.ContentImages[0].URL)

	require.NoError(t, e.posts.DeleteContentImage(ctx, images[0].ID))
	assert.NoError(t, e.posts.DeletePost(ctx, p.ID))

	_, err = e.posts.AddContentImages(ctx, p.ID, files)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMediaValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	key, err := e.media.Save(ctx, PostImagePrefix, "image", "photo.jpeg", bytes.NewReader(pngBytes(t)))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(key, ".png"), "extension follows the sniffed type")

	_, err = e.media.Save(ctx, PostImagePrefix, "image", "notes.png", strings.NewReader("plain text, not an image"))
	assert.Contains(t, validationFields(t, err), "image")

	_, err = e.media.Save(ctx, PostImagePrefix, "image", "big.png", bytes.NewReader(make([]byte, 2<<20)))
	assert.Contains(t, validationFields(t, err)["image"], "larger than")

	// A PNG signature followed by garbage sniffs as PNG but does not decode.
	broken := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	_, err = e.media.Save(ctx, PostImagePrefix, "image", "broken.png", bytes.NewReader(broken))
	assert.Equal(t, "file is not a valid image", validationFields(t, err)["image"])

	assert.Equal(t, "", e.media.URL(""))
}

func TestSubmitComment(t *testing.T) {
	e := newEnv(t)
	c := e.category(t, "Go")
	p := e.post(t, c, "p", true)

	_, err := e.comments.SubmitComment(9999, CommentInput{Author: "a", Text: "b"})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.comments.SubmitComment(9999, CommentInput{})
	assert.ErrorIs(t, err, ErrNotFound, "missing post wins over invalid input")

	var count int64
	e.db.Model(&models.Comment{}).Count(&count)
	assert.Zero(t, count)

	_, err = e.comments.SubmitComment(p.ID, CommentInput{Author: strings.Repeat("x", 51), Text: ""})
	fields := validationFields(t, err)
	assert.Contains(t, fields, "author")
	assert.Contains(t, fields, "text")

	comment, err := e.comments.SubmitComment(p.ID, CommentInput{Author: strings.Repeat("é", 50), Text: " hi "})
	require.NoError(t, err)
	assert.False(t, comment.Approved)
	assert.Equal(t, "hi", comment.Text)
}

func TestModerationRequiresAuthentication(t *testing.T) {
	e := newEnv(t)
	c := e.category(t, "Go")
	p := e.post(t, c, "p", true)
	admin := Viewer{Authenticated: true, UserID: 1, Username: "admin"}

	comment, err := e.comments.SubmitComment(p.ID, CommentInput{Author: "a", Text: "t"})
	require.NoError(t, err)
	reply, postID, err := e.comments.SubmitReply(comment.ID, CommentInput{Author: "b", Text: "r"})
	require.NoError(t, err)
	assert.Equal(t, p.ID, postID)

	_, err = e.comments.ApproveComment(comment.ID, Anonymous)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = e.comments.RemoveReply(reply.ID, Anonymous)
	assert.ErrorIs(t, err, ErrForbidden)

	stored, err := repository.NewCommentRepository(e.db).FindComment(comment.ID)
	require.NoError(t, err)
	assert.False(t, stored.Approved, "anonymous approval leaves the row unchanged")

	postID, err = e.comments.ApproveComment(comment.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, p.ID, postID)

	postID, err = e.comments.ApproveReply(reply.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, p.ID, postID)

	pendingComments, pendingReplies, err := e.comments.Pending(10)
	require.NoError(t, err)
	assert.Empty(t, pendingComments)
	assert.Empty(t, pendingReplies)

	postID, err = e.comments.RemoveComment(comment.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, p.ID, postID)

	_, err = e.comments.RemoveReply(reply.ID, admin)
	assert.ErrorIs(t, err, ErrNotFound, "replies go with their comment")
	_, err = e.comments.ApproveComment(comment.ID, admin)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaxonomySlugs(t *testing.T) {
	e := newEnv(t)

	first, err := e.taxonomy.CreateCategory("Hello World", "")
	require.NoError(t, err)
	assert.Equal(t, "hello-world", first.Slug)

	_, err = e.taxonomy.CreateCategory("hello world", "")
	assert.Contains(t, validationFields(t, err), "slug")

	second, err := e.taxonomy.CreateCategory("Other", "Custom Slug")
	require.NoError(t, err)
	assert.Equal(t, "custom-slug", second.Slug)

	_, err = e.taxonomy.UpdateCategory(second.ID, "Other", "hello-world")
	assert.Contains(t, validationFields(t, err), "slug")

	renamed, err := e.taxonomy.UpdateCategory(first.ID, "Renamed", "hello-world")
	require.NoError(t, err, "a row may keep its own slug")
	assert.Equal(t, "Renamed", renamed.Name)

	_, err = e.taxonomy.CreateTag("  ", "")
	assert.Contains(t, validationFields(t, err), "name")

	_, err = e.taxonomy.UpdateTag(999, "x", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAuth(t *testing.T) {
	e := newEnv(t)

	_, err := e.auth.CreateAdmin("admin", "short")
	assert.Contains(t, validationFields(t, err), "password")

	user, err := e.auth.CreateAdmin("admin", "correct horse")
	require.NoError(t, err)

	_, err = e.auth.Authenticate("admin", "wrong password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = e.auth.Authenticate("nobody", "correct horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	got, err := e.auth.Authenticate("admin", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	reset, err := e.auth.CreateAdmin("admin", "battery staple")
	require.NoError(t, err)
	assert.Equal(t, user.ID, reset.ID, "existing user keeps its id")
	_, err = e.auth.Authenticate("admin", "battery staple")
	assert.NoError(t, err)

	viewer, err := e.auth.Viewer(user.ID)
	require.NoError(t, err)
	assert.True(t, viewer.Authenticated)
	assert.Equal(t, "admin", viewer.Username)

	viewer, err = e.auth.Viewer(12345)
	require.NoError(t, err)
	assert.Equal(t, Anonymous, viewer)
}
