package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"unicode/utf8"

	"dbsite/internal/models"
	"dbsite/internal/repository"
	"dbsite/internal/utils"

	"go.uber.org/zap"
)

const (
	// PageSize is the number of posts on one listing page.
	PageSize = 3

	excerptLength = 150
)

// PostPage is one page of a post listing.
type PostPage struct {
	Posts []models.RenderedPost
	Pager utils.Pager
}

// PostInput is the editable part of a post. A nil Image keeps the current
// cover image.
type PostInput struct {
	Title       string
	Content     string
	Description string
	CategoryID  uint
	TagIDs      []uint
	IsPublic    bool
	Image       *multipart.FileHeader
}

type PostService struct {
	repo       *repository.PostRepository
	categories *repository.CategoryRepository
	tags       *repository.TagRepository
	images     *repository.ContentImageRepository
	media      *MediaService
	logger     *zap.Logger
}

func NewPostService(
	repo *repository.PostRepository,
	categories *repository.CategoryRepository,
	tags *repository.TagRepository,
	images *repository.ContentImageRepository,
	media *MediaService,
	logger *zap.Logger,
) *PostService {
	return &PostService{
		repo:       repo,
		categories: categories,
		tags:       tags,
		images:     images,
		media:      media,
		logger:     logger,
	}
}

// GetPostsPage lists every post, newest first. page is the raw "page" query
// value; an invalid or out of range page is ErrNotFound.
func (s *PostService) GetPostsPage(page string) (*PostPage, error) {
	return s.page(repository.PostFilter{}, page)
}

// GetCategoryPosts lists every post of the category with the given slug.
func (s *PostService) GetCategoryPosts(slug string) (*models.Category, []models.RenderedPost, error) {
	category, err := s.categories.FindBySlug(slug)
	if err != nil {
		return nil, nil, err
	}
	posts, err := s.all(repository.PostFilter{CategoryID: category.ID})
	if err != nil {
		return nil, nil, err
	}
	return category, posts, nil
}

// GetTagPosts lists every post carrying the tag with the given slug.
func (s *PostService) GetTagPosts(slug string) (*models.Tag, []models.RenderedPost, error) {
	tag, err := s.tags.FindBySlug(slug)
	if err != nil {
		return nil, nil, err
	}
	posts, err := s.all(repository.PostFilter{TagID: tag.ID})
	if err != nil {
		return nil, nil, err
	}
	return tag, posts, nil
}

// SearchPostsPage matches query against titles, contents, category names and
// tag names. An empty query lists every post; whitespace is matched as is.
func (s *PostService) SearchPostsPage(query, page string) (*PostPage, error) {
	return s.page(repository.PostFilter{Query: query}, page)
}

func (s *PostService) all(filter repository.PostFilter) ([]models.RenderedPost, error) {
	posts, err := s.repo.FindPage(filter, 0, -1)
	if err != nil {
		return nil, err
	}
	return s.renderSummaries(posts), nil
}

func (s *PostService) page(filter repository.PostFilter, raw string) (*PostPage, error) {
	total, err := s.repo.Count(filter)
	if err != nil {
		return nil, err
	}
	pager, err := utils.ResolvePage(raw, total, PageSize)
	if err != nil {
		return nil, fmt.Errorf("%w: page %q", ErrNotFound, raw)
	}
	posts, err := s.repo.FindPage(filter, pager.Offset(), pager.Size)
	if err != nil {
		return nil, err
	}

	return &PostPage{Posts: s.renderSummaries(posts), Pager: pager}, nil
}

func (s *PostService) renderSummaries(posts []models.Post) []models.RenderedPost {
	rendered := make([]models.RenderedPost, len(posts))
	for i := range posts {
		rendered[i] = *s.renderSummary(&posts[i])
	}
	return rendered
}

// GetPost returns the detail view of a post. Posts that are not public are
// reported as missing to anonymous viewers.
func (s *PostService) GetPost(id uint, viewer Viewer) (*models.RenderedPost, error) {
	post, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	if !post.IsPublic && !viewer.Authenticated {
		return nil, ErrNotFound
	}

	rendered := s.renderSummary(post)
	rendered.Content, err = utils.RenderMarkdown(post.Content)
	if err != nil {
		return nil, fmt.Errorf("render post %d: %w", post.ID, err)
	}
	rendered.Comments = post.Comments
	rendered.ContentImages = make([]models.RenderedImage, len(post.ContentImages))
	for i, img := range post.ContentImages {
		rendered.ContentImages[i] = models.RenderedImage{ID: img.ID, URL: s.media.URL(img.Image)}
	}
	return rendered, nil
}

func (s *PostService) renderSummary(post *models.Post) *models.RenderedPost {
	return &models.RenderedPost{
		ID:          post.ID,
		Title:       post.Title,
		Description: post.Description,
		Excerpt:     utils.GenerateExcerpt(post.Description, post.Content, excerptLength),
		ImageURL:    s.media.URL(post.Image),
		Category:    post.Category,
		Tags:        post.Tags,
		CreatedAt:   post.CreatedAt,
		UpdatedAt:   post.UpdatedAt,
		PublishedAt: post.PublishedAt,
		IsPublic:    post.IsPublic,
	}
}

// GetPostByID loads a post for editing, regardless of visibility.
func (s *PostService) GetPostByID(id uint) (*models.Post, error) {
	return s.repo.FindByID(id)
}

// GetPostsPageByAdmin lists every post for the dashboard. Unlike the public
// listing, an out of range page is clamped to the first or last page. It
// returns the page number actually used.
func (s *PostService) GetPostsPageByAdmin(page, pageSize int) ([]models.Post, int64, int, error) {
	total, err := s.repo.Count(repository.PostFilter{})
	if err != nil {
		return nil, 0, 0, err
	}
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}
	posts, err := s.repo.FindPage(repository.PostFilter{}, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, 0, err
	}
	return posts, total, page, nil
}

func (s *PostService) CreatePost(ctx context.Context, in PostInput) (*models.Post, error) {
	tags, err := s.validate(in)
	if err != nil {
		return nil, err
	}

	post := &models.Post{}
	applyInput(post, in)

	if in.Image != nil {
		key, err := s.media.SaveFile(ctx, PostImagePrefix, "image", in.Image)
		if err != nil {
			return nil, err
		}
		post.Image = key
	}

	if err := s.repo.Create(post, tags); err != nil {
		s.media.Remove(ctx, post.Image)
		return nil, err
	}
	return post, nil
}

func (s *PostService) UpdatePost(ctx context.Context, id uint, in PostInput) (*models.Post, error) {
	post, err := s.repo.FindByID(id)
	if err != nil {
		return nil, err
	}
	tags, err := s.validate(in)
	if err != nil {
		return nil, err
	}

	applyInput(post, in)

	oldImage := post.Image
	if in.Image != nil {
		key, err := s.media.SaveFile(ctx, PostImagePrefix, "image", in.Image)
		if err != nil {
			return nil, err
		}
		post.Image = key
	}

	if err := s.repo.Update(post, tags); err != nil {
		if post.Image != oldImage {
			s.media.Remove(ctx, post.Image)
		}
		return nil, err
	}
	if post.Image != oldImage {
		s.media.Remove(ctx, oldImage)
	}
	return post, nil
}

func applyInput(post *models.Post, in PostInput) {
	post.Title = strings.TrimSpace(in.Title)
	post.Content = in.Content
	post.Description = strings.TrimSpace(in.Description)
	post.CategoryID = in.CategoryID
	post.Category = models.Category{}
	post.IsPublic = in.IsPublic
}

func (s *PostService) validate(in PostInput) ([]models.Tag, error) {
	v := &ValidationError{}
	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		v.add("title", "This field is required.")
	case utf8.RuneCountInString(title) > 255:
		v.add("title", "Ensure this value has at most 255 characters.")
	}
	if strings.TrimSpace(in.Content) == "" {
		v.add("content", "This field is required.")
	}

	if in.CategoryID == 0 {
		v.add("category_id", "This field is required.")
	} else if _, err := s.categories.FindByID(in.CategoryID); err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		v.add("category_id", "Select a valid category.")
	}

	tags, err := s.tags.FindByIDs(in.TagIDs)
	if err != nil {
		return nil, err
	}
	if len(tags) != len(uniqueIDs(in.TagIDs)) {
		v.add("tag_ids", "Select valid tags.")
	}
	return tags, v.err()
}

func uniqueIDs(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// DeletePost removes the post with its comments and replies. A post with
// content images is protected.
func (s *PostService) DeletePost(ctx context.Context, id uint) error {
	post, err := s.repo.FindByID(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.media.Remove(ctx, post.Image)
	return nil
}

// AddContentImages stores each upload as an inline image of the post. It
// stops at the first rejected file and returns the images created so far.
func (s *PostService) AddContentImages(ctx context.Context, postID uint, files []*multipart.FileHeader) ([]models.ContentImage, error) {
	exists, err := s.repo.Exists(postID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	if len(files) == 0 {
		return nil, invalid("content_images", "No file was submitted.")
	}

	created := make([]models.ContentImage, 0, len(files))
	for _, fh := range files {
		key, err := s.media.SaveFile(ctx, ContentImagePrefix, "content_images", fh)
		if err != nil {
			return created, err
		}
		image := models.ContentImage{PostID: postID, Image: key}
		if err := s.images.Create(&image); err != nil {
			s.media.Remove(ctx, key)
			return created, err
		}
		created = append(created, image)
	}
	return created, nil
}

func (s *PostService) DeleteContentImage(ctx context.Context, id uint) error {
	image, err := s.images.FindByID(id)
	if err != nil {
		return err
	}
	if err := s.images.Delete(id); err != nil {
		return err
	}
	s.media.Remove(ctx, image.Image)
	return nil
}

// ContentImageURL exposes the media URL of a stored key to handlers.
func (s *PostService) ContentImageURL(key string) string {
	return s.media.URL(key)
}
