package handlers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"dbsite/internal/constants"
	"dbsite/internal/services"
	"dbsite/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	adminPageSize     = 10
	pendingLimit      = 50
	maxImagesPerPost  = 10
	formOverheadBytes = 1 << 20
)

type AdminHandler struct {
	postService     *services.PostService
	taxonomyService *services.TaxonomyService
	commentService  *services.CommentService
	maxUploadSize   int64
}

func NewAdminHandler(
	postService *services.PostService,
	taxonomyService *services.TaxonomyService,
	commentService *services.CommentService,
	maxUploadSize int64,
) *AdminHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = services.DefaultMaxUploadSize
	}
	return &AdminHandler{
		postService:     postService,
		taxonomyService: taxonomyService,
		commentService:  commentService,
		maxUploadSize:   maxUploadSize,
	}
}

func (h *AdminHandler) Dashboard(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))

	posts, total, page, err := h.postService.GetPostsPageByAdmin(page, adminPageSize)
	if err != nil {
		handleError(c, err)
		return
	}
	pendingComments, pendingReplies, err := h.commentService.Pending(pendingLimit)
	if err != nil {
		handleError(c, err)
		return
	}
	categories, err := h.taxonomyService.Categories()
	if err != nil {
		handleError(c, err)
		return
	}
	tags, err := h.taxonomyService.Tags()
	if err != nil {
		handleError(c, err)
		return
	}

	totalPages := int((total + adminPageSize - 1) / adminPageSize)

	session := sessions.Default(c)
	flashes := session.Flashes(constants.SessionKeySuccessFlash)
	session.Save() // Clear flashes after reading

	render(c, http.StatusOK, "admin.html", gin.H{
		"posts":           posts,
		"Pagination":      utils.GeneratePagination(page, totalPages),
		"pendingComments": pendingComments,
		"pendingReplies":  pendingReplies,
		"categories":      categories,
		"tags":            tags,
		"Flashes":         flashes,
	})
}

func (h *AdminHandler) GetPost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		handleJSONError(c, services.ErrNotFound)
		return
	}
	post, err := h.postService.GetPostByID(id)
	if err != nil {
		handleJSONError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "success",
		"post":      post,
		"image_url": h.postService.ContentImageURL(post.Image),
	})
}

func (h *AdminHandler) CreatePost(c *gin.Context) {
	in, ok := h.postInput(c)
	if !ok {
		return
	}
	post, err := h.postService.CreatePost(c.Request.Context(), in)
	if err != nil {
		handleJSONError(c, err)
		return
	}
	flash(c, "Post created")
	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"message": "Post created",
		"post_id": post.ID,
	})
}

func (h *AdminHandler) UpdatePost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		handleJSONError(c, services.ErrNotFound)
		return
	}
	in, ok := h.postInput(c)
	if !ok {
		return
	}
	post, err := h.postService.UpdatePost(c.Request.Context(), id, in)
	if err != nil {
		handleJSONError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Post saved",
		"post_id": post.ID,
	})
}

func (h *AdminHandler) DeletePost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		handleJSONError(c, services.ErrNotFound)
		return
	}
	if err := h.postService.DeletePost(c.Request.Context(), id); err != nil {
		handleJSONError(c, err)
		return
	}
	flash(c, "Post deleted")
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Post deleted"})
}

func (h *AdminHandler) UploadContentImages(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		handleJSONError(c, services.ErrNotFound)
		return
	}
	if !h.parseForm(c, h.maxUploadSize*maxImagesPerPost+formOverheadBytes) {
		return
	}

	var files []*multipart.FileHeader
	if c.Request.MultipartForm != nil {
		files = c.Request.MultipartForm.File["content_images"]
	}
	if len(files) > maxImagesPerPost {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Too many files"})
		return
	}

	images, err := h.postService.AddContentImages(c.Request.Context(), id, files)
	if err != nil {
		handleJSONError(c, err)
		return
	}

	uploaded := make([]gin.H, len(images))
	for i, img := range images {
		uploaded[i] = gin.H{"id": img.ID, "url": h.postService.ContentImageURL(img.Image)}
	}
	c.JSON(http.StatusCreated, gin.H{
		"status":  "success",
		"message": strconv.Itoa(len(images)) + " image(s) uploaded",
		"images":  uploaded,
	})
}

func (h *AdminHandler) DeleteContentImage(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		handleJSONError(c, services.ErrNotFound)
		return
	}
	if err := h.postService.DeleteContentImage(c.Request.Context(), id); err != nil {
		handleJSONError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Image deleted"})
}

func (h *AdminHandler) ListCategories(c *gin.Context) {
	categories, err := h.taxonomyService.Categories()
	if err != nil {
		handleJSONError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "categories": categories})
}

func (h *AdminHandler) CreateCategory(c *gin.Context) {
	category, err := h.taxonomyService.CreateCategory(c.PostForm("name"), c.PostForm("slug"))
	if err != nil {
		handleJSONError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "message": "Category created", "category": category})
}

func (h *AdminHandler) UpdateCategory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		handleJSONError(c, services.ErrNotFound)
		return
	}
	category, err := h.taxonomyService.UpdateCategory(id, c.PostForm("name"), c.PostForm("slug"))
	if err != nil {
		handleJSONError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Category saved", "category": category})
}

func (h *AdminHandler) DeleteCategory(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		handleJSONError(c, services.ErrNotFound)
		return
	}
	if err := h.taxonomyService.DeleteCategory(id); err != nil {
		handleJSONError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Category deleted"})
}

func (h *AdminHandler) ListTags(c *gin.Context) {
	tags, err := h.taxonomyService.Tags()
	if err != nil {
		handleJSONError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "tags": tags})
}

func (h *AdminHandler) CreateTag(c *gin.Context) {
	tag, err := h.taxonomyService.CreateTag(c.PostForm("name"), c.PostForm("slug"))
	if err != nil {
		handleJSONError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "success", "message": "Tag created", "tag": tag})
}

func (h *AdminHandler) UpdateTag(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		handleJSONError(c, services.ErrNotFound)
		return
	}
	tag, err := h.taxonomyService.UpdateTag(id, c.PostForm("name"), c.PostForm("slug"))
	if err != nil {
		handleJSONError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Tag saved", "tag": tag})
}

func (h *AdminHandler) DeleteTag(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		handleJSONError(c, services.ErrNotFound)
		return
	}
	if err := h.taxonomyService.DeleteTag(id); err != nil {
		handleJSONError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Tag deleted"})
}

func (h *AdminHandler) ApproveComment(c *gin.Context) {
	h.moderate(c, h.commentService.ApproveComment, "Comment approved")
}

func (h *AdminHandler) DeleteComment(c *gin.Context) {
	h.moderate(c, h.commentService.RemoveComment, "Comment deleted")
}

func (h *AdminHandler) ApproveReply(c *gin.Context) {
	h.moderate(c, h.commentService.ApproveReply, "Reply approved")
}

func (h *AdminHandler) DeleteReply(c *gin.Context) {
	h.moderate(c, h.commentService.RemoveReply, "Reply deleted")
}

func (h *AdminHandler) moderate(c *gin.Context, action func(uint, services.Viewer) (uint, error), message string) {
	id, ok := idParam(c, "id")
	if !ok {
		handleJSONError(c, services.ErrNotFound)
		return
	}
	postID, err := action(id, viewerFrom(c))
	if err != nil {
		handleJSONError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": message, "post_id": postID})
}

// postInput reads the post form. It writes the error response itself and
// reports false when the request cannot be used.
func (h *AdminHandler) postInput(c *gin.Context) (services.PostInput, bool) {
	if !h.parseForm(c, h.maxUploadSize+formOverheadBytes) {
		return services.PostInput{}, false
	}

	categoryID, _ := strconv.ParseUint(c.PostForm("category_id"), 10, 64)
	in := services.PostInput{
		Title:       c.PostForm("title"),
		Content:     c.PostForm("content"),
		Description: c.PostForm("description"),
		CategoryID:  uint(categoryID),
		IsPublic:    checked(c.PostForm("is_public")),
	}
	for _, raw := range c.PostFormArray("tag_ids") {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid tag id " + strconv.Quote(raw)})
			return services.PostInput{}, false
		}
		in.TagIDs = append(in.TagIDs, uint(id))
	}

	if c.Request.MultipartForm != nil {
		if files := c.Request.MultipartForm.File["image"]; len(files) > 0 {
			in.Image = files[0]
		}
	}
	return in, true
}

// parseForm reads a multipart or urlencoded body of at most limit bytes.
func (h *AdminHandler) parseForm(c *gin.Context, limit int64) bool {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	err := c.Request.ParseMultipartForm(32 << 20)
	// Plain urlencoded forms are fine for requests without files.
	if err == nil || errors.Is(err, http.ErrNotMultipart) {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"status": "error", "message": "Upload too large"})
		return false
	}
	c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "Invalid form data"})
	return false
}

func checked(v string) bool {
	switch v {
	case "on", "true", "1":
		return true
	}
	return false
}

// flash queues a message for the next dashboard render.
func flash(c *gin.Context, message string) {
	session := sessions.Default(c)
	session.AddFlash(message, constants.SessionKeySuccessFlash)
	session.Save()
}
