package handlers

import (
	"net/http"

	"dbsite/internal/services"
	"dbsite/internal/utils"

	"github.com/gin-gonic/gin"
)

type BlogHandler struct {
	postService *services.PostService
}

func NewBlogHandler(postService *services.PostService) *BlogHandler {
	return &BlogHandler{postService: postService}
}

func (h *BlogHandler) Index(c *gin.Context) {
	page, err := h.postService.GetPostsPage(c.Query("page"))
	if err != nil {
		handleError(c, err)
		return
	}

	render(c, http.StatusOK, "index.html", gin.H{
		"posts":      page.Posts,
		"Pagination": utils.GeneratePagination(page.Pager.Number, page.Pager.TotalPages),
		"Title":      "Latest posts",
		"is_index":   true,
	})
}

func (h *BlogHandler) ShowPost(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		h.NotFound(c)
		return
	}

	post, err := h.postService.GetPost(id, viewerFrom(c))
	if err != nil {
		handleError(c, err)
		return
	}

	render(c, http.StatusOK, "post.html", gin.H{
		"post": post,
	})
}

func (h *BlogHandler) CategoryPosts(c *gin.Context) {
	category, posts, err := h.postService.GetCategoryPosts(c.Param("slug"))
	if err != nil {
		handleError(c, err)
		return
	}

	render(c, http.StatusOK, "index.html", gin.H{
		"posts":    posts,
		"Title":    "Category: " + category.Name,
		"category": category,
	})
}

func (h *BlogHandler) TagPosts(c *gin.Context) {
	tag, posts, err := h.postService.GetTagPosts(c.Param("slug"))
	if err != nil {
		handleError(c, err)
		return
	}

	render(c, http.StatusOK, "index.html", gin.H{
		"posts": posts,
		"Title": "Tag: " + tag.Name,
		"tag":   tag,
	})
}

func (h *BlogHandler) NotFound(c *gin.Context) {
	render(c, http.StatusNotFound, "404.html", gin.H{})
}
