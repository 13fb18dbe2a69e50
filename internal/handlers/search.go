package handlers

import (
	"net/http"

	"dbsite/internal/services"
	"dbsite/internal/utils"

	"github.com/gin-gonic/gin"
)

type SearchHandler struct {
	postService *services.PostService
}

func NewSearchHandler(postService *services.PostService) *SearchHandler {
	return &SearchHandler{postService: postService}
}

// Search renders matching posts. Without a query every post is listed.
func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("q")

	page, err := h.postService.SearchPostsPage(query, c.Query("page"))
	if err != nil {
		handleError(c, err)
		return
	}

	render(c, http.StatusOK, "search.html", gin.H{
		"posts":      page.Posts,
		"query":      query,
		"total":      page.Pager.Total,
		"Pagination": utils.GeneratePagination(page.Pager.Number, page.Pager.TotalPages),
	})
}
