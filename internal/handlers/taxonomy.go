package handlers

import (
	"net/http"

	"dbsite/internal/services"

	"github.com/gin-gonic/gin"
)

type TaxonomyHandler struct {
	taxonomyService *services.TaxonomyService
}

func NewTaxonomyHandler(taxonomyService *services.TaxonomyService) *TaxonomyHandler {
	return &TaxonomyHandler{taxonomyService: taxonomyService}
}

func (h *TaxonomyHandler) Categories(c *gin.Context) {
	categories, err := h.taxonomyService.Categories()
	if err != nil {
		handleError(c, err)
		return
	}
	render(c, http.StatusOK, "categories.html", gin.H{
		"categories": categories,
	})
}

func (h *TaxonomyHandler) Tags(c *gin.Context) {
	tags, err := h.taxonomyService.Tags()
	if err != nil {
		handleError(c, err)
		return
	}
	render(c, http.StatusOK, "tags.html", gin.H{
		"tags": tags,
	})
}
