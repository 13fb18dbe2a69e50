package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"dbsite/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// handleError renders the page matching a service error.
func handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		render(c, http.StatusNotFound, "404.html", gin.H{})
	case errors.Is(err, services.ErrForbidden):
		c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
	default:
		_ = c.Error(err)
		loggerFrom(c).Error("request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		render(c, http.StatusInternalServerError, "error.html", gin.H{
			"error": "Something went wrong. Please try again later.",
		})
	}
}

// handleJSONError writes the admin JSON body for a service error.
func handleJSONError(c *gin.Context, err error) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": verr.Error(), "errors": verr.Fields})
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Not found"})
	case errors.Is(err, services.ErrProtected):
		c.JSON(http.StatusConflict, gin.H{"status": "error", "message": "Cannot delete: other records still reference it"})
	default:
		_ = c.Error(err)
		loggerFrom(c).Error("admin request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": "Internal server error"})
	}
}

// idParam parses a positive numeric path parameter. Anything else is treated
// as a missing row.
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
