package handlers

import (
	"net/http"
	"net/url"
	"time"

	"dbsite/internal/constants"
	"dbsite/internal/metrics"
	"dbsite/internal/models"
	"dbsite/internal/services"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLogger logs one line per request and makes the logger available to
// handlers.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Set(constants.ContextKeyLogger, logger)

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Int("size", c.Writer.Size()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Error("request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

// MetricsMiddleware records request counts and durations by route pattern.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Context(), c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// ViewerMiddleware resolves the session into a services.Viewer.
func ViewerMiddleware(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer := services.Anonymous

		session := sessions.Default(c)
		if id, ok := session.Get(constants.SessionKeyUserID).(uint); ok {
			v, err := authService.Viewer(id)
			if err != nil {
				loggerFrom(c).Warn("failed to resolve session user", zap.Uint("user_id", id), zap.Error(err))
			}
			viewer = v
		}

		c.Set(constants.ContextKeyViewer, viewer)
		c.Next()
	}
}

// AuthMiddleware sends anonymous viewers to the login page, remembering where
// they were headed.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !viewerFrom(c).Authenticated {
			c.Redirect(http.StatusFound, "/login?next="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.Next()
	}
}

// SidebarMiddleware adds every category and tag with its public post count
// to the context for the page layout.
func SidebarMiddleware(taxonomyService *services.TaxonomyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		categories, err := taxonomyService.Categories()
		if err != nil {
			// The page can still render without the sidebar.
			loggerFrom(c).Error("failed to load categories", zap.Error(err))
			categories = []models.CategoryCount{}
		}
		tags, err := taxonomyService.Tags()
		if err != nil {
			loggerFrom(c).Error("failed to load tags", zap.Error(err))
			tags = []models.TagCount{}
		}
		c.Set(constants.ContextKeyCategories, categories)
		c.Set(constants.ContextKeyTags, tags)
		c.Next()
	}
}

func viewerFrom(c *gin.Context) services.Viewer {
	if v, ok := c.Get(constants.ContextKeyViewer); ok {
		if viewer, ok := v.(services.Viewer); ok {
			return viewer
		}
	}
	return services.Anonymous
}

func loggerFrom(c *gin.Context) *zap.Logger {
	if l, ok := c.Get(constants.ContextKeyLogger); ok {
		if logger, ok := l.(*zap.Logger); ok {
			return logger
		}
	}
	return zap.NewNop()
}

// render is a helper function to render templates with common data.
func render(c *gin.Context, status int, templateName string, data gin.H) {
	if categories, ok := c.Get(constants.ContextKeyCategories); ok {
		data["SidebarCategories"] = categories
	}
	if tags, ok := c.Get(constants.ContextKeyTags); ok {
		data["SidebarTags"] = tags
	}

	viewer := viewerFrom(c)
	data["IsLoggedIn"] = viewer.Authenticated
	data["Viewer"] = viewer

	c.HTML(status, templateName, data)
}
