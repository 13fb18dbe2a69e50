// Package server assembles the gin engine: templates, sessions, middleware
// and routes.
package server

import (
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"dbsite/internal/config"
	"dbsite/internal/constants"
	"dbsite/internal/handlers"
	"dbsite/internal/metrics"
	"dbsite/internal/repository"
	"dbsite/internal/services"
	"dbsite/internal/storage"

	"github.com/gin-contrib/multitemplate"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the resources the router is built from.
type Deps struct {
	Config    *config.Config
	DB        *gorm.DB
	Logger    *zap.Logger
	Templates fs.FS
	Static    fs.FS
	Store     storage.Store
}

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string {
		return t.Format("2006-01-02 15:04")
	},
	"datePtr": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format("2006-01-02 15:04")
	},
}

// CreateRenderer parses every page together with the layout and partials it uses.
func CreateRenderer(templatesFS fs.FS) (multitemplate.Renderer, error) {
	r := multitemplate.NewRenderer()

	var parseErr error
	add := func(name string, files ...string) {
		if parseErr != nil {
			return
		}
		tpl, err := template.New(files[0]).Funcs(templateFuncs).ParseFS(templatesFS, files...)
		if err != nil {
			parseErr = err
			return
		}
		r.Add(name, tpl)
	}

	add("index.html", "base.html", "index.html", "_post_list.html", "_pagination.html")
	add("search.html", "base.html", "search.html", "_post_list.html", "_pagination.html")
	add("post.html", "base.html", "post.html")
	add("categories.html", "base.html", "categories.html")
	add("tags.html", "base.html", "tags.html")
	add("comment_form.html", "base.html", "comment_form.html")
	add("admin.html", "base.html", "admin.html", "_pagination.html")
	add("login.html", "base.html", "login.html")
	add("404.html", "base.html", "404.html")
	add("error.html", "base.html", "error.html")

	return r, parseErr
}

// NewRouter wires repositories, services and handlers into a gin engine.
func NewRouter(d Deps) (*gin.Engine, error) {
	if d.Config == nil || d.DB == nil || d.Store == nil {
		return nil, errors.New("server: config, database and store are required")
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := d.Config

	renderer, err := CreateRenderer(d.Templates)
	if err != nil {
		return nil, err
	}
	m, metricsHandler, err := metrics.Setup("dbsite")
	if err != nil {
		return nil, err
	}

	// Repositories and services
	postRepo := repository.NewPostRepository(d.DB)
	categoryRepo := repository.NewCategoryRepository(d.DB)
	tagRepo := repository.NewTagRepository(d.DB)
	commentRepo := repository.NewCommentRepository(d.DB)
	imageRepo := repository.NewContentImageRepository(d.DB)
	userRepo := repository.NewUserRepository(d.DB)

	mediaService := services.NewMediaService(d.Store, cfg.Media.MaxUploadSize, logger)
	postService := services.NewPostService(postRepo, categoryRepo, tagRepo, imageRepo, mediaService, logger)
	taxonomyService := services.NewTaxonomyService(categoryRepo, tagRepo)
	commentService := services.NewCommentService(postRepo, commentRepo, logger)
	authService := services.NewAuthService(userRepo)

	m.ObservePending(commentService.PendingCounts)

	blogHandler := handlers.NewBlogHandler(postService)
	searchHandler := handlers.NewSearchHandler(postService)
	taxonomyHandler := handlers.NewTaxonomyHandler(taxonomyService)
	commentHandler := handlers.NewCommentHandler(commentService, m)
	authHandler := handlers.NewAuthHandler(authService)
	adminHandler := handlers.NewAdminHandler(postService, taxonomyService, commentService, mediaService.MaxSize())

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(handlers.RequestLogger(logger))
	r.Use(handlers.MetricsMiddleware(m))
	r.HTMLRender = renderer

	// Sessions
	store := cookie.NewStore([]byte(cfg.Server.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   14 * 24 * 3600,
		HttpOnly: true,
		Secure:   cfg.Server.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	r.Use(sessions.Sessions(constants.SessionName, store))
	r.Use(handlers.ViewerMiddleware(authService))

	// Static files and media
	if d.Static != nil {
		r.StaticFS("/static", http.FS(d.Static))
	}
	if local, ok := d.Store.(*storage.Local); ok {
		r.Static(cfg.Media.URLPrefix, local.Root())
	}
	r.GET("/metrics", gin.WrapH(metricsHandler))

	sidebar := handlers.SidebarMiddleware(taxonomyService)
	requireLogin := handlers.AuthMiddleware()

	// Public pages
	pages := r.Group("/", sidebar)
	{
		pages.GET("/", blogHandler.Index)
		pages.GET("/post/:id", blogHandler.ShowPost)
		pages.GET("/category/:slug", blogHandler.CategoryPosts)
		pages.GET("/tag/:slug", blogHandler.TagPosts)
		pages.GET("/search", searchHandler.Search)
		pages.GET("/categories", taxonomyHandler.Categories)
		pages.GET("/tags", taxonomyHandler.Tags)

		pages.GET("/post/:id/comment", commentHandler.CommentForm)
		pages.POST("/post/:id/comment", commentHandler.SubmitComment)
		pages.GET("/comment/:id/reply", commentHandler.ReplyForm)
		pages.POST("/comment/:id/reply", commentHandler.SubmitReply)

		pages.GET("/login", authHandler.ShowLoginPage)
		pages.POST("/login", authHandler.Login)
		pages.GET("/logout", authHandler.Logout)
	}

	// Moderation
	moderation := r.Group("/", requireLogin)
	{
		moderation.POST("/comment/:id/approve", commentHandler.ApproveComment)
		moderation.POST("/comment/:id/remove", commentHandler.RemoveComment)
		moderation.POST("/reply/:id/approve", commentHandler.ApproveReply)
		moderation.POST("/reply/:id/remove", commentHandler.RemoveReply)
	}

	// Admin area
	admin := r.Group("/admin", requireLogin)
	{
		admin.GET("/", sidebar, adminHandler.Dashboard)

		admin.GET("/posts/:id", adminHandler.GetPost)
		admin.POST("/posts", adminHandler.CreatePost)
		admin.POST("/posts/:id", adminHandler.UpdatePost)
		admin.POST("/posts/:id/delete", adminHandler.DeletePost)
		admin.POST("/posts/:id/images", adminHandler.UploadContentImages)
		admin.POST("/images/:id/delete", adminHandler.DeleteContentImage)

		admin.GET("/categories", adminHandler.ListCategories)
		admin.POST("/categories", adminHandler.CreateCategory)
		admin.POST("/categories/:id", adminHandler.UpdateCategory)
		admin.POST("/categories/:id/delete", adminHandler.DeleteCategory)

		admin.GET("/tags", adminHandler.ListTags)
		admin.POST("/tags", adminHandler.CreateTag)
		admin.POST("/tags/:id", adminHandler.UpdateTag)
		admin.POST("/tags/:id/delete", adminHandler.DeleteTag)

		admin.POST("/comments/:id/approve", adminHandler.ApproveComment)
		admin.POST("/comments/:id/delete", adminHandler.DeleteComment)
		admin.POST("/replies/:id/approve", adminHandler.ApproveReply)
		admin.POST("/replies/:id/delete", adminHandler.DeleteReply)
	}

	// Fallback
	r.NoRoute(sidebar, blogHandler.NotFound)

	return r, nil
}
