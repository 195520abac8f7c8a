package http

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/goodreads/internal/auth"
	"github.com/mrlokans/goodreads/internal/media"
	"github.com/mrlokans/goodreads/internal/metrics"
)

// hstsMaxAge is one year.
const hstsMaxAge = 31536000

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	if cfg.MetricsEnabled {
		router.Use(metrics.GinMiddleware())
	}

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware(hstsMaxAge))
	}

	// Sessions load before authentication reads them
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}
	router.Use(cfg.AuthMiddleware.Handler())

	// CSRF runs after authentication so Basic-authenticated API calls skip it
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}

	templates, err := LoadTemplates(cfg.TemplatesPath)
	if err != nil {
		log.Fatalf("Failed to load templates: %v", err)
	}
	router.HTMLRender = templates

	// Serve static files and uploads
	router.Static("/static", cfg.StaticPath)
	if cfg.Media != nil {
		router.Static(media.URLPrefix, cfg.Media.Dir())
	}

	pages := NewPages(cfg.SessionManager)
	requireAuth := cfg.AuthMiddleware.RequireAuth()

	health := NewHealthController(cfg.Version)
	if cfg.Database != nil {
		health.AddCheck("database", DatabaseCheck(cfg.Database))
	}
	if cfg.Media != nil {
		health.AddCheck("media", MediaCheck(cfg.Media.Dir()))
	}
	authController := auth.NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.RateLimiter, pages.Render, cfg.LoginAuditor)
	usersController := NewUsersController(cfg.AuthService, cfg.Media, pages)
	booksController := NewBooksController(cfg.Books, cfg.Media, pages, cfg.PageSize, cfg.MaxPageSize)
	reviewsController := NewReviewsController(cfg.Reviews, cfg.Books, pages, cfg.PageSize, cfg.MaxPageSize)
	reviewsAPI := NewReviewsAPIController(cfg.Reviews, cfg.APIReviewPolicy, cfg.APIPageSize, cfg.MaxPageSize, cfg.BaseURL)
	adminController := NewAdminController(cfg.Audit, cfg.Tasks, cfg.AuditRetentionDays, cfg.MaxPageSize)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)
	if cfg.MetricsEnabled {
		router.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	// User routes
	authController.RegisterRoutes(router)
	router.GET("/users/register", usersController.RegisterPage)
	router.POST("/users/register", usersController.Register)
	router.GET("/users/profile", requireAuth, usersController.ProfilePage)
	router.GET("/users/profile/update", requireAuth, usersController.ProfileUpdatePage)
	router.POST("/users/profile/update", requireAuth, usersController.ProfileUpdate)

	// Book and review pages
	router.GET("/", reviewsController.HomePage)
	router.GET("/books/", booksController.BooksPage)
	router.GET("/books/:id", booksController.BookPage)
	router.GET("/books/:id/update", requireAuth, booksController.UpdatePage)
	router.POST("/books/:id/update", requireAuth, booksController.Update)
	router.POST("/books/:id/review", requireAuth, reviewsController.Create)
	router.GET("/books/:id/review/:reviewId/edit", requireAuth, reviewsController.EditPage)
	router.POST("/books/:id/review/:reviewId/edit", requireAuth, reviewsController.Edit)
	router.GET("/books/:id/review/:reviewId/delete", requireAuth, reviewsController.DeletePage)
	router.POST("/books/:id/review/:reviewId/delete", requireAuth, reviewsController.Delete)

	// Reviews API, with and without the trailing slash
	throttle := cfg.APIWriteThrottle.Middleware()
	for _, base := range []string{"/api/reviews", "/api/reviews/"} {
		router.GET(base, reviewsAPI.List)
		router.POST(base, requireAuth, throttle, reviewsAPI.Create)
	}
	for _, item := range []string{"/api/reviews/:id", "/api/reviews/:id/"} {
		router.GET(item, reviewsAPI.Get)
		router.PUT(item, requireAuth, throttle, reviewsAPI.Replace)
		router.PATCH(item, requireAuth, throttle, reviewsAPI.Patch)
		router.DELETE(item, requireAuth, throttle, reviewsAPI.Delete)
	}

	adminController.RegisterRoutes(router, requireAuth)

	return router
}
