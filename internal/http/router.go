package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/ebooklib/internal/auth"
	"github.com/mrlokans/ebooklib/internal/logging"
)

const csrfTokenPath = "/auth/csrf"

// unthrottledRoutes are health endpoints and cheap cacheable assets. A
// catalog page fans out into one cover request per ebook.
var unthrottledRoutes = []string{"/", "/health", "/ping", "/metrics", "/ebooks/:id/cover"}

// Router wraps the gin engine with the background resources it owns.
type Router struct {
	*gin.Engine
	throttle *Throttle
}

// Stop releases background goroutines started by the router.
func (r *Router) Stop() {
	if r.throttle != nil {
		r.throttle.Stop()
	}
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *Router {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logging.Middleware())
	if cfg.Metrics != nil {
		router.Use(cfg.Metrics.Middleware())
	}

	router.Use(auth.SecurityHeaders(cfg.SecureCookies))
	router.Use(CORSMiddleware(cfg.AllowedOrigins))

	// CSRF must run before session so that session context is preserved
	if cfg.CSRF != nil {
		router.Use(auth.CSRFMiddleware(*cfg.CSRF, csrfTokenPath))
	}
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}
	router.Use(cfg.AuthMiddleware.Handler())

	wrapped := &Router{Engine: router}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		wrapped.throttle = NewThrottle(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, unthrottledRoutes...)
		router.Use(wrapped.throttle.Middleware())
	}

	requireAuth := cfg.AuthMiddleware.RequireAuth()
	requireAdmin := cfg.AuthMiddleware.RequireAdmin()

	// Avoid storing a typed nil in the interface
	var downloads DownloadRecorder
	if cfg.Metrics != nil {
		downloads = cfg.Metrics
	}

	health := NewHealthController(cfg.Database, cfg.Files, cfg.Version)
	ebooksController := NewEbooksController(cfg.Ebooks, cfg.Library, cfg.Activity, cfg.CatalogAuditor, downloads, cfg.MaxUploadBytes)
	favouritesController := NewFavouritesController(cfg.Favourites, cfg.Ebooks)
	reviewsController := NewReviewsController(cfg.Reviews, cfg.Ebooks)
	usersController := NewUsersController(cfg.Favourites, cfg.Activity)
	adminController := NewAdminController(cfg.Stats, cfg.AuditReader, cfg.Maintenance)

	// Health endpoints
	router.GET("/", health.Welcome)
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)
	if cfg.Metrics != nil {
		router.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	if cfg.AuthController != nil {
		cfg.AuthController.RegisterRoutes(router)
	}

	// Current user
	users := router.Group("/users/me", requireAuth)
	users.GET("", usersController.Me)
	users.GET("/favorites", usersController.Favourites)
	users.GET("/history", usersController.History)

	// Catalog
	router.GET("/categories", ebooksController.Categories)
	router.GET("/ebooks", ebooksController.List)
	router.POST("/ebooks", requireAdmin, ebooksController.Create)
	router.GET("/ebooks/:id", ebooksController.Get)
	router.PUT("/ebooks/:id", requireAdmin, ebooksController.Update)
	router.DELETE("/ebooks/:id", requireAdmin, ebooksController.Delete)
	router.GET("/ebooks/:id/download", requireAuth, ebooksController.Download)
	router.GET("/ebooks/:id/read", ebooksController.Read)
	router.GET("/ebooks/:id/cover", ebooksController.Cover)

	// Favourites
	router.GET("/ebooks/:id/favorite", requireAuth, favouritesController.Status)
	router.POST("/ebooks/:id/favorite", requireAuth, favouritesController.AddFavourite)
	router.DELETE("/ebooks/:id/favorite", requireAuth, favouritesController.RemoveFavourite)

	// Reviews
	router.GET("/ebooks/:id/reviews", reviewsController.List)
	router.POST("/ebooks/:id/reviews", requireAuth, reviewsController.Create)
	router.GET("/ebooks/:id/rating", reviewsController.Rating)

	// Admin
	admin := router.Group("/admin", requireAdmin)
	admin.GET("/stats/most-downloaded", adminController.MostDownloaded)
	admin.GET("/stats/summary", adminController.Summary)
	admin.GET("/monitoring/latest", adminController.Latest)
	admin.GET("/audit", adminController.AuditLog)
	admin.GET("/maintenance", adminController.MaintenanceStatus)
	admin.POST("/maintenance/run", adminController.RunMaintenance)

	return wrapped
}
