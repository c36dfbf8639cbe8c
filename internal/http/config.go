package http

import (
	"github.com/mrlokans/ebooklib/internal/auth"
	"github.com/mrlokans/ebooklib/internal/config"
	"github.com/mrlokans/ebooklib/internal/metrics"
)

// RouterConfig holds all dependencies needed to create the HTTP router.
// Optional dependencies may be nil; the routes that need them are then
// registered in a degraded form or not at all.
type RouterConfig struct {
	Version string

	// Data access
	Database   Pinger
	Files      FileChecker // optional; checked by /health
	Ebooks     EbookReader
	Library    EbookManager
	Activity   ActivityStore
	Favourites FavouritesStore
	Reviews    ReviewStore
	Stats      StatsStore

	// Auditing and maintenance (optional)
	CatalogAuditor CatalogAuditor
	AuditReader    AuditReader
	Maintenance    MaintenanceRunner

	// Authentication
	AuthController *auth.AuthController
	AuthMiddleware *auth.Middleware
	SessionManager *auth.SessionManager // optional; nil disables cookie sessions
	CSRF           *auth.CSRFConfig     // optional; nil disables CSRF protection
	SecureCookies  bool                 // also enables HSTS

	// Cross-cutting
	AllowedOrigins []string
	RateLimit      config.RateLimit
	Metrics        *metrics.Metrics // optional
	MaxUploadBytes int64
}
