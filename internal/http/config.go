package http

import (
	"github.com/mrlokans/goodreads/internal/auth"
	"github.com/mrlokans/goodreads/internal/media"
	"github.com/mrlokans/goodreads/internal/services"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core services
	Books   *services.BookService
	Reviews *services.ReviewService
	Media   *media.Store

	// Authentication
	AuthService    *auth.Service
	SessionManager *auth.SessionManager
	AuthMiddleware *auth.Middleware
	RateLimiter    *auth.RateLimiter
	LoginAuditor   auth.LoginAuditor
	CSRFSecret     []byte // Empty disables CSRF checks (tests only)
	SecureCookies  bool

	// UI paths
	TemplatesPath string
	StaticPath    string

	// Listing
	PageSize    int
	APIPageSize int
	MaxPageSize int

	// BaseURL prefixes API pagination links. Derived from the request when empty.
	BaseURL string

	// APIReviewPolicy decides who may change reviews through the API.
	APIReviewPolicy services.OwnershipPolicy
	// APIWriteThrottle limits review writes per user. Nil disables it.
	APIWriteThrottle *auth.WriteThrottle

	// Staff endpoints. A nil Tasks answers 503 on the task routes.
	Audit              AuditEventLister
	Tasks              TaskQueue
	AuditRetentionDays int

	// Health and metrics
	Database       Pinger
	Version        string
	MetricsEnabled bool
}
