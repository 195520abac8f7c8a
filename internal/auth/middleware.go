package auth

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/goodreads/internal/apperr"
	"github.com/mrlokans/goodreads/internal/entities"
	"github.com/mrlokans/goodreads/internal/services"
)

// Context keys for user data
const (
	ContextKeyUserID   = "auth_user_id"
	ContextKeyUsername = "auth_username"
	ContextKeyIsStaff  = "auth_is_staff"
	ContextKeyUser     = "auth_user"
	ContextKeyAuthType = "auth_type"
)

// AuthType indicates how the user was authenticated
type AuthType string

const (
	AuthTypeNone    AuthType = "none"
	AuthTypeSession AuthType = "session"
	AuthTypeBasic   AuthType = "basic"
)

// LoginPath is where anonymous visitors of guarded pages are sent.
const LoginPath = "/users/login"

// Middleware resolves the caller of every request. It never rejects a
// request by itself except for API calls with bad Basic credentials; guards
// are applied per route with RequireAuth.
type Middleware struct {
	service        *Service
	sessionManager *SessionManager
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(service *Service, sessionManager *SessionManager) *Middleware {
	return &Middleware{
		service:        service,
		sessionManager: sessionManager,
	}
}

// Handler returns a Gin middleware handler that authenticates requests.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeyAuthType, AuthTypeNone)

		if username, password, ok := c.Request.BasicAuth(); ok {
			user, err := m.service.VerifyCredentials(username, password)
			if err != nil {
				if isAPIRequest(c) {
					c.Header("WWW-Authenticate", `Basic realm="api"`)
					c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
						"error": "Invalid username/password.",
					})
					return
				}
			} else {
				setUserContext(c, user, AuthTypeBasic)
				c.Next()
				return
			}
		}

		if user := m.trySessionAuth(c); user != nil {
			setUserContext(c, user, AuthTypeSession)
		}
		c.Next()
	}
}

// trySessionAuth loads the user stored in the session. Stale sessions of
// deleted or deactivated users count as anonymous.
func (m *Middleware) trySessionAuth(c *gin.Context) *entities.User {
	if m.sessionManager == nil {
		return nil
	}

	userID := m.sessionManager.GetUserID(c.Request)
	if userID == 0 {
		return nil
	}

	user, err := m.service.GetUserByID(userID)
	if err != nil || !user.IsActive {
		return nil
	}
	return user
}

func setUserContext(c *gin.Context, user *entities.User, authType AuthType) {
	c.Set(ContextKeyUserID, user.ID)
	c.Set(ContextKeyUsername, user.Username)
	c.Set(ContextKeyIsStaff, user.IsStaff)
	c.Set(ContextKeyUser, user)
	c.Set(ContextKeyAuthType, authType)
}

// isAPIRequest determines if this is an API request vs web browser request.
func isAPIRequest(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}

// RequireAuth sends anonymous callers to the login page, or answers 401 on
// the API.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetUserID(c) != 0 {
			c.Next()
			return
		}
		if isAPIRequest(c) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": apperr.LoginRequired().Error(),
			})
			return
		}
		c.Redirect(http.StatusFound, LoginURL(c.Request.URL.RequestURI()))
		c.Abort()
	}
}

// RequireStaff answers 403 to callers without the staff flag. It must run
// after RequireAuth.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetBool(ContextKeyIsStaff) {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error": apperr.Forbidden("staff access required").Error(),
		})
	}
}

// LoginURL returns the login page address that comes back to next.
func LoginURL(next string) string {
	if next == "" {
		return LoginPath
	}
	return LoginPath + "?next=" + url.QueryEscape(next)
}

// SafeRedirect returns next when it is a local path, else fallback.
func SafeRedirect(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}
	return next
}

// GetUserID retrieves the authenticated user's ID from the context.
// Returns 0 for anonymous callers.
func GetUserID(c *gin.Context) uint {
	if id, exists := c.Get(ContextKeyUserID); exists {
		if userID, ok := id.(uint); ok {
			return userID
		}
	}
	return 0
}

// GetUsername retrieves the authenticated user's username from the context.
func GetUsername(c *gin.Context) string {
	return c.GetString(ContextKeyUsername)
}

// GetUser returns the authenticated user, or nil.
func GetUser(c *gin.Context) *entities.User {
	if u, exists := c.Get(ContextKeyUser); exists {
		if user, ok := u.(*entities.User); ok {
			return user
		}
	}
	return nil
}

// GetAuthType retrieves the authentication method used.
func GetAuthType(c *gin.Context) AuthType {
	if t, exists := c.Get(ContextKeyAuthType); exists {
		if authType, ok := t.(AuthType); ok {
			return authType
		}
	}
	return AuthTypeNone
}

// IsAuthenticated returns true if the request is authenticated.
func IsAuthenticated(c *gin.Context) bool {
	return GetUserID(c) != 0
}

// CurrentIdentity is the caller as seen by the service layer.
func CurrentIdentity(c *gin.Context) services.Identity {
	return services.Identity{
		UserID:   GetUserID(c),
		Username: GetUsername(c),
		IsStaff:  c.GetBool(ContextKeyIsStaff),
	}
}
