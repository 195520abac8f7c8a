package auth

import (
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/goodreads/internal/apperr"
)

// Messages shown by the login form.
const (
	MsgInvalidLogin    = "Please enter a correct username and password. Note that both fields may be case-sensitive."
	MsgTooManyAttempts = "Too many login attempts. Please try again later."
	MsgLoggedOut       = "You have been logged out"
)

// Renderer draws a full HTML page. The web layer supplies it so auth pages
// share the site layout.
type Renderer func(c *gin.Context, status int, name string, data gin.H)

// LoginAuditor records login and logout events.
type LoginAuditor interface {
	LogAuth(userID uint, action, ip, userAgent string, success bool)
}

// AuthController handles authentication-related HTTP endpoints.
type AuthController struct {
	service        *Service
	sessionManager *SessionManager
	rateLimiter    *RateLimiter
	render         Renderer
	auditor        LoginAuditor
}

// NewAuthController creates a new authentication controller. rateLimiter
// and auditor may be nil.
func NewAuthController(service *Service, sessionManager *SessionManager, rateLimiter *RateLimiter, render Renderer, auditor LoginAuditor) *AuthController {
	return &AuthController{
		service:        service,
		sessionManager: sessionManager,
		rateLimiter:    rateLimiter,
		render:         render,
		auditor:        auditor,
	}
}

// RegisterRoutes registers authentication routes on the router.
func (ac *AuthController) RegisterRoutes(router gin.IRouter) {
	router.GET(LoginPath, ac.LoginPage)
	router.POST(LoginPath, ac.Login)
	router.GET("/users/logout", ac.Logout)
	router.POST("/users/logout", ac.Logout)
}

// LoginPage renders the login form.
func (ac *AuthController) LoginPage(c *gin.Context) {
	if IsAuthenticated(c) {
		c.Redirect(http.StatusFound, "/")
		return
	}

	ac.renderLogin(c, http.StatusOK, gin.H{
		"Next": SafeRedirect(c.Query("next"), ""),
	})
}

// Login handles the login form submission.
func (ac *AuthController) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	next := SafeRedirect(c.PostForm("next"), "")
	clientIP := c.ClientIP()

	if ac.rateLimiter != nil {
		if allowed, retryAfter := ac.rateLimiter.Allow(clientIP, username); !allowed {
			if retryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(retryAfter.Round(time.Second).Seconds())))
			}
			ac.renderLogin(c, http.StatusTooManyRequests, gin.H{
				"Next":     next,
				"Username": username,
				"Error":    MsgTooManyAttempts,
			})
			return
		}
	}

	user, err := ac.service.Authenticate(username, password)
	if err != nil {
		if !apperr.IsAuthentication(err) {
			log.Printf("Login failed for %q: %v", username, err)
		}
		if ac.rateLimiter != nil {
			ac.rateLimiter.RecordFailure(clientIP, username)
		}
		if ac.auditor != nil {
			ac.auditor.LogAuth(0, "login", clientIP, c.Request.UserAgent(), false)
		}
		ac.renderLogin(c, http.StatusOK, gin.H{
			"Next":     next,
			"Username": username,
			"Error":    MsgInvalidLogin,
		})
		return
	}

	if ac.rateLimiter != nil {
		ac.rateLimiter.RecordSuccess(clientIP, username)
	}

	if err := ac.sessionManager.CreateSession(c.Request, user); err != nil {
		log.Printf("Failed to create session for %s: %v", user.Username, err)
		ac.renderLogin(c, http.StatusInternalServerError, gin.H{
			"Next":     next,
			"Username": username,
			"Error":    "Failed to create session",
		})
		return
	}
	if ac.auditor != nil {
		ac.auditor.LogAuth(user.ID, "login", clientIP, c.Request.UserAgent(), true)
	}

	ac.sessionManager.AddFlash(c.Request.Context(), FlashSuccess, "Welcome back, "+user.Username+"!")
	c.Redirect(http.StatusFound, SafeRedirect(next, "/"))
}

// Logout ends the session and returns to the home page.
func (ac *AuthController) Logout(c *gin.Context) {
	userID := GetUserID(c)
	if err := ac.sessionManager.DestroySession(c.Request); err != nil {
		log.Printf("Failed to destroy session: %v", err)
	}
	if userID != 0 && ac.auditor != nil {
		ac.auditor.LogAuth(userID, "logout", c.ClientIP(), c.Request.UserAgent(), true)
	}

	ac.sessionManager.AddFlash(c.Request.Context(), FlashInfo, MsgLoggedOut)
	c.Redirect(http.StatusFound, "/")
}

func (ac *AuthController) renderLogin(c *gin.Context, status int, data gin.H) {
	data["Title"] = "Login"
	if ac.render == nil {
		c.JSON(status, data)
		return
	}
	ac.render(c, status, "login.html", data)
}
