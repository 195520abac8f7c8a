package auth

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// StylesheetCDN serves the Bootstrap stylesheet linked from the base template.
const StylesheetCDN = "https://cdn.jsdelivr.net"

// apiPolicy applies to JSON responses, which never load subresources.
const apiPolicy = "default-src 'none'; frame-ancestors 'none'"

// pagePolicy is the CSP for HTML pages. Book covers and profile pictures are
// served from /media on the same origin.
func pagePolicy(host string) string {
	// Behind a proxy 'self' alone can reject our own forms.
	formAction := "'self'"
	if host != "" {
		formAction += " https://" + host
	}
	return strings.Join([]string{
		"default-src 'self'",
		"script-src 'self' " + StylesheetCDN,
		"style-src 'self' 'unsafe-inline' " + StylesheetCDN,
		"img-src 'self' data:",
		"font-src 'self' " + StylesheetCDN,
		"frame-ancestors 'none'",
		"form-action " + formAction,
	}, "; ")
}

// SecurityHeadersMiddleware sets clickjacking, sniffing and CSP headers.
// Review API responses are additionally marked uncacheable.
func SecurityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Permissions-Policy", "camera=(), geolocation=(), microphone=(), payment=(), usb=()")

		if isAPIRequest(c) {
			h.Set("Content-Security-Policy", apiPolicy)
			h.Set("Cache-Control", "no-store")
		} else {
			h.Set("Content-Security-Policy", pagePolicy(c.Request.Host))
		}

		c.Next()
	}
}

// StrictTransportSecurityMiddleware sends HSTS on requests that arrived over
// HTTPS, directly or through a proxy.
func StrictTransportSecurityMiddleware(maxAge int) gin.HandlerFunc {
	value := "max-age=" + strconv.Itoa(maxAge) + "; includeSubDomains"
	return func(c *gin.Context) {
		if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
			c.Header("Strict-Transport-Security", value)
		}
		c.Next()
	}
}
