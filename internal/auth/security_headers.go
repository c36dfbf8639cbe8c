package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const hstsValue = "max-age=31536000; includeSubDomains"

// responseHeaders go on every response. The API serves JSON and stored
// files, never pages, so nothing may frame it or borrow browser features.
var responseHeaders = [][2]string{
	{"X-Frame-Options", "DENY"},
	{"Content-Security-Policy", "frame-ancestors 'none'"},
	{"X-Content-Type-Options", "nosniff"},
	{"X-Permitted-Cross-Domain-Policies", "none"},
	{"Referrer-Policy", "strict-origin-when-cross-origin"},
	{"Permissions-Policy", "camera=(), geolocation=(), microphone=(), payment=(), usb=()"},
}

// SecurityHeaders sets the fixed response headers. With hsts, requests that
// arrived over HTTPS, directly or through a proxy, also get
// Strict-Transport-Security.
func SecurityHeaders(hsts bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		for _, kv := range responseHeaders {
			h.Set(kv[0], kv[1])
		}
		if hsts && isHTTPS(c) {
			h.Set("Strict-Transport-Security", hstsValue)
		}
		c.Next()
	}
}

// isHTTPS trusts the first X-Forwarded-Proto hop, which the edge proxy sets.
func isHTTPS(c *gin.Context) bool {
	if c.Request.TLS != nil {
		return true
	}
	proto, _, _ := strings.Cut(c.GetHeader("X-Forwarded-Proto"), ",")
	return strings.EqualFold(strings.TrimSpace(proto), "https")
}
