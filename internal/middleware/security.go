package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "solsub-admin/internal/errors"
	"solsub-admin/internal/logging"
	"solsub-admin/pkg/utils"
)

const (
	RequestIDHeader = "X-Request-ID"
	CSRFHeader      = "X-CSRF-Token"
	CSRFFormField   = "csrf_token"
)

// ErrCSRF is returned when the double-submit check fails.
var ErrCSRF = &apperrors.AppError{Code: "CSRF_FAILED", Message: "Invalid CSRF token"}

// SecurityHeaders adds security headers. In development the content policy
// is report-only.
func SecurityHeaders(environment string) gin.HandlerFunc {
	csp := "default-src 'self'; " +
		"script-src 'self' 'unsafe-inline'; " +
		"style-src 'self' 'unsafe-inline'; " +
		"img-src 'self' data:; " +
		"connect-src 'self'; " +
		"frame-ancestors 'none'; " +
		"base-uri 'self'; " +
		"form-action 'self'; " +
		"object-src 'none'"
	cspHeader := "Content-Security-Policy"
	if env := strings.ToLower(environment); env == "development" || env == "dev" {
		cspHeader = "Content-Security-Policy-Report-Only"
	}

	return func(c *gin.Context) {
		c.Header(cspHeader, csp)

		if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-XSS-Protection", "0")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=(), usb=()")
		c.Header("Cross-Origin-Opener-Policy", "same-origin")
		c.Header("Cross-Origin-Resource-Policy", "same-origin")
		c.Header("Cache-Control", "no-store, no-cache, must-revalidate, private")
		c.Header("Pragma", "no-cache")

		c.Next()
	}
}

// RequestSizeLimit limits request body size
func RequestSizeLimit(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxSize > 0 && c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		}
		c.Next()
	}
}

// RequestID propagates an incoming request id or assigns a new one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(logging.RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// CSRFProtection compares the CSRF cookie with the X-CSRF-Token header or
// the csrf_token form field on unsafe methods. Bearer-authenticated calls
// are exempt since browsers never attach that header on their own.
func CSRFProtection(csrfCookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		if strings.HasPrefix(c.GetHeader("Authorization"), "Bearer ") {
			c.Next()
			return
		}

		submitted := strings.TrimSpace(c.GetHeader(CSRFHeader))
		if submitted == "" {
			submitted = strings.TrimSpace(c.PostForm(CSRFFormField))
		}
		cookieToken, err := c.Cookie(csrfCookieName)

		switch {
		case submitted == "":
			rejectCSRF(c, "missing CSRF token")
		case err != nil || cookieToken == "":
			rejectCSRF(c, "missing CSRF cookie")
		case subtle.ConstantTimeCompare([]byte(submitted), []byte(cookieToken)) != 1:
			rejectCSRF(c, "CSRF token mismatch")
		default:
			c.Next()
		}
	}
}

func rejectCSRF(c *gin.Context, reason string) {
	if utils.WantsJSON(c) {
		utils.SendErrorResponse(c, http.StatusForbidden, apperrors.WithDetails(ErrCSRF, reason, nil))
	} else {
		c.String(http.StatusForbidden, "Forbidden: %s", reason)
	}
	c.Abort()
}
