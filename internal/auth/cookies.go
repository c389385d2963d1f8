package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	AuthCookieName = "solsub_session"
	CSRFCookieName = "solsub_csrf"
)

// SecureCookies forces the Secure attribute regardless of the request scheme.
var SecureCookies bool

func shouldUseSecureCookies(c *gin.Context) bool {
	if SecureCookies {
		return true
	}
	if proto := strings.ToLower(strings.TrimSpace(c.GetHeader("X-Forwarded-Proto"))); proto == "https" {
		return true
	}
	return c.Request.TLS != nil
}

// SetAuthCookie sets authentication and CSRF cookies
func SetAuthCookie(c *gin.Context, token string, expiry time.Time, csrfToken string) {
	secure := shouldUseSecureCookies(c)
	maxAge := int(time.Until(expiry).Seconds())

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiry,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    csrfToken,
		Path:     "/",
		Expires:  expiry,
		MaxAge:   maxAge,
		HttpOnly: false,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAuthCookie clears authentication cookies
func ClearAuthCookie(c *gin.Context) {
	secure := shouldUseSecureCookies(c)
	for _, name := range []string{AuthCookieName, CSRFCookieName} {
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: name == AuthCookieName,
			Secure:   secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}
