package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"solsub-admin/internal/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestSecurityHeaders(t *testing.T) {
	r := gin.New()
	r.Use(SecurityHeaders("production"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, w.Header().Get("Content-Security-Policy"), "frame-ancestors 'none'")
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	r = gin.New()
	r.Use(SecurityHeaders("development"))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	r.ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get("Content-Security-Policy-Report-Only"))
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(logging.RequestIDKey)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Body.String(), 36)
	assert.Equal(t, w.Body.String(), w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
}

func TestRequestSizeLimit(t *testing.T) {
	r := gin.New()
	r.Use(RequestSizeLimit(16))
	r.POST("/", func(c *gin.Context) {
		if _, err := c.GetRawData(); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small")))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func csrfRouter() *gin.Engine {
	r := gin.New()
	r.Use(CSRFProtection("csrf"))
	handler := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	r.GET("/reports", handler)
	r.POST("/logout", handler)
	r.POST("/api/cluster-configs", handler)
	return r
}

func TestCSRFProtection(t *testing.T) {
	r := csrfRouter()
	cookie := &http.Cookie{Name: "csrf", Value: "token-1"}

	tests := []struct {
		name   string
		req    func() *http.Request
		status int
	}{
		{"safe method", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/reports", nil)
		}, http.StatusNoContent},
		{"header matches", func() *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/api/cluster-configs", nil)
			req.Header.Set(CSRFHeader, "token-1")
			req.AddCookie(cookie)
			return req
		}, http.StatusNoContent},
		{"form field matches", func() *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/logout", strings.NewReader(url.Values{CSRFFormField: {"token-1"}}.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			req.AddCookie(cookie)
			return req
		}, http.StatusNoContent},
		{"missing token", func() *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/api/cluster-configs", nil)
			req.AddCookie(cookie)
			return req
		}, http.StatusForbidden},
		{"missing cookie", func() *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/logout", nil)
			req.Header.Set(CSRFHeader, "token-1")
			return req
		}, http.StatusForbidden},
		{"mismatch", func() *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/api/cluster-configs", nil)
			req.Header.Set(CSRFHeader, "token-2")
			req.AddCookie(cookie)
			return req
		}, http.StatusForbidden},
		{"bearer exempt", func() *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/api/cluster-configs", nil)
			req.Header.Set("Authorization", "Bearer abc")
			return req
		}, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, tt.req())
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestCSRFProtection_JSONError(t *testing.T) {
	r := csrfRouter()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/cluster-configs", nil))
	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), ErrCSRF.Code)
}

func TestRateLimit(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Every(time.Hour), 2)
	r := gin.New()
	require.NoError(t, r.SetTrustedProxies(nil))
	r.POST("/login", RateLimit(limiter), func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":40000"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2"), "limits are per client")
	assert.Equal(t, 2, limiter.Len())

	assert.Zero(t, limiter.Cleanup(time.Hour))
	assert.Equal(t, 2, limiter.Cleanup(0))
}

func TestRateLimit_ForwardedForFromUntrustedPeer(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Every(time.Hour), 5)
	r := gin.New()
	require.NoError(t, r.SetTrustedProxies(nil))
	r.POST("/login", RateLimit(limiter), func(c *gin.Context) { c.Status(http.StatusOK) })

	allowed := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "203.0.113.7:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("192.0.2.%d", i))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code == http.StatusOK {
			allowed++
		}
	}
	assert.Equal(t, 5, allowed, "rotating forwarding headers must not mint new budgets")
	assert.Equal(t, 1, limiter.Len())
}

func TestRateLimit_ForwardedForFromTrustedProxy(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Every(time.Hour), 1)
	r := gin.New()
	require.NoError(t, r.SetTrustedProxies([]string{"10.0.0.0/8"}))
	r.POST("/login", RateLimit(limiter), func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(client string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.1.2.3:40000"
		req.Header.Set("X-Forwarded-For", client)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("198.51.100.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("198.51.100.1"))
	assert.Equal(t, http.StatusOK, send("198.51.100.2"), "clients behind a trusted proxy are limited separately")
}

func TestSecureCORSConfig(t *testing.T) {
	cfg := SecureCORSConfig([]string{"https://admin.example.com", "ftp://bad", "*", " "}, "production")
	assert.Equal(t, []string{"https://admin.example.com"}, cfg.AllowOrigins)
	assert.False(t, cfg.AllowAllOrigins)
	assert.True(t, cfg.AllowCredentials)

	cfg = SecureCORSConfig(nil, "development")
	assert.Contains(t, cfg.AllowOrigins, "http://localhost:8080")

	cfg = SecureCORSConfig([]string{"*"}, "dev")
	assert.True(t, cfg.AllowAllOrigins)
	assert.False(t, cfg.AllowCredentials)
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"https://admin.example.com"}, "production"))
	r.GET("/api/clusters/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/api/clusters/", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://admin.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
