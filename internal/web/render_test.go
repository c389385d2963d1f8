package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func serve(t *testing.T, h gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", h)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestRender_LoginHasNoNavigation(t *testing.T) {
	w := serve(t, func(c *gin.Context) {
		Render(c, http.StatusUnauthorized, "login", gin.H{"Title": "Sign in", "Error": "Invalid credentials", "Next": "/users"})
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Invalid credentials")
	assert.Contains(t, body, `value="/users"`)
	assert.NotContains(t, body, "Sign out")
}

func TestRender_LayoutShowsAdmin(t *testing.T) {
	w := serve(t, func(c *gin.Context) {
		c.Set(AdminEmailKey, "ops@example.com")
		c.Set(CSRFTokenKey, "tok123")
		RenderError(c, http.StatusInternalServerError, "Data store is unavailable")
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "ops@example.com")
	assert.Contains(t, body, `value="tok123"`)
	assert.Contains(t, body, "Data store is unavailable")
}

func TestRender_EscapesContent(t *testing.T) {
	w := serve(t, func(c *gin.Context) {
		RenderError(c, http.StatusBadRequest, "<script>alert(1)</script>")
	})
	assert.NotContains(t, w.Body.String(), "<script>alert(1)")
}

func TestRender_UnknownPage(t *testing.T) {
	w := serve(t, func(c *gin.Context) { Render(c, http.StatusOK, "nope", nil) })
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestFormatters(t *testing.T) {
	assert.Equal(t, "12.50", formatMoney(decimal.RequireFromString("12.5")))
	assert.Equal(t, "33.3%", formatPercent(100.0/3))
	assert.Equal(t, "Yes", formatYesNo(true))
	assert.Equal(t, "No", formatYesNo(false))
}
