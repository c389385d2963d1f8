package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Context keys set by the auth middleware and read by the layout.
const (
	AdminEmailKey = "email"
	CSRFTokenKey  = "csrf_token"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"money":   formatMoney,
	"percent": formatPercent,
	"yesno":   formatYesNo,
	"lower":   strings.ToLower,
}

var pages = mustParsePages(
	"login", "dashboard", "users", "payments", "match_ids", "clusters", "reports", "statement", "error",
)

func mustParsePages(names ...string) map[string]*template.Template {
	set := make(map[string]*template.Template, len(names))
	for _, name := range names {
		set[name] = template.Must(template.New(name).Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html", "templates/"+name+".html"))
	}
	return set
}

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatPercent(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

func formatYesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}

// Render writes page inside the shared layout. The signed-in admin and the
// CSRF token are taken from the request context.
func Render(c *gin.Context, status int, page string, data gin.H) {
	tmpl, ok := pages[page]
	if !ok {
		logrus.WithField("page", page).Error("Unknown template")
		c.String(http.StatusInternalServerError, "Internal server error")
		return
	}
	if data == nil {
		data = gin.H{}
	}
	data["Page"] = page
	data["AdminEmail"] = c.GetString(AdminEmailKey)
	data["CSRFToken"] = c.GetString(CSRFTokenKey)

	c.Render(status, render.HTML{Template: tmpl, Name: "layout", Data: data})
}

// RenderError shows the error page with a short message.
func RenderError(c *gin.Context, status int, message string) {
	Render(c, status, "error", gin.H{
		"Title":   http.StatusText(status),
		"Status":  status,
		"Message": message,
	})
}
