package dashboard

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"solsub-admin/internal/docstore"
	apperrors "solsub-admin/internal/errors"
	"solsub-admin/internal/logging"
	"solsub-admin/internal/reporting"
	"solsub-admin/internal/web"
	"solsub-admin/pkg/utils"
)

// Clock supplies "now" for every view. Tests replace it.
var Clock = time.Now

func service() *reporting.Service {
	return reporting.NewService(docstore.Default, Clock)
}

// renderFailure shows the error page. Server-side failures are logged and
// reported; their details stay out of the page.
func renderFailure(c *gin.Context, err error) {
	appErr, ok := apperrors.As(err)
	if !ok {
		appErr = apperrors.Wrap(err, "INTERNAL_ERROR", "Internal server error")
	}
	status := utils.StatusFor(appErr)

	message := appErr.Message
	if status >= http.StatusInternalServerError {
		logging.WithRequest(c).WithError(err).Error("Dashboard view failed")
		utils.HandleError(err, fmt.Sprintf("dashboard %s", c.FullPath()))
		message = "The dashboard could not load its data. Please try again shortly."
	} else if appErr.Details != "" {
		message = appErr.Details
	}
	web.RenderError(c, status, message)
}

// HandleDashboard renders the home page with headline numbers
func HandleDashboard(c *gin.Context) {
	stats, err := service().Dashboard(c.Request.Context())
	if err != nil {
		renderFailure(c, err)
		return
	}
	web.Render(c, http.StatusOK, "dashboard", gin.H{"Title": "Dashboard", "Stats": stats})
}

func HandleUsers(c *gin.Context) {
	rows, err := service().Users(c.Request.Context())
	if err != nil {
		renderFailure(c, err)
		return
	}
	web.Render(c, http.StatusOK, "users", gin.H{"Title": "Users", "Users": rows})
}

// HandlePayments lists every payment with its resolved cluster
func HandlePayments(c *gin.Context) {
	rows, err := service().Payments(c.Request.Context())
	if err != nil {
		renderFailure(c, err)
		return
	}
	web.Render(c, http.StatusOK, "payments", gin.H{"Title": "Payments", "Payments": rows})
}

func HandleMatchIDs(c *gin.Context) {
	rows, err := service().MatchIDs(c.Request.Context())
	if err != nil {
		renderFailure(c, err)
		return
	}
	web.Render(c, http.StatusOK, "match_ids", gin.H{"Title": "Match IDs", "MatchIDs": rows})
}

// HandleClusters lists distinct clusters. The page shows API keys; the
// JSON endpoint does not.
func HandleClusters(c *gin.Context) {
	rows, err := service().Clusters(c.Request.Context(), true)
	if err != nil {
		renderFailure(c, err)
		return
	}
	web.Render(c, http.StatusOK, "clusters", gin.H{"Title": "Clusters", "Clusters": rows})
}

func HandleReports(c *gin.Context) {
	reports, err := service().Reports(c.Request.Context())
	if err != nil {
		renderFailure(c, err)
		return
	}
	web.Render(c, http.StatusOK, "reports", gin.H{
		"Title":       "Reports",
		"Reports":     reports,
		"ReportTypes": reporting.ReportTypes(),
		"DateRanges":  reporting.DateRanges(),
	})
}
