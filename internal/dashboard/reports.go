package dashboard

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	apperrors "solsub-admin/internal/errors"
	"solsub-admin/internal/metrics"
	"solsub-admin/internal/pdf"
	"solsub-admin/internal/reporting"
	"solsub-admin/internal/web"
	"solsub-admin/pkg/utils"
)

const (
	formatPDF  = "pdf"
	formatJSON = "json"
)

// sendPDF renders doc fully before writing so a rendering failure can
// still produce an error response.
func sendPDF(c *gin.Context, doc *pdf.Document, prefix, reportType string) {
	var buf bytes.Buffer
	if err := pdf.Render(&buf, doc); err != nil {
		renderFailure(c, apperrors.WithDetails(apperrors.ErrReportFailed, reportType, err))
		return
	}

	filename := pdf.Filename(prefix, Clock())
	metrics.ReportsGenerated.WithLabelValues(reportType).Inc()
	logrus.WithFields(logrus.Fields{
		"report_type": reportType,
		"filename":    filename,
		"bytes":       buf.Len(),
	}).Info("Report generated")

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// HandleClusterOwnerReport shows one user's monthly statement as a page,
// JSON or a PDF download depending on format.
func HandleClusterOwnerReport(c *gin.Context) {
	userID := strings.TrimSpace(c.Query("user_id"))
	format := strings.ToLower(c.Query("format"))

	fail := func(err error) {
		if format == formatJSON {
			utils.RespondError(c, err)
			return
		}
		renderFailure(c, err)
	}

	if userID == "" {
		fail(apperrors.WithDetails(apperrors.ErrValidationFailed, "user_id is required", nil))
		return
	}

	st, err := service().ClusterOwnerStatement(c.Request.Context(), userID, c.Query("month"))
	if err != nil {
		fail(err)
		return
	}

	switch format {
	case formatPDF:
		sendPDF(c, st.Document(Clock()), reporting.StatementFilePrefix, "cluster_owner")
	case formatJSON:
		c.JSON(http.StatusOK, gin.H{"success": true, "statement": st})
	default:
		web.Render(c, http.StatusOK, "statement", gin.H{"Title": "Statement", "Statement": st})
	}
}

// HandleGenerateReport builds a general report and returns it as a PDF
// attachment.
func HandleGenerateReport(c *gin.Context) {
	report, err := service().GeneralReport(c.Request.Context(), c.Query("report_type"), c.Query("date_range"))
	if err != nil {
		renderFailure(c, err)
		return
	}
	sendPDF(c, report.Document(), reporting.GeneralFilePrefix, string(report.Type))
}
