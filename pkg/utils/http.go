package utils

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"solsub-admin/internal/errors"
)

// SendErrorResponse sends a standardized error response
func SendErrorResponse(c *gin.Context, statusCode int, appErr *errors.AppError) {
	if appErr == nil {
		appErr = &errors.AppError{Code: "UNKNOWN_ERROR", Message: "An unexpected error occurred"}
	}

	c.JSON(statusCode, gin.H{
		"error":   appErr.Code,
		"message": appErr.Message,
		"details": appErr.Details,
	})

	if statusCode >= http.StatusInternalServerError {
		extras := map[string]interface{}{
			"status_code": statusCode,
			"error_code":  appErr.Code,
			"details":     appErr.Details,
		}
		if c != nil && c.FullPath() != "" {
			extras["route"] = c.FullPath()
		}
		CaptureSentryError(c, appErr.Err, fmt.Sprintf("SendErrorResponse:%s", appErr.Code), extras)
	}
}

var statusByCode = map[string]int{
	errors.ErrUserNotFound.Code:       http.StatusNotFound,
	errors.ErrClusterNotFound.Code:    http.StatusNotFound,
	errors.ErrClusterConflict.Code:    http.StatusConflict,
	errors.ErrInvalidCredentials.Code: http.StatusUnauthorized,
	errors.ErrUnauthorized.Code:       http.StatusUnauthorized,
	errors.ErrAccountLocked.Code:      http.StatusLocked,
	errors.ErrValidationFailed.Code:   http.StatusBadRequest,
	errors.ErrInvalidReportType.Code:  http.StatusBadRequest,
	errors.ErrInvalidDateRange.Code:   http.StatusBadRequest,
	errors.ErrStoreUnavailable.Code:   http.StatusInternalServerError,
	errors.ErrReportFailed.Code:       http.StatusInternalServerError,
}

// StatusFor maps an application error to its HTTP status.
func StatusFor(appErr *errors.AppError) int {
	if status, ok := statusByCode[appErr.Code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// RespondError renders err as a JSON error. Errors that are not AppErrors
// are reported as internal errors.
func RespondError(c *gin.Context, err error) {
	appErr, ok := errors.As(err)
	if !ok {
		appErr = errors.Wrap(err, "INTERNAL_ERROR", "Internal server error")
	}
	SendErrorResponse(c, StatusFor(appErr), appErr)
}

// HandleError logs an error with context
func HandleError(err error, context string) {
	if err != nil {
		logrus.WithError(err).Errorf("Error in %s", context)
		CaptureSentryError(nil, err, context, nil)
	}
}

// GetClientIP returns the client address. Forwarding headers count only
// when the immediate peer is a trusted proxy of the engine.
func GetClientIP(c *gin.Context) string {
	return c.ClientIP()
}

// WantsJSON reports whether the request targets the JSON API surface.
func WantsJSON(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(c.GetHeader("Accept"), "application/json")
}
