package dashboard

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "solsub-admin/internal/errors"
	"solsub-admin/pkg/utils"
)

// HandleAnalyticsData returns the six month chart series
func HandleAnalyticsData(c *gin.Context) {
	series, err := service().Analytics(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": series})
}

// HandleClusterData returns distinct clusters without their API keys
func HandleClusterData(c *gin.Context) {
	rows, err := service().Clusters(c.Request.Context(), false)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clusters": rows})
}

// HandleUserDetail returns one user profile with bank details and clusters
func HandleUserDetail(c *gin.Context) {
	detail, err := service().UserDetail(c.Request.Context(), c.Param("user_id"))
	if errors.Is(err, apperrors.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "User not found"})
		return
	}
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "user": detail})
}
