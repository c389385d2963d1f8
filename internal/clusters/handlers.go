package clusters

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"solsub-admin/internal/database"
	"solsub-admin/internal/docstore"
	apperrors "solsub-admin/internal/errors"
	"solsub-admin/internal/models"
	"solsub-admin/pkg/utils"
)

func clusterResponse(cluster *models.Cluster) gin.H {
	return gin.H{
		"id":            cluster.ID,
		"cluster_name":  cluster.Name,
		"cluster_id":    cluster.ClusterID,
		"cluster_price": cluster.Price,
		"timeline_days": cluster.TimelineDays,
		"trial_period":  cluster.TrialPeriod,
		"api_key":       cluster.APIKey,
		"created_at":    cluster.CreatedAt,
		"updated_at":    cluster.UpdatedAt,
	}
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		utils.SendErrorResponse(c, http.StatusBadRequest,
			apperrors.WithDetails(apperrors.ErrValidationFailed, "invalid cluster id", err))
		return 0, false
	}
	return uint(id), true
}

func bindError(c *gin.Context, err error) {
	utils.SendErrorResponse(c, http.StatusBadRequest,
		apperrors.WithDetails(apperrors.ErrValidationFailed, err.Error(), err))
}

// HandleList returns every cluster configuration
func HandleList(c *gin.Context) {
	clusters, err := List(database.DB)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	list := make([]gin.H, 0, len(clusters))
	for i := range clusters {
		list = append(list, clusterResponse(&clusters[i]))
	}
	c.JSON(http.StatusOK, gin.H{"clusters": list, "count": len(list)})
}

// HandleGet returns a single cluster configuration
func HandleGet(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	cluster, err := Get(database.DB, id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, clusterResponse(cluster))
}

// HandleCreate stores a new cluster configuration and returns its API key
func HandleCreate(c *gin.Context) {
	var req struct {
		Name         string          `json:"cluster_name" binding:"required"`
		ClusterID    string          `json:"cluster_id" binding:"required"`
		Price        decimal.Decimal `json:"cluster_price"`
		TimelineDays int             `json:"timeline_days"`
		TrialPeriod  int             `json:"trial_period"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	cluster, err := Create(database.DB, Input{
		Name:         req.Name,
		ClusterID:    req.ClusterID,
		Price:        req.Price,
		TimelineDays: req.TimelineDays,
		TrialPeriod:  req.TrialPeriod,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Cluster created successfully",
		"cluster": clusterResponse(cluster),
	})
}

// HandleUpdate changes editable fields. api_key in the body is ignored.
func HandleUpdate(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req struct {
		Name         *string          `json:"cluster_name"`
		ClusterID    *string          `json:"cluster_id"`
		Price        *decimal.Decimal `json:"cluster_price"`
		TimelineDays *int             `json:"timeline_days"`
		TrialPeriod  *int             `json:"trial_period"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	cluster, err := Update(database.DB, id, Patch{
		Name:         req.Name,
		ClusterID:    req.ClusterID,
		Price:        req.Price,
		TimelineDays: req.TimelineDays,
		TrialPeriod:  req.TrialPeriod,
	})
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, clusterResponse(cluster))
}

// HandleDelete removes a cluster configuration
func HandleDelete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := Delete(database.DB, id); err != nil {
		utils.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Cluster deleted successfully",
		"id":      id,
	})
}

// HandleAttachToUser embeds a cluster configuration in a user profile
func HandleAttachToUser(c *gin.Context) {
	var req struct {
		ClusterID   string `json:"cluster_id" binding:"required"`
		MatchIDType string `json:"match_id_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	sub, err := AttachToUser(c.Request.Context(), database.DB, docstore.Default, c.Param("user_id"), req.ClusterID, req.MatchIDType)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"cluster": sub,
	})
}
