package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"solsub-admin/internal/auth"
	"solsub-admin/internal/clusters"
	"solsub-admin/internal/config"
	"solsub-admin/internal/dashboard"
	"solsub-admin/internal/database"
	"solsub-admin/internal/health"
	"solsub-admin/internal/logging"
	"solsub-admin/internal/metrics"
	"solsub-admin/internal/middleware"
	"solsub-admin/internal/models"
	"solsub-admin/internal/sessions"
	"solsub-admin/internal/web"
	"solsub-admin/pkg/utils"
)

func setGinMode(mode string) {
	switch mode {
	case gin.ReleaseMode, gin.TestMode, gin.DebugMode:
		gin.SetMode(mode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}
}

// newRouter wires every page, API and operational route.
func newRouter(cfg *config.Config, loginLimiter, apiLimiter *middleware.IPRateLimiter) *gin.Engine {
	router := gin.New()
	// Forwarding headers are honored only from these peers; none by default.
	if err := router.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		logrus.WithError(err).Warn("Invalid trusted proxy list, trusting no proxies")
		_ = router.SetTrustedProxies(nil)
	}
	router.Use(gin.Recovery())
	router.Use(utils.SentryMiddleware())
	router.Use(middleware.RequestID())
	router.Use(logging.RequestLogger())
	router.Use(metrics.Middleware())
	router.Use(middleware.SecurityHeaders(cfg.Server.Environment))
	router.Use(middleware.RequestSizeLimit(cfg.Server.MaxRequestSize))
	router.Use(middleware.CORS(cfg.Server.CORSOrigins, cfg.Server.Environment))

	router.NoRoute(func(c *gin.Context) {
		if utils.WantsJSON(c) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
			return
		}
		web.RenderError(c, http.StatusNotFound, "The page you requested does not exist.")
	})

	// Operational endpoints
	router.GET("/health", health.HandleHealthCheck)
	router.GET("/ready", health.HandleSystemReady)
	router.GET("/metrics", metrics.HandlePrometheusMetrics())

	// Sign-in
	router.GET("/login", auth.HandleLoginPage)
	router.POST("/login", middleware.RateLimit(loginLimiter), auth.HandleLogin)

	csrf := middleware.CSRFProtection(auth.CSRFCookieName)

	pages := router.Group("/")
	pages.Use(auth.RequirePage(), csrf)
	{
		pages.GET("/", dashboard.HandleDashboard)
		pages.GET("/users/", dashboard.HandleUsers)
		pages.GET("/payments/", dashboard.HandlePayments)
		pages.GET("/match-ids/", dashboard.HandleMatchIDs)
		pages.GET("/clusters/", dashboard.HandleClusters)
		pages.GET("/reports/", dashboard.HandleReports)
		pages.GET("/reports/cluster-owner/", dashboard.HandleClusterOwnerReport)
		pages.GET("/reports/generate/", dashboard.HandleGenerateReport)
		pages.POST("/logout", auth.HandleLogout)
	}

	api := router.Group("/api")
	api.Use(auth.RequireAPI(), csrf, middleware.RateLimit(apiLimiter))
	{
		api.GET("/analytics/", dashboard.HandleAnalyticsData)
		api.GET("/clusters/", dashboard.HandleClusterData)
		api.GET("/users/:user_id/", dashboard.HandleUserDetail)
		api.POST("/users/:user_id/clusters", clusters.HandleAttachToUser)

		configs := api.Group("/cluster-configs")
		{
			configs.GET("", clusters.HandleList)
			configs.POST("", clusters.HandleCreate)
			configs.GET("/:id", clusters.HandleGet)
			configs.PATCH("/:id", clusters.HandleUpdate)
			configs.DELETE("/:id", clusters.HandleDelete)
		}

		api.GET("/system/metrics", metrics.HandleSystemMetrics(
			func() *gorm.DB { return database.DB },
			func() bool { return sessions.Connected(context.Background()) },
			map[string]interface{}{
				"cluster_configs": &models.Cluster{},
				"admin_users":     &models.AdminUser{},
				"revoked_tokens":  &models.TokenBlacklist{},
			},
		))
	}

	return router
}
