package metrics

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var startTime = time.Now()

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solsub_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status_code"},
	)

	ResponseTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "solsub_http_response_time_seconds",
			Help:    "HTTP response time in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"route", "method"},
	)

	ReportsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "solsub_reports_generated_total",
			Help: "Total number of PDF reports generated",
		},
		[]string{"report_type"},
	)

	APIKeysGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "solsub_api_keys_generated_total",
			Help: "Total number of cluster API keys issued",
		},
	)
)

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		ResponseTime.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// HandlePrometheusMetrics serves the default registry
func HandlePrometheusMetrics() gin.HandlerFunc {
	h := promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{EnableOpenMetrics: true})
	return gin.WrapH(h)
}

// HandleSystemMetrics returns process and resource metrics as JSON.
// counted lists gorm models whose row counts are reported.
func HandleSystemMetrics(db func() *gorm.DB, redisConnected func() bool, counted map[string]interface{}) gin.HandlerFunc {
	return func(c *gin.Context) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		resources := gin.H{}
		dbConnected := false
		if conn := db(); conn != nil {
			if sqlDB, err := conn.DB(); err == nil && sqlDB.PingContext(c.Request.Context()) == nil {
				dbConnected = true
			}
			for name, model := range counted {
				var n int64
				if err := conn.Model(model).Count(&n).Error; err == nil {
					resources[name] = n
				}
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"uptime_seconds":     time.Since(startTime).Seconds(),
			"database_connected": dbConnected,
			"redis_connected":    redisConnected != nil && redisConnected(),
			"memory": gin.H{
				"alloc_mb":       m.Alloc / 1024 / 1024,
				"total_alloc_mb": m.TotalAlloc / 1024 / 1024,
				"sys_mb":         m.Sys / 1024 / 1024,
				"gc_runs":        m.NumGC,
			},
			"goroutines": runtime.NumGoroutine(),
			"resources":  resources,
			"timestamp":  time.Now(),
		})
	}
}
