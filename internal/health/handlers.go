package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"solsub-admin/internal/database"
	"solsub-admin/internal/docstore"
	"solsub-admin/internal/sessions"
)

const serviceName = "solsub-admin"

var startTime = time.Now()

// HandleHealthCheck returns basic health status
func HandleHealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"service":   serviceName,
		"timestamp": time.Now(),
		"uptime":    time.Since(startTime).String(),
	})
}

// HandleSystemReady reports whether every backing store answers. Redis is
// only checked when sessions are enabled.
func HandleSystemReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := gin.H{}
	ready := true

	record := func(name string, err error) {
		if err != nil {
			ready = false
			checks[name] = gin.H{"ok": false, "error": err.Error()}
			logrus.WithError(err).WithField("check", name).Warn("Readiness check failed")
			return
		}
		checks[name] = gin.H{"ok": true}
	}

	record("database", database.Ping())

	if docstore.Default == nil {
		record("document_store", docstore.ErrNotConfigured)
	} else {
		record("document_store", docstore.Default.Ping(ctx))
	}

	if sm := sessions.GlobalManager; sm != nil {
		record("redis", sm.Ping(ctx))
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"ready":   ready,
		"checks":  checks,
		"service": serviceName,
	})
}
