package middleware

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// SecureCORSConfig builds the CORS policy for the JSON API from the
// configured origins. Invalid origins are skipped; a wildcard is refused
// outside development.
func SecureCORSConfig(origins []string, environment string) cors.Config {
	config := cors.DefaultConfig()
	env := strings.ToLower(environment)
	dev := env == "development" || env == "dev"

	var allowed []string
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" && !dev {
			logrus.Warn("Ignoring wildcard CORS origin outside development")
			continue
		}
		if err := validateCORSOrigin(origin); err != nil {
			logrus.Warnf("Invalid CORS origin '%s': %v", origin, err)
			continue
		}
		if !containsString(allowed, origin) {
			allowed = append(allowed, origin)
		}
	}

	if dev && !containsString(allowed, "http://localhost:8080") {
		allowed = append(allowed, "http://localhost:8080")
	}

	if len(allowed) == 0 {
		logrus.Warn("No CORS origins configured, CORS will be restrictive")
		allowed = []string{"https://example.com"}
	}

	if containsString(allowed, "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowed
	}
	config.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{
		"Origin", "Content-Type", "Accept", "Authorization",
		CSRFHeader, RequestIDHeader, "X-Requested-With",
	}
	config.ExposeHeaders = []string{"Content-Length", "Content-Type", RequestIDHeader}
	config.AllowCredentials = !config.AllowAllOrigins
	config.MaxAge = 12 * time.Hour

	logrus.Infof("CORS configured with %d allowed origins", len(allowed))
	return config
}

// CORS applies SecureCORSConfig.
func CORS(origins []string, environment string) gin.HandlerFunc {
	return cors.New(SecureCORSConfig(origins, environment))
}

func validateCORSOrigin(origin string) error {
	if origin == "*" {
		return nil
	}

	parsed, err := url.Parse(origin)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid scheme: %s (must be http or https)", parsed.Scheme)
	}
	if parsed.Host == "" {
		return fmt.Errorf("missing host in origin")
	}
	return nil
}

func containsString(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
