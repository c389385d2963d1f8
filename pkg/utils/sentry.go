package utils

import (
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const sentryService = "solsub-admin"

// InitSentry configures the global Sentry client. An empty DSN disables
// reporting. The returned func flushes pending events and is safe to defer.
func InitSentry(dsn, environment, release string) func() {
	if dsn == "" {
		logrus.Info("Sentry disabled: no DSN configured")
		return func() {}
	}

	opts := sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     release,
	}
	if host, _ := os.Hostname(); host != "" {
		opts.ServerName = host
	}

	if err := sentry.Init(opts); err != nil {
		logrus.WithError(err).Warn("Sentry initialization failed")
		return func() {}
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("service", sentryService)
	})
	logrus.WithField("environment", environment).Info("Sentry initialized")

	return func() { sentry.Flush(2 * time.Second) }
}

// SentryMiddleware attaches a per-request hub and re-panics into gin's recovery.
func SentryMiddleware() gin.HandlerFunc {
	return sentrygin.New(sentrygin.Options{
		Repanic:         true,
		WaitForDelivery: false,
		Timeout:         2 * time.Second,
	})
}

// CaptureSentryError reports an error or message to Sentry, enriching it with request metadata when available.
func CaptureSentryError(c *gin.Context, err error, message string, extras map[string]interface{}) {
	if err == nil && message == "" {
		return
	}

	hub := sentry.CurrentHub()
	if c != nil {
		if ctxHub := sentrygin.GetHubFromContext(c); ctxHub != nil {
			hub = ctxHub
		}
	}
	if hub == nil || hub.Client() == nil {
		return
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("service", sentryService)
		if c != nil {
			scope.SetTag("http.method", c.Request.Method)
			scope.SetTag("http.path", c.FullPath())
			scope.SetExtra("request_url", c.Request.URL.String())
			if email := c.GetString("email"); email != "" {
				scope.SetUser(sentry.User{Email: email})
			}
		}
		if message != "" {
			scope.SetExtra("context", message)
		}
		for k, v := range extras {
			scope.SetExtra(k, v)
		}

		if err != nil {
			hub.CaptureException(err)
		} else {
			hub.CaptureMessage(message)
		}
	})
}

// CaptureSentryPanic converts a recovered panic into a Sentry event.
func CaptureSentryPanic(location string, recovered interface{}) {
	if recovered == nil {
		return
	}
	err := fmt.Errorf("panic recovered in %s: %v", location, recovered)
	CaptureSentryError(nil, err, location, map[string]interface{}{
		"panic_value": recovered,
	})
}
