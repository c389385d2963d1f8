package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"solsub-admin/internal/auth"
	"solsub-admin/internal/bootstrap"
	"solsub-admin/internal/database"
	"solsub-admin/internal/middleware"
	"solsub-admin/internal/sessions"
	"solsub-admin/pkg/utils"
)

const (
	limiterCleanupInterval   = 10 * time.Minute
	blacklistCleanupInterval = time.Hour
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the admin dashboard HTTP server",
		Long:  `Connect the backing stores, apply migrations, ensure a bootstrap admin and serve the dashboard until SIGINT or SIGTERM.`,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sentryEnv := cfg.Sentry.Environment
	if sentryEnv == "" {
		sentryEnv = cfg.Server.Environment
	}
	flush := utils.InitSentry(cfg.Sentry.DSN, sentryEnv, cfg.Sentry.Release)
	defer flush()

	if err := initRelational(cfg); err != nil {
		return err
	}
	defer closeDatabase()

	store, err := initDocumentStore(cfg)
	if err != nil {
		return err
	}
	defer closeDocumentStore(store)

	if err := sessions.InitManager(cfg.Redis); err != nil {
		return err
	}
	if sessions.GlobalManager != nil {
		defer sessions.GlobalManager.Close()
	}

	if err := auth.InitJWT(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL); err != nil {
		return err
	}
	auth.SecureCookies = cfg.Auth.SecureCookies

	if err := bootstrap.Run(database.DB, cfg.Auth.BootstrapEmail, cfg.Auth.BootstrapPass); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loginLimiter := middleware.NewLoginLimiter()
	apiLimiter := middleware.NewAPILimiter()
	loginLimiter.StartCleanup(ctx, limiterCleanupInterval)
	apiLimiter.StartCleanup(ctx, limiterCleanupInterval)
	go runBlacklistCleanup(ctx, blacklistCleanupInterval)

	setGinMode(cfg.Server.Mode)
	router := newRouter(cfg, loginLimiter, apiLimiter)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logrus.WithFields(logrus.Fields{
			"addr":        srv.Addr,
			"environment": cfg.Server.Environment,
		}).Info("Starting SolSub admin server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		logrus.WithField("signal", sig.String()).Info("Shutting down server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logrus.Info("Server exited")
	return nil
}

// runBlacklistCleanup prunes expired revoked tokens until ctx is done.
func runBlacklistCleanup(ctx context.Context, interval time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("panic", r).Error("Token blacklist cleanup crashed")
			utils.CaptureSentryPanic("token blacklist cleanup", r)
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			auth.CleanupTokenBlacklist(database.DB)
		}
	}
}
