package main

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"solsub-admin/internal/auth"
	"solsub-admin/internal/config"
	"solsub-admin/internal/database"
	"solsub-admin/internal/docstore"
	"solsub-admin/internal/logging"
	"solsub-admin/internal/models"
)

// loadConfig reads configuration and installs the logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)
	auth.SetBcryptCost(cfg.Auth.BcryptCost)
	return cfg, nil
}

// initRelational opens the relational store and applies migrations.
func initRelational(cfg *config.Config) error {
	if err := database.InitDatabase(cfg.Database); err != nil {
		return err
	}
	if err := database.RunMigrations(models.Relational()...); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// initDocumentStore connects MongoDB, ensures its indexes and installs it
// as docstore.Default.
func initDocumentStore(cfg *config.Config) (*docstore.MongoStore, error) {
	store, err := docstore.NewMongoStore(cfg.Mongo)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureIndexes(context.Background()); err != nil {
		closeDocumentStore(store)
		return nil, err
	}
	docstore.Default = store
	return store, nil
}

func closeDocumentStore(store *docstore.MongoStore) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Close(ctx); err != nil {
		logrus.WithError(err).Warn("Failed to close document store")
	}
}

func closeDatabase() {
	if err := database.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close database")
	}
}
