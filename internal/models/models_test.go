package models

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"solsub-admin/internal/tokens"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(Relational()...))
	return db
}

func TestCluster_BeforeCreateAssignsAPIKey(t *testing.T) {
	db := openTestDB(t)

	cluster := Cluster{Name: "alpha", ClusterID: "c-1", Price: decimal.RequireFromString("49.99")}
	require.NoError(t, db.Create(&cluster).Error)

	assert.True(t, tokens.IsAPIKey(cluster.APIKey))
	assert.Equal(t, 30, cluster.TimelineDays)

	var stored Cluster
	require.NoError(t, db.First(&stored, cluster.ID).Error)
	assert.Equal(t, cluster.APIKey, stored.APIKey)
	assert.True(t, stored.Price.Equal(decimal.RequireFromString("49.99")))
}

func TestCluster_BeforeCreateKeepsExplicitKey(t *testing.T) {
	db := openTestDB(t)

	cluster := Cluster{Name: "beta", ClusterID: "c-2", APIKey: "0123456789abcdef0123456789abcdef"}
	require.NoError(t, db.Create(&cluster).Error)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", cluster.APIKey)
}

func TestCluster_APIKeysUniqueAcrossConfigs(t *testing.T) {
	db := openTestDB(t)

	seen := make(map[string]bool)
	for i := 0; i < 25; i++ {
		cluster := Cluster{Name: fmt.Sprintf("cluster-%d", i), ClusterID: fmt.Sprintf("id-%d", i)}
		require.NoError(t, db.Create(&cluster).Error)
		require.False(t, seen[cluster.APIKey])
		seen[cluster.APIKey] = true
	}

	var distinct int64
	require.NoError(t, db.Model(&Cluster{}).Distinct("api_key").Count(&distinct).Error)
	assert.EqualValues(t, 25, distinct)
}
