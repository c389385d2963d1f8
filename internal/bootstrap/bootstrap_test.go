package bootstrap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"solsub-admin/internal/auth"
	"solsub-admin/internal/models"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.Relational()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	auth.SetBcryptCost(bcrypt.MinCost)
	return db
}

func countAdmins(t *testing.T, db *gorm.DB) int64 {
	var n int64
	require.NoError(t, db.Model(&models.AdminUser{}).Count(&n).Error)
	return n
}

func TestRun_CreatesFirstAdmin(t *testing.T) {
	db := openDB(t)

	require.NoError(t, Run(db, "root@example.com", "bootstrap-pass"))
	assert.Equal(t, int64(1), countAdmins(t, db))

	admin, err := auth.Login(db, "root@example.com", "bootstrap-pass", "")
	require.NoError(t, err)
	assert.True(t, admin.Active)

	require.NoError(t, Run(db, "other@example.com", "bootstrap-pass"))
	assert.Equal(t, int64(1), countAdmins(t, db), "bootstrap only runs on an empty table")
}

func TestRun_SkipsWithoutCredentials(t *testing.T) {
	db := openDB(t)

	require.NoError(t, Run(db, "", ""))
	assert.Zero(t, countAdmins(t, db))

	require.NoError(t, Run(nil, "root@example.com", "bootstrap-pass"))
}
