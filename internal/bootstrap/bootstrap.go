package bootstrap

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"solsub-admin/internal/auth"
	"solsub-admin/internal/models"
)

// Run ensures an initial admin exists so a fresh deployment can be signed
// into. Nothing happens once any admin is registered.
func Run(db *gorm.DB, email, password string) error {
	if db == nil {
		logrus.Warn("bootstrap: skipping; database not initialized")
		return nil
	}

	var count int64
	if err := db.Model(&models.AdminUser{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		logrus.Warn("bootstrap: no admin accounts exist; set auth.bootstrap_email and auth.bootstrap_password or run create-admin")
		return nil
	}

	admin, _, err := auth.CreateAdmin(db, email, "Administrator", password, false)
	if errors.Is(err, auth.ErrAdminExists) {
		return nil
	}
	if err != nil {
		return err
	}

	logrus.WithField("email", admin.Email).Info("bootstrap: created admin user")
	return nil
}
