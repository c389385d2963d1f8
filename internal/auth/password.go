package auth

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"solsub-admin/internal/models"
)

const (
	MaxFailedLogins = 5
	LockDuration    = 30 * time.Minute
)

var bcryptCost = bcrypt.DefaultCost

// SetBcryptCost changes the cost used for new hashes. Out of range values
// are ignored.
func SetBcryptCost(cost int) {
	if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
		bcryptCost = cost
	}
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPassword verifies a password against a hash
func CheckPassword(password, hash string) bool {
	start := time.Now()
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if d := time.Since(start); d > time.Second {
		logrus.Warnf("CheckPassword: bcrypt took %v", d)
	}
	return err == nil
}

// IsAccountLocked checks if an admin account is locked
func IsAccountLocked(user *models.AdminUser) bool {
	return user.LockedUntil != nil && time.Now().Before(*user.LockedUntil)
}

// RecordFailedLogin counts a failed attempt and locks the account after
// MaxFailedLogins.
func RecordFailedLogin(db *gorm.DB, user *models.AdminUser) error {
	user.FailedLoginAttempts++
	if user.FailedLoginAttempts >= MaxFailedLogins {
		lockUntil := time.Now().Add(LockDuration)
		user.LockedUntil = &lockUntil
	}
	return db.Model(user).Updates(map[string]interface{}{
		"failed_login_attempts": user.FailedLoginAttempts,
		"locked_until":          user.LockedUntil,
	}).Error
}

// RecordSuccessfulLogin resets failed login attempts
func RecordSuccessfulLogin(db *gorm.DB, user *models.AdminUser) error {
	now := time.Now()
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLoginAt = &now
	return db.Model(user).Updates(map[string]interface{}{
		"failed_login_attempts": 0,
		"locked_until":          nil,
		"last_login_at":         now,
	}).Error
}

// SetPassword stores a new hash for the admin and clears any lock.
func SetPassword(db *gorm.DB, email, password string) (*models.AdminUser, error) {
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	var user models.AdminUser
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	err = db.Model(&user).Updates(map[string]interface{}{
		"password":              hash,
		"failed_login_attempts": 0,
		"locked_until":          nil,
	}).Error
	if err != nil {
		return nil, err
	}
	user.Password = hash
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	return &user, nil
}
