package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pquerna/otp"
	"gorm.io/gorm"

	"solsub-admin/internal/models"
)

// ErrAdminExists is returned when an email is already registered.
var ErrAdminExists = errors.New("admin already exists")

const minPasswordLength = 8

// CreateAdmin registers an admin. With withMFA a TOTP secret is generated
// and returned so it can be enrolled in an authenticator.
func CreateAdmin(db *gorm.DB, email, name, password string, withMFA bool) (*models.AdminUser, *otp.Key, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil, errors.New("email is required")
	}
	if len(password) < minPasswordLength {
		return nil, nil, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}

	var count int64
	if err := db.Model(&models.AdminUser{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, nil, err
	}
	if count > 0 {
		return nil, nil, ErrAdminExists
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, nil, err
	}

	admin := models.AdminUser{
		Email:    email,
		Name:     strings.TrimSpace(name),
		Password: hash,
		Active:   true,
	}

	var key *otp.Key
	if withMFA {
		key, err = GenerateMFASecret(email)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to generate MFA secret: %w", err)
		}
		admin.MFASecret = key.Secret()
	}

	if err := db.Create(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil, ErrAdminExists
		}
		return nil, nil, err
	}
	return &admin, key, nil
}
