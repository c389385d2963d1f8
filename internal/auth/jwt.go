package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"solsub-admin/internal/models"
)

const defaultTokenTTL = 12 * time.Hour

var (
	jwtSecret []byte
	tokenTTL  = defaultTokenTTL
)

// ErrJWTNotConfigured is returned when tokens are issued before InitJWT.
var ErrJWTNotConfigured = errors.New("jwt secret not configured")

// Claims represents JWT claims. The registered ID doubles as the session id.
type Claims struct {
	AdminID uint   `json:"admin_id"`
	Email   string `json:"email"`
	jwt.RegisteredClaims
}

// SessionID returns the token id.
func (c *Claims) SessionID() string {
	return c.ID
}

// InitJWT sets the signing secret and token lifetime.
func InitJWT(secret string, ttl time.Duration) error {
	if secret == "" {
		return ErrJWTNotConfigured
	}
	jwtSecret = []byte(secret)
	if ttl > 0 {
		tokenTTL = ttl
	}
	logrus.Info("JWT initialized")
	return nil
}

// IssuedToken is a signed session token with its companions.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
	CSRFToken string
	SessionID string
}

// GenerateToken signs a session token for admin.
func GenerateToken(admin *models.AdminUser) (*IssuedToken, error) {
	if len(jwtSecret) == 0 {
		return nil, ErrJWTNotConfigured
	}

	now := time.Now()
	expiry := now.Add(tokenTTL)
	sessionID := uuid.NewString()
	claims := &Claims{
		AdminID: admin.ID,
		Email:   admin.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   fmt.Sprintf("%d", admin.ID),
			ExpiresAt: jwt.NewNumericDate(expiry),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	csrfToken, err := generateCSRFToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSRF token: %w", err)
	}

	return &IssuedToken{
		Token:     tokenString,
		ExpiresAt: expiry,
		CSRFToken: csrfToken,
		SessionID: sessionID,
	}, nil
}

// ParseToken parses and validates a JWT token
func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token claims")
}

func hashToken(tokenString string) string {
	sum := sha256.Sum256([]byte(tokenString))
	return hex.EncodeToString(sum[:])
}

// IsTokenBlacklisted checks if a token is blacklisted. A failed lookup
// reports the token as revoked.
func IsTokenBlacklisted(db *gorm.DB, tokenString string) bool {
	if db == nil {
		return false
	}

	var count int64
	err := db.Model(&models.TokenBlacklist{}).Where("token_hash = ?", hashToken(tokenString)).Count(&count).Error
	if err != nil {
		logrus.WithError(err).Error("Token blacklist lookup failed; rejecting token")
		return true
	}
	return count > 0
}

// BlacklistToken revokes a token until its natural expiry.
func BlacklistToken(db *gorm.DB, tokenString string, adminID uint, expiry time.Time, reason string) error {
	if db == nil {
		return nil
	}
	entry := models.TokenBlacklist{
		TokenHash: hashToken(tokenString),
		UserID:    adminID,
		ExpiresAt: expiry,
		Reason:    reason,
	}
	return db.Where(models.TokenBlacklist{TokenHash: entry.TokenHash}).FirstOrCreate(&entry).Error
}

// CleanupTokenBlacklist removes expired tokens from blacklist
func CleanupTokenBlacklist(db *gorm.DB) {
	if db == nil {
		return
	}

	result := db.Where("expires_at < ?", time.Now()).Delete(&models.TokenBlacklist{})
	if result.Error == nil && result.RowsAffected > 0 {
		logrus.Infof("Cleaned up %d expired tokens from blacklist", result.RowsAffected)
	}
}

func generateCSRFToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
