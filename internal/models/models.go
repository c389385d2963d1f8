package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"solsub-admin/internal/tokens"
)

// Cluster is the relational configuration for a licensed cluster.
type Cluster struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	Name         string          `json:"cluster_name" gorm:"column:cluster_name;size:255;uniqueIndex;not null"`
	ClusterID    string          `json:"cluster_id" gorm:"column:cluster_id;size:100;uniqueIndex;not null"`
	Price        decimal.Decimal `json:"cluster_price" gorm:"column:cluster_price;type:decimal(10,2);not null"`
	TimelineDays int             `json:"timeline_days" gorm:"default:30"`
	APIKey       string          `json:"api_key" gorm:"size:32;uniqueIndex"`
	TrialPeriod  int             `json:"trial_period" gorm:"default:0"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// BeforeCreate assigns a collision-free API key when none was supplied.
func (c *Cluster) BeforeCreate(tx *gorm.DB) error {
	if c.APIKey != "" {
		return nil
	}
	if c.TimelineDays == 0 {
		c.TimelineDays = 30
	}

	lookup := tx.Session(&gorm.Session{NewDB: true})
	key, err := tokens.GenerateUniqueAPIKey(func(candidate string) (bool, error) {
		var count int64
		if err := lookup.Model(&Cluster{}).Where("api_key = ?", candidate).Count(&count).Error; err != nil {
			return false, err
		}
		return count > 0, nil
	})
	if err != nil {
		return fmt.Errorf("assign api key: %w", err)
	}
	c.APIKey = key
	return nil
}

// AdminUser is an operator allowed into the dashboard.
type AdminUser struct {
	ID                  uint       `json:"id" gorm:"primaryKey"`
	Email               string     `json:"email" gorm:"uniqueIndex;not null"`
	Password            string     `json:"-"`
	Name                string     `json:"name"`
	Active              bool       `json:"active" gorm:"default:true"`
	FailedLoginAttempts int        `json:"-" gorm:"default:0"`
	LockedUntil         *time.Time `json:"-"`
	LastLoginAt         *time.Time `json:"last_login_at"`
	MFASecret           string     `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// MFAEnabled reports whether a TOTP secret is configured.
func (u *AdminUser) MFAEnabled() bool {
	return u.MFASecret != ""
}

// TokenBlacklist represents revoked session tokens
type TokenBlacklist struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	TokenHash string    `json:"-" gorm:"uniqueIndex;not null"`
	UserID    uint      `json:"user_id" gorm:"index"`
	ExpiresAt time.Time `json:"expires_at"`
	Reason    string    `json:"reason" gorm:"default:'logout'"`
	CreatedAt time.Time `json:"created_at"`
}

// Relational returns every gorm model for migrations.
func Relational() []interface{} {
	return []interface{}{
		&Cluster{},
		&AdminUser{},
		&TokenBlacklist{},
	}
}
