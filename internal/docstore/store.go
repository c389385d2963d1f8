// Package docstore reads and writes the schema-flexible user, match
// identifier and payment documents.
package docstore

import (
	"context"
	"errors"
	"time"

	"solsub-admin/internal/models"
)

// ErrNotFound is returned when a single document lookup misses.
var ErrNotFound = errors.New("document not found")

// ErrClusterNameTaken is returned when an embedded cluster name is already used.
var ErrClusterNameTaken = errors.New("cluster name already assigned")

// ErrNotConfigured is returned when Default has not been set.
var ErrNotConfigured = errors.New("document store not configured")

// MatchIDFilter narrows match identifier queries. Zero values match all.
type MatchIDFilter struct {
	ClusterName string
	Trial       *bool
	// ValidAfter keeps identifiers whose valid_till is strictly after it.
	ValidAfter *time.Time
}

// PaymentFilter narrows payment queries. Zero values match all.
type PaymentFilter struct {
	Status  string
	Since   *time.Time
	Until   *time.Time
	APIKeys []string
}

// Store is the document store used by the dashboard.
type Store interface {
	ListUsers(ctx context.Context) ([]models.UserProfile, error)
	CountUsers(ctx context.Context) (int64, error)
	FindUser(ctx context.Context, userID string) (*models.UserProfile, error)
	ClusterNameExists(ctx context.Context, clusterName string) (bool, error)
	AddUserCluster(ctx context.Context, userID string, cluster models.ClusterDetails) error

	ListMatchIDs(ctx context.Context, filter MatchIDFilter) ([]models.MatchID, error)
	CountMatchIDs(ctx context.Context, filter MatchIDFilter) (int64, error)

	ListPayments(ctx context.Context, filter PaymentFilter) ([]models.Payment, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Default is the process-wide document store.
var Default Store

// Bool returns a pointer to b, for filters.
func Bool(b bool) *bool { return &b }

// Matches reports whether m passes the filter. Stores that cannot push a
// predicate down use it to filter in memory.
func (f MatchIDFilter) Matches(m *models.MatchID) bool {
	if f.ClusterName != "" && m.ClusterName != f.ClusterName {
		return false
	}
	if f.Trial != nil && m.IsTrial != *f.Trial {
		return false
	}
	if f.ValidAfter != nil && (m.ValidTill == nil || !m.ValidTill.After(*f.ValidAfter)) {
		return false
	}
	return true
}

// Matches reports whether p passes the filter.
func (f PaymentFilter) Matches(p *models.Payment) bool {
	if f.Status != "" && p.Status != f.Status {
		return false
	}
	if f.Since != nil && p.PaymentDate.Before(*f.Since) {
		return false
	}
	if f.Until != nil && !p.PaymentDate.Before(*f.Until) {
		return false
	}
	if len(f.APIKeys) > 0 {
		found := false
		for _, k := range f.APIKeys {
			if k == p.APIKey {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
