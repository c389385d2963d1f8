// Package docstoretest provides an in-memory docstore.Store for tests.
package docstoretest

import (
	"context"
	"sync"

	"solsub-admin/internal/docstore"
	"solsub-admin/internal/models"
)

// MemoryStore keeps documents in slices, in insertion order.
type MemoryStore struct {
	mu       sync.RWMutex
	Users    []models.UserProfile
	MatchIDs []models.MatchID
	Payments []models.Payment

	// Err, when set, is returned by every read.
	Err error
}

var _ docstore.Store = (*MemoryStore)(nil)

// New returns an empty store.
func New() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) AddUsers(users ...models.UserProfile) *MemoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Users = append(m.Users, users...)
	return m
}

func (m *MemoryStore) AddMatchIDs(ids ...models.MatchID) *MemoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MatchIDs = append(m.MatchIDs, ids...)
	return m
}

func (m *MemoryStore) AddPayments(payments ...models.Payment) *MemoryStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Payments = append(m.Payments, payments...)
	return m
}

func (m *MemoryStore) ListUsers(ctx context.Context) ([]models.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return append([]models.UserProfile{}, m.Users...), nil
}

func (m *MemoryStore) CountUsers(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return 0, m.Err
	}
	return int64(len(m.Users)), nil
}

func (m *MemoryStore) FindUser(ctx context.Context, userID string) (*models.UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for i := range m.Users {
		if m.Users[i].UserID == userID {
			u := m.Users[i]
			return &u, nil
		}
	}
	return nil, docstore.ErrNotFound
}

func (m *MemoryStore) ClusterNameExists(ctx context.Context, clusterName string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return false, m.Err
	}
	return m.clusterNameExists(clusterName), nil
}

func (m *MemoryStore) clusterNameExists(name string) bool {
	for _, u := range m.Users {
		for _, cl := range u.Clusters {
			if cl.ClusterName == name {
				return true
			}
		}
	}
	return false
}

func (m *MemoryStore) AddUserCluster(ctx context.Context, userID string, cluster models.ClusterDetails) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if m.clusterNameExists(cluster.ClusterName) {
		return docstore.ErrClusterNameTaken
	}
	for i := range m.Users {
		if m.Users[i].UserID == userID {
			m.Users[i].Clusters = append(m.Users[i].Clusters, cluster)
			return nil
		}
	}
	return docstore.ErrNotFound
}

func (m *MemoryStore) ListMatchIDs(ctx context.Context, filter docstore.MatchIDFilter) ([]models.MatchID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := []models.MatchID{}
	for i := range m.MatchIDs {
		if filter.Matches(&m.MatchIDs[i]) {
			out = append(out, m.MatchIDs[i])
		}
	}
	return out, nil
}

func (m *MemoryStore) CountMatchIDs(ctx context.Context, filter docstore.MatchIDFilter) (int64, error) {
	ids, err := m.ListMatchIDs(ctx, filter)
	return int64(len(ids)), err
}

func (m *MemoryStore) ListPayments(ctx context.Context, filter docstore.PaymentFilter) ([]models.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := []models.Payment{}
	for i := range m.Payments {
		if filter.Matches(&m.Payments[i]) {
			out = append(out, m.Payments[i])
		}
	}
	return out, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return m.Err
}

func (m *MemoryStore) Close(ctx context.Context) error {
	return nil
}
