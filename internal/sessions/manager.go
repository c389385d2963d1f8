package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"solsub-admin/internal/config"
)

// ErrSessionNotFound is returned when a session id has no live entry.
var ErrSessionNotFound = errors.New("session not found")

// Manager tracks admin sign-in sessions in Redis so they can be revoked
// before their token expires.
type Manager struct {
	client  *redis.Client
	ctx     context.Context
	timeout time.Duration
	ttl     time.Duration
}

// Data represents session information stored in Redis
type Data struct {
	AdminID      uint      `json:"admin_id"`
	Email        string    `json:"email"`
	CreatedAt    time.Time `json:"created_at"`
	LastAccessed time.Time `json:"last_accessed"`
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent"`
}

// GlobalManager is nil when Redis sessions are disabled.
var GlobalManager *Manager

func sessionKey(id string) string {
	return "session:" + id
}

func adminSessionsKey(adminID uint) string {
	return fmt.Sprintf("admin_sessions:%d", adminID)
}

func (sm *Manager) withTimeout() (context.Context, context.CancelFunc) {
	timeout := sm.timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return context.WithTimeout(sm.ctx, timeout)
}

func wrapRedisError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s redis operation timed out: %w", operation, err)
	}
	return fmt.Errorf("%s redis operation failed: %w", operation, err)
}

// NewManager wraps an existing client.
func NewManager(client *redis.Client, ttl, timeout time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{
		client:  client,
		ctx:     context.Background(),
		timeout: timeout,
		ttl:     ttl,
	}
}

// InitManager connects to Redis and installs GlobalManager. It is a no-op
// when sessions are disabled in cfg.
func InitManager(cfg config.RedisConfig) error {
	if !cfg.Enabled {
		logrus.Info("Redis sessions disabled; relying on token expiry and blacklist")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	sm := NewManager(rdb, cfg.SessionTTL, cfg.Timeout)
	if err := sm.Ping(context.Background()); err != nil {
		_ = rdb.Close()
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	GlobalManager = sm
	logrus.WithField("addr", cfg.Addr).Info("Redis session manager initialized")
	return nil
}

// CreateSession stores a session and indexes it under the admin.
func (sm *Manager) CreateSession(sessionID string, adminID uint, email, ipAddress, userAgent string) error {
	now := time.Now()
	data, err := json.Marshal(Data{
		AdminID:      adminID,
		Email:        email,
		CreatedAt:    now,
		LastAccessed: now,
		IPAddress:    ipAddress,
		UserAgent:    userAgent,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal session data: %w", err)
	}

	ctx, cancel := sm.withTimeout()
	err = sm.client.Set(ctx, sessionKey(sessionID), data, sm.ttl).Err()
	cancel()
	if err != nil {
		return wrapRedisError("store session", err)
	}

	ctx, cancel = sm.withTimeout()
	defer cancel()
	pipe := sm.client.TxPipeline()
	pipe.SAdd(ctx, adminSessionsKey(adminID), sessionID)
	pipe.Expire(ctx, adminSessionsKey(adminID), sm.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		logrus.WithError(wrapRedisError("store admin session mapping", err)).Warn("Session stored without admin index")
	}
	return nil
}

// GetSession returns the stored session and refreshes its access time.
func (sm *Manager) GetSession(sessionID string) (*Data, error) {
	ctx, cancel := sm.withTimeout()
	raw, err := sm.client.Get(ctx, sessionKey(sessionID)).Result()
	cancel()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, wrapRedisError("get session", err)
	}

	var data Data
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session data: %w", err)
	}

	data.LastAccessed = time.Now()
	if b, err := json.Marshal(data); err == nil {
		ctx, cancel := sm.withTimeout()
		if err := sm.client.Set(ctx, sessionKey(sessionID), b, redis.KeepTTL).Err(); err != nil {
			logrus.WithError(err).WithField("session_id", sessionID).Warn("Failed to refresh session")
		}
		cancel()
	}
	return &data, nil
}

// Exists reports whether the session is still live.
func (sm *Manager) Exists(sessionID string) (bool, error) {
	ctx, cancel := sm.withTimeout()
	defer cancel()
	n, err := sm.client.Exists(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return false, wrapRedisError("check session", err)
	}
	return n > 0, nil
}

// DeleteSession removes a session from Redis
func (sm *Manager) DeleteSession(sessionID string) error {
	ctx, cancel := sm.withTimeout()
	err := sm.client.Del(ctx, sessionKey(sessionID)).Err()
	cancel()
	return wrapRedisError("delete session", err)
}

// DeleteAllUserSessions revokes every session of an admin.
func (sm *Manager) DeleteAllUserSessions(adminID uint) error {
	ctx, cancel := sm.withTimeout()
	ids, err := sm.client.SMembers(ctx, adminSessionsKey(adminID)).Result()
	cancel()
	if err != nil {
		return wrapRedisError("get admin sessions", err)
	}

	for _, id := range ids {
		if err := sm.DeleteSession(id); err != nil {
			logrus.WithError(err).WithField("session_id", id).Warn("Failed to delete session")
		}
	}

	ctx, cancel = sm.withTimeout()
	err = sm.client.Del(ctx, adminSessionsKey(adminID)).Err()
	cancel()
	return wrapRedisError("delete admin session mapping", err)
}

func (sm *Manager) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, sm.timeoutOrDefault())
	defer cancel()
	return wrapRedisError("ping", sm.client.Ping(ctx).Err())
}

func (sm *Manager) timeoutOrDefault() time.Duration {
	if sm.timeout <= 0 {
		return 2 * time.Second
	}
	return sm.timeout
}

func (sm *Manager) Close() error {
	return sm.client.Close()
}

// Connected reports whether GlobalManager is installed and reachable.
func Connected(ctx context.Context) bool {
	return GlobalManager != nil && GlobalManager.Ping(ctx) == nil
}
