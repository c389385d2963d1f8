package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	apperrors "solsub-admin/internal/errors"
	"solsub-admin/pkg/utils"
)

// ErrRateLimited is returned when a client exceeds its allowance.
var ErrRateLimited = &apperrors.AppError{Code: "RATE_LIMITED", Message: "Too many requests"}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter manages rate limiters per IP
type IPRateLimiter struct {
	limiters map[string]*limiterEntry
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

// NewIPRateLimiter creates a new IP-based rate limiter
func NewIPRateLimiter(r rate.Limit, b int) *IPRateLimiter {
	return &IPRateLimiter{
		limiters: make(map[string]*limiterEntry),
		rate:     r,
		burst:    b,
	}
}

// GetLimiter returns the rate limiter for an IP
func (i *IPRateLimiter) GetLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	entry, exists := i.limiters[ip]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(i.rate, i.burst)}
		i.limiters[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// Cleanup drops limiters idle for longer than maxIdle.
func (i *IPRateLimiter) Cleanup(maxIdle time.Duration) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	cutoff := time.Now().Add(-maxIdle)
	removed := 0
	for ip, entry := range i.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(i.limiters, ip)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients.
func (i *IPRateLimiter) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.limiters)
}

// StartCleanup prunes idle limiters every interval until ctx is done.
func (i *IPRateLimiter) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := i.Cleanup(interval); n > 0 {
					logrus.Debugf("Rate limiter cleanup removed %d idle clients", n)
				}
			}
		}
	}()
}

// NewLoginLimiter allows a burst of five sign-in attempts, then one per
// minute.
func NewLoginLimiter() *IPRateLimiter {
	return NewIPRateLimiter(rate.Every(time.Minute), 5)
}

// NewAPILimiter allows sustained API polling from the dashboard.
func NewAPILimiter() *IPRateLimiter {
	return NewIPRateLimiter(rate.Every(100*time.Millisecond), 50)
}

// RateLimit rejects requests from clients that exhausted their limiter.
func RateLimit(limiter *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if limiter.GetLimiter(ip).Allow() {
			c.Next()
			return
		}

		logrus.WithFields(logrus.Fields{"client_ip": ip, "path": c.FullPath()}).Warn("Rate limit exceeded")
		retry := time.Duration(float64(time.Second) / float64(limiter.rate))
		c.Header("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
		if utils.WantsJSON(c) || c.ContentType() == gin.MIMEJSON {
			utils.SendErrorResponse(c, http.StatusTooManyRequests, ErrRateLimited)
		} else {
			c.String(http.StatusTooManyRequests, "Too many attempts. Please try again later.")
		}
		c.Abort()
	}
}
