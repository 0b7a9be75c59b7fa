package api

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/raaihank/passforge/internal/config"
)

const cleanupInterval = 30 * time.Minute

// RateLimiter keeps one token bucket per client address
type RateLimiter struct {
	mu      sync.Mutex
	config  config.RateLimitConfig
	clients map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(cfg config.RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		config:  cfg,
		clients: make(map[string]*clientLimiter),
	}
}

// Allow reports whether a request from clientIP may proceed
func (rl *RateLimiter) Allow(clientIP string) bool {
	rl.mu.Lock()
	if !rl.config.Enabled {
		rl.mu.Unlock()
		return true
	}

	c, ok := rl.clients[clientIP]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rl.limit(), rl.burst())}
		rl.clients[clientIP] = c
	}
	c.lastSeen = time.Now()
	rl.mu.Unlock()

	return c.limiter.Allow()
}

// Update applies new limits to every existing bucket
func (rl *RateLimiter) Update(cfg config.RateLimitConfig) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.config = cfg
	for _, c := range rl.clients {
		c.limiter.SetLimit(rl.limit())
		c.limiter.SetBurst(rl.burst())
	}
}

func (rl *RateLimiter) limit() rate.Limit {
	return rate.Every(time.Minute / time.Duration(max(rl.config.RequestsPerMin, 1)))
}

func (rl *RateLimiter) burst() int {
	return max(rl.config.Burst, 1)
}

// Clients returns the number of tracked client addresses
func (rl *RateLimiter) Clients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// CleanupOldBuckets forgets clients idle for longer than the configured TTL
func (rl *RateLimiter) CleanupOldBuckets() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	ttl := rl.config.IdleTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	cutoff := time.Now().Add(-ttl)

	for ip, c := range rl.clients {
		if c.lastSeen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// StartCleanupRoutine runs CleanupOldBuckets periodically until ctx is done
func (rl *RateLimiter) StartCleanupRoutine(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.CleanupOldBuckets()
			}
		}
	}()
}
