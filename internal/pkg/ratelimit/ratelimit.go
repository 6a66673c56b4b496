// internal/pkg/ratelimit/ratelimit.go
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// Limiter counts hits per key inside a fixed window.
type Limiter interface {
	// Allow records one hit and reports whether it fits in limit, plus how
	// many hits remain in the current window.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error)
}

// RedisLimiter uses INCR with an expiry set on the first hit of a window,
// so every API replica shares the count.
type RedisLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisLimiter(client redis.UniversalClient) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: "fluencr:ratelimit:"}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	k := r.prefix + key

	count, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment rate limit: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, k, window).Err(); err != nil {
			return false, 0, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	remaining := limit - int(count)
	if remaining < 0 {
		return false, 0, nil
	}
	return true, remaining, nil
}

// Reset clears the counter for key.
func (r *RedisLimiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

// MemoryLimiter is the single-process fallback used with the memory store.
type MemoryLimiter struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	windows map[string]*window
}

type window struct {
	count   int
	resetAt time.Time
}

func NewMemoryLimiter(clock clockwork.Clock) *MemoryLimiter {
	return &MemoryLimiter{clock: clock, windows: make(map[string]*window)}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string, limit int, d time.Duration) (bool, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	w, ok := m.windows[key]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(d)}
		m.windows[key] = w
	}
	w.count++

	remaining := limit - w.count
	if remaining < 0 {
		return false, 0, nil
	}
	return true, remaining, nil
}
