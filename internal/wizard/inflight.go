package wizard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/scholarpress/quire/model"
)

// InflightGuard prevents concurrent confirmation attempts on the same
// session. Acquire marks a session's confirmation as in flight; a second
// Acquire before Release returns CONFLICT. The TTL bounds how long a crashed
// confirmation can block retries.
type InflightGuard interface {
	Acquire(ctx context.Context, sessionID string, ttl time.Duration) error
	Release(ctx context.Context, sessionID string) error
}

// --- MemoryInflightGuard ---

// MemoryInflightGuard is an in-memory InflightGuard for testing and
// single-instance deployments.
type MemoryInflightGuard struct {
	mu      sync.Mutex
	entries map[string]time.Time // key: session ID, value: expiry
}

// NewMemoryInflightGuard creates a new in-memory in-flight guard.
func NewMemoryInflightGuard() *MemoryInflightGuard {
	return &MemoryInflightGuard{entries: make(map[string]time.Time)}
}

// Acquire marks a session's confirmation as in flight.
func (g *MemoryInflightGuard) Acquire(_ context.Context, sessionID string, ttl time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if expiry, exists := g.entries[sessionID]; exists && time.Now().Before(expiry) {
		return model.NewConflictError(
			fmt.Sprintf("a confirmation for wizard session %q is already in progress", sessionID),
		)
	}
	g.entries[sessionID] = time.Now().Add(ttl)
	return nil
}

// Release clears the in-flight mark.
func (g *MemoryInflightGuard) Release(_ context.Context, sessionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.entries, sessionID)
	return nil
}

// --- RedisInflightGuard ---

// RedisInflightGuard is a Redis-backed InflightGuard for multi-instance
// deployments. It relies on SET NX with a TTL.
type RedisInflightGuard struct {
	client redis.Cmdable
}

// NewRedisInflightGuard creates a new Redis-backed in-flight guard.
func NewRedisInflightGuard(client redis.Cmdable) *RedisInflightGuard {
	return &RedisInflightGuard{client: client}
}

// Acquire marks a session's confirmation as in flight.
func (g *RedisInflightGuard) Acquire(ctx context.Context, sessionID string, ttl time.Duration) error {
	ok, err := g.client.SetNX(ctx, inflightKey(sessionID), "1", ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx %q: %w", inflightKey(sessionID), err)
	}
	if !ok {
		return model.NewConflictError(
			fmt.Sprintf("a confirmation for wizard session %q is already in progress", sessionID),
		)
	}
	return nil
}

// Release clears the in-flight mark.
func (g *RedisInflightGuard) Release(ctx context.Context, sessionID string) error {
	if err := g.client.Del(ctx, inflightKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del %q: %w", inflightKey(sessionID), err)
	}
	return nil
}

// HealthCheck verifies Redis connectivity for readiness probes.
func (g *RedisInflightGuard) HealthCheck(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}

func inflightKey(sessionID string) string {
	return fmt.Sprintf("confirm:%s", sessionID)
}
