package schedule

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLocker implements Locker with a Redis SET-NX-PX lock, built the
// same way internal/cache/redis.go constructs its client
// (redis.UniversalClient so a single-node, cluster, or sentinel setup
// all work unchanged).
type RedisLocker struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisLocker wraps an already-constructed redis.UniversalClient
// (e.g. cache.NewRedisCache's underlying client, or a client built
// directly from cache.RedisConfig) as a Locker.
func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client, prefix: "matchcore:"}
}

// TryLock is a Redis SET key value NX PX ttl: it acquires the lock
// only if the key does not already exist.
func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.prefix+key, "1", ttl).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Unlock releases the lock. It does not verify ownership by token;
// the TTL is the backstop against an unlock racing a steal, and locks
// are held for a small fraction of LockTTL in practice.
func (l *RedisLocker) Unlock(ctx context.Context, key string) error {
	return l.client.Del(ctx, l.prefix+key).Err()
}

// InMemoryLocker is a single-process, per-key Locker for tests and for
// single-instance deployments that don't run Redis.
type InMemoryLocker struct {
	mu   sync.Mutex
	held map[string]time.Time // key -> expiry
}

// NewInMemoryLocker returns a Locker with no cross-process reach.
func NewInMemoryLocker() *InMemoryLocker {
	return &InMemoryLocker{held: make(map[string]time.Time)}
}

func (l *InMemoryLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if expiry, ok := l.held[key]; ok && time.Now().Before(expiry) {
		return false, nil
	}
	l.held[key] = time.Now().Add(ttl)
	return true, nil
}

func (l *InMemoryLocker) Unlock(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}
