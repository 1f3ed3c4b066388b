package admin

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DefaultMaxAttempts = 5
	DefaultLockout     = 15 * time.Minute

	lockoutKeyPrefix = "retreat:admin:login:"
)

// MemoryLimiter locks a key for the lockout window once it has failed
// maxAttempts times within that window.
type MemoryLimiter struct {
	mu          sync.Mutex
	failures    map[string]*failureWindow
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

type failureWindow struct {
	count   int
	expires time.Time
}

func NewMemoryLimiter(maxAttempts int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		failures:    make(map[string]*failureWindow),
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

func (l *MemoryLimiter) current(key string) *failureWindow {
	f, ok := l.failures[key]
	if !ok {
		return nil
	}
	if !l.now().Before(f.expires) {
		delete(l.failures, key)
		return nil
	}
	return f
}

func (l *MemoryLimiter) Locked(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	f := l.current(key)
	return f != nil && f.count >= l.maxAttempts, nil
}

func (l *MemoryLimiter) Fail(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	f := l.current(key)
	if f == nil {
		f = &failureWindow{expires: l.now().Add(l.window)}
		l.failures[key] = f
	}
	f.count++
	return nil
}

func (l *MemoryLimiter) Clear(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.failures, key)
	return nil
}

// RedisLimiter shares the lockout across instances with INCR and a TTL set
// on the first failure.
type RedisLimiter struct {
	client      redis.Cmdable
	maxAttempts int
	window      time.Duration
}

func NewRedisLimiter(client redis.Cmdable, maxAttempts int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, maxAttempts: maxAttempts, window: window}
}

func (l *RedisLimiter) Locked(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Get(ctx, lockoutKeyPrefix+key).Int()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n >= l.maxAttempts, nil
}

func (l *RedisLimiter) Fail(ctx context.Context, key string) error {
	pipe := l.client.TxPipeline()
	pipe.Incr(ctx, lockoutKeyPrefix+key)
	pipe.ExpireNX(ctx, lockoutKeyPrefix+key, l.window)
	_, err := pipe.Exec(ctx)
	return err
}

func (l *RedisLimiter) Clear(ctx context.Context, key string) error {
	return l.client.Del(ctx, lockoutKeyPrefix+key).Err()
}
