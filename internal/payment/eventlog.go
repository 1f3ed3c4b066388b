package payment

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventLog remembers which webhook events were already processed so Stripe
// retries are acknowledged without running handlers twice.
type EventLog interface {
	// Record returns true the first time an event ID is seen.
	Record(ctx context.Context, eventID string) (bool, error)
	// Forget removes an event so a retry is processed again.
	Forget(ctx context.Context, eventID string) error
}

const eventKeyPrefix = "retreat:stripe:event:"

// RedisEventLog uses SET NX with a TTL so the log does not grow forever.
type RedisEventLog struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisEventLog(client redis.Cmdable, ttl time.Duration) *RedisEventLog {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &RedisEventLog{client: client, ttl: ttl}
}

func (l *RedisEventLog) Record(ctx context.Context, eventID string) (bool, error) {
	return l.client.SetNX(ctx, eventKeyPrefix+eventID, time.Now().Unix(), l.ttl).Result()
}

func (l *RedisEventLog) Forget(ctx context.Context, eventID string) error {
	return l.client.Del(ctx, eventKeyPrefix+eventID).Err()
}

// MemoryEventLog is the single-process fallback when Redis is not configured.
type MemoryEventLog struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryEventLog(ttl time.Duration) *MemoryEventLog {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &MemoryEventLog{seen: make(map[string]time.Time), ttl: ttl, now: time.Now}
}

func (l *MemoryEventLog) Record(_ context.Context, eventID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for id, expires := range l.seen {
		if now.After(expires) {
			delete(l.seen, id)
		}
	}
	if _, ok := l.seen[eventID]; ok {
		return false, nil
	}
	l.seen[eventID] = now.Add(l.ttl)
	return true, nil
}

func (l *MemoryEventLog) Forget(_ context.Context, eventID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.seen, eventID)
	return nil
}
