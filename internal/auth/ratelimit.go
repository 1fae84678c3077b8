package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// AttemptLimiter throttles failed PIN attempts per client.
type AttemptLimiter interface {
	TooManyFailures(ctx context.Context, key string) (bool, error)
	RecordFailure(ctx context.Context, key string) error
}

const failureKeyPrefix = "pin_failures:"

// RedisLimiter counts failures in Redis with a rolling TTL window, so a
// process restart does not reset an attacker's window.
type RedisLimiter struct {
	Client *redis.Client
	Max    int
	Window time.Duration
}

func NewRedisLimiter(client *redis.Client, max int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{Client: client, Max: max, Window: window}
}

func (l *RedisLimiter) TooManyFailures(ctx context.Context, key string) (bool, error) {
	count, err := l.Client.Get(ctx, failureKeyPrefix+key).Int()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return count >= l.Max, nil
}

func (l *RedisLimiter) RecordFailure(ctx context.Context, key string) error {
	count, err := l.Client.Incr(ctx, failureKeyPrefix+key).Result()
	if err != nil {
		return err
	}
	if count == 1 {
		// First failure opens the window.
		return l.Client.Expire(ctx, failureKeyPrefix+key, l.Window).Err()
	}
	return nil
}

// MemoryLimiter is the fallback when no Redis is configured.
type MemoryLimiter struct {
	Max    int
	Window time.Duration

	mu      sync.Mutex
	entries map[string]*memoryEntry

	now func() time.Time
}

type memoryEntry struct {
	count     int
	windowEnd time.Time
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		Max:     max,
		Window:  window,
		entries: make(map[string]*memoryEntry),
		now:     time.Now,
	}
}

func (l *MemoryLimiter) TooManyFailures(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok {
		return false, nil
	}
	if l.now().After(entry.windowEnd) {
		delete(l.entries, key)
		return false, nil
	}
	return entry.count >= l.Max, nil
}

func (l *MemoryLimiter) RecordFailure(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok || l.now().After(entry.windowEnd) {
		l.entries[key] = &memoryEntry{count: 1, windowEnd: l.now().Add(l.Window)}
		return nil
	}
	entry.count++
	return nil
}
