// Package ratelimit implements the sliding-window quota applied to webhook
// callers, keyed by network identity. The window state lives behind an
// injected store so tests can reset it and so multiple instances can share
// the Redis-backed one.
package ratelimit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultLimit is the webhook caller quota per window.
	DefaultLimit = 100
	// DefaultWindow is the sliding window length.
	DefaultWindow = time.Minute
)

// Store records one request for an identity and reports how many requests
// fall inside the current window, including the new one.
type Store interface {
	Record(ctx context.Context, identity string, now time.Time, window time.Duration) (int64, error)
	Reset(ctx context.Context, identity string) error
}

// Limiter enforces a per-identity sliding window quota.
type Limiter struct {
	store  Store
	limit  int64
	window time.Duration

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewLimiter creates a limiter over the given store.
func NewLimiter(store Store, limit int64, window time.Duration) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Limiter{store: store, limit: limit, window: window, nowFunc: time.Now}
}

// Allow records the request and reports whether the identity is still inside
// its quota. Store failures fail open: a broken limiter must not take the
// webhook endpoint down with it.
func (l *Limiter) Allow(ctx context.Context, identity string) bool {
	count, err := l.store.Record(ctx, identity, l.nowFunc(), l.window)
	if err != nil {
		return true
	}
	return count <= l.limit
}

// Reset clears an identity's window; used by tests and operator tooling.
func (l *Limiter) Reset(ctx context.Context, identity string) error {
	return l.store.Reset(ctx, identity)
}

// MemoryStore keeps windows in process memory. Used when no cache backend is
// configured; quota then applies per instance.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string][]time.Time
}

// NewMemoryStore creates an in-process window store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string][]time.Time)}
}

func (s *MemoryStore) Record(_ context.Context, identity string, now time.Time, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-window)
	kept := s.windows[identity][:0]
	for _, ts := range s.windows[identity] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	kept = append(kept, now)
	s.windows[identity] = kept
	return int64(len(kept)), nil
}

func (s *MemoryStore) Reset(_ context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, identity)
	return nil
}

const redisWindowKeyPrefix = "ratelimit:webhook:"

// RedisStore keeps windows in a Redis sorted set scored by timestamp so the
// quota is shared across instances.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed window store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Record(ctx context.Context, identity string, now time.Time, window time.Duration) (int64, error) {
	key := redisWindowKeyPrefix + identity
	cutoff := now.Add(-window).UnixNano()

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(cutoff, 10))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: uuid.New().String()})
	count := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return count.Val(), nil
}

func (s *RedisStore) Reset(ctx context.Context, identity string) error {
	return s.client.Del(ctx, redisWindowKeyPrefix+identity).Err()
}
