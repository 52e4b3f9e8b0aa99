// Package locks provides per-order mutual exclusion. The primary path is a
// Redis SET NX lease with an owner token; when the cache is unreachable it
// falls back to a MySQL named lock held on a pinned connection. Either way
// the lock expires only from non-renewal, never from a timer racing the
// holder.
package locks

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const lockKeyPrefix = "lock:order:"

// renewInterval divides the TTL to get the lease renewal period.
const renewDivisor = 3

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Manager acquires and releases per-order locks.
type Manager struct {
	redis *redis.Client
	db    *gorm.DB
}

// NewManager creates a lock manager. Either backend may be nil; at least one
// must be usable at acquire time.
func NewManager(redisClient *redis.Client, db *gorm.DB) *Manager {
	return &Manager{redis: redisClient, db: db}
}

// Lock is a held per-order lease. Holders must call Release when done; while
// held, the lease is renewed in the background so it only expires if the
// holding process dies.
type Lock struct {
	Key   string
	Token string

	mgr  *Manager
	ttl  time.Duration
	conn *sql.Conn // set only on the database fallback path

	stopOnce  sync.Once
	stopRenew chan struct{}
}

// LockKey derives the cache key for an order's lock.
func LockKey(orderID uint) string {
	return fmt.Sprintf("%s%d", lockKeyPrefix, orderID)
}

// Acquire tries to take the lock for an order. Returns (nil, false, nil)
// when another holder owns it. Callers must treat that as "retry later",
// never as permission to proceed.
func (m *Manager) Acquire(ctx context.Context, orderID uint, ttl time.Duration) (*Lock, bool, error) {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	key := LockKey(orderID)
	token := uuid.New().String()

	if m.redis != nil {
		ok, err := m.redis.SetNX(ctx, key, token, ttl).Result()
		if err == nil {
			if !ok {
				return nil, false, nil
			}
			lock := &Lock{Key: key, Token: token, mgr: m, ttl: ttl, stopRenew: make(chan struct{})}
			go lock.keepAlive()
			return lock, true, nil
		}
		log.Warnf("[Locks] cache acquire failed for %s, falling back to database: %v", key, err)
	}

	return m.acquireDatabase(ctx, key, token, ttl)
}

// acquireDatabase takes a MySQL named lock on a dedicated connection. The
// lock is session-scoped, so the connection is pinned until Release.
func (m *Manager) acquireDatabase(ctx context.Context, key, token string, ttl time.Duration) (*Lock, bool, error) {
	if m.db == nil {
		return nil, false, fmt.Errorf("no lock backend available for %s", key)
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return nil, false, err
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return nil, false, err
	}

	var got sql.NullInt64
	// Zero wait: contention means "retry later", not "queue up".
	if err := conn.QueryRowContext(ctx, "SELECT GET_LOCK(?, 0)", key).Scan(&got); err != nil {
		_ = conn.Close()
		return nil, false, err
	}
	if !got.Valid || got.Int64 != 1 {
		_ = conn.Close()
		return nil, false, nil
	}

	// The named lock lives as long as this pinned session; no timer needed.
	return &Lock{Key: key, Token: token, mgr: m, ttl: ttl, conn: conn, stopRenew: make(chan struct{})}, true, nil
}

// Release gives the lock back. Only the owner token can release the cache
// lease; the database path releases the named lock and unpins its session.
func (m *Manager) Release(ctx context.Context, lock *Lock) bool {
	if lock == nil {
		return false
	}
	lock.stopOnce.Do(func() { close(lock.stopRenew) })

	if lock.conn != nil {
		var released sql.NullInt64
		err := lock.conn.QueryRowContext(ctx, "SELECT RELEASE_LOCK(?)", lock.Key).Scan(&released)
		_ = lock.conn.Close()
		if err != nil {
			log.Errorf("[Locks] database release failed for %s: %v", lock.Key, err)
			return false
		}
		return released.Valid && released.Int64 == 1
	}

	if m.redis == nil {
		return false
	}
	n, err := releaseScript.Run(ctx, m.redis, []string{lock.Key}, lock.Token).Int()
	if err != nil {
		log.Errorf("[Locks] cache release failed for %s: %v", lock.Key, err)
		return false
	}
	return n == 1
}

// keepAlive renews the cache lease while the holder is working. If renewal
// ever finds a different owner the loop stops; the holder has lost the lock.
func (l *Lock) keepAlive() {
	interval := l.ttl / renewDivisor
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopRenew:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			n, err := renewScript.Run(ctx, l.mgr.redis, []string{l.Key}, l.Token, l.ttl.Milliseconds()).Int()
			cancel()
			if err != nil {
				log.Warnf("[Locks] lease renewal error for %s: %v", l.Key, err)
				continue
			}
			if n != 1 {
				log.Warnf("[Locks] lost lease for %s, stopping renewal", l.Key)
				return
			}
		}
	}
}
