// Package services – lead locks
//
// A LeadLocker runs a function inside one database transaction while holding
// an exclusive section keyed by lead id. Three backends are provided:
//
//   - MemoryLeadLocker:   in-process keyed mutex, for single-node deployments
//     and SQLite.
//   - PostgresLeadLocker: pg_advisory_xact_lock taken as the first statement
//     of the transaction and released by commit or rollback.
//   - RedisLeadLocker:    SET NX PX token lock with bounded wait, released by
//     a compare-and-delete script after the transaction ends.
package services

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// LeadLocker serializes work on a lead across concurrent callers.
type LeadLocker interface {
	WithLeadLock(ctx context.Context, db *gorm.DB, leadID string, fn func(tx *gorm.DB) error) error
}

const leadLockNamespace = "lead_allocation"

// ---------- in-process ----------

type keyedMutex struct {
	mu   sync.Mutex
	refs int
}

// MemoryLeadLocker holds one mutex per lead id while it has waiters.
type MemoryLeadLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedMutex
}

// NewMemoryLeadLocker returns an empty in-process locker.
func NewMemoryLeadLocker() *MemoryLeadLocker {
	return &MemoryLeadLocker{locks: map[string]*keyedMutex{}}
}

func (m *MemoryLeadLocker) acquire(key string) *keyedMutex {
	m.mu.Lock()
	km, ok := m.locks[key]
	if !ok {
		km = &keyedMutex{}
		m.locks[key] = km
	}
	km.refs++
	m.mu.Unlock()

	km.mu.Lock()
	return km
}

func (m *MemoryLeadLocker) release(key string, km *keyedMutex) {
	km.mu.Unlock()
	m.mu.Lock()
	km.refs--
	if km.refs == 0 {
		delete(m.locks, key)
	}
	m.mu.Unlock()
}

// WithLeadLock implements LeadLocker.
func (m *MemoryLeadLocker) WithLeadLock(ctx context.Context, db *gorm.DB, leadID string, fn func(tx *gorm.DB) error) error {
	km := m.acquire(leadID)
	defer m.release(leadID, km)
	return db.WithContext(ctx).Transaction(fn)
}

// held reports how many lead ids currently have a lock entry.
func (m *MemoryLeadLocker) held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

// ---------- postgres ----------

// PostgresLeadLocker uses a transaction-scoped advisory lock.
type PostgresLeadLocker struct{}

// WithLeadLock implements LeadLocker.
func (PostgresLeadLocker) WithLeadLock(ctx context.Context, db *gorm.DB, leadID string, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", advisoryKey64(leadLockNamespace, leadID)).Error; err != nil {
			return err
		}
		return fn(tx)
	})
}

func advisoryKey64(namespace, id string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(namespace))
	_, _ = h.Write([]byte{':'})
	_, _ = h.Write([]byte(id))
	return int64(h.Sum64())
}

// ---------- redis ----------

var releaseScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisLeadLocker is a token lock shared by every node talking to the same
// Redis. TTL must exceed the longest expected allocation.
type RedisLeadLocker struct {
	Client    redis.UniversalClient
	KeyPrefix string
	TTL       time.Duration
	Wait      time.Duration
}

func (r *RedisLeadLocker) key(leadID string) string {
	prefix := r.KeyPrefix
	if prefix == "" {
		prefix = "lock:"
	}
	return prefix + leadLockNamespace + ":" + leadID
}

// tryAcquire retries SET NX with exponential backoff until Wait elapses.
func (r *RedisLeadLocker) tryAcquire(ctx context.Context, key, token string) error {
	ttl := r.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	deadline := time.Now().Add(r.Wait)
	backoff := 10 * time.Millisecond

	for {
		ok, err := r.Client.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return ErrLockNotAcquired
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if backoff > 500*time.Millisecond {
				backoff = 500 * time.Millisecond
			}
		}
	}
}

// WithLeadLock implements LeadLocker.
func (r *RedisLeadLocker) WithLeadLock(ctx context.Context, db *gorm.DB, leadID string, fn func(tx *gorm.DB) error) error {
	key, token := r.key(leadID), uuid.NewString()
	if err := r.tryAcquire(ctx, key, token); err != nil {
		return err
	}
	defer func() {
		// Release even when ctx was canceled mid-transaction.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		n, err := releaseScript.Run(rctx, r.Client, []string{key}, token).Int64()
		if err != nil || n == 0 {
			zerolog.Ctx(ctx).Warn().Err(err).Str("lead_id", leadID).Msg("lead lock expired before release")
		}
	}()
	return db.WithContext(ctx).Transaction(fn)
}
