//go:build integration

package services

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tbourn/lead-dispatch/internal/domain"
	"github.com/tbourn/lead-dispatch/internal/testhelpers"
)

func postgresEngine(t *testing.T, locker LeadLocker) *engine {
	t.Helper()
	db := testhelpers.Postgres(t)
	resolver := &IdentityResolver{DB: db}
	ledger := &CapacityLedger{DB: db}
	configs := NewConfigStore(db, 0)
	pub := &recordingPublisher{}
	return &engine{
		db:       db,
		configs:  configs,
		resolver: resolver,
		ledger:   ledger,
		pub:      pub,
		allocator: &Allocator{
			DB:        db,
			Configs:   configs,
			Locker:    locker,
			Filter:    &CandidateFilter{Resolver: resolver},
			Ledger:    ledger,
			Publisher: pub,
		},
	}
}

func TestPostgres_ConcurrentAllocateSameLead(t *testing.T) {
	e := postgresEngine(t, PostgresLeadLocker{})
	testhelpers.CreateConfig(t, e.db, domain.MatchingConfig{MaxArtisansPerLead: 3})
	for _, id := range []string{
		"00000000-0000-4000-8000-000000000001",
		"00000000-0000-4000-8000-000000000002",
		"00000000-0000-4000-8000-000000000003",
		"00000000-0000-4000-8000-000000000004",
	} {
		testhelpers.CreateArtisan(t, e.db, parisArtisan(id))
	}
	lead := testhelpers.CreateLead(t, e.db, parisLead())

	var (
		wg      sync.WaitGroup
		created atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.allocator.Allocate(context.Background(), lead.ID)
			if err != nil {
				t.Errorf("Allocate: %v", err)
				return
			}
			created.Add(int32(res.Created))
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 3, created.Load(), "exactly one call distributes the lead")
	assert.Len(t, e.assignments(t, lead.ID), 3)
	assert.Equal(t, 1, e.pub.count())
}

func TestPostgres_QuotaHoldsAcrossLeads(t *testing.T) {
	e := postgresEngine(t, PostgresLeadLocker{})
	testhelpers.CreateConfig(t, e.db, domain.MatchingConfig{MaxArtisansPerLead: 1})
	a := testhelpers.CreateArtisan(t, e.db, parisArtisan("00000000-0000-4000-8000-0000000000aa"))
	testhelpers.CreateSubscription(t, e.db, a.ID, 2)

	leads := make([]domain.Lead, 6)
	for i := range leads {
		leads[i] = testhelpers.CreateLead(t, e.db, parisLead())
	}

	var wg sync.WaitGroup
	for _, l := range leads {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := e.allocator.Allocate(context.Background(), id); err != nil {
				t.Errorf("Allocate: %v", err)
			}
		}(l.ID)
	}
	wg.Wait()

	assert.Equal(t, 2, e.reserved(t, a.ID))
	var n int64
	require.NoError(t, e.db.Model(&domain.LeadAssignment{}).Where("artisan_id = ?", a.ID).Count(&n).Error)
	assert.EqualValues(t, 2, n)
}

func TestRedisLeadLocker_MutualExclusionAndTimeout(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: testhelpers.RedisAddr(t)})
	t.Cleanup(func() { _ = client.Close() })
	db := testhelpers.NewDB(t)

	l := &RedisLeadLocker{Client: client, KeyPrefix: "test:" + t.Name() + ":", TTL: 5 * time.Second, Wait: 2 * time.Second}

	var (
		inside  atomic.Int32
		maxSeen atomic.Int32
		wg      sync.WaitGroup
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.WithLeadLock(context.Background(), db, "lead-1", func(*gorm.DB) error {
				n := inside.Add(1)
				if n > maxSeen.Load() {
					maxSeen.Store(n)
				}
				time.Sleep(20 * time.Millisecond)
				inside.Add(-1)
				return nil
			})
			if err != nil {
				t.Errorf("WithLeadLock: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, maxSeen.Load())

	// A held key makes a short-waiting caller give up.
	require.NoError(t, client.Set(context.Background(), l.key("lead-2"), "other", 5*time.Second).Err())
	short := &RedisLeadLocker{Client: client, KeyPrefix: l.KeyPrefix, TTL: time.Second, Wait: 50 * time.Millisecond}
	err := short.WithLeadLock(context.Background(), db, "lead-2", func(*gorm.DB) error { return nil })
	assert.ErrorIs(t, err, ErrLockNotAcquired)
}
