// Package services – CapacityLedger
//
// This file implements the per-artisan monthly capacity ledger. A reservation
// increments the (artisan, month) counter first and then compares the
// post-increment value with the effective quota, compensating with a
// decrement when it overshoots. No read-then-write window exists between the
// check and the update.
//
// Every attempt runs in a nested transaction: a savepoint when the caller
// passes a transaction handle, a real transaction otherwise. A failed attempt
// rolls back only itself, which keeps Postgres transactions usable after a
// serialization or deadlock error.
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tbourn/lead-dispatch/internal/domain"
	"github.com/tbourn/lead-dispatch/internal/observability"
	"github.com/tbourn/lead-dispatch/internal/repo"
)

// UnlimitedQuota is the sentinel quota of artisans without a bounded plan.
const UnlimitedQuota = math.MaxInt32

// DefaultReserveRetries bounds retries of a reservation hitting contention.
const DefaultReserveRetries = 3

// CapacityLedger enforces plan quotas over the capacity ledger rows.
type CapacityLedger struct {
	DB      *gorm.DB
	Retries int              // transient-error retries per reservation; < 0 disables
	Now     func() time.Time // clock used for subscription lookup; defaults to time.Now
}

// Usage is the ledger snapshot of one artisan for one month.
type Usage struct {
	ArtisanID string `json:"artisan_id"`
	Month     string `json:"month"`
	Reserved  int    `json:"reserved"`
	Consumed  int    `json:"consumed"`
	Released  int    `json:"released"`
	Quota     int    `json:"quota"`
	Unlimited bool   `json:"unlimited"`
	Remaining int    `json:"remaining"`
}

func (l *CapacityLedger) now() time.Time {
	if l.Now != nil {
		return l.Now().UTC()
	}
	return time.Now().UTC()
}

func (l *CapacityLedger) retries() int {
	switch {
	case l.Retries < 0:
		return 0
	case l.Retries == 0:
		return DefaultReserveRetries
	}
	return l.Retries
}

// Quota returns the effective monthly quota of artisanID. An active
// subscription with a positive quota wins; a subscription without one falls
// back to fallback when positive. No subscription means unlimited.
func (l *CapacityLedger) Quota(ctx context.Context, db *gorm.DB, artisanID string, fallback int) (int, error) {
	sub, err := repo.ActiveSubscription(ctx, db, artisanID, l.now())
	if err != nil {
		return 0, err
	}
	switch {
	case sub == nil:
		return UnlimitedQuota, nil
	case sub.MonthlyLeadQuota > 0:
		return sub.MonthlyLeadQuota, nil
	case fallback > 0:
		return fallback, nil
	}
	return UnlimitedQuota, nil
}

// Reserve takes one unit of capacity from artisanID for month. It returns
// false when the quota is exhausted. Transient store errors are retried; the
// last error is returned once retries run out.
func (l *CapacityLedger) Reserve(ctx context.Context, db *gorm.DB, artisanID, month string, fallbackQuota int) (bool, error) {
	if db == nil {
		db = l.DB
	}
	log := zerolog.Ctx(ctx)

	quota, err := l.Quota(ctx, db, artisanID, fallbackQuota)
	if err != nil {
		observability.ReservationsTotal.WithLabelValues(observability.ReservationError).Inc()
		return false, fmt.Errorf("quota lookup: %w", err)
	}

	var ok bool
	for attempt := 0; ; attempt++ {
		ok, err = l.reserveOnce(ctx, db, artisanID, month, quota)
		if err == nil {
			break
		}
		if !repo.IsTransient(err) || attempt >= l.retries() {
			observability.ReservationsTotal.WithLabelValues(observability.ReservationError).Inc()
			return false, err
		}
		log.Debug().Err(err).Str("artisan_id", artisanID).Int("attempt", attempt+1).Msg("reservation conflict, retrying")
	}

	if !ok {
		observability.ReservationsTotal.WithLabelValues(observability.ReservationQuotaExceeded).Inc()
		log.Debug().Str("artisan_id", artisanID).Str("month", month).Int("quota", quota).Msg("quota exceeded")
		return false, nil
	}
	observability.ReservationsTotal.WithLabelValues(observability.ReservationReserved).Inc()
	return true, nil
}

func (l *CapacityLedger) reserveOnce(ctx context.Context, db *gorm.DB, artisanID, month string, quota int) (bool, error) {
	var ok bool
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		reserved, err := repo.IncrementReserved(ctx, tx, artisanID, month)
		if err != nil {
			return err
		}
		if reserved > quota {
			return repo.DecrementReserved(ctx, tx, artisanID, month)
		}
		ok = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

// Consume records that a reservation for month turned into real work.
func (l *CapacityLedger) Consume(ctx context.Context, db *gorm.DB, artisanID, month string) error {
	if db == nil {
		db = l.DB
	}
	return repo.IncrementConsumed(ctx, db, artisanID, month)
}

// Release returns a reservation for month to the pool.
func (l *CapacityLedger) Release(ctx context.Context, db *gorm.DB, artisanID, month string) error {
	if db == nil {
		db = l.DB
	}
	return repo.ReleaseReservation(ctx, db, artisanID, month)
}

// Usage reports the ledger counters and the effective quota of artisanID for
// month. A month with no activity yields zero counters.
func (l *CapacityLedger) Usage(ctx context.Context, artisanID, month string, fallbackQuota int) (*Usage, error) {
	if _, err := time.Parse("2006-01", month); err != nil {
		return nil, ErrInvalidMonth
	}
	u := &Usage{ArtisanID: artisanID, Month: month}

	e, err := repo.GetLedgerEntry(ctx, l.DB, artisanID, month)
	switch {
	case errors.Is(err, repo.ErrNotFound):
	case err != nil:
		return nil, err
	default:
		u.Reserved, u.Consumed, u.Released = e.Reserved, e.Consumed, e.Released
	}

	q, err := l.Quota(ctx, l.DB, artisanID, fallbackQuota)
	if err != nil {
		return nil, err
	}
	u.Quota = q
	u.Unlimited = q == UnlimitedQuota
	if u.Remaining = q - u.Reserved; u.Remaining < 0 {
		u.Remaining = 0
	}
	return u, nil
}

// CurrentMonth returns the ledger month key for the ledger clock.
func (l *CapacityLedger) CurrentMonth() string { return domain.MonthKey(l.now()) }
