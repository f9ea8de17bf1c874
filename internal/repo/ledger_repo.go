// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides the capacity ledger primitives.
//
// Every counter change is a single atomic statement (an upsert or a guarded
// UPDATE), so concurrent callers never lose updates. The row for a
// (artisan, month) pair is created lazily by the first statement touching it.
//
// Functions:
//
//   - IncrementReserved(ctx, db, artisanID, month) -> (reserved int, error)
//     Adds one reservation and returns the post-increment value.
//
//   - DecrementReserved(ctx, db, artisanID, month) -> error
//     Compensates a refused reservation; never drops below zero.
//
//   - IncrementConsumed(ctx, db, artisanID, month) -> error
//
//   - ReleaseReservation(ctx, db, artisanID, month) -> error
//     Increments released and decrements reserved (floored at zero).
//
//   - GetLedgerEntry(ctx, db, artisanID, month) -> (*domain.CapacityLedgerEntry, error)
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/lead-dispatch/internal/domain"
)

var ledgerKey = []clause.Column{{Name: "artisan_id"}, {Name: "month"}}

// upsertLedger inserts seed or, when the (artisan, month) row exists, applies
// the given assignments to it in the same statement.
func upsertLedger(ctx context.Context, db *gorm.DB, seed domain.CapacityLedgerEntry, set map[string]any) error {
	set["updated_at"] = seed.UpdatedAt
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   ledgerKey,
		DoUpdates: clause.Assignments(set),
	}).Create(&seed).Error
}

// IncrementReserved atomically adds one reservation for (artisanID, month)
// and re-reads the resulting value with the same handle. When db is a
// transaction, the row stays locked by it until commit.
func IncrementReserved(ctx context.Context, db *gorm.DB, artisanID, month string) (int, error) {
	now := time.Now().UTC()
	err := upsertLedger(ctx, db, domain.CapacityLedgerEntry{
		ArtisanID: artisanID, Month: month, Reserved: 1, UpdatedAt: now,
	}, map[string]any{
		"reserved": gorm.Expr("capacity_ledger.reserved + 1"),
	})
	if err != nil {
		return 0, err
	}

	var reserved int
	row := db.WithContext(ctx).
		Model(&domain.CapacityLedgerEntry{}).
		Select("reserved").
		Where("artisan_id = ? AND month = ?", artisanID, month).
		Row()
	if err := row.Scan(&reserved); err != nil {
		return 0, err
	}
	return reserved, nil
}

// DecrementReserved takes back one reservation, guarded so that reserved
// never goes below zero.
func DecrementReserved(ctx context.Context, db *gorm.DB, artisanID, month string) error {
	return db.WithContext(ctx).
		Model(&domain.CapacityLedgerEntry{}).
		Where("artisan_id = ? AND month = ? AND reserved > 0", artisanID, month).
		Updates(map[string]any{
			"reserved":   gorm.Expr("reserved - 1"),
			"updated_at": time.Now().UTC(),
		}).Error
}

// IncrementConsumed records that one reserved lead turned into real work.
func IncrementConsumed(ctx context.Context, db *gorm.DB, artisanID, month string) error {
	now := time.Now().UTC()
	return upsertLedger(ctx, db, domain.CapacityLedgerEntry{
		ArtisanID: artisanID, Month: month, Consumed: 1, UpdatedAt: now,
	}, map[string]any{
		"consumed": gorm.Expr("capacity_ledger.consumed + 1"),
	})
}

// ReleaseReservation returns one reservation to the pool.
func ReleaseReservation(ctx context.Context, db *gorm.DB, artisanID, month string) error {
	now := time.Now().UTC()
	return upsertLedger(ctx, db, domain.CapacityLedgerEntry{
		ArtisanID: artisanID, Month: month, Released: 1, UpdatedAt: now,
	}, map[string]any{
		"released": gorm.Expr("capacity_ledger.released + 1"),
		"reserved": gorm.Expr("CASE WHEN capacity_ledger.reserved > 0 THEN capacity_ledger.reserved - 1 ELSE 0 END"),
	})
}

// GetLedgerEntry returns the ledger row for (artisanID, month), or
// ErrNotFound when nothing was reserved that month yet.
func GetLedgerEntry(ctx context.Context, db *gorm.DB, artisanID, month string) (*domain.CapacityLedgerEntry, error) {
	var e domain.CapacityLedgerEntry
	err := db.WithContext(ctx).
		Where("artisan_id = ? AND month = ?", artisanID, month).
		First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}
