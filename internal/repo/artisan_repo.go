// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for artisans, their
// service offerings and the merge chain between artisan records.
//
// Soft-deleted artisans are excluded automatically by GORM's DeletedAt scope.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/lead-dispatch/internal/domain"
)

// ArtisanQuery narrows the eligible artisan pool at the database level.
// Zero values disable the corresponding predicate.
type ArtisanQuery struct {
	Department      string
	MinRating       float64
	RequireVerified bool
	RequireClaimed  bool
}

// ListEligibleArtisans returns active, non-deleted, non-merged artisans
// matching q. Geography and specialty are evaluated by the caller.
func ListEligibleArtisans(ctx context.Context, db *gorm.DB, q ArtisanQuery) ([]domain.Artisan, error) {
	tx := db.WithContext(ctx).
		Where("active = ? AND merged_into IS NULL", true)
	if q.Department != "" {
		tx = tx.Where("department = ?", q.Department)
	}
	if q.MinRating > 0 {
		tx = tx.Where("rating >= ?", q.MinRating)
	}
	if q.RequireVerified {
		tx = tx.Where("verified_at IS NOT NULL")
	}
	if q.RequireClaimed {
		tx = tx.Where("claimed_at IS NOT NULL")
	}
	var out []domain.Artisan
	err := tx.Order("id").Find(&out).Error
	return out, err
}

// AnyClaimedArtisan reports whether at least one active, non-deleted artisan
// has claimed its profile.
func AnyClaimedArtisan(ctx context.Context, db *gorm.DB) (bool, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Artisan{}).
		Where("active = ? AND claimed_at IS NOT NULL", true).
		Count(&n).Error
	return n > 0, err
}

// GetArtisan fetches a non-deleted artisan by ID, or ErrNotFound.
func GetArtisan(ctx context.Context, db *gorm.DB, id string) (*domain.Artisan, error) {
	var a domain.Artisan
	if err := db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// ListServiceOfferings returns every offering registered for serviceID.
func ListServiceOfferings(ctx context.Context, db *gorm.DB, serviceID string) ([]domain.ArtisanService, error) {
	var out []domain.ArtisanService
	err := db.WithContext(ctx).
		Where("service_id = ?", serviceID).
		Find(&out).Error
	return out, err
}

// NextMergeHop returns the record that superseded id, if any.
func NextMergeHop(ctx context.Context, db *gorm.DB, id string) (string, bool, error) {
	var link domain.MergeLink
	err := db.WithContext(ctx).Where("old_id = ?", id).First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return link.NewID, true, nil
}

// CreateMergeLink records oldID -> newID and stamps the back-reference on
// the superseded artisan. Call it inside a transaction.
func CreateMergeLink(ctx context.Context, db *gorm.DB, oldID, newID string) error {
	now := time.Now().UTC()
	if err := db.WithContext(ctx).Create(&domain.MergeLink{OldID: oldID, NewID: newID, CreatedAt: now}).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).
		Model(&domain.Artisan{}).
		Where("id = ?", oldID).
		Updates(map[string]any{"merged_into": newID, "updated_at": now}).Error
}
