// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for leads and the
// active matching configuration.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/lead-dispatch/internal/domain"
)

// GetLead fetches a lead by ID, or ErrNotFound.
func GetLead(ctx context.Context, db *gorm.DB, id string) (*domain.Lead, error) {
	var l domain.Lead
	if err := db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// MarkLeadDistributed moves a lead from "new" to "distributed". It returns
// ErrNotFound when the lead is missing or no longer in the "new" state.
func MarkLeadDistributed(ctx context.Context, db *gorm.DB, id string, at time.Time) error {
	res := db.WithContext(ctx).
		Model(&domain.Lead{}).
		Where("id = ? AND status = ?", id, domain.LeadNew).
		Updates(map[string]any{
			"status":         domain.LeadDistributed,
			"distributed_at": at,
			"updated_at":     at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetActiveConfig returns the active matching configuration. When several
// rows are flagged active, the most recently updated one wins.
func GetActiveConfig(ctx context.Context, db *gorm.DB) (*domain.MatchingConfig, error) {
	var c domain.MatchingConfig
	err := db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("updated_at desc").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ActiveSubscription returns the artisan's subscription live at now, or
// (nil, nil) when the artisan has none.
func ActiveSubscription(ctx context.Context, db *gorm.DB, artisanID string, now time.Time) (*domain.Subscription, error) {
	var s domain.Subscription
	err := db.WithContext(ctx).
		Where("artisan_id = ? AND status = ? AND starts_at <= ?", artisanID, domain.SubscriptionActive, now).
		Where("(ends_at IS NULL OR ends_at > ?)", now).
		Order("starts_at desc").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
