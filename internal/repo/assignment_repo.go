// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for lead
// assignments.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions. The (lead_id, artisan_id) pair is unique
// at the schema level; a duplicate insert surfaces as a raw DB error that
// IsDuplicate recognizes.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/lead-dispatch/internal/domain"
)

// CountLeadAssignments returns how many assignments exist for leadID.
func CountLeadAssignments(ctx context.Context, db *gorm.DB, leadID string) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.LeadAssignment{}).
		Where("lead_id = ?", leadID).
		Count(&n).Error
	return n, err
}

// CreateAssignment inserts a. Associations are never written.
func CreateAssignment(ctx context.Context, db *gorm.DB, a *domain.LeadAssignment) error {
	return db.WithContext(ctx).Omit(clause.Associations).Create(a).Error
}

// ListLeadAssignments returns the assignments of leadID ordered by rank.
func ListLeadAssignments(ctx context.Context, db *gorm.DB, leadID string) ([]domain.LeadAssignment, error) {
	var out []domain.LeadAssignment
	err := db.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("rank asc").
		Find(&out).Error
	return out, err
}

// GetAssignment fetches an assignment by ID, or ErrNotFound.
func GetAssignment(ctx context.Context, db *gorm.DB, id string) (*domain.LeadAssignment, error) {
	var a domain.LeadAssignment
	if err := db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

// UpdateAssignment applies fields to the assignment only while its status is
// one of from. It returns ErrNotFound when no row matched, which callers read
// as "someone else moved it first".
func UpdateAssignment(ctx context.Context, db *gorm.DB, id string, from []domain.AssignmentStatus, fields map[string]any) error {
	fields["updated_at"] = time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&domain.LeadAssignment{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListStaleAssignments returns open (pending or viewed) assignments reserved
// before the cutoff, oldest first, capped at limit rows.
func ListStaleAssignments(ctx context.Context, db *gorm.DB, cutoff time.Time, limit int) ([]domain.LeadAssignment, error) {
	var out []domain.LeadAssignment
	err := db.WithContext(ctx).
		Where("status IN ? AND consumed_at IS NULL AND reserved_at < ?",
			[]domain.AssignmentStatus{domain.AssignmentPending, domain.AssignmentViewed}, cutoff).
		Order("reserved_at asc").
		Limit(limit).
		Find(&out).Error
	return out, err
}
