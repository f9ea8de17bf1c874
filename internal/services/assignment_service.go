// Package services – AssignmentService
//
// This file owns the capacity side of the assignment lifecycle after
// allocation: marking an assignment viewed, consuming its reservation when
// it turns into real work, releasing it when the artisan declines or the
// offer expires, and sweeping stale open assignments.
//
// Consume and Release are idempotent: repeating the same transition is a
// no-op, while a conflicting one (releasing a consumed assignment or the
// reverse) returns ErrAssignmentConsumed.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/lead-dispatch/internal/domain"
	"github.com/tbourn/lead-dispatch/internal/repo"
)

// DefaultExpiryHours applies when no configuration is active.
const DefaultExpiryHours = 48

const expireBatchSize = 500

// Release reasons.
const (
	ReleaseDeclined = "declined"
	ReleaseExpired  = "expired"
)

// AssignmentService manages post-allocation assignment transitions.
type AssignmentService struct {
	DB      *gorm.DB
	Ledger  *CapacityLedger
	Configs ConfigSource // optional; supplies expiry_hours

	Now func() time.Time
}

func (s *AssignmentService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func assignmentErr(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ErrAssignmentNotFound
	}
	return err
}

// Get returns an assignment by id.
func (s *AssignmentService) Get(ctx context.Context, id string) (*domain.LeadAssignment, error) {
	a, err := repo.GetAssignment(ctx, s.DB, id)
	if err != nil {
		return nil, assignmentErr(err)
	}
	return a, nil
}

// ListForLead returns the assignments of an existing lead ordered by rank.
func (s *AssignmentService) ListForLead(ctx context.Context, leadID string) ([]domain.LeadAssignment, error) {
	if _, err := repo.GetLead(ctx, s.DB, leadID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}
	return repo.ListLeadAssignments(ctx, s.DB, leadID)
}

// transitionAttempts bounds how often a transition re-reads an assignment
// after its guarded update matched no row.
const transitionAttempts = 3

// transition runs step on a fresh read of assignment id inside one
// transaction. step returns repo.ErrNotFound when its guarded update lost
// the row to a concurrent transition; the row is then re-read and step runs
// again against the state that landed.
func (s *AssignmentService) transition(ctx context.Context, id string, step func(tx *gorm.DB, a *domain.LeadAssignment) error) (*domain.LeadAssignment, error) {
	var out *domain.LeadAssignment
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := 0; i < transitionAttempts; i++ {
			a, err := repo.GetAssignment(ctx, tx, id)
			if err != nil {
				return assignmentErr(err)
			}
			out = a
			if err := step(tx, a); !errors.Is(err, repo.ErrNotFound) {
				return err
			}
			zerolog.Ctx(ctx).Debug().Str("assignment_id", id).Int("attempt", i+1).
				Msg("assignment changed concurrently; re-reading")
		}
		return ErrAssignmentConsumed
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkViewed moves a pending assignment to viewed. Other states are returned
// unchanged.
func (s *AssignmentService) MarkViewed(ctx context.Context, id string) (*domain.LeadAssignment, error) {
	return s.transition(ctx, id, func(tx *gorm.DB, a *domain.LeadAssignment) error {
		if a.Status != domain.AssignmentPending {
			return nil
		}
		now := s.now()
		if err := repo.UpdateAssignment(ctx, tx, id,
			[]domain.AssignmentStatus{domain.AssignmentPending},
			map[string]any{"status": domain.AssignmentViewed, "viewed_at": now},
		); err != nil {
			return err
		}
		a.Status, a.ViewedAt = domain.AssignmentViewed, &now
		return nil
	})
}

// Consume charges the assignment's reservation as consumed capacity.
func (s *AssignmentService) Consume(ctx context.Context, id string) (*domain.LeadAssignment, error) {
	tr := otel.Tracer("services/AssignmentService")
	ctx, span := tr.Start(ctx, "Consume", trace.WithAttributes(attribute.String("assignment.id", id)))
	defer span.End()

	return s.transition(ctx, id, func(tx *gorm.DB, a *domain.LeadAssignment) error {
		if a.ConsumedAt != nil {
			return nil
		}
		if a.ReleasedAt != nil {
			return ErrAssignmentConsumed
		}

		now := s.now()
		status := a.Status
		if status.Open() {
			status = domain.AssignmentAccepted
		}
		if err := repo.UpdateAssignment(ctx, tx, id,
			[]domain.AssignmentStatus{a.Status},
			map[string]any{"status": status, "consumed_at": now, "responded_at": respondedAt(a, now)},
		); err != nil {
			return err
		}
		if err := s.Ledger.Consume(ctx, tx, a.ArtisanID, a.Month); err != nil {
			return err
		}
		a.Status, a.ConsumedAt, a.RespondedAt = status, &now, respondedAt(a, now)
		return nil
	})
}

// Release returns the assignment's reservation to the artisan's pool. reason
// is declined or expired and becomes the assignment status.
func (s *AssignmentService) Release(ctx context.Context, id, reason string) (*domain.LeadAssignment, error) {
	var status domain.AssignmentStatus
	switch reason {
	case ReleaseDeclined:
		status = domain.AssignmentDeclined
	case ReleaseExpired:
		status = domain.AssignmentExpired
	default:
		return nil, ErrInvalidReleaseReason
	}

	tr := otel.Tracer("services/AssignmentService")
	ctx, span := tr.Start(ctx, "Release", trace.WithAttributes(
		attribute.String("assignment.id", id),
		attribute.String("reason", reason),
	))
	defer span.End()

	return s.transition(ctx, id, func(tx *gorm.DB, a *domain.LeadAssignment) error {
		if a.ReleasedAt != nil {
			return nil
		}
		if a.ConsumedAt != nil {
			return ErrAssignmentConsumed
		}

		now := s.now()
		fields := map[string]any{"status": status, "released_at": now}
		if status == domain.AssignmentDeclined {
			fields["responded_at"] = respondedAt(a, now)
		}
		if err := repo.UpdateAssignment(ctx, tx, id, []domain.AssignmentStatus{a.Status}, fields); err != nil {
			return err
		}
		if err := s.Ledger.Release(ctx, tx, a.ArtisanID, a.Month); err != nil {
			return err
		}
		a.Status, a.ReleasedAt = status, &now
		if status == domain.AssignmentDeclined {
			a.RespondedAt = respondedAt(a, now)
		}
		return nil
	})
}

func respondedAt(a *domain.LeadAssignment, now time.Time) *time.Time {
	if a.RespondedAt != nil {
		return a.RespondedAt
	}
	return &now
}

// ExpireStale releases every open assignment reserved more than expiry_hours
// before now and returns how many were expired.
func (s *AssignmentService) ExpireStale(ctx context.Context, now time.Time) (int, error) {
	hours := DefaultExpiryHours
	if s.Configs != nil {
		cfg, err := s.Configs.Active(ctx)
		switch {
		case err == nil && cfg.ExpiryHours > 0:
			hours = cfg.ExpiryHours
		case err != nil && !errors.Is(err, ErrConfigNotFound):
			return 0, err
		}
	}
	cutoff := now.UTC().Add(-time.Duration(hours) * time.Hour)
	log := zerolog.Ctx(ctx)

	expired := 0
	for {
		batch, err := repo.ListStaleAssignments(ctx, s.DB, cutoff, expireBatchSize)
		if err != nil {
			return expired, err
		}
		progressed := 0
		for _, a := range batch {
			if _, err := s.Release(ctx, a.ID, ReleaseExpired); err != nil {
				log.Warn().Err(err).Str("assignment_id", a.ID).Msg("expire assignment failed")
				continue
			}
			progressed++
		}
		expired += progressed
		if len(batch) < expireBatchSize || progressed == 0 {
			break
		}
	}
	if expired > 0 {
		log.Info().Int("expired", expired).Time("cutoff", cutoff).Msg("stale assignments expired")
	}
	return expired, nil
}

// RunExpirySweeper calls ExpireStale every interval until ctx is canceled.
// Sweep errors are logged and the loop continues.
func (s *AssignmentService) RunExpirySweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if _, err := s.ExpireStale(ctx, s.now()); err != nil && ctx.Err() == nil {
				zerolog.Ctx(ctx).Error().Err(err).Msg("expiry sweep failed")
			}
		}
	}
}
