// Package services – Allocator
//
// This file implements the lead allocation coordinator. For one lead it
// enters the per-lead exclusive section, returns early when assignments
// already exist, ranks the eligible artisans with the configured strategy and
// walks them reserving capacity until max_artisans_per_lead assignments are
// written. Everything happens in one transaction; each candidate runs in its
// own savepoint so a failing candidate is skipped without undoing the others.
//
// Observability: Allocate and Preview are OpenTelemetry-instrumented and
// report Prometheus outcome counters and latency.
package services

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/lead-dispatch/internal/domain"
	"github.com/tbourn/lead-dispatch/internal/observability"
	"github.com/tbourn/lead-dispatch/internal/repo"
)

// ConfigSource supplies the active matching configuration.
type ConfigSource interface {
	Active(ctx context.Context) (domain.MatchingConfig, error)
}

// AssignmentPublisher delivers committed assignments to downstream consumers.
type AssignmentPublisher interface {
	PublishAssignments(ctx context.Context, lead *domain.Lead, strategy domain.Strategy, assignments []domain.LeadAssignment) error
}

// AllocationResult summarizes one Allocate call.
type AllocationResult struct {
	LeadID      string                  `json:"lead_id"`
	Strategy    domain.Strategy         `json:"strategy"`
	Considered  int                     `json:"candidates_considered"`
	Created     int                     `json:"assignments_created"`
	Noop        bool                    `json:"noop"`
	Status      domain.LeadStatus       `json:"status"`
	Assignments []domain.LeadAssignment `json:"assignments"`
}

// Allocator coordinates allocation for single leads.
type Allocator struct {
	DB        *gorm.DB
	Configs   ConfigSource
	Locker    LeadLocker
	Filter    *CandidateFilter
	Ledger    *CapacityLedger
	Publisher AssignmentPublisher // optional

	Now  func() time.Time
	Rand func() float64 // tie-break source; defaults to math/rand/v2
}

var errQuotaExceeded = errors.New("quota exceeded")

func (a *Allocator) now() time.Time {
	if a.Now != nil {
		return a.Now().UTC()
	}
	return time.Now().UTC()
}

func (a *Allocator) rnd() func() float64 {
	if a.Rand != nil {
		return a.Rand
	}
	return rand.Float64
}

// Allocate distributes leadID to up to max_artisans_per_lead artisans. It is
// safe to call repeatedly and concurrently: once any assignment exists for
// the lead, further calls return a no-op result. Only a missing lead or
// configuration (or an infrastructure failure) is returned as an error.
func (a *Allocator) Allocate(ctx context.Context, leadID string) (*AllocationResult, error) {
	tr := otel.Tracer("services/Allocator")
	ctx, span := tr.Start(ctx, "Allocate",
		trace.WithAttributes(attribute.String("lead.id", leadID)),
	)
	defer span.End()

	start := time.Now()
	defer func() { observability.AllocationDuration.Observe(time.Since(start).Seconds()) }()

	res, err := a.allocate(ctx, leadID)
	if err != nil {
		observability.AllocationsTotal.WithLabelValues(observability.OutcomeError).Inc()
		observability.FailSpan(span, err, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("strategy", string(res.Strategy)),
		attribute.Int("assignments.created", res.Created),
		attribute.Bool("noop", res.Noop),
	)
	observability.AllocationsTotal.WithLabelValues(outcomeOf(res)).Inc()
	if res.Created > 0 {
		observability.AssignmentsCreatedTotal.WithLabelValues(string(res.Strategy)).Add(float64(res.Created))
	}
	return res, nil
}

func outcomeOf(res *AllocationResult) string {
	switch {
	case res.Noop:
		return observability.OutcomeNoop
	case res.Created > 0:
		return observability.OutcomeDistributed
	case res.Considered == 0:
		return observability.OutcomeNoCandidates
	}
	return observability.OutcomeNoCapacity
}

func (a *Allocator) allocate(ctx context.Context, leadID string) (*AllocationResult, error) {
	log := zerolog.Ctx(ctx).With().Str("lead_id", leadID).Logger()

	cfg, err := a.Configs.Active(ctx)
	if err != nil {
		return nil, err
	}
	scorer, err := ScorerFor(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	res := &AllocationResult{LeadID: leadID, Strategy: cfg.Strategy, Assignments: []domain.LeadAssignment{}}
	var lead *domain.Lead

	err = a.Locker.WithLeadLock(ctx, a.DB, leadID, func(tx *gorm.DB) error {
		res.Created, res.Considered, res.Noop = 0, 0, false
		res.Assignments = res.Assignments[:0]

		l, err := repo.GetLead(ctx, tx, leadID)
		if errors.Is(err, repo.ErrNotFound) {
			return ErrLeadNotFound
		}
		if err != nil {
			return err
		}
		lead = l
		res.Status = l.Status

		n, err := repo.CountLeadAssignments(ctx, tx, leadID)
		if err != nil {
			return err
		}
		if n > 0 {
			res.Noop = true
			return nil
		}
		if l.Status != domain.LeadNew {
			log.Info().Str("status", string(l.Status)).Msg("lead not in new state, skipping allocation")
			res.Noop = true
			return nil
		}

		cands, err := a.Filter.FindCandidates(ctx, tx, l, &cfg)
		if err != nil {
			return err
		}
		res.Considered = len(cands)
		if len(cands) == 0 {
			log.Warn().Msg("no eligible candidates")
			return nil
		}

		Rank(cands, scorer, l, &cfg, a.rnd())
		work := cands
		if limit := 2 * cfg.MaxArtisansPerLead; len(work) > limit {
			work = work[:limit]
		}

		now := a.now()
		month := domain.MonthKey(now)
		for _, c := range work {
			if res.Created >= cfg.MaxArtisansPerLead {
				break
			}
			asg, err := a.assign(ctx, tx, l, c, res.Created, month, now, cfg.MonthlyQuotaDefault)
			switch {
			case errors.Is(err, errQuotaExceeded):
				continue
			case err != nil:
				log.Warn().Err(err).Str("artisan_id", c.Artisan.ID).Msg("candidate reservation failed, trying next")
				continue
			}
			res.Assignments = append(res.Assignments, *asg)
			res.Created++
		}

		if res.Created == 0 {
			log.Info().Int("candidates", res.Considered).Msg("no candidate had capacity")
			return nil
		}
		if err := repo.MarkLeadDistributed(ctx, tx, l.ID, now); err != nil {
			return err
		}
		res.Status = domain.LeadDistributed
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Created > 0 {
		log.Info().Int("assignments", res.Created).Str("strategy", string(res.Strategy)).Msg("lead distributed")
		if a.Publisher != nil {
			if perr := a.Publisher.PublishAssignments(ctx, lead, res.Strategy, res.Assignments); perr != nil {
				log.Error().Err(perr).Msg("publish assignments failed")
			}
		}
	}
	return res, nil
}

// assign reserves capacity for c and writes its assignment inside a
// savepoint. errQuotaExceeded means the artisan has no capacity left.
func (a *Allocator) assign(ctx context.Context, tx *gorm.DB, lead *domain.Lead, c Candidate, rank int, month string, now time.Time, fallbackQuota int) (*domain.LeadAssignment, error) {
	var asg *domain.LeadAssignment
	err := tx.Transaction(func(sp *gorm.DB) error {
		// On Postgres the ledger row lock taken here lasts until the per-lead transaction commits.
		ok, err := a.Ledger.Reserve(ctx, sp, c.Artisan.ID, month, fallbackQuota)
		if err != nil {
			return err
		}
		if !ok {
			return errQuotaExceeded
		}
		row := &domain.LeadAssignment{
			ID:         uuid.NewString(),
			LeadID:     lead.ID,
			ArtisanID:  c.Artisan.ID,
			Score:      c.Score,
			DistanceKm: c.DistanceKm,
			Rank:       rank,
			Status:     domain.AssignmentPending,
			Month:      month,
			ReservedAt: now,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := repo.CreateAssignment(ctx, sp, row); err != nil {
			return err
		}
		asg = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return asg, nil
}

// Preview runs filtering and ranking for leadID without writing anything.
// The returned slice is ordered best first and includes every candidate.
func (a *Allocator) Preview(ctx context.Context, leadID string) ([]Candidate, domain.Strategy, error) {
	tr := otel.Tracer("services/Allocator")
	ctx, span := tr.Start(ctx, "Preview",
		trace.WithAttributes(attribute.String("lead.id", leadID)),
	)
	defer span.End()

	cfg, err := a.Configs.Active(ctx)
	if err != nil {
		return nil, "", err
	}
	scorer, err := ScorerFor(cfg.Strategy)
	if err != nil {
		return nil, "", err
	}
	lead, err := repo.GetLead(ctx, a.DB, leadID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, "", ErrLeadNotFound
	}
	if err != nil {
		return nil, "", err
	}
	cands, err := a.Filter.FindCandidates(ctx, a.DB, lead, &cfg)
	if err != nil {
		return nil, "", err
	}
	Rank(cands, scorer, lead, &cfg, a.rnd())
	return cands, cfg.Strategy, nil
}
