// Package services – CandidateFilter
//
// This file selects the artisans eligible for a lead. Cheap predicates
// (activity, merge state, department, rating, verification, claim status)
// are pushed into the query; geography and specialty are evaluated here
// because they depend on the lead's service offerings.
//
// Specialty labels are compared after case folding and accent stripping, so
// "Électricien" matches a lead asking for "electricien".
package services

import (
	"context"
	"math"
	"strings"
	"unicode"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/tbourn/lead-dispatch/internal/domain"
	"github.com/tbourn/lead-dispatch/internal/repo"
)

// Specialty match modes.
const (
	SpecialtyModeSubstring = "substring"
	SpecialtyModeExact     = "exact"
)

// Candidate is an artisan that passed every eligibility rule for a lead.
type Candidate struct {
	Artisan    domain.Artisan         `json:"artisan"`
	DistanceKm *float64               `json:"distance_km,omitempty"`
	Offering   *domain.ArtisanService `json:"offering,omitempty"`
	Score      float64                `json:"score"`

	tieBreak float64
}

// CandidateFilter evaluates eligibility rules. It performs no writes.
type CandidateFilter struct {
	Resolver *IdentityResolver
}

// FindCandidates returns the eligible artisans for lead under cfg, in no
// particular order. db is the handle to read with (a transaction or the root
// connection).
func (f *CandidateFilter) FindCandidates(ctx context.Context, db *gorm.DB, lead *domain.Lead, cfg *domain.MatchingConfig) ([]Candidate, error) {
	tr := otel.Tracer("services/CandidateFilter")
	ctx, span := tr.Start(ctx, "FindCandidates",
		trace.WithAttributes(attribute.String("lead.id", lead.ID)),
	)
	defer span.End()

	requireClaimed := false
	if cfg.PreferClaimed {
		claimed, err := repo.AnyClaimedArtisan(ctx, db)
		if err != nil {
			return nil, err
		}
		requireClaimed = claimed
	}

	q := repo.ArtisanQuery{
		MinRating:       cfg.MinRating,
		RequireVerified: cfg.RequireVerifiedUrgent && lead.Urgency.IsUrgent(),
		RequireClaimed:  requireClaimed,
	}
	if cfg.RequireSameDepartment {
		q.Department = lead.Department
	}
	artisans, err := repo.ListEligibleArtisans(ctx, db, q)
	if err != nil {
		return nil, err
	}

	offerings, err := f.offeringsByArtisan(ctx, db, lead)
	if err != nil {
		return nil, err
	}

	leadPoint, leadHasPoint := lead.Point()
	out := make([]Candidate, 0, len(artisans))
	for _, a := range artisans {
		if cfg.RequireSameDepartment && a.Department != lead.Department {
			continue
		}
		offering := offerings[a.ID]

		radius := cfg.GeoRadiusKm
		if offering != nil && offering.RadiusKm != nil {
			radius = math.Min(*offering.RadiusKm, cfg.GeoRadiusKm)
		}
		var dist *float64
		if p, ok := a.Point(); ok && leadHasPoint {
			d := domain.DistanceKm(leadPoint, p)
			if d > radius {
				continue
			}
			dist = &d
		}

		if cfg.RequireSpecialtyMatch && offering == nil &&
			!specialtyMatches(a.Specialty, lead.ServiceName, cfg.SpecialtyMatchMode) {
			continue
		}

		out = append(out, Candidate{Artisan: a, DistanceKm: dist, Offering: offering})
	}
	span.SetAttributes(attribute.Int("candidates", len(out)))
	return out, nil
}

// offeringsByArtisan indexes the offerings for the lead's service by the
// canonical id of the artisan that registered them. An offering recorded
// directly against the canonical id wins over one inherited from a merged
// record.
func (f *CandidateFilter) offeringsByArtisan(ctx context.Context, db *gorm.DB, lead *domain.Lead) (map[string]*domain.ArtisanService, error) {
	out := map[string]*domain.ArtisanService{}
	if lead.ServiceID == nil || *lead.ServiceID == "" {
		return out, nil
	}
	rows, err := repo.ListServiceOfferings(ctx, db, *lead.ServiceID)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		o := &rows[i]
		id := o.ArtisanID
		if f.Resolver != nil {
			if id, err = f.Resolver.Resolve(ctx, db, o.ArtisanID, 0); err != nil {
				return nil, err
			}
		}
		if prev, ok := out[id]; ok && prev.ArtisanID == id {
			continue
		}
		out[id] = o
	}
	return out, nil
}

// foldText lowercases s and strips combining marks.
func foldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.TrimSpace(cases.Fold().String(out))
}

// specialtyMatches reports whether the lead's free-text service name matches
// the artisan's specialty label. An empty service name never matches.
func specialtyMatches(specialty, serviceName, mode string) bool {
	want := foldText(serviceName)
	if want == "" {
		return false
	}
	have := foldText(specialty)
	if mode == SpecialtyModeExact {
		return have == want
	}
	return strings.Contains(have, want)
}
