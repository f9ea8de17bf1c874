package services

import (
	"fmt"
	"math"
	"sort"

	"github.com/tbourn/lead-dispatch/internal/domain"
)

// Scorer ranks one candidate for a lead. Larger is better.
type Scorer interface {
	Strategy() domain.Strategy
	Score(c Candidate, lead *domain.Lead, cfg *domain.MatchingConfig) float64
}

// ScorerFor returns the scorer implementing s. Unknown strategies are an
// error rather than a silent default.
func ScorerFor(s domain.Strategy) (Scorer, error) {
	switch s {
	case domain.StrategyRoundRobin:
		return RoundRobinScorer{}, nil
	case domain.StrategyScored:
		return WeightedScorer{}, nil
	case domain.StrategyGeographic:
		return GeographicScorer{}, nil
	}
	return nil, fmt.Errorf("%w: strategy %q", ErrInvalidStrategy, s)
}

// RoundRobinScorer gives every candidate the same score, leaving the order
// to the random tie-break.
type RoundRobinScorer struct{}

func (RoundRobinScorer) Strategy() domain.Strategy { return domain.StrategyRoundRobin }

func (RoundRobinScorer) Score(Candidate, *domain.Lead, *domain.MatchingConfig) float64 { return 0 }

// GeographicScorer prefers the closest candidates: 1000 - distance_km, or 0
// when the distance is unknown.
type GeographicScorer struct{}

func (GeographicScorer) Strategy() domain.Strategy { return domain.StrategyGeographic }

func (GeographicScorer) Score(c Candidate, _ *domain.Lead, _ *domain.MatchingConfig) float64 {
	if c.DistanceKm == nil {
		return 0
	}
	return 1000 - *c.DistanceKm
}

// WeightedScorer combines rating, review volume, verification and proximity
// using the configured weights. The response-rate weight is not consumed.
type WeightedScorer struct{}

func (WeightedScorer) Strategy() domain.Strategy { return domain.StrategyScored }

func (WeightedScorer) Score(c Candidate, _ *domain.Lead, cfg *domain.MatchingConfig) float64 {
	a := c.Artisan
	ratingNorm := a.Rating / 5
	reviewsNorm := math.Min(float64(a.ReviewCount), 100) / 100
	verified := 0.0
	if a.Verified() {
		verified = 1
	}
	proximity := 0.0
	if c.DistanceKm != nil && cfg.GeoRadiusKm > 0 {
		proximity = 1 - math.Min(*c.DistanceKm/cfg.GeoRadiusKm, 1)
	}
	return ratingNorm*float64(cfg.WeightRating) +
		reviewsNorm*float64(cfg.WeightReviews) +
		verified*float64(cfg.WeightVerified) +
		proximity*float64(cfg.WeightProximity)
}

// Rank scores cands in place and sorts them best first. Exact ties are
// broken by a random key drawn from rnd.
func Rank(cands []Candidate, s Scorer, lead *domain.Lead, cfg *domain.MatchingConfig, rnd func() float64) {
	for i := range cands {
		cands[i].Score = s.Score(cands[i], lead, cfg)
		cands[i].tieBreak = rnd()
	}
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].Score != cands[j].Score {
			return cands[i].Score > cands[j].Score
		}
		return cands[i].tieBreak < cands[j].tieBreak
	})
}
