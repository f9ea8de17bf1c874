package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/tbourn/lead-dispatch/internal/domain"
	"github.com/tbourn/lead-dispatch/internal/repo"
)

// ConfigStore serves the active matching configuration with a short-lived
// cache. Concurrent misses share one database read.
type ConfigStore struct {
	DB  *gorm.DB
	TTL time.Duration // 0 disables caching

	now   func() time.Time
	group singleflight.Group

	mu      sync.RWMutex
	cached  *domain.MatchingConfig
	expires time.Time
}

// NewConfigStore returns a store reading from db and caching for ttl.
func NewConfigStore(db *gorm.DB, ttl time.Duration) *ConfigStore {
	return &ConfigStore{DB: db, TTL: ttl, now: time.Now}
}

func (s *ConfigStore) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// Active returns a copy of the validated active configuration.
func (s *ConfigStore) Active(ctx context.Context) (domain.MatchingConfig, error) {
	if s.TTL > 0 {
		s.mu.RLock()
		c, exp := s.cached, s.expires
		s.mu.RUnlock()
		if c != nil && s.clock().Before(exp) {
			return *c, nil
		}
	}

	// Coalesced callers share this load; one caller's cancellation must not
	// fail the rest.
	lctx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do("active", func() (any, error) {
		c, err := repo.GetActiveConfig(lctx, s.DB)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrConfigNotFound
		}
		if err != nil {
			return nil, err
		}
		if err := ValidateConfig(c); err != nil {
			return nil, err
		}
		if s.TTL > 0 {
			s.mu.Lock()
			s.cached, s.expires = c, s.clock().Add(s.TTL)
			s.mu.Unlock()
		}
		return c, nil
	})
	if err != nil {
		return domain.MatchingConfig{}, err
	}
	return *(v.(*domain.MatchingConfig)), nil
}

// Invalidate drops the cached configuration.
func (s *ConfigStore) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// ValidateConfig normalizes the strategy name and checks the tunables the
// engine depends on. Violations wrap ErrInvalidStrategy.
func ValidateConfig(c *domain.MatchingConfig) error {
	st, err := domain.ParseStrategy(string(c.Strategy))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidStrategy, err)
	}
	c.Strategy = st

	if c.MaxArtisansPerLead < 1 {
		return fmt.Errorf("%w: max_artisans_per_lead must be >= 1", ErrInvalidStrategy)
	}
	if c.GeoRadiusKm <= 0 {
		return fmt.Errorf("%w: geo_radius_km must be > 0", ErrInvalidStrategy)
	}
	weights := map[string]int{
		"weight_rating":        c.WeightRating,
		"weight_reviews":       c.WeightReviews,
		"weight_verified":      c.WeightVerified,
		"weight_proximity":     c.WeightProximity,
		"weight_response_rate": c.WeightResponseRate,
	}
	for name, w := range weights {
		if w < 0 || w > 100 {
			return fmt.Errorf("%w: %s must be within 0..100", ErrInvalidStrategy, name)
		}
	}
	switch c.SpecialtyMatchMode {
	case "", SpecialtyModeSubstring, SpecialtyModeExact:
	default:
		return fmt.Errorf("%w: unknown specialty_match_mode %q", ErrInvalidStrategy, c.SpecialtyMatchMode)
	}
	return nil
}
