package handlers

import (
	"context"
	"time"

	"github.com/tbourn/lead-dispatch/internal/domain"
	"github.com/tbourn/lead-dispatch/internal/services"
)

// Service contracts consumed by the handlers. The concrete types live in
// package services; tests substitute stubs.

// Allocator runs and previews allocation for one lead.
type Allocator interface {
	Allocate(ctx context.Context, leadID string) (*services.AllocationResult, error)
	Preview(ctx context.Context, leadID string) ([]services.Candidate, domain.Strategy, error)
}

// Assignments drives the assignment lifecycle.
type Assignments interface {
	ListForLead(ctx context.Context, leadID string) ([]domain.LeadAssignment, error)
	MarkViewed(ctx context.Context, id string) (*domain.LeadAssignment, error)
	Consume(ctx context.Context, id string) (*domain.LeadAssignment, error)
	Release(ctx context.Context, id, reason string) (*domain.LeadAssignment, error)
	ExpireStale(ctx context.Context, now time.Time) (int, error)
}

// Identity resolves and merges artisan records.
type Identity interface {
	Canonical(ctx context.Context, id string, maxDepth int) (string, error)
	Merge(ctx context.Context, oldID, newID string) error
}

// Capacity reads ledger usage.
type Capacity interface {
	Usage(ctx context.Context, artisanID, month string, fallbackQuota int) (*services.Usage, error)
}

// Handlers groups the API endpoints.
type Handlers struct {
	alloc    Allocator
	asg      Assignments
	identity Identity
	capacity Capacity
	configs  services.ConfigSource

	now func() time.Time
}

// New returns Handlers bound to the given services.
func New(alloc Allocator, asg Assignments, identity Identity, capacity Capacity, configs services.ConfigSource) *Handlers {
	return &Handlers{
		alloc:    alloc,
		asg:      asg,
		identity: identity,
		capacity: capacity,
		configs:  configs,
		now:      time.Now,
	}
}
