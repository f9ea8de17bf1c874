package services

import (
	"context"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/tbourn/lead-dispatch/internal/domain"
	"github.com/tbourn/lead-dispatch/internal/testhelpers"
)

type engine struct {
	db        *gorm.DB
	configs   *ConfigStore
	resolver  *IdentityResolver
	ledger    *CapacityLedger
	allocator *Allocator
	pub       *recordingPublisher
}

func newEngine(t *testing.T) *engine {
	t.Helper()
	db := testhelpers.NewDB(t)
	resolver := &IdentityResolver{DB: db}
	ledger := &CapacityLedger{DB: db}
	configs := NewConfigStore(db, 0)
	pub := &recordingPublisher{}
	return &engine{
		db:       db,
		configs:  configs,
		resolver: resolver,
		ledger:   ledger,
		pub:      pub,
		allocator: &Allocator{
			DB:        db,
			Configs:   configs,
			Locker:    NewMemoryLeadLocker(),
			Filter:    &CandidateFilter{Resolver: resolver},
			Ledger:    ledger,
			Publisher: pub,
		},
	}
}

func (e *engine) assignments(t *testing.T, leadID string) []domain.LeadAssignment {
	t.Helper()
	var out []domain.LeadAssignment
	if err := e.db.Where("lead_id = ?", leadID).Order("rank").Find(&out).Error; err != nil {
		t.Fatalf("list assignments: %v", err)
	}
	return out
}

func (e *engine) lead(t *testing.T, id string) domain.Lead {
	t.Helper()
	var l domain.Lead
	if err := e.db.First(&l, "id = ?", id).Error; err != nil {
		t.Fatalf("load lead: %v", err)
	}
	return l
}

func (e *engine) reserved(t *testing.T, artisanID string) int {
	t.Helper()
	var entry domain.CapacityLedgerEntry
	err := e.db.Where("artisan_id = ? AND month = ?", artisanID, e.ledger.CurrentMonth()).First(&entry).Error
	if err != nil {
		return 0
	}
	return entry.Reserved
}

type recordingPublisher struct {
	mu    sync.Mutex
	calls [][]domain.LeadAssignment
	err   error
}

func (p *recordingPublisher) PublishAssignments(_ context.Context, _ *domain.Lead, _ domain.Strategy, as []domain.LeadAssignment) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, append([]domain.LeadAssignment(nil), as...))
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// parisLead returns a lead located in Paris.
func parisLead(mut ...func(*domain.Lead)) domain.Lead {
	l := domain.Lead{
		Latitude:   testhelpers.F(testhelpers.ParisLat),
		Longitude:  testhelpers.F(testhelpers.ParisLng),
		Department: "75",
	}
	for _, m := range mut {
		m(&l)
	}
	return l
}

// parisArtisan returns an artisan located near Paris.
func parisArtisan(id string, mut ...func(*domain.Artisan)) domain.Artisan {
	a := domain.Artisan{
		ID:         id,
		Latitude:   testhelpers.F(testhelpers.VersaillesLat),
		Longitude:  testhelpers.F(testhelpers.VersaillesLng),
		Department: "75",
		Rating:     4,
	}
	for _, m := range mut {
		m(&a)
	}
	return a
}
