package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbourn/lead-dispatch/internal/domain"
	"github.com/tbourn/lead-dispatch/internal/testhelpers"
)

func TestAllocate_UrgentLeadOnlyVerified(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	now := time.Now().UTC()

	testhelpers.CreateConfig(t, e.db, domain.MatchingConfig{RequireVerifiedUrgent: true})
	testhelpers.CreateArtisan(t, e.db, parisArtisan("verified", func(a *domain.Artisan) { a.Rating = 4; a.VerifiedAt = &now }))
	testhelpers.CreateArtisan(t, e.db, parisArtisan("unverified", func(a *domain.Artisan) { a.Rating = 5 }))
	lead := testhelpers.CreateLead(t, e.db, parisLead(func(l *domain.Lead) { l.Urgency = domain.UrgencyEmergency }))

	res, err := e.allocator.Allocate(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, domain.LeadDistributed, res.Status)

	got := e.assignments(t, lead.ID)
	require.Len(t, got, 1)
	assert.Equal(t, "verified", got[0].ArtisanID)
	assert.Equal(t, 0, got[0].Rank)
	assert.Equal(t, domain.AssignmentPending, got[0].Status)
	assert.Equal(t, domain.LeadDistributed, e.lead(t, lead.ID).Status)
	assert.Equal(t, 1, e.pub.count())
}

func TestAllocate_RoundRobinCapsAndSpreads(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	testhelpers.CreateConfig(t, e.db, domain.MatchingConfig{Strategy: domain.StrategyRoundRobin, MaxArtisansPerLead: 2})
	ids := []string{"a1", "a2", "a3", "a4", "a5"}
	for i, id := range ids {
		rating := float64(i + 1) // rating must not bias round robin
		testhelpers.CreateArtisan(t, e.db, parisArtisan(id, func(a *domain.Artisan) { a.Rating = rating }))
	}

	seen := map[string]int{}
	const runs = 60
	for i := 0; i < runs; i++ {
		lead := testhelpers.CreateLead(t, e.db, parisLead())
		res, err := e.allocator.Allocate(ctx, lead.ID)
		require.NoError(t, err)
		require.Equal(t, 2, res.Created)
		for _, a := range e.assignments(t, lead.ID) {
			seen[a.ArtisanID]++
		}
	}
	// Every artisan is picked at some point; with 60 runs the chance that a
	// uniform draw never picks one of five is negligible.
	for _, id := range ids {
		assert.Greater(t, seen[id], 0, "artisan %s never selected", id)
	}
}

func TestAllocate_RoundRobinUsesInjectedTieBreak(t *testing.T) {
	e := newEngine(t)
	testhelpers.CreateConfig(t, e.db, domain.MatchingConfig{Strategy: domain.StrategyRoundRobin, MaxArtisansPerLead: 1})
	testhelpers.CreateArtisan(t, e.db, parisArtisan("first"))
	testhelpers.CreateArtisan(t, e.db, parisArtisan("second"))

	// ids are listed in order; a decreasing draw reverses them.
	draws := []float64{0.9, 0.1}
	i := 0
	e.allocator.Rand = func() float64 { v := draws[i%len(draws)]; i++; return v }

	lead := testhelpers.CreateLead(t, e.db, parisLead())
	_, err := e.allocator.Allocate(context.Background(), lead.ID)
	require.NoError(t, err)
	got := e.assignments(t, lead.ID)
	require.Len(t, got, 1)
	assert.Equal(t, "second", got[0].ArtisanID)
}

func TestAllocate_SkipsArtisanAtQuota(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	now := time.Now().UTC()

	testhelpers.CreateConfig(t, e.db, domain.MatchingConfig{MaxArtisansPerLead: 1})
	testhelpers.CreateArtisan(t, e.db, parisArtisan("top", func(a *domain.Artisan) { a.Rating = 5; a.ReviewCount = 100; a.VerifiedAt = &now }))
	testhelpers.CreateArtisan(t, e.db, parisArtisan("runner-up", func(a *domain.Artisan) { a.Rating = 3 }))
	testhelpers.CreateSubscription(t, e.db, "top", 1)
	testhelpers.SetReserved(t, e.db, "top", e.ledger.CurrentMonth(), 1)

	lead := testhelpers.CreateLead(t, e.db, parisLead())
	res, err := e.allocator.Allocate(ctx, lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)

	got := e.assignments(t, lead.ID)
	require.Len(t, got, 1)
	assert.Equal(t, "runner-up", got[0].ArtisanID)
	assert.Equal(t, 1, e.reserved(t, "top"), "refused reservation must be compensated")
	assert.Equal(t, 1, e.reserved(t, "runner-up"))
}

func TestAllocate_ExistingAssignmentIsNoop(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	now := time.Now().UTC()

	testhelpers.CreateConfig(t, e.db, domain.MatchingConfig{})
	testhelpers.CreateArtisan(t, e.db, parisArtisan("a1"))
	testhelpers.CreateArtisan(t, e.db, parisArtisan("a2"))
	lead := testhelpers.CreateLead(t, e.db, parisLead())
	prior := &domain.LeadAssignment{ID: "prior", LeadID: lead.ID, ArtisanID: "a1", Month: domain.MonthKey(now), ReservedAt: now}
	require.NoError(t, e.db.Omit("Lead").Create(prior).Error)

	res, err := e.allocator.Allocate(ctx, lead.ID)
	require.NoError(t, err)
	assert.True(t, res.Noop)
	assert.Equal(t, 0, res.Created)
	assert.Len(t, e.assignments(t, lead.ID), 1)
	assert.Equal(t, domain.LeadNew, e.lead(t, lead.ID).Status)
	assert.Equal(t, 0, e.pub.count())
}

func TestAllocate_NoCandidateInRadius(t *testing.T) {
	e := newEngine(t)
	testhelpers.CreateConfig(t, e.db, domain.MatchingConfig{GeoRadiusKm: 50})
	testhelpers.CreateArtisan(t, e.db, domain.Artisan{
		ID: "lyon", Latitude: testhelpers.F(testhelpers.LyonLat), Longitude: testhelpers.F(testhelpers.LyonLng),
	})
	lead := testhelpers.CreateLead(t, e.db, parisLead())

	res, err := e.allocator.Allocate(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Considered)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, domain.LeadNew, res.Status)
	assert.Empty(t, e.assignments(t, lead.ID))
	assert.Equal(t, domain.LeadNew, e.lead(t, lead.ID).Status)
}

func TestAllocate_AllCandidatesAtQuotaLeavesLeadNew(t *testing.T) {
	e := newEngine(t)
	testhelpers.CreateConfig(t, e.db, domain.MatchingConfig{})
	testhelpers.CreateArtisan(t, e.db, parisArtisan("full"))
	testhelpers.CreateSubscription(t, e.db, "full", 2)
	testhelpers.SetReserved(t, e.db, "full", e.ledger.CurrentMonth(), 2)
	lead := testhelpers.CreateLead(t, e.db, parisLead())

	res, err := e.allocator.Allocate(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Considered)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, domain.LeadNew, e.lead(t, lead.ID).Status)
	assert.Equal(t, 2, e.reserved(t, "full"))
}

func TestAllocate_WorkingListHasHeadroom(t *testing.T) {
	e := newEngine(t)
	testhelpers.CreateConfig(t, e.db, domain.MatchingConfig{MaxArtisansPerLead: 2})
	month := e.ledger.CurrentMonth()
	// Four best candidates; the first two are full so the walk needs the
	// 2x headroom to reach the next two.
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("a%d", i)
		rating := 5 - float64(i)*0.5
		testhelpers.CreateArtisan(t, e.db, parisArtisan(id, func(a *domain.Artisan) { a.Rating = rating }))
		if i < 2 {
			testhelpers.CreateSubscription(t, e.db, id, 1)
			testhelpers.SetReserved(t, e.db, id, month, 1)
		}
	}
	lead := testhelpers.CreateLead(t, e.db, parisLead())

	res, err := e.allocator.Allocate(context.Background(), lead.ID)
	require.NoError(t, err)
	require.Equal(t, 2, res.Created)
	got := e.assignments(t, lead.ID)
	assert.Equal(t, "a2", got[0].ArtisanID)
	assert.Equal(t, "a3", got[1].ArtisanID)
	assert.Equal(t, 1, got[1].Rank)
	assert.Equal(t, 0, e.reserved(t, "a4"))
}

func TestAllocate_ConcurrentCallsAreIdempotent(t *testing.T) {
	e := newEngine(t)
	testhelpers.CreateConfig(t, e.db, domain.MatchingConfig{MaxArtisansPerLead: 2})
	for i := 0; i < 4; i++ {
		testhelpers.CreateArtisan(t, e.db, parisArtisan(fmt.Sprintf("a%d", i)))
	}
	lead := testhelpers.CreateLead(t, e.db, parisLead())

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		noops   int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.allocator.Allocate(context.Background(), lead.ID)
			if err != nil {
				t.Errorf("Allocate: %v", err)
				return
			}
			mu.Lock()
			created += res.Created
			if res.Noop {
				noops++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, created)
	assert.Equal(t, 7, noops)
	got := e.assignments(t, lead.ID)
	require.Len(t, got, 2)
	assert.NotEqual(t, got[0].ArtisanID, got[1].ArtisanID)
	assert.Equal(t, 1, e.pub.count())
}

func TestAllocate_QuotaHoldsAcrossLeads(t *testing.T) {
	e := newEngine(t)
	testhelpers.CreateConfig(t, e.db, domain.MatchingConfig{MaxArtisansPerLead: 1})
	testhelpers.CreateArtisan(t, e.db, parisArtisan("busy"))
	testhelpers.CreateSubscription(t, e.db, "busy", 3)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		lead := testhelpers.CreateLead(t, e.db, parisLead())
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if _, err := e.allocator.Allocate(context.Background(), id); err != nil {
				t.Errorf("Allocate: %v", err)
			}
		}(lead.ID)
	}
	wg.Wait()

	var n int64
	require.NoError(t, e.db.Model(&domain.LeadAssignment{}).Where("artisan_id = ?", "busy").Count(&n).Error)
	assert.EqualValues(t, 3, n)
	assert.Equal(t, 3, e.reserved(t, "busy"))
}

func TestAllocate_Errors(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	_, err := e.allocator.Allocate(ctx, "missing")
	assert.ErrorIs(t, err, ErrConfigNotFound)

	testhelpers.CreateConfig(t, e.db, domain.MatchingConfig{})
	_, err = e.allocator.Allocate(ctx, "missing")
	assert.ErrorIs(t, err, ErrLeadNotFound)

	require.NoError(t, e.db.Model(&domain.MatchingConfig{}).Where("is_active = ?", true).
		Update("matching_strategy", "random").Error)
	_, err = e.allocator.Allocate(ctx, "missing")
	assert.ErrorIs(t, err, ErrInvalidStrategy)
}

func TestAllocate_NonNewLeadIsNoop(t *testing.T) {
	e := newEngine(t)
	testhelpers.CreateConfig(t, e.db, domain.MatchingConfig{})
	testhelpers.CreateArtisan(t, e.db, parisArtisan("a1"))
	lead := testhelpers.CreateLead(t, e.db, parisLead(func(l *domain.Lead) { l.Status = domain.LeadCanceled }))

	res, err := e.allocator.Allocate(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.True(t, res.Noop)
	assert.Equal(t, domain.LeadCanceled, res.Status)
	assert.Empty(t, e.assignments(t, lead.ID))
}

func TestAllocate_PublishFailureKeepsAllocation(t *testing.T) {
	e := newEngine(t)
	e.pub.err = errors.New("broker down")
	testhelpers.CreateConfig(t, e.db, domain.MatchingConfig{})
	testhelpers.CreateArtisan(t, e.db, parisArtisan("a1"))
	lead := testhelpers.CreateLead(t, e.db, parisLead())

	res, err := e.allocator.Allocate(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Len(t, e.assignments(t, lead.ID), 1)
}

func TestPreview_RanksWithoutWriting(t *testing.T) {
	e := newEngine(t)
	testhelpers.CreateConfig(t, e.db, domain.MatchingConfig{Strategy: domain.StrategyGeographic})
	testhelpers.CreateArtisan(t, e.db, parisArtisan("far"))
	testhelpers.CreateArtisan(t, e.db, parisArtisan("near", func(a *domain.Artisan) {
		a.Latitude, a.Longitude = testhelpers.F(testhelpers.ParisLat), testhelpers.F(testhelpers.ParisLng)
	}))
	lead := testhelpers.CreateLead(t, e.db, parisLead())

	cands, strategy, err := e.allocator.Preview(context.Background(), lead.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StrategyGeographic, strategy)
	require.Len(t, cands, 2)
	assert.Equal(t, "near", cands[0].Artisan.ID)
	assert.InDelta(t, 1000, cands[0].Score, 0.001)
	assert.Empty(t, e.assignments(t, lead.ID))
	assert.Equal(t, 0, e.reserved(t, "near"))

	_, _, err = e.allocator.Preview(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrLeadNotFound)
}
