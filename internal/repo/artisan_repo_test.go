package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/lead-dispatch/internal/domain"
	"github.com/tbourn/lead-dispatch/internal/testhelpers"
)

func TestListEligibleArtisans_Filters(t *testing.T) {
	db := testhelpers.NewDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	testhelpers.CreateArtisan(t, db, domain.Artisan{ID: "a-plain", Department: "75", Rating: 3})
	testhelpers.CreateArtisan(t, db, domain.Artisan{ID: "a-verified", Department: "75", Rating: 4.5, VerifiedAt: &now})
	testhelpers.CreateArtisan(t, db, domain.Artisan{ID: "a-claimed", Department: "69", Rating: 4, ClaimedAt: &now})
	testhelpers.CreateArtisan(t, db, domain.Artisan{ID: "a-inactive", Department: "75", Rating: 5})
	testhelpers.Deactivate(t, db, "a-inactive")
	testhelpers.CreateArtisan(t, db, domain.Artisan{ID: "a-deleted", Department: "75", Rating: 5})
	if err := db.Delete(&domain.Artisan{}, "id = ?", "a-deleted").Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	testhelpers.CreateArtisan(t, db, domain.Artisan{ID: "a-merged", Department: "75", Rating: 5})
	if err := CreateMergeLink(ctx, db, "a-merged", "a-plain"); err != nil {
		t.Fatalf("CreateMergeLink: %v", err)
	}

	ids := func(q ArtisanQuery) []string {
		t.Helper()
		got, err := ListEligibleArtisans(ctx, db, q)
		if err != nil {
			t.Fatalf("ListEligibleArtisans: %v", err)
		}
		out := make([]string, 0, len(got))
		for _, a := range got {
			out = append(out, a.ID)
		}
		return out
	}
	eq := func(got []string, want ...string) {
		t.Helper()
		if len(got) != len(want) {
			t.Fatalf("got %v; want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("got %v; want %v", got, want)
			}
		}
	}

	eq(ids(ArtisanQuery{}), "a-claimed", "a-plain", "a-verified")
	eq(ids(ArtisanQuery{Department: "75"}), "a-plain", "a-verified")
	eq(ids(ArtisanQuery{MinRating: 4}), "a-claimed", "a-verified")
	eq(ids(ArtisanQuery{RequireVerified: true}), "a-verified")
	eq(ids(ArtisanQuery{RequireClaimed: true}), "a-claimed")

	found, err := AnyClaimedArtisan(ctx, db)
	if err != nil || !found {
		t.Fatalf("AnyClaimedArtisan: got=%v err=%v", found, err)
	}
}

func TestAnyClaimedArtisan_IgnoresInactive(t *testing.T) {
	db := testhelpers.NewDB(t)
	now := time.Now().UTC()
	testhelpers.CreateArtisan(t, db, domain.Artisan{ID: "a1", ClaimedAt: &now})
	testhelpers.Deactivate(t, db, "a1")

	found, err := AnyClaimedArtisan(context.Background(), db)
	if err != nil || found {
		t.Fatalf("expected no claimed artisan, got=%v err=%v", found, err)
	}
}

func TestMergeLinks_NextHop(t *testing.T) {
	db := testhelpers.NewDB(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		testhelpers.CreateArtisan(t, db, domain.Artisan{ID: id})
	}
	if err := CreateMergeLink(ctx, db, "a", "b"); err != nil {
		t.Fatalf("link a->b: %v", err)
	}

	next, ok, err := NextMergeHop(ctx, db, "a")
	if err != nil || !ok || next != "b" {
		t.Fatalf("NextMergeHop(a) = %q,%v,%v", next, ok, err)
	}
	if _, ok, err := NextMergeHop(ctx, db, "b"); err != nil || ok {
		t.Fatalf("NextMergeHop(b) should be terminal: ok=%v err=%v", ok, err)
	}

	a, err := GetArtisan(ctx, db, "a")
	if err != nil {
		t.Fatalf("GetArtisan: %v", err)
	}
	if a.MergedInto == nil || *a.MergedInto != "b" {
		t.Fatalf("expected merged_into=b, got %v", a.MergedInto)
	}

	// Each record is superseded at most once.
	if err := CreateMergeLink(ctx, db, "a", "c"); err == nil {
		t.Fatalf("expected duplicate link to fail")
	}
	if _, err := GetArtisan(ctx, db, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListServiceOfferings(t *testing.T) {
	db := testhelpers.NewDB(t)
	testhelpers.CreateArtisan(t, db, domain.Artisan{ID: "a1"})
	testhelpers.CreateArtisan(t, db, domain.Artisan{ID: "a2"})
	testhelpers.CreateOffering(t, db, "a1", "svc-plumbing", testhelpers.F(10))
	testhelpers.CreateOffering(t, db, "a2", "svc-roofing", nil)

	got, err := ListServiceOfferings(context.Background(), db, "svc-plumbing")
	if err != nil {
		t.Fatalf("ListServiceOfferings: %v", err)
	}
	if len(got) != 1 || got[0].ArtisanID != "a1" || got[0].RadiusKm == nil || *got[0].RadiusKm != 10 {
		t.Fatalf("unexpected offerings: %+v", got)
	}
}
