package repo

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/lead-dispatch/internal/testhelpers"
)

func TestIncrementReserved_CreatesRowLazilyAndCounts(t *testing.T) {
	db := testhelpers.NewDB(t)
	ctx := context.Background()

	if _, err := GetLedgerEntry(ctx, db, "a1", "2025-03"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before first reservation, got %v", err)
	}
	for want := 1; want <= 3; want++ {
		got, err := IncrementReserved(ctx, db, "a1", "2025-03")
		if err != nil {
			t.Fatalf("IncrementReserved: %v", err)
		}
		if got != want {
			t.Fatalf("reserved=%d; want %d", got, want)
		}
	}
	// A different month is an independent row.
	if got, err := IncrementReserved(ctx, db, "a1", "2025-04"); err != nil || got != 1 {
		t.Fatalf("other month: got=%d err=%v", got, err)
	}
}

func TestDecrementReserved_FlooredAtZero(t *testing.T) {
	db := testhelpers.NewDB(t)
	ctx := context.Background()

	if _, err := IncrementReserved(ctx, db, "a1", "2025-03"); err != nil {
		t.Fatalf("IncrementReserved: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := DecrementReserved(ctx, db, "a1", "2025-03"); err != nil {
			t.Fatalf("DecrementReserved: %v", err)
		}
	}
	e, err := GetLedgerEntry(ctx, db, "a1", "2025-03")
	if err != nil {
		t.Fatalf("GetLedgerEntry: %v", err)
	}
	if e.Reserved != 0 {
		t.Fatalf("reserved=%d; want 0", e.Reserved)
	}
	// Decrementing a missing row is a no-op, not an error.
	if err := DecrementReserved(ctx, db, "ghost", "2025-03"); err != nil {
		t.Fatalf("DecrementReserved on missing row: %v", err)
	}
}

func TestReleaseAndConsume_UpdateCounters(t *testing.T) {
	db := testhelpers.NewDB(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := IncrementReserved(ctx, db, "a1", "2025-03"); err != nil {
			t.Fatalf("IncrementReserved: %v", err)
		}
	}
	if err := ReleaseReservation(ctx, db, "a1", "2025-03"); err != nil {
		t.Fatalf("ReleaseReservation: %v", err)
	}
	if err := IncrementConsumed(ctx, db, "a1", "2025-03"); err != nil {
		t.Fatalf("IncrementConsumed: %v", err)
	}
	e, err := GetLedgerEntry(ctx, db, "a1", "2025-03")
	if err != nil {
		t.Fatalf("GetLedgerEntry: %v", err)
	}
	if e.Reserved != 1 || e.Released != 1 || e.Consumed != 1 {
		t.Fatalf("unexpected counters: %+v", e)
	}

	// Release past zero keeps reserved at zero but still counts the release.
	for i := 0; i < 2; i++ {
		if err := ReleaseReservation(ctx, db, "a1", "2025-03"); err != nil {
			t.Fatalf("ReleaseReservation: %v", err)
		}
	}
	e, _ = GetLedgerEntry(ctx, db, "a1", "2025-03")
	if e.Reserved != 0 || e.Released != 3 {
		t.Fatalf("unexpected counters after over-release: %+v", e)
	}

	// Release on a fresh month creates the row with reserved=0.
	if err := ReleaseReservation(ctx, db, "a2", "2025-05"); err != nil {
		t.Fatalf("ReleaseReservation fresh: %v", err)
	}
	e, _ = GetLedgerEntry(ctx, db, "a2", "2025-05")
	if e.Reserved != 0 || e.Released != 1 {
		t.Fatalf("unexpected fresh counters: %+v", e)
	}
}
