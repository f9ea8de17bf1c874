package services

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/rs/zerolog"

	"github.com/tbourn/lead-dispatch/internal/repo"
)

// DefaultMergeDepth bounds a merge chain walk when the caller passes no limit.
const DefaultMergeDepth = 10

// IdentityResolver follows artisan merge links to the canonical record.
type IdentityResolver struct {
	DB       *gorm.DB
	MaxDepth int
}

// Resolve walks MergeLink edges from id and returns the last id reached. The
// walk stops when no further edge exists or after maxDepth hops, so a cycle
// in the data terminates. maxDepth <= 0 uses the resolver default.
//
// db overrides the resolver handle when non-nil (callers inside a transaction
// pass their tx).
func (r *IdentityResolver) Resolve(ctx context.Context, db *gorm.DB, id string, maxDepth int) (string, error) {
	if db == nil {
		db = r.DB
	}
	if maxDepth <= 0 {
		maxDepth = r.MaxDepth
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMergeDepth
	}

	cur := id
	for hop := 0; hop < maxDepth; hop++ {
		next, ok, err := repo.NextMergeHop(ctx, db, cur)
		if err != nil {
			return "", err
		}
		if !ok {
			return cur, nil
		}
		cur = next
	}

	if _, more, err := repo.NextMergeHop(ctx, db, cur); err == nil && more {
		zerolog.Ctx(ctx).Warn().
			Str("artisan_id", id).
			Str("stopped_at", cur).
			Int("max_depth", maxDepth).
			Msg("merge chain anomaly: depth exhausted")
	}
	return cur, nil
}

// Canonical resolves id on the resolver's own handle.
func (r *IdentityResolver) Canonical(ctx context.Context, id string, maxDepth int) (string, error) {
	return r.Resolve(ctx, nil, id, maxDepth)
}

// Merge records that oldID was superseded by newID. Both artisans must exist,
// oldID must not already be merged, and newID must not resolve back to oldID.
func (r *IdentityResolver) Merge(ctx context.Context, oldID, newID string) error {
	tr := otel.Tracer("services/IdentityResolver")
	ctx, span := tr.Start(ctx, "Merge",
		trace.WithAttributes(
			attribute.String("artisan.old_id", oldID),
			attribute.String("artisan.new_id", newID),
		),
	)
	defer span.End()

	if oldID == newID {
		return ErrSelfMerge
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		old, err := repo.GetArtisan(ctx, tx, oldID)
		if err != nil {
			return artisanErr(err)
		}
		if old.MergedInto != nil {
			return ErrAlreadyMerged
		}
		if _, err := repo.GetArtisan(ctx, tx, newID); err != nil {
			return artisanErr(err)
		}
		canonical, err := r.Resolve(ctx, tx, newID, 0)
		if err != nil {
			return err
		}
		if canonical == oldID {
			return ErrMergeCycle
		}
		return repo.CreateMergeLink(ctx, tx, oldID, newID)
	})
}

func artisanErr(err error) error {
	if errors.Is(err, repo.ErrNotFound) {
		return ErrArtisanNotFound
	}
	return err
}
