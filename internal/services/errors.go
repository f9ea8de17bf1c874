// Package services implements lead allocation: identity resolution, capacity
// reservation, candidate filtering, scoring and the per-lead coordinator.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and translation
// into user-facing messages or HTTP status codes should be performed at the
// handler/controller layer.
package services

import "errors"

// Lookup errors.
var (
	// ErrLeadNotFound indicates that the lead to allocate does not exist.
	ErrLeadNotFound = errors.New("lead not found")

	// ErrConfigNotFound is returned when no matching configuration is active.
	ErrConfigNotFound = errors.New("no active matching configuration")

	// ErrAssignmentNotFound indicates that the requested assignment does not exist.
	ErrAssignmentNotFound = errors.New("assignment not found")

	// ErrArtisanNotFound indicates that the requested artisan does not exist.
	ErrArtisanNotFound = errors.New("artisan not found")
)

// Validation and state errors.
var (
	// ErrInvalidStrategy is returned when the active configuration names a
	// strategy outside the supported set, or carries out-of-range tunables.
	ErrInvalidStrategy = errors.New("invalid matching configuration")

	// ErrSelfMerge is returned when an artisan would be merged into itself.
	ErrSelfMerge = errors.New("artisan cannot be merged into itself")

	// ErrMergeCycle is returned when a merge would close a cycle in the chain.
	ErrMergeCycle = errors.New("merge would create a cycle")

	// ErrAlreadyMerged is returned when the source artisan was already superseded.
	ErrAlreadyMerged = errors.New("artisan already merged")

	// ErrAssignmentConsumed is returned when an assignment's capacity was
	// already consumed or released and the requested transition conflicts.
	ErrAssignmentConsumed = errors.New("assignment capacity already settled")

	// ErrInvalidReleaseReason is returned for a release reason other than
	// declined or expired.
	ErrInvalidReleaseReason = errors.New("release reason must be declined or expired")

	// ErrInvalidMonth is returned when a month key is not formatted YYYY-MM.
	ErrInvalidMonth = errors.New("month must be formatted YYYY-MM")

	// ErrLockNotAcquired is returned when the per-lead exclusive section could
	// not be entered within the configured wait.
	ErrLockNotAcquired = errors.New("lead lock not acquired")
)
