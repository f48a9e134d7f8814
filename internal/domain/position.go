package domain

import (
	"context"
	"time"
)

// Permission is the position source's authorization state. Every state
// other than Granted maps to "skip the fresh-fix step": never a crash,
// never a second prompt within one resolution.
type Permission string

const (
	PermissionGranted           Permission = "granted"
	PermissionDenied            Permission = "denied"
	PermissionDeniedPermanently Permission = "denied_permanently"
	PermissionRestricted        Permission = "restricted"
)

// Position is a located coordinate with the instant it was observed.
type Position struct {
	Coordinate Coordinate
	ObservedAt time.Time
}

// PositionSource supplies device or network positioning to the resolver.
type PositionSource interface {
	// Permission reports whether the source may be queried for a fresh fix.
	Permission(ctx context.Context) Permission

	// LastKnown returns the most recent position the source already holds,
	// without initiating a new lookup. False when none is held.
	LastKnown(ctx context.Context) (Position, bool)

	// Locate requests a fresh position fix. Bounded by the caller's context.
	Locate(ctx context.Context) (Position, error)
}
