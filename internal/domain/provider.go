package domain

import "context"

// RiskProvider fetches a risk observation for a coordinate. The caller
// bounds each call with a context deadline or cancellation; failures are
// reported as *ProviderError so the orchestrator can classify them.
type RiskProvider interface {
	// Name identifies the provider in logs and metrics.
	Name() string

	// Fetch returns the current observation at the coordinate.
	Fetch(ctx context.Context, coord Coordinate) (Observation, error)
}

// Region is a coverage predicate: whether a coordinate falls inside the
// area a regional provider can answer for. Outside its region the
// provider is skipped entirely rather than attempted and failed.
type Region interface {
	Covers(coord Coordinate) bool
}
