package domain

import (
	"time"

	"github.com/google/uuid"
)

// Assessment is the serialized record of one completed risk resolution,
// published to the assessment topic for downstream consumers. It carries
// the spatial key, never the raw coordinate: the privacy boundary holds
// on the wire.
type Assessment struct {
	ID         string    `json:"id"`
	SpatialKey string    `json:"spatial_key"`
	Level      Level     `json:"level"`
	FWI        *float64  `json:"fwi,omitempty"`
	Source     Source    `json:"source"`
	Freshness  Freshness `json:"freshness"`
	ObservedAt time.Time `json:"observed_at"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// NewAssessment records a resolved risk result at the given instant.
func NewAssessment(result RiskResult, resolvedAt time.Time) Assessment {
	return Assessment{
		ID:         uuid.NewString(),
		SpatialKey: result.SpatialKey,
		Level:      result.Level,
		FWI:        result.FWI,
		Source:     result.Source,
		Freshness:  result.Freshness,
		ObservedAt: result.ObservedAt,
		ResolvedAt: resolvedAt.UTC(),
	}
}
