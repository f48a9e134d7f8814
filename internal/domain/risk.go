package domain

import (
	"fmt"
	"time"
)

// Level is a six-step fire danger classification aligned with the EFFIS
// danger classes.
type Level string

const (
	LevelVeryLow  Level = "very_low"
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelHigh     Level = "high"
	LevelVeryHigh Level = "very_high"
	LevelExtreme  Level = "extreme"
)

// Source identifies which provider produced a risk value.
type Source string

const (
	SourcePrimary   Source = "primary"
	SourceSecondary Source = "secondary"
	SourceCache     Source = "cache"
	SourceSynthetic Source = "synthetic"
)

// Freshness distinguishes live, cached, and synthetic data so consumers
// are never misled about provenance.
type Freshness string

const (
	FreshnessLive      Freshness = "live"
	FreshnessCached    Freshness = "cached"
	FreshnessSynthetic Freshness = "synthetic"
)

// LevelFromFWI maps a Fire Weather Index value onto the EFFIS danger
// classes: <5.2 very low, <11.2 low, <21.3 moderate, <38.0 high,
// <50.0 very high, otherwise extreme.
func LevelFromFWI(fwi float64) Level {
	switch {
	case fwi < 5.2:
		return LevelVeryLow
	case fwi < 11.2:
		return LevelLow
	case fwi < 21.3:
		return LevelModerate
	case fwi < 38.0:
		return LevelHigh
	case fwi < 50.0:
		return LevelVeryHigh
	default:
		return LevelExtreme
	}
}

// ParseLevel normalizes a provider-reported danger level string onto the
// shared scale. Accepts "very_low"/"very low"/"verylow" spellings.
func ParseLevel(s string) (Level, error) {
	switch normalizeLevel(s) {
	case "verylow":
		return LevelVeryLow, nil
	case "low":
		return LevelLow, nil
	case "moderate":
		return LevelModerate, nil
	case "high":
		return LevelHigh, nil
	case "veryhigh":
		return LevelVeryHigh, nil
	case "extreme":
		return LevelExtreme, nil
	default:
		return "", fmt.Errorf("unknown danger level %q", s)
	}
}

func normalizeLevel(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
			out = append(out, c+'a'-'A')
		case c >= 'a' && c <= 'z':
			out = append(out, c)
		}
	}
	return string(out)
}

// Observation is a single risk reading as returned by a provider: the
// classified level, the numeric index when the provider reports one,
// and the UTC instant the reading was made.
type Observation struct {
	Level      Level     `json:"level"`
	FWI        *float64  `json:"fwi,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// RiskResult is the fully attributed value returned to callers. Source
// and ObservedAt are always populated; the constructors below keep the
// source/freshness pairing consistent (cache is cached, synthetic is
// synthetic, live providers are live).
type RiskResult struct {
	Level      Level     `json:"level"`
	FWI        *float64  `json:"fwi,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
	Source     Source    `json:"source"`
	Freshness  Freshness `json:"freshness"`
	SpatialKey string    `json:"spatial_key"`
}

// LiveResult tags an observation fetched directly from the primary or
// secondary provider.
func LiveResult(obs Observation, source Source, spatialKey string) RiskResult {
	return RiskResult{
		Level:      obs.Level,
		FWI:        obs.FWI,
		ObservedAt: obs.ObservedAt.UTC(),
		Source:     source,
		Freshness:  FreshnessLive,
		SpatialKey: spatialKey,
	}
}

// CachedResult tags an observation served from the spatial cache. The
// observation's original timestamp is preserved so callers can judge age.
func CachedResult(obs Observation, spatialKey string) RiskResult {
	return RiskResult{
		Level:      obs.Level,
		FWI:        obs.FWI,
		ObservedAt: obs.ObservedAt.UTC(),
		Source:     SourceCache,
		Freshness:  FreshnessCached,
		SpatialKey: spatialKey,
	}
}

// SyntheticResult tags an observation produced by the deterministic
// generator.
func SyntheticResult(obs Observation, spatialKey string) RiskResult {
	return RiskResult{
		Level:      obs.Level,
		FWI:        obs.FWI,
		ObservedAt: obs.ObservedAt.UTC(),
		Source:     SourceSynthetic,
		Freshness:  FreshnessSynthetic,
		SpatialKey: spatialKey,
	}
}
