package domain_test

import (
	"testing"
	"time"

	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromFWI_ClassBoundaries(t *testing.T) {
	for _, tc := range []struct {
		fwi  float64
		want domain.Level
	}{
		{0, domain.LevelVeryLow},
		{5.19, domain.LevelVeryLow},
		{5.2, domain.LevelLow},
		{11.19, domain.LevelLow},
		{11.2, domain.LevelModerate},
		{21.29, domain.LevelModerate},
		{21.3, domain.LevelHigh},
		{37.99, domain.LevelHigh},
		{38.0, domain.LevelVeryHigh},
		{49.99, domain.LevelVeryHigh},
		{50.0, domain.LevelExtreme},
		{120.5, domain.LevelExtreme},
	} {
		assert.Equal(t, tc.want, domain.LevelFromFWI(tc.fwi), "fwi=%g", tc.fwi)
	}
}

func TestParseLevel_AcceptedSpellings(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want domain.Level
	}{
		{"very_low", domain.LevelVeryLow},
		{"Very Low", domain.LevelVeryLow},
		{"VERYLOW", domain.LevelVeryLow},
		{"low", domain.LevelLow},
		{"moderate", domain.LevelModerate},
		{"High", domain.LevelHigh},
		{"very-high", domain.LevelVeryHigh},
		{"EXTREME", domain.LevelExtreme},
	} {
		got, err := domain.ParseLevel(tc.in)
		require.NoError(t, err, "input %q", tc.in)
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestParseLevel_RejectsUnknown(t *testing.T) {
	for _, in := range []string{"", "severe", "code red", "42"} {
		_, err := domain.ParseLevel(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestResultConstructors_SourceFreshnessPairing(t *testing.T) {
	fwi := 14.2
	obs := domain.Observation{
		Level:      domain.LevelModerate,
		FWI:        &fwi,
		ObservedAt: time.Date(2026, time.August, 25, 10, 0, 0, 0, time.UTC),
	}

	primary := domain.LiveResult(obs, domain.SourcePrimary, "gcvwr")
	assert.Equal(t, domain.SourcePrimary, primary.Source)
	assert.Equal(t, domain.FreshnessLive, primary.Freshness)
	assert.Equal(t, "gcvwr", primary.SpatialKey)
	assert.Equal(t, obs.ObservedAt, primary.ObservedAt)

	secondary := domain.LiveResult(obs, domain.SourceSecondary, "gcvwr")
	assert.Equal(t, domain.SourceSecondary, secondary.Source)
	assert.Equal(t, domain.FreshnessLive, secondary.Freshness)

	cached := domain.CachedResult(obs, "gcvwr")
	assert.Equal(t, domain.SourceCache, cached.Source)
	assert.Equal(t, domain.FreshnessCached, cached.Freshness)
	assert.Equal(t, obs.ObservedAt, cached.ObservedAt, "cached results keep the original observation time")

	synthetic := domain.SyntheticResult(obs, "gcvwr")
	assert.Equal(t, domain.SourceSynthetic, synthetic.Source)
	assert.Equal(t, domain.FreshnessSynthetic, synthetic.Freshness)
}

func TestResultConstructors_NormalizeToUTC(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	obs := domain.Observation{
		Level:      domain.LevelLow,
		ObservedAt: time.Date(2026, time.August, 25, 12, 0, 0, 0, loc),
	}

	result := domain.LiveResult(obs, domain.SourcePrimary, "gcvwr")
	assert.Equal(t, time.UTC, result.ObservedAt.Location())
	assert.True(t, result.ObservedAt.Equal(obs.ObservedAt))
}
