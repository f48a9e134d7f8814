package domain_test

import (
	"testing"
	"time"

	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyntheticObservation_DeterministicWithinADay(t *testing.T) {
	morning := time.Date(2026, time.August, 25, 8, 0, 0, 0, time.UTC)
	evening := time.Date(2026, time.August, 25, 22, 30, 0, 0, time.UTC)

	a := domain.SyntheticObservation("gcvwr", morning)
	b := domain.SyntheticObservation("gcvwr", evening)

	require.NotNil(t, a.FWI)
	require.NotNil(t, b.FWI)
	assert.Equal(t, *a.FWI, *b.FWI, "same cell and UTC day must yield the same value")
	assert.Equal(t, a.Level, b.Level)
}

func TestSyntheticObservation_UsesUTCDayBoundary(t *testing.T) {
	// 23:30 in UTC+2 is 21:30 UTC the same day; the generator must key on
	// the UTC day, not the local one.
	local := time.Date(2026, time.August, 25, 23, 30, 0, 0, time.FixedZone("UTC+2", 2*3600))
	utc := time.Date(2026, time.August, 25, 21, 30, 0, 0, time.UTC)

	a := domain.SyntheticObservation("gcvwr", local)
	b := domain.SyntheticObservation("gcvwr", utc)
	assert.Equal(t, *a.FWI, *b.FWI)
	assert.Equal(t, time.UTC, a.ObservedAt.Location())
}

func TestSyntheticObservation_VariesAcrossDaysAndCells(t *testing.T) {
	base := time.Date(2026, time.August, 25, 12, 0, 0, 0, time.UTC)

	daily := map[float64]bool{}
	for d := 0; d < 5; d++ {
		obs := domain.SyntheticObservation("gcvwr", base.AddDate(0, 0, d))
		daily[*obs.FWI] = true
	}
	assert.Greater(t, len(daily), 1, "values should change across days")

	cells := map[float64]bool{}
	for _, key := range []string{"gcvwr", "gcvwp", "gcpvj", "u4pru", "9q8yy"} {
		obs := domain.SyntheticObservation(key, base)
		cells[*obs.FWI] = true
	}
	assert.Greater(t, len(cells), 1, "values should differ between cells")
}

func TestSyntheticObservation_NeverClaimsSevereDanger(t *testing.T) {
	base := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	for _, key := range []string{"gcvwr", "gcvwp", "gcpvj", "u4pru", "9q8yy", "gfjp2"} {
		for d := 0; d < 30; d++ {
			obs := domain.SyntheticObservation(key, base.AddDate(0, 0, d))
			require.NotNil(t, obs.FWI)
			assert.GreaterOrEqual(t, *obs.FWI, 0.0)
			assert.Less(t, *obs.FWI, 38.0)
			assert.NotEqual(t, domain.LevelVeryHigh, obs.Level)
			assert.NotEqual(t, domain.LevelExtreme, obs.Level)
		}
	}
}
