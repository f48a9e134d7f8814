package domain_test

import (
	"math"
	"testing"

	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cellStep is the precision-5 geohash cell size in degrees for both axes
// (180/2^12 latitude, 360/2^13 longitude).
const cellStep = 0.0439453125

// cellCenter returns the center of the precision-5 cell containing the
// given point.
func cellCenter(lat, lon float64) (float64, float64) {
	clat := math.Floor((lat+90)/cellStep)*cellStep - 90 + cellStep/2
	clon := math.Floor((lon+180)/cellStep)*cellStep - 180 + cellStep/2
	return clat, clon
}

func mustCoordinate(t *testing.T, lat, lon float64) domain.Coordinate {
	t.Helper()
	c, err := domain.NewCoordinate(lat, lon)
	require.NoError(t, err)
	return c
}

func TestSpatialKeyFor_Deterministic(t *testing.T) {
	edinburgh := mustCoordinate(t, 55.9533, -3.1883)
	assert.Equal(t, domain.SpatialKeyFor(edinburgh), domain.SpatialKeyFor(edinburgh))
	assert.Equal(t, "gcvwr", domain.SpatialKeyFor(edinburgh))
	assert.Len(t, domain.SpatialKeyFor(edinburgh), 5)
}

func TestSpatialKeyFor_NearbyPointsShareACell(t *testing.T) {
	// Points well inside one cell must collide; that collision is the
	// point of spatial caching. Sampling around cell centers keeps the
	// property exact rather than probabilistic.
	for _, seed := range []struct{ lat, lon float64 }{
		{55.9533, -3.1883}, // Edinburgh
		{57.4778, -4.2247}, // Inverness
		{-33.8688, 151.2093},
		{0.01, 0.01},
	} {
		clat, clon := cellCenter(seed.lat, seed.lon)
		want := domain.SpatialKeyFor(mustCoordinate(t, clat, clon))

		for _, dlat := range []float64{-0.02, 0, 0.02} {
			for _, dlon := range []float64{-0.02, 0, 0.02} {
				got := domain.SpatialKeyFor(mustCoordinate(t, clat+dlat, clon+dlon))
				assert.Equal(t, want, got, "offset (%g,%g) around center (%g,%g)", dlat, dlon, clat, clon)
			}
		}
	}
}

func TestSpatialKeyFor_AdjacentCellsDiffer(t *testing.T) {
	clat, clon := cellCenter(55.9533, -3.1883)
	center := domain.SpatialKeyFor(mustCoordinate(t, clat, clon))

	east := domain.SpatialKeyFor(mustCoordinate(t, clat, clon+cellStep))
	north := domain.SpatialKeyFor(mustCoordinate(t, clat+cellStep, clon))

	assert.NotEqual(t, center, east)
	assert.NotEqual(t, center, north)
}

func TestSpatialKeyFor_DistantCoordinatesDiffer(t *testing.T) {
	edinburgh := domain.SpatialKeyFor(mustCoordinate(t, 55.9533, -3.1883))
	london := domain.SpatialKeyFor(mustCoordinate(t, 51.5072, -0.1276))
	assert.NotEqual(t, edinburgh, london)
}
