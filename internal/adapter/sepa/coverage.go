package sepa

import (
	"github.com/golang/geo/s2"

	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/domain"
)

// scotlandOutline is a coarse tracing of the Scottish coastline and the
// border with England, counterclockwise so the interior lies on the
// left. It deliberately bulges seaward to keep islands (Hebrides,
// Orkney, Shetland) inside while excluding Northern Ireland, the Isle
// of Man, and northern England.
var scotlandOutline = []s2.LatLng{
	s2.LatLngFromDegrees(54.55, -5.20),
	s2.LatLngFromDegrees(54.80, -3.90),
	s2.LatLngFromDegrees(54.93, -3.15),
	s2.LatLngFromDegrees(55.10, -2.70),
	s2.LatLngFromDegrees(55.35, -2.35),
	s2.LatLngFromDegrees(55.80, -2.04),
	s2.LatLngFromDegrees(55.90, -1.55),
	s2.LatLngFromDegrees(56.50, -1.90),
	s2.LatLngFromDegrees(57.20, -1.55),
	s2.LatLngFromDegrees(57.80, -1.40),
	s2.LatLngFromDegrees(58.60, -1.90),
	s2.LatLngFromDegrees(59.80, -0.90),
	s2.LatLngFromDegrees(60.90, -0.55),
	s2.LatLngFromDegrees(61.00, -2.30),
	s2.LatLngFromDegrees(59.60, -3.60),
	s2.LatLngFromDegrees(58.80, -5.20),
	s2.LatLngFromDegrees(58.80, -7.20),
	s2.LatLngFromDegrees(57.80, -7.90),
	s2.LatLngFromDegrees(56.90, -7.90),
	s2.LatLngFromDegrees(56.40, -7.20),
	s2.LatLngFromDegrees(55.70, -6.55),
	s2.LatLngFromDegrees(55.35, -5.95),
	s2.LatLngFromDegrees(54.75, -5.35),
}

type loopRegion struct {
	loop *s2.Loop
}

// ScotlandRegion returns the coverage predicate consulted before the
// secondary provider is attempted. Coordinates outside it skip SEPA
// entirely rather than producing a doomed request.
func ScotlandRegion() domain.Region {
	points := make([]s2.Point, len(scotlandOutline))
	for i, ll := range scotlandOutline {
		points[i] = s2.PointFromLatLng(ll)
	}
	return &loopRegion{loop: s2.LoopFromPoints(points)}
}

func (r *loopRegion) Covers(coord domain.Coordinate) bool {
	p := s2.PointFromLatLng(s2.LatLngFromDegrees(coord.Latitude, coord.Longitude))
	return r.loop.ContainsPoint(p)
}
