package domain

import (
	"fmt"
	"log/slog"
	"math"
)

// Coordinate is a WGS-84 latitude/longitude pair. It is a value type:
// construct it with NewCoordinate and pass it by value.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// NewCoordinate validates and quantizes a latitude/longitude pair.
// Both values must be finite and in range; out-of-range input is
// rejected outright, never clamped. Precision beyond six decimal
// places (~0.11 m) is not trusted and is rounded away.
func NewCoordinate(lat, lon float64) (Coordinate, error) {
	if math.IsNaN(lat) || math.IsInf(lat, 0) {
		return Coordinate{}, fmt.Errorf("latitude %v is not finite", lat)
	}
	if math.IsNaN(lon) || math.IsInf(lon, 0) {
		return Coordinate{}, fmt.Errorf("longitude %v is not finite", lon)
	}
	if lat < -90 || lat > 90 {
		return Coordinate{}, fmt.Errorf("latitude %g out of range [-90, 90]", lat)
	}
	if lon < -180 || lon > 180 {
		return Coordinate{}, fmt.Errorf("longitude %g out of range [-180, 180]", lon)
	}
	return Coordinate{
		Latitude:  quantize(lat),
		Longitude: quantize(lon),
	}, nil
}

// quantize rounds to six decimal places, the maximum trusted precision.
func quantize(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// String renders the coordinate at two decimal places (~1.1 km), the
// only precision permitted in diagnostics.
func (c Coordinate) String() string {
	return fmt.Sprintf("%.2f,%.2f", c.Latitude, c.Longitude)
}

// LogValue implements slog.LogValuer so that logging a Coordinate always
// emits the redacted two-decimal form, never the full-precision fields.
func (c Coordinate) LogValue() slog.Value {
	return slog.StringValue(c.String())
}
