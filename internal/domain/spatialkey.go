package domain

import (
	geohash "github.com/TomiHiltunen/geohash-golang"
)

// spatialKeyPrecision is the geohash length used for spatial keys.
// Five characters give cells of roughly 4.9 km × 4.9 km: coarse enough
// to act as a privacy boundary, fine enough that cached risk data stays
// locally relevant.
const spatialKeyPrecision = 5

// SpatialKeyFor reduces a coordinate to its spatial cache key.
// The mapping is deterministic: identical coordinates always produce
// identical keys, and coordinates within the same cell collide. That
// collision is what makes spatial caching work.
func SpatialKeyFor(c Coordinate) string {
	return geohash.EncodeWithPrecision(c.Latitude, c.Longitude, spatialKeyPrecision)
}
