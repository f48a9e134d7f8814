package domain

import (
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// syntheticCeiling bounds generated FWI values to [0, 38): the generator
// tops out just below the very-high class. An alarming danger level must
// only ever come from real data.
const syntheticCeiling = 38.0

// SyntheticObservation derives a deterministic fallback observation for
// a spatial cell. The value is a SHA-256 hash of "spatialKey|UTC day"
// mapped into the FWI range, so the same cell yields the same value all
// day (repeated fallbacks show a stable reading, not a flickering one)
// and a different plausible value the next day. This function cannot
// fail; it is the terminal source behind every resolution.
func SyntheticObservation(spatialKey string, now time.Time) Observation {
	day := now.UTC().Format(time.DateOnly)
	hash := sha256.Sum256([]byte(spatialKey + "|" + day))
	n := binary.BigEndian.Uint64(hash[:8])

	fwi := float64(n%uint64(syntheticCeiling*100)) / 100
	return Observation{
		Level:      LevelFromFWI(fwi),
		FWI:        &fwi,
		ObservedAt: now.UTC(),
	}
}
