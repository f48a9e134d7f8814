// Package domain models wildfire risk resolution: coordinates, spatial
// keys, risk observations, attributed results, and the closed error
// taxonomies shared by every component.
//
// # Risk Scale
//
// Risk levels follow the EFFIS (European Forest Fire Information System)
// fire danger classification, derived from the Canadian Fire Weather
// Index (FWI):
//
//	Very Low  FWI < 5.2
//	Low       FWI < 11.2
//	Moderate  FWI < 21.3
//	High      FWI < 38.0
//	Very High FWI < 50.0
//	Extreme   FWI ≥ 50.0
//
// Providers that report a named danger level instead of a numeric index
// map onto the same six-level scale; the numeric index is optional on
// every observation.
//
// # Spatial Keys
//
// Coordinates are never used directly as storage keys, cache keys, event
// keys, or log fields. [SpatialKeyFor] reduces a coordinate to a
// precision-5 geohash (cells roughly 4.9 km across), so nearby
// coordinates collapse onto a shared key. The coarse cell doubles as a
// privacy boundary: a spatial key identifies a neighbourhood, not a
// household. The same rule applies to diagnostics: [Coordinate]
// implements [log/slog.LogValuer] and rounds to two decimal places
// (about 1.1 km) whenever it is logged or formatted.
//
// # Attribution
//
// Every [RiskResult] carries a [Source] (where the value came from) and
// a [Freshness] tag (live, cached, or synthetic) so consumers are never
// misled about provenance. Results are built through [LiveResult],
// [CachedResult], and [SyntheticResult], which keep the source/freshness
// pairing consistent; unattributed risk data is not a representable value.
//
// # Synthetic Fallback
//
// [SyntheticObservation] is the terminal, infallible data source: a
// SHA-256 hash of "spatialKey|UTC day" mapped into the FWI range
// [0, 38). It is deterministic per cell per day (repeated fallbacks show
// a stable value, not a flickering one) and never claims a very-high or
// extreme danger level, because an alarming value should only ever come
// from real data.
package domain
