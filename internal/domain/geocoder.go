package domain

import "context"

// Place is a named location returned by a place-name lookup.
type Place struct {
	Coordinate Coordinate
	Label      string
}

// PlaceGeocoder resolves a free-text place name to a coordinate, used by
// the location-search flow to save manual locations by name.
type PlaceGeocoder interface {
	// Lookup returns the best match for the query. A query that matches
	// nothing returns a zero Place and no error.
	Lookup(ctx context.Context, query string) (Place, error)
}
