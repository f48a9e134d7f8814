// Package storage defines the key-value persistence boundary shared by
// the spatial cache and manual-location record, with in-memory and
// SQLite-backed implementations. Operations are atomic per key; no
// schema beyond string keys and values is imposed on callers.
package storage

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a store after Close.
var ErrClosed = errors.New("storage: store is closed")

// Store is a string key-value store. GetString reports presence
// explicitly so callers never parse "not found" out of an error.
type Store interface {
	GetString(ctx context.Context, key string) (string, bool, error)
	SetString(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error

	// Ping reports whether the store is reachable, for readiness checks.
	Ping(ctx context.Context) error

	Close() error
}
