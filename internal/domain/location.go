package domain

import "time"

// ManualOrigin records how a manual location came to be saved.
type ManualOrigin string

const (
	OriginDirectEntry ManualOrigin = "direct_entry"
	OriginNameLookup  ManualOrigin = "name_lookup"
)

// ManualLocation is a user-saved location. It survives restarts, is
// created or overwritten only by an explicit user action, and is deleted
// only by an explicit reset.
type ManualLocation struct {
	Coordinate Coordinate   `json:"coordinate"`
	Label      string       `json:"label,omitempty"`
	SavedAt    time.Time    `json:"saved_at"`
	Origin     ManualOrigin `json:"origin"`
}
