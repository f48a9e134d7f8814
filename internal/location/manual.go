package location

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/domain"
)

const (
	manualLocationKey   = "location:manual"
	manualFormatVersion = "1"
)

// manualRecord is the persisted shape of a manual location. The format
// version lets a future schema change be detected instead of misread.
type manualRecord struct {
	FormatVersion string    `json:"format_version"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	Label         string    `json:"label,omitempty"`
	SavedAt       time.Time `json:"saved_at"`
	Origin        string    `json:"origin"`
}

// SaveManualLocation validates and persists a user-entered location.
// Out-of-range coordinates are rejected outright, never clamped.
func (r *Resolver) SaveManualLocation(ctx context.Context, lat, lon float64, label string, origin domain.ManualOrigin) error {
	coord, err := domain.NewCoordinate(lat, lon)
	if err != nil {
		return &domain.LocationError{
			Kind:    domain.LocationInvalidManualInput,
			Message: "manual location rejected",
			Cause:   err,
		}
	}

	switch origin {
	case domain.OriginDirectEntry, domain.OriginNameLookup:
	case "":
		origin = domain.OriginDirectEntry
	default:
		return &domain.LocationError{
			Kind:    domain.LocationInvalidManualInput,
			Message: fmt.Sprintf("unknown origin %q", origin),
		}
	}

	record := manualRecord{
		FormatVersion: manualFormatVersion,
		Latitude:      coord.Latitude,
		Longitude:     coord.Longitude,
		Label:         label,
		SavedAt:       r.clock.Now().UTC(),
		Origin:        string(origin),
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return &domain.LocationError{
			Kind:    domain.LocationPersistenceFailure,
			Message: "encode manual location",
			Cause:   err,
		}
	}
	if err := r.store.SetString(ctx, manualLocationKey, string(raw)); err != nil {
		return &domain.LocationError{
			Kind:    domain.LocationPersistenceFailure,
			Message: "persist manual location",
			Cause:   err,
		}
	}

	r.logger.Info("manual location saved", "coordinate", coord, "origin", string(origin))
	return nil
}

// ManualLocation reads the persisted manual location. The second return
// reports presence. A record that cannot be decoded is surfaced as an
// error but never auto-deleted; only ClearManualLocation removes it.
func (r *Resolver) ManualLocation(ctx context.Context) (domain.ManualLocation, bool, error) {
	raw, ok, err := r.store.GetString(ctx, manualLocationKey)
	if err != nil {
		return domain.ManualLocation{}, false, &domain.LocationError{
			Kind:    domain.LocationPersistenceFailure,
			Message: "read manual location",
			Cause:   err,
		}
	}
	if !ok {
		return domain.ManualLocation{}, false, nil
	}

	var record manualRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return domain.ManualLocation{}, false, &domain.LocationError{
			Kind:    domain.LocationPersistenceFailure,
			Message: "decode manual location",
			Cause:   err,
		}
	}
	if record.FormatVersion != manualFormatVersion {
		return domain.ManualLocation{}, false, &domain.LocationError{
			Kind:    domain.LocationPersistenceFailure,
			Message: fmt.Sprintf("manual location format version %q unsupported", record.FormatVersion),
		}
	}
	coord, err := domain.NewCoordinate(record.Latitude, record.Longitude)
	if err != nil {
		return domain.ManualLocation{}, false, &domain.LocationError{
			Kind:    domain.LocationPersistenceFailure,
			Message: "manual location out of range",
			Cause:   err,
		}
	}

	return domain.ManualLocation{
		Coordinate: coord,
		Label:      record.Label,
		SavedAt:    record.SavedAt,
		Origin:     domain.ManualOrigin(record.Origin),
	}, true, nil
}

// ClearManualLocation removes the persisted manual location. This is the
// only code path that deletes it.
func (r *Resolver) ClearManualLocation(ctx context.Context) error {
	if err := r.store.Delete(ctx, manualLocationKey); err != nil {
		return &domain.LocationError{
			Kind:    domain.LocationPersistenceFailure,
			Message: "clear manual location",
			Cause:   err,
		}
	}
	r.logger.Info("manual location cleared")
	return nil
}
