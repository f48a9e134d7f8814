package domain

import "fmt"

// The three error taxonomies below are closed: every failure a component
// can surface across its public boundary is one of these kinds, carrying
// a message and an optional wrapped cause. Callers classify with
// errors.As and a switch on Kind rather than string matching.

// LocationErrorKind enumerates the ways coordinate resolution can fail.
type LocationErrorKind string

const (
	LocationPermissionDenied    LocationErrorKind = "permission_denied"
	LocationProviderUnavailable LocationErrorKind = "provider_unavailable"
	LocationTimedOut            LocationErrorKind = "timed_out"
	LocationInvalidManualInput  LocationErrorKind = "invalid_manual_input"
	LocationPersistenceFailure  LocationErrorKind = "persistence_failure"
)

// LocationError is the typed failure returned by the resolver when every
// fallback is exhausted or a manual-location operation fails.
type LocationError struct {
	Kind    LocationErrorKind
	Message string
	Cause   error
}

func (e *LocationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("location %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("location %s: %s", e.Kind, e.Message)
}

func (e *LocationError) Unwrap() error { return e.Cause }

// CacheErrorKind enumerates spatial cache failure modes.
type CacheErrorKind string

const (
	CacheStorage            CacheErrorKind = "storage"
	CacheSerialization      CacheErrorKind = "serialization"
	CacheUnsupportedVersion CacheErrorKind = "unsupported_version"
)

// CacheError reports a cache write failure. Reads never surface errors;
// callers of Get see only hit or miss.
type CacheError struct {
	Kind    CacheErrorKind
	Message string
	Cause   error
}

func (e *CacheError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cache %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("cache %s: %s", e.Kind, e.Message)
}

func (e *CacheError) Unwrap() error { return e.Cause }

// ProviderErrorKind enumerates risk provider failure modes.
type ProviderErrorKind string

const (
	ProviderTimeout     ProviderErrorKind = "timeout"
	ProviderUnavailable ProviderErrorKind = "unavailable"
	ProviderRateLimited ProviderErrorKind = "rate_limited"
	ProviderMalformed   ProviderErrorKind = "malformed"
)

// ProviderError is the typed failure returned by risk provider clients.
type ProviderError struct {
	Kind     ProviderErrorKind
	Provider string
	Message  string
	Cause    error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider %s %s: %s: %v", e.Provider, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("provider %s %s: %s", e.Provider, e.Kind, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// Retryable reports whether the failure is transient. Timeouts, outages,
// and rate limiting may clear on a retry; a malformed payload will not.
func (e *ProviderError) Retryable() bool {
	switch e.Kind {
	case ProviderTimeout, ProviderUnavailable, ProviderRateLimited:
		return true
	default:
		return false
	}
}
