package httpapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/adapter/httpapi"
	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/domain"
	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/observability"
)

type stubRisk struct {
	result           domain.RiskResult
	lastAllowDefault bool
	lastCoord        *domain.Coordinate
}

func (s *stubRisk) Resolve(_ context.Context, allowDefault bool) domain.RiskResult {
	s.lastAllowDefault = allowDefault
	return s.result
}

func (s *stubRisk) ResolveAt(_ context.Context, coord domain.Coordinate) domain.RiskResult {
	s.lastCoord = &coord
	return s.result
}

type savedLocation struct {
	lat, lon float64
	label    string
	origin   domain.ManualOrigin
}

type stubLocation struct {
	coord      domain.Coordinate
	resolveErr error
	manual     domain.ManualLocation
	hasManual  bool
	saveErr    error
	saved      []savedLocation
	cleared    bool
}

func (s *stubLocation) Resolve(_ context.Context, _ bool) (domain.Coordinate, error) {
	if s.resolveErr != nil {
		return domain.Coordinate{}, s.resolveErr
	}
	return s.coord, nil
}

func (s *stubLocation) SaveManualLocation(_ context.Context, lat, lon float64, label string, origin domain.ManualOrigin) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, savedLocation{lat: lat, lon: lon, label: label, origin: origin})
	return nil
}

func (s *stubLocation) ManualLocation(_ context.Context) (domain.ManualLocation, bool, error) {
	return s.manual, s.hasManual, nil
}

func (s *stubLocation) ClearManualLocation(_ context.Context) error {
	s.cleared = true
	return nil
}

type stubGeocoder struct {
	place     domain.Place
	err       error
	lastQuery string
}

func (s *stubGeocoder) Lookup(_ context.Context, query string) (domain.Place, error) {
	s.lastQuery = query
	if s.err != nil {
		return domain.Place{}, s.err
	}
	return s.place, nil
}

type stubCache struct {
	cleared bool
	err     error
}

func (s *stubCache) Clear(_ context.Context) error {
	s.cleared = true
	return s.err
}

type serverFixture struct {
	server   *httpapi.Server
	risk     *stubRisk
	location *stubLocation
	geocoder *stubGeocoder
	cache    *stubCache
}

func mustCoordinate(t *testing.T, lat, lon float64) domain.Coordinate {
	t.Helper()
	coord, err := domain.NewCoordinate(lat, lon)
	require.NoError(t, err)
	return coord
}

func sampleResult(t *testing.T) domain.RiskResult {
	t.Helper()
	fwi := 17.4
	return domain.LiveResult(domain.Observation{
		Level:      domain.LevelModerate,
		FWI:        &fwi,
		ObservedAt: time.Date(2026, 4, 12, 8, 0, 0, 0, time.UTC),
	}, domain.SourcePrimary, "gcvwr")
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()

	fx := &serverFixture{
		risk:     &stubRisk{result: sampleResult(t)},
		location: &stubLocation{coord: mustCoordinate(t, 55.9533, -3.1883)},
		geocoder: &stubGeocoder{},
		cache:    &stubCache{},
	}
	fx.server = httpapi.NewServer(
		":0",
		fx.risk,
		fx.location,
		fx.geocoder,
		fx.cache,
		httpapi.ReadyFunc(func(context.Context) error { return nil }),
		observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return fx
}

func do(fx *serverFixture, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, reader)
	fx.server.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (kind, message string) {
	t.Helper()
	var body struct {
		Error struct {
			Kind    string `json:"kind"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Kind, body.Error.Message
}

func TestHealthzReturns200(t *testing.T) {
	fx := newServerFixture(t)

	rec := do(fx, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReflectsChecker(t *testing.T) {
	fx := newServerFixture(t)

	rec := do(fx, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	failing := httpapi.NewServer(
		":0", fx.risk, fx.location, nil, fx.cache,
		httpapi.ReadyFunc(func(context.Context) error { return fmt.Errorf("store offline") }),
		observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	rec = httptest.NewRecorder()
	failing.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "store offline", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	fx := newServerFixture(t)

	rec := do(fx, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRiskUsesCallerLocation(t *testing.T) {
	fx := newServerFixture(t)

	rec := do(fx, http.MethodGet, "/v1/risk?allow_default=true", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, fx.risk.lastAllowDefault)
	assert.Nil(t, fx.risk.lastCoord)

	var result domain.RiskResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, domain.LevelModerate, result.Level)
	assert.Equal(t, domain.SourcePrimary, result.Source)
	assert.Equal(t, domain.FreshnessLive, result.Freshness)
	assert.Equal(t, "gcvwr", result.SpatialKey)
}

func TestRiskAtExplicitCoordinate(t *testing.T) {
	fx := newServerFixture(t)

	rec := do(fx, http.MethodGet, "/v1/risk?lat=55.9533&lon=-3.1883", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, fx.risk.lastCoord)
	assert.Equal(t, mustCoordinate(t, 55.9533, -3.1883), *fx.risk.lastCoord)
}

func TestRiskRejectsBadQuery(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{name: "lat without lon", target: "/v1/risk?lat=55.9"},
		{name: "lon without lat", target: "/v1/risk?lon=-3.1"},
		{name: "non-numeric lat", target: "/v1/risk?lat=north&lon=-3.1"},
		{name: "out of range", target: "/v1/risk?lat=91&lon=0"},
		{name: "bad allow_default", target: "/v1/risk?allow_default=banana"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newServerFixture(t)

			rec := do(fx, http.MethodGet, tt.target, "")

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			kind, _ := decodeError(t, rec)
			assert.Equal(t, "invalid_request", kind)
		})
	}
}

func TestLocationResolveReturnsCoordinate(t *testing.T) {
	fx := newServerFixture(t)

	rec := do(fx, http.MethodGet, "/v1/location/resolve", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.InDelta(t, 55.9533, body.Latitude, 1e-6)
	assert.InDelta(t, -3.1883, body.Longitude, 1e-6)
}

func TestLocationResolveConflictOnTypedFailure(t *testing.T) {
	fx := newServerFixture(t)
	fx.location.resolveErr = &domain.LocationError{
		Kind:    domain.LocationPermissionDenied,
		Message: "position permission not granted",
	}

	rec := do(fx, http.MethodGet, "/v1/location/resolve", "")

	assert.Equal(t, http.StatusConflict, rec.Code)
	kind, message := decodeError(t, rec)
	assert.Equal(t, "permission_denied", kind)
	assert.Equal(t, "position permission not granted", message)
}

func TestManualLocationLifecycle(t *testing.T) {
	fx := newServerFixture(t)

	rec := do(fx, http.MethodPut, "/v1/location", `{"latitude":56.4907,"longitude":-4.2026,"label":"Highlands"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, fx.location.saved, 1)
	saved := fx.location.saved[0]
	assert.InDelta(t, 56.4907, saved.lat, 1e-6)
	assert.InDelta(t, -4.2026, saved.lon, 1e-6)
	assert.Equal(t, "Highlands", saved.label)
	assert.Equal(t, domain.OriginDirectEntry, saved.origin)

	fx.location.hasManual = true
	fx.location.manual = domain.ManualLocation{
		Coordinate: mustCoordinate(t, 56.4907, -4.2026),
		Label:      "Highlands",
		SavedAt:    time.Date(2026, 4, 12, 9, 0, 0, 0, time.UTC),
		Origin:     domain.OriginDirectEntry,
	}
	rec = do(fx, http.MethodGet, "/v1/location", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var manual domain.ManualLocation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &manual))
	assert.Equal(t, "Highlands", manual.Label)
	assert.Equal(t, domain.OriginDirectEntry, manual.Origin)

	rec = do(fx, http.MethodDelete, "/v1/location", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, fx.location.cleared)
}

func TestManualLocationGetAbsentReturns404(t *testing.T) {
	fx := newServerFixture(t)

	rec := do(fx, http.MethodGet, "/v1/location", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	kind, _ := decodeError(t, rec)
	assert.Equal(t, "not_found", kind)
}

func TestManualLocationPutRejectsInvalid(t *testing.T) {
	t.Run("undecodable body", func(t *testing.T) {
		fx := newServerFixture(t)

		rec := do(fx, http.MethodPut, "/v1/location", "{")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		kind, _ := decodeError(t, rec)
		assert.Equal(t, "invalid_request", kind)
	})

	t.Run("out of range coordinate", func(t *testing.T) {
		fx := newServerFixture(t)
		fx.location.saveErr = &domain.LocationError{
			Kind:    domain.LocationInvalidManualInput,
			Message: "latitude 91 out of range [-90, 90]",
		}

		rec := do(fx, http.MethodPut, "/v1/location", `{"latitude":91,"longitude":0}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		kind, _ := decodeError(t, rec)
		assert.Equal(t, "invalid_manual_input", kind)
	})
}

func TestLocationSearchSavesMatch(t *testing.T) {
	fx := newServerFixture(t)
	fx.geocoder.place = domain.Place{
		Coordinate: mustCoordinate(t, 57.1949, -3.8267),
		Label:      "Aviemore, Highland, Scotland",
	}

	rec := do(fx, http.MethodPost, "/v1/location/search", `{"query":"Aviemore"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Aviemore", fx.geocoder.lastQuery)

	require.Len(t, fx.location.saved, 1)
	saved := fx.location.saved[0]
	assert.InDelta(t, 57.1949, saved.lat, 1e-6)
	assert.Equal(t, domain.OriginNameLookup, saved.origin)

	var body struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Label     string  `json:"label"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Aviemore, Highland, Scotland", body.Label)
}

func TestLocationSearchNoMatchReturns404(t *testing.T) {
	fx := newServerFixture(t)

	rec := do(fx, http.MethodPost, "/v1/location/search", `{"query":"nowhere-at-all"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	kind, _ := decodeError(t, rec)
	assert.Equal(t, "no_match", kind)
	assert.Empty(t, fx.location.saved)
}

func TestLocationSearchLookupFailureReturns502(t *testing.T) {
	fx := newServerFixture(t)
	fx.geocoder.err = fmt.Errorf("upstream unreachable")

	rec := do(fx, http.MethodPost, "/v1/location/search", `{"query":"Aviemore"}`)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	kind, _ := decodeError(t, rec)
	assert.Equal(t, "lookup_failed", kind)
}

func TestLocationSearchDisabledWithoutGeocoder(t *testing.T) {
	fx := newServerFixture(t)
	disabled := httpapi.NewServer(
		":0", fx.risk, fx.location, nil, fx.cache,
		httpapi.ReadyFunc(func(context.Context) error { return nil }),
		observability.NewMetricsForTesting(),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)

	rec := httptest.NewRecorder()
	disabled.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/location/search", strings.NewReader(`{"query":"Aviemore"}`)))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	kind, _ := decodeError(t, rec)
	assert.Equal(t, "disabled", kind)
}

func TestLocationSearchRejectsEmptyQuery(t *testing.T) {
	fx := newServerFixture(t)

	rec := do(fx, http.MethodPost, "/v1/location/search", `{}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	kind, _ := decodeError(t, rec)
	assert.Equal(t, "invalid_request", kind)
}

func TestCacheClear(t *testing.T) {
	fx := newServerFixture(t)

	rec := do(fx, http.MethodPost, "/v1/cache/clear", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, fx.cache.cleared)
}

func TestCacheClearFailureReturns500(t *testing.T) {
	fx := newServerFixture(t)
	fx.cache.err = fmt.Errorf("store offline")

	rec := do(fx, http.MethodPost, "/v1/cache/clear", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
