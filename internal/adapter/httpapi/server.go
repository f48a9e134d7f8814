// Package httpapi exposes the caller-facing HTTP boundary: risk
// resolution, location management, cache maintenance, and the
// health/readiness/metrics endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/domain"
	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/observability"
)

// RiskResolver resolves risk for the caller's location or an explicit
// coordinate. It never fails.
type RiskResolver interface {
	Resolve(ctx context.Context, allowDefault bool) domain.RiskResult
	ResolveAt(ctx context.Context, coord domain.Coordinate) domain.RiskResult
}

// LocationService is the resolver surface behind the location endpoints.
type LocationService interface {
	Resolve(ctx context.Context, allowDefault bool) (domain.Coordinate, error)
	SaveManualLocation(ctx context.Context, lat, lon float64, label string, origin domain.ManualOrigin) error
	ManualLocation(ctx context.Context) (domain.ManualLocation, bool, error)
	ClearManualLocation(ctx context.Context) error
}

// CacheMaintainer supports the explicit cache reset.
type CacheMaintainer interface {
	Clear(ctx context.Context) error
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// ReadyFunc adapts a plain function to ReadinessChecker.
type ReadyFunc func(ctx context.Context) error

func (f ReadyFunc) CheckReadiness(ctx context.Context) error { return f(ctx) }

// Server exposes the service's HTTP endpoints.
type Server struct {
	httpServer *http.Server
	risk       RiskResolver
	location   LocationService
	geocoder   domain.PlaceGeocoder
	cache      CacheMaintainer
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer wires all routes. geocoder may be nil when place search is
// not configured; the search endpoint then answers 503.
func NewServer(addr string, risk RiskResolver, location LocationService, geocoder domain.PlaceGeocoder, cache CacheMaintainer, ready ReadinessChecker, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		risk:     risk,
		location: location,
		geocoder: geocoder,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /v1/risk", s.handleRisk)
	mux.HandleFunc("GET /v1/location/resolve", s.handleLocationResolve)
	mux.HandleFunc("GET /v1/location", s.handleLocationGet)
	mux.HandleFunc("PUT /v1/location", s.handleLocationPut)
	mux.HandleFunc("DELETE /v1/location", s.handleLocationDelete)
	mux.HandleFunc("POST /v1/location/search", s.handleLocationSearch)
	mux.HandleFunc("POST /v1/cache/clear", s.handleCacheClear)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// handleRisk answers 200 for every well-formed request: resolution
// itself cannot fail. With a lat/lon pair the location ladder is
// bypassed.
func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	allowDefault, ok := parseAllowDefault(w, r)
	if !ok {
		return
	}

	latRaw, lonRaw := r.URL.Query().Get("lat"), r.URL.Query().Get("lon")
	if latRaw == "" && lonRaw == "" {
		writeJSON(w, http.StatusOK, s.risk.Resolve(r.Context(), allowDefault))
		return
	}
	if latRaw == "" || lonRaw == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "lat and lon must be provided together")
		return
	}

	coord, ok := parseCoordinate(w, latRaw, lonRaw)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.risk.ResolveAt(r.Context(), coord))
}

// handleLocationResolve surfaces the resolver's typed failure so a UI
// can prompt for manual entry instead of silently substituting.
func (s *Server) handleLocationResolve(w http.ResponseWriter, r *http.Request) {
	allowDefault, ok := parseAllowDefault(w, r)
	if !ok {
		return
	}

	coord, err := s.location.Resolve(r.Context(), allowDefault)
	if err != nil {
		var locErr *domain.LocationError
		if errors.As(err, &locErr) {
			writeError(w, http.StatusConflict, string(locErr.Kind), locErr.Message)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", "location resolution failed")
		return
	}

	writeJSON(w, http.StatusOK, coordinateBody{Latitude: coord.Latitude, Longitude: coord.Longitude})
}

func (s *Server) handleLocationGet(w http.ResponseWriter, r *http.Request) {
	manual, ok, err := s.location.ManualLocation(r.Context())
	if err != nil {
		s.logger.Warn("manual location read failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "manual location unreadable")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "no manual location saved")
		return
	}
	writeJSON(w, http.StatusOK, manual)
}

func (s *Server) handleLocationPut(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
		Label     string  `json:"label"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "undecodable body")
		return
	}

	err := s.location.SaveManualLocation(r.Context(), body.Latitude, body.Longitude, body.Label, domain.OriginDirectEntry)
	if err != nil {
		writeLocationError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLocationDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.location.ClearManualLocation(r.Context()); err != nil {
		s.logger.Warn("manual location clear failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "manual location clear failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleLocationSearch forward-geocodes a place name and saves the
// match as the manual location.
func (s *Server) handleLocationSearch(w http.ResponseWriter, r *http.Request) {
	if s.geocoder == nil {
		writeError(w, http.StatusServiceUnavailable, "disabled", "place search is not configured")
		return
	}

	var body struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}

	place, err := s.geocoder.Lookup(r.Context(), body.Query)
	if err != nil {
		s.metrics.GeocodeRequests.WithLabelValues("error").Inc()
		s.logger.Warn("place lookup failed", "error", err)
		writeError(w, http.StatusBadGateway, "lookup_failed", "place lookup failed")
		return
	}
	if place == (domain.Place{}) {
		s.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
		writeError(w, http.StatusNotFound, "no_match", "no place matched the query")
		return
	}

	err = s.location.SaveManualLocation(r.Context(), place.Coordinate.Latitude, place.Coordinate.Longitude, place.Label, domain.OriginNameLookup)
	if err != nil {
		writeLocationError(w, err)
		return
	}

	s.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, placeBody{
		Latitude:  place.Coordinate.Latitude,
		Longitude: place.Coordinate.Longitude,
		Label:     place.Label,
	})
}

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if err := s.cache.Clear(r.Context()); err != nil {
		s.logger.Warn("cache clear failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "cache clear failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type coordinateBody struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type placeBody struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Label     string  `json:"label"`
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func parseAllowDefault(w http.ResponseWriter, r *http.Request) (bool, bool) {
	raw := r.URL.Query().Get("allow_default")
	if raw == "" {
		return false, true
	}
	allow, err := strconv.ParseBool(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "allow_default must be a boolean")
		return false, false
	}
	return allow, true
}

func parseCoordinate(w http.ResponseWriter, latRaw, lonRaw string) (domain.Coordinate, bool) {
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "lat must be a number")
		return domain.Coordinate{}, false
	}
	lon, err := strconv.ParseFloat(lonRaw, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "lon must be a number")
		return domain.Coordinate{}, false
	}
	coord, err := domain.NewCoordinate(lat, lon)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return domain.Coordinate{}, false
	}
	return coord, true
}

// writeLocationError maps the location error taxonomy onto status
// codes: invalid input is the caller's fault, persistence is ours.
func writeLocationError(w http.ResponseWriter, err error) {
	var locErr *domain.LocationError
	if errors.As(err, &locErr) {
		status := http.StatusInternalServerError
		if locErr.Kind == domain.LocationInvalidManualInput {
			status = http.StatusBadRequest
		}
		writeError(w, status, string(locErr.Kind), locErr.Message)
		return
	}
	writeError(w, http.StatusInternalServerError, "internal", "location operation failed")
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Kind: kind, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response write
}
