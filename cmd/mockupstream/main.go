// Command mockupstream serves local stand-ins for every upstream the
// risk service talks to: the EFFIS fire weather index endpoint, the
// SEPA danger assessment endpoint, an ip-api style geolocation lookup,
// and a Nominatim place search over a small Scottish gazetteer. Risk
// values come from the deterministic synthetic generator, so a cell
// reports the same reading all day and a different one tomorrow.
//
// Usage:
//
//	go run ./cmd/mockupstream -addr localhost:9090
//	go run ./cmd/mockupstream -addr localhost:9090 -lat 57.4778 -lon -4.2247
//
// Then point a local service at it:
//
//	EFFIS_BASE_URL=http://localhost:9090 \
//	SEPA_BASE_URL=http://localhost:9090 \
//	GEOIP_BASE_URL=http://localhost:9090 \
//	GEOCODE_BASE_URL=http://localhost:9090 \
//	go run ./cmd/riskd
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	addr := flag.String("addr", "localhost:9090", "listen address")
	lat := flag.Float64("lat", 55.9533, "latitude reported by the geolocation endpoint")
	lon := flag.Float64("lon", -3.1883, "longitude reported by the geolocation endpoint")
	flag.Parse()

	fix, err := domain.NewCoordinate(*lat, *lon)
	if err != nil {
		return fmt.Errorf("invalid geolocation fix: %w", err)
	}

	m := &mockUpstreams{fix: fix}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /fwi/point", m.handleFWI)
	mux.HandleFunc("GET /api/v1/wildfire-danger", m.handleDanger)
	mux.HandleFunc("GET /json", m.handleGeoIP)
	mux.HandleFunc("GET /search", m.handleSearch)

	srv := &http.Server{
		Addr:         *addr,
		Handler:      logRequests(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Printf("mock upstreams listening on %s", *addr)
	log.Printf("geolocation fix: %.4f,%.4f", fix.Latitude, fix.Longitude)
	return srv.ListenAndServe()
}

// mockUpstreams answers all four upstream APIs from one listener. The
// paths never collide, so a single base URL works for every adapter.
type mockUpstreams struct {
	fix domain.Coordinate
}

// handleFWI mimics the EFFIS fire weather index endpoint.
func (m *mockUpstreams) handleFWI(w http.ResponseWriter, r *http.Request) {
	coord, err := queryCoordinate(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	obs := domain.SyntheticObservation(domain.SpatialKeyFor(coord), time.Now())
	writeJSON(w, http.StatusOK, map[string]any{
		"fwi":         *obs.FWI,
		"observed_at": obs.ObservedAt,
	})
}

// handleDanger mimics the SEPA danger assessment endpoint. It reports
// the same underlying reading as the FWI endpoint, classified instead
// of numeric.
func (m *mockUpstreams) handleDanger(w http.ResponseWriter, r *http.Request) {
	coord, err := queryCoordinate(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	obs := domain.SyntheticObservation(domain.SpatialKeyFor(coord), time.Now())
	writeJSON(w, http.StatusOK, map[string]any{
		"danger_level": string(obs.Level),
		"assessed_at":  obs.ObservedAt,
	})
}

// handleGeoIP mimics an ip-api lookup, always answering with the fix
// given on the command line.
func (m *mockUpstreams) handleGeoIP(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"lat":    m.fix.Latitude,
		"lon":    m.fix.Longitude,
	})
}

// handleSearch mimics a Nominatim forward geocode against the built-in
// gazetteer. Nominatim serializes coordinates as strings, so the mock
// does too.
func (m *mockUpstreams) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	results := []map[string]string{}
	if query != "" {
		for _, p := range gazetteer {
			if !strings.Contains(query, p.name) && !strings.Contains(p.name, query) {
				continue
			}
			results = append(results, map[string]string{
				"lat":          strconv.FormatFloat(p.lat, 'f', 4, 64),
				"lon":          strconv.FormatFloat(p.lon, 'f', 4, 64),
				"display_name": p.displayName,
			})
			break
		}
	}
	writeJSON(w, http.StatusOK, results)
}

func queryCoordinate(r *http.Request) (domain.Coordinate, error) {
	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("parse lat: %w", err)
	}
	lon, err := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("parse lon: %w", err)
	}
	return domain.NewCoordinate(lat, lon)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // best-effort response write
	json.NewEncoder(w).Encode(body)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("%s %s", r.Method, r.URL.RequestURI())
		next.ServeHTTP(w, r)
	})
}

type place struct {
	name        string
	displayName string
	lat, lon    float64
}

var gazetteer = []place{
	{"edinburgh", "Edinburgh, City of Edinburgh, Scotland, United Kingdom", 55.9533, -3.1883},
	{"glasgow", "Glasgow, Glasgow City, Scotland, United Kingdom", 55.8617, -4.2583},
	{"aviemore", "Aviemore, Highland, Scotland, United Kingdom", 57.1950, -3.8267},
	{"inverness", "Inverness, Highland, Scotland, United Kingdom", 57.4778, -4.2247},
	{"fort william", "Fort William, Highland, Scotland, United Kingdom", 56.8198, -5.1052},
	{"stirling", "Stirling, Stirling, Scotland, United Kingdom", 56.1165, -3.9369},
	{"oban", "Oban, Argyll and Bute, Scotland, United Kingdom", 56.4152, -5.4710},
	{"portree", "Portree, Isle of Skye, Highland, Scotland, United Kingdom", 57.4125, -6.1946},
}
