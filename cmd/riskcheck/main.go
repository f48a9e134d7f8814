// Command riskcheck resolves wildfire risk for one coordinate from the
// command line, walking the same provider ladder as the service. Useful
// for verifying provider connectivity and inspecting what a deployment
// would answer for a given point.
//
// Configuration comes from the same environment variables as the
// service (EFFIS_BASE_URL, SEPA_ENABLED, ...), loaded via .env when
// present.
//
// Usage:
//
//	go run ./cmd/riskcheck -lat 55.9533 -lon -3.1883
//	go run ./cmd/riskcheck -lat 55.9533 -lon -3.1883 -synthetic
//	go run ./cmd/riskcheck -lat 55.9533 -lon -3.1883 -json -v
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/adapter/effis"
	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/adapter/sepa"
	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/cache"
	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/config"
	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/domain"
	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/observability"
	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/orchestrator"
	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/storage"
)

func main() {
	lat := flag.Float64("lat", math.NaN(), "latitude to check (required)")
	lon := flag.Float64("lon", math.NaN(), "longitude to check (required)")
	syntheticOnly := flag.Bool("synthetic", false, "skip live providers and print the deterministic fallback value")
	asJSON := flag.Bool("json", false, "print the result as JSON")
	verbose := flag.Bool("v", false, "log resolution steps to stderr")
	flag.Parse()

	if math.IsNaN(*lat) || math.IsNaN(*lon) {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*lat, *lon, *syntheticOnly, *asJSON, *verbose); code != 0 {
		os.Exit(code)
	}
}

func run(lat, lon float64, syntheticOnly, asJSON, verbose bool) int {
	coord, err := domain.NewCoordinate(lat, lon)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid coordinate: %v\n", err)
		return 1
	}

	var result domain.RiskResult
	if syntheticOnly {
		key := domain.SpatialKeyFor(coord)
		result = domain.SyntheticResult(domain.SyntheticObservation(key, time.Now()), key)
	} else {
		result, err = resolveLive(coord, verbose)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return 1
		}
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(os.Stderr, "encode result: %v\n", err)
			return 1
		}
		return 0
	}

	fmt.Printf("coordinate   %s\n", coord)
	fmt.Printf("spatial key  %s\n", result.SpatialKey)
	fmt.Printf("level        %s\n", result.Level)
	if result.FWI != nil {
		fmt.Printf("fwi          %.2f\n", *result.FWI)
	}
	fmt.Printf("source       %s (%s)\n", result.Source, result.Freshness)
	fmt.Printf("observed at  %s\n", result.ObservedAt.Format(time.RFC3339))
	return 0
}

// resolveLive builds a one-shot orchestrator against the configured
// providers. The cache is memory-backed and empty: the answer is always
// live data or the synthetic fallback, never another run's leftovers.
func resolveLive(coord domain.Coordinate, verbose bool) (domain.RiskResult, error) {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return domain.RiskResult{}, fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	var secondary domain.RiskProvider
	var region domain.Region
	if cfg.SEPAEnabled {
		secondary = sepa.NewClient(cfg.SEPABaseURL, cfg.SEPATimeout, logger)
		region = sepa.ScotlandRegion()
	}

	budgets := orchestrator.DefaultBudgets()
	budgets.Global = cfg.ResolveDeadline

	orch := orchestrator.New(orchestrator.Deps{
		Locator:   fixedLocator{coord: coord},
		Primary:   effis.NewClient(cfg.EFFISBaseURL, cfg.UserAgent, cfg.EFFISTimeout, logger),
		Secondary: secondary,
		Region:    region,
		Cache:     cache.New[domain.Observation](storage.NewMemoryStore(), cache.Options{Logger: logger}),
		Default:   coord,
		Budgets:   budgets,
		Logger:    logger,
		Metrics:   observability.NewMetrics(),
		Clock:     clockwork.NewRealClock(),
	})

	result := orch.ResolveAt(context.Background(), coord)
	orch.Drain()
	return result, nil
}

// fixedLocator satisfies the orchestrator's locator dependency for a
// tool that always resolves an explicit coordinate.
type fixedLocator struct {
	coord domain.Coordinate
}

func (l fixedLocator) Resolve(context.Context, bool) (domain.Coordinate, error) {
	return l.coord, nil
}
