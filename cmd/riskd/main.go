package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/adapter/effis"
	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/adapter/geocode"
	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/adapter/geoip"
	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/adapter/httpapi"
	kafkaadapter "github.com/PD2015/wildfire-mvp-v3-sub008/internal/adapter/kafka"
	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/adapter/sepa"
	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/cache"
	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/config"
	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/domain"
	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/location"
	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/observability"
	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/orchestrator"
	"github.com/PD2015/wildfire-mvp-v3-sub008/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	store, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}

	defaultCoord, err := domain.NewCoordinate(cfg.DefaultLat, cfg.DefaultLon)
	if err != nil {
		logger.Error("invalid default coordinate", "error", err)
		os.Exit(1)
	}

	source := geoip.NewClient(cfg.GeoIPBaseURL, cfg.GeoIPTimeout, logger, clock)
	resolver := location.NewResolver(source, store, location.Settings{
		Budget:     cfg.LocationBudget,
		FixTimeout: cfg.FixTimeout,
		Default:    defaultCoord,
	}, logger, metrics, clock)

	riskCache := cache.New[domain.Observation](store, cache.Options{
		TTL:        cfg.CacheTTL,
		MaxEntries: cfg.CacheMaxEntries,
		Logger:     logger,
		Metrics:    metrics,
		Clock:      clock,
	})

	primary := effis.NewClient(cfg.EFFISBaseURL, cfg.UserAgent, cfg.EFFISTimeout, logger)

	// Secondary provider is regional (feature-flagged via SEPA_ENABLED).
	var secondary domain.RiskProvider
	var region domain.Region
	if cfg.SEPAEnabled {
		secondary = sepa.NewClient(cfg.SEPABaseURL, cfg.SEPATimeout, logger)
		region = sepa.ScotlandRegion()
		logger.Info("sepa secondary provider enabled", "timeout", cfg.SEPATimeout)
	} else {
		logger.Info("sepa secondary provider disabled")
	}

	// Assessment publishing is enabled by configuring brokers.
	var publisher orchestrator.Publisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg, logger)
		publisher = kafkaPublisher
		logger.Info("assessment publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	} else {
		logger.Info("assessment publishing disabled")
	}

	budgets := orchestrator.DefaultBudgets()
	budgets.Global = cfg.ResolveDeadline

	orch := orchestrator.New(orchestrator.Deps{
		Locator:   resolver,
		Primary:   primary,
		Secondary: secondary,
		Region:    region,
		Cache:     riskCache,
		Publisher: publisher,
		Default:   defaultCoord,
		Budgets:   budgets,
		Logger:    logger,
		Metrics:   metrics,
		Clock:     clock,
	})

	// Place search is feature-flagged via GEOCODE_ENABLED.
	var geocoder domain.PlaceGeocoder
	if cfg.GeocodeEnabled {
		client := geocode.NewClient(cfg.GeocodeBaseURL, cfg.UserAgent, cfg.GeocodeTimeout, logger)
		geocoder = geocode.NewCachedGeocoder(client, cfg.GeocodeCacheSize)
		logger.Info("place search enabled", "cache_size", cfg.GeocodeCacheSize, "timeout", cfg.GeocodeTimeout)
	} else {
		logger.Info("place search disabled")
	}

	srv := httpapi.NewServer(
		cfg.HTTPAddr,
		orch,
		resolver,
		geocoder,
		riskCache,
		httpapi.ReadyFunc(store.Ping),
		metrics,
		logger,
	)

	janitor := cache.NewJanitor(riskCache, cfg.SweepInterval, logger, clock)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := janitor.Run(ctx); err != nil {
			logger.Error("cache janitor error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	// Let queued cache writes and event publishes finish before closing
	// the resources they write to.
	orch.Drain()

	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}
	if err := store.Close(); err != nil {
		logger.Error("store close error", "error", err)
	}

	logger.Info("shutdown complete")
}

// openStore selects persistence: SQLite when STORE_PATH is set, an
// in-memory store otherwise.
func openStore(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	if cfg.StorePath == "" {
		logger.Info("using in-memory store, state will not survive restarts")
		return storage.NewMemoryStore(), nil
	}
	store, err := storage.NewSQLiteStore(cfg.StorePath)
	if err != nil {
		return nil, err
	}
	logger.Info("using sqlite store", "path", cfg.StorePath)
	return store, nil
}
