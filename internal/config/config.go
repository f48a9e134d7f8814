package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// StorePath is the SQLite database path. Empty selects the in-memory
	// store (no persistence across restarts).
	StorePath string

	// Default coordinate used when the resolver is allowed to fall back
	// to it. Defaults to central Edinburgh.
	DefaultLat float64
	DefaultLon float64

	// Resolution time budgets.
	ResolveDeadline time.Duration // global budget for one risk resolution
	LocationBudget  time.Duration // budget for the coordinate fallback ladder
	FixTimeout      time.Duration // sub-timeout for one fresh position fix

	// Spatial cache bounds.
	CacheTTL        time.Duration
	CacheMaxEntries int

	// SweepInterval is how often the cache janitor purges entries that
	// expired without being read.
	SweepInterval time.Duration

	// UserAgent identifies this service to upstream HTTP APIs. EFFIS and
	// Nominatim both require a meaningful one.
	UserAgent string

	// Primary provider (EFFIS fire weather index).
	EFFISBaseURL string
	EFFISTimeout time.Duration

	// Secondary regional provider (SEPA, Scotland only).
	SEPABaseURL string
	SEPAEnabled bool
	SEPATimeout time.Duration

	// Network position source.
	GeoIPBaseURL string
	GeoIPTimeout time.Duration

	// Place-name lookup for manual locations.
	GeocodeBaseURL   string
	GeocodeEnabled   bool
	GeocodeTimeout   time.Duration
	GeocodeCacheSize int

	// Assessment event publishing (enabled when brokers are configured).
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool
}

// Load reads configuration from environment variables, applying defaults
// where unset. Every validation error names the offending variable.
func Load() (*Config, error) {
	shutdownTimeout, err := durationVar("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	resolveDeadline, err := durationVar("RESOLVE_DEADLINE", "8s")
	if err != nil {
		return nil, err
	}
	locationBudget, err := durationVar("LOCATION_BUDGET", "2.5s")
	if err != nil {
		return nil, err
	}
	fixTimeout, err := durationVar("FIX_TIMEOUT", "2s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := durationVar("CACHE_TTL", "6h")
	if err != nil {
		return nil, err
	}
	sweepInterval, err := durationVar("SWEEP_INTERVAL", "30m")
	if err != nil {
		return nil, err
	}
	effisTimeout, err := durationVar("EFFIS_TIMEOUT", "4s")
	if err != nil {
		return nil, err
	}
	sepaTimeout, err := durationVar("SEPA_TIMEOUT", "3s")
	if err != nil {
		return nil, err
	}
	geoipTimeout, err := durationVar("GEOIP_TIMEOUT", "2s")
	if err != nil {
		return nil, err
	}
	geocodeTimeout, err := durationVar("GEOCODE_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	cacheMaxEntries, err := intVar("CACHE_MAX_ENTRIES", 100, 1, 10000)
	if err != nil {
		return nil, err
	}
	geocodeCacheSize, err := intVar("GEOCODE_CACHE_SIZE", 256, 1, 100000)
	if err != nil {
		return nil, err
	}

	defaultLat, err := floatVar("DEFAULT_LAT", 55.9533)
	if err != nil {
		return nil, err
	}
	defaultLon, err := floatVar("DEFAULT_LON", -3.1883)
	if err != nil {
		return nil, err
	}
	if defaultLat < -90 || defaultLat > 90 {
		return nil, fmt.Errorf("DEFAULT_LAT %g out of range [-90, 90]", defaultLat)
	}
	if defaultLon < -180 || defaultLon > 180 {
		return nil, fmt.Errorf("DEFAULT_LON %g out of range [-180, 180]", defaultLon)
	}

	kafkaBrokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(kafkaBrokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	sepaBaseURL := envOrDefault("SEPA_BASE_URL", "https://api.sepa.org.uk")
	sepaEnabled := sepaBaseURL != ""
	if v := os.Getenv("SEPA_ENABLED"); v != "" {
		sepaEnabled = v == "true"
	}

	geocodeBaseURL := envOrDefault("GEOCODE_BASE_URL", "https://nominatim.openstreetmap.org")
	geocodeEnabled := geocodeBaseURL != ""
	if v := os.Getenv("GEOCODE_ENABLED"); v != "" {
		geocodeEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		StorePath: os.Getenv("STORE_PATH"),

		DefaultLat: defaultLat,
		DefaultLon: defaultLon,

		ResolveDeadline: resolveDeadline,
		LocationBudget:  locationBudget,
		FixTimeout:      fixTimeout,

		CacheTTL:        cacheTTL,
		CacheMaxEntries: cacheMaxEntries,
		SweepInterval:   sweepInterval,

		UserAgent: envOrDefault("USER_AGENT", "wildfire-risk-service/1.0"),

		EFFISBaseURL: envOrDefault("EFFIS_BASE_URL", "https://effis.jrc.ec.europa.eu"),
		EFFISTimeout: effisTimeout,

		SEPABaseURL: sepaBaseURL,
		SEPAEnabled: sepaEnabled,
		SEPATimeout: sepaTimeout,

		GeoIPBaseURL: envOrDefault("GEOIP_BASE_URL", "http://ip-api.com"),
		GeoIPTimeout: geoipTimeout,

		GeocodeBaseURL:   geocodeBaseURL,
		GeocodeEnabled:   geocodeEnabled,
		GeocodeTimeout:   geocodeTimeout,
		GeocodeCacheSize: geocodeCacheSize,

		KafkaBrokers: kafkaBrokers,
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "wildfire-assessments"),
		KafkaEnabled: kafkaEnabled,
	}

	if cfg.EFFISBaseURL == "" {
		return nil, fmt.Errorf("EFFIS_BASE_URL is required")
	}
	if cfg.SEPAEnabled && cfg.SEPABaseURL == "" {
		return nil, fmt.Errorf("SEPA_ENABLED is true but SEPA_BASE_URL is not set")
	}
	if cfg.GeocodeEnabled && cfg.GeocodeBaseURL == "" {
		return nil, fmt.Errorf("GEOCODE_ENABLED is true but GEOCODE_BASE_URL is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, fmt.Errorf("KAFKA_TOPIC is required when Kafka publishing is enabled")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// parseBrokers splits a comma-separated broker list, dropping empty parts.
func parseBrokers(s string) []string {
	var brokers []string
	for _, part := range strings.Split(s, ",") {
		if b := strings.TrimSpace(part); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func durationVar(name, def string) (time.Duration, error) {
	s := envOrDefault(name, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive duration", name, s)
	}
	return d, nil
}

func intVar(name string, def, min, max int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < min || n > max {
		return 0, fmt.Errorf("invalid %s %q: must be an integer in [%d, %d]", name, s, min, max)
	}
	return n, nil
}

func floatVar(name string, def float64) (float64, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: must be a number", name, s)
	}
	return v, nil
}
