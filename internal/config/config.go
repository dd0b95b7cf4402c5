package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"

	"github.com/couchcryptid/event-geo-hierarchy/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Geocoder configuration.
	GeocoderURL       string
	GeocoderUserAgent string
	GeocoderLanguage  string
	GeocoderTimeout   time.Duration
	GeocoderCacheTTL  time.Duration

	// Store configuration.
	DBDriver    string
	DBDSN       string
	DBSlowQuery time.Duration

	// Hierarchy configuration.
	LevelRange         domain.LevelRange
	CollapsedRegions   []string
	ContinentTablePath string
	// QualifySlugsFrom enables parent-qualified slugs from this level on; 0 disables.
	QualifySlugsFrom domain.Level

	DisplaySeparator     string
	DisplayPathSeparator string

	ICSFeeds       []string
	ICSRefreshCron string
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is applied first
// without overriding variables that are already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	geocoderTimeout, err := parsePositiveDuration("GEOCODER_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parsePositiveDuration("GEOCODER_CACHE_TTL", "24h")
	if err != nil {
		return nil, err
	}
	slowQuery, err := parseDuration("DB_SLOW_QUERY", "500ms")
	if err != nil {
		return nil, err
	}

	levelRange, err := parseLevelRange()
	if err != nil {
		return nil, err
	}
	qualifyFrom, err := parseQualifyFrom()
	if err != nil {
		return nil, err
	}

	dbDriver := strings.ToLower(sharedcfg.EnvOrDefault("DB_DRIVER", "sqlite"))
	switch dbDriver {
	case "sqlite", "postgres", "postgresql", "pgx", "mysql", "memory":
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER %q: must be sqlite, postgres, mysql or memory", dbDriver)
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "venue-events"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "located-events"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "event-geo-hierarchy"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		GeocoderURL:       sharedcfg.EnvOrDefault("GEOCODER_URL", "https://nominatim.openstreetmap.org"),
		GeocoderUserAgent: sharedcfg.EnvOrDefault("GEOCODER_USER_AGENT", "event-geo-hierarchy/1.0"),
		GeocoderLanguage:  sharedcfg.EnvOrDefault("GEOCODER_LANGUAGE", "en"),
		GeocoderTimeout:   geocoderTimeout,
		GeocoderCacheTTL:  cacheTTL,

		DBDriver:    dbDriver,
		DBDSN:       sharedcfg.EnvOrDefault("DB_DSN", "geo-hierarchy.db"),
		DBSlowQuery: slowQuery,

		LevelRange:         levelRange,
		CollapsedRegions:   parseCollapsedRegions(),
		ContinentTablePath: sharedcfg.EnvOrDefault("CONTINENT_TABLE_PATH", ""),
		QualifySlugsFrom:   qualifyFrom,

		DisplaySeparator:     sharedcfg.EnvOrDefault("DISPLAY_SEPARATOR", domain.DefaultSeparator),
		DisplayPathSeparator: sharedcfg.EnvOrDefault("DISPLAY_PATH_SEPARATOR", domain.DefaultPathSeparator),

		ICSFeeds:       parseList(sharedcfg.EnvOrDefault("ICS_FEEDS", "")),
		ICSRefreshCron: sharedcfg.EnvOrDefault("ICS_REFRESH_CRON", "*/15 * * * *"),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.DBDriver != "memory" && cfg.DBDSN == "" {
		return nil, errors.New("DB_DSN is required")
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s: must be a duration", key)
	}
	return d, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := parseDuration(key, def)
	if err != nil || d == 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive duration", key)
	}
	return d, nil
}

func parseLevelRange() (domain.LevelRange, error) {
	minLevel, err := strconv.Atoi(sharedcfg.EnvOrDefault("HIERARCHY_MIN_LEVEL", "1"))
	if err != nil {
		return domain.LevelRange{}, errors.New("invalid HIERARCHY_MIN_LEVEL: must be an integer")
	}
	maxLevel, err := strconv.Atoi(sharedcfg.EnvOrDefault("HIERARCHY_MAX_LEVEL", "6"))
	if err != nil {
		return domain.LevelRange{}, errors.New("invalid HIERARCHY_MAX_LEVEL: must be an integer")
	}
	rng, err := domain.NewLevelRange(minLevel, maxLevel)
	if err != nil {
		return domain.LevelRange{}, fmt.Errorf("invalid HIERARCHY_MIN_LEVEL/HIERARCHY_MAX_LEVEL: %w", err)
	}
	return rng, nil
}

func parseQualifyFrom() (domain.Level, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault("QUALIFY_SLUGS_FROM_LEVEL", "0"))
	if err != nil || n < 0 || n > int(domain.MaxLevel) {
		return 0, errors.New("invalid QUALIFY_SLUGS_FROM_LEVEL: must be 0-6")
	}
	return domain.Level(n), nil
}

// parseCollapsedRegions reads COLLAPSED_REGION_COUNTRIES; "none" disables
// the city-state branch.
func parseCollapsedRegions() []string {
	v := sharedcfg.EnvOrDefault("COLLAPSED_REGION_COUNTRIES", strings.Join(domain.DefaultCollapsedRegions, ","))
	if strings.EqualFold(strings.TrimSpace(v), "none") {
		return []string{}
	}
	return parseList(v)
}

// parseList splits a comma-separated list, trimming whitespace and dropping empties.
func parseList(s string) []string {
	return sharedcfg.ParseBrokers(s)
}
