package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/hydrolink/internal/domain"
)

// Default NHD map service endpoints.
const (
	DefaultNHDHRBaseURL     = "https://hydromaintenance.nationalmap.gov/arcgis/rest/services/HEM/NHDHigh/MapServer"
	DefaultNHDPlusV2BaseURL = "https://watersgeo.epa.gov/arcgis/rest/services/NHDPlus/NHDPlus/MapServer"
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

	// Hydrolink defaults applied when a request leaves them unset.
	Hydrolink    domain.Options
	BufferMeters int
	Workers      int

	// NHD map service configuration.
	NHDTimeout       time.Duration
	NHDCacheSize     int
	NHDRateLimit     float64 // requests per second, 0 disables limiting
	NHDHRBaseURL     string
	NHDPlusV2BaseURL string

	// ResultsDB is the SQLite file results are persisted to. Empty disables storage.
	ResultsDB string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
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

	nhdTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("NHD_TIMEOUT", "30s"))
	if err != nil || nhdTimeout <= 0 {
		return nil, errors.New("invalid NHD_TIMEOUT")
	}

	bufferMeters, err := parseInt("BUFFER_METERS", domain.DefaultBufferMeters)
	if err != nil {
		return nil, err
	}

	workers, err := parseInt("WORKERS", 4)
	if err != nil {
		return nil, err
	}

	cutoff, err := parseFloat("SIMILARITY_CUTOFF", domain.DefaultSimilarityCutoff)
	if err != nil {
		return nil, err
	}

	rateLimit, err := parseFloat("NHD_RATE_LIMIT", 5)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "point-observations"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "hydrolinks"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "hydrolink"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		Hydrolink: domain.Options{
			Version:          domain.NHDVersion(sharedcfg.EnvOrDefault("NHD_VERSION", string(domain.NHDHighRes))),
			Method:           domain.Method(sharedcfg.EnvOrDefault("HYDROLINK_METHOD", string(domain.MethodNameMatch))),
			HydroType:        domain.HydroType(sharedcfg.EnvOrDefault("HYDRO_TYPE", string(domain.HydroFlowline))),
			SimilarityCutoff: cutoff,
		},
		BufferMeters: bufferMeters,
		Workers:      workers,

		NHDTimeout:       nhdTimeout,
		NHDCacheSize:     parseCacheSize(),
		NHDRateLimit:     rateLimit,
		NHDHRBaseURL:     sharedcfg.EnvOrDefault("NHDHR_BASE_URL", DefaultNHDHRBaseURL),
		NHDPlusV2BaseURL: sharedcfg.EnvOrDefault("NHDPLUSV2_BASE_URL", DefaultNHDPlusV2BaseURL),

		ResultsDB: os.Getenv("RESULTS_DB"),
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
	if err := cfg.Hydrolink.Validate(); err != nil {
		return nil, fmt.Errorf("NHD_VERSION, HYDROLINK_METHOD, HYDRO_TYPE or SIMILARITY_CUTOFF: %w", err)
	}
	if cfg.BufferMeters < 0 || cfg.BufferMeters > domain.MaxBufferMeters {
		return nil, fmt.Errorf("BUFFER_METERS must be between 0 and %d", domain.MaxBufferMeters)
	}
	if cfg.Workers < 1 {
		return nil, errors.New("WORKERS must be at least 1")
	}
	if cfg.NHDRateLimit < 0 {
		return nil, errors.New("NHD_RATE_LIMIT must not be negative")
	}

	return cfg, nil
}

func parseCacheSize() int {
	if s := os.Getenv("NHD_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
