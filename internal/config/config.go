package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"
	_ "time/tzdata" // day boundaries must resolve Europe/Madrid on minimal images

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
)

// Config holds all configuration for the electric balance dashboard service
type Config struct {
	// Server configuration
	Port string `env:"PORT,default=8981"`

	// GraphQL backend
	GraphQLURL     string        `env:"GRAPHQL_URL,default=https://ree-electric-balance-api.onrender.com/graphql"`
	GraphQLTimeout time.Duration `env:"GRAPHQL_TIMEOUT,default=0s"`

	// Query defaults
	DefaultTimeScope  string `env:"DEFAULT_TIME_SCOPE,default=day"`
	DefaultPageSize   int    `env:"DEFAULT_PAGE_SIZE,default=50"`
	DefaultMonthsBack int    `env:"DEFAULT_MONTHS_BACK,default=1"`
	Timezone          string `env:"TIMEZONE,default=Europe/Madrid"`

	// Refresh intervals
	LatestRefreshInterval    time.Duration `env:"LATEST_REFRESH_INTERVAL,default=30s"`
	DashboardRefreshInterval time.Duration `env:"DASHBOARD_REFRESH_INTERVAL,default=60s"`

	// View model behaviour
	StatisticsFallback string `env:"STATISTICS_FALLBACK,default=off"`
	SeriesAlignment    string `env:"SERIES_ALIGNMENT,default=timestamp"`

	// GCP configuration (optional for local runs)
	GCPProjectID string `env:"GCP_PROJECT_ID"`
	GCSBucket    string `env:"GCS_BUCKET"`

	// Local storage configuration
	LocalReportsDir string `env:"LOCAL_REPORTS_DIR,default=./reports"`
	MockupMode      bool   `env:"MOCKUP_MODE,default=false"`
	MocksDir        string `env:"MOCKS_DIR,default=internal/mocks/data"`

	// Service configuration
	Environment string `env:"ENVIRONMENT,default=development"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
	LogFormat   string `env:"LOG_FORMAT,default=auto"`
}

// Statistics fallback modes
const (
	FallbackOff       = "off"
	FallbackPage      = "page"
	FallbackFullRange = "full-range"
)

// Series alignment modes
const (
	AlignTimestamp  = "timestamp"
	AlignPositional = "positional"
)

// Load loads configuration from an optional .env file and environment variables.
// Variables already present in the environment always win over the file.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateFallback rejects anything but the known statistics fallback modes
func ValidateFallback(mode string) error {
	switch mode {
	case FallbackOff, FallbackPage, FallbackFullRange:
		return nil
	}
	return fmt.Errorf("unknown statistics fallback %q", mode)
}

// Validate checks values envconfig cannot express as tags
func (c *Config) Validate() error {
	if err := ValidateFallback(c.StatisticsFallback); err != nil {
		return fmt.Errorf("invalid STATISTICS_FALLBACK: %w", err)
	}
	switch c.SeriesAlignment {
	case AlignTimestamp, AlignPositional:
	default:
		return fmt.Errorf("invalid SERIES_ALIGNMENT %q", c.SeriesAlignment)
	}
	if c.DefaultPageSize < 1 {
		return fmt.Errorf("DEFAULT_PAGE_SIZE must be >= 1, got %d", c.DefaultPageSize)
	}
	if c.LatestRefreshInterval <= 0 {
		return fmt.Errorf("LATEST_REFRESH_INTERVAL must be positive, got %s", c.LatestRefreshInterval)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the configured timezone used for day boundaries
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// UseGCS reports whether reports and exports go to Cloud Storage
func (c *Config) UseGCS() bool {
	return c.Environment != "local" && c.GCSBucket != ""
}
