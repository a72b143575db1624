// Package config provides environment-driven configuration for relgraph.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/persistorai/relgraph/internal/models"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Backend modes.
const (
	ModePostgres = "postgres"
	ModeFixture  = "fixture"
)

// Config holds all application configuration values.
type Config struct {
	DatabaseURL Secret
	// FixturePath selects the in-memory fixture store instead of PostgreSQL.
	FixturePath string
	MappingPath string
	Port        string
	ListenHost  string
	CORSOrigins []string
	LogLevel    string
	DBMaxConns  int

	MaxDepth     int
	MaxNodes     int
	MaxResults   int
	MaxEdges     int
	QueryTimeout time.Duration
	SampleDepth  int
	SafetyMargin float64
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL: Secret(envOrDefault("DATABASE_URL", "")),
		FixturePath: envOrDefault("FIXTURE_PATH", ""),
		MappingPath: envOrDefault("MAPPING_PATH", ""),
		Port:        envOrDefault("PORT", "3040"),
		ListenHost:  envOrDefault("LISTEN_HOST", "127.0.0.1"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
	}

	origins := envOrDefault("CORS_ORIGINS", "http://localhost:3000")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	var err error

	ints := []struct {
		key      string
		fallback int
		dst      *int
	}{
		{"DB_MAX_CONNS", 20, &cfg.DBMaxConns},
		{"GRAPH_MAX_DEPTH", models.DefaultMaxDepth, &cfg.MaxDepth},
		{"GRAPH_MAX_NODES", models.DefaultMaxNodes, &cfg.MaxNodes},
		{"GRAPH_MAX_RESULTS", models.DefaultMaxResults, &cfg.MaxResults},
		{"GRAPH_MAX_EDGES", models.DefaultMaxEdges, &cfg.MaxEdges},
		{"GRAPH_SAMPLE_DEPTH", models.DefaultSampleDepth, &cfg.SampleDepth},
	}

	for _, v := range ints {
		if *v.dst, err = envInt(v.key, v.fallback); err != nil {
			return nil, err
		}
	}

	if cfg.QueryTimeout, err = envDuration("GRAPH_QUERY_TIMEOUT", models.DefaultQueryTimeout); err != nil {
		return nil, err
	}

	if cfg.SafetyMargin, err = envFloat("GRAPH_SAFETY_MARGIN", models.DefaultSafetyMargin); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

// Mode reports which relational backend the configuration selects.
func (c *Config) Mode() string {
	if c.FixturePath != "" {
		return ModeFixture
	}

	return ModePostgres
}

// Limits returns the deployment-wide safety ceilings every engine runs under.
func (c *Config) Limits() models.Limits {
	return models.Limits{
		MaxDepth:     c.MaxDepth,
		MaxNodes:     c.MaxNodes,
		MaxResults:   c.MaxResults,
		Timeout:      c.QueryTimeout,
		MaxEdges:     c.MaxEdges,
		SampleDepth:  c.SampleDepth,
		SafetyMargin: c.SafetyMargin,
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v, err := strconv.Atoi(envOrDefault(key, strconv.Itoa(fallback)))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}

	return v, nil
}

// envDuration accepts a Go duration ("45s") or a bare number of seconds.
func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}

	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second, nil
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration: %w", key, err)
	}

	return d, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number: %w", key, err)
	}

	return v, nil
}
