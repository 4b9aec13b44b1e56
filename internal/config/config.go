// Package config loads the YAML configuration file and applies
// environment overrides. Every field has a default; a missing config
// file is not an error.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"nfa/internal/archive"
	"nfa/internal/query"
)

// EnvAPIKey overrides agent.api_key so credentials can stay out of
// config files.
const EnvAPIKey = "NFA_API_KEY"

// Config holds the full application configuration.
type Config struct {
	Listen  string        `yaml:"listen"`
	Archive ArchiveConfig `yaml:"archive"`
	Agent   AgentConfig   `yaml:"agent"`
	Query   QueryConfig   `yaml:"query"`
	Store   StoreConfig   `yaml:"store"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ArchiveConfig tunes zip member classification and extraction.
type ArchiveConfig struct {
	HeaderPattern string `yaml:"header_pattern"`
	ItemsPattern  string `yaml:"items_pattern"`
	MaxMemberMB   int    `yaml:"max_member_mb"`
}

// AgentConfig selects the external reasoning service.
type AgentConfig struct {
	Model    string `yaml:"model"`
	Endpoint string `yaml:"endpoint"`
	APIKey   string `yaml:"api_key"` // NFA_API_KEY wins when set
}

// QueryConfig bounds the question engine. Zero values select the
// engine's own defaults.
type QueryConfig struct {
	MaxSteps       int `yaml:"max_steps"`
	MaxRetries     int `yaml:"max_retries"`
	MaxResultRows  int `yaml:"max_result_rows"`
	TopN           int `yaml:"top_n"`
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// StoreConfig configures the optional snapshot mirror. An empty kind
// disables persistence.
type StoreConfig struct {
	Kind string `yaml:"kind"` // "sqlite", "postgres", "mssql"
	DSN  string `yaml:"dsn"`
}

// MetricsConfig configures the optional metrics backend.
type MetricsConfig struct {
	Backend      string `yaml:"backend"` // "datadog" or empty
	JobName      string `yaml:"job_name"`
	Tags         string `yaml:"tags"` // comma-separated, e.g. "env:prod"
	FlushSeconds int    `yaml:"flush_seconds"`
}

// DefaultConfig returns sane defaults for a local run.
func DefaultConfig() *Config {
	return &Config{
		Listen: ":8080",
		Query:  QueryConfig{TimeoutSeconds: 60},
	}
}

// Load reads a YAML config file, merges it over defaults, and applies
// environment overrides. An empty path returns defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if key := os.Getenv(EnvAPIKey); key != "" {
		cfg.Agent.APIKey = key
	}

	return cfg, cfg.Validate()
}

// Validate checks cross-field consistency. Backend-specific DSN
// validation is left to the backends.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	switch c.Store.Kind {
	case "", "sqlite", "postgres", "mssql":
	default:
		return fmt.Errorf("unsupported store.kind %q (use sqlite, postgres or mssql)", c.Store.Kind)
	}
	if c.Store.Kind != "" && c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required when store.kind is set")
	}
	switch c.Metrics.Backend {
	case "", "datadog":
	default:
		return fmt.Errorf("unsupported metrics.backend %q (use datadog or leave empty)", c.Metrics.Backend)
	}
	if c.Query.TimeoutSeconds < 0 {
		return fmt.Errorf("query.timeout_seconds must be >= 0")
	}
	return nil
}

// ArchiveOptions maps the config onto loader options.
func (c *Config) ArchiveOptions() archive.Options {
	return archive.Options{
		HeaderPattern:  c.Archive.HeaderPattern,
		ItemsPattern:   c.Archive.ItemsPattern,
		MaxMemberBytes: int64(c.Archive.MaxMemberMB) * 1024 * 1024,
	}
}

// QueryOptions maps the config onto engine options. The caller attaches
// its own logger.
func (c *Config) QueryOptions() query.Options {
	return query.Options{
		MaxSteps:      c.Query.MaxSteps,
		MaxRetries:    c.Query.MaxRetries,
		MaxResultRows: c.Query.MaxResultRows,
		TopN:          c.Query.TopN,
		Timeout:       time.Duration(c.Query.TimeoutSeconds) * time.Second,
	}
}
