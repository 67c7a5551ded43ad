package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so config files can use values like
// "30s" or "500ms".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}

	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full recset configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Redis   RedisConfig   `yaml:"redis"`
	Log     LogConfig     `yaml:"log"`
}

// ServiceConfig names the remote endpoints. The bearer token is never
// part of the config file: it comes from the --token flag or the
// RECSET_TOKEN environment variable.
type ServiceConfig struct {
	// SearchURL is the search/discovery endpoint.
	SearchURL string `yaml:"search_url"`

	// BatchURL is the batch/detail endpoint.
	BatchURL string `yaml:"batch_url"`
}

// FetchConfig tunes discovery and batch fetching.
type FetchConfig struct {
	MaxSingleLimit int `yaml:"max_single_limit"`
	PageSize       int `yaml:"page_size"`
	SafeTotalCap   int `yaml:"safe_total_cap"`
	MaxPages       int `yaml:"max_pages"`
	BatchSize      int `yaml:"batch_size"`

	DiscoverTimeout Duration `yaml:"discover_timeout"`
	BatchTimeout    Duration `yaml:"batch_timeout"`
	PageDelay       Duration `yaml:"page_delay"`

	MaxAttempts    int      `yaml:"max_attempts"`
	InitialBackoff Duration `yaml:"initial_backoff"`
}

// RedisConfig controls the optional record cache. An empty address
// disables caching.
type RedisConfig struct {
	Addr      string   `yaml:"addr"`
	RecordTTL Duration `yaml:"record_ttl"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Fetch: FetchConfig{
			MaxSingleLimit:  2000,
			PageSize:        1000,
			SafeTotalCap:    20000,
			MaxPages:        100,
			BatchSize:       100,
			DiscoverTimeout: Duration(30 * time.Second),
			BatchTimeout:    Duration(60 * time.Second),
			PageDelay:       Duration(500 * time.Millisecond),
			MaxAttempts:     3,
			InitialBackoff:  Duration(1 * time.Second),
		},
		Redis: RedisConfig{
			RecordTTL: Duration(24 * time.Hour),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Validate checks the configuration for values the fetch engine cannot
// work with.
func (c *Config) Validate() error {
	if c.Service.SearchURL == "" {
		return fmt.Errorf("service.search_url is required")
	}
	if c.Service.BatchURL == "" {
		return fmt.Errorf("service.batch_url is required")
	}
	if c.Fetch.BatchSize <= 0 {
		return fmt.Errorf("fetch.batch_size must be positive (got %d)", c.Fetch.BatchSize)
	}
	if c.Fetch.MaxAttempts < 1 {
		return fmt.Errorf("fetch.max_attempts must be >= 1 (got %d)", c.Fetch.MaxAttempts)
	}
	return nil
}
