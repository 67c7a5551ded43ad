// Package config provides configuration management for recset with
// support for multiple configuration sources.
//
// Configuration sources (in precedence order, highest to lowest):
//  1. Command-line flags
//  2. Environment variables
//  3. Configuration file
//  4. Built-in defaults
//
// The bearer token is deliberately excluded from the file format: it is
// sourced from the RECSET_TOKEN environment variable or the --token
// flag, and never persisted.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from defaults, an optional YAML file, and
// environment variables. If configPath is provided, it loads from that
// specific file. Otherwise it searches standard locations:
//   - .recset.yaml (current directory)
//   - .recset.yml (current directory)
//   - ~/.recset/config.yaml
//
// A missing file in standard locations is fine; an explicit path that
// cannot be read is an error.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if err := loadFile(configPath, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		defaultPaths := []string{
			".recset.yaml",
			".recset.yml",
			filepath.Join(os.Getenv("HOME"), ".recset", "config.yaml"),
		}

		for _, path := range defaultPaths {
			if _, err := os.Stat(path); err == nil {
				if err := loadFile(path, cfg); err != nil {
					return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
				}
				break
			}
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides on top of
// file and default values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RECSET_SEARCH_URL"); v != "" {
		cfg.Service.SearchURL = v
	}
	if v := os.Getenv("RECSET_BATCH_URL"); v != "" {
		cfg.Service.BatchURL = v
	}
	if v := os.Getenv("RECSET_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("RECSET_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}
