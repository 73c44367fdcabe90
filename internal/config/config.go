// Copyright (c) 2025 Nishisan. All rights reserved.
// Use of this source code is governed by the N-Backup License (Non-Commercial Evaluation)
// that can be found in the LICENSE file.

// Package config loads and validates the single YAML configuration file
// for the asyncbulk process.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete process configuration.
type Config struct {
	Bulk    BulkConfig    `yaml:"bulk"`
	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
	Stats   StatsConfig   `yaml:"stats"`
	Archive ArchiveConfig `yaml:"archive"`
	Mirror  MirrorConfig  `yaml:"mirror"`
}

// BulkConfig controls static-block grouping defaults.
type BulkConfig struct {
	DefaultSize int `yaml:"default_size"`
}

// OutputConfig controls the pipeline's two sinks.
type OutputConfig struct {
	Console bool   `yaml:"console"`
	Dir     string `yaml:"dir"`
}

// LoggingConfig controls the process-wide logger and optional per-session
// trace files.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	SessionDir string `yaml:"session_dir"`
}

// StatsConfig controls periodic writer-counter reporting.
type StatsConfig struct {
	ReportSchedule string `yaml:"report_schedule"`
}

// ArchiveConfig controls background compaction of old bulk log files.
type ArchiveConfig struct {
	Enabled bool          `yaml:"enabled"`
	After   time.Duration `yaml:"after"`
	Dir     string        `yaml:"dir"`
}

// MirrorConfig controls best-effort S3 mirroring of bulk log files.
// AccessKeyID/SecretAccessKey are optional: when blank, internal/mirror
// falls back to the default AWS credential chain (environment, shared
// config file, instance role).
type MirrorConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// Load reads and validates the YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse validates YAML content already read into memory, useful for tests
// and for embedding a default config without a filesystem round trip.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Bulk.DefaultSize <= 0 {
		c.Bulk.DefaultSize = 3
	}

	if c.Output.Dir == "" {
		c.Output.Dir = "./bulk-logs"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.Archive.Enabled {
		if c.Archive.After <= 0 {
			c.Archive.After = 24 * time.Hour
		}
		if c.Archive.Dir == "" {
			c.Archive.Dir = c.Output.Dir + "/archive"
		}
	}

	if c.Mirror.Enabled {
		if c.Mirror.Bucket == "" {
			return fmt.Errorf("mirror.bucket is required when mirror.enabled is true")
		}
		if c.Mirror.Region == "" {
			c.Mirror.Region = "us-east-1"
		}
	}

	return nil
}
