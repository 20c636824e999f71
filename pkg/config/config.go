// Package config holds the application configuration, loaded from YAML
// with sensible defaults for anything left out.
package config

import "time"

// Config represents the application configuration
type Config struct {
	Catalog  CatalogConfig  `yaml:"catalog"`
	Scan     ScanConfig     `yaml:"scan"`
	Sync     SyncConfig     `yaml:"sync"`
	Progress ProgressConfig `yaml:"progress"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// CatalogConfig holds record store settings
type CatalogConfig struct {
	// Path to the bolt database file; empty selects the default
	// location under the user config directory
	Path string `yaml:"path"`
	// ChunkSize is the hashing read size in bytes
	ChunkSize int `yaml:"chunk_size"`
}

// ScanConfig holds indexing settings
type ScanConfig struct {
	// Extensions is the allow-list of file extensions to index
	Extensions []string `yaml:"extensions"`
	// Workers bounds parallel hashing during a tree scan
	Workers int `yaml:"workers"`
}

// SyncConfig holds resolution settings
type SyncConfig struct {
	Strategy string `yaml:"strategy"`
	// BandwidthLimit caps copy throughput in bytes per second; 0 = unlimited
	BandwidthLimit int64 `yaml:"bandwidth_limit"`
	DryRun         bool  `yaml:"dry_run"`
}

// ProgressConfig holds progress emission settings
type ProgressConfig struct {
	// MinIntervalMs and MinItems throttle snapshot emission: a snapshot
	// goes out when either threshold is crossed
	MinIntervalMs int `yaml:"min_interval_ms"`
	MinItems      int `yaml:"min_items"`
}

// Interval returns the emission interval as a duration
func (p ProgressConfig) Interval() time.Duration {
	return time.Duration(p.MinIntervalMs) * time.Millisecond
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format   string `yaml:"format"`   // "human" or "json"
	Progress bool   `yaml:"progress"` // Show progress bars
	Quiet    bool   `yaml:"quiet"`    // Suppress non-error output
}

// LoggingConfig holds logging-related settings
type LoggingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Format  string `yaml:"format"` // "json" or "text"
	Level   string `yaml:"level"`  // "debug", "info", "warn", "error"
	File    string `yaml:"file"`   // Log file path (empty = stderr)
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Catalog: CatalogConfig{
			Path:      "",
			ChunkSize: 8192,
		},
		Scan: ScanConfig{
			Extensions: []string{".pdf", ".epub", ".mobi", ".djvu", ".txt", ".docx", ".doc"},
			Workers:    4,
		},
		Sync: SyncConfig{
			Strategy:       "keep_both",
			BandwidthLimit: 0,
			DryRun:         true,
		},
		Progress: ProgressConfig{
			MinIntervalMs: 1000,
			MinItems:      10,
		},
		Output: OutputConfig{
			Format:   "human",
			Progress: true,
			Quiet:    false,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Format:  "json",
			Level:   "info",
			File:    "",
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Catalog.ChunkSize < 1024 {
		return &ValidationError{
			Field:   "catalog.chunk_size",
			Message: "must be at least 1024 bytes",
		}
	}

	if c.Scan.Workers < 1 {
		return &ValidationError{
			Field:   "scan.workers",
			Message: "must be at least 1",
		}
	}

	validStrategies := map[string]bool{"keep_both": true, "keep_newest": true, "keep_largest": true, "explicit": true}
	if !validStrategies[c.Sync.Strategy] {
		return &ValidationError{
			Field:   "sync.strategy",
			Message: "must be 'keep_both', 'keep_newest', 'keep_largest', or 'explicit'",
		}
	}

	if c.Sync.BandwidthLimit < 0 {
		return &ValidationError{
			Field:   "sync.bandwidth_limit",
			Message: "must not be negative",
		}
	}

	if c.Progress.MinIntervalMs < 0 || c.Progress.MinItems < 1 {
		return &ValidationError{
			Field:   "progress",
			Message: "min_interval_ms must not be negative and min_items must be at least 1",
		}
	}

	validFormats := map[string]bool{"human": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &ValidationError{
			Field:   "output.format",
			Message: "must be 'human' or 'json'",
		}
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return &ValidationError{
			Field:   "logging.format",
			Message: "must be 'json' or 'text'",
		}
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return &ValidationError{
			Field:   "logging.level",
			Message: "must be 'debug', 'info', 'warn', or 'error'",
		}
	}

	return nil
}
