// Package config loads dirdiff settings from a YAML or TOML file.
//
// Values set on the command line take precedence over the file; the file
// takes precedence over Default().
package config

import (
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/ivoronin/dirdiff/internal/compare"
	"github.com/ivoronin/dirdiff/internal/types"
)

// Config represents the application configuration
type Config struct {
	Compare CompareConfig `yaml:"compare" toml:"compare"`
	Scan    ScanConfig    `yaml:"scan" toml:"scan"`
	Output  OutputConfig  `yaml:"output" toml:"output"`
	Cache   CacheConfig   `yaml:"cache" toml:"cache"`
}

// CompareConfig holds comparison settings
type CompareConfig struct {
	Mode        string `yaml:"mode" toml:"mode"` // "name", "size" or "content"
	Show        string `yaml:"show" toml:"show"` // "all", "unique" or "dups"
	GroupByPath bool   `yaml:"group_by_path" toml:"group_by_path"`
	SkipEmpty   bool   `yaml:"skip_empty" toml:"skip_empty"`
}

// ScanConfig holds directory listing settings
type ScanConfig struct {
	IncludeDotFiles bool     `yaml:"include_dot_files" toml:"include_dot_files"`
	Exclude         []string `yaml:"exclude" toml:"exclude"`   // Glob patterns matched against base names
	MinSize         string   `yaml:"min_size" toml:"min_size"` // Human-readable size, e.g. "1M"
}

// OutputConfig holds output-related settings
type OutputConfig struct {
	Format   string `yaml:"format" toml:"format"`     // "text" or "json"
	Progress bool   `yaml:"progress" toml:"progress"` // Show progress bars
}

// CacheConfig holds prefix hash cache settings
type CacheConfig struct {
	File string `yaml:"file" toml:"file"` // Cache database path (empty = disabled)
}

// ValidationError reports an invalid configuration value.
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
		Compare: CompareConfig{
			Mode: types.ModeContent.String(),
			Show: compare.ShowAll.String(),
		},
		Scan: ScanConfig{
			MinSize: "0",
		},
		Output: OutputConfig{
			Format:   "text",
			Progress: true,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, err := types.ParseMode(c.Compare.Mode); err != nil {
		return &ValidationError{
			Field:   "compare.mode",
			Message: "must be 'name', 'size' or 'content'",
		}
	}

	if _, err := compare.ParseShow(c.Compare.Show); err != nil {
		return &ValidationError{
			Field:   "compare.show",
			Message: "must be 'all', 'unique' or 'dups'",
		}
	}

	for _, pattern := range c.Scan.Exclude {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return &ValidationError{
				Field:   "scan.exclude",
				Message: "invalid glob pattern " + pattern,
			}
		}
	}

	if _, err := humanize.ParseBytes(c.Scan.MinSize); err != nil {
		return &ValidationError{
			Field:   "scan.min_size",
			Message: "must be a size like 0, 4K or 1MiB",
		}
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Output.Format] {
		return &ValidationError{
			Field:   "output.format",
			Message: "must be 'text' or 'json'",
		}
	}

	return nil
}

// Mode returns the parsed comparison mode. Call Validate first.
func (c *Config) Mode() types.Mode {
	m, _ := types.ParseMode(c.Compare.Mode)
	return m
}

// Show returns the parsed view. Call Validate first.
func (c *Config) Show() compare.Show {
	s, _ := compare.ParseShow(c.Compare.Show)
	return s
}

// MinSize returns the minimum file size in bytes. Call Validate first.
func (c *Config) MinSize() int64 {
	n, _ := humanize.ParseBytes(c.Scan.MinSize)
	return int64(n)
}
