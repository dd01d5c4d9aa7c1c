// Package config provides configuration loading and validation for the harvester.
//
// Raw settings are collected into Options (from a YAML file, environment and flags),
// then New validates every field and builds an immutable Config.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variables read by the harvester
const EnvPrefix = "CSW_HARVESTER"

// Option defines the interface for configuration loader options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration file
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Options holds raw, unvalidated settings. Field names match the YAML keys and flag names.
type Options struct {
	// URL is the remote spreadsheet location (mutually exclusive with Spreadsheets)
	URL string `yaml:"url,omitempty"`

	// Spreadsheets is the local spreadsheet path (mutually exclusive with URL)
	Spreadsheets string `yaml:"spreadsheets,omitempty"`

	// Sheet is the designated data sheet; empty selects the first sheet
	Sheet string `yaml:"sheet,omitempty"`

	// Level is the category filter value, or "All"
	Level string `yaml:"level,omitempty"`

	// FilterField is the row field compared against Level
	FilterField string `yaml:"filterField,omitempty"`

	// Separator is placed between the display name and the URL in print mode
	Separator string `yaml:"separator,omitempty"`

	ActiveService    bool `yaml:"activeService,omitempty"`
	NotActiveService bool `yaml:"notActiveService,omitempty"`
	ValidService     bool `yaml:"validService,omitempty"`
	NotValidService  bool `yaml:"notValidService,omitempty"`

	// Write appends to the registry instead of printing
	Write bool `yaml:"write,omitempty"`

	// PrintVertSpace prints a blank line after each entry
	PrintVertSpace bool `yaml:"printVertSpace,omitempty"`

	// XML is the registry file path
	XML string `yaml:"xml,omitempty"`

	// XSD is the registry schema path
	XSD string `yaml:"xsd,omitempty"`

	// ProbeTimeout bounds each service handshake (e.g. "10s")
	ProbeTimeout string `yaml:"probeTimeout,omitempty"`

	// FetchRetries is the number of extra attempts after a transport failure
	FetchRetries int `yaml:"fetchRetries,omitempty"`

	// FetchTimeout bounds the whole acquisition (e.g. "2m"); empty or "0" disables it
	FetchTimeout string `yaml:"fetchTimeout,omitempty"`

	// StatusFile receives a JSON summary of the run
	StatusFile string `yaml:"statusFile,omitempty"`

	// MetricsFile receives the run counters in Prometheus text format
	MetricsFile string `yaml:"metricsFile,omitempty"`
}

// DefaultOptions returns the built-in defaults
func DefaultOptions() Options {
	return Options{
		Level:        LevelAll,
		FilterField:  FilterFieldThemes,
		Separator:    DefaultSeparator,
		ProbeTimeout: DefaultProbeTimeout.String(),
		FetchRetries: DefaultFetchRetries,
	}
}

// LoadFile loads options from a YAML file on top of DefaultOptions
func LoadFile(opts ...Option) (*Options, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	options := DefaultOptions()
	if err := yaml.Unmarshal(data, &options); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	return &options, nil
}

func parseDuration(field, value string, allowZero bool) (time.Duration, error) {
	if value == "" {
		if allowZero {
			return 0, nil
		}
		return 0, &FieldError{Field: field, Value: value, Reason: "duration is required"}
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, &FieldError{Field: field, Value: value, Reason: "must be a valid duration (e.g., '10s', '2m')", Err: err}
	}
	if d < 0 || (d == 0 && !allowZero) {
		return 0, &FieldError{Field: field, Value: value, Reason: "must be positive"}
	}
	return d, nil
}
