// Package config holds the pipeline configuration. A Config is resolved once
// by the CLI (defaults, then the optional config file, then environment
// overrides) and passed explicitly into every stage; no stage reads a global.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Default values for every recognized option.
const (
	DefaultDir            = ".sigwatch"
	DefaultWindowSize     = 10
	DefaultTopSignalTypes = 25
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// FileName is the optional operator configuration file inside the project dir.
const FileName = "config.yaml"

// Config holds every recognized pipeline option.
type Config struct {
	// Dir is the project directory holding the store and all artifacts.
	// Resolved from flag or environment, never from the config file.
	// Default: ".sigwatch"
	Dir string `yaml:"-"`

	// WindowSize is the history window bound W.
	// Non-positive values fall back to the default.
	// Default: 10
	WindowSize int `yaml:"window_size"`

	// TopSignalTypes caps the signal-type label dimension in metric exports;
	// everything beyond the cap is folded into an "other" bucket.
	// Non-positive values fall back to the default.
	// Default: 25
	TopSignalTypes int `yaml:"top_signal_types"`

	// IncludeAnnotations toggles annotation counts in the metrics export.
	// Default: true
	IncludeAnnotations bool `yaml:"include_annotations"`

	// IncludeSummary toggles canonical-summary fields in the metrics export.
	// Default: true
	IncludeSummary bool `yaml:"include_summary"`

	// LogLevel controls the diagnostic stream: debug, info, warn, or error.
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// LogFormat selects the diagnostic handler: text or json.
	// Default: "text"
	LogFormat string `yaml:"log_format"`
}

// DefaultConfig returns the default pipeline configuration
func DefaultConfig() Config {
	return Config{
		Dir:                DefaultDir,
		WindowSize:         DefaultWindowSize,
		TopSignalTypes:     DefaultTopSignalTypes,
		IncludeAnnotations: true,
		IncludeSummary:     true,
		LogLevel:           DefaultLogLevel,
		LogFormat:          DefaultLogFormat,
	}
}

// Load resolves the effective configuration. dirFlag comes from the --dir
// flag and wins over SIGWATCH_DIR; the config file inside the resolved dir
// supplies file options; environment variables override the file. Problems
// never fail the load: each one becomes a warning and the affected option
// keeps its previous value.
//
// Environment variables:
//   - SIGWATCH_DIR: project directory (default: .sigwatch)
//   - SIGWATCH_WINDOW_SIZE: history window bound W (default: 10)
//   - SIGWATCH_TOP_SIGNAL_TYPES: metric signal-type cap (default: 25)
//   - SIGWATCH_INCLUDE_ANNOTATIONS: annotation counts in export (default: true)
//   - SIGWATCH_INCLUDE_SUMMARY: summary fields in export (default: true)
//   - SIGWATCH_LOG_LEVEL: debug, info, warn, or error (default: info)
//   - SIGWATCH_LOG_FORMAT: text or json (default: text)
func Load(dirFlag string) (Config, []string) {
	cfg := DefaultConfig()
	var warnings []string

	if v := os.Getenv("SIGWATCH_DIR"); v != "" {
		cfg.Dir = v
	}
	if dirFlag != "" {
		cfg.Dir = dirFlag
	}

	if warn := cfg.loadFile(filepath.Join(cfg.Dir, FileName)); warn != "" {
		warnings = append(warnings, warn)
	}

	envWarnings := []error{
		parseEnvInt("SIGWATCH_WINDOW_SIZE", &cfg.WindowSize),
		parseEnvInt("SIGWATCH_TOP_SIGNAL_TYPES", &cfg.TopSignalTypes),
		parseEnvBool("SIGWATCH_INCLUDE_ANNOTATIONS", &cfg.IncludeAnnotations),
		parseEnvBool("SIGWATCH_INCLUDE_SUMMARY", &cfg.IncludeSummary),
		parseEnvString("SIGWATCH_LOG_LEVEL", &cfg.LogLevel),
		parseEnvString("SIGWATCH_LOG_FORMAT", &cfg.LogFormat),
	}
	for _, err := range envWarnings {
		if err != nil {
			warnings = append(warnings, err.Error())
		}
	}

	warnings = append(warnings, cfg.Normalize()...)
	return cfg, warnings
}

// loadFile merges the optional config file into c. A missing file is fine;
// an unreadable or unparseable one is reported as a warning and ignored.
func (c *Config) loadFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ""
		}
		return fmt.Sprintf("cannot read %s: %v", path, err)
	}

	// Decode into a copy so a malformed file cannot leave partial state
	merged := *c
	if err := yaml.Unmarshal(data, &merged); err != nil {
		return fmt.Sprintf("cannot parse %s: %v", path, err)
	}
	*c = merged
	return ""
}

// Normalize replaces out-of-range values with defaults and returns one
// warning per fallback applied.
func (c *Config) Normalize() []string {
	var warnings []string

	if c.WindowSize <= 0 {
		warnings = append(warnings, fmt.Sprintf("window_size must be positive (got %d); using default %d", c.WindowSize, DefaultWindowSize))
		c.WindowSize = DefaultWindowSize
	}
	if c.TopSignalTypes <= 0 {
		warnings = append(warnings, fmt.Sprintf("top_signal_types must be positive (got %d); using default %d", c.TopSignalTypes, DefaultTopSignalTypes))
		c.TopSignalTypes = DefaultTopSignalTypes
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		warnings = append(warnings, fmt.Sprintf("unknown log_level %q; using default %q", c.LogLevel, DefaultLogLevel))
		c.LogLevel = DefaultLogLevel
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		warnings = append(warnings, fmt.Sprintf("unknown log_format %q; using default %q", c.LogFormat, DefaultLogFormat))
		c.LogFormat = DefaultLogFormat
	}

	return warnings
}

// Validate checks if the configuration has valid values without mutating it
func (c Config) Validate() error {
	if c.Dir == "" {
		return fmt.Errorf("dir must not be empty")
	}
	if c.WindowSize <= 0 {
		return fmt.Errorf("window_size must be positive (got %d)", c.WindowSize)
	}
	if c.TopSignalTypes <= 0 {
		return fmt.Errorf("top_signal_types must be positive (got %d)", c.TopSignalTypes)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn, or error (got %q)", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json (got %q)", c.LogFormat)
	}
	return nil
}

// String returns a human-readable representation of the config
func (c Config) String() string {
	return fmt.Sprintf(
		"Config{Dir: %s, WindowSize: %d, TopSignalTypes: %d, IncludeAnnotations: %t, IncludeSummary: %t, LogLevel: %s, LogFormat: %s}",
		c.Dir, c.WindowSize, c.TopSignalTypes, c.IncludeAnnotations, c.IncludeSummary, c.LogLevel, c.LogFormat,
	)
}

// DefaultFileContents returns the commented config file written by init.
func DefaultFileContents() string {
	return `# sigwatch configuration
# Every option is optional; environment variables (SIGWATCH_*) override
# values set here.

# History window bound W. Non-positive values fall back to the default.
window_size: 10

# Cap on the signal-type label dimension in metric exports.
top_signal_types: 25

# Toggles for the metrics export.
include_annotations: true
include_summary: true

# Diagnostic stream: level debug|info|warn|error, format text|json.
log_level: info
log_format: text
`
}

// parseEnvInt parses an int from an environment variable
func parseEnvInt(key string, dest *int) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvBool parses a bool from an environment variable
func parseEnvBool(key string, dest *bool) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvString parses a string from an environment variable
func parseEnvString(key string, dest *string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	*dest = value
	return nil
}
