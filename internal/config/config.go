// Package config loads the optional pdfmill configuration file and applies
// environment variable overrides. A missing config file is not an error:
// every field has a sensible default.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultFetchTimeout for remote PDF retrieval (single timed GET)
	DefaultFetchTimeout = 30 * time.Second

	// DefaultMaxFetchSize caps the HTTP response body read (50MB)
	DefaultMaxFetchSize = int64(50 * 1024 * 1024)

	// DefaultMaxPDFSize caps the PDF bytes handed to the parser (200MB)
	DefaultMaxPDFSize = int64(200 * 1024 * 1024)

	// DefaultUserAgent identifies pdfmill to remote servers
	DefaultUserAgent = "pdfmill/1.0 (PDF text extraction; MCP tool)"

	// DefaultFetchRateLimit in requests per second across all fetches
	DefaultFetchRateLimit = 4.0
)

// Duration wraps time.Duration so YAML values like "30s" parse naturally
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds the tunable limits for PDF retrieval and parsing
type Config struct {
	FetchTimeout   Duration `yaml:"fetch_timeout"`
	MaxFetchSize   int64    `yaml:"max_fetch_size"`
	MaxPDFSize     int64    `yaml:"max_pdf_size"`
	UserAgent      string   `yaml:"user_agent"`
	FetchRateLimit float64  `yaml:"fetch_rate_limit"`
}

var (
	globalConfig *Config
	configOnce   sync.Once
)

// Default returns a Config populated with the built-in defaults
func Default() *Config {
	return &Config{
		FetchTimeout:   Duration(DefaultFetchTimeout),
		MaxFetchSize:   DefaultMaxFetchSize,
		MaxPDFSize:     DefaultMaxPDFSize,
		UserAgent:      DefaultUserAgent,
		FetchRateLimit: DefaultFetchRateLimit,
	}
}

// Get returns the singleton configuration, loading it on first use
func Get() *Config {
	configOnce.Do(func() {
		globalConfig = Load()
	})
	return globalConfig
}

// Load reads the config file (if present) and applies env overrides.
// Exposed separately from Get for tests and the config subcommand.
func Load() *Config {
	cfg := Default()

	if data, err := os.ReadFile(Path()); err == nil {
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			cfg.merge(&fileCfg)
		}
		// Parse errors fall through to defaults; the config subcommand
		// surfaces them to the user with detail.
	}

	cfg.applyEnvOverrides()
	return cfg
}

// Path returns the config file location (PDFMILL_CONFIG or ~/.pdfmill/config.yaml)
func Path() string {
	if custom := os.Getenv("PDFMILL_CONFIG"); custom != "" {
		return custom
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".pdfmill", "config.yaml")
}

// Validate parses raw config file bytes and reports the first problem found
func Validate(data []byte) (*Config, error) {
	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("YAML parsing failed: %w", err)
	}
	if fileCfg.MaxFetchSize < 0 || fileCfg.MaxPDFSize < 0 {
		return nil, fmt.Errorf("size limits must not be negative")
	}
	if fileCfg.FetchRateLimit < 0 {
		return nil, fmt.Errorf("fetch_rate_limit must not be negative")
	}
	cfg := Default()
	cfg.merge(&fileCfg)
	return cfg, nil
}

// merge copies the set (non-zero) fields of other into c
func (c *Config) merge(other *Config) {
	if other.FetchTimeout > 0 {
		c.FetchTimeout = other.FetchTimeout
	}
	if other.MaxFetchSize > 0 {
		c.MaxFetchSize = other.MaxFetchSize
	}
	if other.MaxPDFSize > 0 {
		c.MaxPDFSize = other.MaxPDFSize
	}
	if other.UserAgent != "" {
		c.UserAgent = other.UserAgent
	}
	if other.FetchRateLimit > 0 {
		c.FetchRateLimit = other.FetchRateLimit
	}
}

// applyEnvOverrides lets environment variables win over file values
func (c *Config) applyEnvOverrides() {
	if raw := os.Getenv("PDFMILL_FETCH_TIMEOUT"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil && parsed > 0 {
			c.FetchTimeout = Duration(parsed)
		}
	}
	if raw := os.Getenv("PDFMILL_MAX_FETCH_SIZE"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 {
			c.MaxFetchSize = parsed
		}
	}
	// PDF_MAX_FILE_SIZE keeps the name used by other PDF tooling
	if raw := os.Getenv("PDF_MAX_FILE_SIZE"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 {
			c.MaxPDFSize = parsed
		}
	}
	if raw := os.Getenv("PDFMILL_USER_AGENT"); raw != "" {
		c.UserAgent = raw
	}
}

// CheckPDFSize validates the PDF byte size against the configured limit
func (c *Config) CheckPDFSize(size int64) error {
	if size > c.MaxPDFSize {
		sizeMB := float64(size) / (1024 * 1024)
		maxMB := float64(c.MaxPDFSize) / (1024 * 1024)
		return fmt.Errorf("PDF size %.1fMB exceeds maximum allowed size of %.1fMB (use PDF_MAX_FILE_SIZE environment variable to adjust limit)", sizeMB, maxMB)
	}
	return nil
}
