package server

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/iwvelando/arr-forecast/internal/config"
	"github.com/iwvelando/arr-forecast/pkg/constants"
	"gopkg.in/yaml.v3"
)

// maxUploadSizeCeiling bounds maxUploadSize. Uploads and JSON bodies are
// buffered in memory.
const maxUploadSizeCeiling int64 = 64 << 20

// uploadSizeUnits lists the accepted maxUploadSize suffixes, longest first.
var uploadSizeUnits = []struct {
	suffix     string
	multiplier int64
}{
	{"KB", 1 << 10},
	{"MB", 1 << 20},
	{"K", 1 << 10},
	{"M", 1 << 20},
	{"B", 1},
}

// Config defines runtime parameters for the HTTP server.
type Config struct {
	Address         string               `yaml:"address"`
	MaxUploadSize   string               `yaml:"maxUploadSize"`
	Logging         config.LoggingConfig `yaml:"logging"`
	uploadSizeBytes int64
}

// envOverrides are applied on top of the YAML file when set.
type envOverrides struct {
	Address       string `env:"ARR_FORECAST_ADDRESS"`
	MaxUploadSize string `env:"ARR_FORECAST_MAX_UPLOAD_SIZE"`
	LogLevel      string `env:"ARR_FORECAST_LOG_LEVEL"`
}

// LoadConfig builds the server configuration from defaults, the YAML file at
// path and ARR_FORECAST_* environment overrides, in that order. A missing
// file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{Address: constants.DefaultServerAddress}

	if err := cfg.readFile(path); err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cfg.Address == "" {
		cfg.Address = constants.DefaultServerAddress
	}
	cfg.uploadSizeBytes = constants.DefaultMaxUploadSizeBytes
	if raw := strings.TrimSpace(cfg.MaxUploadSize); raw != "" {
		size, err := parseUploadSize(raw)
		if err != nil {
			return nil, err
		}
		cfg.uploadSizeBytes = size
	}
	return cfg, nil
}

// readFile overlays the YAML file at path onto c.
func (c *Config) readFile(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("failed to read server config: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse server config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	var overrides envOverrides
	if err := parseEnv(&overrides); err != nil {
		return err
	}

	if v := strings.TrimSpace(overrides.Address); v != "" {
		c.Address = v
	}
	if v := strings.TrimSpace(overrides.MaxUploadSize); v != "" {
		c.MaxUploadSize = v
	}
	if v := strings.TrimSpace(overrides.LogLevel); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// parseEnv loads configuration from environment variables.
func parseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// UploadSizeBytes returns the request body limit in bytes.
func (c *Config) UploadSizeBytes() int64 {
	return c.uploadSizeBytes
}

// parseUploadSize reads a positive byte count with an optional K or M suffix,
// e.g. "512K" or "2MB".
func parseUploadSize(value string) (int64, error) {
	number := strings.ToUpper(strings.TrimSpace(value))
	multiplier := int64(1)
	for _, unit := range uploadSizeUnits {
		if strings.HasSuffix(number, unit.suffix) {
			number = strings.TrimSpace(strings.TrimSuffix(number, unit.suffix))
			multiplier = unit.multiplier
			break
		}
	}

	n, err := strconv.ParseInt(number, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid maxUploadSize %q: expected a positive byte count with an optional K or M suffix", value)
	}
	if n > maxUploadSizeCeiling/multiplier {
		return 0, fmt.Errorf("maxUploadSize %q exceeds %dM", value, maxUploadSizeCeiling>>20)
	}
	return n * multiplier, nil
}
