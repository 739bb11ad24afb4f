// Package config defines the data structures related to configuration and
// includes functions for loading and checking the run configuration.
package config

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"

	"github.com/iwvelando/arr-forecast/internal/forecast"
	"github.com/iwvelando/arr-forecast/pkg/tabular"
	"github.com/iwvelando/arr-forecast/pkg/validation"
	"github.com/spf13/viper"
)

// Configuration holds all configuration for one arr-forecast run.
type Configuration struct {
	Inputs      InputsConfig  `yaml:"inputs,omitempty"`
	Metrics     []Metric      `yaml:"metrics,omitempty"`
	Targets     []Target      `yaml:"targets,omitempty"`
	Assumptions []Assumption  `yaml:"assumptions,omitempty"`
	LagMatrix   string        `yaml:"lagMatrix,omitempty"`
	Logging     LoggingConfig `yaml:"logging,omitempty"`
	Output      OutputConfig  `yaml:"output,omitempty"`
	baseDir     string
}

// InputsConfig points at the CSV inputs. Relative paths resolve against the
// directory of the configuration file.
type InputsConfig struct {
	KPIFile string `yaml:"kpiFile,omitempty"`
	NBMFile string `yaml:"nbmFile,omitempty"`
}

// Metric is an inline metric observation; these are appended to the rows of
// Inputs.KPIFile.
type Metric struct {
	MetricName string  `yaml:"metric_name" mapstructure:"metric_name"`
	Window     string  `yaml:"window"`
	Value      float64 `yaml:"value"`
}

// Target is an inline NBM target; these are appended to the rows of
// Inputs.NBMFile.
type Target struct {
	Month string  `yaml:"month"`
	NBM   float64 `yaml:"NBM" mapstructure:"nbm"`
}

// Assumption overrides the TTM value of one metric.
type Assumption struct {
	Name  string  `yaml:"name"`
	Value float64 `yaml:"value"`
}

// LoggingConfig holds logging configuration options
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, csv
	File   string `yaml:"file,omitempty"`   // optional CSV export path
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yml")
	v.SetEnvPrefix("ARR_FORECAST")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	configuration, err := decode(v)
	if err != nil {
		return nil, err
	}
	configuration.baseDir = filepath.Dir(configPath)
	return configuration, nil
}

// LoadConfigurationFromReader loads a YAML-formatted configuration from r.
// File inputs resolve against the working directory.
func LoadConfigurationFromReader(r io.Reader) (*Configuration, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}

	v := viper.New()
	v.SetConfigType("yml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("error reading config data, %s", err)
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Configuration, error) {
	var configuration Configuration
	if err := v.Unmarshal(&configuration); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}
	return &configuration, nil
}

// ResolvePath returns path relative to the configuration file's directory.
func (c *Configuration) ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) || c.baseDir == "" {
		return path
	}
	return filepath.Join(c.baseDir, path)
}

// LagWeights parses the configured lag matrix; an unset matrix yields [1.0].
func (c *Configuration) LagWeights() ([]float64, error) {
	weights, err := tabular.ParseLagWeights(c.LagMatrix)
	if err != nil {
		return nil, fmt.Errorf("invalid lagMatrix %q: %w", c.LagMatrix, err)
	}
	return weights, nil
}

// Overrides returns the configured assumption overrides keyed by metric
// name. A name listed twice keeps its last value.
func (c *Configuration) Overrides() map[string]float64 {
	overrides := make(map[string]float64, len(c.Assumptions))
	for _, a := range c.Assumptions {
		overrides[a.Name] = a.Value
	}
	return overrides
}

// ResolveOutput applies command line overrides to the output settings and
// returns them normalized. Empty overrides keep the configured values; a
// configured file resolves against the configuration directory while an
// override is used as given.
func (c *Configuration) ResolveOutput(format, file string) (OutputConfig, error) {
	out := c.Output
	if format != "" {
		out.Format = format
	}
	if file != "" {
		out.File = file
	}

	normalized, err := validation.OutputFormat(out.Format)
	if err != nil {
		return OutputConfig{}, err
	}
	out.Format = normalized

	if err := validation.ValidateOutputFile(out.File); err != nil {
		return OutputConfig{}, err
	}
	if file == "" {
		out.File = c.ResolvePath(out.File)
	}
	return out, nil
}

// ValidateConfiguration performs general validation of the configuration
// and returns warnings. Warnings never change the forecast.
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if c.Inputs.KPIFile == "" && len(c.Metrics) == 0 {
		warnings = append(warnings, "No KPI input configured - the forecast needs TTM metric values")
	}
	if c.Inputs.NBMFile == "" && len(c.Targets) == 0 {
		warnings = append(warnings, "No NBM targets configured - the forecast will be empty")
	}

	recognized := make(map[string]struct{}, len(forecast.RecognizedMetrics))
	for _, name := range forecast.RecognizedMetrics {
		recognized[name] = struct{}{}
	}
	for _, a := range c.Assumptions {
		if _, ok := recognized[a.Name]; !ok {
			warnings = append(warnings, fmt.Sprintf("Assumption '%s' is not used by the forecast", a.Name))
		}
	}

	if weights, err := c.LagWeights(); err == nil {
		warnings = append(warnings, validation.ValidateLagWeights(weights)...)
	}

	months := make([]string, 0, len(c.Targets))
	for _, target := range c.Targets {
		months = append(months, target.Month)
	}
	warnings = append(warnings, validation.ValidateTargetMonths(months)...)

	return warnings
}
