// Package adapters converts between the run configuration and the inputs of
// the forecast engine.
package adapters

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/iwvelando/arr-forecast/internal/config"
	"github.com/iwvelando/arr-forecast/internal/forecast"
	"github.com/iwvelando/arr-forecast/pkg/tabular"
	"go.uber.org/zap"
)

// MetricsToObservations converts inline config metrics.
func MetricsToObservations(metrics []config.Metric) []forecast.Observation {
	if metrics == nil {
		return nil
	}

	observations := make([]forecast.Observation, 0, len(metrics))
	for _, m := range metrics {
		observations = append(observations, forecast.Observation{
			MetricName: m.MetricName,
			Window:     m.Window,
			Value:      m.Value,
		})
	}
	return observations
}

// TargetsToForecastTargets converts inline config targets.
func TargetsToForecastTargets(targets []config.Target) []forecast.Target {
	if targets == nil {
		return nil
	}

	out := make([]forecast.Target, 0, len(targets))
	for _, t := range targets {
		out = append(out, forecast.Target{Period: t.Month, NBM: t.NBM})
	}
	return out
}

// InputsFromConfig reads the configured CSV files, appends the inline rows
// and builds the override set: TTM defaults for every recognized metric,
// replaced by the configured assumptions.
func InputsFromConfig(logger *zap.Logger, conf *config.Configuration) (forecast.Inputs, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var in forecast.Inputs

	if conf.Inputs.KPIFile != "" {
		path := conf.ResolvePath(conf.Inputs.KPIFile)
		observations, err := readFile(path, tabular.ReadObservations)
		if err != nil {
			return in, err
		}
		logger.Debug("loaded KPI file",
			zap.String("op", "adapters.InputsFromConfig"),
			zap.String("path", path),
			zap.Int("rows", len(observations)),
		)
		in.Observations = observations
	}
	in.Observations = append(in.Observations, MetricsToObservations(conf.Metrics)...)

	if conf.Inputs.NBMFile != "" {
		path := conf.ResolvePath(conf.Inputs.NBMFile)
		targets, err := readFile(path, tabular.ReadTargets)
		if err != nil {
			return in, err
		}
		logger.Debug("loaded NBM file",
			zap.String("op", "adapters.InputsFromConfig"),
			zap.String("path", path),
			zap.Int("rows", len(targets)),
		)
		in.Targets = targets
	}
	in.Targets = append(in.Targets, TargetsToForecastTargets(conf.Targets)...)

	in.Overrides = forecast.DefaultOverrides(in.Observations)
	for name, value := range conf.Overrides() {
		in.Overrides[name] = value
	}

	weights, err := conf.LagWeights()
	if err != nil {
		return in, err
	}
	in.LagWeights = weights

	return in, nil
}

// ConfigFromInputs builds a self-contained configuration carrying the inputs
// inline, so a run made from uploaded files can be replayed from one YAML
// document.
func ConfigFromInputs(in forecast.Inputs, lagMatrix string) *config.Configuration {
	conf := &config.Configuration{LagMatrix: lagMatrix}

	for _, obs := range in.Observations {
		conf.Metrics = append(conf.Metrics, config.Metric{
			MetricName: obs.MetricName,
			Window:     obs.Window,
			Value:      obs.Value,
		})
	}
	for _, t := range in.Targets {
		conf.Targets = append(conf.Targets, config.Target{Month: t.Period, NBM: t.NBM})
	}

	names := make([]string, 0, len(in.Overrides))
	for name := range in.Overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		conf.Assumptions = append(conf.Assumptions, config.Assumption{Name: name, Value: in.Overrides[name]})
	}

	return conf
}

func readFile[T any](path string, read func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	result, err := read(f)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", path, err)
	}
	return result, nil
}
