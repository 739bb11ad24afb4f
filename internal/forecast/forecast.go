// Package forecast defines the data structures related to an ARR forecast and
// includes the functions that compute it: assumption resolution, the
// conversion chain, and the lag distribution of bookings over months.
package forecast

import (
	"strings"

	"github.com/iwvelando/arr-forecast/pkg/constants"
	"github.com/iwvelando/arr-forecast/pkg/validation"
	"go.uber.org/zap"
)

// Inputs holds everything a forecast run consumes.
type Inputs struct {
	Observations []Observation
	Overrides    Assumptions
	Targets      []Target
	LagWeights   []float64
}

// Forecast holds the result of one run along with the values it was derived
// from.
type Forecast struct {
	Assumptions    Assumptions
	ConversionRate float64
	ACV            float64
	Rows           []Row
}

// Total returns the ARR summed over every month.
func (f *Forecast) Total() float64 {
	total := 0.0
	for _, row := range f.Rows {
		total += row.ARR
	}
	return total
}

// Warnings reports resolved assumptions that are missing or out of range.
// They never change the computed rows.
func (f *Forecast) Warnings() []string {
	warnings := validation.ValidateRates(f.Assumptions, ConversionChain)
	return append(warnings, validation.ValidateACV(f.Assumptions)...)
}

// Run resolves the assumptions, derives the conversion rate and distributes
// the NBM targets. Fatal input errors are returned before any row exists.
func Run(logger *zap.Logger, in Inputs) (*Forecast, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	assumptions, err := Resolve(in.Observations, in.Overrides)
	if err != nil {
		return nil, err
	}
	logger.Debug("resolved assumptions",
		zap.String("op", "forecast.Run"),
		zap.Int("observations", len(in.Observations)),
		zap.Int("overrides", len(in.Overrides)),
		zap.Int("metrics", len(assumptions)),
	)

	if missing := MissingChainMetrics(assumptions); len(missing) > 0 {
		logger.Warn("conversion chain incomplete, forecast degrades to zero",
			zap.String("op", "forecast.Run"),
			zap.String("missing", strings.Join(missing, ",")),
		)
	}

	rate := ConversionRate(assumptions)
	acv := assumptions.Get(constants.MetricACV)
	logger.Debug("computed conversion rate",
		zap.String("op", "forecast.Run"),
		zap.Float64("conversionRate", rate),
		zap.Float64("acv", acv),
	)

	rows, err := Distribute(in.Targets, rate, acv, in.LagWeights)
	if err != nil {
		return nil, err
	}

	result := &Forecast{
		Assumptions:    assumptions,
		ConversionRate: rate,
		ACV:            acv,
		Rows:           rows,
	}
	logger.Info("forecast computed",
		zap.String("op", "forecast.Run"),
		zap.Int("targets", len(in.Targets)),
		zap.Int("lagWeights", len(in.LagWeights)),
		zap.Int("months", len(rows)),
		zap.Float64("totalARR", result.Total()),
	)
	return result, nil
}
