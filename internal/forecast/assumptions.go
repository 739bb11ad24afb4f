package forecast

import (
	"github.com/iwvelando/arr-forecast/pkg/constants"
)

// Observation is one row of metric input.
type Observation struct {
	MetricName string
	Window     string
	Value      float64
}

// Assumptions maps a metric name to its effective value.
type Assumptions map[string]float64

// RecognizedMetrics lists the metrics a caller may override, in form order.
var RecognizedMetrics = []string{
	constants.MetricMQLToNBM,
	constants.MetricNBMToDeal,
	constants.MetricDealToWon,
	constants.MetricWinRate,
	constants.MetricNBMShowRate,
	constants.MetricACV,
}

// Get returns the value for name, or 0 when the set has no such metric.
func (a Assumptions) Get(name string) float64 {
	return a[name]
}

// Clone returns an independent copy.
func (a Assumptions) Clone() Assumptions {
	out := make(Assumptions, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// TTMValues pivots observations so the trailing-twelve-month value of each
// metric is available by name. Later rows for the same metric win. The
// second return value is false when no TTM observation exists.
func TTMValues(observations []Observation) (Assumptions, bool) {
	ttm := make(Assumptions)
	found := false
	for _, obs := range observations {
		if obs.Window != constants.TTMWindow {
			continue
		}
		ttm[obs.MetricName] = obs.Value
		found = true
	}
	return ttm, found
}

// Resolve merges TTM observations with overrides. Any key present in
// overrides takes precedence over the TTM value, whatever its value.
func Resolve(observations []Observation, overrides Assumptions) (Assumptions, error) {
	ttm, ok := TTMValues(observations)
	if !ok {
		return nil, ErrNoTTM
	}

	effective := ttm.Clone()
	for name, value := range overrides {
		effective[name] = value
	}
	return effective, nil
}

// DefaultOverrides returns one entry per recognized metric: its TTM value
// when observed, otherwise 0. This is the fully populated override set a
// caller starts from before applying user edits.
func DefaultOverrides(observations []Observation) Assumptions {
	ttm, _ := TTMValues(observations)
	defaults := make(Assumptions, len(RecognizedMetrics))
	for _, name := range RecognizedMetrics {
		defaults[name] = ttm.Get(name)
	}
	return defaults
}
