package forecast

import (
	"github.com/iwvelando/arr-forecast/pkg/constants"
)

// ConversionChain is the ordered list of funnel rates multiplied into the
// end-to-end conversion rate.
var ConversionChain = []string{
	constants.MetricMQLToNBM,
	constants.MetricNBMToDeal,
	constants.MetricDealToWon,
	constants.MetricWinRate,
	constants.MetricNBMShowRate,
}

// ConversionRate multiplies the conversion chain. A metric missing from the
// set counts as 0, so the rate is 0 rather than an error.
func ConversionRate(assumptions Assumptions) float64 {
	rate := 1.0
	for _, name := range ConversionChain {
		rate *= assumptions.Get(name)
	}
	return rate
}

// MissingChainMetrics returns the chain metrics absent from the set.
func MissingChainMetrics(assumptions Assumptions) []string {
	var missing []string
	for _, name := range ConversionChain {
		if _, ok := assumptions[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}
