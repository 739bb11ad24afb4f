// Package validation provides configuration validation utilities.
package validation

import (
	"fmt"
	"math"
	"sort"

	"github.com/iwvelando/arr-forecast/pkg/constants"
)

// ValidateLagWeights warns about lag weights that do not form a distribution.
// The weights are still used as given.
func ValidateLagWeights(weights []float64) []string {
	var warnings []string

	sum := 0.0
	for i, w := range weights {
		if w < 0 {
			warnings = append(warnings, fmt.Sprintf("Lag weight %d is negative (%g)", i+1, w))
		}
		sum += w
	}

	if len(weights) > 0 && math.Abs(sum-1) > constants.LagSumTolerance {
		warnings = append(warnings, fmt.Sprintf("Lag weights sum to %g rather than 1 - forecast ARR will be scaled accordingly", sum))
	}

	return warnings
}

// ValidateRates warns about conversion rates outside [0, 1]. Missing rates
// are reported too since they zero the whole forecast.
func ValidateRates(values map[string]float64, rateNames []string) []string {
	var warnings []string
	for _, name := range rateNames {
		value, ok := values[name]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("Rate '%s' is not set - conversion rate and ARR will be 0", name))
			continue
		}
		if value < 0 || value > 1 {
			warnings = append(warnings, fmt.Sprintf("Rate '%s' is outside [0, 1] (%g)", name, value))
		}
	}
	return warnings
}

// ValidateACV warns about a missing or negative ACV.
func ValidateACV(values map[string]float64) []string {
	acv, ok := values[constants.MetricACV]
	switch {
	case !ok:
		return []string{fmt.Sprintf("'%s' is not set - ARR will be 0", constants.MetricACV)}
	case acv < 0:
		return []string{fmt.Sprintf("'%s' is negative (%g)", constants.MetricACV, acv)}
	}
	return nil
}

// ValidateTargetMonths warns about months that appear more than once in the
// NBM targets; each occurrence still contributes.
func ValidateTargetMonths(months []string) []string {
	counts := make(map[string]int)
	for _, m := range months {
		counts[m]++
	}

	var duplicates []string
	for m, n := range counts {
		if n > 1 {
			duplicates = append(duplicates, m)
		}
	}
	sort.Strings(duplicates)

	var warnings []string
	for _, m := range duplicates {
		warnings = append(warnings, fmt.Sprintf("NBM target month %s appears %d times - all values contribute", m, counts[m]))
	}
	return warnings
}
