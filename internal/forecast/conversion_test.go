package forecast

import (
	"testing"

	"github.com/iwvelando/arr-forecast/pkg/constants"
	"github.com/iwvelando/arr-forecast/pkg/mathutil"
)

func fullChain() Assumptions {
	return Assumptions{
		constants.MetricMQLToNBM:    0.1,
		constants.MetricNBMToDeal:   0.2,
		constants.MetricDealToWon:   0.5,
		constants.MetricWinRate:     0.3,
		constants.MetricNBMShowRate: 0.9,
		constants.MetricACV:         1000,
	}
}

func TestConversionRate(t *testing.T) {
	tests := []struct {
		name        string
		assumptions Assumptions
		expected    float64
	}{
		{
			name:        "Full chain",
			assumptions: fullChain(),
			expected:    0.0027,
		},
		{
			name:        "Empty set",
			assumptions: Assumptions{},
			expected:    0,
		},
		{
			name: "Rates above one pass through",
			assumptions: Assumptions{
				constants.MetricMQLToNBM:    2,
				constants.MetricNBMToDeal:   1,
				constants.MetricDealToWon:   1,
				constants.MetricWinRate:     1,
				constants.MetricNBMShowRate: 1.5,
			},
			expected: 3,
		},
		{
			name: "Negative rate propagates",
			assumptions: Assumptions{
				constants.MetricMQLToNBM:    -0.5,
				constants.MetricNBMToDeal:   1,
				constants.MetricDealToWon:   1,
				constants.MetricWinRate:     1,
				constants.MetricNBMShowRate: 1,
			},
			expected: -0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConversionRate(tt.assumptions)
			if !mathutil.WithinTolerance(result, tt.expected, 1e-12) {
				t.Errorf("ConversionRate() = %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestConversionRateDegradesToZero(t *testing.T) {
	for _, missing := range ConversionChain {
		t.Run(missing, func(t *testing.T) {
			assumptions := fullChain()
			delete(assumptions, missing)

			if rate := ConversionRate(assumptions); rate != 0 {
				t.Errorf("ConversionRate() without %s = %v, expected 0", missing, rate)
			}

			rows, err := Distribute([]Target{{Period: "2024-01", NBM: 100}, {Period: "2024-06", NBM: 50}},
				ConversionRate(assumptions), assumptions.Get(constants.MetricACV), []float64{0.25, 0.75})
			if err != nil {
				t.Fatalf("Distribute() error = %v", err)
			}
			for _, row := range rows {
				if row.ARR != 0 {
					t.Errorf("month %s ARR = %v, expected 0", row.Month, row.ARR)
				}
			}

			got := MissingChainMetrics(assumptions)
			if len(got) != 1 || got[0] != missing {
				t.Errorf("MissingChainMetrics() = %v, expected [%s]", got, missing)
			}
		})
	}
}

func TestConversionRateIgnoresACV(t *testing.T) {
	withACV := fullChain()
	withoutACV := fullChain()
	delete(withoutACV, constants.MetricACV)

	if ConversionRate(withACV) != ConversionRate(withoutACV) {
		t.Errorf("ACV must not be part of the conversion chain")
	}
}
