package forecast

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/iwvelando/arr-forecast/pkg/datetime"
	"github.com/iwvelando/arr-forecast/pkg/mathutil"
)

func month(label string) datetime.Month {
	return datetime.MustParseMonth(label)
}

func TestDistribute(t *testing.T) {
	tests := []struct {
		name       string
		targets    []Target
		rate       float64
		acv        float64
		lagWeights []float64
		expected   []Row
	}{
		{
			name:       "Single lag weight keeps ARR in booking month",
			targets:    []Target{{Period: "2024-01", NBM: 100}},
			rate:       0.5,
			acv:        10,
			lagWeights: []float64{1.0},
			expected:   []Row{{Month: month("2024-01"), ARR: 500}},
		},
		{
			name:       "Empty lag weights behave as a single full weight",
			targets:    []Target{{Period: "2024-01", NBM: 100}},
			rate:       0.5,
			acv:        10,
			lagWeights: nil,
			expected:   []Row{{Month: month("2024-01"), ARR: 500}},
		},
		{
			name:       "Lone partial weight is not normalized",
			targets:    []Target{{Period: "2024-01", NBM: 100}},
			rate:       0.5,
			acv:        10,
			lagWeights: []float64{0.5},
			expected:   []Row{{Month: month("2024-01"), ARR: 250}},
		},
		{
			name:       "Spread crosses the year boundary",
			targets:    []Target{{Period: "2024-11", NBM: 10}},
			rate:       1,
			acv:        100,
			lagWeights: []float64{0.25, 0.25, 0.5},
			expected: []Row{
				{Month: month("2024-11"), ARR: 250},
				{Month: month("2024-12"), ARR: 250},
				{Month: month("2025-01"), ARR: 500},
			},
		},
		{
			name: "Overlapping periods are summed",
			targets: []Target{
				{Period: "2024-02", NBM: 10},
				{Period: "2024-03", NBM: 20},
			},
			rate:       1,
			acv:        100,
			lagWeights: []float64{0.5, 0.5},
			expected: []Row{
				{Month: month("2024-02"), ARR: 500},
				{Month: month("2024-03"), ARR: 1500},
				{Month: month("2024-04"), ARR: 1000},
			},
		},
		{
			name: "Duplicate periods both contribute",
			targets: []Target{
				{Period: "2024-05", NBM: 10},
				{Period: "2024-05", NBM: 30},
			},
			rate:       1,
			acv:        1,
			lagWeights: []float64{1},
			expected:   []Row{{Month: month("2024-05"), ARR: 40}},
		},
		{
			name: "Different label formats land on the same month",
			targets: []Target{
				{Period: "2024-05", NBM: 1},
				{Period: "2024-05-01", NBM: 2},
				{Period: "May 2024", NBM: 3},
			},
			rate:       1,
			acv:        1,
			lagWeights: []float64{1},
			expected:   []Row{{Month: month("2024-05"), ARR: 6}},
		},
		{
			name:       "Zero weight still produces a row",
			targets:    []Target{{Period: "2024-01", NBM: 10}},
			rate:       1,
			acv:        1,
			lagWeights: []float64{1, 0},
			expected: []Row{
				{Month: month("2024-01"), ARR: 10},
				{Month: month("2024-02"), ARR: 0},
			},
		},
		{
			name:       "Negative weight passes through",
			targets:    []Target{{Period: "2024-01", NBM: 10}},
			rate:       1,
			acv:        1,
			lagWeights: []float64{1.5, -0.5},
			expected: []Row{
				{Month: month("2024-01"), ARR: 15},
				{Month: month("2024-02"), ARR: -5},
			},
		},
		{
			name:       "Empty targets",
			targets:    nil,
			rate:       1,
			acv:        1,
			lagWeights: []float64{0.5, 0.5},
			expected:   []Row{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := Distribute(tt.targets, tt.rate, tt.acv, tt.lagWeights)
			if err != nil {
				t.Fatalf("Distribute() error = %v", err)
			}
			if diff := cmp.Diff(tt.expected, rows); diff != "" {
				t.Errorf("Distribute() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDistributeInvalidPeriod(t *testing.T) {
	targets := []Target{
		{Period: "2024-01", NBM: 100},
		{Period: "sometime", NBM: 100},
	}

	rows, err := Distribute(targets, 1, 1, []float64{1})
	if err == nil {
		t.Fatalf("Distribute() expected error but got rows %v", rows)
	}
	if rows != nil {
		t.Errorf("Distribute() produced %d rows alongside a fatal error", len(rows))
	}

	var periodErr *PeriodError
	if !errors.As(err, &periodErr) {
		t.Fatalf("Distribute() error = %T, expected *PeriodError", err)
	}
	if periodErr.Period != "sometime" {
		t.Errorf("PeriodError.Period = %q, expected %q", periodErr.Period, "sometime")
	}
	if !errors.Is(err, datetime.ErrInvalidMonth) {
		t.Errorf("expected error to wrap datetime.ErrInvalidMonth")
	}
}

func TestDistributeChronologicalOrder(t *testing.T) {
	targets := []Target{
		{Period: "2025-03", NBM: 5},
		{Period: "2023-12", NBM: 7},
		{Period: "2024-07", NBM: 3},
		{Period: "2024-01", NBM: 9},
	}

	rows, err := Distribute(targets, 0.3, 1200, []float64{0.1, 0.2, 0.3, 0.4})
	if err != nil {
		t.Fatalf("Distribute() error = %v", err)
	}
	for i := 1; i < len(rows); i++ {
		if !rows[i-1].Month.Before(rows[i].Month) {
			t.Errorf("rows out of order at %d: %s then %s", i, rows[i-1].Month, rows[i].Month)
		}
	}
}

func TestDistributeIsOrderIndependentAndIdempotent(t *testing.T) {
	random := rand.New(rand.NewSource(7))
	targets := make([]Target, 0, 60)
	for i := 0; i < 60; i++ {
		targets = append(targets, Target{
			Period: datetime.NewMonth(2024, 1).AddMonths(random.Intn(24)).String(),
			NBM:    random.Float64() * 500,
		})
	}
	lag := []float64{0.1, 0.15, 0.2, 0.25, 0.3}

	first, err := Distribute(targets, 0.0027, 1234.5, lag)
	if err != nil {
		t.Fatalf("Distribute() error = %v", err)
	}
	second, err := Distribute(targets, 0.0027, 1234.5, lag)
	if err != nil {
		t.Fatalf("Distribute() error = %v", err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated runs differ (-first +second):\n%s", diff)
	}

	shuffled := append([]Target(nil), targets...)
	random.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	reordered, err := Distribute(shuffled, 0.0027, 1234.5, lag)
	if err != nil {
		t.Fatalf("Distribute() error = %v", err)
	}
	if diff := cmp.Diff(first, reordered); diff != "" {
		t.Errorf("shuffled input changed output (-ordered +shuffled):\n%s", diff)
	}
}

func TestDistributeConservesTotal(t *testing.T) {
	targets := []Target{{Period: "2024-01", NBM: 100}, {Period: "2024-04", NBM: 40}}
	lag := []float64{0.2, 0.3, 0.5}

	rows, err := Distribute(targets, 0.1, 900, lag)
	if err != nil {
		t.Fatalf("Distribute() error = %v", err)
	}
	total := 0.0
	for _, row := range rows {
		total += row.ARR
	}
	if !mathutil.WithinTolerance(total, 140*0.1*900, 1e-9) {
		t.Errorf("total ARR = %v, expected %v", total, 140*0.1*900)
	}
}

func BenchmarkDistribute(b *testing.B) {
	targets := make([]Target, 0, 300)
	for i := 0; i < 300; i++ {
		targets = append(targets, Target{Period: datetime.NewMonth(2020, 1).AddMonths(i).String(), NBM: float64(100 + i)})
	}
	lag := make([]float64, 24)
	for i := range lag {
		lag[i] = 1.0 / 24
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Distribute(targets, 0.0027, 1000, lag); err != nil {
			b.Fatal(err)
		}
	}
}
