package forecast

import (
	"sort"

	"github.com/iwvelando/arr-forecast/pkg/datetime"
	"github.com/iwvelando/arr-forecast/pkg/mathutil"
)

// Target is the NBM count planned for one period.
type Target struct {
	Period string
	NBM    float64
}

// Row is the ARR recognized in one calendar month.
type Row struct {
	Month datetime.Month
	ARR   float64
}

// defaultLag puts the whole booking in its own month.
var defaultLag = []float64{1.0}

// Distribute turns each target into bookings ARR and spreads it over the
// months following its period according to lagWeights. Rows are returned in
// ascending month order with one row per month that received a contribution.
func Distribute(targets []Target, conversionRate, acv float64, lagWeights []float64) ([]Row, error) {
	if len(lagWeights) == 0 {
		lagWeights = defaultLag
	}

	// Every period is parsed before anything is emitted so that a bad label
	// yields no partial output.
	periods := make([]datetime.Month, len(targets))
	for i, target := range targets {
		month, err := datetime.ParseMonth(target.Period)
		if err != nil {
			return nil, &PeriodError{Period: target.Period, Err: err}
		}
		periods[i] = month
	}

	contributions := make(map[datetime.Month][]float64)
	for i, target := range targets {
		wins := target.NBM * conversionRate
		bookingsARR := wins * acv
		for lag, weight := range lagWeights {
			month := periods[i].AddMonths(lag)
			contributions[month] = append(contributions[month], bookingsARR*weight)
		}
	}

	rows := make([]Row, 0, len(contributions))
	for month, values := range contributions {
		rows = append(rows, Row{Month: month, ARR: mathutil.Sum(values)})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Month.Before(rows[j].Month)
	})
	return rows, nil
}
