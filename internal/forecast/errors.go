package forecast

import (
	"errors"
	"fmt"
)

// ErrNoTTM is returned when the metric input carries no TTM window at all.
var ErrNoTTM = errors.New("TTM values required in KPI data")

// PeriodError reports an NBM target whose period label is not a month.
type PeriodError struct {
	Period string
	Err    error
}

func (e *PeriodError) Error() string {
	return fmt.Sprintf("invalid NBM target period %q: %v", e.Period, e.Err)
}

func (e *PeriodError) Unwrap() error {
	return e.Err
}
