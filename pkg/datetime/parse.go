// Package datetime provides the calendar-month type used to bucket forecast
// values and the parsing of month labels.
package datetime

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/arr-forecast/pkg/constants"
)

const (
	// DateTimeLayout is the format expected in config files and is also the output
	// date format.
	DateTimeLayout = constants.DateTimeLayout
)

// ErrInvalidMonth is returned when a label cannot be read as a calendar month.
var ErrInvalidMonth = errors.New("invalid month")

// monthLayouts lists every accepted month representation. Each one carries a
// four-digit year so none of them is ambiguous.
var monthLayouts = []string{
	"2006-01",
	"2006-1",
	"2006/01",
	"2006/1",
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"01/2006",
	"1/2006",
	"Jan 2006",
	"January 2006",
	"Jan-2006",
	"200601",
}

// Month is a calendar month with no day or time component.
type Month struct {
	Year  int
	Month time.Month
}

// NewMonth returns the normalized month, e.g. month 13 of 2024 is 2025-01.
func NewMonth(year int, month time.Month) Month {
	return monthFromIndex(year*12 + int(month) - 1)
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return NewMonth(t.Year(), t.Month())
}

// ParseMonth reads a month label in any of the accepted layouts.
func ParseMonth(value string) (Month, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return Month{}, fmt.Errorf("%w: empty label", ErrInvalidMonth)
	}
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return MonthOf(t), nil
		}
	}
	return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, value)
}

// MustParseMonth parses a month label and panics on error.
// This is intended for use in tests where the label is known to be valid.
func MustParseMonth(value string) Month {
	m, err := ParseMonth(value)
	if err != nil {
		panic(err)
	}
	return m
}

// AddMonths returns the month offset by n months; n may be negative.
func (m Month) AddMonths(n int) Month {
	return monthFromIndex(m.index() + n)
}

// Compare returns -1, 0 or +1 as m is before, equal to or after other.
func (m Month) Compare(other Month) int {
	a, b := m.index(), other.index()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Before reports whether m is strictly before other.
func (m Month) Before(other Month) bool {
	return m.Compare(other) < 0
}

// Time returns midnight UTC on the first day of the month.
func (m Month) Time() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// String formats the month with DateTimeLayout.
func (m Month) String() string {
	return m.Time().Format(DateTimeLayout)
}

// FirstOfMonth formats the month as the date of its first day.
func (m Month) FirstOfMonth() string {
	return m.Time().Format(constants.MonthStartLayout)
}

func (m Month) index() int {
	return m.Year*12 + int(m.Month) - 1
}

func monthFromIndex(idx int) Month {
	year := idx / 12
	rem := idx % 12
	if rem < 0 {
		rem += 12
		year--
	}
	return Month{Year: year, Month: time.Month(rem + 1)}
}
