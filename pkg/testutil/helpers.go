// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/arr-forecast/internal/forecast"
)

// FindRow finds the row for month (formatted "2006-01") in the rows slice.
// Returns a pointer to the row if found, nil otherwise.
func FindRow(rows []forecast.Row, month string) *forecast.Row {
	for i := range rows {
		if rows[i].Month.String() == month {
			return &rows[i]
		}
	}
	return nil
}
