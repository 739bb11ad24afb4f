package testutil

import (
	"testing"

	"github.com/iwvelando/arr-forecast/internal/forecast"
	"github.com/iwvelando/arr-forecast/pkg/datetime"
)

func TestFindRow(t *testing.T) {
	rows := []forecast.Row{
		{Month: datetime.MustParseMonth("2024-01"), ARR: 100},
		{Month: datetime.MustParseMonth("2024-02"), ARR: 200},
		{Month: datetime.MustParseMonth("2025-01"), ARR: 300},
	}

	tests := []struct {
		name        string
		month       string
		expectFound bool
		expectedARR float64
	}{
		{name: "First row", month: "2024-01", expectFound: true, expectedARR: 100},
		{name: "Later year", month: "2025-01", expectFound: true, expectedARR: 300},
		{name: "Missing month", month: "2024-03", expectFound: false},
		{name: "Empty month", month: "", expectFound: false},
		{name: "First-of-month date is not a month label", month: "2024-01-01", expectFound: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FindRow(rows, tt.month)

			if !tt.expectFound {
				if result != nil {
					t.Errorf("FindRow() expected nil for %q but got %+v", tt.month, result)
				}
				return
			}
			if result == nil {
				t.Fatalf("FindRow() expected to find %q but got nil", tt.month)
			}
			if result.ARR != tt.expectedARR {
				t.Errorf("FindRow() returned ARR %v, expected %v", result.ARR, tt.expectedARR)
			}
		})
	}
}

func TestFindRowNilRows(t *testing.T) {
	if result := FindRow(nil, "2024-01"); result != nil {
		t.Errorf("FindRow() with nil rows should return nil, got %v", result)
	}
}

func TestFindRowReturnsPointer(t *testing.T) {
	rows := []forecast.Row{{Month: datetime.MustParseMonth("2024-01"), ARR: 100}}

	found := FindRow(rows, "2024-01")
	if found == nil {
		t.Fatalf("FindRow() returned nil")
	}
	if &rows[0] != found {
		t.Errorf("FindRow() should return pointer to original element")
	}
}
