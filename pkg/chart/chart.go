// Package chart builds the time-series chart payload rendered by the web UI.
package chart

import (
	"github.com/iwvelando/arr-forecast/internal/forecast"
	"github.com/iwvelando/arr-forecast/pkg/mathutil"
)

// Default color palette for chart series.
var defaultColors = []string{"#4F46E5", "#10B981", "#F59E0B"}

// Point is one value on the time axis.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Series is a named line on the chart.
type Series struct {
	Name  string  `json:"name"`
	Data  []Point `json:"data"`
	Color string  `json:"color,omitempty"`
}

// Config describes a chart ready to be drawn.
type Config struct {
	ChartType  string   `json:"chartType"`
	Title      string   `json:"title"`
	XAxis      string   `json:"xAxis"`
	YAxis      string   `json:"yAxis"`
	Series     []Series `json:"series"`
	ShowLegend bool     `json:"showLegend"`
	ShowGrid   bool     `json:"showGrid"`
}

// BuildARRChart produces a line chart of monthly ARR plus its running total.
// It returns nil when there are no rows to plot.
func BuildARRChart(rows []forecast.Row) *Config {
	if len(rows) == 0 {
		return nil
	}

	monthly := make([]Point, 0, len(rows))
	cumulative := make([]Point, 0, len(rows))
	running := 0.0
	for _, row := range rows {
		running += row.ARR
		label := row.Month.FirstOfMonth()
		monthly = append(monthly, Point{Label: label, Value: mathutil.Round(row.ARR)})
		cumulative = append(cumulative, Point{Label: label, Value: mathutil.Round(running)})
	}

	return &Config{
		ChartType:  "line",
		Title:      "ARR Forecast",
		XAxis:      "Month",
		YAxis:      "ARR",
		ShowLegend: true,
		ShowGrid:   true,
		Series: []Series{
			{Name: "ARR", Data: monthly, Color: defaultColors[0]},
			{Name: "Cumulative ARR", Data: cumulative, Color: defaultColors[1]},
		},
	}
}
