// Package tabular reads the CSV inputs of a forecast run: metric
// observations, NBM targets, and the comma-separated lag matrix.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/iwvelando/arr-forecast/internal/forecast"
	"github.com/iwvelando/arr-forecast/pkg/constants"
)

// ErrMissingColumn is returned when a required header is absent.
var ErrMissingColumn = errors.New("missing column")

// ReadObservations reads metric_name, window and value columns.
func ReadObservations(r io.Reader) ([]forecast.Observation, error) {
	var observations []forecast.Observation
	err := readRows(r, []string{constants.ColumnMetricName, constants.ColumnWindow, constants.ColumnValue},
		func(line int, fields []string) error {
			value, err := parseNumber(fields[2])
			if err != nil {
				return fmt.Errorf("line %d: %s: %w", line, constants.ColumnValue, err)
			}
			observations = append(observations, forecast.Observation{
				MetricName: fields[0],
				Window:     fields[1],
				Value:      value,
			})
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to read KPI data: %w", err)
	}
	return observations, nil
}

// ReadTargets reads month and NBM columns, keeping file order and
// duplicate months.
func ReadTargets(r io.Reader) ([]forecast.Target, error) {
	var targets []forecast.Target
	err := readRows(r, []string{constants.ColumnMonth, constants.ColumnNBM},
		func(line int, fields []string) error {
			nbm, err := parseNumber(fields[1])
			if err != nil {
				return fmt.Errorf("line %d: %s: %w", line, constants.ColumnNBM, err)
			}
			targets = append(targets, forecast.Target{Period: fields[0], NBM: nbm})
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("failed to read NBM targets: %w", err)
	}
	return targets, nil
}

// ParseLagWeights parses a comma-separated list of weights. A blank value
// yields the single weight 1.0.
func ParseLagWeights(value string) ([]float64, error) {
	if strings.TrimSpace(value) == "" {
		value = constants.DefaultLagMatrix
	}
	parts := strings.Split(value, ",")
	weights := make([]float64, 0, len(parts))
	for i, part := range parts {
		w, err := parseNumber(part)
		if err != nil {
			return nil, fmt.Errorf("invalid lag weight %d: %w", i+1, err)
		}
		weights = append(weights, w)
	}
	return weights, nil
}

// FormatLagWeights renders weights the way ParseLagWeights reads them.
func FormatLagWeights(weights []float64) string {
	parts := make([]string, len(weights))
	for i, w := range weights {
		parts[i] = strconv.FormatFloat(w, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

// readRows maps the required columns by header name and calls fn with the
// fields in the order of columns. Blank lines are skipped.
func readRows(r io.Reader, columns []string, fn func(line int, fields []string) error) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err == io.EOF {
		return fmt.Errorf("%w: empty input", ErrMissingColumn)
	}
	if err != nil {
		return fmt.Errorf("failed to read CSV headers: %w", err)
	}

	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[normalizeHeader(h)] = i
	}
	positions := make([]int, len(columns))
	for i, column := range columns {
		pos, ok := index[normalizeHeader(column)]
		if !ok {
			return fmt.Errorf("%w: %s", ErrMissingColumn, column)
		}
		positions[i] = pos
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		line, _ := reader.FieldPos(0)
		if isBlank(row) {
			continue
		}
		fields := make([]string, len(columns))
		for i, pos := range positions {
			if pos < len(row) {
				fields[i] = strings.TrimSpace(row[pos])
			}
		}
		if err := fn(line, fields); err != nil {
			return err
		}
	}
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}

func isBlank(row []string) bool {
	for _, field := range row {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

func parseNumber(value string) (float64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, errors.New("empty value")
	}
	return strconv.ParseFloat(trimmed, 64)
}
