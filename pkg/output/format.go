// Package output provides utilities for formatting and displaying forecast results.
package output

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/iwvelando/arr-forecast/internal/forecast"
	"github.com/iwvelando/arr-forecast/pkg/constants"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// PrettyFormat outputs a human-readable rather than machine-readable table.
func PrettyFormat(result *forecast.Forecast) {
	_ = WritePretty(os.Stdout, result)
}

// WritePretty writes the pretty table to w.
func WritePretty(w io.Writer, result *forecast.Forecast) error {
	p := message.NewPrinter(language.English)
	if _, err := p.Fprintf(w, "--- ARR forecast (conversion rate %.6f, ACV $%.2f) ---\n",
		result.ConversionRate, result.ACV); err != nil {
		return err
	}
	fmt.Fprintf(w, "Month   | ARR\n")
	fmt.Fprintf(w, "_____   | ___\n")
	for _, row := range result.Rows {
		if _, err := p.Fprintf(w, "%s | $%.2f\n", row.Month, row.ARR); err != nil {
			return err
		}
	}
	_, err := p.Fprintf(w, "Total   | $%.2f\n", result.Total())
	return err
}

// CsvFormat outputs in comma-separated value format.
func CsvFormat(result *forecast.Forecast) {
	_ = WriteCSV(os.Stdout, result.Rows)
}

// CsvString returns the CSV rendering of rows.
func CsvString(rows []forecast.Row) string {
	var buf bytes.Buffer
	_ = WriteCSV(&buf, rows)
	return buf.String()
}

// WriteCSV writes a month,ARR header followed by one line per row. Months
// are written as the date of their first day.
func WriteCSV(w io.Writer, rows []forecast.Row) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{constants.ColumnMonth, constants.ColumnARR}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{row.Month.FirstOfMonth(), strconv.FormatFloat(row.ARR, 'f', -1, 64)}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
