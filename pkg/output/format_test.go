package output

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/iwvelando/arr-forecast/internal/forecast"
	"github.com/iwvelando/arr-forecast/pkg/datetime"
)

func sampleForecast() *forecast.Forecast {
	return &forecast.Forecast{
		ConversionRate: 0.0027,
		ACV:            1000,
		Rows: []forecast.Row{
			{Month: datetime.MustParseMonth("2024-01"), ARR: 1350},
			{Month: datetime.MustParseMonth("2024-02"), ARR: 135.5},
		},
	}
}

func TestPrettyFormat(t *testing.T) {
	// Capture stdout
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	PrettyFormat(sampleForecast())

	_ = w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	output := buf.String()

	if !strings.Contains(output, "--- ARR forecast (conversion rate 0.002700, ACV $1,000.00) ---") {
		t.Errorf("PrettyFormat missing header, got %q", output)
	}
	if !strings.Contains(output, "Month   | ARR") {
		t.Errorf("PrettyFormat missing table header")
	}
	if !strings.Contains(output, "2024-01 | $1,350.00") {
		t.Errorf("PrettyFormat missing formatted row, got %q", output)
	}
	if !strings.Contains(output, "2024-02 | $135.50") {
		t.Errorf("PrettyFormat missing second row, got %q", output)
	}
	if !strings.Contains(output, "Total   | $1,485.50") {
		t.Errorf("PrettyFormat missing total, got %q", output)
	}
}

func TestWritePrettyEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePretty(&buf, &forecast.Forecast{}); err != nil {
		t.Fatalf("WritePretty() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Total   | $0.00") {
		t.Errorf("expected zero total for empty forecast, got %q", buf.String())
	}
}

func TestCsvString(t *testing.T) {
	expected := "month,ARR\n2024-01-01,1350\n2024-02-01,135.5\n"
	if got := CsvString(sampleForecast().Rows); got != expected {
		t.Errorf("CsvString() = %q, expected %q", got, expected)
	}
}

func TestCsvStringHeaderOnly(t *testing.T) {
	if got := CsvString(nil); got != "month,ARR\n" {
		t.Errorf("CsvString(nil) = %q, expected header only", got)
	}
}

func TestCsvFormatIsParseable(t *testing.T) {
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	CsvFormat(sampleForecast())

	_ = w.Close()
	os.Stdout = oldStdout

	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		t.Fatalf("CSV output not parseable: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(records))
	}
	if records[0][0] != "month" || records[0][1] != "ARR" {
		t.Errorf("unexpected header %v", records[0])
	}
}
