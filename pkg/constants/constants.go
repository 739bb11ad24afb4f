// Package constants provides shared constants for the arr-forecast application.
package constants

// DateTimeLayout is the month format used in config files and for the
// pretty output.
const DateTimeLayout = "2006-01"

// MonthStartLayout renders a month as its first day; used for CSV and JSON
// output.
const MonthStartLayout = "2006-01-02"

// TTMWindow is the window label of trailing-twelve-month observations.
const TTMWindow = "TTM"

// Recognized metric names
const (
	MetricMQLToNBM    = "conversion_MQL_to_NBM"
	MetricNBMToDeal   = "conversion_NBM_to_Deal"
	MetricDealToWon   = "conversion_Deal_to_Won"
	MetricWinRate     = "win_rate"
	MetricNBMShowRate = "NBM_show_rate"
	MetricACV         = "ACV"
)

// DefaultLagMatrix puts all ARR in the booking month.
const DefaultLagMatrix = "1.0"

// Tabular column names
const (
	ColumnMetricName = "metric_name"
	ColumnWindow     = "window"
	ColumnValue      = "value"
	ColumnMonth      = "month"
	ColumnNBM        = "NBM"
	ColumnARR        = "ARR"
)

// Output format constants
const (
	// OutputFormatPretty is the human-readable output format
	OutputFormatPretty = "pretty"

	// OutputFormatCSV is the CSV output format
	OutputFormatCSV = "csv"
)

// Configuration file constants
const (
	// DefaultConfigFile is the default configuration file name
	DefaultConfigFile = "config.yaml"

	// DefaultServerConfigFile is the default server configuration file name
	DefaultServerConfigFile = "server-config.yaml"

	// DefaultExportFileName is the attachment name of CSV downloads
	DefaultExportFileName = "forecast.csv"
)

// Server configuration defaults
const (
	// DefaultServerAddress is the default HTTP listen address for the web UI
	DefaultServerAddress = ":8080"

	// DefaultMaxUploadSizeBytes is the default maximum upload size for CSV inputs (1 MB)
	DefaultMaxUploadSizeBytes int64 = 1024 * 1024
)

// Validation constants
const (
	// LagSumTolerance is how far the lag weights may drift from 1 before a
	// warning is raised.
	LagSumTolerance = 0.001

	// DecimalPrecision is the precision for currency rounding (2 decimal places)
	DecimalPrecision = 100

	// CurrencyTolerance is the tolerance for currency comparisons (1 cent)
	CurrencyTolerance = 0.01
)
