package validation

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/iwvelando/arr-forecast/pkg/constants"
)

// OutputFormat returns the canonical name of an output format. Names are
// case-insensitive and an empty name selects the pretty table.
func OutputFormat(format string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(format))
	switch normalized {
	case "":
		return constants.OutputFormatPretty, nil
	case constants.OutputFormatPretty, constants.OutputFormatCSV:
		return normalized, nil
	}
	return "", fmt.Errorf("expected output format of %s or %s, got %q",
		constants.OutputFormatPretty, constants.OutputFormatCSV, format)
}

// ValidateOutputFile checks the CSV export path. An empty path disables the
// export.
func ValidateOutputFile(path string) error {
	if path == "" {
		return nil
	}
	if strings.TrimSpace(path) != path {
		return fmt.Errorf("output file %q has surrounding whitespace", path)
	}
	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(filepath.Separator)) {
		return fmt.Errorf("output file %q is a directory", path)
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".csv" {
		return fmt.Errorf("output file %q must have a .csv extension", path)
	}
	return nil
}
