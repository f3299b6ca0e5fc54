// Package validation checks user-supplied format names.
package validation

import (
	"fmt"
	"strings"

	"github.com/iwvelando/fpna/pkg/constants"
)

// reportFormats maps accepted board pack format names to their canonical form.
var reportFormats = map[string]string{
	"":                             constants.ReportFormatJSON,
	constants.ReportFormatJSON:     constants.ReportFormatJSON,
	constants.ReportFormatMarkdown: constants.ReportFormatMarkdown,
	"md":                           constants.ReportFormatMarkdown,
	constants.ReportFormatYAML:     constants.ReportFormatYAML,
	"yml":                          constants.ReportFormatYAML,
}

// ValidateOutputFormat checks the CLI output format. Names are case sensitive.
func ValidateOutputFormat(format string) error {
	switch format {
	case constants.OutputFormatPretty, constants.OutputFormatCSV:
		return nil
	}
	return fmt.Errorf("expected output format of %s or %s, got %q",
		constants.OutputFormatPretty, constants.OutputFormatCSV, format)
}

// ReportFormat resolves a board pack format name, ignoring case and
// surrounding spaces. An empty name selects JSON.
func ReportFormat(format string) (string, error) {
	canonical, ok := reportFormats[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return "", fmt.Errorf("unsupported format: %s", format)
	}
	return canonical, nil
}
