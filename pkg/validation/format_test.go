package validation

import (
	"strings"
	"testing"
)

func TestValidateOutputFormat(t *testing.T) {
	tests := []struct {
		name      string
		format    string
		expectErr bool
	}{
		{name: "pretty", format: "pretty"},
		{name: "csv", format: "csv"},
		{name: "empty", format: "", expectErr: true},
		{name: "uppercase", format: "CSV", expectErr: true},
		{name: "padded", format: " pretty ", expectErr: true},
		{name: "report format is not a CLI format", format: "markdown", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format)
			if tt.expectErr && err == nil {
				t.Errorf("ValidateOutputFormat(%q) expected error but got none", tt.format)
			}
			if !tt.expectErr && err != nil {
				t.Errorf("ValidateOutputFormat(%q) unexpected error = %v", tt.format, err)
			}
		})
	}
}

func TestValidateOutputFormatErrorNamesInput(t *testing.T) {
	err := ValidateOutputFormat("xlsx")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), `"xlsx"`) {
		t.Errorf("error %q does not name the rejected format", err)
	}
}

func TestReportFormat(t *testing.T) {
	tests := []struct {
		input     string
		expected  string
		expectErr bool
	}{
		{input: "", expected: "json"},
		{input: "json", expected: "json"},
		{input: "JSON", expected: "json"},
		{input: "markdown", expected: "markdown"},
		{input: "md", expected: "markdown"},
		{input: " Md ", expected: "markdown"},
		{input: "yaml", expected: "yaml"},
		{input: "yml", expected: "yaml"},
		{input: "pptx", expectErr: true},
		{input: "csv", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ReportFormat(tt.input)
			if tt.expectErr {
				if err == nil {
					t.Errorf("ReportFormat(%q) expected error but got %q", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReportFormat(%q) unexpected error = %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("ReportFormat(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}
