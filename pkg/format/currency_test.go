package format

import "testing"

func TestCurrency(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{0, "$0.00"},
		{12.5, "$12.50"},
		{1234.56, "$1,234.56"},
		{-1234.56, "-$1,234.56"},
		{1000000, "$1,000,000.00"},
	}

	for _, tt := range tests {
		if got := Currency(tt.input); got != tt.expected {
			t.Errorf("Currency(%v) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestWhole(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{0, "0"},
		{999, "999"},
		{12345.4, "12,345"},
		{-2500, "-2,500"},
	}

	for _, tt := range tests {
		if got := Whole(tt.input); got != tt.expected {
			t.Errorf("Whole(%v) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestWholeCurrency(t *testing.T) {
	if got := WholeCurrency(1764000); got != "$1,764,000" {
		t.Errorf("WholeCurrency = %q", got)
	}
	if got := WholeCurrency(-300); got != "-$300" {
		t.Errorf("WholeCurrency = %q", got)
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(0.6648); got != "66.5%" {
		t.Errorf("Percent = %q", got)
	}
	if got := Percent(0); got != "0.0%" {
		t.Errorf("Percent = %q", got)
	}
}
