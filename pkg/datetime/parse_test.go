package datetime

import (
	"reflect"
	"testing"
)

func TestParseMonth(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		expectErr bool
	}{
		{"Valid month", "2024-01", false},
		{"Padded whitespace", " 2024-12 ", false},
		{"Month out of range", "2024-13", true},
		{"Full date", "2024-01-15", true},
		{"Empty", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMonth(tt.input)
			if (err != nil) != tt.expectErr {
				t.Errorf("ParseMonth(%q) error = %v, expectErr %v", tt.input, err, tt.expectErr)
			}
		})
	}
}

func TestOffsetDate(t *testing.T) {
	tests := []struct {
		name     string
		date     string
		months   int
		expected string
	}{
		{"Forward one month", "2024-01", 1, "2024-02"},
		{"Across year", "2024-12", 1, "2025-01"},
		{"Backwards", "2024-03", -3, "2023-12"},
		{"No offset", "2024-06", 0, "2024-06"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := OffsetDate(tt.date, DateTimeLayout, tt.months)
			if err != nil {
				t.Fatalf("OffsetDate error = %v", err)
			}
			if got != tt.expected {
				t.Errorf("OffsetDate(%s, %d) = %s, expected %s", tt.date, tt.months, got, tt.expected)
			}
		})
	}

	if _, err := OffsetDate("bad", DateTimeLayout, 1); err == nil {
		t.Error("expected error for malformed date")
	}
}

func TestNextMonths(t *testing.T) {
	got, err := NextMonths("2024-11", 3)
	if err != nil {
		t.Fatalf("NextMonths error = %v", err)
	}
	expected := []string{"2024-12", "2025-01", "2025-02"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("NextMonths = %v, expected %v", got, expected)
	}

	empty, err := NextMonths("2024-11", 0)
	if err != nil || len(empty) != 0 {
		t.Errorf("NextMonths with zero horizon = %v, %v", empty, err)
	}
}

func TestMonthsOfYear(t *testing.T) {
	months := MonthsOfYear(2026)
	if len(months) != 12 {
		t.Fatalf("expected 12 months, got %d", len(months))
	}
	if months[0] != "2026-01" || months[11] != "2026-12" {
		t.Errorf("unexpected bounds %s..%s", months[0], months[11])
	}
}

func TestMonthIndexAndYear(t *testing.T) {
	idx, err := MonthIndex("2025-09")
	if err != nil || idx != 8 {
		t.Errorf("MonthIndex = %d, %v; expected 8", idx, err)
	}
	if !InYear("2025-09", 2025) || InYear("2024-09", 2025) {
		t.Error("InYear mismatch")
	}
	moved, err := WithYear("2024-02", 2025)
	if err != nil || moved != "2025-02" {
		t.Errorf("WithYear = %s, %v", moved, err)
	}
}

func TestDateBeforeDate(t *testing.T) {
	before, err := DateBeforeDate("2024-01", "2024-02")
	if err != nil || !before {
		t.Errorf("expected 2024-01 before 2024-02, got %v (%v)", before, err)
	}
	before, err = DateBeforeDate("2024-02", "2024-02")
	if err != nil || before {
		t.Errorf("expected equal months not to be before, got %v (%v)", before, err)
	}
	if _, err := DateBeforeDate("x", "2024-02"); err == nil {
		t.Error("expected error for malformed first date")
	}
}

func TestMonthOf(t *testing.T) {
	tests := []struct {
		input     string
		expected  string
		expectErr bool
	}{
		{"2024-03-15", "2024-03", false},
		{"03/15/2024", "2024-03", false},
		{"3/5/2024", "2024-03", false},
		{"2024-03-15T10:00:00Z", "2024-03", false},
		{"2024-03", "2024-03", false},
		{"15.03.2024", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := MonthOf(tt.input)
			if (err != nil) != tt.expectErr {
				t.Fatalf("MonthOf(%q) error = %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("MonthOf(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}
