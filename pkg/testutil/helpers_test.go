package testutil

import (
	"testing"

	"github.com/iwvelando/fpna/internal/ledger"
)

func TestFindRow(t *testing.T) {
	rows := []ledger.Row{
		{Account: "Revenue:Food", Month: "2025-01", Amount: 1000.00},
		{Account: "Revenue:Food", Month: "2025-02", Amount: 2000.00},
		{Account: "COGS:Food", Month: "2025-01", Amount: 300.00},
	}

	tests := []struct {
		name         string
		account      string
		month        string
		expectFound  bool
		expectedData float64
	}{
		{
			name:         "Find January revenue",
			account:      "Revenue:Food",
			month:        "2025-01",
			expectFound:  true,
			expectedData: 1000.00,
		},
		{
			name:         "Find February revenue",
			account:      "Revenue:Food",
			month:        "2025-02",
			expectFound:  true,
			expectedData: 2000.00,
		},
		{
			name:         "Find COGS",
			account:      "COGS:Food",
			month:        "2025-01",
			expectFound:  true,
			expectedData: 300.00,
		},
		{
			name:        "Month not present",
			account:     "COGS:Food",
			month:       "2025-02",
			expectFound: false,
		},
		{
			name:        "Case sensitive account",
			account:     "revenue:food",
			month:       "2025-01",
			expectFound: false,
		},
		{
			name:        "Partial account match",
			account:     "Revenue",
			month:       "2025-01",
			expectFound: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FindRow(rows, tt.account, tt.month)

			if tt.expectFound {
				if result == nil {
					t.Errorf("FindRow() expected to find %s %s but got nil", tt.account, tt.month)
					return
				}
				if result.Amount != tt.expectedData {
					t.Errorf("FindRow() returned amount %v, expected %v", result.Amount, tt.expectedData)
				}
			} else if result != nil {
				t.Errorf("FindRow() expected nil for %s %s but got %+v", tt.account, tt.month, *result)
			}
		})
	}
}

func TestFindRowReturnsPointerIntoSlice(t *testing.T) {
	rows := []ledger.Row{{Account: "Revenue:Food", Month: "2025-01", Amount: 1}}
	FindRow(rows, "Revenue:Food", "2025-01").Amount = 5
	if rows[0].Amount != 5 {
		t.Errorf("FindRow() should point into the slice, amount is %v", rows[0].Amount)
	}
}

func TestFindRowNilRows(t *testing.T) {
	if result := FindRow(nil, "Revenue:Food", "2025-01"); result != nil {
		t.Errorf("FindRow() with nil rows should return nil, got %v", result)
	}
}

func TestCountMatching(t *testing.T) {
	rows := []ledger.Row{
		{Account: "Revenue:Food"},
		{Account: "Revenue:Beverage"},
		{Account: "COGS:Food"},
	}
	got := CountMatching(rows, func(r ledger.Row) bool { return ledger.IsRevenue(r.Account) })
	if got != 2 {
		t.Errorf("CountMatching() = %d, expected 2", got)
	}
	if got := CountMatching(nil, func(ledger.Row) bool { return true }); got != 0 {
		t.Errorf("CountMatching(nil) = %d, expected 0", got)
	}
}
