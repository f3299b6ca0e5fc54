// Package testutil provides common utility functions for testing.
package testutil

import (
	"github.com/iwvelando/fpna/internal/ledger"
)

// FindRow finds the first row for account and month.
// Returns a pointer into rows if found, nil otherwise.
func FindRow(rows []ledger.Row, account, month string) *ledger.Row {
	for i := range rows {
		if rows[i].Account == account && rows[i].Month == month {
			return &rows[i]
		}
	}
	return nil
}

// CountMatching counts the rows accepted by match.
func CountMatching(rows []ledger.Row, match func(ledger.Row) bool) int {
	n := 0
	for _, r := range rows {
		if match(r) {
			n++
		}
	}
	return n
}
