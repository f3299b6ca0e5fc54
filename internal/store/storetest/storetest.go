// Package storetest is the behavioural contract every store backend must
// satisfy.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/iwvelando/fpna/internal/fx"
	"github.com/iwvelando/fpna/internal/ledger"
	"github.com/iwvelando/fpna/internal/roster"
	"github.com/iwvelando/fpna/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) store.Store

func sampleRows() []ledger.Row {
	return []ledger.Row{
		{Account: ledger.AccountRevenueFood, Month: "2025-01", Amount: 1000.5, Dept: ledger.DeptSales, Currency: "USD"},
		{Account: ledger.AccountCOGSFood, Month: "2025-01", Amount: 310.25, Dept: ledger.DeptOps, Currency: "EUR"},
		{Account: ledger.AccountRent, Month: "2025-02", Amount: 6500, Dept: ledger.DeptHQ, Currency: "USD"},
	}
}

// Run executes the contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"Scenarios", testScenarios},
		{"Actuals", testActuals},
		{"Versions", testVersions},
		{"Roster", testRoster},
		{"Rates", testRates},
		{"Audit", testAudit},
		{"Messages", testMessages},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func testScenarios(t *testing.T, s store.Store) {
	ctx := context.Background()

	keys, err := s.Scenarios(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, err = s.Scenario(ctx, "2025:Base")
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.PutScenario(ctx, "2025:Base", sampleRows()))
	require.NoError(t, s.PutScenario(ctx, "2025:Best", sampleRows()[:1]))

	got, err := s.Scenario(ctx, "2025:Base")
	require.NoError(t, err)
	assert.Equal(t, sampleRows(), got)

	// Mutating the returned slice must not leak into the store.
	got[0].Amount = -1
	again, err := s.Scenario(ctx, "2025:Base")
	require.NoError(t, err)
	assert.Equal(t, 1000.5, again[0].Amount)

	require.NoError(t, s.PutScenario(ctx, "2025:Base", sampleRows()[2:]))
	got, err = s.Scenario(ctx, "2025:Base")
	require.NoError(t, err)
	assert.Equal(t, sampleRows()[2:], got)

	keys, err = s.Scenarios(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2025:Base", "2025:Best"}, keys)

	require.NoError(t, s.DeleteScenario(ctx, "2025:Best"))
	assert.ErrorIs(t, s.DeleteScenario(ctx, "2025:Best"), store.ErrNotFound)

	require.NoError(t, s.PutScenario(ctx, "2026:Empty", nil))
	got, err = s.Scenario(ctx, "2026:Empty")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testActuals(t *testing.T, s store.Store) {
	ctx := context.Background()

	rows, err := s.Actuals(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, s.AppendActuals(ctx, sampleRows()[:2]))
	require.NoError(t, s.AppendActuals(ctx, sampleRows()[2:]))
	rows, err = s.Actuals(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleRows(), rows)

	require.NoError(t, s.ReplaceActuals(ctx, sampleRows()[1:2]))
	rows, err = s.Actuals(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleRows()[1:2], rows)
}

func testVersions(t *testing.T, s store.Store) {
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	names, err := s.Versions(ctx, "2025:Base")
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, s.SaveVersion(ctx, store.Version{Scenario: "2025:Base", Name: "v1", SavedAt: at, Rows: sampleRows()}))
	require.NoError(t, s.SaveVersion(ctx, store.Version{Scenario: "2025:Base", Name: "v2", SavedAt: at, Rows: sampleRows()[:1]}))
	require.NoError(t, s.SaveVersion(ctx, store.Version{Scenario: "2025:Best", Name: "v1", SavedAt: at, Rows: nil}))
	// Overwrite keeps the original position.
	require.NoError(t, s.SaveVersion(ctx, store.Version{Scenario: "2025:Base", Name: "v1", SavedAt: at.Add(time.Hour), Rows: sampleRows()[2:]}))

	names, err = s.Versions(ctx, "2025:Base")
	require.NoError(t, err)
	assert.Equal(t, []string{"v1", "v2"}, names)

	v, err := s.Version(ctx, "2025:Base", "v1")
	require.NoError(t, err)
	assert.Equal(t, "2025:Base", v.Scenario)
	assert.Equal(t, sampleRows()[2:], v.Rows)
	assert.True(t, v.SavedAt.Equal(at.Add(time.Hour)), v.SavedAt)

	_, err = s.Version(ctx, "2025:Base", "v9")
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = s.Version(ctx, "2030:Base", "v1")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testRoster(t *testing.T, s store.Store) {
	ctx := context.Background()

	emps, err := s.Roster(ctx)
	require.NoError(t, err)
	assert.Empty(t, emps)

	alice := roster.DefaultEmployee()
	alice.ID, alice.Name, alice.StartMonth, alice.AnnualSalary = "E1", "Alice", "2025-01", 60000
	bob := roster.DefaultEmployee()
	bob.ID, bob.Name, bob.Dept, bob.StartMonth, bob.AnnualSalary = "E2", "Bob", ledger.DeptOps, "2025-04", 48000
	bob.RaiseMonth, bob.RaisePct, bob.FTE = "2025-09", 0.03, 0.5

	require.NoError(t, s.PutRoster(ctx, []roster.Employee{alice, bob}))
	emps, err = s.Roster(ctx)
	require.NoError(t, err)
	assert.Equal(t, []roster.Employee{alice, bob}, emps)

	require.NoError(t, s.PutRoster(ctx, []roster.Employee{bob}))
	emps, err = s.Roster(ctx)
	require.NoError(t, err)
	assert.Equal(t, []roster.Employee{bob}, emps)
}

func testRates(t *testing.T, s store.Store) {
	ctx := context.Background()

	rates := []fx.Rate{
		{Base: "EUR", Quote: "USD", Month: "2025-01", Rate: 1.1},
		{Base: "INR", Quote: "USD", Month: "2025-01", Rate: 0.012},
	}
	require.NoError(t, s.PutRates(ctx, rates))
	got, err := s.Rates(ctx)
	require.NoError(t, err)
	assert.Equal(t, rates, got)

	require.NoError(t, s.PutRates(ctx, rates[1:]))
	got, err = s.Rates(ctx)
	require.NoError(t, err)
	assert.Equal(t, rates[1:], got)
}

func testAudit(t *testing.T, s store.Store) {
	ctx := context.Background()
	at := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

	for i, action := range []string{"seed", "scenario_clone", "versions_save"} {
		require.NoError(t, s.AppendAudit(ctx, store.AuditEvent{
			ID:     action,
			Action: action,
			Detail: map[string]any{"scenario": "2025:Base", "pct": 0.05},
			User:   "bob",
			Role:   "Analyst",
			At:     at.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := s.Audit(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "seed", all[0].Action)
	assert.Equal(t, "2025:Base", all[0].Detail["scenario"])
	assert.Equal(t, 0.05, all[0].Detail["pct"])
	assert.True(t, all[2].At.Equal(at.Add(2*time.Minute)))

	latest, err := s.Audit(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "scenario_clone", latest[0].Action)
	assert.Equal(t, "versions_save", latest[1].Action)
}

func testMessages(t *testing.T, s store.Store) {
	ctx := context.Background()
	at := time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC)

	msgs := []store.Message{
		{ID: "m1", ThreadID: "t1", UserID: "bob", Role: "user", Text: "rent looks high", At: at},
		{ID: "m2", ThreadID: "t2", UserID: "alice", Role: "user", Text: "other thread", At: at},
		{ID: "m3", ThreadID: "t1", UserID: "alice", Role: "user", Text: "agreed", At: at.Add(time.Second)},
	}
	for _, m := range msgs {
		require.NoError(t, s.AppendMessage(ctx, m))
	}

	got, err := s.Messages(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "agreed", got[1].Text)
	assert.True(t, got[1].At.Equal(at.Add(time.Second)))

	got, err = s.Messages(ctx, "none")
	require.NoError(t, err)
	assert.Empty(t, got)
}
