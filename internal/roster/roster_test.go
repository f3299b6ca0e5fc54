package roster

import (
	"testing"

	"github.com/iwvelando/fpna/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func employee(id, start string, salary float64) Employee {
	e := DefaultEmployee()
	e.ID = id
	e.Name = id
	e.Dept = ledger.DeptOps
	e.StartMonth = start
	e.AnnualSalary = salary
	return e
}

func TestExpandAmounts(t *testing.T) {
	e := employee("e1", "2026-04", 60000)
	e.RaiseMonth = "2026-10"
	e.RaisePct = 0.05

	rows := Expand([]Employee{e}, 2026)
	require.Len(t, rows, 9*3)

	first := rows[:3]
	assert.Equal(t, ledger.Row{Account: ledger.AccountLabor, Month: "2026-04", Amount: 5000, Dept: "Ops", Currency: "USD"}, first[0])
	assert.Equal(t, 380.0, first[1].Amount)
	assert.Equal(t, ledger.AccountPayrollTaxes, first[1].Account)
	assert.Equal(t, 400.0, first[2].Amount)
	assert.Equal(t, ledger.AccountBenefits, first[2].Account)

	// 2026-09 is the last month before the raise.
	assert.Equal(t, "2026-09", rows[15].Month)
	assert.Equal(t, 5000.0, rows[15].Amount)
	assert.Equal(t, "2026-10", rows[18].Month)
	assert.Equal(t, 5250.0, rows[18].Amount)
	assert.Equal(t, 399.0, rows[19].Amount)
	assert.Equal(t, 420.0, rows[20].Amount)
}

func TestExpandRoundsToCents(t *testing.T) {
	e := employee("pt", "2026-01", 50000)
	e.FTE = 0.5
	rows := Expand([]Employee{e}, 2026)
	require.Len(t, rows, 36)
	assert.Equal(t, 2083.33, rows[0].Amount)
	assert.Equal(t, 158.33, rows[1].Amount)
	assert.Equal(t, 166.67, rows[2].Amount)
}

func TestExpandOneTriplePerEligibleMonth(t *testing.T) {
	employees := []Employee{
		employee("before", "2025-06", 40000),
		employee("mid", "2026-07", 40000),
		employee("december", "2026-12", 40000),
		employee("after", "2027-01", 40000),
	}
	eligible := map[string]int{"before": 12, "mid": 6, "december": 1, "after": 0}

	rows := Expand(employees, 2026)

	type cell struct{ month, account string }
	seen := make(map[cell]int)
	for _, r := range rows {
		seen[cell{r.Month, r.Account}]++
	}
	total := 0
	for _, n := range eligible {
		total += n
	}
	assert.Len(t, rows, total*3)

	for m := 1; m <= 12; m++ {
		month := "2026-" + []string{"01", "02", "03", "04", "05", "06", "07", "08", "09", "10", "11", "12"}[m-1]
		want := 0
		for _, e := range employees {
			if month >= e.StartMonth {
				want++
			}
		}
		for _, account := range ledger.PayrollAccounts {
			assert.Equal(t, want, seen[cell{month, account}], "%s %s", month, account)
		}
	}
}

func TestExpandEmptyRoster(t *testing.T) {
	assert.Empty(t, Expand(nil, 2026))
}

func TestReplacePayroll(t *testing.T) {
	budget := []ledger.Row{
		{Account: ledger.AccountLabor, Month: "2026-01", Amount: 999},
		{Account: ledger.AccountBenefits, Month: "2026-02", Amount: 99},
		{Account: ledger.AccountLabor, Month: "2027-01", Amount: 555},
		{Account: ledger.AccountRent, Month: "2026-01", Amount: 6500},
	}
	payroll := Expand([]Employee{employee("e1", "2026-12", 12000)}, 2026)

	out := ReplacePayroll(budget, 2026, payroll)
	require.Len(t, out, 2+3)
	assert.Equal(t, 555.0, out[0].Amount)
	assert.Equal(t, 6500.0, out[1].Amount)
	assert.Equal(t, 1000.0, out[2].Amount)
}

func TestValidate(t *testing.T) {
	valid := employee("e1", "2026-01", 1000)
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Employee)
	}{
		{"missing id", func(e *Employee) { e.ID = " " }},
		{"bad dept", func(e *Employee) { e.Dept = "Kitchen" }},
		{"bad start", func(e *Employee) { e.StartMonth = "2026/01" }},
		{"bad raise month", func(e *Employee) { e.RaiseMonth = "soon" }},
		{"negative salary", func(e *Employee) { e.AnnualSalary = -1 }},
		{"zero fte", func(e *Employee) { e.FTE = 0 }},
		{"negative pct", func(e *Employee) { e.TaxesPct = -0.1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid
			tt.mutate(&e)
			assert.Error(t, e.Validate())
		})
	}
}

func TestUpsertAndRemove(t *testing.T) {
	roster := Upsert(nil, employee("a", "2026-01", 1))
	roster = Upsert(roster, employee("b", "2026-01", 2))
	roster = Upsert(roster, employee("a", "2026-01", 3))
	require.Len(t, roster, 2)
	assert.Equal(t, 3.0, roster[0].AnnualSalary)

	roster, ok := Remove(roster, "a")
	assert.True(t, ok)
	assert.Len(t, roster, 1)
	_, ok = Remove(roster, "missing")
	assert.False(t, ok)
}
