package preset

import (
	"math"
	"strings"
	"testing"

	"github.com/iwvelando/fpna/internal/ledger"
	"github.com/iwvelando/fpna/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func amountOf(rows []ledger.Row, account, month string) float64 {
	if r := testutil.FindRow(rows, account, month); r != nil {
		return r.Amount
	}
	return math.NaN()
}

func TestSeedActuals(t *testing.T) {
	rows := SeedActuals(2024, "USD")
	require.Len(t, rows, 15*12)

	assert.Equal(t, 129360.0, amountOf(rows, ledger.AccountRevenueFood, "2024-01"))
	assert.Equal(t, 17640.0, amountOf(rows, ledger.AccountRevenueBeverage, "2024-06"))
	assert.InDelta(t, 37514.40, amountOf(rows, ledger.AccountCOGSFood, "2024-03"), 1e-9)
	assert.InDelta(t, 2940.0, amountOf(rows, ledger.AccountCOGSPaper, "2024-03"), 1e-9)
	assert.InDelta(t, 2904.72, amountOf(rows, ledger.AccountPayrollTaxes, "2024-12"), 1e-9)
	assert.Equal(t, 1200.0, amountOf(rows, ledger.AccountDepreciation, "2024-12"))

	for _, r := range rows {
		switch r.Account {
		case ledger.AccountRevenueFood, ledger.AccountRevenueBeverage:
			assert.Equal(t, ledger.DeptSales, r.Dept, r.Account)
		case ledger.AccountCOGSFood, ledger.AccountCOGSPaper, ledger.AccountLabor, ledger.AccountRepairs, ledger.AccountSupplies:
			assert.Equal(t, ledger.DeptOps, r.Dept, r.Account)
		default:
			assert.Equal(t, ledger.DeptHQ, r.Dept, r.Account)
		}
	}
}

func TestSeedBudget(t *testing.T) {
	budget := SeedBudget(SeedActuals(2024, "USD"), 2025, 0.03)
	require.Len(t, budget, 180)
	assert.InDelta(t, 133240.8, amountOf(budget, ledger.AccountRevenueFood, "2025-01"), 1e-9)
	assert.Equal(t, 6695.0, amountOf(budget, ledger.AccountRent, "2025-07"))
	for _, r := range budget {
		assert.True(t, strings.HasPrefix(r.Month, "2025-"), r.Month)
	}
}

func TestQSR(t *testing.T) {
	rows, err := QSR(2026, DefaultQSRParams(), 0, "USD")
	require.NoError(t, err)
	require.Len(t, rows, 180)

	// January: 14 x 380 x 30 = 159,600 of sales.
	assert.InDelta(t, 140448.0, amountOf(rows, ledger.AccountRevenueFood, "2026-01"), 1e-6)
	assert.InDelta(t, 39184.99, amountOf(rows, ledger.AccountCOGSFood, "2026-01"), 1e-6)
	assert.InDelta(t, 4947.6, amountOf(rows, ledger.AccountCOGSPaper, "2026-01"), 1e-6)
	assert.InDelta(t, 41496.0, amountOf(rows, ledger.AccountLabor, "2026-01"), 1e-6)
	assert.Equal(t, 6500.0, amountOf(rows, ledger.AccountRent, "2026-05"))
	// December carries the 1.12 seasonality factor.
	assert.InDelta(t, 178752*0.12, amountOf(rows, ledger.AccountRevenueBeverage, "2026-12"), 1e-6)
}

func TestQSRCompoundsGDPGrowth(t *testing.T) {
	flat, err := QSR(2026, DefaultQSRParams(), 0, "USD")
	require.NoError(t, err)
	grown, err := QSR(2026, DefaultQSRParams(), 0.02, "USD")
	require.NoError(t, err)

	janRatio := amountOf(grown, ledger.AccountRevenueFood, "2026-01") / amountOf(flat, ledger.AccountRevenueFood, "2026-01")
	decRatio := amountOf(grown, ledger.AccountRevenueFood, "2026-12") / amountOf(flat, ledger.AccountRevenueFood, "2026-12")
	assert.InDelta(t, math.Pow(1.02, 1.0/12), janRatio, 1e-6)
	assert.InDelta(t, 1.02, decRatio, 1e-6)
	assert.Equal(t, amountOf(flat, ledger.AccountRent, "2026-12"), amountOf(grown, ledger.AccountRent, "2026-12"))
}

func TestQSRRejectsBadParams(t *testing.T) {
	p := DefaultQSRParams()
	p.Seasonality = p.Seasonality[:6]
	_, err := QSR(2026, p, 0, "USD")
	assert.Error(t, err)

	p = DefaultQSRParams()
	p.COGSPct = -0.1
	_, err = QSR(2026, p, 0, "USD")
	assert.Error(t, err)
}

func TestLoadQSRParams(t *testing.T) {
	p, err := LoadQSRParams(strings.NewReader("avg_ticket: 15.5\nrent_fixed: 7000\n"))
	require.NoError(t, err)
	assert.Equal(t, 15.5, p.AvgTicket)
	assert.Equal(t, 7000.0, p.RentFixed)
	assert.Equal(t, 380.0, p.DailyTxn)
	assert.Len(t, p.Seasonality, 12)

	p, err = LoadQSRParams(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultQSRParams(), p)

	_, err = LoadQSRParams(strings.NewReader("seasonality: [1, 2]\n"))
	assert.Error(t, err)
}

func TestAutogen(t *testing.T) {
	actuals := SeedActuals(2024, "USD")

	flat := Autogen(actuals, 2026, 0, 0)
	require.Len(t, flat, 180)
	assert.Equal(t, 129360.0, amountOf(flat, ledger.AccountRevenueFood, "2026-07"))

	grown := Autogen(actuals, 2026, 0.08, 0)
	assert.InDelta(t, 129360*1.08, amountOf(grown, ledger.AccountRevenueFood, "2026-12"), 0.01)

	assert.Nil(t, Autogen(nil, 2026, 0.08, 0))
}

func TestAutogenUsesTrailingWindow(t *testing.T) {
	var actuals []ledger.Row
	for i, m := range []string{"2024-01", "2024-02", "2024-03", "2024-04", "2024-05", "2024-06", "2024-07", "2024-08"} {
		amount := 100.0
		if i < 2 {
			amount = 10000
		}
		actuals = append(actuals, ledger.Row{Account: ledger.AccountRent, Month: m, Amount: amount, Dept: "HQ", Currency: "USD"})
	}
	rows := Autogen(actuals, 2025, 0, 0)
	require.Len(t, rows, 12)
	assert.Equal(t, 100.0, rows[0].Amount)
}

func TestWithOverrides(t *testing.T) {
	base := DefaultQSRParams()

	p, err := base.WithOverrides(map[string]any{"avg_ticket": 16.0, "rent_fixed": 7200, "unknown": true})
	require.NoError(t, err)
	assert.Equal(t, 16.0, p.AvgTicket)
	assert.Equal(t, 7200.0, p.RentFixed)
	assert.Equal(t, base.DailyTxn, p.DailyTxn)
	assert.Equal(t, 14.0, base.AvgTicket)

	same, err := base.WithOverrides(nil)
	require.NoError(t, err)
	assert.Equal(t, base, same)

	_, err = base.WithOverrides(map[string]any{"seasonality": []float64{1, 1}})
	assert.Error(t, err)
	_, err = base.WithOverrides(map[string]any{"avg_ticket": "cheap"})
	assert.Error(t, err)
}
