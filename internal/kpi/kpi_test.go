package kpi

import (
	"testing"

	"github.com/iwvelando/fpna/internal/fx"
	"github.com/iwvelando/fpna/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRows() []ledger.Row {
	return []ledger.Row{
		{Account: "Revenue:Food", Month: "2025-02", Amount: 1000, Currency: "USD"},
		{Account: "COGS:Food", Month: "2025-02", Amount: 400, Currency: "USD"},
		{Account: "Opex:Rent", Month: "2025-02", Amount: 200, Currency: "USD"},
		{Account: "Opex:Depreciation", Month: "2025-02", Amount: 50, Currency: "USD"},
		{Account: "Revenue:Food", Month: "2025-01", Amount: 500, Currency: "USD"},
		{Account: "COGS:Food", Month: "2025-01", Amount: 100, Currency: "USD"},
		{Account: "Opex:Labor", Month: "2025-03", Amount: 80, Currency: "USD"},
	}
}

func TestEBITDAExcludesDepreciation(t *testing.T) {
	assert.Equal(t, 1500.0-500-280, EBITDA(sampleRows(), nil))
}

func TestEBITDAConvertsCurrency(t *testing.T) {
	rows := []ledger.Row{{Account: "Revenue:Food", Month: "2025-01", Amount: 100, Currency: "EUR"}}
	n := fx.NewNormalizer("USD", fx.DefaultRates("USD", 2025))
	assert.InDelta(t, 110.0, EBITDA(rows, n), 1e-9)
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleRows(), nil)
	require.Len(t, s.Months, 3)

	jan, feb, mar := s.Months[0], s.Months[1], s.Months[2]
	assert.Equal(t, "2025-01", jan.Month)
	assert.InDelta(t, 0.8, jan.GrossMargin, 1e-12)
	assert.Equal(t, 400.0, jan.EBITDA)

	assert.Equal(t, 50.0, feb.Depreciation)
	assert.Equal(t, 200.0, feb.Opex)
	assert.Equal(t, 400.0, feb.EBITDA)
	assert.InDelta(t, 0.6, feb.GrossMargin, 1e-12)

	assert.Equal(t, 0.0, mar.GrossMargin)
	assert.Equal(t, -80.0, mar.EBITDA)

	assert.Equal(t, 1500.0, s.Revenue)
	assert.Equal(t, 720.0, s.EBITDA)
	assert.InDelta(t, (0.8+0.6+0)/3, s.AvgGrossMargin, 1e-12)
}

func TestSummarizeGrossMarginEdges(t *testing.T) {
	rows := []ledger.Row{
		{Account: "Revenue:Food", Month: "2025-01", Amount: 200, Currency: "USD"},
		{Account: "COGS:Food", Month: "2025-01", Amount: 300, Currency: "USD"},
		{Account: "COGS:Food", Month: "2025-02", Amount: 50, Currency: "USD"},
	}
	s := Summarize(rows, nil)
	require.Len(t, s.Months, 2)
	assert.InDelta(t, -0.5, s.Months[0].GrossMargin, 1e-12)
	assert.Equal(t, 0.0, s.Months[1].GrossMargin)
	assert.InDelta(t, -0.25, s.AvgGrossMargin, 1e-12)
}
