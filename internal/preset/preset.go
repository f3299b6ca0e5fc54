// Package preset generates demonstration ledgers for a quick-service
// restaurant: seeded actuals, an uplifted base budget, a parameterised
// driver-based budget and a trend-based budget.
package preset

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/iwvelando/fpna/internal/ledger"
	"github.com/iwvelando/fpna/pkg/constants"
	"github.com/iwvelando/fpna/pkg/datetime"
	"github.com/iwvelando/fpna/pkg/mathutil"
	"gopkg.in/yaml.v3"
)

// Fixed cost structure shared by the seeded actuals and the QSR preset.
const (
	foodShare        = 0.88
	beverageShare    = 0.12
	foodCOGSShare    = 0.9
	paperCOGSShare   = 0.1
	payrollTaxRate   = 0.076
	benefitsRate     = 0.08
	repairsRate      = 0.01
	suppliesRate     = 0.005
	insuranceMonthly = 900.0
	depreciation     = 1200.0

	seedTicket       = 14.0
	seedDailyTxn     = 350
	seedOpenDays     = 30
	seedFoodCOGSRate = 0.29
	seedPaperRate    = 0.02
	seedLaborRate    = 0.26
	seedRoyaltyRate  = 0.05
	seedAdFundRate   = 0.04
	seedRent         = 6500.0
	seedUtilities    = 1800.0
)

// QSRParams drive the restaurant budget generator.
type QSRParams struct {
	AvgTicket        float64   `json:"avg_ticket" yaml:"avg_ticket"`
	DailyTxn         float64   `json:"daily_txn" yaml:"daily_txn"`
	OpenDaysPerMonth float64   `json:"open_days_per_month" yaml:"open_days_per_month"`
	Seasonality      []float64 `json:"seasonality" yaml:"seasonality"`
	COGSPct          float64   `json:"cogs_pct" yaml:"cogs_pct"`
	LaborPct         float64   `json:"labor_pct" yaml:"labor_pct"`
	RentFixed        float64   `json:"rent_fixed" yaml:"rent_fixed"`
	UtilitiesFixed   float64   `json:"utilities_fixed" yaml:"utilities_fixed"`
	RoyaltyPct       float64   `json:"royalty_pct" yaml:"royalty_pct"`
	AdFundPct        float64   `json:"ad_fund_pct" yaml:"ad_fund_pct"`
}

// DefaultQSRParams returns the stock restaurant assumptions.
func DefaultQSRParams() QSRParams {
	return QSRParams{
		AvgTicket:        14.0,
		DailyTxn:         380,
		OpenDaysPerMonth: 30,
		Seasonality:      []float64{1.00, 0.98, 1.00, 1.02, 1.03, 1.05, 1.08, 1.07, 1.02, 1.01, 1.10, 1.12},
		COGSPct:          0.31,
		LaborPct:         0.26,
		RentFixed:        6500.0,
		UtilitiesFixed:   1800.0,
		RoyaltyPct:       0.05,
		AdFundPct:        0.04,
	}
}

// Validate checks that params can drive a twelve-month budget.
func (p QSRParams) Validate() error {
	if len(p.Seasonality) != constants.MonthsPerYear {
		return fmt.Errorf("seasonality must have %d factors, got %d", constants.MonthsPerYear, len(p.Seasonality))
	}
	for name, v := range map[string]float64{
		"avg_ticket":          p.AvgTicket,
		"daily_txn":           p.DailyTxn,
		"open_days_per_month": p.OpenDaysPerMonth,
		"cogs_pct":            p.COGSPct,
		"labor_pct":           p.LaborPct,
		"rent_fixed":          p.RentFixed,
		"utilities_fixed":     p.UtilitiesFixed,
		"royalty_pct":         p.RoyaltyPct,
		"ad_fund_pct":         p.AdFundPct,
	} {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%s cannot be negative", name)
		}
	}
	return nil
}

// LoadQSRParams decodes YAML overrides on top of the defaults.
func LoadQSRParams(r io.Reader) (QSRParams, error) {
	p := DefaultQSRParams()
	if err := yaml.NewDecoder(r).Decode(&p); err != nil && err != io.EOF {
		return QSRParams{}, fmt.Errorf("decode preset parameters: %w", err)
	}
	if err := p.Validate(); err != nil {
		return QSRParams{}, err
	}
	return p, nil
}

// WithOverrides returns p with the named fields of overrides replaced. Keys
// use the JSON field names; unknown keys are ignored.
func (p QSRParams) WithOverrides(overrides map[string]any) (QSRParams, error) {
	if len(overrides) == 0 {
		return p, nil
	}
	data, err := json.Marshal(overrides)
	if err != nil {
		return QSRParams{}, fmt.Errorf("encode preset overrides: %w", err)
	}
	out := p
	out.Seasonality = append([]float64(nil), p.Seasonality...)
	if err := json.Unmarshal(data, &out); err != nil {
		return QSRParams{}, fmt.Errorf("decode preset overrides: %w", err)
	}
	if err := out.Validate(); err != nil {
		return QSRParams{}, err
	}
	return out, nil
}

// LoadQSRParamsFile reads QSR parameters from a YAML file.
func LoadQSRParamsFile(path string) (QSRParams, error) {
	f, err := os.Open(path)
	if err != nil {
		return QSRParams{}, fmt.Errorf("open preset parameters: %w", err)
	}
	defer f.Close()
	return LoadQSRParams(f)
}

type costLine struct {
	account string
	amount  float64
	dept    string
}

func restaurantMonth(sales, foodCOGS, paperCOGS, labor, rent, utilities, royalty, adFund float64) []costLine {
	return []costLine{
		{ledger.AccountRevenueFood, sales * foodShare, ledger.DeptSales},
		{ledger.AccountRevenueBeverage, sales * beverageShare, ledger.DeptSales},
		{ledger.AccountCOGSFood, foodCOGS, ledger.DeptOps},
		{ledger.AccountCOGSPaper, paperCOGS, ledger.DeptOps},
		{ledger.AccountLabor, labor, ledger.DeptOps},
		{ledger.AccountPayrollTaxes, labor * payrollTaxRate, ledger.DeptHQ},
		{ledger.AccountBenefits, labor * benefitsRate, ledger.DeptHQ},
		{ledger.AccountRent, rent, ledger.DeptHQ},
		{ledger.AccountUtilities, utilities, ledger.DeptHQ},
		{ledger.AccountRoyalty, royalty, ledger.DeptHQ},
		{ledger.AccountAdFund, adFund, ledger.DeptHQ},
		{ledger.AccountRepairs, sales * repairsRate, ledger.DeptOps},
		{ledger.AccountSupplies, sales * suppliesRate, ledger.DeptOps},
		{ledger.AccountInsurance, insuranceMonthly, ledger.DeptHQ},
		{ledger.AccountDepreciation, depreciation, ledger.DeptHQ},
	}
}

func appendLines(rows []ledger.Row, month, currency string, lines []costLine) []ledger.Row {
	for _, l := range lines {
		rows = append(rows, ledger.Row{
			Account:  l.account,
			Month:    month,
			Amount:   mathutil.Cents(l.amount),
			Dept:     l.dept,
			Currency: currency,
		})
	}
	return rows
}

// SeedActuals returns flat monthly actuals for year: 15 accounts over 12
// months from 14.00 average ticket, 350 daily transactions and 30 open days.
func SeedActuals(year int, currency string) []ledger.Row {
	var rows []ledger.Row
	for _, month := range datetime.MonthsOfYear(year) {
		sales := seedTicket * seedDailyTxn * seedOpenDays
		lines := restaurantMonth(sales,
			sales*foodShare*seedFoodCOGSRate,
			sales*seedPaperRate,
			sales*seedLaborRate,
			seedRent,
			seedUtilities,
			sales*seedRoyaltyRate,
			sales*seedAdFundRate,
		)
		rows = appendLines(rows, month, currency, lines)
	}
	return rows
}

// SeedBudget moves rows into year and uplifts every amount by uplift.
func SeedBudget(actuals []ledger.Row, year int, uplift float64) []ledger.Row {
	out := make([]ledger.Row, 0, len(actuals))
	for _, r := range actuals {
		month, err := datetime.WithYear(r.Month, year)
		if err != nil {
			continue
		}
		r.Month = month
		r.Amount = mathutil.Cents(mathutil.Scale(r.Amount, uplift))
		out = append(out, r)
	}
	return out
}

// QSR builds a driver-based budget for year. Sales follow ticket x daily
// transactions x open days x seasonality, compounded monthly by the
// equivalent of gdpGrowth a year.
func QSR(year int, p QSRParams, gdpGrowth float64, currency string) ([]ledger.Row, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	mg := mathutil.MonthlyRate(gdpGrowth)

	var rows []ledger.Row
	for i, month := range datetime.MonthsOfYear(year) {
		sales := p.AvgTicket * p.DailyTxn * p.OpenDaysPerMonth * p.Seasonality[i]
		sales *= math.Pow(1+mg, float64(i+1))
		lines := restaurantMonth(sales,
			sales*foodShare*p.COGSPct*foodCOGSShare,
			sales*p.COGSPct*paperCOGSShare,
			sales*p.LaborPct,
			p.RentFixed,
			p.UtilitiesFixed,
			sales*p.RoyaltyPct,
			sales*p.AdFundPct,
		)
		rows = appendLines(rows, month, currency, lines)
	}
	return rows, nil
}

// TrendWindow is the number of trailing actual months averaged by Autogen.
const TrendWindow = 6

// Autogen builds a budget for year from the mean of the last TrendWindow
// months of actuals per (account, department, currency), compounded each
// month by the monthly equivalents of yoy and gdpGrowth.
func Autogen(actuals []ledger.Row, year int, yoy, gdpGrowth float64) []ledger.Row {
	months := ledger.Months(actuals)
	if len(months) == 0 {
		return nil
	}
	cutoff, err := datetime.OffsetDate(months[len(months)-1], constants.DateTimeLayout, -(TrendWindow - 1))
	if err != nil {
		return nil
	}

	type key struct{ account, dept, currency string }
	type acc struct {
		sum float64
		n   int
	}
	bases := make(map[key]*acc)
	for _, r := range actuals {
		if r.Month < cutoff {
			continue
		}
		k := key{r.Account, r.Dept, r.Currency}
		a, ok := bases[k]
		if !ok {
			a = &acc{}
			bases[k] = a
		}
		a.sum += r.Amount
		a.n++
	}
	keys := make([]key, 0, len(bases))
	for k := range bases {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].account != keys[j].account {
			return keys[i].account < keys[j].account
		}
		if keys[i].dept != keys[j].dept {
			return keys[i].dept < keys[j].dept
		}
		return keys[i].currency < keys[j].currency
	})

	growth := mathutil.MonthlyRate(yoy) + mathutil.MonthlyRate(gdpGrowth)
	var rows []ledger.Row
	for i, month := range datetime.MonthsOfYear(year) {
		factor := math.Pow(1+growth, float64(i+1))
		for _, k := range keys {
			a := bases[k]
			rows = append(rows, ledger.Row{
				Account:  k.account,
				Month:    month,
				Amount:   mathutil.Cents(a.sum / float64(a.n) * factor),
				Dept:     k.dept,
				Currency: k.currency,
			})
		}
	}
	return rows
}
