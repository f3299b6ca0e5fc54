// Package ledger defines the monthly ledger row shared by actuals, budgets and
// roster expansions, along with the chart of accounts and department tree.
package ledger

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/iwvelando/fpna/pkg/constants"
	"github.com/iwvelando/fpna/pkg/datetime"
	"github.com/iwvelando/fpna/pkg/mathutil"
)

// Row is one posted or budgeted financial fact.
type Row struct {
	Account  string  `json:"account_std" yaml:"account"`
	Month    string  `json:"month" yaml:"month"`
	Amount   float64 `json:"amount" yaml:"amount"`
	Dept     string  `json:"dept" yaml:"dept"`
	Currency string  `json:"currency" yaml:"currency"`
}

// Key identifies a row for joins between actuals and budgets.
type Key struct {
	Account  string
	Dept     string
	Month    string
	Currency string
}

// Key returns the join key of the row.
func (r Row) Key() Key {
	return Key{Account: r.Account, Dept: r.Dept, Month: r.Month, Currency: r.Currency}
}

// Category returns the account category of the row.
func (r Row) Category() Category {
	return CategoryOf(r.Account)
}

// Validate checks that a row is usable by the engines.
func (r Row) Validate() error {
	if strings.TrimSpace(r.Account) == "" {
		return fmt.Errorf("account cannot be empty")
	}
	if !datetime.ValidMonth(r.Month) {
		return fmt.Errorf("account %s: invalid month %q", r.Account, r.Month)
	}
	return nil
}

// Normalize fills department and currency defaults.
func (r *Row) Normalize(functional string) {
	r.Account = strings.TrimSpace(r.Account)
	r.Month = strings.TrimSpace(r.Month)
	if strings.TrimSpace(r.Dept) == "" {
		r.Dept = DeptHQ
	}
	if strings.TrimSpace(r.Currency) == "" {
		r.Currency = functional
	}
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
}

// Clone returns an independent copy of rows.
func Clone(rows []Row) []Row {
	if rows == nil {
		return nil
	}
	out := make([]Row, len(rows))
	copy(out, rows)
	return out
}

// FilterYear keeps the rows whose month falls in year.
func FilterYear(rows []Row, year int) []Row {
	var out []Row
	for _, r := range rows {
		if datetime.InYear(r.Month, year) {
			out = append(out, r)
		}
	}
	return out
}

// FilterAccount keeps the rows of a single account.
func FilterAccount(rows []Row, account string) []Row {
	var out []Row
	for _, r := range rows {
		if r.Account == account {
			out = append(out, r)
		}
	}
	return out
}

// MatchPattern reports whether account matches pattern. "Prefix:*" matches
// every account under the prefix, "*" matches everything and any other
// pattern must match exactly.
func MatchPattern(account, pattern string) bool {
	pattern = strings.TrimSpace(pattern)
	switch {
	case pattern == "*":
		return true
	case strings.HasSuffix(pattern, ":*"):
		return strings.HasPrefix(account, strings.TrimSuffix(pattern, "*"))
	default:
		return account == pattern
	}
}

// MatchAny reports whether account matches one of patterns. An empty pattern
// list matches everything.
func MatchAny(account string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if MatchPattern(account, p) {
			return true
		}
	}
	return false
}

// Scale multiplies the amount of every row selected by match by (1 + pct),
// rounding to cents. A nil match selects all rows. It returns the adjusted
// copy and the number of rows touched.
func Scale(rows []Row, pct float64, match func(Row) bool) ([]Row, int) {
	out := Clone(rows)
	n := 0
	for i := range out {
		if match != nil && !match(out[i]) {
			continue
		}
		out[i].Amount = mathutil.Cents(mathutil.Scale(out[i].Amount, pct))
		n++
	}
	return out, n
}

type cellKey struct {
	account string
	dept    string
	month   string
}

// Upsert merges incoming into existing, last write wins on
// (account, department, month). Surviving existing rows keep their order;
// each incoming key lands at the position of its last occurrence.
func Upsert(existing, incoming []Row) []Row {
	last := make(map[cellKey]int, len(incoming))
	for i, r := range incoming {
		last[cellKey{r.Account, r.Dept, r.Month}] = i
	}

	out := make([]Row, 0, len(existing)+len(incoming))
	for _, r := range existing {
		if _, replaced := last[cellKey{r.Account, r.Dept, r.Month}]; replaced {
			continue
		}
		out = append(out, r)
	}
	for i, r := range incoming {
		if last[cellKey{r.Account, r.Dept, r.Month}] == i {
			out = append(out, r)
		}
	}
	return out
}

// Sort orders rows by account, department then month.
func Sort(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Account != rows[j].Account {
			return rows[i].Account < rows[j].Account
		}
		if rows[i].Dept != rows[j].Dept {
			return rows[i].Dept < rows[j].Dept
		}
		return rows[i].Month < rows[j].Month
	})
}

// Months returns the distinct months present in rows, ascending.
func Months(rows []Row) []string {
	set := make(map[string]struct{})
	for _, r := range rows {
		set[r.Month] = struct{}{}
	}
	months := make([]string, 0, len(set))
	for m := range set {
		months = append(months, m)
	}
	sort.Strings(months)
	return months
}

// ScenarioKey builds the "<year>:<label>" key of a scenario.
func ScenarioKey(year int, label string) string {
	label = strings.TrimSpace(label)
	if label == "" {
		label = constants.DefaultScenarioLabel
	}
	return fmt.Sprintf("%d:%s", year, label)
}

// ResolveScenario qualifies a short label ("Base") with year; keys that
// already carry a year are returned unchanged.
func ResolveScenario(year int, scenario string) string {
	scenario = strings.TrimSpace(scenario)
	if strings.Contains(scenario, ":") {
		return scenario
	}
	return ScenarioKey(year, scenario)
}

// ScenarioYear extracts the fiscal year from a scenario key.
func ScenarioYear(key string) (int, error) {
	prefix, _, found := strings.Cut(key, ":")
	if !found {
		return 0, fmt.Errorf("scenario %q has no fiscal year", key)
	}
	year, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, fmt.Errorf("scenario %q has invalid fiscal year: %w", key, err)
	}
	return year, nil
}
