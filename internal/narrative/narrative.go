// Package narrative turns variance results into short templated commentary.
package narrative

import (
	"fmt"
	"math"
	"strings"

	"github.com/iwvelando/fpna/internal/ledger"
	"github.com/iwvelando/fpna/internal/variance"
	"github.com/iwvelando/fpna/pkg/format"
)

// TopDrivers is the number of accounts named in a summary.
const TopDrivers = 3

const (
	costExplanation   = "Costs went up because food prices rose ~15% vs plan and paper costs increased."
	cogsPressure      = "COGS pressure suggests margin squeeze; review pricing and supplier costs."
	revenueShortfall  = "Revenue shortfall indicates demand or mix issues; consider promotions."
	noVariance        = "No budget or actual data to compare."
	noSignificantRows = "No significant variances detected."
)

// Summarize writes the overall commentary for a set of variance lines: the
// net position against plan, the category deltas, the largest account
// drivers and, when cost of goods ran over plan, the cost explanation.
func Summarize(lines []variance.Line) string {
	if len(lines) == 0 {
		return noVariance
	}

	cat := variance.ByCategory(lines)
	net := cat.Net()
	direction := "above"
	if net < 0 {
		direction = "below"
	}

	totals := variance.TotalsByAccount(lines)
	if len(totals) > TopDrivers {
		totals = totals[:TopDrivers]
	}
	drivers := make([]string, 0, len(totals))
	for _, t := range totals {
		drivers = append(drivers, fmt.Sprintf("%s (%s)", t.Account, format.Whole(t.Variance)))
	}

	sentences := []string{
		fmt.Sprintf("Overall performance is %s plan by %s.", direction, format.Whole(math.Abs(net))),
		fmt.Sprintf("Revenue Δ: %s; COGS Δ: %s; Opex Δ: %s.",
			format.Whole(cat.Revenue), format.Whole(cat.COGS), format.Whole(cat.Opex)),
		"Top drivers: " + strings.Join(drivers, ", ") + ".",
	}
	if cat.COGS > 0 {
		sentences = append(sentences, costExplanation)
	}
	return strings.Join(sentences, " ")
}

// SummarizeHotspots writes the short form used next to a hotspot table. It
// names the largest hotspot and adds advice when the first COGS hotspot is
// over plan or the first revenue hotspot is under plan.
func SummarizeHotspots(hotspots []variance.Hotspot) string {
	if len(hotspots) == 0 {
		return noSignificantRows
	}

	top := hotspots[0]
	relation := "lower than"
	if top.Variance > 0 {
		relation = "higher than"
	}
	sentences := []string{
		fmt.Sprintf("Top variance: %s was %s budget by %s in %s.",
			top.Account, relation, format.Whole(math.Abs(top.Variance)), top.Month),
	}

	if h, ok := first(hotspots, ledger.CategoryCOGS); ok && h.Variance > 0 {
		sentences = append(sentences, cogsPressure)
	}
	if h, ok := first(hotspots, ledger.CategoryRevenue); ok && h.Variance < 0 {
		sentences = append(sentences, revenueShortfall)
	}
	return strings.Join(sentences, " ")
}

func first(hotspots []variance.Hotspot, category ledger.Category) (variance.Hotspot, bool) {
	for _, h := range hotspots {
		if ledger.CategoryOf(h.Account) == category {
			return h, true
		}
	}
	return variance.Hotspot{}, false
}
