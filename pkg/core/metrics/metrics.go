// Package metrics derives liquidity figures from an extracted balance sheet.
package metrics

import (
	"strings"

	"github.com/shopspring/decimal"

	"sec_scraper/pkg/core/fee"
)

// Metrics are the figures of one balance-sheet date within one filing.
// WorkingCapital and CurrentRatio are nil unless both current figures are
// known and non-zero.
type Metrics struct {
	Symbol                    string   `json:"symbol"`
	FilingDate                string   `json:"filing_date"`
	AsOf                      string   `json:"as_of"`
	CurrentAssets             float64  `json:"current_assets"`
	CurrentLiabilities        float64  `json:"current_liabilities"`
	TotalAssets               float64  `json:"total_assets"`
	TotalLiabilities          float64  `json:"total_liabilities"`
	TotalLiabilitiesAndEquity float64  `json:"total_liabilities_and_equity"`
	WorkingCapital            *float64 `json:"working_capital"`
	CurrentRatio              *float64 `json:"current_ratio"`
}

// ratioPlaces is the precision kept for the current ratio.
const ratioPlaces = 4

// Compute returns one Metrics per axis date of rs, in axis order. Only the
// recomputed totals and leaves are used; source totals never reach a
// RecordSet.
func Compute(symbol, filingDate string, rs fee.RecordSet) []Metrics {
	out := make([]Metrics, 0, len(rs.Axis))
	for _, date := range rs.Axis {
		var (
			currentAssets      = decimal.Zero
			currentLiabilities = decimal.Zero
			totalAssets        = decimal.Zero
			totalLiabilities   = decimal.Zero
			totalLE            = decimal.Zero
		)

		for _, r := range rs.Records {
			v, ok := r.Values[date]
			if !ok {
				continue
			}
			d := decimal.NewFromFloat(v)

			switch {
			case r.IsTotal && r.Subsection == "" && r.Category == fee.CategoryAssets:
				totalAssets = d
			case r.IsTotal && r.Subsection == "" && r.Category == fee.CategoryLiabilitiesAndEquity:
				totalLE = d
			case r.IsTotal && isCurrent(r.Subsection):
				if r.Category == fee.CategoryAssets {
					currentAssets = currentAssets.Add(d)
				} else if r.Category == fee.CategoryLiabilitiesAndEquity {
					currentLiabilities = currentLiabilities.Add(d)
				}
			case !r.IsTotal && r.Category == fee.CategoryLiabilitiesAndEquity && !isEquity(r):
				totalLiabilities = totalLiabilities.Add(d)
			}
		}

		m := Metrics{
			Symbol:                    symbol,
			FilingDate:                filingDate,
			AsOf:                      date,
			CurrentAssets:             currentAssets.InexactFloat64(),
			CurrentLiabilities:        currentLiabilities.InexactFloat64(),
			TotalAssets:               totalAssets.InexactFloat64(),
			TotalLiabilities:          totalLiabilities.InexactFloat64(),
			TotalLiabilitiesAndEquity: totalLE.InexactFloat64(),
		}
		if !currentAssets.IsZero() && !currentLiabilities.IsZero() {
			wc := currentAssets.Sub(currentLiabilities).InexactFloat64()
			ratio := currentAssets.DivRound(currentLiabilities, ratioPlaces).InexactFloat64()
			m.WorkingCapital = &wc
			m.CurrentRatio = &ratio
		}
		out = append(out, m)
	}
	return out
}

// isCurrent matches "Current Assets" and "Current Liabilities" but not
// "Non-Current Assets".
func isCurrent(subsection string) bool {
	s := strings.ToLower(subsection)
	return strings.HasPrefix(s, "current")
}

func isEquity(r fee.Record) bool {
	section := strings.ToLower(r.Section)
	if strings.Contains(section, "equity") && !strings.Contains(section, "liabilities") {
		return true
	}
	return strings.Contains(strings.ToLower(r.Subsection), "equity")
}
