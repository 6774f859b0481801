// Package report turns classified, deduplicated transactions into the
// aggregate views the API serves: category totals, weekly spend statistics
// and a spend histogram. All amounts are integer minor currency units.
package report

import (
	"math"
	"sort"
	"time"

	"budgetsniffer/internal/models"
	"budgetsniffer/internal/rules"
)

// Analytics exclude these categories entirely; they are flows, not spending.
var excludedCategories = map[string]struct{}{
	rules.CategoryIncome:   {},
	rules.CategoryTransfer: {},
}

// histBinWidth is 250 major units expressed in minor units.
const histBinWidth int64 = 25000

type CategoryTotal struct {
	Category    string `json:"category"`
	AmountMinor int64  `json:"amount_minor"`
}

type WeeklyPoint struct {
	Week        string `json:"week"` // YYYY-MM-DD, Monday of the week
	AmountMinor int64  `json:"amount_minor"`
}

// WeeklyStats describes the weekly spend series (outflows only, positive
// values, minor units). Mode is the series value closest to the mean,
// rounded to the nearest thousand major units.
type WeeklyStats struct {
	Avg                 float64 `json:"avg"`
	Min                 float64 `json:"min"`
	Max                 float64 `json:"max"`
	ModeNearestThousand float64 `json:"mode_nearest_thousand"`
}

type HistBin struct {
	BinFrom int64 `json:"bin_from"`
	BinTo   int64 `json:"bin_to"`
	Count   int   `json:"count"`
}

type Weekly struct {
	Points []WeeklyPoint `json:"points"`
	Stats  WeeklyStats   `json:"stats"`
}

// Summary is the full aggregate view over a date range.
type Summary struct {
	CategoriesBreakdown []CategoryTotal `json:"categories_breakdown"`
	Weekly              Weekly          `json:"weekly"`
	Hist                []HistBin       `json:"hist"`
}

// Analyzable filters rows down to what aggregation may see: hidden rows and
// excluded categories are dropped. Listings still show everything.
func Analyzable(txns []models.Transaction) []models.Transaction {
	var out []models.Transaction
	for _, t := range txns {
		if t.Hidden {
			continue
		}
		if _, excluded := excludedCategories[t.Category]; excluded {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Summarize builds the aggregate view from analyzable rows.
func Summarize(txns []models.Transaction) Summary {
	weekly := weeklySpend(txns)
	spend := spendSeries(weekly)
	return Summary{
		CategoriesBreakdown: categoryTotals(txns),
		Weekly: Weekly{
			Points: weekly,
			Stats:  weeklyStats(spend),
		},
		Hist: histogram(spend),
	}
}

// categoryTotals sums amounts per category, largest first.
func categoryTotals(txns []models.Transaction) []CategoryTotal {
	sums := make(map[string]int64)
	for _, t := range txns {
		sums[t.Category] += t.AmountMinor
	}

	totals := make([]CategoryTotal, 0, len(sums))
	for c, amt := range sums {
		totals = append(totals, CategoryTotal{Category: c, AmountMinor: amt})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].AmountMinor != totals[j].AmountMinor {
			return totals[i].AmountMinor > totals[j].AmountMinor
		}
		return totals[i].Category < totals[j].Category
	})
	return totals
}

// weeklySpend sums amounts per week keyed by the Monday of each week.
func weeklySpend(txns []models.Transaction) []WeeklyPoint {
	sums := make(map[string]int64)
	for _, t := range txns {
		d, err := time.Parse("2006-01-02", t.Date)
		if err != nil {
			continue
		}
		monday := d.AddDate(0, 0, -((int(d.Weekday()) + 6) % 7))
		sums[monday.Format("2006-01-02")] += t.AmountMinor
	}

	points := make([]WeeklyPoint, 0, len(sums))
	for week, amt := range sums {
		points = append(points, WeeklyPoint{Week: week, AmountMinor: amt})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Week < points[j].Week })
	return points
}

// spendSeries converts weekly net amounts to outflow magnitudes: a net
// outflow week contributes its absolute value, anything else contributes 0.
func spendSeries(points []WeeklyPoint) []int64 {
	series := make([]int64, len(points))
	for i, p := range points {
		if p.AmountMinor < 0 {
			series[i] = -p.AmountMinor
		}
	}
	return series
}

func weeklyStats(series []int64) WeeklyStats {
	if len(series) == 0 {
		return WeeklyStats{}
	}

	var sum int64
	min := series[0]
	max := series[0]
	for _, v := range series {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	avg := float64(sum) / float64(len(series))

	// Mode proxy: the series value closest to the mean, snapped to the
	// nearest thousand major units (100000 minor units).
	closest := series[0]
	for _, v := range series {
		if math.Abs(float64(v)-avg) < math.Abs(float64(closest)-avg) {
			closest = v
		}
	}
	mode := math.Floor((float64(closest)+50000)/100000) * 100000

	return WeeklyStats{
		Avg:                 avg,
		Min:                 float64(min),
		Max:                 float64(max),
		ModeNearestThousand: mode,
	}
}

// histogram buckets the weekly spend series into fixed-width bins starting
// at zero.
func histogram(series []int64) []HistBin {
	if len(series) == 0 {
		return nil
	}

	var max int64
	for _, v := range series {
		if v > max {
			max = v
		}
	}
	binCount := int(max/histBinWidth) + 1

	bins := make([]HistBin, binCount)
	for i := range bins {
		bins[i].BinFrom = int64(i) * histBinWidth
		bins[i].BinTo = int64(i+1) * histBinWidth
	}
	for _, v := range series {
		idx := int(v / histBinWidth)
		if idx >= binCount {
			idx = binCount - 1
		}
		bins[idx].Count++
	}
	return bins
}
