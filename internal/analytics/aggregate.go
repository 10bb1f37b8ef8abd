// Package analytics folds appointment, billing and patient rows into the
// summaries shown on the admin dashboard.
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hackgods/clinic-scheduling/internal/billing"
)

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type MonthRevenue struct {
	Month   string          `json:"month"`
	Year    int             `json:"year"`
	Revenue decimal.Decimal `json:"revenue"`
}

type ConditionCount struct {
	Condition string `json:"condition"`
	Count     int    `json:"count"`
}

// BillingRow is the slice of an invoice the revenue folds need.
type BillingRow struct {
	CreatedAt   time.Time
	TotalAmount decimal.Decimal
	Status      billing.Status
}

// CountByDay groups appointment dates between windowStart and windowEnd
// (inclusive, YYYY-MM-DD) and counts each exact date. Dates without
// appointments are absent. The result is in ascending date order.
func CountByDay(dates []string, windowStart, windowEnd string) []DayCount {
	counts := make(map[string]int)
	for _, d := range dates {
		if d < windowStart || d > windowEnd {
			continue
		}
		counts[d]++
	}

	out := make([]DayCount, 0, len(counts))
	for d, n := range counts {
		out = append(out, DayCount{Date: d, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// SumRevenueByMonth sums paid totals per calendar month of created_at, for
// rows created within the last monthCount months before now. A monthCount
// of zero or less keeps every row. Buckets are returned oldest first.
func SumRevenueByMonth(rows []BillingRow, monthCount int, now time.Time) []MonthRevenue {
	var since time.Time
	if monthCount > 0 {
		since = now.AddDate(0, -monthCount, 0)
	}

	type bucket struct {
		year  int
		month time.Month
	}
	sums := make(map[bucket]decimal.Decimal)
	for _, r := range rows {
		if r.Status != billing.StatusPaid {
			continue
		}
		if monthCount > 0 && r.CreatedAt.Before(since) {
			continue
		}
		b := bucket{year: r.CreatedAt.Year(), month: r.CreatedAt.Month()}
		sums[b] = sums[b].Add(r.TotalAmount)
	}

	keys := make([]bucket, 0, len(sums))
	for b := range sums {
		keys = append(keys, b)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})

	out := make([]MonthRevenue, 0, len(keys))
	for _, b := range keys {
		out = append(out, MonthRevenue{
			Month:   b.month.String()[:3],
			Year:    b.year,
			Revenue: sums[b],
		})
	}
	return out
}

// SumPaid is the total of all paid rows.
func SumPaid(rows []BillingRow) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		if r.Status == billing.StatusPaid {
			total = total.Add(r.TotalAmount)
		}
	}
	return total
}

// SumPending is the total of pending and overdue rows.
func SumPending(rows []BillingRow) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		if r.Status.Outstanding() {
			total = total.Add(r.TotalAmount)
		}
	}
	return total
}

// TopConditions counts chronic conditions across patients and returns the
// limit most common, most frequent first. Ties keep first-seen order.
func TopConditions(conditions [][]string, limit int) []ConditionCount {
	index := make(map[string]int)
	var out []ConditionCount
	for _, list := range conditions {
		for _, c := range list {
			if i, ok := index[c]; ok {
				out[i].Count++
				continue
			}
			index[c] = len(out)
			out = append(out, ConditionCount{Condition: c, Count: 1})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []ConditionCount{}
	}
	return out
}
