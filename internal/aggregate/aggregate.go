// Package aggregate computes the derived views of a record collection:
// filtering, ordering, totals and the per-category breakdown.
//
// Every function is pure. Inputs are never mutated and results never alias
// the input slice, so callers may hold them past the next session load.
package aggregate

import (
	"sort"
	"time"

	"ledgerview/internal/core"
)

// Totals is an integer sum over a set of records.
type Totals struct {
	Amount core.Money `json:"amount"`
	Count  int        `json:"count"`
}

// CategoryShare is one row of the category breakdown.
type CategoryShare struct {
	Category core.Category `json:"category"`
	Name     string        `json:"name"`
	Amount   core.Money    `json:"amount"`
	Percent  float64       `json:"percent"`
}

// FilterByCategory returns the records whose category equals c, in input
// order. core.AllCategories returns every record.
func FilterByCategory(records []core.Record, c core.Category) []core.Record {
	out := make([]core.Record, 0, len(records))
	for _, r := range records {
		if c == core.AllCategories || r.Category == c {
			out = append(out, r)
		}
	}
	return out
}

// SortByDateDescending returns a copy ordered newest first. Records with the
// same date keep their relative order.
func SortByDateDescending(records []core.Record) []core.Record {
	out := append([]core.Record(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date > out[j].Date
	})
	return out
}

// ComputeTotals sums amounts in cents.
func ComputeTotals(records []core.Record) Totals {
	var t Totals
	for _, r := range records {
		t.Amount.Cents += r.Amount.Cents
		t.Count++
	}
	return t
}

// MonthStart returns 00:00:00 on the first day of now's month, in now's location.
func MonthStart(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
}

// ComputeThisMonth totals the records dated on or after the first day of
// the month containing now.
func ComputeThisMonth(records []core.Record, now time.Time) Totals {
	start := MonthStart(now).Unix()
	var t Totals
	for _, r := range records {
		if r.Date >= start {
			t.Amount.Cents += r.Amount.Cents
			t.Count++
		}
	}
	return t
}

// ComputeCategoryBreakdown sums amounts per category present in records.
// Percent is the share of the grand total, or 0 for every row when the
// total is 0. Rows are ordered by amount descending, then category id.
func ComputeCategoryBreakdown(records []core.Record) []CategoryShare {
	byCat := make(map[core.Category]int64)
	var total int64
	for _, r := range records {
		byCat[r.Category] += r.Amount.Cents
		total += r.Amount.Cents
	}

	shares := make([]CategoryShare, 0, len(byCat))
	for c, cents := range byCat {
		s := CategoryShare{
			Category: c,
			Name:     c.Name(),
			Amount:   core.Money{Cents: cents},
		}
		if total > 0 {
			s.Percent = 100 * float64(cents) / float64(total)
		}
		shares = append(shares, s)
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Amount.Cents != shares[j].Amount.Cents {
			return shares[i].Amount.Cents > shares[j].Amount.Cents
		}
		return shares[i].Category < shares[j].Category
	})
	return shares
}
