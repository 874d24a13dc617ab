package aggregate

import (
	"time"

	"ledgerview/internal/core"
)

// Summary is the full dashboard view of one collection snapshot.
type Summary struct {
	Filter    core.Category   `json:"filter"`
	Items     []core.Record   `json:"items"`
	Total     Totals          `json:"total"`
	ThisMonth Totals          `json:"this_month"`
	Breakdown []CategoryShare `json:"breakdown"`
}

// Summarize builds the dashboard view. The item list honours the category
// filter; the statistics always cover the whole collection.
func Summarize(records []core.Record, filter core.Category, now time.Time) Summary {
	return Summary{
		Filter:    filter,
		Items:     SortByDateDescending(FilterByCategory(records, filter)),
		Total:     ComputeTotals(records),
		ThisMonth: ComputeThisMonth(records, now),
		Breakdown: ComputeCategoryBreakdown(records),
	}
}
