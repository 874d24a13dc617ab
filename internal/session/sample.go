package session

import (
	"time"

	"ledgerview/internal/core"
)

const day = 24 * 60 * 60

// SampleRecords is the built-in collection shown when the backing store has
// nothing usable. Dates are one, two and three days before now.
func SampleRecords(now time.Time) []core.Record {
	ts := now.Unix()
	return []core.Record{
		{ID: 1, Amount: core.Money{Cents: 2500}, Description: "Lunch at restaurant", Category: core.FoodDining, Date: ts - day, CreatedAt: ts - day},
		{ID: 2, Amount: core.Money{Cents: 5000}, Description: "Gas for car", Category: core.Transportation, Date: ts - 2*day, CreatedAt: ts - 2*day},
		{ID: 3, Amount: core.Money{Cents: 1200}, Description: "Movie ticket", Category: core.Entertainment, Date: ts - 3*day, CreatedAt: ts - 3*day},
	}
}
