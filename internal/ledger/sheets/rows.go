package sheets

import (
	"fmt"
	"strconv"
	"strings"

	"ledgerview/internal/ledger"
)

// Column layout of the ledger tab, A through G.
const (
	colID = iota
	colAccount
	colAmount
	colDescription
	colCategory
	colDate
	colCreatedAt
)

var header = []any{"id", "account", "amount", "description", "category", "date", "created_at"}

// toStrings renders cells as text. Numeric cells are written without an
// exponent so large timestamps survive.
func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if f, ok := v.(float64); ok {
			out[i] = strconv.FormatFloat(f, 'f', -1, 64)
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// rowID parses column A. Header and cleared rows report false.
func rowID(cols []string) (int64, bool) {
	id, err := strconv.ParseInt(safeGet(cols, colID), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// parseRows returns the raw records stored for account, in sheet order.
// Header, blank and cleared rows are skipped.
func parseRows(values [][]any, account string) []ledger.RawRecord {
	out := make([]ledger.RawRecord, 0, len(values))
	for _, row := range values {
		cols := toStrings(row)
		if _, ok := rowID(cols); !ok {
			continue
		}
		if !strings.EqualFold(safeGet(cols, colAccount), account) {
			continue
		}
		out = append(out, ledger.RawRecord{
			"id":          cols[colID],
			"amount":      safeGet(cols, colAmount),
			"description": safeGet(cols, colDescription),
			"category":    safeGet(cols, colCategory),
			"date":        safeGet(cols, colDate),
			"created_at":  safeGet(cols, colCreatedAt),
		})
	}
	return out
}

// nextID is one past the largest id anywhere in the tab.
func nextID(values [][]any) int64 {
	var highest int64
	for _, row := range values {
		if id, ok := rowID(toStrings(row)); ok && id > highest {
			highest = id
		}
	}
	return highest + 1
}

// findRow returns the 1-based sheet row holding id for account.
func findRow(values [][]any, id int64, account string) (int, bool) {
	for i, row := range values {
		cols := toStrings(row)
		rid, ok := rowID(cols)
		if ok && rid == id && strings.EqualFold(safeGet(cols, colAccount), account) {
			return i + 1, true
		}
	}
	return 0, false
}

func hasHeader(values [][]any) bool {
	if len(values) == 0 {
		return false
	}
	cols := toStrings(values[0])
	return strings.EqualFold(safeGet(cols, colID), "id")
}
