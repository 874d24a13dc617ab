package ledger

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"

	"ledgerview/internal/core"
)

// AddRequest is the decoded argument list of add_expense.
type AddRequest struct {
	Amount      int64
	Description string
	Category    int64
	Date        int64
}

// AddArgs encodes r as the add_expense argument list:
// amount in cents, description, category id, date.
func AddArgs(r core.Record) []string {
	return []string{
		formatInt(r.Amount.Cents),
		r.Description,
		formatInt(int64(r.Category)),
		formatInt(r.Date),
	}
}

// DeleteArgs encodes the delete_expense argument list.
func DeleteArgs(id int64) []string { return []string{formatInt(id)} }

// ViewArgs encodes the get_expenses argument list.
func ViewArgs(account string) []string { return []string{account} }

// DecodeAddArgs parses the add_expense argument list.
func DecodeAddArgs(args []string) (AddRequest, error) {
	if len(args) != 4 {
		return AddRequest{}, fmt.Errorf("%w: add_expense wants 4 arguments, got %d", ErrBadArguments, len(args))
	}
	amount, err := cast.ToInt64E(args[0])
	if err != nil || amount < 0 {
		return AddRequest{}, fmt.Errorf("%w: amount %q", ErrBadArguments, args[0])
	}
	desc := strings.TrimSpace(args[1])
	if desc == "" {
		return AddRequest{}, fmt.Errorf("%w: empty description", ErrBadArguments)
	}
	cat, err := cast.ToInt64E(args[2])
	if err != nil || cat <= 0 {
		return AddRequest{}, fmt.Errorf("%w: category %q", ErrBadArguments, args[2])
	}
	date, err := cast.ToInt64E(args[3])
	if err != nil {
		return AddRequest{}, fmt.Errorf("%w: date %q", ErrBadArguments, args[3])
	}
	return AddRequest{Amount: amount, Description: desc, Category: cat, Date: date}, nil
}

// DecodeID parses a single id argument as used by delete_expense.
func DecodeID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("%w: want 1 argument, got %d", ErrBadArguments, len(args))
	}
	id, err := cast.ToInt64E(args[0])
	if err != nil {
		return 0, fmt.Errorf("%w: id %q", ErrBadArguments, args[0])
	}
	return id, nil
}

// Record builds the stored record for this request.
func (a AddRequest) Record(id, createdAt int64) core.Record {
	return core.Record{
		ID:          id,
		Amount:      core.Money{Cents: a.Amount},
		Description: a.Description,
		Category:    core.Category(a.Category),
		Date:        a.Date,
		CreatedAt:   createdAt,
	}
}

// EncodeRecord renders r the way a ledger returns it: every numeric field
// as a decimal string.
func EncodeRecord(r core.Record) RawRecord {
	return RawRecord{
		"id":          formatInt(r.ID),
		"amount":      formatInt(r.Amount.Cents),
		"description": r.Description,
		"category":    formatInt(int64(r.Category)),
		"date":        formatInt(r.Date),
		"created_at":  formatInt(r.CreatedAt),
	}
}

// DecodeRecord converts one raw record, accepting numbers or decimal
// strings for the integer fields.
func DecodeRecord(raw RawRecord) (core.Record, error) {
	var r core.Record
	var err error

	if r.ID, err = int64Field(raw, "id"); err != nil {
		return core.Record{}, err
	}
	if r.Amount.Cents, err = int64Field(raw, "amount"); err != nil {
		return core.Record{}, err
	}
	cat, err := int64Field(raw, "category")
	if err != nil {
		return core.Record{}, err
	}
	r.Category = core.Category(cat)
	if r.Date, err = int64Field(raw, "date"); err != nil {
		return core.Record{}, err
	}
	// created_at is optional on older ledgers
	if _, ok := raw["created_at"]; ok {
		if r.CreatedAt, err = int64Field(raw, "created_at"); err != nil {
			return core.Record{}, err
		}
	}
	desc, ok := raw["description"]
	if !ok {
		return core.Record{}, fmt.Errorf("field description: missing")
	}
	if r.Description, err = cast.ToStringE(desc); err != nil {
		return core.Record{}, fmt.Errorf("field description: %w", err)
	}
	if err := r.Validate(); err != nil {
		return core.Record{}, err
	}
	return r, nil
}

// DecodeRecords converts a View result, failing on the first bad record.
func DecodeRecords(raws []RawRecord) ([]core.Record, error) {
	out := make([]core.Record, 0, len(raws))
	for i, raw := range raws {
		r, err := DecodeRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func int64Field(raw RawRecord, name string) (int64, error) {
	v, ok := raw[name]
	if !ok {
		return 0, fmt.Errorf("field %s: missing", name)
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return 0, fmt.Errorf("field %s: %w", name, err)
	}
	return n, nil
}
