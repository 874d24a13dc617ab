package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

type (
	Money struct {
		Cents int64
	}

	// Record is a single expense entry as held by a session.
	Record struct {
		ID          int64    `json:"id"`
		Amount      Money    `json:"amount"`
		Description string   `json:"description"`
		Category    Category `json:"category"`
		Date        int64    `json:"date"`       // Unix seconds, local midnight of the expense day
		CreatedAt   int64    `json:"created_at"` // Unix seconds of submission
	}

	// RecordInput is raw user input for a new record.
	RecordInput struct {
		Amount      string
		Description string
		Category    string
		Date        string // YYYY-MM-DD
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrInvalidDate      = errors.New("invalid date")
)

// ValidationError reports malformed user input. It never reaches a backing store.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Err: err}
}

// NewRecord validates raw input and builds a record without an ID.
// The date is interpreted as midnight in loc; now stamps CreatedAt.
func NewRecord(in RecordInput, loc *time.Location, now time.Time) (Record, error) {
	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return Record{}, invalid("amount", err)
	}
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return Record{}, invalid("description", ErrEmptyDescription)
	}
	cat, err := ParseCategory(in.Category)
	if err != nil {
		return Record{}, invalid("category", err)
	}
	date, err := ParseDay(in.Date, loc)
	if err != nil {
		return Record{}, invalid("date", err)
	}
	return Record{
		Amount:      amount,
		Description: desc,
		Category:    cat,
		Date:        date,
		CreatedAt:   now.Unix(),
	}, nil
}

// ParseCategory accepts a positive integer identifier. Unknown ids are
// allowed; they display as Other.
func ParseCategory(s string) (Category, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return 0, ErrInvalidCategory
	}
	return Category(n), nil
}

// ParseDay converts a YYYY-MM-DD date into the Unix timestamp of midnight
// of that day in loc.
func ParseDay(s string, loc *time.Location) (int64, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(s), loc)
	if err != nil {
		return 0, ErrInvalidDate
	}
	return t.Unix(), nil
}

// Validate checks the stored-record invariants. Category validity against
// the known set is a display concern and is not checked here.
func (r Record) Validate() error {
	if r.Amount.Cents < 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(r.Description) == "" {
		return ErrEmptyDescription
	}
	if r.Category <= 0 {
		return ErrInvalidCategory
	}
	return nil
}

// Day returns the expense day in loc.
func (r Record) Day(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(r.Date, 0).In(loc)
}

// FormatDate renders the expense day as "Jan 2, 2006".
func (r Record) FormatDate(loc *time.Location) string {
	return r.Day(loc).Format("Jan 2, 2006")
}
