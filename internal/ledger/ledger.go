// Package ledger defines the port to the remote expense ledger and the
// encoding shared by its adapters.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// Function ids understood by every ledger adapter.
const (
	FnInitializeTracker = "initialize_tracker"
	FnAddExpense        = "add_expense"
	FnDeleteExpense     = "delete_expense"
	FnGetExpenses       = "get_expenses"
)

var (
	// ErrNotConnected is returned by adapters asked to act without an account.
	ErrNotConnected = errors.New("ledger: not connected")
	// ErrUnavailable means the ledger cannot be reached at all.
	ErrUnavailable = errors.New("ledger: not available")
	// ErrUnknownFunction is returned for a function id the adapter does not serve.
	ErrUnknownFunction = errors.New("ledger: unknown function")
	// ErrBadArguments is returned when the argument list does not match the function.
	ErrBadArguments = errors.New("ledger: bad arguments")
)

// Identity is either a remote account reference or the local fallback
// sentinel. The zero value is neither and means "no identity".
type Identity struct {
	account  string
	fallback bool
}

// Remote returns the identity of a real ledger account.
func Remote(account string) Identity { return Identity{account: account} }

// Fallback returns the local fallback identity.
func Fallback() Identity { return Identity{fallback: true} }

// IsFallback reports whether id is the fallback sentinel.
func (id Identity) IsFallback() bool { return id.fallback }

// IsZero reports whether id is unset.
func (id Identity) IsZero() bool { return !id.fallback && id.account == "" }

// Account returns the remote account reference, if any.
func (id Identity) Account() (string, bool) {
	if id.fallback || id.account == "" {
		return "", false
	}
	return id.account, true
}

// String renders the identity for display: long accounts are shortened to
// their first 12 and last 8 characters.
func (id Identity) String() string {
	switch {
	case id.fallback:
		return "fallback"
	case id.account == "":
		return "none"
	case len(id.account) > 20:
		return id.account[:12] + "..." + id.account[len(id.account)-8:]
	default:
		return id.account
	}
}

// TransactionHandle identifies a submitted transaction.
type TransactionHandle struct {
	Hash string `json:"hash"`
}

// RawRecord is one loosely typed record as returned by View. Values may be
// numbers or decimal strings; use DecodeRecords to get core records.
type RawRecord map[string]any

// Client is the port to the remote ledger.
type Client interface {
	Connect(ctx context.Context) (Identity, error)
	Disconnect(ctx context.Context) error
	CurrentAccount(ctx context.Context) (Identity, bool)
	// Submit sends a state-changing call. Failures are *SubmissionError.
	Submit(ctx context.Context, function string, args []string) (TransactionHandle, error)
	// View runs a read-only call. Failures are *QueryError.
	View(ctx context.Context, function string, args []string) ([]RawRecord, error)
}

// SubmissionError wraps a failed Submit (rejection, network failure, abort).
type SubmissionError struct {
	Function string
	Err      error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit %s: %v", e.Function, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// QueryError wraps a failed View.
type QueryError struct {
	Function string
	Err      error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("view %s: %v", e.Function, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// NewSubmissionError returns err unchanged if it already is a
// *SubmissionError, otherwise wraps it.
func NewSubmissionError(function string, err error) error {
	var se *SubmissionError
	if errors.As(err, &se) {
		return err
	}
	return &SubmissionError{Function: function, Err: err}
}

// NewQueryError returns err unchanged if it already is a *QueryError,
// otherwise wraps it.
func NewQueryError(function string, err error) error {
	var qe *QueryError
	if errors.As(err, &qe) {
		return err
	}
	return &QueryError{Function: function, Err: err}
}

func formatInt(v int64) string { return strconv.FormatInt(v, 10) }
