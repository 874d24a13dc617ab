package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"ledgerview/internal/core"
)

func TestIdentity(t *testing.T) {
	if !(Identity{}).IsZero() {
		t.Fatal("zero identity should be zero")
	}
	fb := Fallback()
	if !fb.IsFallback() || fb.IsZero() {
		t.Fatal("fallback identity misreported")
	}
	if _, ok := fb.Account(); ok {
		t.Fatal("fallback has no account")
	}
	r := Remote("0x1234567890abcdef1234567890abcdef")
	if r.IsFallback() {
		t.Fatal("remote reported as fallback")
	}
	if acc, ok := r.Account(); !ok || acc != "0x1234567890abcdef1234567890abcdef" {
		t.Fatalf("account = %q, %v", acc, ok)
	}
	if got := r.String(); got != "0x1234567890...90abcdef" {
		t.Fatalf("String() = %q", got)
	}
	if got := Remote("short").String(); got != "short" {
		t.Fatalf("String() = %q", got)
	}
}

func TestErrorsWrapCause(t *testing.T) {
	cause := errors.New("rejected")
	err := NewSubmissionError(FnAddExpense, cause)
	var se *SubmissionError
	if !errors.As(err, &se) || se.Function != FnAddExpense || !errors.Is(err, cause) {
		t.Fatalf("unexpected %v", err)
	}
	if again := NewSubmissionError(FnDeleteExpense, err); again != err {
		t.Fatal("already wrapped error should pass through")
	}

	qerr := NewQueryError(FnGetExpenses, cause)
	var qe *QueryError
	if !errors.As(qerr, &qe) || qe.Function != FnGetExpenses {
		t.Fatalf("unexpected %v", qerr)
	}
	if errors.As(qerr, &se) {
		t.Fatal("query error must not look like a submission error")
	}
}

func TestAddArgsRoundTrip(t *testing.T) {
	r := core.Record{Amount: core.Money{Cents: 2500}, Description: "Lunch", Category: 1, Date: 1705276800}
	args := AddArgs(r)
	want := []string{"2500", "Lunch", "1", "1705276800"}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("arg %d = %q, want %q", i, args[i], want[i])
		}
	}
	req, err := DecodeAddArgs(args)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := req.Record(7, 99)
	if got.ID != 7 || got.CreatedAt != 99 || got.Amount != r.Amount || got.Date != r.Date || got.Category != r.Category {
		t.Fatalf("got %+v", got)
	}
}

func TestDecodeAddArgsRejects(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"too few", []string{"1", "x"}},
		{"amount", []string{"abc", "x", "1", "0"}},
		{"negative", []string{"-5", "x", "1", "0"}},
		{"description", []string{"5", "  ", "1", "0"}},
		{"category", []string{"5", "x", "0", "0"}},
		{"date", []string{"5", "x", "1", "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeAddArgs(tt.args); !errors.Is(err, ErrBadArguments) {
				t.Fatalf("err = %v", err)
			}
		})
	}
	if _, err := DecodeID([]string{"nope"}); !errors.Is(err, ErrBadArguments) {
		t.Fatalf("DecodeID err = %v", err)
	}
}

func TestDecodeRecordsLooseTypes(t *testing.T) {
	raws := []RawRecord{
		{"id": "1", "amount": "2500", "description": "Lunch", "category": "1", "date": "1705276800", "created_at": "1705280000"},
		{"id": 2, "amount": float64(5000), "description": "Gas", "category": int64(2), "date": 1705190400},
	}
	got, err := DecodeRecords(raws)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d", len(got))
	}
	if got[0].ID != 1 || got[0].Amount.Cents != 2500 || got[0].CreatedAt != 1705280000 {
		t.Fatalf("first = %+v", got[0])
	}
	if got[1].Amount.Cents != 5000 || got[1].Category != 2 || got[1].CreatedAt != 0 {
		t.Fatalf("second = %+v", got[1])
	}
}

func TestDecodeRecordsFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  RawRecord
	}{
		{"missing id", RawRecord{"amount": "1", "description": "x", "category": "1", "date": "0"}},
		{"bad amount", RawRecord{"id": "1", "amount": "lots", "description": "x", "category": "1", "date": "0"}},
		{"missing description", RawRecord{"id": "1", "amount": "1", "category": "1", "date": "0"}},
		{"empty description", RawRecord{"id": "1", "amount": "1", "description": " ", "category": "1", "date": "0"}},
		{"zero category", RawRecord{"id": "1", "amount": "1", "description": "x", "category": "0", "date": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeRecords([]RawRecord{tt.raw}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestEncodeDecodeRecord(t *testing.T) {
	r := core.Record{ID: 3, Amount: core.Money{Cents: 1200}, Description: "Movie ticket", Category: 3, Date: 10, CreatedAt: 11}
	got, err := DecodeRecord(EncodeRecord(r))
	if err != nil || got != r {
		t.Fatalf("got %+v, %v", got, err)
	}
}

type stubClient struct {
	id    Identity
	err   error
	delay time.Duration
}

func (s stubClient) Connect(ctx context.Context) (Identity, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Identity{}, ctx.Err()
		}
	}
	return s.id, s.err
}
func (stubClient) Disconnect(context.Context) error { return nil }
func (stubClient) CurrentAccount(context.Context) (Identity, bool) { return Identity{}, false }
func (stubClient) Submit(context.Context, string, []string) (TransactionHandle, error) {
	return TransactionHandle{}, nil
}
func (stubClient) View(context.Context, string, []string) ([]RawRecord, error) { return nil, nil }

func TestAttempt(t *testing.T) {
	ctx := context.Background()

	res := Attempt(ctx, stubClient{id: Remote("acct")}, time.Second)
	if res.Status != Connected || res.Identity != Remote("acct") {
		t.Fatalf("connected: %+v", res)
	}

	res = Attempt(ctx, stubClient{err: errors.New("no wallet")}, time.Second)
	if res.Status != NotAvailable || res.Err == nil {
		t.Fatalf("unavailable: %+v", res)
	}

	res = Attempt(ctx, stubClient{id: Remote("acct"), delay: time.Second}, 10*time.Millisecond)
	if res.Status != TimedOut {
		t.Fatalf("timeout: %+v", res)
	}

	res = Attempt(ctx, nil, time.Second)
	if res.Status != NotAvailable {
		t.Fatalf("nil client: %+v", res)
	}

	res = Attempt(ctx, stubClient{}, time.Second)
	if res.Status != NotAvailable {
		t.Fatalf("empty identity: %+v", res)
	}
}

func TestConnectStatusString(t *testing.T) {
	if Connected.String() != "connected" || TimedOut.String() != "timed_out" || NotAvailable.String() != "not_available" {
		t.Fatal("unexpected status names")
	}
}
