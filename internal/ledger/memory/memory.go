// Package memory is an in-process ledger keyed by account. It backs the
// demo server and the session tests, and can be told to fail on demand.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ledgerview/internal/core"
	"ledgerview/internal/ledger"
)

var (
	ErrAlreadyInitialized = errors.New("tracker already initialized")
	ErrRecordNotFound     = errors.New("expense not found")
)

type Ledger struct {
	mu        sync.Mutex
	account   string
	connected bool
	books     map[string]*book
	txSeq     int64
	now       func() time.Time

	connectErr error
	submitErrs map[string]error
	viewErr    error
}

type book struct {
	nextID int64
	items  []core.Record
}

// New returns a ledger that connects as account.
func New(account string) *Ledger {
	return &Ledger{
		account:    account,
		books:      map[string]*book{},
		submitErrs: map[string]error{},
		now:        time.Now,
	}
}

// SetClock replaces the clock used for created_at.
func (l *Ledger) SetClock(now func() time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
}

// FailConnect makes Connect return err until cleared with nil.
func (l *Ledger) FailConnect(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connectErr = err
}

// FailSubmit makes Submit of function return err until cleared with nil.
func (l *Ledger) FailSubmit(function string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err == nil {
		delete(l.submitErrs, function)
		return
	}
	l.submitErrs[function] = err
}

// FailView makes View return err until cleared with nil.
func (l *Ledger) FailView(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.viewErr = err
}

// Seed stores records directly under account, bypassing Submit.
func (l *Ledger) Seed(account string, records ...core.Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b := l.bookLocked(account)
	for _, r := range records {
		b.items = append(b.items, r)
		if r.ID >= b.nextID {
			b.nextID = r.ID + 1
		}
	}
}

func (l *Ledger) Connect(ctx context.Context) (ledger.Identity, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Identity{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.connectErr != nil {
		return ledger.Identity{}, l.connectErr
	}
	if l.account == "" {
		return ledger.Identity{}, ledger.ErrUnavailable
	}
	l.connected = true
	return ledger.Remote(l.account), nil
}

func (l *Ledger) Disconnect(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.connected = false
	return nil
}

func (l *Ledger) CurrentAccount(_ context.Context) (ledger.Identity, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.connected {
		return ledger.Identity{}, false
	}
	return ledger.Remote(l.account), true
}

func (l *Ledger) Submit(ctx context.Context, function string, args []string) (ledger.TransactionHandle, error) {
	if err := ctx.Err(); err != nil {
		return ledger.TransactionHandle{}, ledger.NewSubmissionError(function, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.submitErrs[function]; err != nil {
		return ledger.TransactionHandle{}, ledger.NewSubmissionError(function, err)
	}
	if !l.connected {
		return ledger.TransactionHandle{}, ledger.NewSubmissionError(function, ledger.ErrNotConnected)
	}

	switch function {
	case ledger.FnInitializeTracker:
		if _, ok := l.books[l.account]; ok {
			return ledger.TransactionHandle{}, ledger.NewSubmissionError(function, ErrAlreadyInitialized)
		}
		l.bookLocked(l.account)
	case ledger.FnAddExpense:
		req, err := ledger.DecodeAddArgs(args)
		if err != nil {
			return ledger.TransactionHandle{}, ledger.NewSubmissionError(function, err)
		}
		b := l.bookLocked(l.account)
		b.items = append(b.items, req.Record(b.nextID, l.now().Unix()))
		b.nextID++
	case ledger.FnDeleteExpense:
		id, err := ledger.DecodeID(args)
		if err != nil {
			return ledger.TransactionHandle{}, ledger.NewSubmissionError(function, err)
		}
		b := l.bookLocked(l.account)
		idx := -1
		for i, r := range b.items {
			if r.ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return ledger.TransactionHandle{}, ledger.NewSubmissionError(function, fmt.Errorf("%w: %d", ErrRecordNotFound, id))
		}
		b.items = append(b.items[:idx:idx], b.items[idx+1:]...)
	default:
		return ledger.TransactionHandle{}, ledger.NewSubmissionError(function, ledger.ErrUnknownFunction)
	}

	l.txSeq++
	return ledger.TransactionHandle{Hash: fmt.Sprintf("mem:%d", l.txSeq)}, nil
}

func (l *Ledger) View(ctx context.Context, function string, args []string) ([]ledger.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, ledger.NewQueryError(function, err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.viewErr != nil {
		return nil, ledger.NewQueryError(function, l.viewErr)
	}
	if function != ledger.FnGetExpenses {
		return nil, ledger.NewQueryError(function, ledger.ErrUnknownFunction)
	}
	if len(args) != 1 || args[0] == "" {
		return nil, ledger.NewQueryError(function, ledger.ErrBadArguments)
	}
	b, ok := l.books[args[0]]
	if !ok {
		return []ledger.RawRecord{}, nil
	}
	out := make([]ledger.RawRecord, 0, len(b.items))
	for _, r := range b.items {
		out = append(out, ledger.EncodeRecord(r))
	}
	return out, nil
}

func (l *Ledger) bookLocked(account string) *book {
	b, ok := l.books[account]
	if !ok {
		b = &book{nextID: 1}
		l.books[account] = b
	}
	return b
}

var _ ledger.Client = (*Ledger)(nil)
