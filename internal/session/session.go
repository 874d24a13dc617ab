// Package session owns the loaded expense collection and the active
// identity, and routes every read and write to either the remote ledger or
// the local fallback store.
//
// The store's mutex is never held across a backing-store call. After each
// such call the store re-checks that the session it started in is still the
// current one and drops results that belong to a previous session.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ledgerview/internal/aggregate"
	"ledgerview/internal/core"
	"ledgerview/internal/ledger"
	"ledgerview/internal/localstore"
	"ledgerview/internal/log"
	"ledgerview/internal/notify"
)

// State of a session store.
type State int

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

var (
	ErrAlreadyConnected = errors.New("session: already connected")
	ErrNotConnected     = errors.New("session: not connected")
	ErrNoIdentity       = errors.New("session: identity is required")
)

// errNoBlob marks a fallback load that found nothing saved.
var errNoBlob = errors.New("no saved collection")

// Options configures a Store. Ledger may be nil when only the fallback
// identity is used.
type Options struct {
	Ledger   ledger.Client
	Local    localstore.Store
	LocalKey string
	Notifier notify.Notifier
	Logger   *log.Logger
	Clock    func() time.Time
	Location *time.Location
}

// Result describes an accepted add or delete.
type Result struct {
	// Record is the stored record for a fallback add, or the submitted one
	// (without a ledger id) for a remote add.
	Record *core.Record `json:"record,omitempty"`
	// Transaction is set for remote submissions.
	Transaction *ledger.TransactionHandle `json:"transaction,omitempty"`
	// Applied reports whether the in-memory collection changed.
	Applied bool `json:"applied"`
	// ReloadRequired is true when the change only becomes visible after a
	// later Load.
	ReloadRequired bool `json:"reload_required"`
}

type Store struct {
	ledger   ledger.Client
	local    localstore.Store
	localKey string
	notifier notify.Notifier
	logger   *log.Logger
	clock    func() time.Time
	loc      *time.Location

	// writeMu serializes fallback read-modify-persist cycles.
	writeMu sync.Mutex

	mu       sync.Mutex
	state    State
	identity ledger.Identity
	records  []core.Record
	degraded bool
	// session increments on every connect and disconnect.
	session uint64
}

func New(opts Options) *Store {
	s := &Store{
		ledger:   opts.Ledger,
		local:    opts.Local,
		localKey: opts.LocalKey,
		notifier: opts.Notifier,
		logger:   opts.Logger,
		clock:    opts.Clock,
		loc:      opts.Location,
	}
	if s.local == nil {
		s.local = localstore.NewMemory()
	}
	if s.localKey == "" {
		s.localKey = localstore.DefaultKey
	}
	if s.notifier == nil {
		s.notifier = notify.Discard
	}
	if s.logger == nil {
		s.logger = log.Discard()
	}
	s.logger = s.logger.WithComponent(log.ComponentSession)
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.loc == nil {
		s.loc = time.Local
	}
	return s
}

// Connect moves the store to Connected with an empty collection and starts
// one asynchronous load. The returned channel yields that load's result and
// is then closed. ctx governs the load, so it must outlive the call.
func (s *Store) Connect(ctx context.Context, id ledger.Identity) (<-chan error, error) {
	if id.IsZero() {
		return nil, ErrNoIdentity
	}
	s.mu.Lock()
	if s.state == Connected {
		s.mu.Unlock()
		return nil, ErrAlreadyConnected
	}
	s.state = Connected
	s.identity = id
	s.records = []core.Record{}
	s.degraded = false
	s.session++
	gen := s.session
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Session connected", log.FieldIdentity, id.String())
	if id.IsFallback() {
		s.notify(ctx, successNotice(log.OpConnect, "Fallback mode enabled - try adding expenses!"))
	} else {
		s.notify(ctx, successNotice(log.OpConnect, "Ledger account connected: "+id.String()))
	}

	done := make(chan error, 1)
	go func() {
		defer close(done)
		if !id.IsFallback() {
			s.initializeTracker(ctx)
		}
		done <- s.load(ctx, gen)
	}()
	return done, nil
}

// ConnectLedger attempts a ledger connection within timeout. On success the
// store connects with the returned identity. Otherwise the store is left
// untouched and the caller decides whether to fall back.
func (s *Store) ConnectLedger(ctx context.Context, timeout time.Duration) (ledger.ConnectResult, <-chan error, error) {
	res := ledger.Attempt(ctx, s.ledger, timeout)
	if res.Status != ledger.Connected {
		s.logger.WarnContext(ctx, "Ledger connect attempt failed",
			"status", res.Status.String(),
			log.FieldError, errString(res.Err))
		s.notify(ctx, infoNotice(log.OpConnect, "Ledger not available, fallback mode can be used"))
		return res, nil, nil
	}
	done, err := s.Connect(context.WithoutCancel(ctx), res.Identity)
	return res, done, err
}

// Disconnect clears the identity and the collection. Calling it while
// disconnected does nothing.
func (s *Store) Disconnect(ctx context.Context) {
	s.mu.Lock()
	if s.state == Disconnected {
		s.mu.Unlock()
		return
	}
	id := s.identity
	s.state = Disconnected
	s.identity = ledger.Identity{}
	s.records = nil
	s.degraded = false
	s.session++
	s.mu.Unlock()

	if !id.IsFallback() && s.ledger != nil {
		if err := s.ledger.Disconnect(ctx); err != nil {
			s.logger.WarnContext(ctx, "Ledger disconnect failed", log.FieldError, err.Error())
		}
	}
	s.logger.InfoContext(ctx, "Session disconnected", log.FieldIdentity, id.String())
	s.notify(ctx, infoNotice(log.OpDisconnect, "Disconnected"))
}

// Load replaces the collection with what the backing store reports. A
// backing-store failure or an empty fallback store installs the sample
// collection and emits a DegradedModeNotice; Load still returns nil.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Connected {
		s.mu.Unlock()
		return ErrNotConnected
	}
	gen := s.session
	s.mu.Unlock()
	return s.load(ctx, gen)
}

func (s *Store) load(ctx context.Context, gen uint64) error {
	s.mu.Lock()
	if s.session != gen || s.state != Connected {
		s.mu.Unlock()
		return nil
	}
	id := s.identity
	s.mu.Unlock()

	records, err := s.fetch(ctx, id)
	degraded := false
	var notice notify.Notice
	switch {
	case errors.Is(err, errNoBlob):
		records, degraded = SampleRecords(s.clock()), true
		notice = DegradedModeNotice("No saved expenses yet: using sample data")
	case err != nil:
		s.logger.LogOperationError(ctx, "Load failed, using sample data", err, log.OpLoad,
			log.NewFields().WithIdentity(id.String()))
		records, degraded = SampleRecords(s.clock()), true
		notice = DegradedModeNotice("Could not load expenses: using sample data")
	}

	s.mu.Lock()
	if s.session != gen || s.state != Connected {
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "Discarding load for a finished session", log.FieldIdentity, id.String())
		return nil
	}
	s.records = records
	s.degraded = degraded
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Expenses loaded",
		log.FieldIdentity, id.String(),
		log.FieldRecordCount, len(records),
		"degraded", degraded)
	if degraded {
		s.notify(ctx, notice)
	}
	return nil
}

func (s *Store) fetch(ctx context.Context, id ledger.Identity) ([]core.Record, error) {
	if id.IsFallback() {
		blob, ok, err := s.local.Get(ctx, s.localKey)
		if err != nil {
			return nil, fmt.Errorf("read local store: %w", err)
		}
		if !ok {
			return nil, errNoBlob
		}
		return localstore.DecodeRecords(blob)
	}

	account, _ := id.Account()
	if s.ledger == nil {
		return nil, ledger.NewQueryError(ledger.FnGetExpenses, ledger.ErrUnavailable)
	}
	raws, err := s.ledger.View(ctx, ledger.FnGetExpenses, ledger.ViewArgs(account))
	if err != nil {
		return nil, ledger.NewQueryError(ledger.FnGetExpenses, err)
	}
	records, err := ledger.DecodeRecords(raws)
	if err != nil {
		return nil, ledger.NewQueryError(ledger.FnGetExpenses, err)
	}
	return records, nil
}

// initializeTracker registers the account with the ledger. It usually fails
// for accounts that already have a tracker, so errors are only logged.
func (s *Store) initializeTracker(ctx context.Context) {
	if s.ledger == nil {
		return
	}
	if _, err := s.ledger.Submit(ctx, ledger.FnInitializeTracker, nil); err != nil {
		s.logger.DebugContext(ctx, "Tracker initialization skipped", log.FieldError, err.Error())
	}
}

// AddRecord validates in and stores it. Invalid input returns the
// *core.ValidationError without touching any store. In fallback mode the
// record is persisted and added at once; in remote mode it is submitted and
// appears only after a later Load.
func (s *Store) AddRecord(ctx context.Context, in core.RecordInput) (Result, error) {
	s.mu.Lock()
	if s.state != Connected {
		s.mu.Unlock()
		return Result{}, ErrNotConnected
	}
	id := s.identity
	s.mu.Unlock()

	rec, err := core.NewRecord(in, s.loc, s.clock())
	if err != nil {
		s.notify(ctx, errorNotice(log.OpAdd, CodeValidation, "Please fill in all fields correctly: "+err.Error()))
		return Result{}, err
	}

	if id.IsFallback() {
		return s.addFallback(ctx, rec)
	}
	return s.addRemote(ctx, rec)
}

func (s *Store) addRemote(ctx context.Context, rec core.Record) (Result, error) {
	if s.ledger == nil {
		return Result{}, s.submitFailed(ctx, log.OpAdd, ledger.NewSubmissionError(ledger.FnAddExpense, ledger.ErrUnavailable), "Failed to add expense. Please try again.")
	}
	tx, err := s.ledger.Submit(ctx, ledger.FnAddExpense, ledger.AddArgs(rec))
	if err != nil {
		return Result{}, s.submitFailed(ctx, log.OpAdd, ledger.NewSubmissionError(ledger.FnAddExpense, err), "Failed to add expense. Please try again.")
	}
	s.logger.InfoContext(ctx, "Expense submitted to ledger",
		log.NewFields().WithRecord(0, rec.Amount.Cents, int(rec.Category)).ToSlice()...)
	s.notify(ctx, successNotice(log.OpAdd, "Expense added successfully to the ledger!"))
	return Result{Record: &rec, Transaction: &tx, ReloadRequired: true}, nil
}

func (s *Store) addFallback(ctx context.Context, rec core.Record) (Result, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, gen, err := s.snapshot()
	if err != nil {
		return Result{}, err
	}
	rec.ID = nextID(current)
	next := append(append(make([]core.Record, 0, len(current)+1), current...), rec)

	if err := s.persist(ctx, ledger.FnAddExpense, next); err != nil {
		return Result{}, s.submitFailed(ctx, log.OpAdd, err, "Failed to save expense locally.")
	}
	applied := s.apply(gen, next)

	s.logger.InfoContext(ctx, "Expense saved locally",
		log.NewFields().WithRecord(rec.ID, rec.Amount.Cents, int(rec.Category)).ToSlice()...)
	s.notify(ctx, successNotice(log.OpAdd, "Expense added successfully! (fallback mode)"))
	return Result{Record: &rec, Applied: applied}, nil
}

// DeleteRecord removes the record with the given id. In fallback mode the
// removal is persisted at once and a missing id is a no-op; in remote mode
// a delete is submitted and the record stays until a later Load.
func (s *Store) DeleteRecord(ctx context.Context, recordID int64) (Result, error) {
	s.mu.Lock()
	if s.state != Connected {
		s.mu.Unlock()
		return Result{}, ErrNotConnected
	}
	id := s.identity
	s.mu.Unlock()

	if id.IsFallback() {
		return s.deleteFallback(ctx, recordID)
	}

	if s.ledger == nil {
		return Result{}, s.submitFailed(ctx, log.OpDelete, ledger.NewSubmissionError(ledger.FnDeleteExpense, ledger.ErrUnavailable), "Failed to delete expense")
	}
	tx, err := s.ledger.Submit(ctx, ledger.FnDeleteExpense, ledger.DeleteArgs(recordID))
	if err != nil {
		return Result{}, s.submitFailed(ctx, log.OpDelete, ledger.NewSubmissionError(ledger.FnDeleteExpense, err), "Failed to delete expense")
	}
	s.logger.InfoContext(ctx, "Expense delete submitted to ledger", log.FieldRecordID, recordID)
	s.notify(ctx, successNotice(log.OpDelete, "Expense deleted successfully!"))
	return Result{Transaction: &tx, ReloadRequired: true}, nil
}

func (s *Store) deleteFallback(ctx context.Context, recordID int64) (Result, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, gen, err := s.snapshot()
	if err != nil {
		return Result{}, err
	}
	next := make([]core.Record, 0, len(current))
	for _, r := range current {
		if r.ID != recordID {
			next = append(next, r)
		}
	}
	if len(next) == len(current) {
		s.logger.DebugContext(ctx, "Delete of unknown id ignored", log.FieldRecordID, recordID)
		return Result{}, nil
	}

	if err := s.persist(ctx, ledger.FnDeleteExpense, next); err != nil {
		return Result{}, s.submitFailed(ctx, log.OpDelete, err, "Failed to delete expense")
	}
	applied := s.apply(gen, next)

	s.logger.InfoContext(ctx, "Expense deleted locally", log.FieldRecordID, recordID)
	s.notify(ctx, successNotice(log.OpDelete, "Expense deleted! (fallback mode)"))
	return Result{Applied: applied}, nil
}

func (s *Store) snapshot() ([]core.Record, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Connected {
		return nil, 0, ErrNotConnected
	}
	return append([]core.Record(nil), s.records...), s.session, nil
}

// apply installs next if the session that produced it is still current.
func (s *Store) apply(gen uint64, next []core.Record) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != gen || s.state != Connected {
		return false
	}
	s.records = next
	s.degraded = false
	return true
}

func (s *Store) persist(ctx context.Context, function string, records []core.Record) error {
	blob, err := localstore.EncodeRecords(records)
	if err != nil {
		return ledger.NewSubmissionError(function, err)
	}
	if err := s.local.Set(ctx, s.localKey, blob); err != nil {
		return ledger.NewSubmissionError(function, fmt.Errorf("write local store: %w", err))
	}
	return nil
}

func (s *Store) submitFailed(ctx context.Context, op string, err error, message string) error {
	s.logger.LogOperationError(ctx, "Backing store rejected change", err, op, nil)
	s.notify(ctx, errorNotice(op, CodeSubmissionFailed, message))
	return err
}

func (s *Store) notify(ctx context.Context, n notify.Notice) {
	s.notifier.Notify(ctx, n)
}

// nextID is one more than the largest id present, so ids never repeat
// within a collection even after deletions.
func nextID(records []core.Record) int64 {
	var highest int64
	for _, r := range records {
		if r.ID > highest {
			highest = r.ID
		}
	}
	return highest + 1
}

// State returns the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Identity returns the active identity, zero when disconnected.
func (s *Store) Identity() ledger.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Degraded reports whether the collection is the sample set installed by
// a failed or empty load.
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// Records returns a copy of the collection in load order.
func (s *Store) Records() []core.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Record{}, s.records...)
}

// Summary computes the dashboard view over the current collection.
func (s *Store) Summary(filter core.Category) aggregate.Summary {
	return aggregate.Summarize(s.Records(), filter, s.clock().In(s.loc))
}

// Location is the calendar used for dates.
func (s *Store) Location() *time.Location { return s.loc }

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
