// Package notify carries user-visible notices out of the session store:
// to the log, to an in-memory feed the API serves, and to any other sink.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"ledgerview/internal/log"
)

// Kind classifies a notice for display.
type Kind string

const (
	KindInfo    Kind = "info"
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notice is one user-visible message.
type Notice struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	Kind      Kind      `json:"kind"`
	Code      string    `json:"code,omitempty"`
	Operation string    `json:"operation,omitempty"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}

// New builds a notice with a fresh id.
func New(kind Kind, operation, message string) Notice {
	return Notice{
		ID:        uuid.NewString(),
		Kind:      kind,
		Operation: operation,
		Message:   message,
		At:        time.Now(),
	}
}

// Notifier receives notices. Implementations must not block for long and
// must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// Func adapts a function to Notifier.
type Func func(ctx context.Context, n Notice)

func (f Func) Notify(ctx context.Context, n Notice) { f(ctx, n) }

// Discard drops every notice.
var Discard Notifier = Func(func(context.Context, Notice) {})

// Log writes notices to a logger, errors at error level.
type Log struct {
	logger *log.Logger
}

func NewLog(logger *log.Logger) *Log {
	return &Log{logger: logger.WithComponent(log.ComponentNotify)}
}

func (l *Log) Notify(ctx context.Context, n Notice) {
	args := []any{
		log.FieldNoticeKind, string(n.Kind),
		log.FieldOperation, n.Operation,
	}
	if n.SessionID != "" {
		args = append(args, log.FieldSessionID, n.SessionID)
	}
	if n.Code != "" {
		args = append(args, "code", n.Code)
	}
	if n.Kind == KindError {
		l.logger.WarnContext(ctx, n.Message, args...)
		return
	}
	l.logger.InfoContext(ctx, n.Message, args...)
}

// Multi fans a notice out to several notifiers in order.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notice) {
	for _, nt := range m {
		if nt != nil {
			nt.Notify(ctx, n)
		}
	}
}

// WithSession stamps every notice with a session id before passing it on.
func WithSession(sessionID string, next Notifier) Notifier {
	return Func(func(ctx context.Context, n Notice) {
		n.SessionID = sessionID
		next.Notify(ctx, n)
	})
}

// Buffer keeps the most recent notices in a fixed-size ring.
type Buffer struct {
	mu    sync.Mutex
	items []Notice
	start int
	count int
}

// NewBuffer returns a ring holding up to size notices (at least one).
func NewBuffer(size int) *Buffer {
	if size < 1 {
		size = 1
	}
	return &Buffer{items: make([]Notice, size)}
}

func (b *Buffer) Notify(_ context.Context, n Notice) {
	b.mu.Lock()
	defer b.mu.Unlock()
	idx := (b.start + b.count) % len(b.items)
	b.items[idx] = n
	if b.count < len(b.items) {
		b.count++
	} else {
		b.start = (b.start + 1) % len(b.items)
	}
}

// List returns buffered notices oldest first.
func (b *Buffer) List() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listLocked()
}

// Drain returns buffered notices oldest first and empties the ring.
func (b *Buffer) Drain() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.listLocked()
	b.start, b.count = 0, 0
	return out
}

func (b *Buffer) listLocked() []Notice {
	out := make([]Notice, 0, b.count)
	for i := 0; i < b.count; i++ {
		out = append(out, b.items[(b.start+i)%len(b.items)])
	}
	return out
}
