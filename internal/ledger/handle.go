package ledger

import (
	"context"
	"sync"
)

// Handle gives one session its own connection state on top of a client
// shared by many sessions. Disconnecting a handle leaves the shared client
// and the other handles alone.
type Handle struct {
	client Client

	mu       sync.Mutex
	identity Identity
}

// NewHandle wraps a shared client.
func NewHandle(client Client) *Handle {
	return &Handle{client: client}
}

func (h *Handle) Connect(ctx context.Context) (Identity, error) {
	id, err := h.client.Connect(ctx)
	if err != nil {
		return Identity{}, err
	}
	h.mu.Lock()
	h.identity = id
	h.mu.Unlock()
	return id, nil
}

// Disconnect forgets the handle's identity. The shared client stays connected.
func (h *Handle) Disconnect(_ context.Context) error {
	h.mu.Lock()
	h.identity = Identity{}
	h.mu.Unlock()
	return nil
}

func (h *Handle) CurrentAccount(_ context.Context) (Identity, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.identity, !h.identity.IsZero()
}

func (h *Handle) Submit(ctx context.Context, function string, args []string) (TransactionHandle, error) {
	if _, ok := h.CurrentAccount(ctx); !ok {
		return TransactionHandle{}, NewSubmissionError(function, ErrNotConnected)
	}
	return h.client.Submit(ctx, function, args)
}

func (h *Handle) View(ctx context.Context, function string, args []string) ([]RawRecord, error) {
	return h.client.View(ctx, function, args)
}

var _ Client = (*Handle)(nil)
