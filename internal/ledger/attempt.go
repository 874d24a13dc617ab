package ledger

import (
	"context"
	"errors"
	"time"
)

// ConnectStatus is the outcome of a connect attempt.
type ConnectStatus int

const (
	Connected ConnectStatus = iota
	TimedOut
	NotAvailable
)

func (s ConnectStatus) String() string {
	switch s {
	case Connected:
		return "connected"
	case TimedOut:
		return "timed_out"
	case NotAvailable:
		return "not_available"
	default:
		return "unknown"
	}
}

// ConnectResult reports what Attempt observed. Identity is set only when
// Status is Connected.
type ConnectResult struct {
	Status   ConnectStatus
	Identity Identity
	Err      error
}

// Attempt tries to connect client within timeout and reports the outcome
// without deciding anything. A nil client is NotAvailable. A timeout of
// zero or less means no limit beyond ctx.
func Attempt(ctx context.Context, client Client, timeout time.Duration) ConnectResult {
	if client == nil {
		return ConnectResult{Status: NotAvailable, Err: ErrUnavailable}
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		id  Identity
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		id, err := client.Connect(ctx)
		done <- outcome{id, err}
	}()

	select {
	case o := <-done:
		switch {
		case o.err == nil && o.id.IsZero():
			return ConnectResult{Status: NotAvailable, Err: ErrUnavailable}
		case o.err == nil:
			return ConnectResult{Status: Connected, Identity: o.id}
		case errors.Is(o.err, context.DeadlineExceeded):
			return ConnectResult{Status: TimedOut, Err: o.err}
		default:
			return ConnectResult{Status: NotAvailable, Err: o.err}
		}
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return ConnectResult{Status: TimedOut, Err: ctx.Err()}
		}
		return ConnectResult{Status: NotAvailable, Err: ctx.Err()}
	}
}
