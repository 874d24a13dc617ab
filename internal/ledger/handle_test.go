package ledger_test

import (
	"context"
	"errors"
	"testing"

	"ledgerview/internal/core"
	"ledgerview/internal/ledger"
	"ledgerview/internal/ledger/memory"
)

func TestHandlesShareOneLedger(t *testing.T) {
	ctx := context.Background()
	shared := memory.New("0xabc")
	a := ledger.NewHandle(shared)
	b := ledger.NewHandle(shared)

	if _, ok := a.CurrentAccount(ctx); ok {
		t.Fatal("fresh handle should not be connected")
	}
	if _, err := a.Submit(ctx, ledger.FnAddExpense, nil); !errors.Is(err, ledger.ErrNotConnected) {
		t.Fatalf("submit before connect: %v", err)
	}

	for _, h := range []*ledger.Handle{a, b} {
		if _, err := h.Connect(ctx); err != nil {
			t.Fatalf("connect: %v", err)
		}
	}

	r := core.Record{Amount: core.Money{Cents: 900}, Description: "Coffee", Category: core.FoodDining, Date: 1705104000}
	if _, err := a.Submit(ctx, ledger.FnAddExpense, ledger.AddArgs(r)); err != nil {
		t.Fatalf("add through a: %v", err)
	}

	if err := a.Disconnect(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok := a.CurrentAccount(ctx); ok {
		t.Fatal("a should be disconnected")
	}
	id, ok := b.CurrentAccount(ctx)
	if !ok || id != ledger.Remote("0xabc") {
		t.Fatalf("b identity = %v, %v", id, ok)
	}

	raws, err := b.View(ctx, ledger.FnGetExpenses, ledger.ViewArgs("0xabc"))
	if err != nil || len(raws) != 1 {
		t.Fatalf("b sees %d records, %v", len(raws), err)
	}
	if _, err := b.Submit(ctx, ledger.FnDeleteExpense, ledger.DeleteArgs(1)); err != nil {
		t.Fatalf("delete through b after a left: %v", err)
	}
}

func TestHandleConnectFailure(t *testing.T) {
	ctx := context.Background()
	shared := memory.New("0xabc")
	shared.FailConnect(errors.New("offline"))
	h := ledger.NewHandle(shared)
	if _, err := h.Connect(ctx); err == nil {
		t.Fatal("expected connect error")
	}
	if _, ok := h.CurrentAccount(ctx); ok {
		t.Fatal("failed connect must not set an identity")
	}
}
