package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"ledgerview/internal/core"
	"ledgerview/internal/localstore"
)

func openTemp(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	s, err := Open(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestGetMissingKey(t *testing.T) {
	s, _ := openTemp(t)
	b, ok, err := s.Get(context.Background(), "nope")
	if err != nil || ok || b != nil {
		t.Fatalf("got %q, %v, %v", b, ok, err)
	}
}

func TestSetOverwrites(t *testing.T) {
	ctx := context.Background()
	s, _ := openTemp(t)

	if err := s.Set(ctx, "k", []byte("first")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "k", []byte("second")); err != nil {
		t.Fatalf("set: %v", err)
	}
	b, ok, err := s.Get(ctx, "k")
	if err != nil || !ok || string(b) != "second" {
		t.Fatalf("got %q, %v, %v", b, ok, err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	s, path := openTemp(t)

	records := []core.Record{{ID: 1, Amount: core.Money{Cents: 2500}, Description: "Lunch", Category: 1, Date: 100}}
	blob, err := localstore.EncodeRecords(records)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := s.Set(ctx, localstore.DefaultKey, blob); err != nil {
		t.Fatalf("set: %v", err)
	}
	s.Close()

	// migrations are idempotent on an existing file
	s2, err := Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	b, ok, err := s2.Get(ctx, localstore.DefaultKey)
	if err != nil || !ok {
		t.Fatalf("get: %v, %v", ok, err)
	}
	got, err := localstore.DecodeRecords(b)
	if err != nil || len(got) != 1 || got[0] != records[0] {
		t.Fatalf("got %+v, %v", got, err)
	}
}
