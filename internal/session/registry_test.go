package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"ledgerview/internal/ledger"
	"ledgerview/internal/localstore"
)

func TestRegistryOpenAndClose(t *testing.T) {
	local := localstore.NewMemory()
	built := 0
	reg := NewRegistry(2, time.Hour, func(string) *Store {
		built++
		return New(Options{Local: local, Location: time.UTC})
	}, nil)

	id, s, created := reg.Open("")
	if id == "" || s == nil || !created {
		t.Fatalf("Open(\"\") = %q, %v, %v", id, s, created)
	}
	again, s2, created := reg.Open(id)
	if again != id || s2 != s || created {
		t.Fatal("reopening a live id should return the same store")
	}
	if got, ok := reg.Lookup(id); !ok || got != s {
		t.Fatal("Lookup should find the live store")
	}
	if _, ok := reg.Lookup("unknown"); ok {
		t.Fatal("Lookup must not create")
	}

	done, err := s.Connect(context.Background(), ledger.Fallback())
	if err != nil {
		t.Fatal(err)
	}
	wait(t, done)

	reg.Close(id)
	if s.State() != Disconnected {
		t.Error("closing a session should disconnect its store")
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}
	if built != 1 {
		t.Errorf("factory called %d times, want 1", built)
	}
}

func TestRegistryEvictsOldestSession(t *testing.T) {
	reg := NewRegistry(1, time.Hour, func(string) *Store {
		return New(Options{Location: time.UTC})
	}, nil)

	firstID, first, _ := reg.Open("")
	done, err := first.Connect(context.Background(), ledger.Fallback())
	if err != nil {
		t.Fatal(err)
	}
	wait(t, done)

	reg.Open("")
	if first.State() != Disconnected {
		t.Error("evicted session should be disconnected")
	}
	if _, ok := reg.Lookup(firstID); ok {
		t.Error("first should be gone")
	}

	reg.Shutdown()
	if reg.Len() != 0 {
		t.Errorf("Len() after Shutdown = %d", reg.Len())
	}
}

func TestRegistryRejectsChosenIDs(t *testing.T) {
	reg := NewRegistry(4, time.Hour, func(string) *Store {
		return New(Options{Location: time.UTC})
	}, nil)

	for _, raw := range []string{"admin", "../etc", "a b", "6f1c2b9e"} {
		id, _, created := reg.Open(raw)
		if id == raw || !created {
			t.Errorf("Open(%q) = %q, created %v; want a fresh id", raw, id, created)
		}
		if _, err := uuid.Parse(id); err != nil {
			t.Errorf("Open(%q) issued %q, not a UUID", raw, id)
		}
	}

	const valid = "6f1c2b9e-3d4a-4c5b-8e7f-0a1b2c3d4e5f"
	id, s, created := reg.Open(valid)
	if id != valid || !created {
		t.Fatalf("Open(%q) = %q, created %v", valid, id, created)
	}
	if again, s2, _ := reg.Open(strings.ToUpper(valid)); again != valid || s2 != s {
		t.Errorf("upper-case form should map to the same session, got %q", again)
	}
}
