package notify

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"ledgerview/internal/log"
)

func TestBufferKeepsMostRecent(t *testing.T) {
	b := NewBuffer(3)
	for i := 1; i <= 5; i++ {
		b.Notify(context.Background(), New(KindInfo, "load", fmt.Sprintf("n%d", i)))
	}
	got := b.List()
	if len(got) != 3 {
		t.Fatalf("len = %d", len(got))
	}
	for i, want := range []string{"n3", "n4", "n5"} {
		if got[i].Message != want {
			t.Fatalf("item %d = %q, want %q", i, got[i].Message, want)
		}
	}

	drained := b.Drain()
	if len(drained) != 3 || len(b.List()) != 0 {
		t.Fatalf("drain left %d items", len(b.List()))
	}

	b.Notify(context.Background(), New(KindSuccess, "add", "after"))
	if got := b.List(); len(got) != 1 || got[0].Message != "after" {
		t.Fatalf("after drain: %+v", got)
	}
}

func TestNewAssignsID(t *testing.T) {
	a, b := New(KindInfo, "x", "a"), New(KindInfo, "x", "b")
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("ids %q %q", a.ID, b.ID)
	}
	if a.At.IsZero() {
		t.Fatal("missing timestamp")
	}
}

func TestMultiAndWithSession(t *testing.T) {
	b1, b2 := NewBuffer(4), NewBuffer(4)
	n := WithSession("s-1", Multi{b1, nil, b2})
	n.Notify(context.Background(), New(KindError, "delete", "failed"))

	for _, b := range []*Buffer{b1, b2} {
		got := b.List()
		if len(got) != 1 || got[0].SessionID != "s-1" || got[0].Kind != KindError {
			t.Fatalf("got %+v", got)
		}
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	l := NewLog(log.New(log.Config{Output: &buf}))
	n := New(KindError, "add", "Failed to add expense")
	n.Code = "submission_failed"
	l.Notify(context.Background(), n)

	out := buf.String()
	for _, want := range []string{"level=WARN", "notice_kind=error", "operation=add", "code=submission_failed", "component=notify"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
}
