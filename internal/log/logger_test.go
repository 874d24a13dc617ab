package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Component: ComponentSession, Output: &buf})
	l.Info("loaded", FieldRecordCount, 3)
	out := buf.String()
	if !strings.Contains(out, "component=session") || !strings.Contains(out, "record_count=3") {
		t.Fatalf("unexpected output %q", out)
	}

	buf.Reset()
	l.WithComponent(ComponentLedger).Debug("view")
	if !strings.Contains(buf.String(), "component=ledger") {
		t.Fatalf("WithComponent not applied: %q", buf.String())
	}
}

func TestLogOperationError(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Component: ComponentSession, Output: &buf})
	l.LogOperationError(context.Background(), "add failed", errors.New("boom"), OpAdd, NewFields().WithRecord(0, 2500, 1))
	out := buf.String()
	for _, want := range []string{"error=boom", "operation=add", "amount_cents=2500", "category=1"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in %q", want, out)
		}
	}
	if strings.Contains(out, "record_id") {
		t.Errorf("zero record id should be omitted: %q", out)
	}
}

func TestMiddlewarePropagatesLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Component: ComponentHTTP, Output: &buf})

	h := Middleware(l)(SessionMiddleware(func(r *http.Request) string {
		return r.Header.Get("X-Session-ID")
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("handled")
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Session-ID", "abc")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), "session_id=abc") {
		t.Fatalf("session id not attached: %q", buf.String())
	}
}

func TestFromContextDefault(t *testing.T) {
	if got := FromContext(context.Background()); got.Component() != "unknown" {
		t.Fatalf("component = %q", got.Component())
	}
}
