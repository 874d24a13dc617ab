package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"ledgerview/internal/core"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LEDGER_BACKEND", "none")
	t.Setenv("LOCAL_STORE", "sqlite")
	t.Setenv("SQLITE_DB_PATH", filepath.Join(t.TempDir(), "ledgerview.db"))
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("AMQP_URL", "")
}

func TestFallbackAddListDelete(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "--fallback", "add", "--amount", "12,50", "--description", "Lunch", "--category", "1", "--date", "2024-01-15")
	if err != nil {
		t.Fatalf("add: %v\n%s", err, out)
	}
	// an empty store starts from the sample collection, which is saved with the first add
	if !strings.Contains(out, "Saved expense #4: $12.50 Lunch") {
		t.Errorf("add output = %q", out)
	}

	out, err = run(t, "--fallback", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "Lunch") || !strings.Contains(out, "Jan 15, 2024") || strings.Contains(out, "sample data") {
		t.Errorf("list output = %q", out)
	}

	out, err = run(t, "--fallback", "summary", "--json")
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if !strings.Contains(out, `"amount": 1250`) {
		t.Errorf("summary output = %q", out)
	}

	out, err = run(t, "--fallback", "delete", "4")
	if err != nil || !strings.Contains(out, "Deleted expense #4.") {
		t.Fatalf("delete: %v %q", err, out)
	}
	out, err = run(t, "--fallback", "delete", "4")
	if err != nil || !strings.Contains(out, "No expense #4.") {
		t.Fatalf("second delete: %v %q", err, out)
	}
}

func TestRemoteWithoutLedgerSuggestsFallback(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "list")
	if err == nil || !strings.Contains(err.Error(), "--fallback") {
		t.Fatalf("err = %v", err)
	}
}

func TestAddValidation(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "--fallback", "add", "--amount=-3", "--description", "x", "--category", "1")
	var verr *core.ValidationError
	if err == nil || !errors.As(err, &verr) || verr.Field != "amount" {
		t.Fatalf("err = %v", err)
	}
}

func TestParseFilter(t *testing.T) {
	for raw, want := range map[string]core.Category{"": core.AllCategories, "0": core.AllCategories, "4": core.Bills} {
		if got, err := parseFilter(raw); err != nil || got != want {
			t.Errorf("parseFilter(%q) = %d, %v", raw, got, err)
		}
	}
	for _, raw := range []string{"9", "x"} {
		if _, err := parseFilter(raw); err == nil {
			t.Errorf("parseFilter(%q) should fail", raw)
		}
	}
}

func TestCategories(t *testing.T) {
	setupEnv(t)
	out, err := run(t, "categories")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Bills & Utilities") || !strings.Contains(out, "8") {
		t.Errorf("categories output = %q", out)
	}
}
