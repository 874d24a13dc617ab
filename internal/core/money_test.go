package core

import (
	"encoding/json"
	"testing"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out int64
		ok  bool
	}{
		{"1", 100, true},
		{"25.00", 2500, true},
		{"1.23", 123, true},
		{"1,23", 123, true},
		{"0.01", 1, true},
		{" 2.50 ", 250, true},
		{"19.999", 2000, true}, // rounds, never truncates
		{"12.344", 1234, true},
		{"-1", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
		{"1.2.3", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"", 0, false},
		{".5", 50, true},
		{"0x1p4", 0, false},
		{"1e3", 0, false},
		{"1E3", 0, false},
		{"+5", 0, false},
		{"1_000", 0, false},
		{".", 0, false},
		{"1,000.50", 0, false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.Cents != tc.out {
				t.Fatalf("%q expected %d, got %d (err=%v)", tc.in, tc.out, got.Cents, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestMoneyFormatting(t *testing.T) {
	cases := []struct {
		cents int64
		major string
		str   string
	}{
		{0, "0.00", "$0.00"},
		{5, "0.05", "$0.05"},
		{2500, "25.00", "$25.00"},
		{123456, "1234.56", "$1234.56"},
		{-150, "-1.50", "-$1.50"},
	}
	for _, tc := range cases {
		m := Money{Cents: tc.cents}
		if got := m.Major(); got != tc.major {
			t.Errorf("Major(%d) = %q, want %q", tc.cents, got, tc.major)
		}
		if got := m.String(); got != tc.str {
			t.Errorf("String(%d) = %q, want %q", tc.cents, got, tc.str)
		}
	}
}

func TestMoneyJSONIsIntegerCents(t *testing.T) {
	b, err := json.Marshal(Record{ID: 1, Amount: Money{Cents: 2500}, Description: "x", Category: 1})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if raw["amount"] != float64(2500) {
		t.Fatalf("amount encoded as %v", raw["amount"])
	}
	if _, ok := raw["created_at"]; !ok {
		t.Fatalf("missing created_at in %s", b)
	}
}
