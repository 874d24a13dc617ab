package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"ledgerview/internal/core"
)

func TestParseCategoryFilter(t *testing.T) {
	tests := []struct {
		query   string
		want    core.Category
		wantErr bool
	}{
		{query: "", want: core.AllCategories},
		{query: "category=0", want: core.AllCategories},
		{query: "category=3", want: core.Entertainment},
		{query: "category=%208%20", want: core.Other},
		{query: "category=9", wantErr: true},
		{query: "category=food", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			q, _ := url.ParseQuery(tt.query)
			got, err := parseCategoryFilter(q)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		isJSON bool
		want   core.RecordInput
	}{
		{
			name:   "json with numbers",
			body:   `{"amount": 19.99, "description": " Lunch\u0007 ", "category": 1, "date": "2024-01-15"}`,
			isJSON: true,
			want:   core.RecordInput{Amount: "19.99", Description: "Lunch", Category: "1", Date: "2024-01-15"},
		},
		{
			name: "form",
			body: "amount=12%2C50&description=Bus&category=2&date=2024-02-01",
			want: core.RecordInput{Amount: "12,50", Description: "Bus", Category: "2", Date: "2024-02-01"},
		},
		{
			name:   "json object field",
			body:   `{"amount": {"v": 1}, "description": "x"}`,
			isJSON: true,
			want:   core.RecordInput{Description: "x"},
		},
		{
			name: "empty",
			body: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/expenses", strings.NewReader(tt.body))
			p := NewRequestBodyParser(httptest.NewRecorder(), r)
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if p.IsJSON() != tt.isJSON {
				t.Errorf("IsJSON() = %v", p.IsJSON())
			}
			if got := p.RecordInput(); got != tt.want {
				t.Errorf("RecordInput() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestConnectMode(t *testing.T) {
	tests := []struct {
		body    string
		want    connectMode
		wantErr bool
	}{
		{body: "", want: modeRemote},
		{body: `{"mode":"REMOTE"}`, want: modeRemote},
		{body: "mode=fallback", want: modeFallback},
		{body: `{"mode":"wallet"}`, wantErr: true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodPost, "/session/connect", strings.NewReader(tt.body))
		p := NewRequestBodyParser(httptest.NewRecorder(), r)
		if err := p.Parse(); err != nil {
			t.Fatalf("%q: %v", tt.body, err)
		}
		got, err := p.ConnectMode()
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("%q: got %q, %v", tt.body, got, err)
		}
	}
}

func TestParseRecordID(t *testing.T) {
	if id, err := parseRecordID("42"); err != nil || id != 42 {
		t.Errorf("parseRecordID(42) = %d, %v", id, err)
	}
	for _, raw := range []string{"", "0", "-1", "1.5", "x"} {
		if _, err := parseRecordID(raw); err == nil {
			t.Errorf("parseRecordID(%q) should fail", raw)
		}
	}
}

func TestSanitizeInput(t *testing.T) {
	if got := sanitizeInput("  a\x00b\tc\n "); got != "ab\tc" {
		t.Errorf("sanitizeInput() = %q", got)
	}
}
