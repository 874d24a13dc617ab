// Package http serves the session store over a JSON API.
//
// This file implements utilities for parsing and validating request data:
// the session header, query filters, path ids and expense bodies sent as
// either JSON or form-encoded data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cast"

	"ledgerview/internal/core"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 64 << 10

var errInvalidBody = errors.New("invalid request body")

// sessionIDFrom returns the session id the client sent, if any.
func sessionIDFrom(r *http.Request) string {
	return sanitizeInput(r.Header.Get(SessionHeader))
}

// parseCategoryFilter reads the optional category query parameter. A missing
// value or 0 means all categories.
func parseCategoryFilter(query url.Values) (core.Category, error) {
	raw := strings.TrimSpace(query.Get("category"))
	if raw == "" {
		return core.AllCategories, nil
	}
	n, err := cast.ToIntE(raw)
	if err != nil {
		return 0, fmt.Errorf("category must be a number: %w", err)
	}
	c := core.Category(n)
	if c != core.AllCategories && !c.Known() {
		return 0, core.ErrInvalidCategory
	}
	return c, nil
}

// parseRecordID reads a positive record id from a path value.
func parseRecordID(raw string) (int64, error) {
	id, err := cast.ToInt64E(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid record id %q", raw)
	}
	return id, nil
}

// RequestBodyParser reads a request body once and exposes its fields,
// whether the client sent JSON or form-encoded data.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

// NewRequestBodyParser reads up to maxBodyBytes of the request body.
func NewRequestBodyParser(w http.ResponseWriter, r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	p.body, p.err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body. An empty body parses to no fields.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true

	if p.err != nil {
		return p.err
	}
	body := strings.TrimSpace(string(p.body))
	if body == "" {
		p.formData = url.Values{}
		return nil
	}

	if body[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(body), &p.jsonData); err != nil {
			p.err = fmt.Errorf("%w: %v", errInvalidBody, err)
		}
		return p.err
	}
	if body[0] == '[' {
		p.err = fmt.Errorf("%w: expected an object", errInvalidBody)
		return p.err
	}

	p.formData, p.err = url.ParseQuery(body)
	if p.err != nil {
		p.err = fmt.Errorf("%w: %v", errInvalidBody, p.err)
	}
	return p.err
}

// Get returns a field as a sanitized string. JSON numbers and booleans are
// converted; objects and arrays read as empty.
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if val, ok := p.jsonData[key]; ok {
			s, err := cast.ToStringE(val)
			if err != nil {
				return ""
			}
			return sanitizeInput(s)
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

// IsJSON returns true if the parsed content was JSON.
func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// RecordInput collects the expense fields.
func (p *RequestBodyParser) RecordInput() core.RecordInput {
	return core.RecordInput{
		Amount:      p.Get("amount"),
		Description: p.Get("description"),
		Category:    p.Get("category"),
		Date:        p.Get("date"),
	}
}

// connectMode is the identity a connect request asks for.
type connectMode string

const (
	modeRemote   connectMode = "remote"
	modeFallback connectMode = "fallback"
)

func (p *RequestBodyParser) ConnectMode() (connectMode, error) {
	switch m := connectMode(strings.ToLower(p.Get("mode"))); m {
	case "", modeRemote:
		return modeRemote, nil
	case modeFallback:
		return modeFallback, nil
	default:
		return "", fmt.Errorf("unknown connect mode %q", m)
	}
}
