// Package localstore is the on-device key-value blob store used by the
// fallback session. Writes replace the whole blob; the last write wins.
package localstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"ledgerview/internal/core"
)

// DefaultKey is the key under which the fallback collection is kept.
const DefaultKey = "demoExpenses"

// ErrCorruptBlob means a stored blob could not be decoded into records.
var ErrCorruptBlob = errors.New("localstore: corrupt blob")

// Store gets and sets opaque blobs by key.
type Store interface {
	// Get returns the blob and true, or nil and false when key is absent.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, blob []byte) error
}

// EncodeRecords serializes a collection as an ordered JSON array.
func EncodeRecords(records []core.Record) ([]byte, error) {
	if records == nil {
		records = []core.Record{}
	}
	b, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	return b, nil
}

// DecodeRecords parses a blob written by EncodeRecords and checks every
// record's invariants.
func DecodeRecords(blob []byte) ([]core.Record, error) {
	var records []core.Record
	if err := json.Unmarshal(blob, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptBlob, err)
	}
	for i, r := range records {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrCorruptBlob, i, err)
		}
	}
	if records == nil {
		records = []core.Record{}
	}
	return records, nil
}

// Memory is a Store kept in process memory.
type Memory struct {
	mu     sync.RWMutex
	blobs  map[string][]byte
	setErr error
	getErr error
}

func NewMemory() *Memory {
	return &Memory{blobs: make(map[string][]byte)}
}

// FailSet makes every Set return err until cleared with nil.
func (m *Memory) FailSet(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setErr = err
}

// FailGet makes every Get return err until cleared with nil.
func (m *Memory) FailGet(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getErr = err
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	b, ok := m.blobs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), b...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.blobs[key] = append([]byte(nil), blob...)
	return nil
}
