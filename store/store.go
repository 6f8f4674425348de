// Package store persists the key-store blob. The blob is a single opaque
// JSON document kept under a fixed name; backends differ only in where that
// name lives (an in-memory map, a local SQLite table, Vault KV v2, S3).
package store

import (
	"context"
	"errors"
	"sync"
)

// BlobName is the fixed key under which the key-store blob is persisted in
// every backend.
const BlobName = "securecore.keystore"

// ErrNotFound is returned by Load when no blob has been saved yet.
var ErrNotFound = errors.New("key store blob not found")

// ErrUnavailable is returned when a backend cannot be reached.
var ErrUnavailable = errors.New("key store backend unavailable")

// Store loads and saves the key-store blob. Implementations must treat the
// blob as opaque.
type Store interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, blob []byte) error
}

// Memory is an in-process Store for tests.
type Memory struct {
	mu   sync.RWMutex
	blob []byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Load(_ context.Context) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.blob == nil {
		return nil, ErrNotFound
	}
	out := make([]byte, len(m.blob))
	copy(out, m.blob)
	return out, nil
}

func (m *Memory) Save(_ context.Context, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blob = make([]byte, len(blob))
	copy(m.blob, blob)
	return nil
}
