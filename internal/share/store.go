package share

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// Record is a snapshot as the store keeps it. Items is the JSON item list.
type Record struct {
	ShareID   string
	Items     json.RawMessage
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store persists snapshots keyed by share id.
//
// Put must fail with ErrShareIDTaken when the id is already stored. Get
// returns ErrNotFound for unknown ids.
type Store interface {
	Put(ctx context.Context, rec Record) error
	Get(ctx context.Context, shareID string) (Record, error)
	Delete(ctx context.Context, shareID string) error
	Exists(ctx context.Context, shareID string) (bool, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
	Ping(ctx context.Context) error
}

// MemoryStore keeps snapshots in process memory. Used when no database is
// configured and in tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (m *MemoryStore) Put(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[rec.ShareID]; ok {
		return ErrShareIDTaken
	}
	rec.Items = append(json.RawMessage(nil), rec.Items...)
	m.records[rec.ShareID] = rec
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, shareID string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[shareID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *MemoryStore) Delete(ctx context.Context, shareID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, shareID)
	return nil
}

func (m *MemoryStore) Exists(ctx context.Context, shareID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.records[shareID]
	return ok, nil
}

func (m *MemoryStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for id, rec := range m.records {
		if rec.ExpiresAt.Before(before) {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error { return nil }
