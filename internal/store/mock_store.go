// ABOUTME: Mock RecordStore implementation for testing
// ABOUTME: In-memory rows with injectable per-key and per-call failures

package store

import (
	"context"
	"sort"
	"sync"
)

// MockStore is an in-memory RecordStore implementation for testing.
type MockStore struct {
	mu      sync.RWMutex
	records map[string]Record // keyed by instance + board + key

	// UpsertErr, when set, is consulted before every Upsert; a non-nil result fails that row.
	UpsertErr func(rec Record) error
	// ListErr fails every ListForInstance call when set.
	ListErr error

	upserts int
}

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		records: make(map[string]Record),
	}
}

func mockKey(instanceID, board, key string) string {
	return instanceID + "\x00" + board + "\x00" + key
}

// Upsert stores or overwrites a record.
func (m *MockStore) Upsert(ctx context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.upserts++
	if m.UpsertErr != nil {
		if err := m.UpsertErr(rec); err != nil {
			return err
		}
	}
	m.records[mockKey(rec.InstanceID, rec.Board, rec.Key)] = rec
	return nil
}

// Get retrieves a record or ErrNotFound.
func (m *MockStore) Get(ctx context.Context, instanceID, board, key string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[mockKey(instanceID, board, key)]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// ListForInstance returns the instance's records ordered by board and key.
func (m *MockStore) ListForInstance(ctx context.Context, instanceID string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.ListErr != nil {
		return nil, m.ListErr
	}

	var out []Record
	for _, rec := range m.records {
		if rec.InstanceID == instanceID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Board != out[j].Board {
			return out[i].Board < out[j].Board
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

// UpsertCalls returns how many times Upsert was attempted.
func (m *MockStore) UpsertCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.upserts
}

// Len returns the number of stored records.
func (m *MockStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records)
}
