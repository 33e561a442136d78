// ABOUTME: Store types for scoreboard-sync persistence
// ABOUTME: Defines Record and the RecordStore interface implemented by Store and MockStore

package store

import (
	"context"
	"log/slog"
)

// Record is one row of the shared score table.
type Record struct {
	InstanceID string
	Board      string
	Key        string
	Value      float64

	// PushFlag true means the row is pending delivery into the instance's live
	// state. False means it was written from live state and must not be
	// re-applied on pull.
	PushFlag bool
}

// RecordStore defines the operations the sync engine needs from persistence
type RecordStore interface {
	// Upsert inserts the record or overwrites value and push flag of the
	// existing row with the same (instance, board, key).
	Upsert(ctx context.Context, rec Record) error

	// Get returns the record for (instance, board, key) or ErrNotFound.
	Get(ctx context.Context, instanceID, board, key string) (*Record, error)

	// ListForInstance returns every record written for or to instanceID.
	ListForInstance(ctx context.Context, instanceID string) ([]Record, error)
}

// Store implements RecordStore over the pool held by a Manager. Any operation
// that finds the table missing recreates it and returns ErrSchemaMissing.
type Store struct {
	pools  *Manager
	schema *SchemaManager
	logger *slog.Logger
}

// New creates a Store using the pools held by m.
func New(m *Manager) *Store {
	return &Store{
		pools:  m,
		schema: NewSchemaManager(m),
		logger: slog.Default().With("component", "store"),
	}
}

// EnsureTable creates the score table if needed.
func (s *Store) EnsureTable(ctx context.Context) error {
	return s.schema.EnsureTable(ctx)
}
