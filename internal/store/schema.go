// ABOUTME: Schema management for the shared score table
// ABOUTME: Idempotent CREATE TABLE IF NOT EXISTS with concurrent callers coalesced

package store

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"
)

// TableName is the shared score table.
const TableName = "scoreboard_data"

// SchemaManager creates the score table on demand.
type SchemaManager struct {
	pools  *Manager
	group  singleflight.Group
	logger *slog.Logger
}

// NewSchemaManager creates a SchemaManager over the pools held by m.
func NewSchemaManager(m *Manager) *SchemaManager {
	return &SchemaManager{
		pools:  m,
		logger: slog.Default().With("component", "schema"),
	}
}

// createTableSQL returns the DDL for the backend.
func createTableSQL(b Backend) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			instance_name VARCHAR(64) NOT NULL,
			board_name    VARCHAR(64) NOT NULL,
			entry_key     VARCHAR(255) NOT NULL,
			value         %s,
			push_flag     BOOLEAN DEFAULT TRUE,
			PRIMARY KEY (instance_name, board_name, entry_key)
		)`, TableName, b.valueType())
}

// EnsureTable creates the score table if it does not exist. Concurrent callers
// share a single statement.
func (s *SchemaManager) EnsureTable(ctx context.Context) error {
	_, err, shared := s.group.Do(TableName, func() (any, error) {
		return nil, s.createTable(ctx)
	})
	if shared {
		s.logger.Debug("ensure table coalesced with in-flight call")
	}
	return err
}

func (s *SchemaManager) createTable(ctx context.Context) error {
	pool, err := s.pools.Pool()
	if err != nil {
		return err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection for schema: %w", err)
	}
	defer pool.Release(conn)

	if _, err := conn.ExecContext(ctx, createTableSQL(pool.Backend())); err != nil {
		if isConcurrentCreate(err) {
			s.logger.Debug("table created concurrently by another session")
			return nil
		}
		return fmt.Errorf("creating table %s: %w", TableName, err)
	}

	s.logger.Debug("table ensured", "table", TableName)
	return nil
}
