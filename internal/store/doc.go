// Package store provides the shared score table for scoreboard-sync.
//
// # Architecture
//
//   - SelectBackend: turns configuration into a PoolConfig for one of two topologies
//   - Pool: bounded database/sql pool with Acquire/Release and a connect timeout
//   - Manager: owns the current Pool; Init closes the previous pool first
//   - SchemaManager: idempotent, concurrency-safe CREATE TABLE IF NOT EXISTS
//   - Store: RecordStore over the Manager's pool
//
// # Backends
//
// Embedded uses modernc.org/sqlite on a single file below the data directory.
// The pool is capped at one connection. Networked uses PostgreSQL through the
// pgx stdlib driver with full pool limits (min idle, max size, connect timeout).
//
// # Table
//
//	CREATE TABLE IF NOT EXISTS scoreboard_data (
//	    instance_name VARCHAR(64),
//	    board_name    VARCHAR(64),
//	    entry_key     VARCHAR(255),
//	    value         DOUBLE | DOUBLE PRECISION,
//	    push_flag     BOOLEAN DEFAULT TRUE,
//	    PRIMARY KEY (instance_name, board_name, entry_key)
//	)
//
// # Error Handling
//
//   - ErrNotFound: no row for the requested triple
//   - ErrSchemaMissing: the table was missing and has been recreated; retry
//   - ErrPersistenceDisabled: no pool (initialization failed or not yet run)
//   - ErrPoolExhausted, ErrConnectTimeout, ErrPoolClosed: Acquire failures
//   - *PoolInitError: returned by Manager.Init
//
// Missing-table detection inspects structured driver errors (SQLSTATE 42P01 on
// PostgreSQL, SQLITE_ERROR on SQLite) through IsMissingTable.
//
// # Testing
//
// Use NewMockStore() for unit tests of code that only needs a RecordStore.
// Use an embedded PoolConfig pointing into t.TempDir() for integration tests.
package store
