// ABOUTME: Error taxonomy for the persistence layer
// ABOUTME: Sentinels, PoolInitError and structured missing-table classification per backend

package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("not found")

// ErrPersistenceDisabled is returned when no pool is available, usually
// because initialization failed.
var ErrPersistenceDisabled = errors.New("persistence disabled: no connection pool")

// ErrPoolClosed is returned by Acquire after Close.
var ErrPoolClosed = errors.New("connection pool closed")

// ErrPoolExhausted is returned when every connection stayed checked out for the
// whole connect timeout.
var ErrPoolExhausted = errors.New("connection pool exhausted")

// ErrConnectTimeout is returned when a new connection could not be established
// within the connect timeout.
var ErrConnectTimeout = errors.New("connection timeout")

// ErrSchemaMissing is returned when an operation hit a missing table. The table
// has been recreated by the time the caller sees this error, so retrying is safe.
var ErrSchemaMissing = errors.New("table was missing and has been created")

// PoolInitError reports a pool that could not be built. Persistence stays
// disabled until a later Init succeeds.
type PoolInitError struct {
	Backend Backend
	Err     error
}

func (e *PoolInitError) Error() string {
	return fmt.Sprintf("initializing %s pool: %v", e.Backend, e.Err)
}

func (e *PoolInitError) Unwrap() error {
	return e.Err
}

// PostgreSQL SQLSTATE codes the store reacts to.
const (
	pgUndefinedTable  = "42P01"
	pgDuplicateTable  = "42P07"
	pgUniqueViolation = "23505"
)

// IsMissingTable reports whether err means the score table does not exist.
//
// PostgreSQL carries SQLSTATE 42P01. SQLite only has the generic SQLITE_ERROR
// result code for this, so the message is checked once the code matches.
func IsMissingTable(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUndefinedTable
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code()&0xff == sqlite3.SQLITE_ERROR &&
			strings.Contains(liteErr.Error(), "no such table")
	}

	return false
}

// isConcurrentCreate reports whether a CREATE TABLE IF NOT EXISTS lost a race
// with another session creating the same table. PostgreSQL can surface this as
// a duplicate table or as a unique violation on its catalog.
func isConcurrentCreate(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgDuplicateTable || pgErr.Code == pgUniqueViolation
	}
	return false
}
