// ABOUTME: SQL implementation of score record upsert, point read and per-instance listing
// ABOUTME: Queries are written once with ? placeholders and rebound per backend

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const (
	upsertSQL = `
		INSERT INTO scoreboard_data (instance_name, board_name, entry_key, value, push_flag)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (instance_name, board_name, entry_key)
		DO UPDATE SET value = excluded.value, push_flag = excluded.push_flag
	`

	getSQL = `
		SELECT value, push_flag
		FROM scoreboard_data
		WHERE instance_name = ? AND board_name = ? AND entry_key = ?
	`

	listSQL = `
		SELECT board_name, entry_key, value, push_flag
		FROM scoreboard_data
		WHERE instance_name = ?
		ORDER BY board_name, entry_key
	`
)

// withConn runs fn on a pooled connection. A missing-table failure triggers
// one EnsureTable and is reported as ErrSchemaMissing.
func (s *Store) withConn(ctx context.Context, fn func(conn *sql.Conn, b Backend) error) error {
	pool, err := s.pools.Pool()
	if err != nil {
		return err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	err = fn(conn, pool.Backend())
	pool.Release(conn)

	if err == nil || !IsMissingTable(err) {
		return err
	}

	s.logger.Warn("score table missing, recreating", "error", err)
	if healErr := s.schema.EnsureTable(ctx); healErr != nil {
		return errors.Join(ErrSchemaMissing, fmt.Errorf("recreating table: %w", healErr))
	}
	return fmt.Errorf("%w: %v", ErrSchemaMissing, err)
}

// Upsert inserts or overwrites a score record.
func (s *Store) Upsert(ctx context.Context, rec Record) error {
	return s.withConn(ctx, func(conn *sql.Conn, b Backend) error {
		_, err := conn.ExecContext(ctx, b.rebind(upsertSQL),
			rec.InstanceID,
			rec.Board,
			rec.Key,
			rec.Value,
			rec.PushFlag,
		)
		if err != nil {
			return fmt.Errorf("upserting %s/%s: %w", rec.Board, rec.Key, err)
		}
		return nil
	})
}

// Get retrieves a single score record.
// Returns ErrNotFound if no row exists for the triple.
func (s *Store) Get(ctx context.Context, instanceID, board, key string) (*Record, error) {
	rec := &Record{InstanceID: instanceID, Board: board, Key: key}

	err := s.withConn(ctx, func(conn *sql.Conn, b Backend) error {
		var pushFlag sql.NullBool
		err := conn.QueryRowContext(ctx, b.rebind(getSQL), instanceID, board, key).Scan(
			&rec.Value,
			&pushFlag,
		)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("querying %s/%s: %w", board, key, err)
		}
		rec.PushFlag = !pushFlag.Valid || pushFlag.Bool
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListForInstance retrieves all score records for an instance ordered by board and key.
func (s *Store) ListForInstance(ctx context.Context, instanceID string) ([]Record, error) {
	var records []Record

	err := s.withConn(ctx, func(conn *sql.Conn, b Backend) error {
		rows, err := conn.QueryContext(ctx, b.rebind(listSQL), instanceID)
		if err != nil {
			return fmt.Errorf("querying records: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			rec := Record{InstanceID: instanceID}
			var pushFlag sql.NullBool
			if err := rows.Scan(&rec.Board, &rec.Key, &rec.Value, &pushFlag); err != nil {
				return fmt.Errorf("scanning record: %w", err)
			}
			rec.PushFlag = !pushFlag.Valid || pushFlag.Bool
			records = append(records, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
