// ABOUTME: Reconciliation between live scoreboard state and the shared score table
// ABOUTME: Pull applies pending rows locally, Push upserts local truth with push_flag=false

package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/2389/scoreboard-sync/internal/dedupe"
	"github.com/2389/scoreboard-sync/internal/metrics"
	"github.com/2389/scoreboard-sync/internal/scoreboard"
	"github.com/2389/scoreboard-sync/internal/store"
)

// PassReport summarizes one pull or push.
type PassReport struct {
	// Rows is the number of rows considered.
	Rows int
	// Applied is the number of rows written (upserted on push, set locally on pull).
	Applied int
	// Skipped counts pulled rows whose board does not exist locally.
	Skipped int
	// Failed counts rows that hit an error.
	Failed int
	// SchemaRecovered is set when the table was missing and has been recreated.
	SchemaRecovered bool
	// Err is the error that aborted the pass, if any.
	Err error
}

// Engine reconciles live state with the shared table for one instance at a time.
type Engine struct {
	records store.RecordStore
	state   scoreboard.Accessor
	exec    scoreboard.Executor
	logger  *slog.Logger

	// missing reports each absent board once per window instead of every pass.
	missing *dedupe.Window
}

const (
	missingBoardWindow = 30 * time.Minute
	missingBoardMax    = 1024
)

// New creates an Engine. Every call into state goes through exec.
func New(records store.RecordStore, state scoreboard.Accessor, exec scoreboard.Executor, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		records: records,
		state:   state,
		exec:    exec,
		logger:  logger.With("component", "syncer"),
		missing: dedupe.New(missingBoardWindow, missingBoardMax),
	}
}

// RoundScore converts a stored value to a live score: round half away from
// zero, clamped to the 32-bit range live scores use. NaN maps to 0.
func RoundScore(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	r := math.Round(v)
	if r > math.MaxInt32 {
		return math.MaxInt32
	}
	if r < math.MinInt32 {
		return math.MinInt32
	}
	return int(r)
}

type snapshotRow struct {
	board string
	key   string
	value int
}

// snapshot copies every explicitly set entry off the main loop.
func (e *Engine) snapshot(ctx context.Context) ([]snapshotRow, error) {
	var rows []snapshotRow
	err := e.exec.Do(ctx, func() {
		for _, board := range e.state.Boards() {
			for _, entry := range e.state.Entries(board) {
				rows = append(rows, snapshotRow{board: board, key: entry.Key, value: entry.Value})
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Push writes every explicitly set local entry to the shared table with
// push_flag=false. Row failures are logged and skipped. A missing table is
// recreated and ends the pass; remaining rows go out on the next pass.
func (e *Engine) Push(ctx context.Context, instanceID string) PassReport {
	var report PassReport

	rows, err := e.snapshot(ctx)
	if err != nil {
		e.logger.Warn("push: reading live state failed", "instance", instanceID, "error", err)
		report.Err = fmt.Errorf("snapshot: %w", err)
		return report
	}
	report.Rows = len(rows)

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			report.Err = err
			return report
		}

		err := e.records.Upsert(ctx, store.Record{
			InstanceID: instanceID,
			Board:      row.board,
			Key:        row.key,
			Value:      float64(row.value),
			PushFlag:   false,
		})
		switch {
		case err == nil:
			report.Applied++
			metrics.RowsPushed.Inc()
		case errors.Is(err, store.ErrSchemaMissing):
			metrics.SchemaRecoveries.Inc()
			e.logger.Warn("push: table was missing and has been created, remaining rows wait for next pass",
				"instance", instanceID,
				"pending", len(rows)-report.Applied,
			)
			report.SchemaRecovered = true
			report.Err = err
			return report
		default:
			report.Failed++
			metrics.RowsFailed.Inc()
			e.logger.Warn("push: failed to push entry",
				"instance", instanceID,
				"board", row.board,
				"key", row.key,
				"error", err,
			)
		}
	}

	e.logger.Debug("push complete", "instance", instanceID, "rows", report.Rows, "failed", report.Failed)
	return report
}

// Pull applies every push_flag=true row for instanceID to live state. Rows for
// boards that do not exist locally are skipped. A query failure aborts the pull.
func (e *Engine) Pull(ctx context.Context, instanceID string) PassReport {
	var report PassReport

	records, err := e.records.ListForInstance(ctx, instanceID)
	if err != nil {
		metrics.PullFailures.Inc()
		if errors.Is(err, store.ErrSchemaMissing) {
			metrics.SchemaRecoveries.Inc()
			report.SchemaRecovered = true
			e.logger.Warn("pull: table was missing and has been created", "instance", instanceID)
		} else {
			e.logger.Warn("pull: failed to query records", "instance", instanceID, "error", err)
		}
		report.Err = err
		return report
	}

	pending := make([]store.Record, 0, len(records))
	for _, rec := range records {
		if rec.PushFlag {
			pending = append(pending, rec)
		}
	}
	report.Rows = len(pending)
	if len(pending) == 0 {
		return report
	}

	var absent []string
	err = e.exec.Do(ctx, func() {
		for _, rec := range pending {
			if math.IsNaN(rec.Value) || math.IsInf(rec.Value, 0) {
				report.Failed++
				continue
			}
			if !e.state.HasBoard(rec.Board) {
				report.Skipped++
				absent = append(absent, rec.Board)
				continue
			}
			if err := e.state.SetScore(rec.Board, rec.Key, RoundScore(rec.Value)); err != nil {
				report.Skipped++
				continue
			}
			report.Applied++
		}
	})
	if err != nil {
		e.logger.Warn("pull: applying to live state failed", "instance", instanceID, "error", err)
		report.Err = fmt.Errorf("apply: %w", err)
		return report
	}

	metrics.RowsPulled.Add(report.Applied)
	metrics.BoardsMissing.Add(report.Skipped)
	metrics.RowsFailed.Add(report.Failed)
	for _, board := range absent {
		if e.missing.First(instanceID + "\x00" + board) {
			e.logger.Info("pull: board not present locally, its rows stay pending",
				"instance", instanceID,
				"board", board,
			)
		}
	}
	if report.Skipped > 0 {
		e.logger.Debug("pull: skipped rows for boards not present locally", "instance", instanceID, "skipped", report.Skipped)
	}
	e.logger.Debug("pull complete", "instance", instanceID, "applied", report.Applied)
	return report
}

// RunPass pulls then pushes. It never returns an error; failures are in the reports.
func (e *Engine) RunPass(ctx context.Context, instanceID string) (pull, push PassReport) {
	pull = e.Pull(ctx, instanceID)
	push = e.Push(ctx, instanceID)
	return pull, push
}

// SetValue writes a single value as locally authoritative (push_flag=false).
func (e *Engine) SetValue(ctx context.Context, instanceID, board, key string, value float64) error {
	err := e.records.Upsert(ctx, store.Record{
		InstanceID: instanceID,
		Board:      board,
		Key:        key,
		Value:      value,
		PushFlag:   false,
	})
	if errors.Is(err, store.ErrSchemaMissing) {
		metrics.SchemaRecoveries.Inc()
	}
	return err
}

// GetValue reads a single value. Returns store.ErrNotFound if absent.
func (e *Engine) GetValue(ctx context.Context, instanceID, board, key string) (float64, error) {
	rec, err := e.records.Get(ctx, instanceID, board, key)
	if err != nil {
		if errors.Is(err, store.ErrSchemaMissing) {
			metrics.SchemaRecoveries.Inc()
		}
		return 0, err
	}
	return rec.Value, nil
}
