// ABOUTME: Process-wide counters for sync passes, rows and schema recovery
// ABOUTME: Exposed in Prometheus text format through VictoriaMetrics/metrics

package metrics

import (
	"io"
	"net/http"

	vm "github.com/VictoriaMetrics/metrics"
)

var (
	// PassesRun counts sync passes that started.
	PassesRun = vm.NewCounter(`scoreboard_sync_passes_total`)
	// PassesDropped counts triggers rejected because a pass was in flight.
	PassesDropped = vm.NewCounter(`scoreboard_sync_passes_dropped_total`)
	// PassDuration tracks wall time of whole passes.
	PassDuration = vm.NewSummary(`scoreboard_sync_pass_duration_seconds`)

	// RowsPushed counts rows upserted from live state.
	RowsPushed = vm.NewCounter(`scoreboard_sync_rows_pushed_total`)
	// RowsPulled counts rows applied to live state.
	RowsPulled = vm.NewCounter(`scoreboard_sync_rows_pulled_total`)
	// RowsFailed counts individual row failures in either direction.
	RowsFailed = vm.NewCounter(`scoreboard_sync_rows_failed_total`)
	// BoardsMissing counts pulled rows skipped because the board is not present locally.
	BoardsMissing = vm.NewCounter(`scoreboard_sync_boards_missing_total`)

	// SchemaRecoveries counts passes or commands that found the table missing.
	SchemaRecoveries = vm.NewCounter(`scoreboard_sync_schema_recoveries_total`)
	// PullFailures counts pull passes aborted by a query error.
	PullFailures = vm.NewCounter(`scoreboard_sync_pull_failures_total`)
)

// WritePrometheus writes every metric in Prometheus text format.
func WritePrometheus(w io.Writer) {
	vm.WritePrometheus(w, false)
}

// Handler serves WritePrometheus over HTTP.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		WritePrometheus(w)
	})
}
