package metrics

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWritePrometheus_IncludesCounters(t *testing.T) {
	PassesRun.Inc()

	var buf bytes.Buffer
	WritePrometheus(&buf)

	out := buf.String()
	assert.Contains(t, out, "scoreboard_sync_passes_total")
	assert.Contains(t, out, "scoreboard_sync_rows_pushed_total")
	assert.Contains(t, out, "scoreboard_sync_schema_recoveries_total")
}

func TestHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "scoreboard_sync_passes_dropped_total")
}
