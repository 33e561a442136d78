package command

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/scoreboard-sync/internal/identity"
	"github.com/2389/scoreboard-sync/internal/scoreboard"
	"github.com/2389/scoreboard-sync/internal/store"
	"github.com/2389/scoreboard-sync/internal/syncer"
)

type fakeTrigger struct {
	accept bool
	calls  int
}

func (f *fakeTrigger) TriggerNow() bool {
	f.calls++
	return f.accept
}

type failingEngine struct {
	err error
}

func (f failingEngine) SetValue(ctx context.Context, instanceID, board, key string, value float64) error {
	return f.err
}

func (f failingEngine) GetValue(ctx context.Context, instanceID, board, key string) (float64, error) {
	return 0, f.err
}

func newTestHandler(t *testing.T) (*Handler, *store.Store, *store.Manager, *fakeTrigger) {
	t.Helper()

	mgr := store.NewManager()
	require.NoError(t, mgr.Init(context.Background(), store.PoolConfig{
		Backend: store.BackendEmbedded,
		Path:    filepath.Join(t.TempDir(), "cmd.db"),
	}))
	t.Cleanup(func() { mgr.Close() })

	s := store.New(mgr)
	require.NoError(t, s.EnsureTable(context.Background()))

	engine := syncer.New(s, scoreboard.New(), scoreboard.Inline{}, nil)
	trigger := &fakeTrigger{accept: true}
	return NewHandler(engine, trigger, identity.New("lobby-1", nil)), s, mgr, trigger
}

func TestExecute_SaveThenGet(t *testing.T) {
	h, s, _, _ := newTestHandler(t)
	ctx := context.Background()

	res := h.Execute(ctx, []string{"save", "kills", "Alice", "5"})
	assert.True(t, res.OK)
	assert.Equal(t, "Value saved.", res.Message)

	rec, err := s.Get(ctx, "lobby-1", "kills", "Alice")
	require.NoError(t, err)
	assert.Equal(t, 5.0, rec.Value)
	assert.False(t, rec.PushFlag)

	res = h.Execute(ctx, []string{"GET", "kills", "Alice"})
	assert.True(t, res.OK)
	assert.Equal(t, "Value: 5", res.Message)
}

func TestExecute_GetMissing(t *testing.T) {
	h, _, _, _ := newTestHandler(t)

	res := h.Execute(context.Background(), []string{"get", "kills", "Nobody"})
	assert.False(t, res.OK)
	assert.Equal(t, "No value found.", res.Message)
}

func TestExecute_SaveRecoversMissingTable(t *testing.T) {
	h, _, mgr, _ := newTestHandler(t)
	ctx := context.Background()

	pool, err := mgr.Pool()
	require.NoError(t, err)
	conn, err := pool.Acquire(ctx)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, "DROP TABLE "+store.TableName)
	pool.Release(conn)
	require.NoError(t, err)

	res := h.Execute(ctx, []string{"save", "kills", "Alice", "5"})
	assert.False(t, res.OK)
	assert.Equal(t, "Table was missing and has been created. Please try again.", res.Message)

	res = h.Execute(ctx, []string{"save", "kills", "Alice", "5"})
	assert.True(t, res.OK)
}

func TestExecute_UsageAndValidation(t *testing.T) {
	h, _, _, _ := newTestHandler(t)
	ctx := context.Background()

	tests := []struct {
		args []string
		want string
	}{
		{nil, UsageRoot},
		{[]string{"save", "kills", "Alice"}, UsageSave},
		{[]string{"get", "kills"}, UsageGet},
		{[]string{"save", "kills", "Alice", "lots"}, "Value must be a number."},
		{[]string{"save", "kills", "Alice", "NaN"}, "Value must be a number."},
		{[]string{"frobnicate"}, "Unknown subcommand: frobnicate"},
	}
	for _, tt := range tests {
		res := h.Execute(ctx, tt.args)
		assert.False(t, res.OK, "args %v", tt.args)
		assert.Equal(t, tt.want, res.Message, "args %v", tt.args)
	}
}

func TestExecute_SyncNow(t *testing.T) {
	h, _, _, trigger := newTestHandler(t)

	res := h.Execute(context.Background(), []string{"sync-now"})
	assert.True(t, res.OK)
	assert.Equal(t, "Sync triggered.", res.Message)

	trigger.accept = false
	res = h.Execute(context.Background(), []string{"sync-now"})
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "already in progress")
	assert.Equal(t, 2, trigger.calls)
}

func TestExecute_BackendFailureIsReportedInline(t *testing.T) {
	h := NewHandler(failingEngine{err: errors.New("connection refused")}, &fakeTrigger{}, identity.New("", nil))

	res := h.Execute(context.Background(), []string{"save", "kills", "Alice", "1"})
	assert.False(t, res.OK)
	assert.Equal(t, "Failed to save value: connection refused", res.Message)

	res = h.Execute(context.Background(), []string{"get", "kills", "Alice"})
	assert.False(t, res.OK)
	assert.Equal(t, "Failed to get value: connection refused", res.Message)
}

func TestComplete(t *testing.T) {
	h := NewHandler(nil, nil, nil)

	assert.Equal(t, Verbs, h.Complete([]string{""}))
	assert.Equal(t, []string{"sync-now", "save"}, reorder(h.Complete([]string{"s"})))
	assert.Equal(t, []string{"get"}, h.Complete([]string{"G"}))
	assert.Nil(t, h.Complete([]string{"save", "k"}))
}

// reorder puts sync-now first so the assertion does not depend on Verbs order.
func reorder(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "sync-now" {
			out = append([]string{v}, out...)
			continue
		}
		out = append(out, v)
	}
	return out
}
