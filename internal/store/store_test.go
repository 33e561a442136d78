package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a Store over a temporary embedded database.
func setupTestStore(t *testing.T) (*Store, *Manager) {
	t.Helper()

	mgr := NewManager()
	err := mgr.Init(context.Background(), PoolConfig{
		Backend: BackendEmbedded,
		Path:    filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		mgr.Close()
	})

	s := New(mgr)
	require.NoError(t, s.EnsureTable(context.Background()))
	return s, mgr
}

// dropTable removes the score table behind the store's back.
func dropTable(t *testing.T, mgr *Manager) {
	t.Helper()

	pool, err := mgr.Pool()
	require.NoError(t, err)

	conn, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	defer pool.Release(conn)

	_, err = conn.ExecContext(context.Background(), "DROP TABLE "+TableName)
	require.NoError(t, err)
}

func TestStore_UpsertAndGet(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	err := s.Upsert(ctx, Record{InstanceID: "lobby-1", Board: "kills", Key: "Alice", Value: 5})
	require.NoError(t, err)

	got, err := s.Get(ctx, "lobby-1", "kills", "Alice")
	require.NoError(t, err)
	assert.Equal(t, 5.0, got.Value)
	assert.False(t, got.PushFlag)
	assert.Equal(t, "lobby-1", got.InstanceID)
}

func TestStore_UpsertIsIdempotent(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	rec := Record{InstanceID: "lobby-1", Board: "kills", Key: "Alice", Value: 5}
	require.NoError(t, s.Upsert(ctx, rec))
	require.NoError(t, s.Upsert(ctx, rec))

	rec.Value = 7
	rec.PushFlag = true
	require.NoError(t, s.Upsert(ctx, rec))

	records, err := s.ListForInstance(ctx, "lobby-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 7.0, records[0].Value)
	assert.True(t, records[0].PushFlag)
}

func TestStore_GetNotFound(t *testing.T) {
	s, _ := setupTestStore(t)

	_, err := s.Get(context.Background(), "lobby-1", "kills", "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListForInstanceFiltersAndOrders(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	for _, rec := range []Record{
		{InstanceID: "lobby-1", Board: "kills", Key: "Bob", Value: 3, PushFlag: true},
		{InstanceID: "lobby-1", Board: "deaths", Key: "Alice", Value: 1},
		{InstanceID: "lobby-1", Board: "kills", Key: "Alice", Value: 5},
		{InstanceID: "lobby-2", Board: "kills", Key: "Alice", Value: 99},
	} {
		require.NoError(t, s.Upsert(ctx, rec))
	}

	records, err := s.ListForInstance(ctx, "lobby-1")
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "deaths", records[0].Board)
	assert.Equal(t, "Alice", records[1].Key)
	assert.Equal(t, "Bob", records[2].Key)
	assert.True(t, records[2].PushFlag)
	for _, rec := range records {
		assert.Equal(t, "lobby-1", rec.InstanceID)
	}
}

func TestStore_PushFlagDefaultsTrueForExternalWriters(t *testing.T) {
	s, mgr := setupTestStore(t)
	ctx := context.Background()

	pool, err := mgr.Pool()
	require.NoError(t, err)
	conn, err := pool.Acquire(ctx)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx,
		"INSERT INTO scoreboard_data (instance_name, board_name, entry_key, value) VALUES (?, ?, ?, ?)",
		"lobby-1", "kills", "Carol", 12)
	pool.Release(conn)
	require.NoError(t, err)

	got, err := s.Get(ctx, "lobby-1", "kills", "Carol")
	require.NoError(t, err)
	assert.True(t, got.PushFlag)
	assert.Equal(t, 12.0, got.Value)
}

func TestStore_MissingTableIsRecreated(t *testing.T) {
	s, mgr := setupTestStore(t)
	ctx := context.Background()

	dropTable(t, mgr)

	err := s.Upsert(ctx, Record{InstanceID: "lobby-1", Board: "kills", Key: "Alice", Value: 5})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSchemaMissing)

	// The table is back, so the retry succeeds without intervention.
	require.NoError(t, s.Upsert(ctx, Record{InstanceID: "lobby-1", Board: "kills", Key: "Alice", Value: 5}))

	got, err := s.Get(ctx, "lobby-1", "kills", "Alice")
	require.NoError(t, err)
	assert.Equal(t, 5.0, got.Value)
}

func TestStore_MissingTableOnListAndGet(t *testing.T) {
	s, mgr := setupTestStore(t)
	ctx := context.Background()

	dropTable(t, mgr)
	_, err := s.ListForInstance(ctx, "lobby-1")
	assert.ErrorIs(t, err, ErrSchemaMissing)

	dropTable(t, mgr)
	_, err = s.Get(ctx, "lobby-1", "kills", "Alice")
	assert.ErrorIs(t, err, ErrSchemaMissing)

	_, err = s.Get(ctx, "lobby-1", "kills", "Alice")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_PersistenceDisabled(t *testing.T) {
	s := New(NewManager())

	err := s.Upsert(context.Background(), Record{InstanceID: "x", Board: "b", Key: "k"})
	assert.ErrorIs(t, err, ErrPersistenceDisabled)

	err = s.EnsureTable(context.Background())
	assert.ErrorIs(t, err, ErrPersistenceDisabled)
}

func TestSchema_EnsureTableConcurrent(t *testing.T) {
	s, _ := setupTestStore(t)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.EnsureTable(context.Background())
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestCreateTableSQL_ValueTypePerBackend(t *testing.T) {
	assert.Contains(t, createTableSQL(BackendNetworked), "value         DOUBLE PRECISION")
	assert.Contains(t, createTableSQL(BackendEmbedded), "value         DOUBLE,")
	assert.Contains(t, createTableSQL(BackendEmbedded), "PRIMARY KEY (instance_name, board_name, entry_key)")
}

func TestMockStore_InjectedFailure(t *testing.T) {
	m := NewMockStore()
	boom := errors.New("boom")
	m.UpsertErr = func(rec Record) error {
		if rec.Key == "bad" {
			return boom
		}
		return nil
	}

	ctx := context.Background()
	assert.ErrorIs(t, m.Upsert(ctx, Record{InstanceID: "i", Board: "b", Key: "bad"}), boom)
	assert.NoError(t, m.Upsert(ctx, Record{InstanceID: "i", Board: "b", Key: "good"}))
	assert.Equal(t, 2, m.UpsertCalls())
	assert.Equal(t, 1, m.Len())
}
