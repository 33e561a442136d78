// ABOUTME: Bounded connection pool over the embedded or networked backend
// ABOUTME: Acquire/Release with connect timeout, idempotent Close, and a reloadable Manager

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Pool is a bounded set of live connections to one backend.
type Pool struct {
	db     *sql.DB
	cfg    PoolConfig
	logger *slog.Logger

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Open builds a pool for cfg, verifies connectivity and warms MinIdle
// connections. The returned pool is ready for Acquire.
func Open(ctx context.Context, cfg PoolConfig) (*Pool, error) {
	cfg = cfg.withDefaults()
	logger := slog.Default().With("component", "pool", "backend", string(cfg.Backend))

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.MaxSize)
	db.SetMaxIdleConns(cfg.MaxSize)

	p := &Pool{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}

	if err := p.warm(ctx); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("connection pool ready",
		"min_idle", cfg.MinIdle,
		"max_size", cfg.MaxSize,
		"connect_timeout", cfg.ConnectTimeout,
	)
	return p, nil
}

// openDB opens the database handle for the configured backend without connecting.
func openDB(cfg PoolConfig) (*sql.DB, error) {
	switch cfg.Backend {
	case BackendEmbedded:
		if cfg.Path == "" {
			return nil, errors.New("embedded backend requires a database path")
		}
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		dsn := "file:" + cfg.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		db, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		return db, nil

	case BackendNetworked:
		if cfg.URL == "" {
			return nil, errors.New("networked backend requires a url")
		}
		connCfg, err := pgx.ParseConfig(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing database url: %w", err)
		}
		if cfg.Username != "" {
			connCfg.User = cfg.Username
		}
		if cfg.Password != "" {
			connCfg.Password = cfg.Password
		}
		connCfg.ConnectTimeout = cfg.ConnectTimeout
		return stdlib.OpenDB(*connCfg), nil

	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// warm opens MinIdle connections and hands them back so they sit idle in the pool.
func (p *Pool) warm(ctx context.Context) error {
	conns := make([]*sql.Conn, 0, p.cfg.MinIdle)
	defer func() {
		for _, c := range conns {
			p.Release(c)
		}
	}()

	for i := 0; i < p.cfg.MinIdle; i++ {
		conn, err := p.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("warming pool: %w", err)
		}
		conns = append(conns, conn)
		if err := conn.PingContext(ctx); err != nil {
			return fmt.Errorf("pinging database: %w", err)
		}
	}
	return nil
}

// Backend returns the backend this pool talks to.
func (p *Pool) Backend() Backend {
	return p.cfg.Backend
}

// Acquire checks out a connection, waiting at most the connect timeout.
// The connection must be handed back with Release.
func (p *Pool) Acquire(ctx context.Context) (*sql.Conn, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	acquireCtx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	defer cancel()

	conn, err := p.db.Conn(acquireCtx)
	if err == nil {
		return conn, nil
	}

	if p.closed.Load() {
		return nil, ErrPoolClosed
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if errors.Is(acquireCtx.Err(), context.DeadlineExceeded) {
		if p.db.Stats().InUse >= p.cfg.MaxSize {
			return nil, ErrPoolExhausted
		}
		return nil, ErrConnectTimeout
	}
	return nil, fmt.Errorf("acquiring connection: %w", err)
}

// Release returns a connection to the pool.
func (p *Pool) Release(conn *sql.Conn) {
	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
		p.logger.Debug("releasing connection", "error", err)
	}
}

// Stats reports pool usage.
func (p *Pool) Stats() sql.DBStats {
	return p.db.Stats()
}

// Close drains the pool. Safe to call multiple times.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		p.closeErr = p.db.Close()
		p.logger.Info("connection pool closed")
	})
	return p.closeErr
}

// Manager owns the current pool and replaces it on re-initialization.
type Manager struct {
	mu     sync.RWMutex
	pool   *Pool
	logger *slog.Logger
}

// NewManager creates a Manager with no pool; call Init before use.
func NewManager() *Manager {
	return &Manager{
		logger: slog.Default().With("component", "store"),
	}
}

// Init closes any existing pool and builds a new one from cfg. On failure the
// manager is left without a pool and a *PoolInitError is returned.
func (m *Manager) Init(ctx context.Context, cfg PoolConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pool != nil {
		if err := m.pool.Close(); err != nil {
			m.logger.Warn("closing previous pool", "error", err)
		}
		m.pool = nil
	}

	p, err := Open(ctx, cfg)
	if err != nil {
		return &PoolInitError{Backend: cfg.Backend, Err: err}
	}
	m.pool = p
	return nil
}

// Pool returns the live pool, or ErrPersistenceDisabled when there is none.
func (m *Manager) Pool() (*Pool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.pool == nil {
		return nil, ErrPersistenceDisabled
	}
	return m.pool, nil
}

// Close closes the current pool, if any. Safe to call multiple times.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pool == nil {
		return nil
	}
	err := m.pool.Close()
	m.pool = nil
	return err
}
