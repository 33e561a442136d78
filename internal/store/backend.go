// ABOUTME: Backend selection for the shared score table
// ABOUTME: Turns parsed configuration into an embedded or networked PoolConfig

package store

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/2389/scoreboard-sync/internal/config"
)

// Backend identifies the storage topology and the SQL dialect spoken to it.
type Backend string

const (
	// BackendEmbedded is a single-file SQLite database on local disk.
	BackendEmbedded Backend = "sqlite"
	// BackendNetworked is a PostgreSQL server reached over the network.
	BackendNetworked Backend = "postgres"
)

// PoolConfig is everything Open needs to build a connection pool.
type PoolConfig struct {
	Backend Backend

	// Path is the database file for the embedded backend.
	Path string

	// URL, Username and Password locate the networked backend.
	URL      string
	Username string
	Password string

	MinIdle        int
	MaxSize        int
	ConnectTimeout time.Duration
}

// SelectBackend decides between the embedded and networked topology and builds
// the matching pool configuration. The embedded file is resolved against the
// configured data directory.
func SelectBackend(cfg *config.Config) (PoolConfig, error) {
	if cfg.UseLocal {
		dir, err := filepath.Abs(cfg.DataDir)
		if err != nil {
			return PoolConfig{}, fmt.Errorf("resolving data directory: %w", err)
		}
		return PoolConfig{
			Backend:        BackendEmbedded,
			Path:           filepath.Join(dir, cfg.Local.Filename),
			MinIdle:        1,
			MaxSize:        1,
			ConnectTimeout: cfg.Remote.ConnectTimeout(),
		}, nil
	}

	return PoolConfig{
		Backend:        BackendNetworked,
		URL:            strings.TrimPrefix(cfg.Remote.URL, "jdbc:"),
		Username:       cfg.Remote.Username,
		Password:       cfg.Remote.Password,
		MinIdle:        cfg.Remote.MinimumIdle,
		MaxSize:        cfg.Remote.MaximumPoolSize,
		ConnectTimeout: cfg.Remote.ConnectTimeout(),
	}, nil
}

// withDefaults fills unset pool limits.
func (c PoolConfig) withDefaults() PoolConfig {
	if c.MaxSize <= 0 {
		c.MaxSize = config.DefaultMaximumPoolSize
	}
	if c.MinIdle < 0 {
		c.MinIdle = 0
	}
	if c.MinIdle > c.MaxSize {
		c.MinIdle = c.MaxSize
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = config.DefaultConnectionTimeout * time.Millisecond
	}
	if c.Backend == BackendEmbedded {
		c.MaxSize = 1
		c.MinIdle = 1
	}
	return c
}

// rebind rewrites ? placeholders into the dialect's positional form.
func (b Backend) rebind(query string) string {
	if b != BackendNetworked {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&sb, "$%d", n)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// valueType is the widest portable floating-point column type on the backend.
func (b Backend) valueType() string {
	if b == BackendNetworked {
		return "DOUBLE PRECISION"
	}
	return "DOUBLE"
}
