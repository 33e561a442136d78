// ABOUTME: Wires pool, schema, engine, scheduler, identity and commands into one lifecycle
// ABOUTME: Enable builds persistence and arms the timer; Disable stops passes before closing the pool

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/scoreboard-sync/internal/command"
	"github.com/2389/scoreboard-sync/internal/config"
	"github.com/2389/scoreboard-sync/internal/identity"
	"github.com/2389/scoreboard-sync/internal/metrics"
	"github.com/2389/scoreboard-sync/internal/scheduler"
	"github.com/2389/scoreboard-sync/internal/scoreboard"
	"github.com/2389/scoreboard-sync/internal/store"
	"github.com/2389/scoreboard-sync/internal/syncer"
)

// ErrNotEnabled is returned by Reload before a successful Enable.
var ErrNotEnabled = errors.New("service not enabled")

// Options configures a Service.
type Options struct {
	Config *config.Config

	// State is the host's live scoreboard and Exec the way onto its main thread.
	State scoreboard.Accessor
	Exec  scoreboard.Executor

	// SideChannel answers instance name requests. When nil and the identity
	// side channel is enabled, the hostname is used.
	SideChannel identity.SideChannel

	Logger *slog.Logger
}

// Service owns every sync component for one host.
type Service struct {
	mu  sync.Mutex
	cfg *config.Config

	pools     *store.Manager
	records   *store.Store
	engine    *syncer.Engine
	scheduler *scheduler.Scheduler
	identity  *identity.Identity
	commands  *command.Handler
	channel   identity.SideChannel

	enabled       bool
	cancelRequest context.CancelFunc
	ensureTable   func(ctx context.Context) error
	logger        *slog.Logger
}

// New builds a Service. Nothing touches the database until Enable.
func New(opts Options) *Service {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	exec := opts.Exec
	if exec == nil {
		exec = scoreboard.Inline{}
	}

	s := &Service{
		cfg:     cfg,
		pools:   store.NewManager(),
		channel: opts.SideChannel,
		logger:  logger.With("component", "service"),
	}
	s.records = store.New(s.pools)
	s.ensureTable = s.records.EnsureTable
	s.engine = syncer.New(s.records, opts.State, exec, logger)
	s.identity = identity.New(cfg.Identity.ServerName, logger)
	s.scheduler = scheduler.New(s.runPass, logger)
	s.commands = command.NewHandler(s.engine, s.scheduler, s.identity)

	if s.channel == nil {
		s.channel = identity.HostnameChannel{Deliver: s.identity.Learn}
	}
	return s
}

// Enable opens the pool, ensures the table, starts the identity request and
// arms the sync timer. A pool failure is logged loudly and leaves persistence
// disabled; the host keeps running. A failed table creation is logged only:
// the first pass that hits the missing table recreates it.
func (s *Service) Enable(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.initPersistenceLocked(ctx, s.cfg); err != nil {
		return err
	}

	if err := s.scheduler.Start(s.cfg.SyncInterval()); err != nil {
		if closeErr := s.pools.Close(); closeErr != nil {
			s.logger.Warn("closing pool after failed enable", "error", closeErr)
		}
		return fmt.Errorf("starting scheduler: %w", err)
	}

	if s.cfg.Identity.Enabled {
		if s.cancelRequest != nil {
			s.cancelRequest()
			s.cancelRequest = nil
		}
		reqCtx, cancel := context.WithCancel(context.Background())
		if s.identity.RequestAsync(reqCtx, s.channel, s.cfg.Identity.RequestDelay) {
			s.cancelRequest = cancel
		} else {
			cancel()
		}
	}

	s.enabled = true
	s.logger.Info("scoreboard sync enabled",
		"instance", s.identity.Resolve(),
		"interval", s.cfg.SyncInterval(),
	)
	return nil
}

// initPersistenceLocked selects the backend, (re)builds the pool and creates
// the table. Must be called with mu held.
func (s *Service) initPersistenceLocked(ctx context.Context, cfg *config.Config) error {
	poolCfg, err := store.SelectBackend(cfg)
	if err != nil {
		s.logger.Error("invalid database configuration, persistence disabled", "error", err)
		return fmt.Errorf("selecting backend: %w", err)
	}

	if err := s.pools.Init(ctx, poolCfg); err != nil {
		var initErr *store.PoolInitError
		if errors.As(err, &initErr) {
			s.logger.Error("could not initialize connection pool, persistence disabled",
				"backend", initErr.Backend,
				"error", initErr.Err,
			)
		}
		return err
	}
	s.logger.Info("connection pool ready", "backend", poolCfg.Backend)

	if err := s.ensureTable(ctx); err != nil {
		s.logger.Error("creating score table failed, will retry on first use", "error", err)
	}
	return nil
}

// Reload applies a new configuration to a running service: the pool is
// rebuilt (closing the old one first) and the timer re-armed.
func (s *Service) Reload(ctx context.Context, cfg *config.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled {
		return ErrNotEnabled
	}

	if err := s.initPersistenceLocked(ctx, cfg); err != nil {
		return err
	}
	if err := s.scheduler.Reschedule(cfg.SyncInterval()); err != nil {
		return fmt.Errorf("rescheduling: %w", err)
	}
	s.identity.SetFallback(cfg.Identity.ServerName)

	s.cfg = cfg
	s.logger.Info("configuration reloaded", "interval", cfg.SyncInterval())
	return nil
}

// Disable stops the timer, waits for an in-flight pass, then closes the pool.
// If ctx expires while a pass is still running the pool stays open and the
// service stays enabled; call Disable again to finish.
func (s *Service) Disable(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancelRequest != nil {
		s.cancelRequest()
		s.cancelRequest = nil
	}

	if err := s.scheduler.Stop(ctx); err != nil {
		s.logger.Warn("sync pass still running, pool left open", "error", err)
		return fmt.Errorf("stopping scheduler: %w", err)
	}

	s.enabled = false
	if err := s.pools.Close(); err != nil {
		return fmt.Errorf("closing pool: %w", err)
	}
	s.logger.Info("scoreboard sync disabled")
	return nil
}

// runPass is the scheduler's pass function.
func (s *Service) runPass(ctx context.Context, trigger scheduler.Trigger) {
	passID := uuid.New().String()
	instance := s.identity.Resolve()
	logger := s.logger.With("pass_id", passID, "trigger", string(trigger), "instance", instance)

	start := time.Now()
	metrics.PassesRun.Inc()

	pull, push := s.engine.RunPass(ctx, instance)

	metrics.PassDuration.UpdateDuration(start)
	logger.Info("sync pass complete",
		"pulled", pull.Applied,
		"skipped", pull.Skipped,
		"pushed", push.Applied,
		"failed", pull.Failed+push.Failed,
		"duration", time.Since(start),
	)
}

// Commands returns the operator command handler.
func (s *Service) Commands() *command.Handler {
	return s.commands
}

// Engine exposes the sync engine for hosts that drive passes directly.
func (s *Service) Engine() *syncer.Engine {
	return s.engine
}

// Identity returns the instance identity.
func (s *Service) Identity() *identity.Identity {
	return s.identity
}

// Scheduler returns the pass scheduler.
func (s *Service) Scheduler() *scheduler.Scheduler {
	return s.scheduler
}

// Enabled reports whether Enable succeeded and Disable has not been called.
func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}
