// ABOUTME: Periodic and on-demand sync pass scheduling with at most one pass in flight
// ABOUTME: Idle/Running state machine with atomic CAS; overlapping triggers are dropped

package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/2389/scoreboard-sync/internal/metrics"
)

// ErrStopped is returned by Start and Reschedule after Stop.
var ErrStopped = errors.New("scheduler stopped")

// State is the scheduler's pass state.
type State int32

const (
	// Idle means no pass is running.
	Idle State = iota
	// Running means a pass is in flight.
	Running
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// Trigger identifies what started a pass.
type Trigger string

const (
	TriggerTimer  Trigger = "timer"
	TriggerManual Trigger = "manual"
)

// PassFunc runs one sync pass. It must not panic and must return when done.
type PassFunc func(ctx context.Context, trigger Trigger)

// Scheduler runs PassFunc on a fixed interval and on demand, never more than
// one at a time. Passes run on their own goroutine.
type Scheduler struct {
	pass   PassFunc
	logger *slog.Logger

	state atomic.Int32

	mu         sync.Mutex
	stopped    bool
	interval   time.Duration
	stopTicker chan struct{}
	inflight   sync.WaitGroup
}

// New creates a Scheduler for pass. Call Start to arm the timer.
func New(pass PassFunc, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		pass:   pass,
		logger: logger.With("component", "scheduler"),
	}
}

// Start arms the periodic timer. Unlike Reschedule it also reopens a
// scheduler that was stopped, so a host can disable and enable again.
func (s *Scheduler) Start(interval time.Duration) error {
	if interval <= 0 {
		return errors.New("interval must be positive")
	}

	s.mu.Lock()
	s.stopped = false
	s.mu.Unlock()

	return s.Reschedule(interval)
}

// Reschedule cancels the current timer, if any, and arms a new one. The first
// timed pass fires one interval from now.
func (s *Scheduler) Reschedule(interval time.Duration) error {
	if interval <= 0 {
		return errors.New("interval must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrStopped
	}

	s.cancelTimerLocked()

	stop := make(chan struct{})
	s.stopTicker = stop
	s.interval = interval

	go s.runTimer(interval, stop)

	s.logger.Info("sync timer armed", "interval", interval)
	return nil
}

// cancelTimerLocked stops the running timer goroutine. Must be called with mu held.
func (s *Scheduler) cancelTimerLocked() {
	if s.stopTicker != nil {
		close(s.stopTicker)
		s.stopTicker = nil
	}
}

func (s *Scheduler) runTimer(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !s.fire(TriggerTimer) {
				s.logger.Debug("timer tick dropped, pass already running")
			}
		}
	}
}

// TriggerNow starts a pass immediately unless one is already running.
// Returns false if the request was dropped.
func (s *Scheduler) TriggerNow() bool {
	return s.fire(TriggerManual)
}

// fire attempts Idle→Running and launches the pass.
func (s *Scheduler) fire(trigger Trigger) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	if !s.state.CompareAndSwap(int32(Idle), int32(Running)) {
		s.mu.Unlock()
		metrics.PassesDropped.Inc()
		return false
	}
	s.inflight.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.inflight.Done()
		defer s.state.Store(int32(Idle))
		s.pass(context.Background(), trigger)
	}()
	return true
}

// State reports whether a pass is running.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Interval returns the currently armed interval, or zero.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Stop cancels the timer, refuses new passes and waits for an in-flight pass
// to finish on its own. Returns ctx.Err() if ctx ends first.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.cancelTimerLocked()
	s.interval = 0
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
