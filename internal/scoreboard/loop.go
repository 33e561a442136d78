// ABOUTME: Main-thread loop that owns live scoreboard state
// ABOUTME: Other goroutines marshal work onto it with Do and wait for completion

package scoreboard

import (
	"context"
	"errors"
	"sync/atomic"
	"time"
)

// ErrLoopStopped is returned by Do once the loop has exited.
var ErrLoopStopped = errors.New("main loop stopped")

// Executor runs a function on the goroutine that owns live state.
type Executor interface {
	Do(ctx context.Context, fn func()) error
}

// Loop is the host's main thread. It drains its inbox between ticks so every
// access to state happens on one goroutine.
type Loop struct {
	inbox  chan func()
	quit   chan struct{}
	done   chan struct{}
	tick   time.Duration
	onTick func()
}

// NewLoop creates a loop. If tick is positive, onTick runs on every tick.
func NewLoop(tick time.Duration, onTick func()) *Loop {
	return &Loop{
		inbox:  make(chan func(), 64),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		tick:   tick,
		onTick: onTick,
	}
}

// Run processes work until ctx is canceled or Stop is called. It must be
// called from the goroutine that owns state.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)

	var tickC <-chan time.Time
	if l.tick > 0 && l.onTick != nil {
		ticker := time.NewTicker(l.tick)
		defer ticker.Stop()
		tickC = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.quit:
			return
		case fn := <-l.inbox:
			fn()
		case <-tickC:
			l.onTick()
		}
	}
}

// Stop ends Run. Safe to call once.
func (l *Loop) Stop() {
	close(l.quit)
}

// Done is closed when Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Do runs fn on the loop goroutine and waits for it to finish. If ctx ends
// while fn is still queued, fn is dropped and ctx.Err() returned; once the
// loop has started fn, Do waits for it regardless of ctx.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	var claimed atomic.Bool
	finished := make(chan struct{})
	task := func() {
		if !claimed.CompareAndSwap(false, true) {
			return
		}
		defer close(finished)
		fn()
	}

	select {
	case l.inbox <- task:
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		// Run may have exited right after picking the task up.
		select {
		case <-finished:
			return nil
		default:
			return ErrLoopStopped
		}
	case <-ctx.Done():
		if claimed.CompareAndSwap(false, true) {
			return ctx.Err()
		}
		select {
		case <-finished:
			return nil
		case <-l.done:
			select {
			case <-finished:
				return nil
			default:
				return ErrLoopStopped
			}
		}
	}
}

// Inline runs functions on the caller's goroutine. For hosts that already
// serialize access, and for tests.
type Inline struct{}

func (Inline) Do(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	fn()
	return nil
}
