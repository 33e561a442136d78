// ABOUTME: Resolves the instance name used as the first column of every score row
// ABOUTME: Prefers a name learned once from a side channel over the configured fallback

package identity

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
	"time"
)

// DefaultName is used when nothing is configured.
const DefaultName = "default-server"

// SideChannel asks an external party for this instance's name. The reply, if
// any, arrives later through Identity.Learn.
type SideChannel interface {
	RequestInstanceName(ctx context.Context) error
}

// Identity resolves the current instance name without ever blocking.
type Identity struct {
	static    atomic.Pointer[string]
	learned   atomic.Pointer[string]
	requested atomic.Bool
	logger    *slog.Logger
}

// New creates an Identity with a static fallback name.
func New(static string, logger *slog.Logger) *Identity {
	if logger == nil {
		logger = slog.Default()
	}
	i := &Identity{
		logger: logger.With("component", "identity"),
	}
	i.SetFallback(static)
	return i
}

// SetFallback replaces the static name used until a name is learned.
func (i *Identity) SetFallback(static string) {
	static = strings.TrimSpace(static)
	if static == "" {
		static = DefaultName
	}
	i.static.Store(&static)
}

func (i *Identity) fallback() string {
	return *i.static.Load()
}

// Resolve returns the learned name if there is one, otherwise the static name.
func (i *Identity) Resolve() string {
	if name := i.learned.Load(); name != nil {
		return *name
	}
	return i.fallback()
}

// Learned returns the name delivered by the side channel, if any.
func (i *Identity) Learned() (string, bool) {
	if name := i.learned.Load(); name != nil {
		return *name, true
	}
	return "", false
}

// Learn records the side channel's answer. Only the first non-empty name is
// kept for the life of the process; returns false if name was ignored.
func (i *Identity) Learn(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	if !i.learned.CompareAndSwap(nil, &name) {
		i.logger.Debug("ignoring instance name, already learned", "name", name)
		return false
	}
	i.logger.Info("instance name received", "name", name)
	return true
}

// RequestAsync asks ch for the instance name after delay, on a separate
// goroutine. The channel is asked at most once per Identity: calls after a
// request went out, or after a name was learned, return false. Canceling ctx
// before the delay elapses leaves the request unsent. Failures are logged; the
// static name stays in effect.
func (i *Identity) RequestAsync(ctx context.Context, ch SideChannel, delay time.Duration) bool {
	if ch == nil || i.requested.Load() {
		return false
	}
	if _, ok := i.Learned(); ok {
		return false
	}
	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if !i.requested.CompareAndSwap(false, true) {
			return
		}
		if err := ch.RequestInstanceName(ctx); err != nil {
			i.logger.Warn("requesting instance name failed, using fallback",
				"fallback", i.fallback(),
				"error", err,
			)
		}
	}()
	return true
}

// HostnameChannel answers with the machine's hostname. Orchestrators commonly
// set the hostname to the deployment's server name.
type HostnameChannel struct {
	Deliver func(name string) bool
}

// RequestInstanceName looks up the hostname and delivers it.
func (h HostnameChannel) RequestInstanceName(ctx context.Context) error {
	name, err := os.Hostname()
	if err != nil {
		return err
	}
	if h.Deliver != nil {
		h.Deliver(name)
	}
	return nil
}
