// ABOUTME: Operator command surface: save, get and sync-now verbs
// ABOUTME: Each verb maps onto one engine or scheduler call and returns an inline result

package command

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/2389/scoreboard-sync/internal/store"
)

// Usage strings shown to operators.
const (
	UsageRoot = "Usage: scoreboarddb <save|get|sync-now> ..."
	UsageSave = "Usage: scoreboarddb save <board> <key> <value>"
	UsageGet  = "Usage: scoreboarddb get <board> <key>"
)

// Verbs lists the subcommands in completion order.
var Verbs = []string{"save", "get", "sync-now"}

// Engine is the subset of the sync engine the commands drive.
type Engine interface {
	SetValue(ctx context.Context, instanceID, board, key string, value float64) error
	GetValue(ctx context.Context, instanceID, board, key string) (float64, error)
}

// Trigger starts a sync pass unless one is running.
type Trigger interface {
	TriggerNow() bool
}

// Resolver supplies the current instance name.
type Resolver interface {
	Resolve() string
}

// Result is the outcome reported back to the operator.
type Result struct {
	OK      bool
	Message string
}

func ok(format string, args ...any) Result {
	return Result{OK: true, Message: fmt.Sprintf(format, args...)}
}

func fail(format string, args ...any) Result {
	return Result{OK: false, Message: fmt.Sprintf(format, args...)}
}

// Handler executes operator commands.
type Handler struct {
	engine   Engine
	trigger  Trigger
	identity Resolver
}

// NewHandler creates a Handler.
func NewHandler(engine Engine, trigger Trigger, identity Resolver) *Handler {
	return &Handler{
		engine:   engine,
		trigger:  trigger,
		identity: identity,
	}
}

// Execute runs one command given its arguments (without the command name).
func (h *Handler) Execute(ctx context.Context, args []string) Result {
	if len(args) < 1 {
		return fail(UsageRoot)
	}

	switch strings.ToLower(args[0]) {
	case "save":
		return h.save(ctx, args[1:])
	case "get":
		return h.get(ctx, args[1:])
	case "sync-now":
		return h.syncNow()
	default:
		return fail("Unknown subcommand: %s", args[0])
	}
}

func (h *Handler) save(ctx context.Context, args []string) Result {
	if len(args) < 3 {
		return fail(UsageSave)
	}
	board, key := args[0], args[1]

	value, err := strconv.ParseFloat(args[2], 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return fail("Value must be a number.")
	}

	err = h.engine.SetValue(ctx, h.identity.Resolve(), board, key, value)
	switch {
	case err == nil:
		return ok("Value saved.")
	case errors.Is(err, store.ErrSchemaMissing):
		return fail("Table was missing and has been created. Please try again.")
	default:
		return fail("Failed to save value: %v", err)
	}
}

func (h *Handler) get(ctx context.Context, args []string) Result {
	if len(args) < 2 {
		return fail(UsageGet)
	}
	board, key := args[0], args[1]

	value, err := h.engine.GetValue(ctx, h.identity.Resolve(), board, key)
	switch {
	case err == nil:
		return ok("Value: %s", strconv.FormatFloat(value, 'f', -1, 64))
	case errors.Is(err, store.ErrNotFound):
		return fail("No value found.")
	case errors.Is(err, store.ErrSchemaMissing):
		return fail("Table was missing and has been created. Please try again.")
	default:
		return fail("Failed to get value: %v", err)
	}
}

func (h *Handler) syncNow() Result {
	if h.trigger.TriggerNow() {
		return ok("Sync triggered.")
	}
	return fail("Sync already in progress, request dropped.")
}

// Complete returns completion candidates for the argument being typed.
func (h *Handler) Complete(args []string) []string {
	if len(args) != 1 {
		return nil
	}
	prefix := strings.ToLower(args[0])
	var out []string
	for _, v := range Verbs {
		if strings.HasPrefix(v, prefix) {
			out = append(out, v)
		}
	}
	return out
}
