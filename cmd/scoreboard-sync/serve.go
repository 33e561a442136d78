package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/scoreboard-sync/internal/command"
	"github.com/2389/scoreboard-sync/internal/config"
	"github.com/2389/scoreboard-sync/internal/metrics"
	"github.com/2389/scoreboard-sync/internal/scoreboard"
	"github.com/2389/scoreboard-sync/internal/service"
)

const shutdownTimeout = 15 * time.Second

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run a host with live scoreboards, periodic sync and an operator console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts.ConfigPath, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runServe(ctx context.Context, configPath string, in io.Reader, out io.Writer) error {
	cyan := color.New(color.FgCyan)
	cyan.Fprint(out, banner)

	gray := color.New(color.FgHiBlack)
	gray.Fprintf(out, "    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config (run 'scoreboard-sync init' to create one): %w", err)
	}

	logger := setupLogger(cfg.Logging, out)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Fprint(out, "    ▶ ")
	fmt.Fprintf(out, "Config:   %s\n", configPath)
	green.Fprint(out, "    ▶ ")
	if cfg.UseLocal {
		fmt.Fprintf(out, "Backend:  embedded ")
		cyan.Fprintf(out, "%s/%s\n", cfg.DataDir, cfg.Local.Filename)
	} else {
		fmt.Fprintf(out, "Backend:  networked ")
		cyan.Fprintln(out, cfg.Remote.URL)
	}
	green.Fprint(out, "    ▶ ")
	fmt.Fprintf(out, "Interval: %s\n", cfg.SyncInterval())
	green.Fprint(out, "    ▶ ")
	fmt.Fprintf(out, "Instance: %s", cfg.Identity.ServerName)
	if cfg.Identity.Enabled {
		yellow.Fprint(out, " [dynamic]")
	}
	fmt.Fprintln(out)
	if cfg.Metrics.Enabled {
		green.Fprint(out, "    ▶ ")
		fmt.Fprintf(out, "Metrics:  http://%s/metrics\n", cfg.Metrics.Addr)
	}
	fmt.Fprintln(out)

	board := scoreboard.New(cfg.Host.Boards...)
	loop := scoreboard.NewLoop(0, nil)

	svc := service.New(service.Options{
		Config: cfg,
		State:  board,
		Exec:   loop,
		Logger: logger,
	})

	// A failed enable leaves persistence disabled; the host keeps running.
	if err := svc.Enable(ctx); err != nil {
		logger.Error("scoreboard sync not enabled", "error", err)
	}

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metricsSrv = startMetricsServer(cfg.Metrics.Addr, logger)
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	go watchReload(runCtx, configPath, svc, logger)

	console := &console{
		loop:     loop,
		board:    board,
		commands: svc.Commands(),
		out:      out,
	}
	go func() {
		// Only an explicit quit stops the server; a closed stdin does not.
		if console.run(runCtx, in) {
			stop()
		}
	}()

	// The loop owns live state and runs on this goroutine until shutdown.
	loop.Run(runCtx)

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server: %w", err))
		}
	}
	if err := svc.Disable(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func startMetricsServer(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	return srv
}

// watchReload re-reads the config file on SIGHUP and applies it.
func watchReload(ctx context.Context, configPath string, svc *service.Service, logger *slog.Logger) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			cfg, err := config.Load(configPath)
			if err != nil {
				logger.Error("reload: loading config failed, keeping current settings", "error", err)
				continue
			}
			if err := svc.Reload(ctx, cfg); err != nil {
				logger.Error("reload failed", "error", err)
			}
		}
	}
}

// console reads operator lines from stdin. Sync verbs go to the command
// handler; the rest inspect or edit live state through the main loop.
type console struct {
	loop     *scoreboard.Loop
	board    *scoreboard.Scoreboard
	commands *command.Handler
	out      io.Writer
}

const consoleHelp = `Commands:
  save <board> <key> <value>   Write a value to the shared table
  get <board> <key>            Read a value from the shared table
  sync-now                     Run a sync pass now
  set <board> <key> <int>      Set a live score
  reset <board> <key>          Clear a live score
  show [board]                 Print live scores
  board add|remove <name>      Create or remove a live board
  metrics                      Print sync metrics
  quit                         Stop the server
`

// run processes lines until in is exhausted. Returns true if the operator quit.
func (c *console) run(ctx context.Context, in io.Reader) bool {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return false
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if !c.handle(ctx, fields) {
			return true
		}
	}
	return false
}

// handle runs one console line. Returns false when the operator asked to quit.
func (c *console) handle(ctx context.Context, fields []string) bool {
	switch strings.ToLower(fields[0]) {
	case "quit", "exit":
		return false
	case "help", "?":
		fmt.Fprint(c.out, consoleHelp)
	case "metrics":
		metrics.WritePrometheus(c.out)
	case "set":
		c.set(ctx, fields[1:])
	case "reset":
		c.reset(ctx, fields[1:])
	case "show":
		c.show(ctx, fields[1:])
	case "board":
		c.editBoard(ctx, fields[1:])
	default:
		c.print(c.commands.Execute(ctx, fields))
	}
	return true
}

func (c *console) print(res command.Result) {
	printResult(c.out, res)
}

func (c *console) set(ctx context.Context, args []string) {
	if len(args) != 3 {
		c.print(command.Result{Message: "Usage: set <board> <key> <int>"})
		return
	}
	value, err := strconv.Atoi(args[2])
	if err != nil {
		c.print(command.Result{Message: "Value must be an integer."})
		return
	}

	var setErr error
	if err := c.loop.Do(ctx, func() {
		setErr = c.board.SetScore(args[0], args[1], value)
	}); err != nil {
		setErr = err
	}
	if setErr != nil {
		c.print(command.Result{Message: setErr.Error()})
		return
	}
	c.print(command.Result{OK: true, Message: "Score set."})
}

func (c *console) reset(ctx context.Context, args []string) {
	if len(args) != 2 {
		c.print(command.Result{Message: "Usage: reset <board> <key>"})
		return
	}
	var found bool
	if err := c.loop.Do(ctx, func() {
		found = c.board.HasBoard(args[0])
		c.board.ResetScore(args[0], args[1])
	}); err != nil {
		c.print(command.Result{Message: err.Error()})
		return
	}
	if !found {
		c.print(command.Result{Message: scoreboard.ErrNoBoard.Error()})
		return
	}
	c.print(command.Result{OK: true, Message: "Score cleared."})
}

func (c *console) show(ctx context.Context, args []string) {
	var lines []string
	err := c.loop.Do(ctx, func() {
		boards := args
		if len(boards) == 0 {
			boards = c.board.Boards()
		}
		for _, name := range boards {
			if !c.board.HasBoard(name) {
				lines = append(lines, fmt.Sprintf("%s: no such board", name))
				continue
			}
			lines = append(lines, name+":")
			for _, e := range c.board.Entries(name) {
				lines = append(lines, fmt.Sprintf("  %s = %d", e.Key, e.Value))
			}
		}
	})
	if err != nil {
		c.print(command.Result{Message: err.Error()})
		return
	}
	for _, l := range lines {
		fmt.Fprintln(c.out, l)
	}
}

func (c *console) editBoard(ctx context.Context, args []string) {
	if len(args) != 2 {
		c.print(command.Result{Message: "Usage: board add|remove <name>"})
		return
	}
	var fn func()
	switch strings.ToLower(args[0]) {
	case "add":
		fn = func() { c.board.AddBoard(args[1]) }
	case "remove":
		fn = func() { c.board.RemoveBoard(args[1]) }
	default:
		c.print(command.Result{Message: "Usage: board add|remove <name>"})
		return
	}
	if err := c.loop.Do(ctx, fn); err != nil {
		c.print(command.Result{Message: err.Error()})
		return
	}
	c.print(command.Result{OK: true, Message: "Board updated."})
}
