package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/2389/scoreboard-sync/internal/command"
	"github.com/2389/scoreboard-sync/internal/config"
	"github.com/2389/scoreboard-sync/internal/scoreboard"
	"github.com/2389/scoreboard-sync/internal/service"
)

// errCommandFailed makes the process exit non-zero after the message was printed.
var errCommandFailed = errors.New("command failed")

type oneShotOptions struct {
	Instance string
}

func newSaveCommand(opts *rootOptions) *cobra.Command {
	o := &oneShotOptions{}
	cmd := &cobra.Command{
		Use:   "save <board> <key> <value>",
		Short: "Write a value to the shared table for this instance",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOneShot(cmd.Context(), opts.ConfigPath, o, cmd.OutOrStdout(), append([]string{"save"}, args...))
		},
	}
	cmd.Flags().StringVar(&o.Instance, "instance", "", "instance name to write as (overrides identity.server_name)")
	return cmd
}

func newGetCommand(opts *rootOptions) *cobra.Command {
	o := &oneShotOptions{}
	cmd := &cobra.Command{
		Use:   "get <board> <key>",
		Short: "Read a value from the shared table for this instance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOneShot(cmd.Context(), opts.ConfigPath, o, cmd.OutOrStdout(), append([]string{"get"}, args...))
		},
	}
	cmd.Flags().StringVar(&o.Instance, "instance", "", "instance name to read as (overrides identity.server_name)")
	return cmd
}

// runOneShot enables a service without live boards, runs one command through
// the same handler the console uses, then shuts down.
func runOneShot(ctx context.Context, configPath string, o *oneShotOptions, out io.Writer, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logCfg := cfg.Logging
	if parseLevel(logCfg.Level) == slog.LevelInfo {
		logCfg.Level = "warn"
	}
	setupLogger(logCfg, os.Stderr)

	// A one-shot process exits before a dynamic name could arrive.
	cfg.Identity.Enabled = false
	if o.Instance != "" {
		cfg.Identity.ServerName = o.Instance
	}

	svc := service.New(service.Options{
		Config: cfg,
		State:  scoreboard.New(),
	})
	if err := svc.Enable(ctx); err != nil {
		return err
	}
	defer svc.Disable(context.Background())

	res := svc.Commands().Execute(ctx, args)
	printResult(out, res)
	if !res.OK {
		return errCommandFailed
	}
	return nil
}

func printResult(out io.Writer, res command.Result) {
	if res.OK {
		color.New(color.FgGreen).Fprintln(out, res.Message)
		return
	}
	color.New(color.FgRed).Fprintln(out, res.Message)
}
