// ABOUTME: Entry point for scoreboard-sync
// ABOUTME: Cobra root command wiring serve, save, get and init subcommands

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
)

// Version is set at build time.
var version = "dev"

const banner = `
                        _                         _
  ___  ___ ___  _ __ ___| |__   ___   __ _ _ __ __| |      ___ _   _ _ __   ___
 / __|/ __/ _ \| '__/ _ \ '_ \ / _ \ / _' | '__/ _' |_____/ __| | | | '_ \ / __|
 \__ \ (_| (_) | | |  __/ |_) | (_) | (_| | | | (_| |_____\__ \ |_| | | | | (__
 |___/\___\___/|_|  \___|_.__/ \___/ \__,_|_|  \__,_|     |___/\__, |_| |_|\___|
                                                               |___/
`

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	ConfigPath string
}

// getConfigPath returns the default config file path.
// Priority: SCOREBOARD_SYNC_CONFIG env var > XDG_CONFIG_HOME/scoreboard-sync/config.yaml > ~/.config/scoreboard-sync/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("SCOREBOARD_SYNC_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml"
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "scoreboard-sync", "config.yaml")
}

// getDataPath returns the default data directory.
// Priority: XDG_DATA_HOME/scoreboard-sync > ~/.local/share/scoreboard-sync
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "scoreboard-sync")
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "scoreboard-sync",
		Short:         "Keep live scoreboards in sync with a shared SQL table",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", getConfigPath(), "path to config file")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newSaveCommand(opts))
	cmd.AddCommand(newGetCommand(opts))
	cmd.AddCommand(newInitCommand(opts))

	return cmd
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errCommandFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		cancel()
		os.Exit(1)
	}
}
