package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/2389/scoreboard-sync/internal/config"
)

func newInitCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a new config file interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts.ConfigPath, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runInit(defaultConfigPath string, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	fmt.Fprintln(out, "scoreboard-sync configuration setup")
	fmt.Fprintln(out, "===================================")
	fmt.Fprintln(out)

	outputFile := prompt(reader, out, "Config file path", defaultConfigPath)

	if _, err := os.Stat(outputFile); err == nil {
		if !isYes(prompt(reader, out, "File exists. Overwrite?", "no")) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	fmt.Fprintln(out, "\n--- Database Configuration ---")
	useLocal := isYes(prompt(reader, out, "Use embedded database?", "yes"))

	var dataDir, filename, url, username, password string
	minIdle, maxPool := config.DefaultMinimumIdle, config.DefaultMaximumPoolSize
	if useLocal {
		dataDir = prompt(reader, out, "Data directory", getDataPath())
		filename = prompt(reader, out, "Database file name", config.DefaultLocalFilename)
	} else {
		url = prompt(reader, out, "Database URL", "postgres://localhost:5432/scoreboard")
		username = prompt(reader, out, "Username", "")
		password = prompt(reader, out, "Password (use ${VAR} to read from env)", "${SCOREBOARD_DB_PASSWORD}")
		minIdle = promptInt(reader, out, "Minimum idle connections", minIdle)
		maxPool = promptInt(reader, out, "Maximum pool size", maxPool)
	}

	fmt.Fprintln(out, "\n--- Sync Configuration ---")
	interval := promptInt(reader, out, "Sync interval (seconds)", config.DefaultSyncInterval)
	serverName := prompt(reader, out, "Instance name", config.DefaultServerName)
	dynamic := isYes(prompt(reader, out, "Learn instance name from hostname?", "no"))
	boards := prompt(reader, out, "Boards to create at startup (comma separated)", "")

	fmt.Fprintln(out, "\n--- Logging Configuration ---")
	logLevel := prompt(reader, out, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, out, "Log format (text/json)", "text")

	var cfg strings.Builder
	cfg.WriteString("# scoreboard-sync configuration\n")
	cfg.WriteString("# Generated by scoreboard-sync init\n\n")

	cfg.WriteString(fmt.Sprintf("use_local: %t\n", useLocal))
	if useLocal {
		cfg.WriteString(fmt.Sprintf("data_dir: %q\n", dataDir))
	}
	cfg.WriteString(fmt.Sprintf("sync_interval: %d\n\n", interval))

	if useLocal {
		cfg.WriteString("local:\n")
		cfg.WriteString(fmt.Sprintf("  filename: %q\n\n", filename))
	} else {
		cfg.WriteString("remote:\n")
		cfg.WriteString(fmt.Sprintf("  url: %q\n", url))
		cfg.WriteString(fmt.Sprintf("  username: %q\n", username))
		cfg.WriteString(fmt.Sprintf("  password: %q\n", password))
		cfg.WriteString(fmt.Sprintf("  minimum_idle: %d\n", minIdle))
		cfg.WriteString(fmt.Sprintf("  maximum_pool_size: %d\n", maxPool))
		cfg.WriteString(fmt.Sprintf("  connection_timeout: %d\n\n", config.DefaultConnectionTimeout))
	}

	cfg.WriteString("identity:\n")
	cfg.WriteString(fmt.Sprintf("  enabled: %t\n", dynamic))
	cfg.WriteString(fmt.Sprintf("  server_name: %q\n", serverName))
	cfg.WriteString(fmt.Sprintf("  request_delay: %q\n\n", config.DefaultRequestDelay.String()))

	if names := splitList(boards); len(names) > 0 {
		cfg.WriteString("host:\n")
		cfg.WriteString("  boards:\n")
		for _, n := range names {
			cfg.WriteString(fmt.Sprintf("    - %q\n", n))
		}
		cfg.WriteString("\n")
	}

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: %q\n", logLevel))
	cfg.WriteString(fmt.Sprintf("  format: %q\n\n", logFormat))

	cfg.WriteString("metrics:\n")
	cfg.WriteString("  enabled: false\n")
	cfg.WriteString(fmt.Sprintf("  addr: %q\n", config.DefaultMetricsAddr))

	// Refuse to write something serve could not load.
	if _, err := config.Parse([]byte(cfg.String())); err != nil {
		return fmt.Errorf("generated config is invalid: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(cfg.String()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	fmt.Fprintf(out, "\nConfig written to %s\n", outputFile)
	fmt.Fprintln(out, "\nTo start the server:")
	fmt.Fprintf(out, "  scoreboard-sync serve --config %s\n", outputFile)

	return nil
}

func prompt(reader *bufio.Reader, out io.Writer, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Fprintf(out, "%s [%s]: ", question, defaultVal)
	} else {
		fmt.Fprintf(out, "%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		// On EOF or error, return default
		fmt.Fprintln(out)
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}

func promptInt(reader *bufio.Reader, out io.Writer, question string, defaultVal int) int {
	for {
		raw := prompt(reader, out, question, strconv.Itoa(defaultVal))
		n, err := strconv.Atoi(raw)
		if err == nil && n >= 0 {
			return n
		}
		fmt.Fprintln(out, "Please enter a non-negative whole number.")
	}
}

func isYes(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "yes" || s == "y"
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
