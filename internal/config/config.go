// ABOUTME: Configuration loading and parsing for scoreboard-sync
// ABOUTME: Supports YAML files with environment variable expansion, .env overlays and defaults

package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults applied by ApplyDefaults when a value is absent from the file.
const (
	DefaultSyncInterval      = 120 // seconds
	DefaultLocalFilename     = "data.db"
	DefaultDataDir           = "data"
	DefaultMinimumIdle       = 2
	DefaultMaximumPoolSize   = 10
	DefaultConnectionTimeout = 30000 // milliseconds
	DefaultServerName        = "default-server"
	DefaultRequestDelay      = 2 * time.Second
	DefaultMetricsAddr       = "localhost:9464"
)

// Config represents the complete scoreboard-sync configuration
type Config struct {
	// UseLocal selects the embedded single-file backend instead of the remote one.
	UseLocal bool `yaml:"use_local"`

	// DataDir is the directory the embedded database file is resolved against.
	DataDir string `yaml:"data_dir"`

	// SyncIntervalSeconds is the period between scheduled sync passes.
	SyncIntervalSeconds int `yaml:"sync_interval"`

	Local    LocalConfig    `yaml:"local"`
	Remote   RemoteConfig   `yaml:"remote"`
	Identity IdentityConfig `yaml:"identity"`
	Host     HostConfig     `yaml:"host"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// LocalConfig holds the embedded database settings
type LocalConfig struct {
	Filename string `yaml:"filename"`
}

// RemoteConfig holds the networked database settings
type RemoteConfig struct {
	URL               string `yaml:"url"`
	Username          string `yaml:"username"`
	Password          string `yaml:"password"`
	MinimumIdle       int    `yaml:"minimum_idle"`
	MaximumPoolSize   int    `yaml:"maximum_pool_size"`
	ConnectionTimeout int64  `yaml:"connection_timeout"` // milliseconds
}

// IdentityConfig controls how this instance names itself in the shared table
type IdentityConfig struct {
	// Enabled turns on the dynamic name side channel.
	Enabled    bool   `yaml:"enabled"`
	ServerName string `yaml:"server_name"`

	RequestDelay    time.Duration `yaml:"-"`
	RequestDelayRaw string        `yaml:"request_delay"`
}

// HostConfig describes the boards the bundled host creates at startup
type HostConfig struct {
	Boards []string `yaml:"boards"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// SyncInterval returns the configured sync period as a duration.
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.SyncIntervalSeconds) * time.Second
}

// ConnectTimeout returns the remote connection timeout as a duration.
func (r RemoteConfig) ConnectTimeout() time.Duration {
	return time.Duration(r.ConnectionTimeout) * time.Millisecond
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Variables from .env and .env.local in the working directory are loaded first;
// ${VAR_NAME} patterns in the file are then expanded from the environment.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse decodes raw YAML into a Config, applying defaults and validating the result.
func Parse(data []byte) (*Config, error) {
	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns a configuration with every default applied and the embedded backend selected.
func Default() *Config {
	cfg := &Config{UseLocal: true}
	cfg.ApplyDefaults()
	return cfg
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// ApplyDefaults fills zero values with their defaults.
func (c *Config) ApplyDefaults() {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir
	}
	if c.SyncIntervalSeconds == 0 {
		c.SyncIntervalSeconds = DefaultSyncInterval
	}
	if c.Local.Filename == "" {
		c.Local.Filename = DefaultLocalFilename
	}
	if c.Remote.MinimumIdle == 0 {
		c.Remote.MinimumIdle = DefaultMinimumIdle
	}
	if c.Remote.MaximumPoolSize == 0 {
		c.Remote.MaximumPoolSize = DefaultMaximumPoolSize
	}
	if c.Remote.ConnectionTimeout == 0 {
		c.Remote.ConnectionTimeout = DefaultConnectionTimeout
	}
	if strings.TrimSpace(c.Identity.ServerName) == "" {
		c.Identity.ServerName = DefaultServerName
	}
	if c.Identity.RequestDelay == 0 {
		c.Identity.RequestDelay = DefaultRequestDelay
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = DefaultMetricsAddr
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.SyncIntervalSeconds < 0 {
		return fmt.Errorf("sync_interval must be positive, got %d", c.SyncIntervalSeconds)
	}

	if c.UseLocal {
		if strings.ContainsAny(c.Local.Filename, `/\`) {
			return fmt.Errorf("local.filename must be a bare file name, got %q", c.Local.Filename)
		}
		return nil
	}

	if c.Remote.URL == "" {
		return fmt.Errorf("remote.url is required when use_local is false")
	}
	if c.Remote.MinimumIdle < 0 {
		return fmt.Errorf("remote.minimum_idle must not be negative")
	}
	if c.Remote.MaximumPoolSize < 1 {
		return fmt.Errorf("remote.maximum_pool_size must be at least 1")
	}
	if c.Remote.MinimumIdle > c.Remote.MaximumPoolSize {
		return fmt.Errorf("remote.minimum_idle (%d) exceeds remote.maximum_pool_size (%d)",
			c.Remote.MinimumIdle, c.Remote.MaximumPoolSize)
	}
	if c.Remote.ConnectionTimeout < 0 {
		return fmt.Errorf("remote.connection_timeout must not be negative")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Identity.RequestDelayRaw != "" {
		cfg.Identity.RequestDelay, err = time.ParseDuration(cfg.Identity.RequestDelayRaw)
		if err != nil {
			return fmt.Errorf("parsing request_delay %q: %w", cfg.Identity.RequestDelayRaw, err)
		}
	}

	return nil
}
