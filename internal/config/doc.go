// Package config handles configuration loading for scoreboard-sync.
//
// # Overview
//
// Configuration is loaded from a YAML file with environment variable expansion.
// Before the file is read, .env and .env.local in the working directory are
// loaded into the process environment so secrets can live outside the file.
//
// # Environment Variable Expansion
//
//	remote:
//	  password: "${SCOREBOARD_DB_PASSWORD}"
//
// # Configuration Sections
//
// Backend selection:
//
//	use_local: true          # embedded SQLite file instead of PostgreSQL
//	data_dir: "./data"       # embedded file is resolved against this directory
//	local:
//	  filename: "data.db"
//
// Remote database:
//
//	remote:
//	  url: "postgres://db.internal:5432/scores"
//	  username: "scores"
//	  password: "${SCOREBOARD_DB_PASSWORD}"
//	  minimum_idle: 2
//	  maximum_pool_size: 10
//	  connection_timeout: 30000   # milliseconds
//
// Sync and identity:
//
//	sync_interval: 120            # seconds
//	identity:
//	  enabled: false              # ask the side channel for a name after startup
//	  server_name: "lobby-1"      # fallback name
//	  request_delay: "2s"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
