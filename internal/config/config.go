// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Defaults come from New; Load layers a YAML file and the environment on top.
//   - All functions accept context.Context as the first parameter.
//   - Validation failures wrap ErrInvalidConfig.
package config

import "context"

// Store drivers.
const (
	DriverAuto      = ""
	DriverPostgREST = "postgrest"
	DriverPostgres  = "postgres"
	DriverMemory    = "memory"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`
	// Addr configures the HTTP listen address, e.g. ":8000".
	Addr string `koanf:"addr"`
	// MetricsEnabled turns Prometheus recording on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`
	// RollbackOnItemFailure deletes a freshly created list when inserting its
	// items fails. Off by default: creation is best-effort.
	RollbackOnItemFailure bool `koanf:"rollback_on_item_failure"`

	Store  Store  `koanf:"store"`
	Tables Tables `koanf:"tables"`
}

// Store configures the remote row store.
type Store struct {
	// Driver is postgrest, postgres or memory. Empty picks one from the
	// other settings.
	Driver string `koanf:"driver"`
	// URL is the project URL of the hosted backend (REST lives under /rest/v1).
	URL string `koanf:"url"`
	// Key is the API key sent as apikey and bearer token.
	Key string `koanf:"key"`
	// Schema is the Postgres schema exposed through REST.
	Schema string `koanf:"schema"`
	// DSN is a Postgres connection string for the direct SQL driver.
	DSN string `koanf:"dsn"`
	// MaxOpenConns and MaxIdleConns size the SQL connection pool.
	MaxOpenConns int `koanf:"max_open_conns"`
	MaxIdleConns int `koanf:"max_idle_conns"`
}

// Tables names the three tables the service reads and writes.
type Tables struct {
	Users string `koanf:"users"`
	Lists string `koanf:"lists"`
	Items string `koanf:"items"`
}

// New returns a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		Addr:           ":8000",
		MetricsEnabled: true,
		Store: Store{
			Driver:       DriverAuto,
			Schema:       "public",
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		Tables: Tables{
			Users: "auth_user",
			Lists: "sop_lists",
			Items: "sop_items",
		},
	}
}

// ResolvedDriver returns the driver to use, inferring it when unset.
func (c *Config) ResolvedDriver() string {
	if c.Store.Driver != DriverAuto {
		return c.Store.Driver
	}
	switch {
	case c.Store.URL != "":
		return DriverPostgREST
	case c.Store.DSN != "":
		return DriverPostgres
	default:
		return DriverMemory
	}
}
