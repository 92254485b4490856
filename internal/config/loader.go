package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variables read outside the SOP_ prefix.
const (
	envConfigFile = "SOP_CONFIG"
	envDotEnvFile = "SOP_ENV_FILE"
	envPrefix     = "SOP_"

	envSupabaseURL = "SUPABASE_URL"
	envSupabaseKey = "SUPABASE_ANON_KEY"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if SOP_CONFIG is set
//  3. env (prefix SOP_, "__" separates nested keys: SOP_STORE__URL -> store.url)
//
// A .env file (SOP_ENV_FILE, default ".env") is loaded into the process
// environment first; variables already set win over the file.
func Load(ctx context.Context) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	base := New(ctx)
	k := koanf.New(".")

	if path := os.Getenv(envConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// The hosted backend's own variable names are honoured when ours are unset.
	if cfg.Store.URL == "" {
		cfg.Store.URL = os.Getenv(envSupabaseURL)
	}
	if cfg.Store.Key == "" {
		cfg.Store.Key = os.Getenv(envSupabaseKey)
	}

	if err := cfg.Validate(ctx); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings the process cannot start without.
func (c *Config) Validate(_ context.Context) error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	if c.Tables.Users == "" || c.Tables.Lists == "" || c.Tables.Items == "" {
		return fmt.Errorf("%w: table names must not be empty", ErrInvalidConfig)
	}
	switch c.ResolvedDriver() {
	case DriverPostgREST:
		if c.Store.URL == "" || c.Store.Key == "" {
			return fmt.Errorf("%w: postgrest driver needs store.url and store.key", ErrInvalidConfig)
		}
	case DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("%w: postgres driver needs store.dsn", ErrInvalidConfig)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("%w: unknown store driver %q", ErrInvalidConfig, c.Store.Driver)
	}
	return nil
}

func loadDotEnv() error {
	path := os.Getenv(envDotEnvFile)
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
