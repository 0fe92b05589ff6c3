// Package config resolves the indexer's runtime configuration with the
// precedence CLI flag > environment variable > .env file > default,
// favoring a single immutable value over a global settings singleton.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the fully resolved, immutable configuration for one run.
type Config struct {
	DatabaseURL            string
	DatabaseMaxConnections int
	DatabaseConnectTimeout time.Duration
	SolanaRPCURL           string
	SolanaWSURL            string

	// Pools is the comma-separated --pools flag value for the DEX
	// subcommand in effect, resolved by the subcommand's RunE, not here.
	Pools []string
}

// Load resolves Config from (in ascending precedence) a .env file, process
// environment, and the persistent flags already parsed onto flags. It does
// not read the subcommand's --pools flag; callers read that separately
// since it is scoped to one DEX invocation.
func Load(flags *pflag.FlagSet) (Config, error) {
	// A missing .env file is not an error: it is optional ambient
	// configuration, not a required input.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("")
	v.AutomaticEnv()

	v.SetDefault("database.max_connections", 5)
	v.SetDefault("database.connect_timeout", 30)

	if err := v.BindEnv("database.url", "DATABASE_URL"); err != nil {
		return Config{}, fmt.Errorf("bind DATABASE_URL: %w", err)
	}
	if err := v.BindEnv("database.max_connections", "DATABASE_MAX_CONNECTIONS"); err != nil {
		return Config{}, fmt.Errorf("bind DATABASE_MAX_CONNECTIONS: %w", err)
	}
	if err := v.BindEnv("database.connect_timeout", "DATABASE_CONNECT_TIMEOUT"); err != nil {
		return Config{}, fmt.Errorf("bind DATABASE_CONNECT_TIMEOUT: %w", err)
	}
	if err := v.BindEnv("solana.rpc_url", "SOLANA_RPC_URL"); err != nil {
		return Config{}, fmt.Errorf("bind SOLANA_RPC_URL: %w", err)
	}
	if err := v.BindEnv("solana.ws_url", "SOLANA_WS_URL"); err != nil {
		return Config{}, fmt.Errorf("bind SOLANA_WS_URL: %w", err)
	}

	if flags != nil {
		if err := v.BindPFlag("solana.rpc_url", flags.Lookup("rpc-url")); err != nil {
			return Config{}, fmt.Errorf("bind --rpc-url: %w", err)
		}
		if err := v.BindPFlag("solana.ws_url", flags.Lookup("ws-url")); err != nil {
			return Config{}, fmt.Errorf("bind --ws-url: %w", err)
		}
	}

	cfg := Config{
		DatabaseURL:            v.GetString("database.url"),
		DatabaseMaxConnections: v.GetInt("database.max_connections"),
		DatabaseConnectTimeout: time.Duration(v.GetInt("database.connect_timeout")) * time.Second,
		SolanaRPCURL:           v.GetString("solana.rpc_url"),
		SolanaWSURL:            v.GetString("solana.ws_url"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validate enforces the configuration-error exit path (exit code 2):
// a missing DATABASE_URL is a configuration error, not a runtime failure.
func (c Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DatabaseMaxConnections <= 0 {
		return fmt.Errorf("DATABASE_MAX_CONNECTIONS must be positive, got %d", c.DatabaseMaxConnections)
	}
	if c.DatabaseConnectTimeout <= 0 {
		return fmt.Errorf("DATABASE_CONNECT_TIMEOUT must be positive")
	}
	return nil
}
