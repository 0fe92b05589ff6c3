package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePools(t *testing.T) {
	assert.Nil(t, ParsePools(""))
	assert.Nil(t, ParsePools("   "))
	assert.Equal(t, []string{"A"}, ParsePools("A"))
	assert.Equal(t, []string{"A", "B", "C"}, ParsePools("A, B ,C"))
	assert.Equal(t, []string{"A", "C"}, ParsePools("A,,C"))
}

func TestLoad_MissingDatabaseURL_IsConfigurationError(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_, err := Load(nil)
	assert.Error(t, err)
}

func TestLoad_EnvironmentIsRespected(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://test")
	t.Setenv("SOLANA_RPC_URL", "https://rpc.example")
	t.Setenv("SOLANA_WS_URL", "wss://ws.example")

	cfg, err := Load(nil)
	assert.NoError(t, err)
	assert.Equal(t, "postgres://test", cfg.DatabaseURL)
	assert.Equal(t, "https://rpc.example", cfg.SolanaRPCURL)
	assert.Equal(t, "wss://ws.example", cfg.SolanaWSURL)
	assert.Equal(t, 5, cfg.DatabaseMaxConnections)
}
