package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validTestConfig() *Config {
	return &Config{
		Server:   ServerConfig{Port: "8080"},
		Database: DatabaseConfig{URL: "postgres://localhost/elaction"},
		Redis:    RedisConfig{Addr: "localhost:6379"},
		Chain: ChainConfig{
			RPCURL:         "http://localhost:8545",
			FactoryAddress: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		},
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validTestConfig().Validate())
}

func TestValidateMissingFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"server port", func(c *Config) { c.Server.Port = "" }},
		{"database URL", func(c *Config) { c.Database.URL = "" }},
		{"redis address", func(c *Config) { c.Redis.Addr = "" }},
		{"chain RPC URL", func(c *Config) { c.Chain.RPCURL = "" }},
		{"factory address", func(c *Config) { c.Chain.FactoryAddress = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validTestConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadConfigRequiresFactoryAddress(t *testing.T) {
	t.Setenv(FactoryAddress, "")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "factory address")
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv(FactoryAddress, "0x5FbDB2315678afecb367f032d93F642f64180aa3")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 10, cfg.Redis.PoolSize)
	assert.Equal(t, uint64(2), cfg.Chain.Confirmations)
	assert.Equal(t, "0x5FbDB2315678afecb367f032d93F642f64180aa3", cfg.Chain.FactoryAddress)
}
