package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server {
  address              = "0.0.0.0"
  port                 = 9000
  turn_timeout_seconds = 15
}

store {
  driver = "sqlite3"
  dsn    = "hands.db"
}

table "low" {
  small_blind = 1
  big_blind   = 2
}

table "high" {
  max_players = 9
  small_blind = 50
  big_blind   = 100
  buy_in_min  = 2000
  buy_in_max  = 20000
}
`

func TestParseServerConfig(t *testing.T) {
	t.Parallel()
	cfg, err := ParseServerConfig([]byte(sampleConfig), "test.hcl")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "0.0.0.0:9000", cfg.GetServerAddress())
	assert.Equal(t, 15*time.Second, cfg.TurnTimeout())
	assert.Equal(t, 2*time.Second, cfg.HandDelay())
	assert.Equal(t, "info", cfg.Server.LogLevel)
	assert.Equal(t, "sqlite3", cfg.Store.Driver)
	assert.Equal(t, "hands.db", cfg.Store.DSN)

	require.Len(t, cfg.Tables, 2)
	low := cfg.GetTableByName("low")
	require.NotNil(t, low)
	assert.Equal(t, 6, low.MaxPlayers)
	assert.Equal(t, 100, low.BuyInMin)
	assert.Equal(t, 1000, low.BuyInMax)

	high := cfg.GetTableByName("high")
	require.NotNil(t, high)
	assert.Equal(t, 9, high.MaxPlayers)
	assert.Equal(t, 2000, high.BuyInMin)

	assert.Nil(t, cfg.GetTableByName("missing"))
}

func TestParseServerConfigErrors(t *testing.T) {
	t.Parallel()
	_, err := ParseServerConfig([]byte(`server {`), "broken.hcl")
	assert.Error(t, err)

	_, err = ParseServerConfig([]byte("server {}\ntable \"x\" {\n  small_blind = 1\n}\n"), "missing.hcl")
	assert.Error(t, err, "big_blind is required")
}

func TestLoadServerConfig(t *testing.T) {
	t.Parallel()

	t.Run("missing file gives defaults", func(t *testing.T) {
		cfg, err := LoadServerConfig(filepath.Join(t.TempDir(), "nope.hcl"))
		require.NoError(t, err)
		assert.Equal(t, DefaultServerConfig(), cfg)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "server.hcl")
		require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))
		cfg, err := LoadServerConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 9000, cfg.Server.Port)
	})
}

func TestServerConfigValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*ServerConfig)
		errMsg string
	}{
		{"defaults", func(*ServerConfig) {}, ""},
		{"bad port", func(c *ServerConfig) { c.Server.Port = 70000 }, "invalid port"},
		{"negative timeout", func(c *ServerConfig) { c.Server.TurnTimeoutSeconds = -1 }, "turn timeout"},
		{"negative delay", func(c *ServerConfig) { c.Server.HandDelayMs = -5 }, "hand delay"},
		{"unknown driver", func(c *ServerConfig) { c.Store.Driver = "mongo" }, "unknown store driver"},
		{"postgres without dsn", func(c *ServerConfig) { c.Store.Driver = "postgres" }, "requires a dsn"},
		{"no tables", func(c *ServerConfig) { c.Tables = nil }, "at least one table"},
		{"duplicate", func(c *ServerConfig) { c.Tables = append(c.Tables, c.Tables[0]) }, "more than once"},
		{"zero small blind", func(c *ServerConfig) { c.Tables[0].SmallBlind = 0 }, "small blind"},
		{"big blind not bigger", func(c *ServerConfig) { c.Tables[0].BigBlind = 1 }, "big blind"},
		{"too many seats", func(c *ServerConfig) { c.Tables[0].MaxPlayers = 11 }, "max players"},
		{"buy-in range", func(c *ServerConfig) { c.Tables[0].BuyInMin = c.Tables[0].BuyInMax }, "buy-in"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultServerConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
