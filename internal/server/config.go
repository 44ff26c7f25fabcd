package server

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Store  *StoreSettings `hcl:"store,block"`
	Tables []TableConfig  `hcl:"table,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address            string `hcl:"address,optional"`
	Port               int    `hcl:"port,optional"`
	LogLevel           string `hcl:"log_level,optional"`
	TurnTimeoutSeconds int    `hcl:"turn_timeout_seconds,optional"`
	HandDelayMs        int    `hcl:"hand_delay_ms,optional"`
}

// StoreSettings selects where finished hands are recorded
type StoreSettings struct {
	Driver string `hcl:"driver,optional"` // memory, sqlite3 or postgres
	DSN    string `hcl:"dsn,optional"`
}

// TableConfig defines a poker table configuration
type TableConfig struct {
	Name       string `hcl:"name,label"`
	MaxPlayers int    `hcl:"max_players,optional"`
	SmallBlind int    `hcl:"small_blind"`
	BigBlind   int    `hcl:"big_blind"`
	BuyInMin   int    `hcl:"buy_in_min,optional"`
	BuyInMax   int    `hcl:"buy_in_max,optional"`
}

const (
	defaultAddress     = "localhost"
	defaultPort        = 8080
	defaultLogLevel    = "info"
	defaultTurnTimeout = 30
	defaultHandDelayMs = 2000
	defaultMaxPlayers  = 6
)

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	c := &ServerConfig{
		Tables: []TableConfig{{Name: "main", SmallBlind: 1, BigBlind: 2}},
	}
	c.applyDefaults()
	return c
}

// LoadServerConfig loads server configuration from HCL file
func LoadServerConfig(filename string) (*ServerConfig, error) {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}
	return decodeConfig(file.Body)
}

// ParseServerConfig parses configuration from HCL source.
func ParseServerConfig(src []byte, filename string) (*ServerConfig, error) {
	file, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %s", diags.Error())
	}
	return decodeConfig(file.Body)
}

func decodeConfig(body hcl.Body) (*ServerConfig, error) {
	var config ServerConfig
	if diags := gohcl.DecodeBody(body, nil, &config); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}
	config.applyDefaults()
	return &config, nil
}

func (c *ServerConfig) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = defaultAddress
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = defaultLogLevel
	}
	if c.Server.TurnTimeoutSeconds == 0 {
		c.Server.TurnTimeoutSeconds = defaultTurnTimeout
	}
	if c.Server.HandDelayMs == 0 {
		c.Server.HandDelayMs = defaultHandDelayMs
	}
	if c.Store == nil {
		c.Store = &StoreSettings{}
	}
	if c.Store.Driver == "" {
		c.Store.Driver = "memory"
	}

	for i := range c.Tables {
		t := &c.Tables[i]
		if t.MaxPlayers == 0 {
			t.MaxPlayers = defaultMaxPlayers
		}
		if t.BuyInMin == 0 {
			t.BuyInMin = t.BigBlind * 50 // 50 big blinds minimum
		}
		if t.BuyInMax == 0 {
			t.BuyInMax = t.BigBlind * 500 // 500 big blinds maximum
		}
	}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Server.TurnTimeoutSeconds < 1 {
		return fmt.Errorf("turn timeout must be at least one second")
	}
	if c.Server.HandDelayMs < 0 {
		return fmt.Errorf("hand delay cannot be negative")
	}

	switch c.Store.Driver {
	case "memory":
	case "sqlite3", "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store driver %s requires a dsn", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store driver: %s", c.Store.Driver)
	}

	if len(c.Tables) == 0 {
		return fmt.Errorf("at least one table must be configured")
	}

	seen := make(map[string]bool)
	for _, table := range c.Tables {
		if seen[table.Name] {
			return fmt.Errorf("table %s: defined more than once", table.Name)
		}
		seen[table.Name] = true

		if table.SmallBlind <= 0 {
			return fmt.Errorf("table %s: small blind must be positive", table.Name)
		}
		if table.BigBlind <= table.SmallBlind {
			return fmt.Errorf("table %s: big blind must be greater than small blind", table.Name)
		}
		if table.MaxPlayers < 2 || table.MaxPlayers > 10 {
			return fmt.Errorf("table %s: max players must be between 2 and 10", table.Name)
		}
		if table.BuyInMin >= table.BuyInMax {
			return fmt.Errorf("table %s: buy-in minimum must be less than maximum", table.Name)
		}
	}

	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// TurnTimeout is the time a player has to act.
func (c *ServerConfig) TurnTimeout() time.Duration {
	return time.Duration(c.Server.TurnTimeoutSeconds) * time.Second
}

// HandDelay is the pause between hands.
func (c *ServerConfig) HandDelay() time.Duration {
	return time.Duration(c.Server.HandDelayMs) * time.Millisecond
}

// GetTableByName returns a table configuration by name
func (c *ServerConfig) GetTableByName(name string) *TableConfig {
	for i := range c.Tables {
		if c.Tables[i].Name == name {
			return &c.Tables[i]
		}
	}
	return nil
}
