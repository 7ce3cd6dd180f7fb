package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

const (
	defaultDataDir            = "./synth-data"
	defaultOracleMaxAgeSecond = 10_800 // 3h, the slowest supported feed heartbeat
)

// CollateralEntry pairs an approved collateral token with its price feed
// source. Addresses are 0x-prefixed hex.
type CollateralEntry struct {
	Symbol string `toml:"Symbol"`
	Token  string `toml:"Token"`
	Feed   string `toml:"Feed"`
}

// TokenAddress parses the entry's token address.
func (c CollateralEntry) TokenAddress() (common.Address, error) {
	return parseAddress(c.Token)
}

// FeedAddress parses the entry's feed address.
func (c CollateralEntry) FeedAddress() (common.Address, error) {
	return parseAddress(c.Feed)
}

// Config captures the runtime configuration for the synth engine.
type Config struct {
	DataDir             string            `toml:"DataDir"`
	DebtTokenSymbol     string            `toml:"DebtTokenSymbol"`
	OracleMaxAgeSeconds uint64            `toml:"OracleMaxAgeSeconds"`
	Paused              bool              `toml:"Paused"`
	Collateral          []CollateralEntry `toml:"collateral"`
}

// Load reads the configuration from path, applies defaults, and validates it.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = defaultDataDir
	}
	if strings.TrimSpace(c.DebtTokenSymbol) == "" {
		c.DebtTokenSymbol = "sUSD"
	}
	if c.OracleMaxAgeSeconds == 0 {
		c.OracleMaxAgeSeconds = defaultOracleMaxAgeSecond
	}
}

// OracleMaxAge returns the freshness window as a duration.
func (c *Config) OracleMaxAge() time.Duration {
	return time.Duration(c.OracleMaxAgeSeconds) * time.Second
}

// Validate ensures the configuration is internally consistent.
func (c *Config) Validate() error {
	if len(c.Collateral) == 0 {
		return fmt.Errorf("config: at least one collateral entry required")
	}
	seen := make(map[common.Address]struct{}, len(c.Collateral))
	for i, entry := range c.Collateral {
		token, err := entry.TokenAddress()
		if err != nil {
			return fmt.Errorf("config: collateral[%d]: %w", i, err)
		}
		if _, dup := seen[token]; dup {
			return fmt.Errorf("config: collateral[%d]: duplicate token %s", i, entry.Token)
		}
		seen[token] = struct{}{}
		if _, err := entry.FeedAddress(); err != nil {
			return fmt.Errorf("config: collateral[%d]: %w", i, err)
		}
	}
	return nil
}

func parseAddress(value string) (common.Address, error) {
	trimmed := strings.TrimSpace(value)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("invalid address %q", value)
	}
	return common.HexToAddress(trimmed), nil
}
