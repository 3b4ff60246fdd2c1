// Package config defines the process configuration for matchbookd, loaded
// from a YAML file with environment-variable overrides, per spec.md §6's
// CLI/config collaborator (out of scope for the core engine itself, but
// required to start it).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML file
// structure; every field is also overridable via an MBK_-prefixed env var.
type Config struct {
	Listen  ListenConfig   `mapstructure:"listen"`
	Symbols []SymbolConfig `mapstructure:"symbols"`
	Maker   MakerConfig    `mapstructure:"maker"`
	Feed    FeedConfig     `mapstructure:"feed"`
	Logging LoggingConfig  `mapstructure:"logging"`
}

// ListenConfig is the TCP front end's bind address.
type ListenConfig struct {
	Address string `mapstructure:"address"`
	Port    int    `mapstructure:"port"`
}

// SymbolConfig registers one tradeable symbol and its initial price.
type SymbolConfig struct {
	Symbol       string  `mapstructure:"symbol"`
	InitialPrice float64 `mapstructure:"initial_price"`
}

// MakerConfig tunes the synthetic liquidity generator shared by every
// symbol's market maker, per spec.md §4.5.
type MakerConfig struct {
	Mu              float64       `mapstructure:"mu"`
	Sigma           float64       `mapstructure:"sigma"`
	Dt              time.Duration `mapstructure:"dt"`
	SpreadBps       float64       `mapstructure:"spread_bps"`
	LevelSpacingBps float64       `mapstructure:"level_spacing_bps"`
	Levels          int           `mapstructure:"levels"`
	OrderSize       uint64        `mapstructure:"order_size"`
	Seed            uint32        `mapstructure:"seed"`
	UpdateInterval  time.Duration `mapstructure:"update_interval"`
}

// FeedConfig tunes the periodic market-data broadcaster.
type FeedConfig struct {
	SnapshotInterval time.Duration `mapstructure:"snapshot_interval"`
	WebsocketPath    string        `mapstructure:"websocket_path"`
}

// LoggingConfig controls the process logger's level and output format.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Load reads config from a YAML file at path, with MBK_-prefixed env vars
// (dots replaced by underscores) overriding any field.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("MBK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("listen.address", "0.0.0.0")
	v.SetDefault("listen.port", 9090)
	v.SetDefault("maker.mu", 0.0)
	v.SetDefault("maker.sigma", 0.2)
	v.SetDefault("maker.dt", "100ms")
	v.SetDefault("maker.spread_bps", 20.0)
	v.SetDefault("maker.level_spacing_bps", 5.0)
	v.SetDefault("maker.levels", 5)
	v.SetDefault("maker.order_size", 100)
	v.SetDefault("maker.seed", 1)
	v.SetDefault("maker.update_interval", "1s")
	v.SetDefault("feed.snapshot_interval", "1s")
	v.SetDefault("feed.websocket_path", "/ws")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.pretty", false)
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Listen.Port <= 0 {
		return fmt.Errorf("config: listen.port must be > 0")
	}
	if len(c.Symbols) == 0 {
		return fmt.Errorf("config: at least one symbol is required")
	}
	seen := make(map[string]bool, len(c.Symbols))
	for _, s := range c.Symbols {
		if s.Symbol == "" {
			return fmt.Errorf("config: symbol entry missing name")
		}
		if s.InitialPrice <= 0 {
			return fmt.Errorf("config: symbol %s: initial_price must be > 0", s.Symbol)
		}
		if seen[s.Symbol] {
			return fmt.Errorf("config: duplicate symbol %s", s.Symbol)
		}
		seen[s.Symbol] = true
	}
	if c.Maker.Levels <= 0 {
		return fmt.Errorf("config: maker.levels must be > 0")
	}
	if c.Maker.OrderSize == 0 {
		return fmt.Errorf("config: maker.order_size must be > 0")
	}
	return nil
}
