package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete papertrade configuration.
type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Database DatabaseConfig `json:"database" yaml:"database"`
	Data     DataConfig     `json:"data" yaml:"data"`
	Replay   ReplayConfig   `json:"replay" yaml:"replay"`
	Log      LogConfig      `json:"log" yaml:"log"`
}

// ServerConfig holds the HTTP listener and auth parameters.
type ServerConfig struct {
	Addr      string `json:"addr" yaml:"addr"`
	JWTSecret string `json:"jwt_secret" yaml:"jwt_secret"`
}

// DatabaseConfig points at the journal SQLite file.
type DatabaseConfig struct {
	Path string `json:"path" yaml:"path"`
}

// DataConfig locates historical bar data.
type DataConfig struct {
	Dir       string `json:"dir" yaml:"dir"`                 // CSV bar files
	StorePath string `json:"store_path" yaml:"store_path"`   // sqlite bar cache
}

// ReplayConfig holds session defaults.
type ReplayConfig struct {
	WarmupBars      int     `json:"warmup_bars" yaml:"warmup_bars"`
	TickInterval    string  `json:"tick_interval" yaml:"tick_interval"` // e.g. "1s", "500ms"
	SaveDelay       string  `json:"save_delay" yaml:"save_delay"`
	StartingCapital float64 `json:"starting_capital" yaml:"starting_capital"`
}

// ParseTickInterval converts the tick interval string to a duration.
func (rc ReplayConfig) ParseTickInterval() (time.Duration, error) {
	if rc.TickInterval == "" {
		return 0, nil
	}
	return time.ParseDuration(rc.TickInterval)
}

// ParseSaveDelay converts the save debounce window string to a duration.
func (rc ReplayConfig) ParseSaveDelay() (time.Duration, error) {
	if rc.SaveDelay == "" {
		return 0, nil
	}
	return time.ParseDuration(rc.SaveDelay)
}

// LogConfig controls logging verbosity.
type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

// LoadFromFile loads configuration from a file (JSON or YAML based on content).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.JWTSecret == "" {
		return fmt.Errorf("server.jwt_secret is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Data.Dir == "" && c.Data.StorePath == "" {
		return fmt.Errorf("one of data.dir or data.store_path is required")
	}
	if c.Replay.WarmupBars < 0 {
		return fmt.Errorf("replay.warmup_bars must not be negative")
	}
	if c.Replay.StartingCapital <= 0 {
		return fmt.Errorf("replay.starting_capital must be positive")
	}
	if _, err := c.Replay.ParseTickInterval(); err != nil {
		return fmt.Errorf("replay.tick_interval: %w", err)
	}
	if _, err := c.Replay.ParseSaveDelay(); err != nil {
		return fmt.Errorf("replay.save_delay: %w", err)
	}
	return nil
}

// Default returns a configuration with sensible defaults. The JWT secret has
// no default; it must come from the config file or environment.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:      ":8080",
			JWTSecret: os.Getenv("PAPERTRADE_JWT_SECRET"),
		},
		Database: DatabaseConfig{
			Path: "./papertrade.sqlite",
		},
		Data: DataConfig{
			Dir: "./data",
		},
		Replay: ReplayConfig{
			WarmupBars:      20,
			TickInterval:    "1s",
			SaveDelay:       "500ms",
			StartingCapital: 10_000,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
