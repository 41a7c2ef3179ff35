package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	// DBPath is the SQLite database location.
	DBPath string `yaml:"db_path"`

	// LogLevel is one of DEBUG, INFO, ERROR.
	LogLevel string `yaml:"log_level"`

	// HorizonDays is the free-slot search horizon.
	HorizonDays int `yaml:"horizon_days"`

	// SlotRoundingMinutes is the tick candidate slots are aligned to.
	SlotRoundingMinutes int `yaml:"slot_rounding_minutes"`

	// RecommendLimit caps the recommended-task list.
	RecommendLimit int `yaml:"recommend_limit"`
}

func DefaultConfig() *Config {
	return &Config{
		DBPath:              defaultPath("planline.db"),
		LogLevel:            "INFO",
		HorizonDays:         7,
		SlotRoundingMinutes: 15,
		RecommendLimit:      5,
	}
}

// Normalize fills missing or zero values with defaults so partially filled
// config files still behave.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.DBPath == "" {
		c.DBPath = def.DBPath
	}
	switch c.LogLevel {
	case "DEBUG", "INFO", "ERROR":
	default:
		c.LogLevel = def.LogLevel
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = def.HorizonDays
	}
	if c.SlotRoundingMinutes <= 0 {
		c.SlotRoundingMinutes = def.SlotRoundingMinutes
	}
	if c.RecommendLimit <= 0 {
		c.RecommendLimit = def.RecommendLimit
	}
}

// Load reads the config at path, or the default location when path is empty.
// A missing file yields the defaults without error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes the config to path (default location when empty), creating the
// directory on first run.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func DefaultConfigPath() string {
	return defaultPath("config.yaml")
}

func defaultPath(name string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, ".planline", name)
}
