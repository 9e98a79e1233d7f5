// Package config handles TOML configuration loading with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Database DatabaseConfig `toml:"database"`
	Telegram TelegramConfig `toml:"telegram"`
	Delivery DeliveryConfig `toml:"delivery"`
	Browse   BrowseConfig   `toml:"browse"`
	Cleanup  CleanupConfig  `toml:"cleanup"`
}

// ServerConfig covers the metrics/health listener and logging.
type ServerConfig struct {
	Host      string `toml:"host"`
	Port      int    `toml:"port"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

// TelegramConfig describes the bot account and the chats it works with.
type TelegramConfig struct {
	Token       string        `toml:"token"`
	APIURL      string        `toml:"api_url"`
	PollTimeout time.Duration `toml:"poll_timeout"`
	Workers     int           `toml:"workers"`
	StorageChat int64         `toml:"storage_chat"` // channel holding the stored files
	SponsorChat string        `toml:"sponsor_chat"` // membership gate, "" disables it
	SponsorURL  string        `toml:"sponsor_url"`
	MainChat    string        `toml:"main_chat"` // where /sendseries posts
	Admins      []int64       `toml:"admins"`
}

type DeliveryConfig struct {
	MaxAttempts    int           `toml:"max_attempts"`
	InterItemDelay time.Duration `toml:"inter_item_delay"`
	ProgressEvery  int           `toml:"progress_every"`
	Workers        int           `toml:"workers"`
}

type BrowseConfig struct {
	PageSize       int `toml:"page_size"`
	GroupsPageSize int `toml:"groups_page_size"`
}

type CleanupConfig struct {
	SweepInterval  time.Duration `toml:"sweep_interval"`
	EventRetention time.Duration `toml:"event_retention"`
}

// IsAdmin reports whether user is listed in telegram.admins.
func (c *Config) IsAdmin(user int64) bool {
	for _, id := range c.Telegram.Admins {
		if id == user {
			return true
		}
	}
	return false
}

// Load reads, substitutes, defaults and validates the configuration.
// Missing environment variables and validation failures are reported
// together as a *ConfigError.
func Load(path string) (*Config, error) {
	cfg, missing, err := load(path)
	if err != nil {
		return nil, err
	}
	cfgErr := &ConfigError{Path: path, Missing: missing, Errors: cfg.Validate()}
	if cfgErr.HasErrors() {
		return nil, cfgErr
	}
	return cfg, nil
}

// LoadWithoutValidation reads the configuration and applies defaults but
// skips validation and missing-variable checks. Used by `config check` and
// tests.
func LoadWithoutValidation(path string) (*Config, error) {
	cfg, _, err := load(path)
	return cfg, err
}

func load(path string) (*Config, []string, error) {
	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env"), ".env"); err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}

	content, missing := substituteEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(content, &cfg); err != nil {
		return nil, nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, missing, nil
}

// loadDotEnv loads each existing .env file. Variables already present in
// the environment win.
func loadDotEnv(paths ...string) error {
	seen := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		if _, err := os.Stat(abs); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(abs); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 9464
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.LogFormat == "" {
		c.Server.LogFormat = "text"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/reelbox.db"
	}
	if c.Telegram.APIURL == "" {
		c.Telegram.APIURL = "https://api.telegram.org"
	}
	if c.Telegram.PollTimeout == 0 {
		c.Telegram.PollTimeout = 30 * time.Second
	}
	if c.Telegram.Workers == 0 {
		c.Telegram.Workers = 8
	}
	if c.Delivery.MaxAttempts == 0 {
		c.Delivery.MaxAttempts = 3
	}
	if c.Delivery.InterItemDelay == 0 {
		c.Delivery.InterItemDelay = time.Second
	}
	if c.Delivery.ProgressEvery == 0 {
		c.Delivery.ProgressEvery = 5
	}
	if c.Delivery.Workers == 0 {
		c.Delivery.Workers = 4
	}
	if c.Browse.PageSize == 0 {
		c.Browse.PageSize = 6
	}
	if c.Browse.GroupsPageSize == 0 {
		c.Browse.GroupsPageSize = 10
	}
	if c.Cleanup.SweepInterval == 0 {
		c.Cleanup.SweepInterval = 24 * time.Hour
	}
	if c.Cleanup.EventRetention == 0 {
		c.Cleanup.EventRetention = 30 * 24 * time.Hour
	}
}
