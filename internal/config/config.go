// Package config loads the client configuration from
// ~/.narratives/config.json with NARRATIVES_* environment overrides.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/abelbrown/narratives/internal/narrative"
)

// EnvPrefix prefixes every environment override (NARRATIVES_SERVER_URL, ...).
const EnvPrefix = "NARRATIVES"

// Config is the persistent application configuration
type Config struct {
	ServerURL         string        `mapstructure:"server_url"`
	DataDir           string        `mapstructure:"data_dir"`
	LogLevel          string        `mapstructure:"log_level"`
	HTTPTimeout       time.Duration `mapstructure:"http_timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	RefreshInterval   time.Duration `mapstructure:"refresh_interval"` // 0 disables periodic refresh
	RelayTimeout      time.Duration `mapstructure:"relay_timeout"`
	Relays            []string      `mapstructure:"relays"`

	// DefaultFilters seeds the filter selection on first run. Nil keeps the
	// built-in defaults.
	DefaultFilters *narrative.Filters `mapstructure:"-"`

	UI UIConfig `mapstructure:"ui"`
}

// UIConfig holds UI preferences
type UIConfig struct {
	Theme      string `mapstructure:"theme"`       // "dark" or "light"
	TitleWidth int    `mapstructure:"title_width"` // 0 = no truncation
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		ServerURL:         "http://localhost:5000",
		DataDir:           defaultDataDir(),
		LogLevel:          "info",
		HTTPTimeout:       30 * time.Second,
		RequestsPerSecond: 5,
		RefreshInterval:   5 * time.Minute,
		RelayTimeout:      10 * time.Second,
		UI: UIConfig{
			Theme:      "dark",
			TitleWidth: 60,
		},
	}
}

func defaultDataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".narratives")
}

// Path returns the path to the config file
func Path() string {
	return filepath.Join(defaultDataDir(), "config.json")
}

// DBPath returns the SQLite database path inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "narratives.db")
}

// AuditPath returns the audit trail path inside the data directory.
func (c *Config) AuditPath() string {
	return filepath.Join(c.DataDir, "audit.jsonl")
}

// Load reads config from path (Path() when empty). A missing file yields
// the defaults; environment variables override both.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}

	def := DefaultConfig()
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("server_url", def.ServerURL)
	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("http_timeout", def.HTTPTimeout)
	v.SetDefault("requests_per_second", def.RequestsPerSecond)
	v.SetDefault("refresh_interval", def.RefreshInterval)
	v.SetDefault("relay_timeout", def.RelayTimeout)
	v.SetDefault("relays", []string{})
	v.SetDefault("ui.theme", def.UI.Theme)
	v.SetDefault("ui.title_width", def.UI.TitleWidth)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, os.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	// Filters keep their wire (JSON) field names, so decode them with
	// encoding/json rather than mapstructure.
	if raw := v.Get("default_filters"); raw != nil {
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("decode default_filters: %w", err)
		}
		var f narrative.Filters
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("decode default_filters: %w", err)
		}
		cfg.DefaultFilters = &f
	}

	return &cfg, nil
}

// Save writes config to path (Path() when empty).
func (c *Config) Save(path string) error {
	if path == "" {
		path = Path()
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	out := map[string]any{
		"server_url":          c.ServerURL,
		"data_dir":            c.DataDir,
		"log_level":           c.LogLevel,
		"http_timeout":        c.HTTPTimeout.String(),
		"requests_per_second": c.RequestsPerSecond,
		"refresh_interval":    c.RefreshInterval.String(),
		"relay_timeout":       c.RelayTimeout.String(),
		"relays":              c.Relays,
		"ui": map[string]any{
			"theme":       c.UI.Theme,
			"title_width": c.UI.TitleWidth,
		},
	}
	if c.DefaultFilters != nil {
		out["default_filters"] = c.DefaultFilters
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
