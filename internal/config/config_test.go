package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/abelbrown/narratives/internal/narrative"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	def := DefaultConfig()
	if cfg.ServerURL != def.ServerURL || cfg.HTTPTimeout != def.HTTPTimeout || cfg.UI.TitleWidth != def.UI.TitleWidth {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
	if cfg.DefaultFilters != nil {
		t.Errorf("DefaultFilters = %+v, want nil", cfg.DefaultFilters)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{
  "server_url": "http://narratives.local:8080",
  "http_timeout": "5s",
  "refresh_interval": "0s",
  "relays": ["wss://nos.lol"],
  "default_filters": {"publishers": ["CNBC"], "macro_topics": ["House prices"]},
  "ui": {"theme": "light"}
}`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ServerURL != "http://narratives.local:8080" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.HTTPTimeout != 5*time.Second || cfg.RefreshInterval != 0 {
		t.Errorf("durations = %v, %v", cfg.HTTPTimeout, cfg.RefreshInterval)
	}
	if len(cfg.Relays) != 1 || cfg.Relays[0] != "wss://nos.lol" {
		t.Errorf("Relays = %v", cfg.Relays)
	}
	if cfg.DefaultFilters == nil || len(cfg.DefaultFilters.MacroTopics) != 1 {
		t.Errorf("DefaultFilters = %+v", cfg.DefaultFilters)
	}
	if cfg.UI.Theme != "light" || cfg.UI.TitleWidth != DefaultConfig().UI.TitleWidth {
		t.Errorf("UI = %+v", cfg.UI)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("NARRATIVES_SERVER_URL", "http://env:5000")
	t.Setenv("NARRATIVES_LOG_LEVEL", "debug")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.json"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ServerURL != "http://env:5000" || cfg.LogLevel != "debug" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.ServerURL = "http://saved:1"
	cfg.RefreshInterval = 90 * time.Second
	cfg.DefaultFilters = &narrative.Filters{Platforms: []string{"Web"}}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("perm = %v, want 0600", info.Mode().Perm())
	}

	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if back.ServerURL != "http://saved:1" || back.RefreshInterval != 90*time.Second {
		t.Errorf("back = %+v", back)
	}
	if back.DefaultFilters == nil || back.DefaultFilters.Platforms[0] != "Web" {
		t.Errorf("DefaultFilters = %+v", back.DefaultFilters)
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte("{nope"), 0600)

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, should not be not-exist", err)
	}
}

func TestPaths(t *testing.T) {
	cfg := &Config{DataDir: "/tmp/n"}
	if cfg.DBPath() != "/tmp/n/narratives.db" || cfg.AuditPath() != "/tmp/n/audit.jsonl" {
		t.Errorf("paths = %s, %s", cfg.DBPath(), cfg.AuditPath())
	}
}
