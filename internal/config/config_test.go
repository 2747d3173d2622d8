package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"profiledeck/internal/profile"
)

// =============================================================================
// UNIFIED CONFIG TESTS
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Profiles.Root != DefaultRoot {
		t.Errorf("expected Root=%s, got %s", DefaultRoot, cfg.Profiles.Root)
	}
	if !cfg.Watcher.Enabled {
		t.Error("expected watcher enabled by default")
	}
	if cfg.DebounceDuration() != 300*time.Millisecond {
		t.Errorf("expected 300ms debounce, got %s", cfg.DebounceDuration())
	}
	if cfg.Cache.Enabled {
		t.Error("expected cache disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Profiles.Root = "/srv/profiles"
	cfg.Watcher.Debounce = "1s"
	cfg.View.Sort = "expires_at"
	cfg.View.Descending = true
	cfg.Logging.Categories = map[string]bool{"scan": false}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Profiles.Root != "/srv/profiles" {
		t.Errorf("expected Root=/srv/profiles, got %s", loaded.Profiles.Root)
	}
	if loaded.DebounceDuration() != time.Second {
		t.Errorf("expected 1s debounce, got %s", loaded.DebounceDuration())
	}
	if got := loaded.SortKey(); got != (profile.SortKey{Field: profile.FieldExpiresAt, Ascending: false}) {
		t.Errorf("unexpected sort key %+v", got)
	}
	if loaded.Logging.Categories["scan"] {
		t.Error("expected scan category disabled")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Profiles.Workers != 8 {
		t.Errorf("expected Workers=8, got %d", cfg.Profiles.Workers)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("cache:\n  enabled: true\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !cfg.Cache.Enabled {
		t.Error("expected cache enabled from file")
	}
	if cfg.Watcher.Debounce != "300ms" {
		t.Errorf("expected default debounce preserved, got %s", cfg.Watcher.Debounce)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("profiles: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "failed to parse config") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty root", func(c *Config) { c.Profiles.Root = " " }, "profiles.root"},
		{"negative workers", func(c *Config) { c.Profiles.Workers = -1 }, "profiles.workers"},
		{"bad debounce", func(c *Config) { c.Watcher.Debounce = "soon" }, "watcher.debounce"},
		{"zero debounce", func(c *Config) { c.Watcher.Debounce = "0s" }, "watcher.debounce"},
		{"bad sort", func(c *Config) { c.View.Sort = "colour" }, "view.sort"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

func TestConfig_ResolvedRoot(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := DefaultConfig()
	got, err := cfg.ResolvedRoot()
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(home, "Library", "MobileDevice", "Provisioning Profiles")
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}

	cfg.Profiles.Root = "/abs/path"
	if got, _ := cfg.ResolvedRoot(); got != "/abs/path" {
		t.Errorf("absolute root changed: %s", got)
	}
}

func TestConfig_Workers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Profiles.Workers = 0
	if cfg.Workers() != 1 {
		t.Errorf("expected at least one worker, got %d", cfg.Workers())
	}
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	c := LoggingConfig{}
	if c.IsCategoryEnabled("scan") {
		t.Error("logging off without debug mode or file")
	}
	c.DebugMode = true
	if !c.IsCategoryEnabled("scan") {
		t.Error("categories default to enabled")
	}
	c.Categories = map[string]bool{"scan": false}
	if c.IsCategoryEnabled("scan") {
		t.Error("explicitly disabled category reported enabled")
	}
	if !c.IsCategoryEnabled("watcher") {
		t.Error("unlisted category should stay enabled")
	}

	opts := c.Options()
	if !opts.DebugMode || opts.Categories["scan"] {
		t.Errorf("options not carried over: %+v", opts)
	}
}
