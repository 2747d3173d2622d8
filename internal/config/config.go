package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"profiledeck/internal/profile"
)

// Config holds all profiledeck configuration.
type Config struct {
	Profiles ProfilesConfig `yaml:"profiles"`
	Watcher  WatcherConfig  `yaml:"watcher"`
	Cache    CacheConfig    `yaml:"cache"`
	Trash    TrashConfig    `yaml:"trash"`
	View     ViewConfig     `yaml:"view"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ProfilesConfig locates the installed profiles.
type ProfilesConfig struct {
	Root    string `yaml:"root" env:"PROFILEDECK_ROOT"`
	Workers int    `yaml:"workers" env:"PROFILEDECK_WORKERS"` // concurrent decoders per reload
}

// WatcherConfig configures the change watcher.
type WatcherConfig struct {
	Enabled  bool   `yaml:"enabled" env:"PROFILEDECK_WATCH"`
	Debounce string `yaml:"debounce" env:"PROFILEDECK_DEBOUNCE"`
}

// CacheConfig configures the SQLite decode cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled" env:"PROFILEDECK_CACHE"`
	Path    string `yaml:"path" env:"PROFILEDECK_CACHE_PATH"` // empty = user cache dir
}

// TrashConfig configures the deletion sink.
type TrashConfig struct {
	Dir string `yaml:"dir" env:"PROFILEDECK_TRASH_DIR"` // empty = platform trash
}

// ViewConfig holds the initial presentation state.
type ViewConfig struct {
	Sort       string `yaml:"sort"`
	Descending bool   `yaml:"descending"`
	Locale     string `yaml:"locale" env:"PROFILEDECK_LOCALE"`
}

// DefaultRoot is where Xcode installs provisioning profiles.
const DefaultRoot = "~/Library/MobileDevice/Provisioning Profiles"

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Profiles: ProfilesConfig{
			Root:    DefaultRoot,
			Workers: 8,
		},
		Watcher: WatcherConfig{
			Enabled:  true,
			Debounce: "300ms",
		},
		View: ViewConfig{
			Sort: string(profile.FieldName),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment variables override file values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies PROFILEDECK_* environment variables.
func (c *Config) applyEnvOverrides() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if c.View.Locale == "" {
		c.View.Locale = os.Getenv("LANG")
	}
	return nil
}

// DefaultConfigPath returns <user config dir>/profiledeck/config.yaml.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return filepath.Join(".profiledeck", "config.yaml")
	}
	return filepath.Join(dir, "profiledeck", "config.yaml")
}

// ResolvedRoot returns the profiles root with a leading ~ expanded.
func (c *Config) ResolvedRoot() (string, error) {
	return expandHome(c.Profiles.Root)
}

// DebounceDuration returns the watcher quiet period.
func (c *Config) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Watcher.Debounce)
	if err != nil || d <= 0 {
		return 300 * time.Millisecond
	}
	return d
}

// SortKey returns the configured initial ordering.
func (c *Config) SortKey() profile.SortKey {
	f, err := profile.ParseField(c.View.Sort)
	if err != nil {
		f = profile.FieldNone
	}
	return profile.SortKey{Field: f, Ascending: !c.View.Descending}
}

// Workers returns the decode concurrency, at least 1.
func (c *Config) Workers() int {
	if c.Profiles.Workers < 1 {
		return 1
	}
	return c.Profiles.Workers
}

// ValidLevels lists the accepted log levels.
var ValidLevels = []string{"debug", "info", "warn", "warning", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Profiles.Root) == "" {
		return fmt.Errorf("profiles.root must not be empty")
	}
	if c.Profiles.Workers < 0 {
		return fmt.Errorf("profiles.workers must not be negative: %d", c.Profiles.Workers)
	}
	d, err := time.ParseDuration(c.Watcher.Debounce)
	if err != nil {
		return fmt.Errorf("invalid watcher.debounce %q: %w", c.Watcher.Debounce, err)
	}
	if d <= 0 {
		return fmt.Errorf("watcher.debounce must be positive: %s", d)
	}
	if _, err := profile.ParseField(c.View.Sort); err != nil {
		return fmt.Errorf("invalid view.sort: %w", err)
	}

	validLevel := c.Logging.Level == ""
	for _, l := range ValidLevels {
		if c.Logging.Level == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid logging.level: %s (valid: %v)", c.Logging.Level, ValidLevels)
	}
	if f := c.Logging.Format; f != "" && f != "console" && f != "json" {
		return fmt.Errorf("invalid logging.format: %s (valid: console, json)", f)
	}
	return nil
}

func expandHome(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", p, err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
