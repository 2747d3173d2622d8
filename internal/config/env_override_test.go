package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvOverrides(t *testing.T) {
	t.Run("PROFILEDECK_ROOT replaces file value", func(t *testing.T) {
		t.Setenv("PROFILEDECK_ROOT", "/tmp/profiles")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())

		assert.Equal(t, "/tmp/profiles", cfg.Profiles.Root)
	})

	t.Run("PROFILEDECK_DEBOUNCE sets quiet period", func(t *testing.T) {
		t.Setenv("PROFILEDECK_DEBOUNCE", "750ms")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())

		assert.Equal(t, 750*time.Millisecond, cfg.DebounceDuration())
	})

	t.Run("cache toggles", func(t *testing.T) {
		t.Setenv("PROFILEDECK_CACHE", "true")
		t.Setenv("PROFILEDECK_CACHE_PATH", "/tmp/idx.db")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())

		assert.True(t, cfg.Cache.Enabled)
		assert.Equal(t, "/tmp/idx.db", cfg.Cache.Path)
	})

	t.Run("locale and log level", func(t *testing.T) {
		t.Setenv("PROFILEDECK_LOCALE", "sv-SE")
		t.Setenv("PROFILEDECK_LOG_LEVEL", "debug")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())

		assert.Equal(t, "sv-SE", cfg.View.Locale)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("trash dir", func(t *testing.T) {
		t.Setenv("PROFILEDECK_TRASH_DIR", "/tmp/bin")

		cfg := &Config{}
		require.NoError(t, cfg.applyEnvOverrides())

		assert.Equal(t, "/tmp/bin", cfg.Trash.Dir)
	})

	t.Run("malformed bool is an error", func(t *testing.T) {
		t.Setenv("PROFILEDECK_CACHE", "sometimes")

		cfg := DefaultConfig()
		err := cfg.applyEnvOverrides()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse env")
	})

	t.Run("env beats file", func(t *testing.T) {
		path := t.TempDir() + "/config.yaml"
		file := DefaultConfig()
		file.Profiles.Root = "/from/file"
		require.NoError(t, file.Save(path))

		t.Setenv("PROFILEDECK_ROOT", "/from/env")
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "/from/env", cfg.Profiles.Root)
	})
}
