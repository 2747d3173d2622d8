package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T, o Options) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	Use(zap.New(core), o)
	t.Cleanup(Reset)
	return logs
}

func TestGet_NoopBeforeInitialize(t *testing.T) {
	Reset()
	// Must not panic and must not write anywhere.
	Get(CategoryScan).Info("hello %s", "world")
	Get(CategoryDecode).Error("boom")
}

func TestGet_NamesLoggerAfterCategory(t *testing.T) {
	logs := observe(t, Options{})

	Get(CategoryDecode).Warn("skipping %s: %v", "a.mobileprovision", "truncated")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "decode", entries[0].LoggerName)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Equal(t, "skipping a.mobileprovision: truncated", entries[0].Message)
}

func TestGet_DisabledCategoryIsSilent(t *testing.T) {
	logs := observe(t, Options{Categories: map[string]bool{"watcher": false, "scan": true}})

	Get(CategoryWatcher).Info("event")
	Get(CategoryScan).Info("scan")
	Get(CategoryTrash).Info("unspecified categories default to on")

	assert.Equal(t, 0, logs.FilterLoggerName("watcher").Len())
	assert.Equal(t, 1, logs.FilterLoggerName("scan").Len())
	assert.Equal(t, 1, logs.FilterLoggerName("trash").Len())
}

func TestGet_CachesPerCategory(t *testing.T) {
	observe(t, Options{})
	assert.Same(t, Get(CategoryIndex), Get(CategoryIndex))
}

func TestWith_CarriesFields(t *testing.T) {
	logs := observe(t, Options{})

	Get(CategoryCollection).With("generation", 3).Info("committed")

	entries := logs.FilterMessage("committed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(3), entries[0].ContextMap()["generation"])
}

func TestHelpers(t *testing.T) {
	logs := observe(t, Options{})

	Scan("scan %d", 1)
	ScanDebug("scan debug")
	Decode("decode")
	DecodeDebug("decode debug")
	Watcher("watch")
	WatcherDebug("watch debug")
	Collection("collection")
	CollectionDebug("collection debug")

	assert.Equal(t, 8, logs.Len())
}

func TestInitialize(t *testing.T) {
	t.Cleanup(Reset)

	t.Run("production mode without file is a no-op", func(t *testing.T) {
		require.NoError(t, Initialize(Options{Level: "debug"}))
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		err := Initialize(Options{DebugMode: true, Level: "loud"})
		assert.Error(t, err)
	})

	t.Run("writes to file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "profiledeck.log")
		require.NoError(t, Initialize(Options{Level: "warning", Format: "json", File: path}))
		Get(CategoryTrash).Warn("trash failed")
		Sync()
		assert.FileExists(t, path)
	})
}
