// Package logging provides categorized zap-backed logging for profiledeck.
// Each subsystem logs under its own category so noisy areas (per-file decode
// failures, watcher events) can be switched off without losing the rest.
// Until Initialize is called every logger is a no-op.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot       Category = "boot"       // Startup, config resolution
	CategoryScan       Category = "scan"       // Directory enumeration
	CategoryDecode     Category = "decode"     // Envelope and payload decoding
	CategoryWatcher    Category = "watcher"    // Filesystem notifications, debounce
	CategoryCollection Category = "collection" // Collection manager state changes
	CategoryTrash      Category = "trash"      // Deletion sink
	CategoryIndex      Category = "index"      // SQLite decode cache
	CategoryUI         Category = "ui"         // Terminal presentation layer
)

// Options mirrors config.LoggingConfig so this package has no internal imports.
type Options struct {
	Level      string
	Format     string // console, json
	File       string
	DebugMode  bool
	Categories map[string]bool
}

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	base    = zap.NewNop()
	opts    Options
	loggers = make(map[Category]*Logger)
)

// Initialize builds the shared zap core from opts.
// Logging stays disabled unless debug mode is on or an output file is set.
func Initialize(o Options) error {
	if !o.DebugMode && o.File == "" {
		mu.Lock()
		opts = o
		base = zap.NewNop()
		loggers = make(map[Category]*Logger)
		mu.Unlock()
		return nil
	}

	level, err := zapcore.ParseLevel(levelOrDefault(o.Level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", o.Level, err)
	}

	var cfg zap.Config
	if o.Format == "json" {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.OutputPaths = []string{"stderr"}
	if o.File != "" {
		if err := os.MkdirAll(filepath.Dir(o.File), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		cfg.OutputPaths = []string{o.File}
	}

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	Use(l, o)
	Get(CategoryBoot).Info("logging initialized: level=%s format=%s file=%q", level, cfg.Encoding, o.File)
	return nil
}

// Use installs an already-built zap logger, e.g. the CLI root logger or a
// zaptest observer in tests.
func Use(l *zap.Logger, o Options) {
	mu.Lock()
	defer mu.Unlock()
	base = l
	opts = o
	loggers = make(map[Category]*Logger)
}

// Base returns the shared zap logger.
func Base() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Reset restores the no-op default.
func Reset() {
	Use(zap.NewNop(), Options{})
}

// Sync flushes buffered entries.
func Sync() {
	mu.RLock()
	l := base
	mu.RUnlock()
	_ = l.Sync()
}

// IsCategoryEnabled returns whether a specific category is enabled.
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if opts.Categories == nil {
		return true
	}
	enabled, exists := opts.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Disabled categories get a no-op logger.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category, sugar: zap.NewNop().Sugar()}
	}

	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := &Logger{category: category, sugar: base.Named(string(category)).Sugar()}
	loggers[category] = l
	return l
}

// Category returns the logger's category.
func (l *Logger) Category() Category { return l.category }

func (l *Logger) Debug(format string, args ...interface{}) { l.sugar.Debugf(format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.sugar.Infof(format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.sugar.Warnf(format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.sugar.Errorf(format, args...) }

// With returns a logger carrying structured key/value context.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

func levelOrDefault(s string) string {
	if s == "" {
		return "info"
	}
	if s == "warning" {
		return "warn"
	}
	return s
}

// Convenience helpers for the hottest categories.

func Scan(format string, args ...interface{})      { Get(CategoryScan).Info(format, args...) }
func ScanDebug(format string, args ...interface{}) { Get(CategoryScan).Debug(format, args...) }

func Decode(format string, args ...interface{})      { Get(CategoryDecode).Info(format, args...) }
func DecodeDebug(format string, args ...interface{}) { Get(CategoryDecode).Debug(format, args...) }

func Watcher(format string, args ...interface{})      { Get(CategoryWatcher).Info(format, args...) }
func WatcherDebug(format string, args ...interface{}) { Get(CategoryWatcher).Debug(format, args...) }

func Collection(format string, args ...interface{})      { Get(CategoryCollection).Info(format, args...) }
func CollectionDebug(format string, args ...interface{}) { Get(CategoryCollection).Debug(format, args...) }
