package config

import "profiledeck/internal/logging"

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level" env:"PROFILEDECK_LOG_LEVEL"` // debug, info, warn, error
	Format     string          `yaml:"format"`                            // console, json
	File       string          `yaml:"file" env:"PROFILEDECK_LOG_FILE"`
	DebugMode  bool            `yaml:"debug_mode" env:"PROFILEDECK_DEBUG"` // Master toggle - false = no logging unless File is set
	Categories map[string]bool `yaml:"categories"`                         // Per-category toggles
}

// IsCategoryEnabled returns whether logging is enabled for a category.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if !c.DebugMode && c.File == "" {
		return false
	}
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true
	}
	return enabled
}

// Options converts the config into logging.Options.
func (c LoggingConfig) Options() logging.Options {
	return logging.Options{
		Level:      c.Level,
		Format:     c.Format,
		File:       c.File,
		DebugMode:  c.DebugMode,
		Categories: c.Categories,
	}
}
