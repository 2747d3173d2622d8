package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"profiledeck/internal/config"
	"profiledeck/internal/logging"
)

var (
	// Global flags
	verbose      bool
	configPath   string
	rootOverride string

	// Resolved at startup
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "profiledeck",
	Short: "Browse and manage installed provisioning profiles",
	Long: `profiledeck decodes the provisioning profiles installed on this machine
and keeps a live, searchable view of them.

Run "profiledeck watch" for the interactive browser, or use list, show and
delete from scripts.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig()
		if err != nil {
			return err
		}
		return initLogger(cmd.Name() == watchCmd.Name())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: <user config dir>/profiledeck/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootOverride, "root", "r", "", "Profiles directory (overrides config)")

	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(watchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	c, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if rootOverride != "" {
		c.Profiles.Root = rootOverride
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return c, nil
}

// initLogger wires the category loggers. A configured log file or debug
// mode takes over completely; otherwise warnings go to stderr, except in
// the interactive view which owns the terminal.
func initLogger(interactive bool) error {
	opts := cfg.Logging.Options()
	if verbose {
		opts.Level = "debug"
	}

	if opts.File != "" || (opts.DebugMode && !interactive) {
		if err := logging.Initialize(opts); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = logging.Base()
		return nil
	}

	if interactive {
		logger = zap.NewNop()
		logging.Use(logger, opts)
		return nil
	}

	zc := zap.NewProductionConfig()
	zc.Encoding = "console"
	zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	var err error
	logger, err = zc.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logging.Use(logger, opts)
	return nil
}
