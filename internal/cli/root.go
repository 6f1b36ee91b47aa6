// Package cli provides the command-line interface.
package cli

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/sharkusmanch/gd-backups/internal/config"
	"github.com/sharkusmanch/gd-backups/pkg/version"
)

var (
	cfgFile   string
	dryRun    bool
	logLevel  string
	backupDir string
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gd-backups",
		Short: "Geometry Dash save data backups",
		Long: `gd-backups snapshots Geometry Dash save data (CCGameManager.dat and
CCLocalLevels.dat) into timestamped backup folders.

Backups can be listed, inspected, restored, imported from other folders and
cleaned up automatically. "serve" keeps automatic backups running on a schedule.`,
		Version: version.Get().String(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "report what would change without touching backups")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&backupDir, "backup-dir", "d", "", "backup directory (overrides backup_directory)")

	rootCmd.AddCommand(NewListCmd())
	rootCmd.AddCommand(NewInfoCmd())
	rootCmd.AddCommand(NewCreateCmd())
	rootCmd.AddCommand(NewRestoreCmd())
	rootCmd.AddCommand(NewDeleteCmd())
	rootCmd.AddCommand(NewPreserveCmd())
	rootCmd.AddCommand(NewImportCmd())
	rootCmd.AddCommand(NewCleanupCmd())
	rootCmd.AddCommand(NewFixNestedCmd())
	rootCmd.AddCommand(NewRunCmd())
	rootCmd.AddCommand(NewServeCmd())
	rootCmd.AddCommand(NewValidateCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// initConfig sets up stderr logging until the config is loaded.
func initConfig() error {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(logLevel, slog.LevelInfo),
	})
	slog.SetDefault(slog.New(handler))

	return nil
}

func parseLevel(s string, fallback slog.Level) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return fallback
	}
}

// setupLogging configures logging based on the loaded config.
func setupLogging(cfg *config.Config) (*slog.Logger, error) {
	level := parseLevel(cfg.Log.Level, slog.LevelInfo)

	// CLI flag overrides config
	level = parseLevel(logLevel, level)

	var output io.Writer = os.Stderr
	if cfg.Log.Output != "" {
		dir := filepath.Dir(cfg.Log.Output)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, err
		}

		output = &lumberjack.Logger{
			Filename:   cfg.Log.Output,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
	}

	handler := slog.NewTextHandler(output, &slog.HandlerOptions{
		Level: level,
	})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger, nil
}

// newLoader creates a config loader with CLI flag overrides applied.
func newLoader() *config.Loader {
	loader := config.NewLoader()

	if cfgFile != "" {
		loader = loader.WithConfigPath(cfgFile)
	}

	if dryRun {
		loader.Set("dry_run", true)
	}
	if logLevel != "" {
		loader.Set("log.level", logLevel)
	}
	if backupDir != "" {
		loader.Set("backup_directory", backupDir)
	}

	return loader
}

// loadConfig loads the application configuration.
func loadConfig() (*config.Config, error) {
	return newLoader().Load()
}
