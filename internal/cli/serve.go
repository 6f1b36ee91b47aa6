package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sharkusmanch/gd-backups/internal/app"
	"github.com/sharkusmanch/gd-backups/internal/config"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run automatic backups in the foreground",
		Long: `Run the automatic backup check on the configured schedule.

Changes to the config file are picked up without a restart: a new
backup_directory moves every backup there, and a new cleanup_limit or
schedule applies from the next check. Use Ctrl+C to stop.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	loader := newLoader()
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := setupLogging(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	logger.Info("starting gd-backups in foreground mode", "backup_dir", cfg.BackupDirectory)

	d := newDeps(cfg, logger)
	httpClient := newHTTPClient(cfg, logger)

	runner := app.NewRunner(cfg, d.store,
		app.WithLogger(logger),
		app.WithNotifier(newNotifier(cfg, httpClient, logger)),
		app.WithMetricsPusher(newMetricsPusher(cfg, httpClient, logger)),
	)

	scheduler := app.NewScheduler(runner,
		app.WithSchedule(cfg.Schedule),
		app.WithBackupOnStartup(cfg.BackupOnStartup),
		app.WithSchedulerLogger(logger),
	)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := loader.WithLogger(logger).Watch(func(next *config.Config) {
		applyConfig(ctx, d, runner, scheduler, next, logger)
	}); err != nil {
		logger.Debug("config reload disabled", "error", err)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := scheduler.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("scheduler error: %w", err)
	}

	logger.Info("gd-backups stopped")
	return nil
}

// applyConfig adopts a reloaded config file.
func applyConfig(ctx context.Context, d *deps, runner *app.Runner, scheduler *app.Scheduler, next *config.Config, logger *slog.Logger) {
	d.limit.Store(int64(next.CleanupLimit))

	if next.BackupDirectory != d.store.Dir() {
		if err := d.store.UpdateDirectory(ctx, next.BackupDirectory); err != nil {
			logger.Error("failed to change backup directory", "path", next.BackupDirectory, "error", err)
		}
	}

	if next.Schedule != d.cfg.Schedule {
		if err := scheduler.Reschedule(next.Schedule); err != nil {
			logger.Error("failed to update schedule", "error", err)
		}
	}

	d.cfg = next
	runner.SetConfig(next)
}
