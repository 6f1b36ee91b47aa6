// Package app provides the core application logic.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sharkusmanch/gd-backups/internal/backup"
	"github.com/sharkusmanch/gd-backups/internal/config"
	"github.com/sharkusmanch/gd-backups/internal/domain"
	"github.com/sharkusmanch/gd-backups/internal/lockfile"
)

// Notification titles shown to the player.
const (
	TitleBackupCreated = "Save Data has been Backed Up!"
	TitleBackupFailed  = "Failed to back up Save Data"
	TitleCleanupFailed = "Failed to clean up old backups"
)

// Runner performs the automatic backup check made when the game starts.
type Runner struct {
	store         *backup.Store
	metricsPusher domain.MetricsPusher
	notifier      domain.Notifier
	logger        *slog.Logger
	hostname      string
	now           func() time.Time

	mu     sync.RWMutex
	config *config.Config
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithMetricsPusher sets the metrics pusher.
func WithMetricsPusher(m domain.MetricsPusher) RunnerOption {
	return func(r *Runner) {
		r.metricsPusher = m
	}
}

// WithNotifier sets the notifier.
func WithNotifier(n domain.Notifier) RunnerOption {
	return func(r *Runner) {
		r.notifier = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = l
	}
}

// WithClock sets the time source used for the cadence check.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

// NewRunner creates a new Runner.
func NewRunner(cfg *config.Config, store *backup.Store, opts ...RunnerOption) *Runner {
	hostname, _ := os.Hostname()

	r := &Runner{
		config:   cfg,
		store:    store,
		logger:   slog.Default(),
		hostname: hostname,
		notifier: &domain.NopNotifier{},
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// SetConfig replaces the configuration used by subsequent runs.
func (r *Runner) SetConfig(cfg *config.Config) {
	r.mu.Lock()
	r.config = cfg
	r.mu.Unlock()
}

func (r *Runner) currentConfig() *config.Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.config
}

// Run executes one automatic backup check. Failures are reported in the
// result and through the notifier; the returned error is always nil so
// callers never abort on a failed backup.
func (r *Runner) Run(ctx context.Context) (*domain.RunResult, error) {
	cfg := r.currentConfig()
	result := domain.NewRunResult(uuid.NewString(), cfg.DryRun)
	logger := r.logger.With("run_id", result.RunID)

	logger.Info("starting backup run",
		"rate", cfg.AutoBackupRate,
		"dry_run", cfg.DryRun,
		"backup_dir", r.store.Dir(),
	)

	r.backup(ctx, cfg, result, logger)
	result.Complete()

	if err := r.pushMetrics(ctx, result); err != nil {
		logger.Error("failed to push metrics", "error", err)
		result.AddError(err)
	}

	if err := r.sendNotifications(ctx, result); err != nil {
		logger.Error("failed to send notification", "error", err)
	}

	logger.Info("backup run completed",
		"success", result.Success,
		"skipped", result.Skipped,
		"skip_reason", result.SkipReason,
		"duration", result.Duration,
	)

	return result, nil
}

// backup runs the locked part of an automatic backup check.
func (r *Runner) backup(ctx context.Context, cfg *config.Config, result *domain.RunResult, logger *slog.Logger) {
	if !cfg.AutoBackupRate.Enabled() {
		logger.Debug("automatic backups disabled")
		result.Skip(domain.SkipDisabled)
		return
	}

	lock, err := acquireStoreLock(ctx, r.store)
	if err != nil {
		var active *lockfile.ErrLockActive
		if errors.As(err, &active) {
			logger.Info("backup directory in use, skipping run", "error", err)
			result.Skip(domain.SkipLocked)
			return
		}
		result.FailBackup(err)
		return
	}
	defer lock.Release()

	result.NestedFixed = r.store.FixNestedBackups(ctx)

	records, err := r.store.ListAll(true)
	if err != nil {
		result.FailBackup(fmt.Errorf("unable to list backups: %w", err))
		return
	}
	defer func() { r.countSnapshots(result) }()

	if len(records) > 0 {
		age := r.now().Sub(records[0].CreatedAt())
		if age < cfg.AutoBackupRate.MinInterval() {
			logger.Info("latest backup is recent, skipping run",
				"latest", records[0].Name(),
				"age", age.Round(time.Minute),
			)
			result.Skip(domain.SkipTooRecent)
			return
		}
	}

	if cfg.DryRun {
		logger.Info("dry run: would clean up and create a backup", "limit", r.store.CleanupLimit())
		result.Skip(domain.SkipDryRun)
		return
	}

	cleaned, err := r.store.CleanupAutomated(ctx)
	result.Cleaned = cleaned
	if err != nil {
		logger.Error("cleanup failed", "error", err)
		result.AddError(fmt.Errorf("cleanup: %w", err))
	}

	rec, err := r.store.Create(ctx, true)
	if err != nil {
		logger.Error("backup failed", "error", err)
		result.FailBackup(err)
		return
	}
	result.BackupPath = rec.Path()
}

func (r *Runner) countSnapshots(result *domain.RunResult) {
	records, err := r.store.ListAll(false)
	if err != nil {
		return
	}
	result.Snapshots = len(records)
	for _, rec := range records {
		if rec.IsAutoRemove() {
			result.AutoRemove++
		}
	}
}

// pushMetrics sends metrics to the metrics pusher.
func (r *Runner) pushMetrics(ctx context.Context, result *domain.RunResult) error {
	if r.metricsPusher == nil {
		return nil
	}

	metrics := domain.NewMetrics(r.hostname)
	metrics.ServiceUp = true
	metrics.Run = result

	return r.metricsPusher.Push(ctx, metrics)
}

// pushServiceDown reports the service as stopped.
func (r *Runner) pushServiceDown(ctx context.Context) error {
	if r.metricsPusher == nil {
		return nil
	}

	metrics := domain.NewMetrics(r.hostname)
	metrics.ServiceUp = false
	return r.metricsPusher.Push(ctx, metrics)
}

// sendNotifications reports the run outcome. Level filtering happens in
// the notifier chain.
func (r *Runner) sendNotifications(ctx context.Context, result *domain.RunResult) error {
	if r.notifier == nil {
		return nil
	}

	var notifications []*domain.Notification
	switch {
	case !result.Success:
		notifications = append(notifications, domain.ErrorNotification(TitleBackupFailed, r.buildErrorMessage(result)))
	case result.BackupPath != "":
		if len(result.Errors) > 0 {
			notifications = append(notifications, domain.WarningNotification(TitleCleanupFailed, r.buildErrorMessage(result)))
		}
		notifications = append(notifications, domain.SuccessNotification(TitleBackupCreated, r.buildSuccessMessage(result)))
	}

	var errs []error
	for _, n := range notifications {
		n.RunID = result.RunID
		if err := r.notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// buildErrorMessage builds an error notification message.
func (r *Runner) buildErrorMessage(result *domain.RunResult) string {
	msg := fmt.Sprintf("Backup run on %s reported errors.\n", r.hostname)
	for _, err := range result.Errors {
		msg += fmt.Sprintf("Error: %s\n", err)
	}
	return msg
}

// buildSuccessMessage builds a success notification message.
func (r *Runner) buildSuccessMessage(result *domain.RunResult) string {
	msg := fmt.Sprintf("Backup saved to %s on %s.\n", result.BackupPath, r.hostname)
	if result.Cleaned > 0 {
		msg += fmt.Sprintf("Removed %d old automatic backups.\n", result.Cleaned)
	}
	msg += fmt.Sprintf("Duration: %s", result.Duration.Round(100*time.Millisecond))
	return msg
}
