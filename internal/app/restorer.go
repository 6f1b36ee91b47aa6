package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sharkusmanch/gd-backups/internal/backup"
)

// RestoreOutcome tells the host what to do after a restore. The game must
// not autosave over the restored files and has to restart to load them.
type RestoreOutcome struct {
	SafetyBackup    *backup.Record
	SkipAutosave    bool
	RestartRequired bool
}

// Restorer replaces the live save data with a snapshot.
type Restorer struct {
	store  *backup.Store
	logger *slog.Logger
}

// RestorerOption configures a Restorer.
type RestorerOption func(*Restorer)

// WithRestorerLogger sets the logger.
func WithRestorerLogger(l *slog.Logger) RestorerOption {
	return func(r *Restorer) {
		r.logger = l
	}
}

// NewRestorer creates a new Restorer.
func NewRestorer(store *backup.Store, opts ...RestorerOption) *Restorer {
	r := &Restorer{
		store:  store,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Restore copies rec over the live save data. With backupFirst the current
// progress is saved as a manual snapshot beforehand, and a failure there
// aborts the restore. Any snapshot taken is returned even when the restore
// itself fails.
func (r *Restorer) Restore(ctx context.Context, rec *backup.Record, backupFirst bool) (*RestoreOutcome, error) {
	lock, err := acquireStoreLock(ctx, r.store)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	outcome := &RestoreOutcome{}

	if backupFirst {
		safety, err := r.store.Create(ctx, false)
		if err != nil {
			return nil, fmt.Errorf("unable to back up current progress, restore cancelled: %w", err)
		}
		outcome.SafetyBackup = safety
		r.logger.Info("backed up current progress", "path", safety.Path())
	}

	if err := r.store.Restore(ctx, rec); err != nil {
		r.logger.Error("restore failed", "path", rec.Path(), "error", err)
		return outcome, err
	}

	outcome.SkipAutosave = true
	outcome.RestartRequired = true

	r.logger.Info("backup restored", "path", rec.Path())
	return outcome, nil
}
