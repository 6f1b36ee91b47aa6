package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sharkusmanch/gd-backups/internal/backup"
	"github.com/sharkusmanch/gd-backups/internal/domain"
)

// ImportResult is the outcome of one import.
type ImportResult struct {
	Source   string
	Imported int
	Failed   int
	Err      error
}

// Message returns the summary shown to the player.
func (r ImportResult) Message() string {
	msg := fmt.Sprintf("Imported %d backups", r.Imported)
	if r.Failed > 0 {
		msg += fmt.Sprintf(" (%d failed to import)", r.Failed)
	}
	return msg
}

// Importer brings snapshots from a user-chosen folder into the store.
type Importer struct {
	store  *backup.Store
	logger *slog.Logger
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithImporterLogger sets the logger.
func WithImporterLogger(l *slog.Logger) ImporterOption {
	return func(i *Importer) {
		i.logger = l
	}
}

// NewImporter creates a new Importer.
func NewImporter(store *backup.Store, opts ...ImporterOption) *Importer {
	i := &Importer{
		store:  store,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(i)
	}

	return i
}

// Import asks picker for a folder and imports every snapshot found in it.
// The returned channel yields exactly one result and is then closed.
// A cancelled pick yields a result whose Err is domain.ErrPickCancelled.
func (i *Importer) Import(ctx context.Context, picker domain.FolderPicker) <-chan ImportResult {
	out := make(chan ImportResult, 1)

	go func() {
		defer close(out)
		out <- i.importFrom(ctx, picker)
	}()

	return out
}

func (i *Importer) importFrom(ctx context.Context, picker domain.FolderPicker) ImportResult {
	path, err := picker.PickFolder(ctx)
	if err != nil {
		return ImportResult{Err: err}
	}

	lock, err := acquireStoreLock(ctx, i.store)
	if err != nil {
		return ImportResult{Source: path, Err: err}
	}
	defer lock.Release()

	imported, failed := i.store.MigrateAllFrom(ctx, path)
	i.logger.Info("import finished", "path", path, "imported", imported, "failed", failed)

	return ImportResult{
		Source:   path,
		Imported: imported,
		Failed:   failed,
		Err:      ctx.Err(),
	}
}
