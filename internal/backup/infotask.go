package backup

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/sharkusmanch/gd-backups/internal/domain"
	"github.com/sharkusmanch/gd-backups/internal/savefile"
	"github.com/sharkusmanch/gd-backups/internal/saveinfo"
)

// InfoLoader computes the summary of the snapshot stored in dir.
// Implementations return domain.ErrCancelled when ctx is cancelled mid-way.
type InfoLoader interface {
	Load(ctx context.Context, dir string) (domain.BackupInfo, error)
}

// LiveInfoLoader decodes both save files on every call.
type LiveInfoLoader struct {
	codec  *savefile.Codec
	logger *slog.Logger
}

// NewLiveInfoLoader creates a loader that decodes with codec.
func NewLiveInfoLoader(codec *savefile.Codec, logger *slog.Logger) *LiveInfoLoader {
	if codec == nil {
		codec = savefile.NewCodec()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LiveInfoLoader{codec: codec, logger: logger}
}

// Load decodes the game manager and local levels files of dir.
func (l *LiveInfoLoader) Load(ctx context.Context, dir string) (domain.BackupInfo, error) {
	gm := l.decode(ctx, filepath.Join(dir, savefile.GameManagerFile))
	if ctx.Err() != nil {
		return domain.BackupInfo{}, domain.ErrCancelled
	}

	ll := l.decode(ctx, filepath.Join(dir, savefile.LocalLevelsFile))
	if ctx.Err() != nil {
		return domain.BackupInfo{}, domain.ErrCancelled
	}

	return saveinfo.Extract(gm, ll), nil
}

func (l *LiveInfoLoader) decode(ctx context.Context, path string) string {
	text, err := l.codec.DecodeFile(ctx, path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		l.logger.Warn("failed to read save file", "path", path, "error", err)
	}
	return text
}

// InfoTask is a handle to one background info computation.
// All observers of a record share the same task.
type InfoTask struct {
	done   chan struct{}
	cancel context.CancelFunc
	info   domain.BackupInfo
	err    error
}

func startInfoTask(loader InfoLoader, dir string, onFinish func(*InfoTask)) *InfoTask {
	ctx, cancel := context.WithCancel(context.Background())
	t := &InfoTask{
		done:   make(chan struct{}),
		cancel: cancel,
	}

	go func() {
		defer cancel()
		info, err := loader.Load(ctx, dir)
		if err == nil && ctx.Err() != nil {
			err = domain.ErrCancelled
		}
		t.info, t.err = info, err
		close(t.done)
		onFinish(t)
	}()

	return t
}

// Done is closed once the task has completed or been cancelled.
func (t *InfoTask) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx is done.
// Cancelling ctx stops the wait, not the task.
func (t *InfoTask) Wait(ctx context.Context) (domain.BackupInfo, error) {
	select {
	case <-t.done:
		return t.info, t.err
	case <-ctx.Done():
		return domain.BackupInfo{}, ctx.Err()
	}
}

// Result returns the computed info once the task has completed successfully.
func (t *InfoTask) Result() (domain.BackupInfo, bool) {
	select {
	case <-t.done:
		return t.info, t.err == nil
	default:
		return domain.BackupInfo{}, false
	}
}

// Cancel asks the task to stop at its next checkpoint.
func (t *InfoTask) Cancel() {
	t.cancel()
}
