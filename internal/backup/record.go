// Package backup manages the on-disk archive of save data snapshots.
package backup

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sharkusmanch/gd-backups/internal/domain"
	"github.com/sharkusmanch/gd-backups/internal/savefile"
)

// Record is one snapshot directory inside the store.
type Record struct {
	path   string
	loader InfoLoader

	mu         sync.Mutex
	meta       Metadata
	autoRemove bool
	order      int
	hasOrder   bool
	task       *InfoTask
}

// OpenRecord loads the snapshot at path. Missing or corrupt metadata is
// rebuilt from the directory's modification time and written back; an
// error is returned only if that repair cannot be persisted.
func OpenRecord(path, user string, loader InfoLoader) (*Record, error) {
	if loader == nil {
		loader = NewLiveInfoLoader(nil, nil)
	}

	r := &Record{
		path:   path,
		loader: loader,
	}

	meta, err := readMetadata(path)
	if err != nil {
		meta, err = repairMetadata(path, user)
		if err != nil {
			return nil, err
		}
	}
	r.meta = meta
	r.autoRemove = fileExists(filepath.Join(path, AutoRemoveFile))

	return r, nil
}

func repairMetadata(path, user string) (Metadata, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Metadata{}, domain.NewIOError("read", path, err)
	}

	meta := NewMetadata(user, info.ModTime())
	if err := writeMetadata(path, meta); err != nil {
		return Metadata{}, domain.NewIOError("repair", path, err)
	}
	return meta, nil
}

// Path returns the snapshot directory.
func (r *Record) Path() string {
	return r.path
}

// Name returns the snapshot directory's base name.
func (r *Record) Name() string {
	return filepath.Base(r.path)
}

// DisplayName returns the user-given name, falling back to the directory name.
func (r *Record) DisplayName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.meta.Name != nil && *r.meta.Name != "" {
		return *r.meta.Name
	}
	return r.Name()
}

// Metadata returns a copy of the snapshot metadata.
func (r *Record) Metadata() Metadata {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.meta
}

// CreatedAt returns the snapshot time, truncated to the hour.
func (r *Record) CreatedAt() time.Time {
	return r.Metadata().CreatedAt()
}

// HasGameManagerFile reports whether the snapshot contains the game manager save.
func (r *Record) HasGameManagerFile() bool {
	return fileExists(filepath.Join(r.path, savefile.GameManagerFile))
}

// HasLocalLevelsFile reports whether the snapshot contains the local levels save.
func (r *Record) HasLocalLevelsFile() bool {
	return fileExists(filepath.Join(r.path, savefile.LocalLevelsFile))
}

// IsAutoRemove reports whether the snapshot is eligible for automatic cleanup.
func (r *Record) IsAutoRemove() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.autoRemove
}

// AutoRemoveOrder returns the snapshot's rank among auto-removable snapshots,
// newest first. The second value is false for preserved or manual snapshots.
func (r *Record) AutoRemoveOrder() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.order, r.hasOrder
}

// RemainingBeforeCleanup returns how many more automatic backups can be made
// before this one is removed under limit.
func (r *Record) RemainingBeforeCleanup(limit int) (int, bool) {
	order, ok := r.AutoRemoveOrder()
	if !ok || limit < 0 {
		return 0, false
	}
	return limit - order, true
}

func (r *Record) setOrder(order int) {
	r.mu.Lock()
	r.order, r.hasOrder = order, true
	r.mu.Unlock()
}

func (r *Record) clearOrder() {
	r.mu.Lock()
	r.order, r.hasOrder = 0, false
	r.mu.Unlock()
}

// refresh re-reads the sentinel after the directory may have been edited externally.
func (r *Record) refresh() {
	auto := fileExists(filepath.Join(r.path, AutoRemoveFile))
	r.mu.Lock()
	r.autoRemove = auto
	r.mu.Unlock()
}

// Preserve removes the auto-remove sentinel so cleanup never deletes the snapshot.
func (r *Record) Preserve() error {
	err := os.Remove(filepath.Join(r.path, AutoRemoveFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return domain.NewIOError("preserve", r.path, err)
	}

	r.mu.Lock()
	r.autoRemove = false
	r.order, r.hasOrder = 0, false
	r.mu.Unlock()
	return nil
}

// Restore copies the snapshot's save files over those in saveDir.
// Both files are attempted; the first failure is returned and earlier
// copies are not rolled back.
func (r *Record) Restore(ctx context.Context, saveDir string) error {
	var firstErr error

	for _, name := range savefile.FileNames {
		src := filepath.Join(r.path, name)
		if !fileExists(src) {
			continue
		}

		if err := copyWithRetry(ctx, src, filepath.Join(saveDir, name)); err != nil && firstErr == nil {
			firstErr = domain.NewIOError("restore", src, err)
		}
	}

	return firstErr
}

// Delete removes the snapshot directory and everything in it.
func (r *Record) Delete() error {
	r.CancelLoadInfo()
	if err := removeAll(r.path); err != nil {
		return domain.NewIOError("delete", r.path, err)
	}
	return nil
}

// LoadInfo returns the shared info computation for this snapshot, starting
// it if needed. A completed task is kept for the lifetime of the record.
func (r *Record) LoadInfo() *InfoTask {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.task != nil {
		return r.task
	}

	r.task = startInfoTask(r.loader, r.path, r.finishInfo)
	return r.task
}

func (r *Record) finishInfo(t *InfoTask) {
	if t.err == nil {
		return
	}

	r.mu.Lock()
	if r.task == t {
		r.task = nil
	}
	r.mu.Unlock()
}

// CancelLoadInfo cancels an unfinished info computation and forgets it,
// so the next LoadInfo starts over. Completed results are kept.
func (r *Record) CancelLoadInfo() {
	r.mu.Lock()
	t := r.task
	if t == nil {
		r.mu.Unlock()
		return
	}
	if _, ok := t.Result(); ok {
		r.mu.Unlock()
		return
	}
	r.task = nil
	r.mu.Unlock()

	t.Cancel()
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
