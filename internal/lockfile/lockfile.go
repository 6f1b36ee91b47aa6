// Package lockfile provides an exclusive, advisory lock on a directory so
// that only one process mutates a backup root at a time.
package lockfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// FileName is the lock file created inside the locked directory.
const FileName = ".gd-backups.lock"

var errWouldBlock = errors.New("lock held by another process")

// ErrLockActive is returned when another process holds the lock.
type ErrLockActive struct {
	Path  string
	Owner Owner
}

// Error implements error.
func (e *ErrLockActive) Error() string {
	if e.Owner.PID == 0 {
		return fmt.Sprintf("lock %s is held by another process", e.Path)
	}
	return fmt.Sprintf("lock %s is held by %s (pid %d on %s since %s)",
		e.Path, e.Owner.AppID, e.Owner.PID, e.Owner.Hostname, e.Owner.Acquired.Format(time.RFC3339))
}

// Owner describes the process holding a lock.
type Owner struct {
	AppID    string    `json:"app_id"`
	PID      int       `json:"pid"`
	Hostname string    `json:"hostname"`
	Acquired time.Time `json:"acquired"`
}

// Lock is a held directory lock.
type Lock struct {
	path string
	file *os.File
	once sync.Once
}

// Acquire takes the lock for dir, creating dir if needed. It does not wait:
// if the lock is held elsewhere an *ErrLockActive is returned.
func Acquire(ctx context.Context, dir, appID string) (*Lock, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	path := filepath.Join(dir, FileName)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}

	if err := lockFile(f); err != nil {
		defer f.Close()
		if errors.Is(err, errWouldBlock) {
			return nil, &ErrLockActive{Path: path, Owner: readOwner(f)}
		}
		return nil, fmt.Errorf("failed to lock %s: %w", path, err)
	}

	hostname, _ := os.Hostname()
	owner := Owner{
		AppID:    appID,
		PID:      os.Getpid(),
		Hostname: hostname,
		Acquired: time.Now().UTC(),
	}
	if data, err := json.Marshal(owner); err == nil {
		_ = f.Truncate(0)
		_, _ = f.WriteAt(data, 0)
	}

	return &Lock{path: path, file: f}, nil
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks and closes the lock file. It is safe to call more than once.
func (l *Lock) Release() {
	l.once.Do(func() {
		_ = l.file.Truncate(0)
		_ = unlockFile(l.file)
		_ = l.file.Close()
	})
}

func readOwner(f *os.File) Owner {
	var owner Owner
	buf := make([]byte, 512)
	n, _ := f.ReadAt(buf, 0)
	if n > 0 {
		_ = json.Unmarshal(buf[:n], &owner)
	}
	return owner
}
