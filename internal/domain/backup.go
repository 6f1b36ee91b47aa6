package domain

import (
	"context"
	"errors"
	"fmt"
	"syscall"
)

// BackupInfo is a read-only summary derived from the two save files of a snapshot.
type BackupInfo struct {
	PlayerIcon      int      `json:"playerIcon"`
	PlayerColor1    int      `json:"playerColor1"`
	PlayerColor2    int      `json:"playerColor2"`
	PlayerGlowColor *int     `json:"playerGlow,omitempty"`
	StarCount       int      `json:"starCount"`
	LevelNames      []string `json:"levelNames"`
}

// LevelCount returns the number of local levels in the snapshot.
func (i BackupInfo) LevelCount() int {
	return len(i.LevelNames)
}

// HasGlow reports whether the player icon has a glow outline.
func (i BackupInfo) HasGlow() bool {
	return i.PlayerGlowColor != nil
}

var (
	// ErrCancelled is returned by info loads that were cancelled before completing.
	ErrCancelled = errors.New("info load cancelled")

	// ErrMetadataCorrupt marks a missing or unreadable metadata sidecar.
	// Records repair it on open; it never reaches callers of the store.
	ErrMetadataCorrupt = errors.New("backup metadata is missing or corrupt")

	// ErrPickCancelled is returned by folder pickers when the user dismissed the dialog.
	ErrPickCancelled = errors.New("folder pick cancelled")
)

// IOError is an OS-level failure while copying, moving, creating or removing backup files.
type IOError struct {
	Op      string
	Path    string
	Message string
	Code    int
	Err     error
}

// NewIOError wraps err, extracting the OS error code when there is one.
func NewIOError(op, path string, err error) *IOError {
	e := &IOError{
		Op:   op,
		Path: path,
		Err:  err,
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		e.Code = int(errno)
		e.Message = errno.Error()
	} else {
		e.Message = err.Error()
	}

	return e
}

// Error implements error.
func (e *IOError) Error() string {
	return fmt.Sprintf("unable to %s backup: %s (code %d)", e.Op, e.Message, e.Code)
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error {
	return e.Err
}

// SaveDirProvider supplies the directory holding the live save files.
type SaveDirProvider interface {
	SaveDir() (string, error)
}

// FolderPicker asks the user for a directory to import.
// Implementations return ErrPickCancelled when nothing was chosen.
type FolderPicker interface {
	PickFolder(ctx context.Context) (string, error)
}
