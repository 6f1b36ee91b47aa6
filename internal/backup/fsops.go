package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"
)

// Copy and rename operations retry transient errors with exponential backoff.
// Save files are frequently held open by the game while it writes them.

const (
	maxRetries = 5
	retryBase  = 100 * time.Millisecond
)

// syncFile is the destination side of a copy.
type syncFile interface {
	io.Writer
	Sync() error
	Close() error
}

// Filesystem mutations replaced in tests to inject failures.
var (
	removeAll  = os.RemoveAll
	rename     = os.Rename
	createFile = func(name string) (syncFile, error) { return os.Create(name) }
)

func retry(ctx context.Context, opName string, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !isTransient(err) {
			return fmt.Errorf("%s failed: %w", opName, err)
		}

		if attempt == maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBase * (1 << (attempt - 1))):
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", opName, maxRetries, lastErr)
}

func isTransient(err error) bool {
	return errors.Is(err, syscall.EAGAIN) ||
		errors.Is(err, syscall.EBUSY) ||
		errors.Is(err, syscall.ETIMEDOUT)
}

func copyWithRetry(ctx context.Context, src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		return err
	}

	return retry(ctx, "copy", func() error {
		return copyOnce(src, dst)
	})
}

func copyOnce(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := createFile(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}

	return out.Sync()
}

func renameWithRetry(ctx context.Context, oldPath, newPath string) error {
	return retry(ctx, "rename", func() error {
		return rename(oldPath, newPath)
	})
}
