package lockfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "backups")

	lock, err := Acquire(context.Background(), dir, "gd-backups")
	require.NoError(t, err)
	defer lock.Release()

	assert.FileExists(t, filepath.Join(dir, FileName))
	assert.Equal(t, filepath.Join(dir, FileName), lock.Path())
}

func TestAcquire_HeldElsewhere(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("owner details are only readable while locked on flock platforms")
	}
	dir := t.TempDir()

	first, err := Acquire(context.Background(), dir, "gd-backups")
	require.NoError(t, err)

	// A second open file description conflicts even within one process.
	_, err = Acquire(context.Background(), dir, "gd-backups")
	require.Error(t, err)

	var active *ErrLockActive
	require.True(t, errors.As(err, &active))
	assert.Equal(t, os.Getpid(), active.Owner.PID)
	assert.Contains(t, active.Error(), "gd-backups")

	first.Release()

	second, err := Acquire(context.Background(), dir, "gd-backups")
	require.NoError(t, err)
	second.Release()
}

func TestRelease_Idempotent(t *testing.T) {
	lock, err := Acquire(context.Background(), t.TempDir(), "gd-backups")
	require.NoError(t, err)

	lock.Release()
	assert.NotPanics(t, lock.Release)
}

func TestAcquire_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Acquire(ctx, t.TempDir(), "gd-backups")

	assert.ErrorIs(t, err, context.Canceled)
}
