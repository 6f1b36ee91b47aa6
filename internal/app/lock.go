package app

import (
	"context"

	"github.com/sharkusmanch/gd-backups/internal/backup"
	"github.com/sharkusmanch/gd-backups/internal/config"
	"github.com/sharkusmanch/gd-backups/internal/lockfile"
)

// acquireStoreLock takes the cross-process lock on the store's root.
func acquireStoreLock(ctx context.Context, store *backup.Store) (*lockfile.Lock, error) {
	return lockfile.Acquire(ctx, store.Dir(), config.AppName)
}
