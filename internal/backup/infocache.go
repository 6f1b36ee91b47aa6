package backup

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"github.com/sharkusmanch/gd-backups/internal/domain"
)

// InfoCacheVersion is bumped whenever the extracted fields change;
// cache files written with another version are ignored.
const InfoCacheVersion = 2

type infoCacheFile struct {
	Version    int `json:"version"`
	LevelCount int `json:"levelCount"`
	domain.BackupInfo
}

// CachedInfoLoader persists computed info next to each snapshot.
type CachedInfoLoader struct {
	inner  InfoLoader
	logger *slog.Logger
}

// NewCachedInfoLoader wraps inner with an info-cache.json file per snapshot.
func NewCachedInfoLoader(inner InfoLoader, logger *slog.Logger) *CachedInfoLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedInfoLoader{inner: inner, logger: logger}
}

// Load returns the cached info for dir, computing and storing it on a miss.
func (c *CachedInfoLoader) Load(ctx context.Context, dir string) (domain.BackupInfo, error) {
	path := filepath.Join(dir, InfoCacheFile)

	if data, err := os.ReadFile(path); err == nil {
		var cached infoCacheFile
		if err := json.Unmarshal(data, &cached); err == nil && cached.Version == InfoCacheVersion {
			if cached.LevelNames == nil {
				cached.LevelNames = []string{}
			}
			return cached.BackupInfo, nil
		}
		c.logger.Debug("discarding stale info cache", "path", path)
	}

	info, err := c.inner.Load(ctx, dir)
	if err != nil {
		return info, err
	}

	data, err := json.Marshal(infoCacheFile{
		Version:    InfoCacheVersion,
		LevelCount: info.LevelCount(),
		BackupInfo: info,
	})
	if err == nil {
		err = os.WriteFile(path, data, 0o644)
	}
	if err != nil {
		c.logger.Warn("failed to write info cache", "path", path, "error", err)
	}

	return info, nil
}

// Invalidate removes the cache file of dir.
func (c *CachedInfoLoader) Invalidate(dir string) error {
	err := os.Remove(filepath.Join(dir, InfoCacheFile))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
