package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharkusmanch/gd-backups/internal/domain"
)

func TestCachedInfoLoader_WritesAndReuses(t *testing.T) {
	dir := t.TempDir()
	glow := 4
	inner := &countingLoader{info: domain.BackupInfo{
		PlayerIcon:      3,
		PlayerGlowColor: &glow,
		StarCount:       99,
		LevelNames:      []string{"one", "two"},
	}}
	loader := NewCachedInfoLoader(inner, nil)

	first, err := loader.Load(context.Background(), dir)
	require.NoError(t, err)
	second, err := loader.Load(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), inner.calls.Load())

	data, err := os.ReadFile(filepath.Join(dir, InfoCacheFile))
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.EqualValues(t, InfoCacheVersion, raw["version"])
	assert.EqualValues(t, 2, raw["levelCount"])
	assert.EqualValues(t, 99, raw["starCount"])
	assert.EqualValues(t, 4, raw["playerGlow"])
}

func TestCachedInfoLoader_VersionMismatch(t *testing.T) {
	dir := t.TempDir()
	stale := `{"version": 1, "playerIcon": 50, "starCount": 1, "levelCount": 0}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, InfoCacheFile), []byte(stale), 0o644))
	inner := &countingLoader{info: domain.BackupInfo{PlayerIcon: 8, LevelNames: []string{}}}

	info, err := NewCachedInfoLoader(inner, nil).Load(context.Background(), dir)

	require.NoError(t, err)
	assert.Equal(t, 8, info.PlayerIcon)
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestCachedInfoLoader_CancelledNotCached(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	loader := NewCachedInfoLoader(NewLiveInfoLoader(nil, nil), nil)

	_, err := loader.Load(ctx, dir)

	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.NoFileExists(t, filepath.Join(dir, InfoCacheFile))
}

func TestCachedInfoLoader_Invalidate(t *testing.T) {
	dir := t.TempDir()
	loader := NewCachedInfoLoader(&countingLoader{}, nil)
	_, err := loader.Load(context.Background(), dir)
	require.NoError(t, err)

	require.NoError(t, loader.Invalidate(dir))
	assert.NoFileExists(t, filepath.Join(dir, InfoCacheFile))
	assert.NoError(t, loader.Invalidate(dir))
}
