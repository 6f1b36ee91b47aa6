package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharkusmanch/gd-backups/internal/domain"
	"github.com/sharkusmanch/gd-backups/internal/host"
)

func waitImport(t *testing.T, ch <-chan ImportResult) ImportResult {
	t.Helper()
	select {
	case res, ok := <-ch:
		require.True(t, ok)
		_, open := <-ch
		assert.False(t, open)
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("import did not finish")
		return ImportResult{}
	}
}

func TestImporter_Import(t *testing.T) {
	env := newTestEnv(t)
	foreign := t.TempDir()
	writeLiveSave(t, filepath.Join(foreign, "one"), "a")
	writeLiveSave(t, filepath.Join(foreign, "nested", "two"), "b")
	require.NoError(t, os.MkdirAll(filepath.Join(foreign, "empty"), 0o755))

	importer := NewImporter(env.store, WithImporterLogger(discardLogger()))
	res := waitImport(t, importer.Import(context.Background(), host.FixedFolder(foreign)))

	require.NoError(t, res.Err)
	assert.Equal(t, foreign, res.Source)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, "Imported 2 backups", res.Message())

	records, err := env.store.ListAll(true)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestImporter_Import_Cancelled(t *testing.T) {
	env := newTestEnv(t)

	res := waitImport(t, NewImporter(env.store).Import(context.Background(), host.FixedFolder("")))

	assert.True(t, errors.Is(res.Err, domain.ErrPickCancelled))
	assert.Zero(t, res.Imported)
}

func TestImportResult_Message(t *testing.T) {
	tests := []struct {
		result ImportResult
		want   string
	}{
		{ImportResult{}, "Imported 0 backups"},
		{ImportResult{Imported: 3}, "Imported 3 backups"},
		{ImportResult{Imported: 3, Failed: 1}, "Imported 3 backups (1 failed to import)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.result.Message())
		})
	}
}
