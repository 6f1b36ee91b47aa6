package backup

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sharkusmanch/gd-backups/internal/savefile"
)

const (
	// MetadataFile is the sidecar describing a snapshot.
	MetadataFile = "metadata.json"
	// AutoRemoveFile marks a snapshot as eligible for automatic cleanup.
	AutoRemoveFile = "auto-remove.txt"
	// InfoCacheFile holds a persisted BackupInfo when the on-disk cache is enabled.
	InfoCacheFile = "info-cache.json"

	dirNameLayout = "2006-01-02_15-04"
)

// IsBackupDirectory reports whether path directly contains either save file.
func IsBackupDirectory(path string) bool {
	for _, name := range savefile.FileNames {
		if info, err := os.Stat(filepath.Join(path, name)); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

// DirName returns the base directory name for a snapshot taken at t.
func DirName(t time.Time) string {
	return t.UTC().Format(dirNameLayout)
}

// uniqueName returns the first name derived from t that does not exist under root.
func uniqueName(root string, t time.Time) (string, error) {
	base := DirName(t)
	candidate := base

	for i := 0; ; i++ {
		_, err := os.Lstat(filepath.Join(root, candidate))
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
}

// splitDirName separates a snapshot name into its timestamp base and
// collision suffix. Names without a suffix report -1, so they sort before
// base-0, base-1 and so on.
func splitDirName(name string) (string, int) {
	n := len(dirNameLayout)
	if len(name) > n+1 && name[n] == '-' {
		if suffix, err := strconv.Atoi(name[n+1:]); err == nil && suffix >= 0 {
			return name[:n], suffix
		}
	}
	return name, -1
}

// compareDirNames orders snapshot names by creation: base name first, then
// numeric collision suffix.
func compareDirNames(a, b string) int {
	baseA, suffixA := splitDirName(a)
	baseB, suffixB := splitDirName(b)
	if c := cmp.Compare(baseA, baseB); c != 0 {
		return c
	}
	return cmp.Compare(suffixA, suffixB)
}

// claimDir creates a fresh snapshot directory under root named after t.
func claimDir(root string, t time.Time) (string, error) {
	for {
		name, err := uniqueName(root, t)
		if err != nil {
			return "", err
		}

		dir := filepath.Join(root, name)
		err = os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		// Lost a race against another writer; try the next name.
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
	}
}

func autoRemoveText(limit int) string {
	return fmt.Sprintf("This backup will be removed when your set auto backup limit of %d is reached.\n\n"+
		"If you'd like to preserve this backup, delete this text file.", limit)
}
