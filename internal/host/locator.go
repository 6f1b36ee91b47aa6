// Package host locates the game's live save data and stands in for the
// host application's folder picker.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/sharkusmanch/gd-backups/internal/domain"
	"github.com/sharkusmanch/gd-backups/internal/savefile"
)

// SteamAppID is Geometry Dash's Steam application id.
const SteamAppID = "322170"

// ErrSaveDirNotFound is returned when no save directory could be detected.
var ErrSaveDirNotFound = errors.New("geometry dash save directory not found")

// Locator finds the directory holding CCGameManager.dat and CCLocalLevels.dat.
type Locator struct {
	dir        string
	candidates []string
	logger     *slog.Logger
}

// LocatorOption configures a Locator.
type LocatorOption func(*Locator)

// WithSaveDir pins the save directory instead of detecting it.
func WithSaveDir(dir string) LocatorOption {
	return func(l *Locator) {
		l.dir = dir
	}
}

// WithCandidates replaces the per-OS search list.
func WithCandidates(paths ...string) LocatorOption {
	return func(l *Locator) {
		l.candidates = paths
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LocatorOption {
	return func(l *Locator) {
		l.logger = logger
	}
}

// NewLocator creates a Locator.
func NewLocator(opts ...LocatorOption) *Locator {
	l := &Locator{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.candidates == nil {
		l.candidates = commonSaveDirs()
	}

	return l
}

// SaveDir returns the configured save directory, or the first candidate
// that holds save files.
func (l *Locator) SaveDir() (string, error) {
	if l.dir != "" {
		info, err := os.Stat(l.dir)
		if err != nil {
			return "", fmt.Errorf("save_directory does not exist: %s", l.dir)
		}
		if !info.IsDir() {
			return "", fmt.Errorf("save_directory is not a directory: %s", l.dir)
		}
		return l.dir, nil
	}

	for _, candidate := range l.candidates {
		if hasSaveFiles(candidate) {
			l.logger.Debug("detected save directory", "path", candidate)
			return candidate, nil
		}
	}

	return "", ErrSaveDirNotFound
}

// Validate checks that a save directory can be resolved.
func (l *Locator) Validate(_ context.Context) error {
	_, err := l.SaveDir()
	return err
}

func hasSaveFiles(dir string) bool {
	for _, name := range savefile.FileNames {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

// commonSaveDirs returns the usual save locations for the current OS.
func commonSaveDirs() []string {
	home, _ := os.UserHomeDir()

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			localAppData = filepath.Join(home, "AppData", "Local")
		}
		return []string{
			filepath.Join(localAppData, "GeometryDash"),
		}
	case "darwin":
		return []string{
			filepath.Join(home, "Library", "Application Support", "GeometryDash"),
		}
	default: // Linux runs the Windows build through Proton
		return []string{
			protonSaveDir(filepath.Join(home, ".local", "share", "Steam")),
			protonSaveDir(filepath.Join(home, ".steam", "steam")),
			protonSaveDir(filepath.Join(home, ".var", "app", "com.valvesoftware.Steam", ".local", "share", "Steam")),
		}
	}
}

func protonSaveDir(steamRoot string) string {
	return filepath.Join(steamRoot, "steamapps", "compatdata", SteamAppID,
		"pfx", "drive_c", "users", "steamuser", "AppData", "Local", "GeometryDash")
}

// StaticSaveDir always returns the same directory.
type StaticSaveDir string

// SaveDir returns the directory.
func (d StaticSaveDir) SaveDir() (string, error) {
	if d == "" {
		return "", ErrSaveDirNotFound
	}
	return string(d), nil
}

// FixedFolder is a folder picker that answers with a preset path,
// as when the folder is given on the command line.
type FixedFolder string

// PickFolder returns the preset path.
func (f FixedFolder) PickFolder(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f == "" {
		return "", domain.ErrPickCancelled
	}
	return filepath.Clean(string(f)), nil
}

var (
	_ domain.SaveDirProvider = (*Locator)(nil)
	_ domain.SaveDirProvider = StaticSaveDir("")
	_ domain.FolderPicker    = FixedFolder("")
)
