package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sharkusmanch/gd-backups/internal/backup"
	"github.com/sharkusmanch/gd-backups/internal/config"
	"github.com/sharkusmanch/gd-backups/internal/domain"
	"github.com/sharkusmanch/gd-backups/internal/host"
	"github.com/sharkusmanch/gd-backups/internal/savefile"
)

var testTime = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		CleanupLimit:        10,
		AutoBackupRate:      config.RateDaily,
		Schedule:            "@every 1h",
		BackupOnStartup:     true,
		BackupBeforeRestore: true,
		Retry: config.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 5 * time.Second,
			MaxDelay:     30 * time.Second,
		},
		Apprise: config.AppriseConfig{
			Notify: config.NotifyError,
		},
		Log: config.LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
	}
}

// writeLiveSave writes both save files with the given content.
func writeLiveSave(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for _, name := range savefile.FileNames {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content+":"+name), 0o644))
	}
}

// removeSaveFiles deletes both save files from dir.
func removeSaveFiles(dir string) error {
	for _, name := range savefile.FileNames {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return err
		}
	}
	return nil
}

type testEnv struct {
	store   *backup.Store
	liveDir string
	clock   *stepClock
	limit   int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	base := t.TempDir()
	env := &testEnv{
		liveDir: filepath.Join(base, "live"),
		clock:   &stepClock{now: testTime},
		limit:   10,
	}
	writeLiveSave(t, env.liveDir, "progress")

	env.store = backup.NewStore(filepath.Join(base, "backups"),
		backup.WithSaveDirProvider(host.StaticSaveDir(env.liveDir)),
		backup.WithUser("tester"),
		backup.WithClock(env.clock.Now),
		backup.WithCleanupLimit(func() int { return env.limit }),
		backup.WithLogger(discardLogger()),
	)
	return env
}

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// chanNotifier forwards every notification to a channel.
type chanNotifier chan *domain.Notification

func (c chanNotifier) Notify(_ context.Context, n *domain.Notification) error {
	c <- n
	return nil
}

func (c chanNotifier) Validate(_ context.Context) error {
	return nil
}
