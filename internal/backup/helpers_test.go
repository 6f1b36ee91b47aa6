package backup

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sharkusmanch/gd-backups/internal/domain"
	"github.com/sharkusmanch/gd-backups/internal/savefile"
)

const (
	testGameManagerXML = `<?xml version="1.0"?><plist><dict><k>playerFrame</k><i>7</i><k>playerColor</k><i>1</i><k>playerColor2</k><i>2</i><k>GS_value</k><d><k>6</k><s>320</s></d></dict></plist>`
	testLocalLevelsXML = `<?xml version="1.0"?><plist><dict><k>LLM_01</k><d><k>k_0</k><d><k>k2</k><s>My Level</s></d></d></dict></plist>`
)

var testTime = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

type saveDir string

func (d saveDir) SaveDir() (string, error) {
	return string(d), nil
}

// writeSaveFiles writes both encoded save files into dir.
func writeSaveFiles(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))

	codec := savefile.NewCodec()
	for name, xml := range map[string]string{
		savefile.GameManagerFile: testGameManagerXML,
		savefile.LocalLevelsFile: testLocalLevelsXML,
	} {
		data, err := codec.Encode(xml)
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}
}

// newTestStore creates a store with a live save directory containing both files.
func newTestStore(t *testing.T, opts ...StoreOption) (*Store, string, *stepClock) {
	t.Helper()
	base := t.TempDir()
	live := filepath.Join(base, "live")
	writeSaveFiles(t, live)

	clock := &stepClock{now: testTime}
	defaults := []StoreOption{
		WithSaveDirProvider(saveDir(live)),
		WithUser("tester"),
		WithClock(clock.Now),
	}

	return NewStore(filepath.Join(base, "backups"), append(defaults, opts...)...), live, clock
}

// stepClock returns a fixed time that tests can advance.
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

type countingLoader struct {
	calls atomic.Int32
	info  domain.BackupInfo
}

func (l *countingLoader) Load(_ context.Context, _ string) (domain.BackupInfo, error) {
	l.calls.Add(1)
	return l.info, nil
}

type blockingLoader struct {
	started chan struct{}
}

func (l *blockingLoader) Load(ctx context.Context, _ string) (domain.BackupInfo, error) {
	select {
	case l.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return domain.BackupInfo{}, domain.ErrCancelled
}

func setModTime(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

// stub replaces a package-level function for the duration of the test.
func stub[T any](t *testing.T, target *T, fake T) {
	t.Helper()
	orig := *target
	*target = fake
	t.Cleanup(func() { *target = orig })
}
