package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/sharkusmanch/gd-backups/internal/domain"
	"github.com/sharkusmanch/gd-backups/internal/savefile"
)

// ErrNotFound is returned when no snapshot matches a lookup.
var ErrNotFound = errors.New("backup not found")

// Store manages the snapshot directories under a backup root.
type Store struct {
	saveDirs domain.SaveDirProvider
	user     string
	limit    func() int
	loader   InfoLoader
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	dir     string
	records []*Record
	cached  bool
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		s.logger = l
	}
}

// WithUser sets the user name recorded in new metadata.
func WithUser(user string) StoreOption {
	return func(s *Store) {
		if user != "" {
			s.user = user
		}
	}
}

// WithSaveDirProvider sets where live save files are read from and restored to.
func WithSaveDirProvider(p domain.SaveDirProvider) StoreOption {
	return func(s *Store) {
		s.saveDirs = p
	}
}

// WithCleanupLimit sets the provider of the auto backup retention limit.
// A negative limit disables cleanup.
func WithCleanupLimit(limit func() int) StoreOption {
	return func(s *Store) {
		s.limit = limit
	}
}

// WithInfoLoader sets how snapshot info is computed.
func WithInfoLoader(l InfoLoader) StoreOption {
	return func(s *Store) {
		s.loader = l
	}
}

// WithClock overrides the time source used to name new snapshots.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string, opts ...StoreOption) *Store {
	s := &Store{
		dir:    filepath.Clean(dir),
		user:   DefaultUser(),
		limit:  func() int { return -1 },
		logger: slog.Default(),
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.loader == nil {
		s.loader = NewLiveInfoLoader(nil, s.logger)
	}

	return s
}

// DefaultUser returns the current OS account name.
func DefaultUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return filepath.Base(u.Username)
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "player"
}

// Dir returns the current backup root.
func (s *Store) Dir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dir
}

// CleanupLimit returns the current retention limit.
func (s *Store) CleanupLimit() int {
	return s.limit()
}

// InvalidateCache forces the next ListAll to rescan the backup root.
func (s *Store) InvalidateCache() {
	s.mu.Lock()
	s.cached = false
	s.mu.Unlock()
}

// ListAll returns all snapshots, newest first. The result is cached until
// invalidate is set or a mutation requires a rescan.
func (s *Store) ListAll(invalidate bool) ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached && !invalidate {
		return slices.Clone(s.records), nil
	}

	records, err := s.scan()
	if err != nil {
		return nil, err
	}

	s.records = records
	s.cached = true
	assignOrders(s.records)

	return slices.Clone(s.records), nil
}

// scan reads the backup root. Records already known by path are reused so
// their info computations survive a rescan.
func (s *Store) scan() ([]*Record, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []*Record{}, nil
	}
	if err != nil {
		return nil, domain.NewIOError("list", s.dir, err)
	}

	known := make(map[string]*Record, len(s.records))
	for _, r := range s.records {
		known[r.path] = r
	}

	records := make([]*Record, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		if !IsBackupDirectory(path) {
			continue
		}

		if r, ok := known[path]; ok {
			r.refresh()
			records = append(records, r)
			continue
		}

		r, err := OpenRecord(path, s.user, s.loader)
		if err != nil {
			s.logger.Warn("skipping unreadable backup", "path", path, "error", err)
			continue
		}
		records = append(records, r)
	}

	sortRecords(records)
	return records, nil
}

// sortRecords orders records newest first. Creation times only have hour
// resolution, so ties fall back to the directory name.
func sortRecords(records []*Record) {
	slices.SortStableFunc(records, func(a, b *Record) int {
		if c := b.CreatedAt().Compare(a.CreatedAt()); c != 0 {
			return c
		}
		return compareDirNames(b.Name(), a.Name())
	})
}

// assignOrders numbers auto-removable records 0, 1, 2... in list order.
func assignOrders(records []*Record) {
	order := 0
	for _, r := range records {
		if r.IsAutoRemove() {
			r.setOrder(order)
			order++
		} else {
			r.clearOrder()
		}
	}
}

// Find returns the snapshot whose directory name is name.
func (s *Store) Find(name string) (*Record, error) {
	records, err := s.ListAll(false)
	if err != nil {
		return nil, err
	}

	for _, r := range records {
		if r.Name() == name {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Create snapshots the live save files. Absent save files are skipped, but
// at least one must be present. Auto-removable snapshots get the sentinel file.
func (s *Store) Create(ctx context.Context, autoRemove bool) (*Record, error) {
	if s.saveDirs == nil {
		return nil, fmt.Errorf("no save directory configured")
	}
	saveDir, err := s.saveDirs.SaveDir()
	if err != nil {
		return nil, fmt.Errorf("unable to locate save data: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, domain.NewIOError("create", s.dir, err)
	}

	now := s.now()
	dir, err := claimDir(s.dir, now)
	if err != nil {
		return nil, domain.NewIOError("create", s.dir, err)
	}

	copied := 0
	for _, name := range savefile.FileNames {
		err := copyWithRetry(ctx, filepath.Join(saveDir, name), filepath.Join(dir, name))
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Debug("save file not present", "file", name, "save_dir", saveDir)
			continue
		}
		if err != nil {
			s.discard(dir)
			return nil, domain.NewIOError("create", dir, err)
		}
		copied++
	}

	if copied == 0 {
		s.discard(dir)
		return nil, fmt.Errorf("no save files found in %s", saveDir)
	}

	meta := NewMetadata(s.user, now)
	if err := writeMetadata(dir, meta); err != nil {
		s.discard(dir)
		return nil, domain.NewIOError("create", dir, err)
	}

	if autoRemove {
		text := autoRemoveText(s.limit())
		if err := os.WriteFile(filepath.Join(dir, AutoRemoveFile), []byte(text), 0o644); err != nil {
			s.logger.Warn("failed to mark backup for auto-removal", "path", dir, "error", err)
			autoRemove = false
		}
	}

	r := &Record{
		path:       dir,
		loader:     s.loader,
		meta:       meta,
		autoRemove: autoRemove,
	}

	// Registered even when the cache is cold so the next scan reuses this
	// record instead of opening a second one for the same path.
	s.records = append([]*Record{r}, s.records...)
	if s.cached {
		sortRecords(s.records)
		assignOrders(s.records)
	}

	s.logger.Info("backup created", "path", dir, "auto_remove", autoRemove)
	return r, nil
}

func (s *Store) discard(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		s.logger.Warn("failed to remove partial backup", "path", dir, "error", err)
	}
}

// Migrate moves a foreign snapshot directory into the store. The snapshot
// is named and timestamped after the source directory's modification time;
// any metadata it carried is replaced. It returns the new location.
func (s *Store) Migrate(ctx context.Context, existingDir string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.migrateLocked(ctx, existingDir)
}

func (s *Store) migrateLocked(ctx context.Context, existingDir string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", domain.NewIOError("migrate", s.dir, err)
	}

	info, err := os.Stat(existingDir)
	if err != nil {
		return "", domain.NewIOError("migrate", existingDir, err)
	}
	modTime := info.ModTime()

	name, err := uniqueName(s.dir, modTime)
	if err != nil {
		return "", domain.NewIOError("migrate", s.dir, err)
	}
	dest := filepath.Join(s.dir, name)

	if err := renameWithRetry(ctx, existingDir, dest); err != nil {
		return "", domain.NewIOError("migrate", existingDir, err)
	}

	if err := writeMetadata(dest, NewMetadata(s.user, modTime)); err != nil {
		return dest, domain.NewIOError("migrate", dest, err)
	}

	s.cached = false
	s.logger.Debug("backup migrated", "from", existingDir, "to", dest)
	return dest, nil
}

// MigrateAllFrom imports path if it is a snapshot, or every snapshot found
// beneath it otherwise. Snapshots are not searched for nested snapshots.
func (s *Store) MigrateAllFrom(ctx context.Context, path string) (imported, failed int) {
	if ctx.Err() != nil {
		return 0, 0
	}

	if samePath(path, s.Dir()) {
		s.logger.Warn("refusing to import the backup directory into itself", "path", path)
		return 0, 0
	}

	if IsBackupDirectory(path) {
		if _, err := s.Migrate(ctx, path); err != nil {
			s.logger.Error("failed to import backup", "path", path, "error", err)
			return 0, 1
		}
		return 1, 0
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		s.logger.Warn("unable to read import directory", "path", path, "error", err)
		return 0, 0
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		i, f := s.MigrateAllFrom(ctx, filepath.Join(path, entry.Name()))
		imported += i
		failed += f
	}

	return imported, failed
}

// UpdateDirectory moves every snapshot from the current root into newDir
// and adopts it. Individual migration failures are logged, not returned.
func (s *Store) UpdateDirectory(ctx context.Context, newDir string) error {
	newDir = filepath.Clean(newDir)

	s.mu.Lock()
	defer s.mu.Unlock()

	if samePath(newDir, s.dir) {
		return nil
	}

	if err := os.MkdirAll(newDir, 0o755); err != nil {
		return domain.NewIOError("migrate", newDir, err)
	}

	oldDir := s.dir
	s.dir = newDir
	s.records = nil
	s.cached = false

	entries, err := os.ReadDir(oldDir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("unable to read previous backup directory", "path", oldDir, "error", err)
		}
		return nil
	}

	moved := 0
	for _, entry := range entries {
		src := filepath.Join(oldDir, entry.Name())
		if !entry.IsDir() || !IsBackupDirectory(src) {
			continue
		}
		if _, err := s.migrateLocked(ctx, src); err != nil {
			s.logger.Error("failed to move backup to new directory", "path", src, "error", err)
			continue
		}
		moved++
	}

	s.logger.Info("backup directory changed", "from", oldDir, "to", newDir, "moved", moved)
	return nil
}

// CleanupAutomated deletes auto-removable snapshots beyond the retention
// limit. The first deletion failure stops the pass.
func (s *Store) CleanupAutomated(ctx context.Context) (int, error) {
	records, err := s.ListAll(true)
	if err != nil {
		return 0, err
	}

	limit := s.limit()
	if limit < 0 {
		return 0, nil
	}

	var expired []*Record
	for _, r := range records {
		if order, ok := r.AutoRemoveOrder(); ok && order >= limit {
			expired = append(expired, r)
		}
	}

	deleted := 0
	for _, r := range expired {
		if ctx.Err() != nil {
			break
		}

		if err := s.Delete(r); err != nil {
			return deleted, err
		}
		deleted++
	}

	if deleted > 0 {
		s.logger.Info("cleaned up automatic backups", "deleted", deleted, "limit", limit)
	}
	return deleted, ctx.Err()
}

// Delete removes a snapshot and drops it from the cache.
func (s *Store) Delete(r *Record) error {
	if err := r.Delete(); err != nil {
		s.InvalidateCache()
		return err
	}

	s.mu.Lock()
	s.records = slices.DeleteFunc(s.records, func(other *Record) bool {
		return other.path == r.path
	})
	assignOrders(s.records)
	s.mu.Unlock()

	return nil
}

// Restore copies a snapshot's save files over the live save data.
func (s *Store) Restore(ctx context.Context, r *Record) error {
	if s.saveDirs == nil {
		return fmt.Errorf("no save directory configured")
	}
	saveDir, err := s.saveDirs.SaveDir()
	if err != nil {
		return fmt.Errorf("unable to locate save data: %w", err)
	}
	return r.Restore(ctx, saveDir)
}

// FixNestedBackups moves snapshots found inside other snapshots up to the
// backup root. Deeper snapshots move first. It returns how many were moved.
func (s *Store) FixNestedBackups(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}

	moved := 0
	for _, entry := range entries {
		if entry.IsDir() {
			moved += s.fixNested(ctx, filepath.Join(s.dir, entry.Name()), false)
		}
	}

	if moved > 0 {
		s.logger.Info("moved nested backups", "count", moved)
	}
	return moved
}

func (s *Store) fixNested(ctx context.Context, dir string, insideBackup bool) int {
	if ctx.Err() != nil {
		return 0
	}

	isBackup := IsBackupDirectory(dir)
	moved := 0

	entries, err := os.ReadDir(dir)
	if err != nil {
		s.logger.Warn("unable to read backup", "path", dir, "error", err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			moved += s.fixNested(ctx, filepath.Join(dir, entry.Name()), insideBackup || isBackup)
		}
	}

	if insideBackup && isBackup {
		if _, err := s.migrateLocked(ctx, dir); err != nil {
			s.logger.Error("failed to move nested backup", "path", dir, "error", err)
			return moved
		}
		moved++
	}

	return moved
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
