// Package backup snapshots and restores the sqlite store.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/eyecare/internal/clock"
	"github.com/julianstephens/eyecare/internal/constants"
	"github.com/julianstephens/eyecare/internal/logger"
	"github.com/julianstephens/eyecare/internal/migration"
	"github.com/julianstephens/eyecare/migrations"
)

const timestampLayout = "20060102-150405"

// Info describes one backup file.
type Info struct {
	Path      string
	Timestamp time.Time
	Size      int64
}

// Manager handles backup operations for one database file. Backups live in
// a "backups" directory next to it.
type Manager struct {
	dbPath    string
	backupDir string
	clock     clock.Clock
	keep      int
}

func NewManager(dbPath string, clk clock.Clock) *Manager {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Manager{
		dbPath:    dbPath,
		backupDir: filepath.Join(filepath.Dir(dbPath), constants.BackupDirName),
		clock:     clk,
		keep:      constants.MaxBackups,
	}
}

func (m *Manager) BackupDir() string {
	return m.backupDir
}

// Create snapshots the database and prunes backups beyond the retention
// limit. It is safe while the agent is writing.
func (m *Manager) Create(ctx context.Context) (string, error) {
	path, err := m.create(ctx)
	if err != nil {
		return "", err
	}
	if err := m.rotate(); err != nil {
		logger.Warn("Failed to rotate old backups", "error", err)
	}
	return path, nil
}

func (m *Manager) create(ctx context.Context) (string, error) {
	if err := os.MkdirAll(m.backupDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}
	if _, err := os.Stat(m.dbPath); os.IsNotExist(err) {
		return "", fmt.Errorf("database does not exist: %s", m.dbPath)
	}

	path, err := m.nextPath()
	if err != nil {
		return "", err
	}

	src, err := sql.Open("sqlite", "file:"+m.dbPath+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return "", fmt.Errorf("failed to open source database: %w", err)
	}
	defer src.Close()

	// VACUUM INTO writes a consistent, compacted copy even with a live WAL.
	if _, err := src.ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("failed to backup database: %w", err)
	}
	logger.Info("Backup created", "path", path)
	return path, nil
}

// nextPath returns an unused backup filename for the current second.
func (m *Manager) nextPath() (string, error) {
	stamp := m.clock.Now().Format(timestampLayout)
	base := constants.BackupFilePrefix + stamp
	path := filepath.Join(m.backupDir, base+constants.BackupFileSuffix)
	for n := 1; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return path, nil
		}
		if n > 100 {
			return "", fmt.Errorf("failed to generate unique backup filename")
		}
		path = filepath.Join(m.backupDir, fmt.Sprintf("%s-%d%s", base, n, constants.BackupFileSuffix))
	}
}

// List returns the available backups, newest first.
func (m *Manager) List() ([]Info, error) {
	entries, err := os.ReadDir(m.backupDir)
	if os.IsNotExist(err) {
		return []Info{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	type entryInfo struct {
		Info
		seq int
	}
	var found []entryInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ts, seq, ok := parseName(entry.Name())
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		found = append(found, entryInfo{
			Info: Info{Path: filepath.Join(m.backupDir, entry.Name()), Timestamp: ts, Size: info.Size()},
			seq:  seq,
		})
	}
	sort.Slice(found, func(i, j int) bool {
		if !found[i].Timestamp.Equal(found[j].Timestamp) {
			return found[i].Timestamp.After(found[j].Timestamp)
		}
		return found[i].seq > found[j].seq
	})

	out := make([]Info, len(found))
	for i, f := range found {
		out[i] = f.Info
	}
	return out, nil
}

// parseName reads "eyecare-YYYYMMDD-HHMMSS[-N].db".
func parseName(name string) (time.Time, int, bool) {
	rest, ok := strings.CutPrefix(name, constants.BackupFilePrefix)
	if !ok {
		return time.Time{}, 0, false
	}
	rest, ok = strings.CutSuffix(rest, constants.BackupFileSuffix)
	if !ok || len(rest) < len(timestampLayout) {
		return time.Time{}, 0, false
	}
	ts, err := time.ParseInLocation(timestampLayout, rest[:len(timestampLayout)], time.Local)
	if err != nil {
		return time.Time{}, 0, false
	}
	seq := 0
	if suffix := rest[len(timestampLayout):]; suffix != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(suffix, "-"))
		if err != nil || !strings.HasPrefix(suffix, "-") {
			return time.Time{}, 0, false
		}
		seq = n
	}
	return ts, seq, true
}

func (m *Manager) rotate() error {
	backups, err := m.List()
	if err != nil {
		return err
	}
	for i := m.keep; i < len(backups); i++ {
		if err := os.Remove(backups[i].Path); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", backups[i].Path, err)
		}
	}
	return nil
}

// Restore replaces the database with backupPath after checking that it is
// an eyecare store this build can read. The current database, if any, is
// backed up first; its path is returned. The agent must not be running.
func (m *Manager) Restore(ctx context.Context, backupPath string) (string, error) {
	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		return "", fmt.Errorf("backup file does not exist: %s", backupPath)
	}
	if err := Verify(ctx, backupPath); err != nil {
		return "", fmt.Errorf("backup file is corrupted or invalid: %w", err)
	}

	var previous string
	if _, err := os.Stat(m.dbPath); err == nil {
		p, err := m.create(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to backup current database before restore: %w", err)
		}
		previous = p
	}

	tempPath := m.dbPath + ".restore.tmp"
	if err := copyFile(backupPath, tempPath); err != nil {
		return "", fmt.Errorf("failed to copy backup file: %w", err)
	}
	// stale WAL pages would be replayed over the restored file
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(m.dbPath + suffix); err != nil && !os.IsNotExist(err) {
			_ = os.Remove(tempPath)
			return "", fmt.Errorf("failed to remove %s file: %w", suffix, err)
		}
	}
	if err := os.Rename(tempPath, m.dbPath); err != nil {
		_ = os.Remove(tempPath)
		return "", fmt.Errorf("failed to restore database: %w", err)
	}
	logger.Info("Backup restored", "from", backupPath, "previous", previous)
	return previous, nil
}

// Verify checks that path is a sqlite database carrying a schema version
// this build supports.
func Verify(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	var n int
	err = db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'").Scan(&n)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("not an eyecare database (no schema_version table)")
	}

	sub, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return err
	}
	return migration.NewRunner(db, sub, migration.SQLite).Validate(ctx)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	if _, err := out.ReadFrom(in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
