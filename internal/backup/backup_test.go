package backup

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/eyecare/internal/clock"
	"github.com/julianstephens/eyecare/internal/constants"
	"github.com/julianstephens/eyecare/internal/storage/sqlite"
)

func setupTestStore(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "eyecare.db")
	store := sqlite.NewStore(dbPath)
	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	if err := store.AddDomainSeconds(ctx, "2026-01-01", "github.com", 120); err != nil {
		t.Fatalf("failed to seed stats: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
	return dbPath
}

func domainSeconds(t *testing.T, dbPath, domain string) int64 {
	t.Helper()
	store := sqlite.NewStore(dbPath)
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("failed to load store: %v", err)
	}
	defer store.Close()
	day, err := store.GetDayStats(context.Background(), "2026-01-01")
	if err != nil {
		t.Fatal(err)
	}
	return day.Domains[domain]
}

func newManager(dbPath string) (*Manager, *clock.Fake) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 12, 0, 0, 0, time.Local))
	return NewManager(dbPath, clk), clk
}

func TestCreate(t *testing.T) {
	dbPath := setupTestStore(t)
	mgr, _ := newManager(dbPath)

	path, err := mgr.Create(context.Background())
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if filepath.Base(path) != "eyecare-20260101-120000.db" {
		t.Errorf("unexpected backup name %s", filepath.Base(path))
	}
	if filepath.Dir(path) != filepath.Join(filepath.Dir(dbPath), constants.BackupDirName) {
		t.Errorf("backup written outside the backup dir: %s", path)
	}
	if err := Verify(context.Background(), path); err != nil {
		t.Errorf("backup does not verify: %v", err)
	}
	if got := domainSeconds(t, path, "github.com"); got != 120 {
		t.Errorf("backup lost data, got %d seconds", got)
	}
}

func TestCreateWithoutDatabase(t *testing.T) {
	mgr, _ := newManager(filepath.Join(t.TempDir(), "missing.db"))
	if _, err := mgr.Create(context.Background()); err == nil {
		t.Error("expected error for missing database")
	}
}

func TestSameSecondBackupsGetUniqueNames(t *testing.T) {
	dbPath := setupTestStore(t)
	mgr, _ := newManager(dbPath)
	ctx := context.Background()

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		path, err := mgr.Create(ctx)
		if err != nil {
			t.Fatalf("Create #%d failed: %v", i, err)
		}
		if seen[path] {
			t.Fatalf("duplicate backup path %s", path)
		}
		seen[path] = true
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 3 || filepath.Base(backups[0].Path) != "eyecare-20260101-120000-2.db" {
		t.Errorf("expected the latest same-second backup first, got %+v", backups)
	}
}

func TestRotation(t *testing.T) {
	dbPath := setupTestStore(t)
	mgr, clk := newManager(dbPath)
	ctx := context.Background()

	for i := 0; i < constants.MaxBackups+5; i++ {
		if _, err := mgr.Create(ctx); err != nil {
			t.Fatalf("Create #%d failed: %v", i, err)
		}
		clk.Advance(time.Hour)
	}

	backups, err := mgr.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != constants.MaxBackups {
		t.Fatalf("expected %d backups after rotation, got %d", constants.MaxBackups, len(backups))
	}
	for i := 1; i < len(backups); i++ {
		if backups[i].Timestamp.After(backups[i-1].Timestamp) {
			t.Errorf("backups are not sorted newest first at %d", i)
		}
	}
	if want := clk.Now().Add(-time.Hour).Truncate(time.Second); !backups[0].Timestamp.Equal(want) {
		t.Errorf("newest backup at %v, want %v", backups[0].Timestamp, want)
	}
}

func TestListIgnoresForeignFiles(t *testing.T) {
	dbPath := setupTestStore(t)
	mgr, _ := newManager(dbPath)
	if err := os.MkdirAll(mgr.BackupDir(), 0700); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"notes.txt", "eyecare-garbage.db", "eyecare-20260101-120000-x.db"} {
		if err := os.WriteFile(filepath.Join(mgr.BackupDir(), name), []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}
	backups, err := mgr.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(backups) != 0 {
		t.Errorf("expected no backups, got %+v", backups)
	}
}

func TestRestore(t *testing.T) {
	dbPath := setupTestStore(t)
	mgr, clk := newManager(dbPath)
	ctx := context.Background()

	snapshot, err := mgr.Create(ctx)
	if err != nil {
		t.Fatal(err)
	}

	store := sqlite.NewStore(dbPath)
	if err := store.Load(ctx); err != nil {
		t.Fatal(err)
	}
	_ = store.AddDomainSeconds(ctx, "2026-01-01", "github.com", 30)
	store.Close()

	clk.Advance(time.Minute)
	previous, err := mgr.Restore(ctx, snapshot)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if got := domainSeconds(t, dbPath, "github.com"); got != 120 {
		t.Errorf("expected restored 120 seconds, got %d", got)
	}
	if previous == "" {
		t.Fatal("expected a pre-restore backup")
	}
	if got := domainSeconds(t, previous, "github.com"); got != 150 {
		t.Errorf("pre-restore backup should hold 150 seconds, got %d", got)
	}
}

func TestRestoreRejectsInvalidBackups(t *testing.T) {
	dbPath := setupTestStore(t)
	mgr, _ := newManager(dbPath)
	ctx := context.Background()
	dir := t.TempDir()

	corrupted := filepath.Join(dir, "corrupted.db")
	if err := os.WriteFile(corrupted, []byte("this is not a database"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := mgr.Restore(ctx, corrupted); err == nil {
		t.Error("expected error for corrupted backup")
	}

	foreign := filepath.Join(dir, "foreign.db")
	db, err := sql.Open("sqlite", foreign)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("CREATE TABLE tasks (id TEXT)"); err != nil {
		t.Fatal(err)
	}
	db.Close()
	if _, err := mgr.Restore(ctx, foreign); err == nil {
		t.Error("expected error for a database that is not an eyecare store")
	}

	if _, err := mgr.Restore(ctx, filepath.Join(dir, "missing.db")); err == nil {
		t.Error("expected error for missing backup")
	}

	if got := domainSeconds(t, dbPath, "github.com"); got != 120 {
		t.Errorf("failed restores must leave the database alone, got %d", got)
	}
}
