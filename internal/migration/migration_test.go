package migration

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
	"testing/fstest"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/eyecare/migrations"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCurrentVersionFreshDatabase(t *testing.T) {
	runner := NewRunner(setupTestDB(t), fstest.MapFS{}, SQLite)

	version, err := runner.CurrentVersion(context.Background())
	if err != nil {
		t.Fatalf("CurrentVersion failed: %v", err)
	}
	if version != 0 {
		t.Errorf("expected version 0, got %d", version)
	}
}

func TestReadMigrations(t *testing.T) {
	mfs := fstest.MapFS{
		"002_second.sql": {Data: []byte("CREATE TABLE b (id INTEGER);")},
		"001_first.sql":  {Data: []byte("CREATE TABLE a (id INTEGER);")},
		"README.md":      {Data: []byte("ignored")},
	}
	ms, err := NewRunner(setupTestDB(t), mfs, SQLite).ReadMigrations()
	if err != nil {
		t.Fatalf("ReadMigrations failed: %v", err)
	}
	if len(ms) != 2 {
		t.Fatalf("expected 2 migrations, got %d", len(ms))
	}
	if ms[0].Version != 1 || ms[0].Name != "first" || ms[1].Version != 2 {
		t.Errorf("unexpected order: %+v", ms)
	}
}

func TestReadMigrationsRejectsBadNames(t *testing.T) {
	tests := map[string]fstest.MapFS{
		"no underscore": {"001.sql": {Data: []byte("")}},
		"not a number":  {"abc_x.sql": {Data: []byte("")}},
		"zero":          {"000_x.sql": {Data: []byte("")}},
		"duplicate": {
			"001_a.sql": {Data: []byte("")},
			"01_b.sql":  {Data: []byte("")},
		},
	}
	for name, mfs := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := NewRunner(setupTestDB(t), mfs, SQLite).ReadMigrations(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestApplyIsIncremental(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	mfs := fstest.MapFS{
		"001_first.sql": {Data: []byte("CREATE TABLE a (id INTEGER);")},
	}

	n, err := NewRunner(db, mfs, SQLite).Apply(ctx, nil)
	if err != nil || n != 1 {
		t.Fatalf("first Apply = %d, %v", n, err)
	}

	mfs["002_second.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE b (id INTEGER);")}
	var logs []string
	n, err = NewRunner(db, mfs, SQLite).Apply(ctx, func(s string) { logs = append(logs, s) })
	if err != nil || n != 1 {
		t.Fatalf("second Apply = %d, %v", n, err)
	}
	if len(logs) != 1 {
		t.Errorf("expected one log line, got %v", logs)
	}

	n, err = NewRunner(db, mfs, SQLite).Apply(ctx, nil)
	if err != nil || n != 0 {
		t.Fatalf("third Apply = %d, %v", n, err)
	}
}

func TestApplyRollsBackFailedMigration(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	mfs := fstest.MapFS{
		"001_ok.sql":     {Data: []byte("CREATE TABLE a (id INTEGER);")},
		"002_broken.sql": {Data: []byte("CREATE TABLE oops (")},
	}
	runner := NewRunner(db, mfs, SQLite)

	n, err := runner.Apply(ctx, nil)
	if err == nil {
		t.Fatal("expected error from broken migration")
	}
	if n != 1 {
		t.Errorf("expected 1 applied migration, got %d", n)
	}
	version, err := runner.CurrentVersion(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if version != 1 {
		t.Errorf("expected version to stay at 1, got %d", version)
	}
}

func TestValidateSchemaTooNew(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	mfs := fstest.MapFS{"001_a.sql": {Data: []byte("CREATE TABLE a (id INTEGER);")}}
	runner := NewRunner(db, mfs, SQLite)
	if _, err := runner.Apply(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 9"); err != nil {
		t.Fatal(err)
	}

	if err := runner.Validate(ctx); !errors.Is(err, ErrSchemaTooNew) {
		t.Errorf("expected ErrSchemaTooNew, got %v", err)
	}
	if _, err := runner.Apply(ctx, nil); !errors.Is(err, ErrSchemaTooNew) {
		t.Errorf("expected ErrSchemaTooNew from Apply, got %v", err)
	}
}

func TestEmbeddedSQLiteMigrationsApply(t *testing.T) {
	sub, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		t.Fatal(err)
	}
	db := setupTestDB(t)
	if _, err := NewRunner(db, sub, SQLite).Apply(context.Background(), nil); err != nil {
		t.Fatalf("embedded migrations failed: %v", err)
	}
	for _, table := range []string{"settings", "day_stats", "domain_time", "focus_session"} {
		var n int
		if err := db.QueryRow("SELECT count(*) FROM sqlite_master WHERE type='table' AND name = ?", table).Scan(&n); err != nil {
			t.Fatal(err)
		}
		if n != 1 {
			t.Errorf("table %s missing", table)
		}
	}
}

func TestDialectBind(t *testing.T) {
	if SQLite.bind(1) != "?" || Postgres.bind(2) != "$2" {
		t.Error("unexpected bind placeholders")
	}
}
