// Package sqlite is the default document store, a single local database
// file driven by modernc.org/sqlite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	apperrors "github.com/julianstephens/eyecare/internal/errors"
	"github.com/julianstephens/eyecare/internal/logger"
	"github.com/julianstephens/eyecare/internal/migration"
	"github.com/julianstephens/eyecare/internal/models"
	"github.com/julianstephens/eyecare/migrations"
)

// busy_timeout lets the agent and a CLI invocation write concurrently
const dsnPragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

type Store struct {
	path string
	db   *sql.DB
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) open() error {
	db, err := sql.Open("sqlite", "file:"+s.path+dsnPragmas)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	s.db = db
	return nil
}

// Init creates the database, applies migrations and seeds default settings
// when none exist. It is safe to run on an existing database.
func (s *Store) Init(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if s.db == nil {
		if err := s.open(); err != nil {
			return err
		}
	}

	if err := s.runMigrations(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if _, err := s.GetSettings(ctx); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		if err := s.SaveSettings(ctx, models.DefaultSettings()); err != nil {
			return fmt.Errorf("failed to save default settings: %w", err)
		}
	}
	return nil
}

// Load opens an initialised database and checks its schema version.
func (s *Store) Load(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return fmt.Errorf("storage not initialized, run 'eyecare init' first")
	}
	if err := s.open(); err != nil {
		return err
	}
	return s.validateSchemaVersion(ctx)
}

func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

func (s *Store) GetConfigPath() string {
	return s.path
}

// WatchPaths lists the files whose changes signal a write by another process.
func (s *Store) WatchPaths() []string {
	return []string{s.path, s.path + "-wal"}
}

// GetDB returns the underlying database connection, nil before Init/Load.
func (s *Store) GetDB() *sql.DB {
	return s.db
}

func (s *Store) ready() error {
	if s.db == nil {
		return apperrors.ErrStoreNotLoaded
	}
	return nil
}

func (s *Store) migrator() (*migration.Runner, error) {
	sub, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite migrations: %w", err)
	}
	return migration.NewRunner(s.db, sub, migration.SQLite), nil
}

func (s *Store) runMigrations(ctx context.Context) error {
	m, err := s.migrator()
	if err != nil {
		return err
	}
	_, err = m.Apply(ctx, func(msg string) { logger.Debug(msg, "store", "sqlite") })
	return err
}

func (s *Store) validateSchemaVersion(ctx context.Context) error {
	m, err := s.migrator()
	if err != nil {
		return err
	}
	return m.Validate(ctx)
}

// SchemaVersion returns the applied and the newest known schema versions.
func (s *Store) SchemaVersion(ctx context.Context) (int, int, error) {
	if err := s.ready(); err != nil {
		return 0, 0, err
	}
	m, err := s.migrator()
	if err != nil {
		return 0, 0, err
	}
	current, err := m.CurrentVersion(ctx)
	if err != nil {
		return 0, 0, err
	}
	latest, err := m.LatestVersion()
	if err != nil {
		return 0, 0, err
	}
	return current, latest, nil
}
