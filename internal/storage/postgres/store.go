// Package postgres is the remote document store. Several machines can share
// one database; every statistic is a server-side increment.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/julianstephens/eyecare/internal/constants"
	apperrors "github.com/julianstephens/eyecare/internal/errors"
	"github.com/julianstephens/eyecare/internal/logger"
	"github.com/julianstephens/eyecare/internal/migration"
	"github.com/julianstephens/eyecare/internal/models"
	"github.com/julianstephens/eyecare/migrations"
)

type Store struct {
	connStr string
	db      *sql.DB
}

func New(connStr string) *Store {
	return &Store{connStr: withSearchPath(connStr)}
}

func (s *Store) connect(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("postgres", s.connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		if strings.Contains(err.Error(), "SSL is not enabled on the server") && !hasSSLMode(s.connStr) {
			return nil, fmt.Errorf("failed to connect to database: %w (hint: try adding ?sslmode=disable to your connection string)", err)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Init creates the schema, applies migrations and seeds default settings.
func (s *Store) Init(ctx context.Context) error {
	db, err := s.connect(ctx)
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+constants.AppName); err != nil {
		db.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}
	s.db = db

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

func (s *Store) Load(ctx context.Context) error {
	if s.db != nil {
		return nil
	}
	db, err := s.connect(ctx)
	if err != nil {
		return err
	}
	s.db = db
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

// GetConfigPath returns a non-sensitive identifier instead of the connection string.
func (s *Store) GetConfigPath() string {
	return "postgresql"
}

func (s *Store) ready() error {
	if s.db == nil {
		return apperrors.ErrStoreNotLoaded
	}
	return nil
}

func (s *Store) migrator() (*migration.Runner, error) {
	sub, err := fs.Sub(migrations.FS, "postgres")
	if err != nil {
		return nil, fmt.Errorf("failed to access postgres migrations: %w", err)
	}
	return migration.NewRunner(s.db, sub, migration.Postgres), nil
}

func (s *Store) runMigrations(ctx context.Context) error {
	m, err := s.migrator()
	if err != nil {
		return err
	}
	_, err = m.Apply(ctx, func(msg string) { logger.Info(msg, "store", "postgres") })
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
