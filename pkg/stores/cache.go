// Package stores persists state between runs: the job cache that lets
// update skip unchanged configs, and a history of past runs.
package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Cache is a SQLite-backed map of job name to the md5 of its last
// written config.
type Cache struct {
	db  *sql.DB
	cfg Config
}

// Config holds cache store configuration.
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewCache creates a cache store instance. Call Init before use.
func NewCache(cfg Config) (*Cache, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("cache path is required")
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime <= 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}
	return &Cache{cfg: cfg}, nil
}

// Init opens the database, enables WAL mode, and runs migrations.
func (c *Cache) Init(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(c.cfg.Path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", c.cfg.Path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open cache database: %w", err)
	}

	db.SetMaxOpenConns(c.cfg.MaxOpenConns)
	db.SetMaxIdleConns(c.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(c.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping cache database: %w", err)
	}

	c.db = db
	return c.migrate()
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *Cache) migrate() error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}
	driver, err := sqlite3.WithInstance(c.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// HasChanged reports whether the given md5 differs from the cached one
// for the job. Jobs never seen before count as changed.
func (c *Cache) HasChanged(ctx context.Context, name, md5 string) (bool, error) {
	var cached string
	err := c.db.QueryRowContext(ctx,
		`SELECT md5 FROM job_cache WHERE name = ?`, name).Scan(&cached)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return cached != md5, nil
}

// Set records the md5 for a job, replacing any earlier entry.
func (c *Cache) Set(ctx context.Context, name, md5 string) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO job_cache (name, md5, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET md5 = excluded.md5, updated_at = excluded.updated_at
	`, name, md5)
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// Get returns the cached md5 for a job, with found false for unknown
// jobs.
func (c *Cache) Get(ctx context.Context, name string) (md5 string, found bool, err error) {
	err = c.db.QueryRowContext(ctx,
		`SELECT md5 FROM job_cache WHERE name = ?`, name).Scan(&md5)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	return md5, true, nil
}

// Clear drops every cache entry.
func (c *Cache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM job_cache`); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// Run is one recorded engine run.
type Run struct {
	ID          string
	StartedAt   time.Time
	CompletedAt *time.Time
	Jobs        int
	Views       int
	Error       *string
}

// RecordRun stores a completed run.
func (c *Cache) RecordRun(ctx context.Context, run *Run) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, completed_at, jobs, views, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt, run.CompletedAt, run.Jobs, run.Views, run.Error)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (c *Cache) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := c.db.QueryContext(ctx, `
		SELECT id, started_at, completed_at, jobs, views, error
		FROM runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run := &Run{}
		if err := rows.Scan(&run.ID, &run.StartedAt, &run.CompletedAt, &run.Jobs, &run.Views, &run.Error); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
