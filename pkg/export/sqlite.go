package export

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver.
	_ "modernc.org/sqlite"

	"github.com/matzehuels/steamfam/pkg/pipeline"
)

// SQLiteSink appends every run to a SQLite database: one row in runs and
// one row per item in rows, written in a single transaction.
type SQLiteSink struct {
	db   *sql.DB
	path string
}

// NewSQLiteSink opens or creates the database at path and ensures the
// schema exists.
func NewSQLiteSink(ctx context.Context, path string) (*SQLiteSink, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	s := &SQLiteSink{db: db, path: path}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLiteSink) Path() string { return s.path }

// DB exposes the connection for queries over stored runs.
func (s *SQLiteSink) DB() *sql.DB { return s.db }

func (s *SQLiteSink) migrate(ctx context.Context) error {
	stmts := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			ok_accounts INTEGER NOT NULL,
			total_accounts INTEGER NOT NULL,
			excluded_delisted INTEGER NOT NULL,
			total_seconds REAL NOT NULL,
			features TEXT NOT NULL,
			failed_accounts TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS rows (
			run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
			appid TEXT NOT NULL,
			name TEXT NOT NULL,
			owners INTEGER NOT NULL,
			combined_hours_on_record REAL NOT NULL,
			review_summary TEXT,
			recent_percent_positive REAL,
			release_year INTEGER,
			last_update_year INTEGER,
			approx_install_size_gb REAL,
			PRIMARY KEY (run_id, appid)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_rows_appid ON rows(appid)`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *SQLiteSink) Write(ctx context.Context, res *pipeline.Result) (err error) {
	features, err := json.Marshal(res.Features)
	if err != nil {
		return err
	}
	failed, err := json.Marshal(res.FailedAccounts)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, ok_accounts, total_accounts, excluded_delisted, total_seconds, features, failed_accounts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.StartedAt.UTC().Format(time.RFC3339), res.OKAccounts, res.TotalAccounts,
		res.ExcludedDelisted, res.Stats.Total.Seconds(), string(features), string(failed),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO rows (run_id, appid, name, owners, combined_hours_on_record, review_summary,
		 recent_percent_positive, release_year, last_update_year, approx_install_size_gb)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare rows: %w", err)
	}
	defer stmt.Close()

	for _, r := range res.Rows {
		if _, err = stmt.ExecContext(ctx, res.RunID, r.AppID, r.Name, r.Owners, r.CombinedHours,
			r.ReviewSummary, r.RecentPercentPositive, r.ReleaseYear, r.LastUpdateYear, r.InstallSizeGB,
		); err != nil {
			return fmt.Errorf("insert row %s: %w", r.AppID, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteSink) Close() error { return s.db.Close() }
