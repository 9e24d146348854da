// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger persists run history to a local SQLite database. The
// ledger is an output artifact: matching never reads it, so runs stay
// independent of one another.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/drivescout/pkg/types"
)

// Store manages the run ledger database.
type Store struct {
	db *sql.DB
}

// Run is one recorded pipeline pass.
type Run struct {
	ID             int64     `yaml:"id"`
	StartedAt      time.Time `yaml:"started_at"`
	Input          string    `yaml:"input"`
	Report         string    `yaml:"report"`
	Rows           int       `yaml:"rows"`
	Skipped        int       `yaml:"skipped"`
	Found          int       `yaml:"found"`
	NotFound       int       `yaml:"not_found"`
	Downloaded     int       `yaml:"downloaded"`
	DownloadFailed int       `yaml:"download_failed"`
}

// Entry is one recorded row classification.
type Entry struct {
	RowIndex  int    `yaml:"row_index"`
	Filename  string `yaml:"filename"`
	Company   string `yaml:"company"`
	Status    string `yaml:"status"`
	Reason    string `yaml:"reason,omitempty"`
	FileID    string `yaml:"file_id,omitempty"`
	FileName  string `yaml:"file_name,omitempty"`
	LocalPath string `yaml:"local_path,omitempty"`
}

// Open creates or opens the ledger database at path, creating parent
// directories and the schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TEXT NOT NULL,
			input TEXT NOT NULL,
			report TEXT NOT NULL,
			rows INTEGER NOT NULL,
			skipped INTEGER NOT NULL,
			found INTEGER NOT NULL,
			not_found INTEGER NOT NULL,
			downloaded INTEGER NOT NULL,
			download_failed INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			run_id INTEGER NOT NULL REFERENCES runs(id),
			row_idx INTEGER NOT NULL,
			filename TEXT NOT NULL,
			company TEXT NOT NULL,
			status TEXT NOT NULL,
			reason TEXT,
			file_id TEXT,
			file_name TEXT,
			local_path TEXT,
			PRIMARY KEY (run_id, row_idx)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_company ON results(company)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// RecordRun inserts a run with its per-row results and download outcomes in
// one transaction, returning the new run ID.
func (s *Store) RecordRun(ctx context.Context, run Run, results []types.MatchResult, outcomes []types.DownloadOutcome) (int64, error) {
	paths := make(map[int]string, len(outcomes))
	for _, o := range outcomes {
		if o.OK() {
			paths[o.Result.Row.Index] = o.LocalPath
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (started_at, input, report, rows, skipped, found, not_found, downloaded, download_failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.Input, run.Report,
		run.Rows, run.Skipped, run.Found, run.NotFound, run.Downloaded, run.DownloadFailed)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (run_id, row_idx, filename, company, status, reason, file_id, file_name, local_path)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing results insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		var fileID, fileName string
		if r.Resolved != nil {
			fileID = r.Resolved.ID
			fileName = r.Resolved.Name
		}
		if _, err := stmt.ExecContext(ctx, runID, r.Row.Index, r.Row.Filename, r.Row.Company,
			string(r.Status), r.Reason, fileID, fileName, paths[r.Row.Index]); err != nil {
			return 0, fmt.Errorf("inserting result row %d: %w", r.Row.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return runID, nil
}

// ListRuns returns the most recent runs, newest first. limit <= 0 lists all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, started_at, input, report, rows, skipped, found, not_found, downloaded, download_failed
		FROM runs ORDER BY id DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var started string
		if err := rows.Scan(&r.ID, &started, &r.Input, &r.Report, &r.Rows, &r.Skipped,
			&r.Found, &r.NotFound, &r.Downloaded, &r.DownloadFailed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if t, perr := time.Parse(time.RFC3339Nano, started); perr == nil {
			r.StartedAt = t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunResults returns the recorded rows of a run in original row order.
func (s *Store) RunResults(ctx context.Context, runID int64) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT row_idx, filename, company, status, reason, file_id, file_name, local_path
		 FROM results WHERE run_id = ? ORDER BY row_idx`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying run %d: %w", runID, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.RowIndex, &e.Filename, &e.Company, &e.Status,
			&e.Reason, &e.FileID, &e.FileName, &e.LocalPath); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Export writes a run and its rows to a YAML file.
func (s *Store) Export(ctx context.Context, runID int64, path string) error {
	runs, err := s.ListRuns(ctx, 0)
	if err != nil {
		return err
	}
	var run *Run
	for i := range runs {
		if runs[i].ID == runID {
			run = &runs[i]
			break
		}
	}
	if run == nil {
		return fmt.Errorf("run %d not found in ledger", runID)
	}

	entries, err := s.RunResults(ctx, runID)
	if err != nil {
		return err
	}

	doc := struct {
		Run     Run     `yaml:"run"`
		Results []Entry `yaml:"results"`
	}{Run: *run, Results: entries}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing export %s: %w", path, err)
	}
	return nil
}
