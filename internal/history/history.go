// Package history keeps a local ledger of install runs in SQLite.
package history

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/imamik/hostup/internal/provisioning"
)

//go:embed migrations/*.sql
var migrations embed.FS

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// Run statuses.
const (
	StatusSucceeded = "succeeded"
	StatusWarned    = "warned"
	StatusFailed    = "failed"
)

// Run is one recorded install.
type Run struct {
	ID       string
	App      string
	Domain   string
	Variant  string
	Started  time.Time
	Finished time.Time
	Status   string
	Warnings int
	Error    string
	Steps    []StepRecord
}

// StepRecord is the outcome of one step within a run.
type StepRecord struct {
	Step     string
	Outcome  string
	Detail   string
	Duration time.Duration
}

// Filter narrows List results.
type Filter struct {
	App   string
	Limit int
}

// Store is the run ledger.
type Store struct {
	db *sql.DB
}

// Open opens the ledger at path, creating it and applying migrations.
// Use ":memory:" for a throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases alive across queries.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	dir, err := fs.Sub(migrations, "migrations")
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, dir)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Record stores r and returns its ID, generating one when empty.
func (s *Store) Record(ctx context.Context, r Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, app, domain, variant, started_at, finished_at, status, warnings, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.App, r.Domain, r.Variant,
		r.Started.UTC().Format(timeLayout), r.Finished.UTC().Format(timeLayout),
		r.Status, r.Warnings, r.Error,
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	for i, st := range r.Steps {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO step_outcomes (run_id, position, step, outcome, detail, duration_ms)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, i, st.Step, st.Outcome, st.Detail, st.Duration.Milliseconds(),
		)
		if err != nil {
			return "", fmt.Errorf("insert step outcome: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return r.ID, nil
}

// List returns runs newest first, without their steps.
func (s *Store) List(ctx context.Context, f Filter) ([]Run, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, app, domain, variant, started_at, finished_at, status, warnings, error FROM runs`
	args := []any{}
	if f.App != "" {
		query += ` WHERE app = ?`
		args = append(args, f.App)
	}
	query += ` ORDER BY started_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Get returns the run with id including its steps.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, app, domain, variant, started_at, finished_at, status, warnings, error FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT step, outcome, detail, duration_ms FROM step_outcomes WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return Run{}, fmt.Errorf("list step outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var st StepRecord
		var ms int64
		if err := rows.Scan(&st.Step, &st.Outcome, &st.Detail, &ms); err != nil {
			return Run{}, fmt.Errorf("scan step outcome: %w", err)
		}
		st.Duration = time.Duration(ms) * time.Millisecond
		r.Steps = append(r.Steps, st)
	}
	return r, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var r Run
	var started, finished string
	if err := s.Scan(&r.ID, &r.App, &r.Domain, &r.Variant, &started, &finished, &r.Status, &r.Warnings, &r.Error); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	var err error
	if r.Started, err = time.Parse(timeLayout, started); err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if r.Finished, err = time.Parse(timeLayout, finished); err != nil {
		return Run{}, fmt.Errorf("parse finished_at: %w", err)
	}
	return r, nil
}

// FromPipeline builds a Run from a finished pipeline.
func FromPipeline(t *provisioning.Target, st *provisioning.State, started, finished time.Time, runErr error) Run {
	r := Run{
		App:      t.App,
		Domain:   t.Domain,
		Variant:  t.Variant,
		Started:  started,
		Finished: finished,
		Warnings: len(st.Warnings),
	}
	switch {
	case runErr != nil:
		r.Status = StatusFailed
		r.Error = runErr.Error()
	case len(st.Warnings) > 0:
		r.Status = StatusWarned
	default:
		r.Status = StatusSucceeded
	}
	for _, s := range st.Steps {
		r.Steps = append(r.Steps, StepRecord{
			Step:     s.Step,
			Outcome:  s.Outcome.String(),
			Detail:   s.Detail,
			Duration: s.Duration,
		})
	}
	return r
}
