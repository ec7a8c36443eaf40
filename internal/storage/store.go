// Package storage keeps a SQLite ledger of past defrag runs.
package storage

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/runnerr0/browser-defrag/internal/browser"
)

const defaultListLimit = 20

// Store records and queries defrag runs.
type Store interface {
	RecordRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, q RunQuery) ([]Run, error)
	CountExpired(ctx context.Context, olderThan time.Time) (int64, error)
	PruneExpired(ctx context.Context, olderThan time.Time) (int64, error)
	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}

// SQLiteStore implements Store on a migrated SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	ownsDB bool

	insertRun      *sql.Stmt
	insertDatabase *sql.Stmt
	getRun         *sql.Stmt
	getDatabases   *sql.Stmt
}

// Open creates (if needed) and migrates the history database at path and
// returns a store that closes it on Close.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	if err := NewMigrationRunner(db).Run(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	store, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	store.ownsDB = true
	return store, nil
}

// NewSQLiteStore wraps an already opened and migrated database. The caller
// keeps ownership of db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.prepareStatements(); err != nil {
		s.Close()
		return nil, fmt.Errorf("prepare statements: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.insertRun, err = s.db.Prepare(`
		INSERT INTO runs (id, browser, dry_run, started_at, finished_at, outcome, error,
		                  profiles, databases, defragmented, size_before, size_after)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	s.insertDatabase, err = s.db.Prepare(`
		INSERT INTO run_databases (run_id, profile, path, state, size_before, size_after)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	s.getRun, err = s.db.Prepare(`
		SELECT ` + runColumns + ` FROM runs WHERE id = ?
	`)
	if err != nil {
		return err
	}

	s.getDatabases, err = s.db.Prepare(`
		SELECT profile, path, state, size_before, size_after
		FROM run_databases WHERE run_id = ? ORDER BY id
	`)
	return err
}

const runColumns = `id, browser, dry_run, started_at, finished_at, outcome, error,
	profiles, databases, defragmented, size_before, size_after`

// generateID returns "RUN-" followed by 8 random hex chars.
func generateID() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "RUN-" + hex.EncodeToString(b), nil
}

// parseTimestamp accepts the layouts SQLite and this package write.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// RecordRun inserts run and its databases in one transaction and assigns
// run.ID. A zero StartedAt or FinishedAt is set to now.
func (s *SQLiteStore) RecordRun(ctx context.Context, run *Run) error {
	id, err := generateID()
	if err != nil {
		return fmt.Errorf("generate ID: %w", err)
	}

	now := time.Now()
	if run.StartedAt.IsZero() {
		run.StartedAt = now
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = now
	}
	if run.Outcome == "" {
		run.Outcome = OutcomeOK
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.StmtContext(ctx, s.insertRun).ExecContext(ctx,
		id, run.Browser, run.DryRun,
		formatTimestamp(run.StartedAt), formatTimestamp(run.FinishedAt),
		run.Outcome, run.Error,
		run.Profiles, run.DatabaseCount, run.Defragmented,
		run.SizeBefore, run.SizeAfter,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	insertDB := tx.StmtContext(ctx, s.insertDatabase)
	for _, d := range run.Databases {
		if _, err := insertDB.ExecContext(ctx,
			id, d.Profile, d.Path, d.State, nullInt64(d.SizeBefore), nullInt64(d.SizeAfter),
		); err != nil {
			return fmt.Errorf("insert run database %s: %w", d.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	run.ID = id
	return nil
}

// GetRun returns a run with its databases.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	run, err := scanRun(s.getRun.QueryRowContext(ctx, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
		}
		return nil, fmt.Errorf("get run: %w", err)
	}

	rows, err := s.getDatabases.QueryContext(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get run databases: %w", err)
	}
	defer rows.Close()

	run.Databases = []RunDatabase{}
	for rows.Next() {
		var d RunDatabase
		var before, after sql.NullInt64
		if err := rows.Scan(&d.Profile, &d.Path, &d.State, &before, &after); err != nil {
			return nil, fmt.Errorf("scan run database: %w", err)
		}
		d.SizeBefore = int64Ptr(before)
		d.SizeAfter = int64Ptr(after)
		run.Databases = append(run.Databases, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns runs newest first. A zero Limit means 20.
func (s *SQLiteStore) ListRuns(ctx context.Context, q RunQuery) ([]Run, error) {
	if q.Limit <= 0 {
		q.Limit = defaultListLimit
	}

	var clauses []string
	var args []interface{}
	if q.Browser != "" {
		clauses = append(clauses, "browser = ? COLLATE NOCASE")
		args = append(args, q.Browser)
	}
	if !q.Since.IsZero() {
		clauses = append(clauses, "started_at >= ?")
		args = append(args, formatTimestamp(q.Since))
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}
	query := "SELECT " + runColumns + " FROM runs" + where +
		" ORDER BY started_at DESC, rowid DESC LIMIT ? OFFSET ?"
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// CountExpired reports how many runs PruneExpired would delete.
func (s *SQLiteStore) CountExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM runs WHERE started_at < ?", formatTimestamp(olderThan),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count expired runs: %w", err)
	}
	return n, nil
}

// PruneExpired deletes runs started before olderThan, with their databases.
func (s *SQLiteStore) PruneExpired(ctx context.Context, olderThan time.Time) (int64, error) {
	ts := formatTimestamp(olderThan)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	// Explicit child delete: foreign_keys is per connection.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM run_databases WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)`, ts,
	); err != nil {
		return 0, fmt.Errorf("prune run databases: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE started_at < ?", ts)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, tx.Commit()
}

// GetStats aggregates the ledger.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(dry_run), 0),
		       COALESCE(SUM(outcome = 'error'), 0),
		       COALESCE(SUM(databases), 0),
		       COALESCE(SUM(CASE WHEN dry_run = 0 THEN size_before - size_after ELSE 0 END), 0)
		FROM runs
	`).Scan(&stats.TotalRuns, &stats.DryRuns, &stats.FailedRuns, &stats.DatabasesVisited, &stats.BytesReclaimed)
	if err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}

	if stats.TotalRuns > 0 {
		var oldest, newest string
		err = s.db.QueryRowContext(ctx, "SELECT MIN(started_at), MAX(started_at) FROM runs").Scan(&oldest, &newest)
		if err != nil {
			return nil, fmt.Errorf("run time range: %w", err)
		}
		stats.OldestRun, _ = parseTimestamp(oldest)
		stats.NewestRun, _ = parseTimestamp(newest)
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err == nil {
			stats.DatabaseSizeBytes = pageCount * pageSize
		}
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT browser, COUNT(*) AS cnt FROM runs GROUP BY browser ORDER BY cnt DESC, browser",
	)
	if err != nil {
		return nil, fmt.Errorf("runs per browser: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var bc BrowserCount
		if err := rows.Scan(&bc.Browser, &bc.Runs); err != nil {
			return nil, err
		}
		stats.Browsers = append(stats.Browsers, bc)
	}
	return stats, rows.Err()
}

// Close releases prepared statements, and the database when the store was
// created by Open.
func (s *SQLiteStore) Close() error {
	for _, stmt := range []*sql.Stmt{s.insertRun, s.insertDatabase, s.getRun, s.getDatabases} {
		if stmt != nil {
			stmt.Close()
		}
	}
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var started, finished string
	if err := row.Scan(
		&r.ID, &r.Browser, &r.DryRun, &started, &finished, &r.Outcome, &r.Error,
		&r.Profiles, &r.DatabaseCount, &r.Defragmented, &r.SizeBefore, &r.SizeAfter,
	); err != nil {
		return nil, err
	}
	r.StartedAt, _ = parseTimestamp(started)
	r.FinishedAt, _ = parseTimestamp(finished)
	return &r, nil
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

// RunFromBrowser builds the ledger entry for a finished run over b. runErr
// is the error Defrag returned, if any.
func RunFromBrowser(b *browser.Browser, dryRun bool, started, finished time.Time, runErr error) *Run {
	run := &Run{
		Browser:    b.Name,
		DryRun:     dryRun,
		StartedAt:  started,
		FinishedAt: finished,
		Outcome:    OutcomeOK,
		Profiles:   len(b.Profiles),
		Databases:  []RunDatabase{},
	}
	if runErr != nil {
		run.Outcome = OutcomeError
		run.Error = runErr.Error()
	}

	// Run sizes only count databases that completed a cycle, so a database
	// that failed mid-way does not show up as reclaimed space.
	for _, p := range b.Profiles {
		run.Defragmented += p.Totals().Defragmented

		for _, db := range p.Databases {
			d := RunDatabase{Profile: p.Name, Path: db.Path, State: db.State().String()}
			before, hasBefore := db.SizeBefore()
			after, hasAfter := db.SizeAfter()
			if hasBefore {
				d.SizeBefore = &before
			}
			if hasAfter {
				d.SizeAfter = &after
			}
			if hasBefore && hasAfter {
				run.SizeBefore += before
				run.SizeAfter += after
			}
			run.Databases = append(run.Databases, d)
		}
	}
	run.DatabaseCount = len(run.Databases)
	return run
}
