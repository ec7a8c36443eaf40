package storage

import (
	"context"
	"database/sql"
)

// migrateV001 creates the run ledger: one row per defrag run and one row
// per database visited by that run.
func migrateV001(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id           TEXT PRIMARY KEY,
			browser      TEXT NOT NULL,
			dry_run      BOOLEAN NOT NULL DEFAULT 0,
			started_at   DATETIME NOT NULL,
			finished_at  DATETIME NOT NULL,
			outcome      TEXT NOT NULL CHECK (outcome IN ('ok', 'error')),
			error        TEXT NOT NULL DEFAULT '',
			profiles     INTEGER NOT NULL DEFAULT 0,
			databases    INTEGER NOT NULL DEFAULT 0,
			defragmented INTEGER NOT NULL DEFAULT 0,
			size_before  INTEGER NOT NULL DEFAULT 0,
			size_after   INTEGER NOT NULL DEFAULT 0
		)`,

		`CREATE TABLE IF NOT EXISTS run_databases (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			profile     TEXT NOT NULL DEFAULT '',
			path        TEXT NOT NULL,
			state       TEXT NOT NULL,
			size_before INTEGER,
			size_after  INTEGER,
			CHECK (size_after IS NULL OR size_before IS NOT NULL)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_runs_started_at      ON runs(started_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_browser         ON runs(browser)`,
		`CREATE INDEX IF NOT EXISTS idx_run_databases_run_id ON run_databases(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_run_databases_path   ON run_databases(path)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
