package defrag

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Compactor rebuilds a database file in place.
type Compactor interface {
	Compact(ctx context.Context, path string) error
}

// SQLiteCompactor runs VACUUM then REINDEX through go-sqlite3.
type SQLiteCompactor struct{}

// Compact opens path and rebuilds it. Every failure wraps ErrCompaction.
func (SQLiteCompactor) Compact(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrCompaction, path, err)
	}
	defer db.Close()

	// VACUUM cannot run inside a transaction and must see the same
	// connection as REINDEX.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"VACUUM;", "REINDEX;"} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %s %s: %w", ErrCompaction, stmt, path, err)
		}
	}
	return nil
}
