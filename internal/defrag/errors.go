package defrag

import "errors"

var (
	// ErrBrowserRunning is returned when a process matching the browser is
	// alive and a live (non dry-run) compaction was requested.
	ErrBrowserRunning = errors.New("browser is running")

	// ErrNoProfiles is returned when the browser has no resolved profiles.
	ErrNoProfiles = errors.New("no profiles found")

	// ErrMissingFile is returned when a database disappeared between
	// discovery and compaction.
	ErrMissingFile = errors.New("database file is missing")

	// ErrCompaction wraps a failed VACUUM or REINDEX.
	ErrCompaction = errors.New("compaction failed")

	// ErrIO wraps copy, stat and scratch directory failures.
	ErrIO = errors.New("i/o error")
)
